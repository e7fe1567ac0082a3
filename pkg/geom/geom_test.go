package geom

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

func TestCircle_Contains(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{name: "origin", x: 0, y: 0, want: true},
		{name: "boundary on x axis", x: 1, y: 0, want: true},
		{name: "boundary on y axis", x: 0, y: -1, want: true},
		{name: "just outside", x: 1.0001, y: 0, want: false},
		{name: "square corner", x: 1, y: 1, want: false},
		{name: "inside diagonal", x: 0.7, y: 0.7, want: true},
		{name: "outside diagonal", x: 0.71, y: 0.71, want: false},
	}

	c := Circle{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Contains(tt.x, tt.y); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestStar_Contains(t *testing.T) {
	star := Star()

	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{name: "centroid", x: 0, y: 0, want: true},
		{name: "far outside", x: 10, y: 10, want: false},
		{name: "toward right tip", x: 0.5, y: 0, want: true},
		{name: "toward top tip", x: 0, y: 0.8, want: true},
		{name: "inner diagonal", x: 0.2, y: 0.2, want: true},
		{name: "beyond concave vertex", x: 0.6, y: 0.6, want: false},
		{name: "box corner", x: -0.95, y: -0.95, want: false},
		{name: "left of polygon", x: -1.5, y: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := star.Contains(tt.x, tt.y); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestPolygon_HorizontalEdge(t *testing.T) {
	// Square with horizontal top and bottom edges.
	sq, err := NewPolygon("square", []Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}})
	if err != nil {
		t.Fatalf("NewPolygon() error = %v", err)
	}

	if !sq.Contains(1, 1) {
		t.Error("Contains(1, 1) = false, want true")
	}
	if sq.Contains(3, 1) {
		t.Error("Contains(3, 1) = true, want false")
	}
	if sq.Contains(1, -1) {
		t.Error("Contains(1, -1) = true, want false")
	}
}

func TestPolygon_AgreesWithPlanar(t *testing.T) {
	star := Star()

	ring := orb.Ring{}
	for _, v := range star.Vertices() {
		ring = append(ring, orb.Point{v.X, v.Y})
	}
	ring = append(ring, ring[0])

	rnd := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 5000; i++ {
		x := rnd.Float64()*2.4 - 1.2
		y := rnd.Float64()*2.4 - 1.2
		want := planar.RingContains(ring, orb.Point{x, y})
		if got := star.Contains(x, y); got != want {
			t.Fatalf("Contains(%v, %v) = %v, planar says %v", x, y, got, want)
		}
	}
}

func TestNewPolygon_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		vertices []Point
	}{
		{name: "nil", vertices: nil},
		{name: "two vertices", vertices: []Point{{0, 0}, {1, 1}}},
		{name: "NaN vertex", vertices: []Point{{0, 0}, {1, 0}, {math.NaN(), 1}}},
		{name: "infinite vertex", vertices: []Point{{0, 0}, {math.Inf(1), 0}, {0, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolygon(tt.name, tt.vertices)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("NewPolygon() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestPolygon_AreaAndBound(t *testing.T) {
	star := Star()
	if got := star.Area(); math.Abs(got-1.4) > 1e-9 {
		t.Errorf("Area() = %v, want 1.4", got)
	}

	want := Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1}
	if got := star.Bound(); got != want {
		t.Errorf("Bound() = %+v, want %+v", got, want)
	}

	// Clockwise orientation must not flip the sign.
	cw, err := NewPolygon("cw", []Point{{0, 0}, {0, 1}, {1, 1}, {1, 0}})
	if err != nil {
		t.Fatalf("NewPolygon() error = %v", err)
	}
	if got := cw.Area(); math.Abs(got-1) > 1e-12 {
		t.Errorf("Area() = %v, want 1", got)
	}
}

func TestRect_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rect    Rect
		wantErr bool
	}{
		{name: "unit square", rect: UnitSquare()},
		{name: "empty width", rect: Rect{MinX: 1, MinY: 0, MaxX: 1, MaxY: 1}, wantErr: true},
		{name: "inverted", rect: Rect{MinX: 0, MinY: 1, MaxX: 1, MaxY: 0}, wantErr: true},
		{name: "infinite", rect: Rect{MinX: 0, MinY: 0, MaxX: math.Inf(1), MaxY: 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rect.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Validate() error = %v, want ErrInvalidArgument", err)
			}
		})
	}

	if got := UnitSquare().Area(); got != 4 {
		t.Errorf("UnitSquare().Area() = %v, want 4", got)
	}
}
