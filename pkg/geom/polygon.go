package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// edgeEpsilon keeps the edge intersection finite for horizontal edges.
const edgeEpsilon = 1e-12

// Polygon is a simple polygon given by its vertices in order.
// The last vertex connects back to the first; the ring is never stored closed.
type Polygon struct {
	name     string
	vertices []Point
	ring     orb.Ring
}

// NewPolygon validates the vertices and returns a polygon.
// The vertex slice is copied.
func NewPolygon(name string, vertices []Point) (*Polygon, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("%w: polygon %q needs at least 3 vertices, got %d",
			ErrInvalidArgument, name, len(vertices))
	}

	pts := make([]Point, len(vertices))
	ring := make(orb.Ring, 0, len(vertices)+1)
	for i, v := range vertices {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			return nil, fmt.Errorf("%w: polygon %q vertex %d is not finite", ErrInvalidArgument, name, i)
		}
		pts[i] = v
		ring = append(ring, orb.Point{v.X, v.Y})
	}
	ring = append(ring, ring[0])

	if name == "" {
		name = "polygon"
	}

	return &Polygon{name: name, vertices: pts, ring: ring}, nil
}

// Star returns the 8-vertex four-pointed star used for area estimation.
func Star() *Polygon {
	p, err := NewPolygon("star", []Point{
		{0.0, 1.0},
		{0.35, 0.35},
		{1.0, 0.0},
		{0.35, -0.35},
		{0.0, -1.0},
		{-0.35, -0.35},
		{-1.0, 0.0},
		{-0.35, 0.35},
	})
	if err != nil {
		panic(err)
	}
	return p
}

// Contains applies the even-odd rule with a horizontal ray towards +x.
// Points lying exactly on an edge may resolve either way.
func (p *Polygon) Contains(x, y float64) bool {
	inside := false
	n := len(p.vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.vertices[j], p.vertices[i]
		if (a.Y > y) != (b.Y > y) &&
			x < (b.X-a.X)*(y-a.Y)/(b.Y-a.Y+edgeEpsilon)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Name returns the polygon name.
func (p *Polygon) Name() string { return p.name }

// Vertices returns a copy of the vertices.
func (p *Polygon) Vertices() []Point {
	out := make([]Point, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// Bound returns the polygon's own bounding box.
func (p *Polygon) Bound() Rect {
	b := p.ring.Bound()
	return Rect{MinX: b.Min.X(), MinY: b.Min.Y(), MaxX: b.Max.X(), MaxY: b.Max.Y()}
}

// Area returns the shoelace area regardless of vertex orientation.
func (p *Polygon) Area() float64 {
	return math.Abs(planar.Area(p.ring))
}
