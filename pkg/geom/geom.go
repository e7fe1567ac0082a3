// Package geom provides the shapes and bounding regions sampled by the estimator.
package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument is returned for inputs that cannot be sampled:
// degenerate polygons, empty regions, non-positive sample counts.
var ErrInvalidArgument = errors.New("invalid argument")

// Point is a 2D sample point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape decides containment for a sampled point.
// Implementations must be pure: same input, same answer, no side effects.
type Shape interface {
	Contains(x, y float64) bool

	// Name identifies the shape in logs and results.
	Name() string

	// Bound returns the smallest axis-aligned box enclosing the shape.
	Bound() Rect

	// Area returns the exact area of the shape.
	Area() float64
}

// Rect is an axis-aligned bounding region [MinX,MaxX]×[MinY,MaxY].
type Rect struct {
	MinX float64 `json:"min_x" yaml:"min_x"`
	MinY float64 `json:"min_y" yaml:"min_y"`
	MaxX float64 `json:"max_x" yaml:"max_x"`
	MaxY float64 `json:"max_y" yaml:"max_y"`
}

// UnitSquare returns [-1,1]×[-1,1].
func UnitSquare() Rect {
	return Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1}
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Area returns Width × Height.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Validate reports whether the region can be sampled.
func (r Rect) Validate() error {
	for _, v := range []float64{r.MinX, r.MinY, r.MaxX, r.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: region has non-finite bounds", ErrInvalidArgument)
		}
	}
	if r.Width() <= 0 || r.Height() <= 0 {
		return fmt.Errorf("%w: region [%g,%g]x[%g,%g] is empty",
			ErrInvalidArgument, r.MinX, r.MaxX, r.MinY, r.MaxY)
	}
	return nil
}

// Circle is the unit circle centered at the origin.
type Circle struct{}

// Contains uses a non-strict inequality so boundary points count as inside.
func (Circle) Contains(x, y float64) bool {
	return x*x+y*y <= 1
}

// Name returns "circle".
func (Circle) Name() string { return "circle" }

// Bound returns [-1,1]×[-1,1].
func (Circle) Bound() Rect { return UnitSquare() }

// Area returns π.
func (Circle) Area() float64 { return math.Pi }

// Verify interface compliance at compile time.
var (
	_ Shape = Circle{}
	_ Shape = (*Polygon)(nil)
)
