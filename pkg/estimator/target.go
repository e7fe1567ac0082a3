package estimator

import (
	"fmt"
	"math"

	"github.com/branched-services/go-montecarlo/pkg/geom"
)

// Target describes what a run samples and how the hit ratio is scaled.
//
// Scale turns inside/total into the reported estimate. For an area estimate
// it is the region area; for π it is 4 (the square's area divided by r²).
// Reference is the value the estimate is judged against. Zero means unknown.
type Target struct {
	Shape     geom.Shape
	Region    geom.Rect
	Scale     float64
	Reference float64
}

// PiTarget samples the unit circle inside [-1,1]² and reports 4·inside/n.
func PiTarget() Target {
	return Target{
		Shape:     geom.Circle{},
		Region:    geom.UnitSquare(),
		Scale:     4,
		Reference: math.Pi,
	}
}

// AreaTarget estimates the area of shape by sampling region.
// The region does not have to be the shape's own bound; any part of the
// shape outside it is simply never sampled.
func AreaTarget(shape geom.Shape, region geom.Rect, reference float64) Target {
	return Target{
		Shape:     shape,
		Region:    region,
		Scale:     region.Area(),
		Reference: reference,
	}
}

// StarTarget is the star polygon sampled over [-1,1]² with reference area 1.40.
func StarTarget() Target {
	return AreaTarget(geom.Star(), geom.UnitSquare(), 1.40)
}

// Name returns the shape name, or "unknown" for an empty target.
func (t Target) Name() string {
	if t.Shape == nil {
		return "unknown"
	}
	return t.Shape.Name()
}

// Validate reports whether the target can be sampled.
func (t Target) Validate() error {
	if t.Shape == nil {
		return fmt.Errorf("%w: target has no shape", ErrInvalidArgument)
	}
	if err := t.Region.Validate(); err != nil {
		return err
	}
	if t.Scale <= 0 || math.IsNaN(t.Scale) || math.IsInf(t.Scale, 0) {
		return fmt.Errorf("%w: scale must be positive and finite, got %g", ErrInvalidArgument, t.Scale)
	}
	if t.Reference < 0 || math.IsNaN(t.Reference) || math.IsInf(t.Reference, 0) {
		return fmt.Errorf("%w: reference must be non-negative and finite, got %g", ErrInvalidArgument, t.Reference)
	}
	return nil
}
