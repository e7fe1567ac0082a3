package estimator

import "github.com/branched-services/go-montecarlo/pkg/geom"

// Source supplies uniform scalars in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

// ProgressFunc receives (current, total) while a run is in flight.
// It is called inline on the sampling goroutine; its return is ignored.
type ProgressFunc func(current, total int)

// Snapshot is the running estimate after Samples draws.
type Snapshot struct {
	Samples  int     `json:"samples"`
	Estimate float64 `json:"estimate"`
}

// RunResult is the complete output of one Run.
// It is immutable once returned and owned by the caller.
type RunResult struct {
	Target  string `json:"target"`
	Samples int    `json:"samples"`

	// Seed reproduces the run with WithSeed when Seeded is true.
	Seed   uint64 `json:"seed"`
	Seeded bool   `json:"seeded"`

	Estimate float64 `json:"estimate"`
	Inside   int     `json:"inside"`

	InsidePoints  []geom.Point `json:"inside_points,omitempty"`
	OutsidePoints []geom.Point `json:"outside_points,omitempty"`

	// Convergence is ordered by strictly increasing Samples; the last entry
	// always has Samples == the run's sample count.
	Convergence []Snapshot `json:"convergence"`
}

// Outside returns the number of samples that fell outside the shape.
func (r *RunResult) Outside() int {
	return r.Samples - r.Inside
}

// Ratio returns the fraction of samples inside the shape.
func (r *RunResult) Ratio() float64 {
	if r.Samples == 0 {
		return 0
	}
	return float64(r.Inside) / float64(r.Samples)
}
