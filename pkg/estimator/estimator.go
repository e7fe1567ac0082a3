// Package estimator implements Monte Carlo estimation of areas and π with
// convergence tracking.
package estimator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/branched-services/go-montecarlo/pkg/geom"
)

// ErrInvalidArgument is returned when a run cannot start.
// It is the same value as geom.ErrInvalidArgument so errors.Is matches either.
var ErrInvalidArgument = geom.ErrInvalidArgument

// pcgStream is the second PCG word; the seed supplies the first.
const pcgStream = 0x9e3779b97f4a7c15

// cancelCheckMask controls how often the context is polled (every 1024 draws).
const cancelCheckMask = 1<<10 - 1

// Estimator runs Monte Carlo sampling over a Target.
//
// An Estimator configured with WithSeed or with no source option is safe for
// concurrent use: every Run builds its own generator. With WithSource all runs
// share the caller's generator and must not overlap.
type Estimator struct {
	// Randomness
	seed   uint64
	seeded bool
	source Source

	// Configuration
	progressEvery int
	logger        *slog.Logger
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithSeed makes every run start from the same PCG state.
func WithSeed(seed uint64) Option {
	return func(e *Estimator) {
		e.seed = seed
		e.seeded = true
		e.source = nil
	}
}

// WithSource makes runs draw from a caller-owned generator.
// Results are then not tagged with a seed.
func WithSource(src Source) Option {
	return func(e *Estimator) {
		e.source = src
		e.seeded = false
	}
}

// WithProgressEvery sets how many draws pass between progress calls.
// Zero or negative selects max(1, n/100).
func WithProgressEvery(k int) Option {
	return func(e *Estimator) {
		e.progressEvery = k
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Estimator) {
		e.logger = l
	}
}

// New creates an Estimator with the given options.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("component", "estimator")

	return e
}

// EstimatePi runs PiTarget for n samples.
func EstimatePi(ctx context.Context, n int, opts ...Option) (*RunResult, error) {
	return New(opts...).Run(ctx, PiTarget(), n, nil)
}

// Run draws n uniform points over target.Region, classifies each with
// target.Shape and records the running estimate at SelectIntervals(n).
//
// progress may be nil. The run either completes all n draws or returns an
// error and no result; a canceled context stops it within 1024 draws.
func (e *Estimator) Run(ctx context.Context, target Target, n int, progress ProgressFunc) (*RunResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample count must be positive, got %d", ErrInvalidArgument, n)
	}
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", target.Name(), err)
	}

	start := time.Now()
	src, seed, seeded := e.newSource()

	intervals := SelectIntervals(n)
	every := e.progressEvery
	if every <= 0 {
		every = max(1, n/100)
	}

	res := &RunResult{
		Target:        target.Name(),
		Samples:       n,
		Seed:          seed,
		Seeded:        seeded,
		InsidePoints:  make([]geom.Point, 0, n/2),
		OutsidePoints: make([]geom.Point, 0, n/2),
		Convergence:   make([]Snapshot, 0, intervals.Len()),
	}

	var (
		region = target.Region
		width  = region.Width()
		height = region.Height()
		shape  = target.Shape
		counts = intervals.counts
		next   = 0 // cursor into counts
		inside = 0
	)

	for i := 1; i <= n; i++ {
		if i&cancelCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("run canceled after %d of %d samples: %w", i-1, n, err)
			}
		}

		x := region.MinX + width*src.Float64()
		y := region.MinY + height*src.Float64()

		if shape.Contains(x, y) {
			inside++
			res.InsidePoints = append(res.InsidePoints, geom.Point{X: x, Y: y})
		} else {
			res.OutsidePoints = append(res.OutsidePoints, geom.Point{X: x, Y: y})
		}

		if next < len(counts) && counts[next] == i {
			res.Convergence = append(res.Convergence, Snapshot{
				Samples:  i,
				Estimate: target.Scale * float64(inside) / float64(i),
			})
			next++
		}

		if progress != nil && ((i-1)%every == 0 || i == n) {
			progress(i, n)
		}
	}

	res.Inside = inside
	res.Estimate = target.Scale * float64(inside) / float64(n)

	e.logger.Debug("run complete",
		"target", res.Target,
		"samples", n,
		"inside", inside,
		"estimate", res.Estimate,
		"seed", seed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res, nil
}

// newSource returns the generator for one run.
func (e *Estimator) newSource() (Source, uint64, bool) {
	if e.source != nil {
		return e.source, 0, false
	}

	seed := e.seed
	if !e.seeded {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, pcgStream)), seed, true
}
