// Package runs executes estimation requests and keeps their results.
package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/branched-services/go-montecarlo/internal/artifact"
	"github.com/branched-services/go-montecarlo/internal/catalog"
	"github.com/branched-services/go-montecarlo/internal/events"
	"github.com/branched-services/go-montecarlo/internal/observability"
	"github.com/branched-services/go-montecarlo/internal/render"
	"github.com/branched-services/go-montecarlo/pkg/estimator"
)

var (
	// ErrNotFound is returned for run IDs not in the history.
	ErrNotFound = errors.New("run not found")

	// ErrTooManySamples is returned when a request exceeds the sample limit.
	ErrTooManySamples = errors.New("too many samples")

	// ErrUnknownTarget is returned for target names not in the catalog.
	ErrUnknownTarget = catalog.ErrUnknownTarget
)

// Request describes one run.
type Request struct {
	Target  string  `json:"target"`
	Samples int     `json:"samples"`
	Seed    *uint64 `json:"seed,omitempty"`
}

// Record is a completed run. It is immutable once stored.
type Record struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Duration  time.Duration        `json:"-"`
	Target    estimator.Target     `json:"-"`
	Result    *estimator.RunResult `json:"result"`
	Summary   estimator.Summary    `json:"summary"`
}

// Service runs requests against a catalog and records the results.
// All methods are safe for concurrent use.
type Service struct {
	catalog   *catalog.Catalog
	history   *History
	latest    *Provider
	store     artifact.Store
	publisher events.Publisher

	historySize    int
	defaultSamples int
	maxSamples     int
	progressEvery  int
	runTimeout     time.Duration

	baseLogger *slog.Logger
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHistorySize sets how many records are kept.
func WithHistorySize(n int) Option {
	return func(s *Service) {
		s.historySize = n
	}
}

// WithDefaultSamples sets the sample count used when a request gives none.
func WithDefaultSamples(n int) Option {
	return func(s *Service) {
		s.defaultSamples = n
	}
}

// WithMaxSamples sets the largest accepted sample count.
func WithMaxSamples(n int) Option {
	return func(s *Service) {
		s.maxSamples = n
	}
}

// WithProgressEvery sets the progress cadence passed to the estimator.
func WithProgressEvery(k int) Option {
	return func(s *Service) {
		s.progressEvery = k
	}
}

// WithRunTimeout bounds each run. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.runTimeout = d
	}
}

// WithArtifactStore sets where rendered charts and results are written.
func WithArtifactStore(store artifact.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithPublisher sets where run events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service over cat.
func NewService(cat *catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		catalog:        cat,
		latest:         NewProvider(),
		store:          artifact.NopStore{},
		publisher:      events.NopPublisher{},
		historySize:    50,
		defaultSamples: 5000,
		maxSamples:     1_000_000,
		runTimeout:     60 * time.Second,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.history = NewHistory(s.historySize)
	s.baseLogger = s.logger
	s.logger = s.logger.With("component", "runs")

	return s
}

// Run executes req and stores the result. progress may be nil.
func (s *Service) Run(ctx context.Context, req Request, progress estimator.ProgressFunc) (*Record, error) {
	target, err := s.catalog.Lookup(req.Target)
	if err != nil {
		return nil, err
	}

	n := req.Samples
	if n == 0 {
		n = s.defaultSamples
	}
	if n > s.maxSamples {
		return nil, fmt.Errorf("%w: %d exceeds limit of %d", ErrTooManySamples, n, s.maxSamples)
	}

	opts := []estimator.Option{
		estimator.WithProgressEvery(s.progressEvery),
		estimator.WithLogger(s.baseLogger),
	}
	if req.Seed != nil {
		opts = append(opts, estimator.WithSeed(*req.Seed))
	}

	id := uuid.NewString()
	ctx = context.WithValue(ctx, observability.RunIDKey, id)
	logger := observability.WithContext(ctx, s.logger)

	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := estimator.New(opts...).Run(runCtx, target, n, progress)
	if err != nil {
		logger.Warn("run failed", "target", req.Target, "samples", n, "error", err)
		return nil, err
	}

	rec := &Record{
		ID:        id,
		CreatedAt: start.UTC(),
		Duration:  time.Since(start),
		Target:    target,
		Result:    res,
		Summary:   estimator.Summarize(res, target),
	}

	s.history.Push(rec)
	s.latest.Update(rec)

	logger.Info("run complete",
		"target", res.Target,
		"samples", n,
		"seed", res.Seed,
		"estimate", res.Estimate,
		"abs_error", rec.Summary.AbsError,
		"duration_ms", rec.Duration.Milliseconds(),
	)

	// Outbound side effects must not fail a completed run.
	outCtx := context.WithoutCancel(ctx)
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		outCtx, cancel = context.WithTimeout(outCtx, s.runTimeout)
		defer cancel()
	}
	if err := s.saveArtifacts(outCtx, rec); err != nil {
		logger.Warn("storing artifacts failed", "error", err)
	}
	if err := s.publish(outCtx, rec); err != nil {
		logger.Warn("publishing event failed", "error", err)
	}

	return rec, nil
}

// saveArtifacts renders the charts and writes them with the result JSON.
func (s *Service) saveArtifacts(ctx context.Context, rec *Record) error {
	if _, nop := s.store.(artifact.NopStore); nop {
		return nil
	}

	result, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	scatter, err := render.Scatter(rec.Result, rec.Target)
	if err != nil {
		return fmt.Errorf("render scatter: %w", err)
	}
	convergence, err := render.Convergence(rec.Result, rec.Summary)
	if err != nil {
		return fmt.Errorf("render convergence: %w", err)
	}

	for _, obj := range []struct {
		name        string
		contentType string
		data        []byte
	}{
		{"result.json", artifact.ContentTypeJSON, result},
		{"scatter.png", artifact.ContentTypePNG, scatter},
		{"convergence.png", artifact.ContentTypePNG, convergence},
	} {
		if err := s.store.Put(ctx, artifact.Key(rec.ID, obj.name), obj.contentType, obj.data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, rec *Record) error {
	return s.publisher.PublishRunCompleted(ctx, events.RunCompleted{
		RunID:      rec.ID,
		Target:     rec.Result.Target,
		Samples:    rec.Result.Samples,
		Seed:       rec.Result.Seed,
		Estimate:   rec.Result.Estimate,
		Reference:  rec.Summary.Reference,
		AbsError:   rec.Summary.AbsError,
		DurationMS: rec.Duration.Milliseconds(),
		Timestamp:  rec.CreatedAt,
	})
}

// Get returns the stored run with the given ID.
func (s *Service) Get(id string) (*Record, error) {
	rec, ok := s.history.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// Recent returns up to limit stored runs, newest first. limit <= 0 returns all.
func (s *Service) Recent(limit int) []*Record {
	recs := s.history.Snapshot()
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// Latest returns the most recent run, or ErrNotReady.
func (s *Service) Latest(ctx context.Context) (*Record, error) {
	return s.latest.Current(ctx)
}

// Targets returns the catalog entries in registration order.
func (s *Service) Targets() []catalog.Definition {
	return s.catalog.Definitions()
}

// Stats describes the run history.
type Stats struct {
	Stored    int    `json:"stored"`
	Capacity  int    `json:"capacity"`
	Completed uint64 `json:"completed"`
	HasRuns   bool   `json:"has_runs"`
}

// Stats returns counts for the stored and completed runs.
func (s *Service) Stats() Stats {
	return Stats{
		Stored:    s.history.Len(),
		Capacity:  s.history.Cap(),
		Completed: s.latest.UpdateCount(),
		HasRuns:   s.latest.Ready(),
	}
}

// Ready reports whether the service has targets to run.
func (s *Service) Ready() bool {
	return s.catalog != nil && s.catalog.Len() > 0
}
