package runs

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrNotReady indicates no run has completed yet.
var ErrNotReady = errors.New("no completed runs")

// Provider holds the most recent completed run.
// Reads are a single atomic load; all methods are safe for concurrent use.
type Provider struct {
	current atomic.Pointer[Record]
	updates atomic.Uint64
}

// NewProvider creates an empty Provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Update replaces the current record. rec must not be modified afterwards.
func (p *Provider) Update(rec *Record) {
	p.current.Store(rec)
	p.updates.Add(1)
}

// Current returns the latest record, or ErrNotReady before the first run.
func (p *Provider) Current(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := p.current.Load()
	if rec == nil {
		return nil, ErrNotReady
	}
	return rec, nil
}

// Ready reports whether at least one run has completed.
func (p *Provider) Ready() bool {
	return p.current.Load() != nil
}

// UpdateCount returns the number of completed runs seen.
func (p *Provider) UpdateCount() uint64 {
	return p.updates.Load()
}
