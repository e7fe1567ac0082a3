package runs

import (
	"context"
	"sync"

	"github.com/branched-services/go-montecarlo/internal/events"
)

type putCall struct {
	key         string
	contentType string
	size        int
}

type mockStore struct {
	mu      sync.Mutex
	putFunc func(ctx context.Context, key, contentType string, data []byte) error
	calls   []putCall
}

func (m *mockStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	m.mu.Lock()
	m.calls = append(m.calls, putCall{key, contentType, len(data)})
	m.mu.Unlock()
	if m.putFunc != nil {
		return m.putFunc(ctx, key, contentType, data)
	}
	return nil
}

type mockPublisher struct {
	mu          sync.Mutex
	publishFunc func(ctx context.Context, ev events.RunCompleted) error
	events      []events.RunCompleted
}

func (m *mockPublisher) PublishRunCompleted(ctx context.Context, ev events.RunCompleted) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	if m.publishFunc != nil {
		return m.publishFunc(ctx, ev)
	}
	return nil
}

func (m *mockPublisher) Close() error { return nil }
