package runs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider(t *testing.T) {
	p := NewProvider()

	_, err := p.Current(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.False(t, p.Ready())

	rec := &Record{ID: "a"}
	p.Update(rec)

	got, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, rec, got)
	assert.True(t, p.Ready())

	rec2 := &Record{ID: "b"}
	p.Update(rec2)
	got, err = p.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, rec2, got)
	assert.Equal(t, uint64(2), p.UpdateCount())
}

func TestProvider_CanceledContext(t *testing.T) {
	p := NewProvider()
	p.Update(&Record{ID: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Current(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
