package sentinel

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-platform/sentinel/engram"
)

type fakeStore struct{}

func (*fakeStore) Save(ctx context.Context, e engram.Engram) error { return nil }
func (*fakeStore) Get(ctx context.Context, id uuid.UUID) (engram.Engram, error) {
	return engram.Engram{}, nil
}
func (*fakeStore) List(ctx context.Context, q engram.Query) ([]engram.Engram, error) { return nil, nil }

func TestNew_AppliesDefaults(t *testing.T) {
	s, err := New(WithEngramRoot(t.TempDir()))
	require.NoError(t, err)

	assert.NotNil(t, s.Logger())
	assert.NotNil(t, s.Tracer())
	assert.NotNil(t, s.Meter())
	assert.NotNil(t, s.EngramStore())
	assert.NotNil(t, s.Policy())
	assert.NotNil(t, s.Tools())
	assert.NotNil(t, s.Orchestrator())
}

func TestNew_WithEngramStoreOverridesDefault(t *testing.T) {
	store := &fakeStore{}
	s, err := New(WithEngramStore(store))
	require.NoError(t, err)
	assert.Same(t, store, s.EngramStore())
}
