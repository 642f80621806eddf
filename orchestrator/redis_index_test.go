package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-platform/sentinel/agentrt"
)

func setupTestIndex(t *testing.T) (*RedisSessionIndex, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	idx, err := NewRedisSessionIndex(RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = idx.Close()
		mr.Close()
	})
	return idx, mr
}

func TestRedisSessionIndex_PutThenListRoundTrips(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()

	sess := AgentSession{
		SessionID: uuid.New(),
		AgentID:   "a1",
		AgentType: "hunt",
		TenantID:  "T1",
		Status:    agentrt.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, idx.Put(ctx, sess))

	all, err := idx.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, sess.SessionID, all[0].SessionID)
	assert.Equal(t, agentrt.StatusRunning, all[0].Status)
}

func TestRedisSessionIndex_ListFiltersByTenant(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()

	for _, tenant := range []string{"T1", "T1", "T2"} {
		require.NoError(t, idx.Put(ctx, AgentSession{
			SessionID: uuid.New(),
			TenantID:  tenant,
			Status:    agentrt.StatusCompleted,
			CreatedAt: time.Now().UTC(),
		}))
	}

	all, err := idx.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	t1, err := idx.List(ctx, "T1")
	require.NoError(t, err)
	assert.Len(t, t1, 2)

	t2, err := idx.List(ctx, "T2")
	require.NoError(t, err)
	assert.Len(t, t2, 1)
}
