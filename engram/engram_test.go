package engram

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_FinalizeProducesVerifiableEngram(t *testing.T) {
	s := NewSession("tenant-a", "agent-1", "hunt for lateral movement")
	require.NoError(t, s.SetContext(map[string]any{"window_hours": 24}))
	require.NoError(t, s.AddDecision("run credential abuse playbook", "matches intent", 0.9))
	require.NoError(t, s.AddAlternative("run simulation instead", "intent specifies hunting"))
	require.NoError(t, s.AddAction("query_failed_logins", "queried SIEM", AddActionOpts{Success: true}))

	e, err := s.Finalize()
	require.NoError(t, err)

	assert.True(t, e.Finalized())
	assert.True(t, e.VerifyIntegrity())
	assert.Equal(t, s.ID(), e.ID)
	assert.Len(t, e.Decisions, 1)
	assert.Len(t, e.Alternatives, 1)
	assert.Len(t, e.Actions, 1)
}

func TestSession_MutationAfterFinalizeFails(t *testing.T) {
	s := NewSession("tenant-a", "agent-1", "intent")
	_, err := s.Finalize()
	require.NoError(t, err)

	assert.ErrorIs(t, s.AddDecision("x", "y", 0.5), ErrAlreadyFinalized)
	assert.ErrorIs(t, s.AddAlternative("x", "y"), ErrAlreadyFinalized)
	assert.ErrorIs(t, s.AddAction("x", "y", AddActionOpts{}), ErrAlreadyFinalized)
	assert.ErrorIs(t, s.SetContext("z"), ErrAlreadyFinalized)
	_, err = s.Finalize()
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

// TestEngram_TamperingBreaksIntegrity covers invariant 1: mutating any
// finalized field invalidates VerifyIntegrity.
func TestEngram_TamperingBreaksIntegrity(t *testing.T) {
	s := NewSession("tenant-a", "agent-1", "original intent")
	e, err := s.Finalize()
	require.NoError(t, err)
	require.True(t, e.VerifyIntegrity())

	e.Intent = "tampered intent"
	assert.False(t, e.VerifyIntegrity())
}

// TestFileEngramStore_ScenarioF covers spec §8 Scenario F: tampering with
// the on-disk JSON causes Get to return an IntegrityError.
func TestFileEngramStore_ScenarioF(t *testing.T) {
	dir := t.TempDir()
	store := NewFileEngramStore(dir)
	ctx := context.Background()

	s := NewSession("tenant-a", "agent-1", "original intent")
	require.NoError(t, s.AddDecision("choice", "rationale", 0.5))
	e, err := s.Finalize()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, e))

	path, err := store.findPath(e.ID)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	tampered, err := json.Marshal("some other intent entirely")
	require.NoError(t, err)
	m["intent"] = tampered
	out, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o644))

	_, err = store.Get(ctx, e.ID)
	var integrityErr *IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

func TestFileEngramStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileEngramStore(dir)
	ctx := context.Background()

	s := NewSession("tenant-a", "agent-1", "intent")
	require.NoError(t, s.AddDecision("choice", "rationale", 0.5))
	e, err := s.Finalize()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, e))

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.ContentHash, got.ContentHash)
	assert.True(t, got.VerifyIntegrity())

	expectedPath := filepath.Join(dir,
		e.StartedAt.Format("2006"), e.StartedAt.Format("01"), e.StartedAt.Format("02"),
		e.ID.String()+".json")
	_, statErr := os.Stat(expectedPath)
	assert.NoError(t, statErr)
}

func TestFileEngramStore_SaveRejectsUnfinalized(t *testing.T) {
	dir := t.TempDir()
	store := NewFileEngramStore(dir)
	s := NewSession("tenant-a", "agent-1", "intent")
	unfinalized := Engram{ID: s.ID(), StartedAt: time.Now()}

	err := store.Save(context.Background(), unfinalized)
	var notFinalized *NotFinalizedError
	assert.ErrorAs(t, err, &notFinalized)
}

func TestFileEngramStore_GetMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	store := NewFileEngramStore(dir)
	_, err := store.Get(context.Background(), (NewSession("a", "b", "c")).ID())
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestFileEngramStore_ListFiltersByTenant(t *testing.T) {
	dir := t.TempDir()
	store := NewFileEngramStore(dir)
	ctx := context.Background()

	for _, tenant := range []string{"T1", "T1", "T2"} {
		s := NewSession(tenant, "agent-1", "intent")
		e, err := s.Finalize()
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, e))
	}

	all, err := store.List(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	t1, err := store.List(ctx, Query{TenantID: "T1"})
	require.NoError(t, err)
	assert.Len(t, t1, 2)

	t2, err := store.List(ctx, Query{TenantID: "T2"})
	require.NoError(t, err)
	assert.Len(t, t2, 1)
}

func TestFileEngramStore_ListSkipsUnrecognizedFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileEngramStore(dir)
	ctx := context.Background()

	junkDir := filepath.Join(dir, "2026", "01", "01")
	require.NoError(t, os.MkdirAll(junkDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(junkDir, "not-json-shaped.json"), []byte("{not json"), 0o644))

	results, err := store.List(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
