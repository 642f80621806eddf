package toolreg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-platform/sentinel/engram"
	"github.com/sentinel-platform/sentinel/policy"
)

func mustRegisterSearchGraph(t *testing.T, r *Registry, called *bool) {
	t.Helper()
	err := r.Register(Tool{
		Name:       "search_graph",
		AgentTypes: []string{"hunt", "discover"},
	}, func(ctx context.Context, params map[string]any) (Result, error) {
		*called = true
		return Result{Success: true}, nil
	})
	require.NoError(t, err)
}

// TestExecute_ScenarioE covers spec §8 Scenario E: an agent type outside
// the tool's allowlist is denied before the handler runs and before any
// session action is recorded.
func TestExecute_ScenarioE(t *testing.T) {
	r := New()
	var called bool
	mustRegisterSearchGraph(t, r, &called)

	session := engram.NewSession("tenant-a", "agent-1", "intent")

	_, err := r.Execute(context.Background(), "search_graph", "simulate", nil, ExecuteOptions{
		Session: session,
	})

	var violation *PolicyViolation
	require.ErrorAs(t, err, &violation)
	assert.False(t, called, "handler must not run on agent-type mismatch")

	finalized, finalizeErr := session.Finalize()
	require.NoError(t, finalizeErr)
	assert.Empty(t, finalized.Actions, "agent-type mismatch must not record a session action")
}

// TestExecute_PolicyDenialRecordsAction covers invariant 3: a
// policy-engine denial records exactly one policy_violation action with
// success=false before the PolicyViolation propagates.
func TestExecute_PolicyDenialRecordsAction(t *testing.T) {
	r := New()
	var called bool
	mustRegisterSearchGraph(t, r, &called)

	local, err := policy.NewLocalEngine()
	require.NoError(t, err)

	session := engram.NewSession("tenant-a", "agent-1", "intent")

	// "simulate" is allowed to call search_graph at the tool-registration
	// level here but the policy engine's allowlist for "simulate" excludes
	// search_graph, so the denial must come from the policy check.
	r2 := New()
	require.NoError(t, r2.Register(Tool{
		Name:       "search_graph",
		AgentTypes: []string{"hunt", "simulate"},
	}, func(ctx context.Context, params map[string]any) (Result, error) {
		called = true
		return Result{Success: true}, nil
	}))

	_, err = r2.Execute(context.Background(), "search_graph", "simulate", nil, ExecuteOptions{
		PolicyEngine: local,
		AgentID:      "agent-1",
		TenantID:     "tenant-a",
		Session:      session,
	})

	var violation *PolicyViolation
	require.ErrorAs(t, err, &violation)
	assert.False(t, called)

	finalized, finalizeErr := session.Finalize()
	require.NoError(t, finalizeErr)
	require.Len(t, finalized.Actions, 1)
	assert.Equal(t, "policy_violation", finalized.Actions[0].ActionType)
	assert.False(t, finalized.Actions[0].Success)
}

func TestExecute_UnknownToolErrors(t *testing.T) {
	r := New()
	_, err := r.Execute(context.Background(), "does-not-exist", "hunt", nil, ExecuteOptions{})
	var unknown *UnknownToolError
	assert.ErrorAs(t, err, &unknown)
}

func TestExecute_SuccessRecordsAction(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Tool{
		Name:       "query_logs",
		AgentTypes: []string{"hunt"},
	}, func(ctx context.Context, params map[string]any) (Result, error) {
		return Result{Success: true, Data: "ok"}, nil
	}))

	session := engram.NewSession("tenant-a", "agent-1", "intent")
	result, err := r.Execute(context.Background(), "query_logs", "hunt", map[string]any{"query": "x"}, ExecuteOptions{Session: session})
	require.NoError(t, err)
	assert.True(t, result.Success)

	finalized, err := session.Finalize()
	require.NoError(t, err)
	require.Len(t, finalized.Actions, 1)
	assert.Equal(t, "tool_query_logs", finalized.Actions[0].ActionType)
	assert.True(t, finalized.Actions[0].Success)
}

func TestExecute_HandlerErrorRecordsFailureAndRethrows(t *testing.T) {
	r := New()
	sentinelErr := assert.AnError
	require.NoError(t, r.Register(Tool{
		Name:       "flaky_tool",
		AgentTypes: []string{"hunt"},
	}, func(ctx context.Context, params map[string]any) (Result, error) {
		return Result{}, sentinelErr
	}))

	session := engram.NewSession("tenant-a", "agent-1", "intent")
	_, err := r.Execute(context.Background(), "flaky_tool", "hunt", nil, ExecuteOptions{Session: session})
	assert.ErrorIs(t, err, sentinelErr)

	finalized, err := session.Finalize()
	require.NoError(t, err)
	require.Len(t, finalized.Actions, 1)
	assert.False(t, finalized.Actions[0].Success)
}

func TestListForAgentType(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Tool{Name: "a", AgentTypes: []string{"hunt"}}, noopHandler))
	require.NoError(t, r.Register(Tool{Name: "b", AgentTypes: []string{"simulate"}}, noopHandler))
	require.NoError(t, r.Register(Tool{Name: "c", AgentTypes: []string{"hunt", "simulate"}}, noopHandler))

	huntTools := r.ListForAgentType("hunt")
	assert.Len(t, huntTools, 2)
}

func noopHandler(ctx context.Context, params map[string]any) (Result, error) {
	return Result{Success: true}, nil
}
