package agentrt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedAgent struct {
	*Runtime
	planErr Plan
	planErrOut error
	execOut Result
	execErrOut error
}

func (s *scriptedAgent) Plan(ctx context.Context, intent string, agentContext any) (Plan, error) {
	if s.planErrOut != nil {
		return Plan{}, s.planErrOut
	}
	return s.planErr, nil
}

func (s *scriptedAgent) Execute(ctx context.Context, plan Plan) (Result, error) {
	if s.execErrOut != nil {
		return Result{}, s.execErrOut
	}
	return s.execOut, nil
}

func testRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := NewRuntime(Config{AgentID: "a1", AgentType: "hunt", TenantID: "t1"}, nil, nil, nil)
	require.NoError(t, err)
	return rt
}

func TestRun_SuccessPathFinalizesAndAttachesEngramID(t *testing.T) {
	rt := testRuntime(t)
	agent := &scriptedAgent{
		Runtime: rt,
		planErr: Plan{Description: "scan hosts", Rationale: "intent requires it", Confidence: 0.9},
		execOut: Result{Findings: []Finding{{ID: "f1", Severity: "high", Title: "x"}}},
	}

	result, err := rt.Run(context.Background(), agent, "hunt for lateral movement", map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.NotNil(t, result.EngramID)
	assert.NotNil(t, result.CompletedAt)
	assert.Equal(t, "a1", result.AgentID)
	assert.Len(t, result.Findings, 1)
	assert.Nil(t, rt.Session(), "session must be cleared after Run returns")
}

func TestRun_PlanErrorProducesFailedResultNotGoError(t *testing.T) {
	rt := testRuntime(t)
	agent := &scriptedAgent{Runtime: rt, planErrOut: errors.New("graph unreachable")}

	result, err := rt.Run(context.Background(), agent, "intent", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "graph unreachable", result.Error)
	assert.NotNil(t, result.EngramID, "session must still be finalized on failure")
}

func TestRun_ExecuteErrorProducesFailedResult(t *testing.T) {
	rt := testRuntime(t)
	agent := &scriptedAgent{
		Runtime:    rt,
		planErr:    Plan{Description: "d", Rationale: "r"},
		execErrOut: errors.New("siem timeout"),
	}

	result, err := rt.Run(context.Background(), agent, "intent", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "siem timeout", result.Error)
}

func TestRun_CancellationBeforeExecuteSkipsIt(t *testing.T) {
	rt := testRuntime(t)
	rt.RequestCancel()
	executed := false
	agent := &scriptedAgent{Runtime: rt, planErr: Plan{Description: "d"}}
	_ = executed

	result, err := rt.Run(context.Background(), agent, "intent", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Status)
}

func TestConfig_ValidateRejectsEmptyFields(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)

	err = Config{AgentID: "a", AgentType: "hunt", TenantID: "t", TimeoutSeconds: -1}.Validate()
	require.Error(t, err)

	err = Config{AgentID: "a", AgentType: "hunt", TenantID: "t"}.Validate()
	require.NoError(t, err)
}
