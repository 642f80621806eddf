package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-platform/sentinel/agentrt"
)

// fakeAgent is a minimal agentrt.Agent used to drive orchestrator tests
// without depending on any concrete playbook.
type fakeAgent struct {
	planDelay time.Duration
	execDelay time.Duration
	planErr   error
	execErr   error
	cancelled func() bool
}

func (f *fakeAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	if f.planDelay > 0 {
		select {
		case <-time.After(f.planDelay):
		case <-ctx.Done():
		}
	}
	if f.planErr != nil {
		return agentrt.Plan{}, f.planErr
	}
	return agentrt.Plan{Description: "fake plan"}, nil
}

func (f *fakeAgent) Execute(ctx context.Context, plan agentrt.Plan) (agentrt.Result, error) {
	if f.execDelay > 0 {
		select {
		case <-time.After(f.execDelay):
		case <-ctx.Done():
		}
	}
	if f.execErr != nil {
		return agentrt.Result{}, f.execErr
	}
	status := agentrt.StatusCompleted
	if f.cancelled != nil && f.cancelled() {
		status = agentrt.StatusCancelled
	}
	return agentrt.Result{Status: status}, nil
}

func newRuntime(t *testing.T, agentID, agentType, tenantID string) *agentrt.Runtime {
	t.Helper()
	rt, err := agentrt.NewRuntime(agentrt.Config{AgentID: agentID, AgentType: agentType, TenantID: tenantID}, nil, nil, nil)
	require.NoError(t, err)
	return rt
}

func TestOrchestrator_StartTracksRunningThenCompleted(t *testing.T) {
	o := New()
	rt := newRuntime(t, "a1", "hunt", "t1")
	agent := &fakeAgent{execDelay: 20 * time.Millisecond}

	sessionID, err := o.Start(context.Background(), rt, agent, "intent", nil)
	require.NoError(t, err)

	sess, err := o.GetStatus(sessionID)
	require.NoError(t, err)
	assert.Equal(t, agentrt.StatusRunning, sess.Status)

	require.Eventually(t, func() bool {
		sess, err := o.GetStatus(sessionID)
		return err == nil && sess.Status == agentrt.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOrchestrator_StartWithExecuteErrorMarksFailed(t *testing.T) {
	o := New()
	rt := newRuntime(t, "a1", "hunt", "t1")
	agent := &fakeAgent{execErr: errors.New("boom")}

	sessionID, err := o.Start(context.Background(), rt, agent, "intent", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		sess, err := o.GetStatus(sessionID)
		return err == nil && sess.Status == agentrt.StatusFailed
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOrchestrator_CancelSetsStatusImmediatelyAndRequestsCancel(t *testing.T) {
	o := New()
	rt := newRuntime(t, "a1", "hunt", "t1")
	agent := &fakeAgent{execDelay: 100 * time.Millisecond, cancelled: rt.IsCancelled}

	sessionID, err := o.Start(context.Background(), rt, agent, "intent", nil)
	require.NoError(t, err)

	require.NoError(t, o.Cancel(context.Background(), sessionID))

	sess, err := o.GetStatus(sessionID)
	require.NoError(t, err)
	assert.Equal(t, agentrt.StatusCancelled, sess.Status)
	assert.True(t, rt.IsCancelled())
}

func TestOrchestrator_GetStatusUnknownSessionErrors(t *testing.T) {
	o := New()
	_, err := o.GetStatus(uuid.New())
	assert.Error(t, err)
}

func TestOrchestrator_ListSessionsFiltersByTenant_ScenarioG(t *testing.T) {
	o := New()

	rt1 := newRuntime(t, "a1", "hunt", "T1")
	rt2 := newRuntime(t, "a2", "hunt", "T1")
	rt3 := newRuntime(t, "a3", "hunt", "T2")

	_, err := o.Start(context.Background(), rt1, &fakeAgent{}, "intent", nil)
	require.NoError(t, err)
	_, err = o.Start(context.Background(), rt2, &fakeAgent{}, "intent", nil)
	require.NoError(t, err)
	_, err = o.Start(context.Background(), rt3, &fakeAgent{}, "intent", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(o.ListSessions("")) == 3
	}, 2*time.Second, 5*time.Millisecond)

	assert.Len(t, o.ListSessions(""), 3)
	assert.Len(t, o.ListSessions("T1"), 2)
	assert.Len(t, o.ListSessions("T2"), 1)
}
