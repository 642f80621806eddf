package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/orchestrator"
)

func TestWireCodec_MarshalUnmarshalRoundTrips(t *testing.T) {
	codec := wireCodec{}
	req := &StartRunRequest{AgentType: "hunt.credential_abuse", TenantID: "t1", Intent: "hunt"}

	data, err := codec.Marshal(req)
	require.NoError(t, err)

	var out StartRunRequest
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, *req, out)
	assert.Equal(t, "proto", codec.Name())
}

type fakeAgent struct{}

func (fakeAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	return agentrt.Plan{Description: "fake"}, nil
}

func (fakeAgent) Execute(ctx context.Context, plan agentrt.Plan) (agentrt.Result, error) {
	return agentrt.Result{Status: agentrt.StatusCompleted}, nil
}

func TestOrchestratorServer_StartRunUnknownAgentTypeErrors(t *testing.T) {
	srv := NewOrchestratorServer(orchestrator.New(), nil)
	_, err := srv.StartRun(context.Background(), &StartRunRequest{AgentType: "nope", TenantID: "t1"})
	assert.Error(t, err)
}

func TestOrchestratorServer_StartRunGetStatusListSessions(t *testing.T) {
	factories := map[string]AgentFactory{
		"hunt.credential_abuse": func(agentID, tenantID string) (*agentrt.Runtime, agentrt.Agent, error) {
			rt, err := agentrt.NewRuntime(agentrt.Config{AgentID: agentID, AgentType: "hunt.credential_abuse", TenantID: tenantID}, nil, nil, nil)
			if err != nil {
				return nil, nil, err
			}
			return rt, fakeAgent{}, nil
		},
	}
	srv := NewOrchestratorServer(orchestrator.New(), factories)

	started, err := srv.StartRun(context.Background(), &StartRunRequest{AgentType: "hunt.credential_abuse", TenantID: "t1", Intent: "hunt creds"})
	require.NoError(t, err)
	require.NotEmpty(t, started.SessionID)

	require.Eventually(t, func() bool {
		status, err := srv.GetStatus(context.Background(), &GetStatusRequest{SessionID: started.SessionID})
		return err == nil && status.Session.Status == string(agentrt.StatusCompleted)
	}, 2*time.Second, 5*time.Millisecond)

	list, err := srv.ListSessions(context.Background(), &ListSessionsRequest{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, started.SessionID, list.Sessions[0].SessionID)
}

func TestOrchestratorServer_CancelRunInvalidSessionIDErrors(t *testing.T) {
	srv := NewOrchestratorServer(orchestrator.New(), nil)
	_, err := srv.CancelRun(context.Background(), &CancelRunRequest{SessionID: "not-a-uuid"})
	assert.Error(t, err)
}
