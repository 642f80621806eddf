package grpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/orchestrator"
)

// AgentFactory constructs the runtime and self-agent for one agent type,
// given the identity the network caller supplied. Each deployment
// registers one factory per playbook it wants to expose over the network
// front door (e.g. "hunt.credential_abuse", "simulate.initial_access").
type AgentFactory func(agentID, tenantID string) (*agentrt.Runtime, agentrt.Agent, error)

// OrchestratorServer adapts an orchestrator.Orchestrator to the
// OrchestratorService gRPC contract.
type OrchestratorServer struct {
	orch      *orchestrator.Orchestrator
	factories map[string]AgentFactory
}

// NewOrchestratorServer builds a server-side adapter. factories maps
// agent_type (as sent in StartRunRequest) to the constructor that builds
// a fresh runtime/agent pair for that type.
func NewOrchestratorServer(orch *orchestrator.Orchestrator, factories map[string]AgentFactory) *OrchestratorServer {
	return &OrchestratorServer{orch: orch, factories: factories}
}

func (s *OrchestratorServer) StartRun(ctx context.Context, req *StartRunRequest) (*StartRunResponse, error) {
	factory, ok := s.factories[req.AgentType]
	if !ok {
		return nil, fmt.Errorf("transport/grpc: unknown agent type %q", req.AgentType)
	}
	rt, agent, err := factory(uuid.New().String(), req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("transport/grpc: failed to construct agent %q: %w", req.AgentType, err)
	}

	sessionID, err := s.orch.Start(ctx, rt, agent, req.Intent, req.Context)
	if err != nil {
		return nil, err
	}
	return &StartRunResponse{SessionID: sessionID.String()}, nil
}

func (s *OrchestratorServer) CancelRun(ctx context.Context, req *CancelRunRequest) (*CancelRunResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("transport/grpc: invalid session id %q: %w", req.SessionID, err)
	}
	if err := s.orch.Cancel(ctx, sessionID); err != nil {
		return nil, err
	}
	return &CancelRunResponse{Accepted: true}, nil
}

func (s *OrchestratorServer) GetStatus(ctx context.Context, req *GetStatusRequest) (*GetStatusResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("transport/grpc: invalid session id %q: %w", req.SessionID, err)
	}
	sess, err := s.orch.GetStatus(sessionID)
	if err != nil {
		return nil, err
	}
	return &GetStatusResponse{Session: toSessionMessage(sess)}, nil
}

func (s *OrchestratorServer) ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error) {
	sessions := s.orch.ListSessions(req.TenantID)
	out := make([]*SessionMessage, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionMessage(sess))
	}
	return &ListSessionsResponse{Sessions: out}, nil
}

func toSessionMessage(sess orchestrator.AgentSession) *SessionMessage {
	msg := &SessionMessage{
		SessionID: sess.SessionID.String(),
		AgentID:   sess.AgentID,
		AgentType: sess.AgentType,
		TenantID:  sess.TenantID,
		Status:    string(sess.Status),
		CreatedAt: timestamppb.New(sess.CreatedAt),
		Error:     sess.Error,
	}
	if sess.CompletedAt != nil {
		msg.CompletedAt = timestamppb.New(*sess.CompletedAt)
	}
	return msg
}
