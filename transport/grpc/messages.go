// Package grpc is Sentinel's orchestrator front door (SPEC_FULL.md §4.9):
// a minimal gRPC service (StartRun, CancelRun, GetStatus, ListSessions)
// wrapping orchestrator.Orchestrator. No protoc invocation ever runs
// against this package — the toolchain must not run at all — so the wire
// messages are plain, hand-authored Go structs rather than protoc-gen-go
// output, and codec.go supplies a matching wire codec (see its doc
// comment for why). Timestamps use the precompiled well-known
// google.golang.org/protobuf/types/known/timestamppb.Timestamp rather
// than time.Time, the same type the teacher's own generated stubs would
// use for any protobuf Timestamp field.
package grpc

import "google.golang.org/protobuf/types/known/timestamppb"

// StartRunRequest asks the orchestrator to start a new agent session.
type StartRunRequest struct {
	AgentType string         `json:"agent_type"`
	TenantID  string         `json:"tenant_id"`
	Intent    string         `json:"intent"`
	Context   map[string]any `json:"context,omitempty"`
}

// StartRunResponse carries the freshly assigned session ID.
type StartRunResponse struct {
	SessionID string `json:"session_id"`
}

// CancelRunRequest requests cooperative cancellation of a session.
type CancelRunRequest struct {
	SessionID string `json:"session_id"`
}

// CancelRunResponse acknowledges a cancellation request.
type CancelRunResponse struct {
	Accepted bool `json:"accepted"`
}

// GetStatusRequest looks up one session by ID.
type GetStatusRequest struct {
	SessionID string `json:"session_id"`
}

// GetStatusResponse carries the current session snapshot.
type GetStatusResponse struct {
	Session *SessionMessage `json:"session"`
}

// ListSessionsRequest lists sessions, optionally filtered by tenant.
type ListSessionsRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
}

// ListSessionsResponse carries every matching session.
type ListSessionsResponse struct {
	Sessions []*SessionMessage `json:"sessions"`
}

// SessionMessage is the wire representation of orchestrator.AgentSession.
type SessionMessage struct {
	SessionID   string                 `json:"session_id"`
	AgentID     string                 `json:"agent_id"`
	AgentType   string                 `json:"agent_type"`
	TenantID    string                 `json:"tenant_id"`
	Status      string                 `json:"status"`
	CreatedAt   *timestamppb.Timestamp `json:"created_at,omitempty"`
	CompletedAt *timestamppb.Timestamp `json:"completed_at,omitempty"`
	Error       string                 `json:"error,omitempty"`
}
