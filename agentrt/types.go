// Package agentrt implements the shared plan→execute→report lifecycle
// every Sentinel agent runs under (spec §4.3): status tracking, engram
// session management, cooperative cancellation, and the tool-invocation
// helper. Concrete agents (hunt playbooks, simulation playbooks) embed a
// *Runtime for these shared dependencies and supply their own Plan/Execute
// behavior, composing rather than inheriting per the base-class mapping
// spec §9 calls for.
package agentrt

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one agent run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	// StatusPaused is reserved but unused by this core; resumption
	// semantics are left to future work (spec §9 open question).
	StatusPaused Status = "paused"
)

// Finding is a single observation an agent surfaced.
type Finding struct {
	ID              string         `json:"id"`
	Severity        string         `json:"severity"` // critical|high|medium|low|info
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Evidence        map[string]any `json:"evidence,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// PlanAlternative is an option the planner considered and rejected.
type PlanAlternative struct {
	Option          string `json:"option"`
	RejectionReason string `json:"rejection_reason"`
}

// Plan is produced by the plan phase and consumed by execute.
type Plan struct {
	Description  string            `json:"description"`
	Rationale    string            `json:"rationale"`
	Confidence   float64           `json:"confidence"`
	Steps        []string          `json:"steps"`
	Alternatives []PlanAlternative `json:"alternatives"`
}

// Result is what execute (and ultimately Run) returns.
type Result struct {
	AgentID       string        `json:"agent_id"`
	AgentType     string        `json:"agent_type"`
	TenantID      string        `json:"tenant_id"`
	Status        Status        `json:"status"`
	Findings      []Finding     `json:"findings"`
	Recommendations []string    `json:"recommendations,omitempty"`
	ActionsTaken  int           `json:"actions_taken"`
	EngramID      *uuid.UUID    `json:"engram_id,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// Config is the static identity and constraints of one agent instance.
// AgentID/AgentType/TenantID must be non-empty; TimeoutSeconds is carried
// for external use but not enforced by this core (spec §9 open question).
type Config struct {
	AgentID         string
	AgentType       string
	TenantID        string
	TimeoutSeconds  int
}

// Validate reports a non-nil error if the configuration is malformed,
// matching spec §4.3's "AgentConfig must be validated on construction; a
// type error is raised otherwise."
func (c Config) Validate() error {
	if c.AgentID == "" {
		return &ValidationError{Field: "AgentID", Reason: "must not be empty"}
	}
	if c.AgentType == "" {
		return &ValidationError{Field: "AgentType", Reason: "must not be empty"}
	}
	if c.TenantID == "" {
		return &ValidationError{Field: "TenantID", Reason: "must not be empty"}
	}
	if c.TimeoutSeconds < 0 {
		return &ValidationError{Field: "TimeoutSeconds", Reason: "must not be negative"}
	}
	return nil
}

// ValidationError reports a malformed Config field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "agentrt: invalid config field " + e.Field + ": " + e.Reason
}
