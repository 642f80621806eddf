// Package engram implements the tamper-evident reasoning trail recorded for
// every autonomous agent run: the decisions made, the alternatives
// considered, and the actions taken, content-hashed at finalization so
// retrieval can detect on-disk corruption or tampering.
package engram

import (
	"time"

	"github.com/google/uuid"
)

// Decision records a single choice made during an agent run.
type Decision struct {
	Choice     string    `json:"choice"`
	Rationale  string    `json:"rationale"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Alternative records an option that was considered and rejected.
type Alternative struct {
	Option          string `json:"option"`
	RejectionReason string `json:"rejection_reason"`
}

// Action records a single operation the agent performed (a tool call, a
// SIEM query, a technique simulation) along with its outcome.
type Action struct {
	ActionType  string         `json:"action_type"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
	Success     bool           `json:"success"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Engram is the finalized, content-hashed reasoning chain for one agent
// run. It is immutable: the only way to obtain one is Session.Finalize.
type Engram struct {
	ID           uuid.UUID     `json:"id"`
	TenantID     string        `json:"tenant_id"`
	AgentID      string        `json:"agent_id"`
	Intent       string        `json:"intent"`
	Context      any           `json:"context,omitempty"`
	Decisions    []Decision    `json:"decisions"`
	Alternatives []Alternative `json:"alternatives"`
	Actions      []Action      `json:"actions"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	ContentHash  string        `json:"content_hash,omitempty"`
}

// Finalized reports whether e carries a content hash, i.e. has completed
// the builder→finalize transition described in spec §4.1 invariant (a).
func (e *Engram) Finalized() bool {
	return e.CompletedAt != nil && e.ContentHash != ""
}

// VerifyIntegrity recomputes the canonical-JSON content hash over every
// field except ContentHash and reports whether it matches the stored value.
// An unfinalized engram (no stored hash) never verifies.
func (e *Engram) VerifyIntegrity() bool {
	if e.ContentHash == "" {
		return false
	}
	got, err := computeContentHash(e)
	if err != nil {
		return false
	}
	return got == e.ContentHash
}
