package engram

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyFinalized is returned by every Session mutator once Finalize
// has been called. Spec §4.2 leaves post-finalize mutation "undefined";
// this implementation rejects it rather than silently re-hashing.
var ErrAlreadyFinalized = errors.New("engram: session already finalized")

// Session is the single-threaded, append-only collector owned exclusively
// by one agent for the duration of one run (spec §3 "Ownership"). Calling
// NewSession starts the clock on StartedAt; Finalize closes it.
type Session struct {
	mu         sync.Mutex
	id         uuid.UUID
	engram     Engram
	finalized  bool
	now        func() time.Time
}

// NewSession starts a new engram builder for one agent run.
func NewSession(tenantID, agentID, intent string) *Session {
	return newSessionWithClock(tenantID, agentID, intent, time.Now)
}

func newSessionWithClock(tenantID, agentID, intent string, now func() time.Time) *Session {
	id := uuid.New()
	return &Session{
		id:  id,
		now: now,
		engram: Engram{
			ID:           id,
			TenantID:     tenantID,
			AgentID:      agentID,
			Intent:       intent,
			Decisions:    []Decision{},
			Alternatives: []Alternative{},
			Actions:      []Action{},
			StartedAt:    now(),
		},
	}
}

// ID returns the session's identifier, stable from creation (spec §4.2).
func (s *Session) ID() uuid.UUID {
	return s.id
}

// StartedAt returns the run's start timestamp.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engram.StartedAt
}

// SetContext attaches the opaque run context to the engram.
func (s *Session) SetContext(ctx any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return ErrAlreadyFinalized
	}
	s.engram.Context = ctx
	return nil
}

// AddDecision appends a decision with a fresh timestamp.
func (s *Session) AddDecision(choice, rationale string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return ErrAlreadyFinalized
	}
	s.engram.Decisions = append(s.engram.Decisions, Decision{
		Choice:     choice,
		Rationale:  rationale,
		Confidence: confidence,
		Timestamp:  s.now(),
	})
	return nil
}

// AddAlternative appends a considered-and-rejected option.
func (s *Session) AddAlternative(option, rejectionReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return ErrAlreadyFinalized
	}
	s.engram.Alternatives = append(s.engram.Alternatives, Alternative{
		Option:          option,
		RejectionReason: rejectionReason,
	})
	return nil
}

// AddActionOpts carries the optional fields for AddAction.
type AddActionOpts struct {
	Details map[string]any
	Success bool
}

// AddAction appends a completed operation with a fresh timestamp.
func (s *Session) AddAction(actionType, description string, opts AddActionOpts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return ErrAlreadyFinalized
	}
	s.engram.Actions = append(s.engram.Actions, Action{
		ActionType:  actionType,
		Description: description,
		Details:     opts.Details,
		Success:     opts.Success,
		Timestamp:   s.now(),
	})
	return nil
}

// Finalize sets CompletedAt, computes the content hash, and returns the
// now-immutable Engram. Subsequent mutator calls return
// ErrAlreadyFinalized; a second Finalize call returns the same error
// rather than re-hashing.
func (s *Session) Finalize() (Engram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return Engram{}, ErrAlreadyFinalized
	}
	completed := s.now()
	s.engram.CompletedAt = &completed
	hash, err := computeContentHash(&s.engram)
	if err != nil {
		return Engram{}, err
	}
	s.engram.ContentHash = hash
	s.finalized = true
	return s.engram, nil
}
