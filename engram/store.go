package engram

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Query filters Store.List results. Zero-valued fields are unconstrained.
type Query struct {
	TenantID  string
	AgentID   string
	SessionID string
	FromTime  time.Time
	ToTime    time.Time
}

// Store persists finalized engrams and recovers them with tamper detection.
// Implementations must satisfy spec §4.1: save rejects unfinalized engrams,
// get recomputes and compares the content hash, list tolerates files it
// does not recognize.
type Store interface {
	Save(ctx context.Context, e Engram) error
	Get(ctx context.Context, id uuid.UUID) (Engram, error)
	List(ctx context.Context, q Query) ([]Engram, error)
}
