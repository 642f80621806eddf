package engram

import "fmt"

// NotFoundError is returned by Store.Get when no engram matches the given id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("engram: no engram found with id %q", e.ID)
}

// IntegrityError is returned by Store.Get when the stored content hash does
// not match the recomputed canonical-JSON hash — the file was tampered with
// or corrupted after save.
type IntegrityError struct {
	ID string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("engram: content hash mismatch for id %q, integrity check failed", e.ID)
}

// NotFinalizedError is returned by Store.Save when the engram has no
// content hash, i.e. Session.Finalize was never called on it.
type NotFinalizedError struct {
	ID string
}

func (e *NotFinalizedError) Error() string {
	return fmt.Sprintf("engram: cannot save unfinalized engram %q", e.ID)
}
