package sentinel

import (
	"errors"
	"fmt"
)

// Error kinds categorize the errors every core subsystem can return,
// realizing spec.md §7's error taxonomy as Go values usable with
// errors.Is/errors.As rather than loose strings.
const (
	// KindNotFound represents a lookup that found nothing: an unknown
	// engram ID or session ID (an unknown tool name is KindUnknownTool).
	KindNotFound = "not_found"

	// KindIntegrity represents a tamper-evidence failure: a stored
	// engram whose recomputed content hash does not match what was
	// persisted.
	KindIntegrity = "integrity"

	// KindNotFinalized represents an operation that requires a
	// finalized engram (or an engram session already finalized once)
	// being attempted out of order.
	KindNotFinalized = "not_finalized"

	// KindPolicyViolation represents a tool call or agent action the
	// policy engine denied.
	KindPolicyViolation = "policy_violation"

	// KindUnknownTool represents a tool invocation naming a tool not
	// present in the registry.
	KindUnknownTool = "unknown_tool"

	// KindValidation represents malformed input: an invalid Config, a
	// playbook result failing schema validation, or similar.
	KindValidation = "validation"

	// KindTransport represents a failure talking to an external
	// system: SIEM, knowledge graph, OPA, Redis, or etcd.
	KindTransport = "transport"
)

// Error is a structured error wrapping an underlying cause with the
// operation that failed and the Kind that categorizes it, mirroring the
// teacher's SDKError.
type Error struct {
	// Op is the operation that failed, e.g. "EngramStore.Save" or
	// "Orchestrator.Start".
	Op string

	// Kind is one of the Kind* constants above.
	Kind string

	// Err is the underlying error.
	Err error

	// Context carries additional debugging fields: engram IDs, tool
	// names, tenant IDs, and the like.
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sentinel: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("sentinel: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("sentinel: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind (and, if the target specifies one, by
// Op), then falls through to the wrapped error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}
	return errors.Is(e.Err, target)
}

// WithContext returns a copy of e with ctx merged into its Context map.
func (e *Error) WithContext(ctx map[string]any) *Error {
	cp := *e
	if cp.Context == nil {
		cp.Context = make(map[string]any, len(ctx))
	}
	for k, v := range ctx {
		cp.Context[k] = v
	}
	return &cp
}

func newError(op, kind string, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewNotFoundError builds a KindNotFound *Error.
func NewNotFoundError(op string, err error) *Error { return newError(op, KindNotFound, err) }

// NewIntegrityError builds a KindIntegrity *Error.
func NewIntegrityError(op string, err error) *Error { return newError(op, KindIntegrity, err) }

// NewNotFinalizedError builds a KindNotFinalized *Error.
func NewNotFinalizedError(op string, err error) *Error { return newError(op, KindNotFinalized, err) }

// NewPolicyViolationError builds a KindPolicyViolation *Error.
func NewPolicyViolationError(op string, err error) *Error {
	return newError(op, KindPolicyViolation, err)
}

// NewUnknownToolError builds a KindUnknownTool *Error.
func NewUnknownToolError(op string, err error) *Error { return newError(op, KindUnknownTool, err) }

// NewValidationError builds a KindValidation *Error.
func NewValidationError(op string, err error) *Error { return newError(op, KindValidation, err) }

// NewTransportError builds a KindTransport *Error.
func NewTransportError(op string, err error) *Error { return newError(op, KindTransport, err) }
