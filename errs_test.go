package sentinel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByKind(t *testing.T) {
	cause := errors.New("boom")
	err := NewPolicyViolationError("ToolRegistry.Execute", cause)

	assert.True(t, errors.Is(err, &Error{Kind: KindPolicyViolation}))
	assert.False(t, errors.Is(err, &Error{Kind: KindNotFound}))
	assert.True(t, errors.Is(err, cause))
}

func TestError_WithContextMergesFields(t *testing.T) {
	err := NewUnknownToolError("ToolRegistry.Execute", errors.New("no such tool"))
	withCtx := err.WithContext(map[string]any{"tool": "port_scan"})

	require.Contains(t, withCtx.Error(), "port_scan")
	assert.NotContains(t, err.Error(), "port_scan", "original error must be unmodified")
}

func TestError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("underlying")
	err := NewTransportError("Orchestrator.Start", cause)
	assert.Same(t, cause, errors.Unwrap(err))
}
