// Package external defines the narrow interfaces the core consumes from
// systems explicitly out of scope for this module (spec §1, §6): LLM
// providers, the SIEM, the graph database, and anything else the playbooks
// or agent runtime call out to. Concrete adapters for real backends are
// someone else's problem; this package is the seam.
package external

import "context"

// Message is one turn in a conversation passed to an LLMProvider.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// TokenUsage reports completion token accounting.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// CompletionResponse is the result of a free-form completion.
type CompletionResponse struct {
	Content    string
	Model      string
	Usage      TokenUsage
	StopReason string
}

// LLMProvider produces free-form and schema-validated completions (spec
// §6). CompleteStructured must validate its output against schema and
// return an error the caller can recognize as LLMValidationError if it
// does not conform.
type LLMProvider interface {
	Complete(ctx context.Context, messages []Message, system string, maxTokens int) (CompletionResponse, error)
	CompleteStructured(ctx context.Context, messages []Message, schema any, system string, maxTokens int, out any) error
}
