// Package toolreg implements the tool registry described in spec §4.5: a
// name-keyed dispatch table of metadata plus handler, enforcing an
// agent-type check and a policy check, in that order, before invoking the
// handler and recording the outcome into the active engram session.
package toolreg

import "context"

// Param describes one named parameter a tool accepts.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Tool is the metadata describing a registered capability: who may call it
// and what it accepts. The allowed AgentTypes set is authoritative and is
// checked before the policy engine (spec §4.5 step 2).
type Tool struct {
	Name        string
	Description string
	AgentTypes  []string
	Params      []Param
}

// Result is the outcome of a handler invocation.
type Result struct {
	Success bool
	Data    any
	Error   string
}

// Handler executes a tool's behavior given keyword-style params.
type Handler func(ctx context.Context, params map[string]any) (Result, error)

func (t Tool) acceptsAgentType(agentType string) bool {
	for _, at := range t.AgentTypes {
		if at == agentType {
			return true
		}
	}
	return false
}
