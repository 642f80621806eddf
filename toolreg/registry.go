package toolreg

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sentinel-platform/sentinel/engram"
	"github.com/sentinel-platform/sentinel/policy"
)

type registration struct {
	tool    Tool
	handler Handler
}

// Registry is a concurrency-safe, name-keyed dispatch table of tools.
// Readers (Get, ListForAgentType, Execute) are safe for concurrent use;
// Register is typically called during setup before concurrent use begins.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]registration
	logger *slog.Logger
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		tools:  make(map[string]registration),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Register stores tool metadata and its handler, keyed by tool.Name.
func (r *Registry) Register(tool Tool, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return &AlreadyRegisteredError{Name: tool.Name}
	}
	r.tools[tool.Name] = registration{tool: tool, handler: handler}
	return nil
}

// Get returns the tool metadata and handler registered under name.
func (r *Registry) Get(name string) (Tool, Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.tools[name]
	if !ok {
		return Tool{}, nil, &UnknownToolError{Name: name}
	}
	return reg.tool, reg.handler, nil
}

// ListForAgentType returns every tool whose AgentTypes includes at.
func (r *Registry) ListForAgentType(at string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Tool
	for _, reg := range r.tools {
		if reg.tool.acceptsAgentType(at) {
			out = append(out, reg.tool)
		}
	}
	return out
}

// sessionRecorder is the subset of *engram.Session that Execute needs,
// accepted as an interface so callers may pass nil (no session recording).
type sessionRecorder interface {
	AddAction(actionType, description string, opts engram.AddActionOpts) error
}

// ExecuteOptions carries the caller identity and the collaborators Execute
// uses to enforce policy and record provenance.
type ExecuteOptions struct {
	PolicyEngine policy.Engine
	AgentID      string
	TenantID     string
	Session      sessionRecorder
}

// Execute resolves, authorizes, and invokes a tool, in the exact order
// specified by spec §4.5:
//
//  1. resolve (tool, handler); UnknownToolError if absent.
//  2. agent-type check against tool.AgentTypes; PolicyViolation, no
//     session recording, if it fails.
//  3. policy-engine check (if present); on denial, record a
//     policy_violation action (if a session is present) then
//     PolicyViolation.
//  4. invoke the handler; on panic-free error, record a tool_<name>
//     failure action (if present) then rethrow.
//  5. on success, record a tool_<name> action with the result.
func (r *Registry) Execute(ctx context.Context, name, agentType string, params map[string]any, opts ExecuteOptions) (Result, error) {
	tool, handler, err := r.Get(name)
	if err != nil {
		return Result{}, err
	}

	if !tool.acceptsAgentType(agentType) {
		return Result{}, &PolicyViolation{
			Tool:    name,
			Reasons: []string{fmt.Sprintf("agent type %q may not call tool %q", agentType, name)},
		}
	}

	if opts.PolicyEngine != nil {
		target, _ := params["target"].(string)
		decision, evalErr := opts.PolicyEngine.EvaluateAgentAction(policy.Input{
			AgentID:   opts.AgentID,
			AgentType: agentType,
			Action:    name,
			Target:    target,
			TenantID:  opts.TenantID,
			Context:   params,
		})
		if evalErr != nil {
			return Result{}, fmt.Errorf("toolreg: policy evaluation failed: %w", evalErr)
		}
		if !decision.Allowed {
			if opts.Session != nil {
				_ = opts.Session.AddAction("policy_violation", fmt.Sprintf("tool %q denied by policy", name), engram.AddActionOpts{
					Success: false,
					Details: map[string]any{"reasons": decision.Reasons, "violations": decision.Violations},
				})
			}
			return Result{}, &PolicyViolation{Tool: name, Reasons: decision.Reasons}
		}
	}

	result, err := handler(ctx, params)
	if err != nil {
		if opts.Session != nil {
			_ = opts.Session.AddAction("tool_"+name, fmt.Sprintf("tool %q failed", name), engram.AddActionOpts{
				Success: false,
				Details: map[string]any{"error": err.Error()},
			})
		}
		return Result{}, err
	}

	if opts.Session != nil {
		_ = opts.Session.AddAction("tool_"+name, fmt.Sprintf("tool %q executed", name), engram.AddActionOpts{
			Success: result.Success,
			Details: map[string]any{"params": params, "success": result.Success},
		})
	}

	return result, nil
}
