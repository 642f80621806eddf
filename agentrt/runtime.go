package agentrt

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/sentinel-platform/sentinel/engram"
	"github.com/sentinel-platform/sentinel/external"
	"github.com/sentinel-platform/sentinel/policy"
	"github.com/sentinel-platform/sentinel/toolreg"
)

// Agent is implemented by every concrete playbook. Run drives Plan then
// Execute and wraps both in the shared engram/lifecycle bookkeeping; a
// playbook embeds *Runtime for ExecuteTool/Session/IsCancelled and passes
// itself back into Run as self, since a promoted method on the embedded
// Runtime cannot see the outer playbook type.
type Agent interface {
	Plan(ctx context.Context, intent string, agentContext any) (Plan, error)
	Execute(ctx context.Context, plan Plan) (Result, error)
}

// Runtime is the set of dependencies and bookkeeping shared by every agent
// run: engram session, tool registry, policy engine, LLM access, and
// cooperative cancellation. One Runtime should back one agent instance;
// Run may be called repeatedly, each call getting its own engram session.
type Runtime struct {
	Config       Config
	LLM          external.LLMProvider
	Tools        *toolreg.Registry
	PolicyEngine policy.Engine

	// Tracer and Meter default to no-op implementations, matching the
	// teacher's otel/trace/noop pattern for callers that never configure
	// a real provider. NewRuntime creates the run/tool counters and the
	// run-duration histogram from the Meter it starts with, so assigning
	// Meter afterwards does not redirect them; Tracer is read on each use.
	Tracer trace.Tracer
	Meter  metric.Meter

	cancelled atomic.Bool
	session   atomic.Pointer[engram.Session]

	runsCounter metric.Int64Counter
	toolCounter metric.Int64Counter
	runDuration metric.Float64Histogram
}

// NewRuntime validates config and constructs a Runtime. tools and
// policyEngine may be nil for agents that never call ExecuteTool.
func NewRuntime(config Config, llm external.LLMProvider, tools *toolreg.Registry, policyEngine policy.Engine) (*Runtime, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	r := &Runtime{
		Config:       config,
		LLM:          llm,
		Tools:        tools,
		PolicyEngine: policyEngine,
		Tracer:       tracenoop.NewTracerProvider().Tracer("sentinel.agentrt"),
		Meter:        noop.NewMeterProvider().Meter("sentinel.agentrt"),
	}
	r.runsCounter, _ = r.Meter.Int64Counter("sentinel.agent.runs")
	r.toolCounter, _ = r.Meter.Int64Counter("sentinel.tool.invocations")
	r.runDuration, _ = r.Meter.Float64Histogram("sentinel.agent.run_duration_seconds")
	return r, nil
}

// RequestCancel asks the current or next run to stop at its next
// cancellation checkpoint. Safe to call from another goroutine.
func (r *Runtime) RequestCancel() {
	r.cancelled.Store(true)
}

// IsCancelled reports whether cancellation has been requested.
func (r *Runtime) IsCancelled() bool {
	return r.cancelled.Load()
}

// Session returns the engram session for the run in progress, or nil
// before Run has started one.
func (r *Runtime) Session() *engram.Session {
	return r.session.Load()
}

// ExecuteTool invokes a registered tool through the shared registry,
// supplying this runtime's identity, policy engine, and session so the
// invocation is recorded and policy-checked exactly like any other tool
// call (spec §4.5).
func (r *Runtime) ExecuteTool(ctx context.Context, name string, params map[string]any) (toolreg.Result, error) {
	ctx, span := r.Tracer.Start(ctx, "sentinel.tool.execute", trace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("agent.type", r.Config.AgentType),
		attribute.String("tenant.id", r.Config.TenantID),
	))
	defer span.End()
	if r.toolCounter != nil {
		r.toolCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", name)))
	}
	result, err := r.Tools.Execute(ctx, name, r.Config.AgentType, params, toolreg.ExecuteOptions{
		PolicyEngine: r.PolicyEngine,
		AgentID:      r.Config.AgentID,
		TenantID:     r.Config.TenantID,
		Session:      r.Session(),
	})
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}

// Run executes the full plan→execute lifecycle (spec §4.3):
//
//  1. open an engram session for intent/context
//  2. call self.Plan, recording its decision and alternatives
//  3. call self.Execute, recording execution_complete on success
//  4. on any error from either phase, record execution_failed and build
//     a failing Result instead of propagating the error
//  5. finalize the session unconditionally, attaching its id/completion
//     time to the result
func (r *Runtime) Run(ctx context.Context, self Agent, intent string, agentContext any) (result Result, err error) {
	ctx, span := r.Tracer.Start(ctx, "sentinel.agent.run", trace.WithAttributes(
		attribute.String("agent.id", r.Config.AgentID),
		attribute.String("agent.type", r.Config.AgentType),
		attribute.String("tenant.id", r.Config.TenantID),
	))
	defer span.End()

	startedAt := time.Now().UTC()
	if r.runsCounter != nil {
		r.runsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("agent.type", r.Config.AgentType)))
	}
	defer func() {
		if r.runDuration != nil {
			r.runDuration.Record(ctx, time.Since(startedAt).Seconds(), metric.WithAttributes(
				attribute.String("agent.type", r.Config.AgentType),
				attribute.String("status", string(result.Status)),
			))
		}
	}()

	sess := engram.NewSession(r.Config.TenantID, r.Config.AgentID, intent)
	r.session.Store(sess)
	defer r.session.Store(nil)

	if agentContext != nil {
		_ = sess.SetContext(agentContext)
	}

	result = Result{
		AgentID:   r.Config.AgentID,
		AgentType: r.Config.AgentType,
		TenantID:  r.Config.TenantID,
		Status:    StatusRunning,
		StartedAt: startedAt,
	}

	plan, planErr := self.Plan(ctx, intent, agentContext)
	if planErr != nil {
		result = r.fail(result, sess, "execution_failed", planErr)
		return r.finalize(sess, result), nil
	}
	_ = sess.AddDecision(plan.Description, plan.Rationale, plan.Confidence)
	for _, alt := range plan.Alternatives {
		_ = sess.AddAlternative(alt.Option, alt.RejectionReason)
	}

	if r.IsCancelled() {
		result.Status = StatusCancelled
		return r.finalize(sess, result), nil
	}

	execResult, execErr := self.Execute(ctx, plan)
	if execErr != nil {
		result = r.fail(result, sess, "execution_failed", execErr)
		return r.finalize(sess, result), nil
	}

	execResult.AgentID = r.Config.AgentID
	execResult.AgentType = r.Config.AgentType
	execResult.TenantID = r.Config.TenantID
	if execResult.Status == "" {
		execResult.Status = StatusCompleted
	}
	execResult.StartedAt = startedAt
	_ = sess.AddAction("execution_complete", "agent execution completed", engram.AddActionOpts{
		Success: true,
		Details: map[string]any{"findings": len(execResult.Findings), "actions": execResult.ActionsTaken},
	})

	return r.finalize(sess, execResult), nil
}

func (r *Runtime) fail(result Result, sess *engram.Session, actionType string, cause error) Result {
	_ = sess.AddAction(actionType, cause.Error(), engram.AddActionOpts{Success: false})
	result.Status = StatusFailed
	result.Error = cause.Error()
	return result
}

func (r *Runtime) finalize(sess *engram.Session, result Result) Result {
	e, err := sess.Finalize()
	if err != nil {
		// Session bookkeeping is internal; a finalize error here means a
		// programming mistake (double finalize), not a run-time failure
		// worth surfacing to the caller as the agent's own error.
		return result
	}
	id := e.ID
	completedAt := *e.CompletedAt
	result.EngramID = &id
	result.CompletedAt = &completedAt
	return result
}

// NewFindingID returns a fresh identifier suitable for Finding.ID.
func NewFindingID() string {
	return uuid.New().String()
}
