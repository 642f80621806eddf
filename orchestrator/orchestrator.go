// Package orchestrator implements spec §4.8's session lifecycle: start an
// agent run in the background, track it by session UUID, query its status,
// and request cooperative cancellation. The default implementation is a
// single in-process map guarded by a mutex; RedisSessionIndex and
// EtcdSessionRegistry add an optional distributed view for multi-replica
// deployments without changing this contract.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/sentinel-platform/sentinel/agentrt"
)

// AgentSession is the orchestrator's view of one agent run: identity,
// current status, and (once the run finishes) its result.
type AgentSession struct {
	SessionID   uuid.UUID
	AgentID     string
	AgentType   string
	TenantID    string
	Status      agentrt.Status
	CreatedAt   time.Time
	CompletedAt *time.Time
	Result      *agentrt.Result
	Error       string
}

// Runner is what the orchestrator needs from an agent's runtime to cancel
// it: the cooperative cancellation flag. *agentrt.Runtime satisfies this
// directly.
type Runner interface {
	RequestCancel()
	IsCancelled() bool
}

type trackedSession struct {
	mu   sync.Mutex
	info AgentSession
	rt   Runner
}

// Orchestrator tracks in-flight and completed agent sessions. The zero
// value is not usable; construct with New.
type Orchestrator struct {
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	startsCounter metric.Int64Counter

	redisIndex   *RedisSessionIndex
	etcdRegistry *EtcdSessionRegistry

	mu       sync.RWMutex
	sessions map[uuid.UUID]*trackedSession
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithLogger sets a structured logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTracer sets an OpenTelemetry tracer. Defaults to a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// WithMeter sets an OpenTelemetry meter. Defaults to a no-op meter.
func WithMeter(meter metric.Meter) Option {
	return func(o *Orchestrator) { o.meter = meter }
}

// WithRedisSessionIndex enables mirroring session status into Redis so
// list_sessions can aggregate across orchestrator replicas. Optional;
// the in-process map is authoritative regardless.
func WithRedisSessionIndex(idx *RedisSessionIndex) Option {
	return func(o *Orchestrator) { o.redisIndex = idx }
}

// WithEtcdRegistry enables registering {session_id -> this replica} in
// etcd so cancel/get_status issued against another replica can be routed.
// Optional.
func WithEtcdRegistry(reg *EtcdSessionRegistry) Option {
	return func(o *Orchestrator) { o.etcdRegistry = reg }
}

// New constructs an Orchestrator. Distributed-mode components are opt-in
// via WithRedisSessionIndex/WithEtcdRegistry; the default is purely
// in-process, satisfying spec §4.8 and §5 on its own.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   slog.New(slog.DiscardHandler),
		tracer:   tracenoop.NewTracerProvider().Tracer("sentinel.orchestrator"),
		meter:    noop.NewMeterProvider().Meter("sentinel.orchestrator"),
		sessions: make(map[uuid.UUID]*trackedSession),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.startsCounter, _ = o.meter.Int64Counter("sentinel.orchestrator.session_starts")
	return o
}

// Start assigns a fresh session UUID, records an AgentSession in status
// RUNNING, and spawns a background goroutine that calls rt.Run(ctx, self,
// intent, agentContext); on completion the session mirrors the result's
// status (or FAILED with an error result if Run itself errors, which it
// only does for programming-level Runtime misuse, not agent failures —
// agent failures already surface as a Result with Status=StatusFailed).
func (o *Orchestrator) Start(ctx context.Context, rt *agentrt.Runtime, self agentrt.Agent, intent string, agentContext any) (uuid.UUID, error) {
	sessionID := uuid.New()
	now := time.Now().UTC()

	ts := &trackedSession{
		info: AgentSession{
			SessionID: sessionID,
			AgentID:   rt.Config.AgentID,
			AgentType: rt.Config.AgentType,
			TenantID:  rt.Config.TenantID,
			Status:    agentrt.StatusRunning,
			CreatedAt: now,
		},
		rt: rt,
	}

	o.mu.Lock()
	o.sessions[sessionID] = ts
	o.mu.Unlock()

	if o.startsCounter != nil {
		o.startsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("agent.type", rt.Config.AgentType)))
	}
	o.logger.Info("session started", "session_id", sessionID, "agent_id", rt.Config.AgentID, "tenant_id", rt.Config.TenantID)

	if o.redisIndex != nil {
		if err := o.redisIndex.Put(ctx, ts.info); err != nil {
			o.logger.Warn("redis session index put failed", "session_id", sessionID, "error", err)
		}
	}
	if o.etcdRegistry != nil {
		if err := o.etcdRegistry.Register(ctx, sessionID); err != nil {
			o.logger.Warn("etcd session registration failed", "session_id", sessionID, "error", err)
		}
	}

	runCtx := context.WithoutCancel(ctx)
	go o.run(runCtx, sessionID, ts, rt, self, intent, agentContext)

	return sessionID, nil
}

func (o *Orchestrator) run(ctx context.Context, sessionID uuid.UUID, ts *trackedSession, rt *agentrt.Runtime, self agentrt.Agent, intent string, agentContext any) {
	ctx, span := o.tracer.Start(ctx, "sentinel.orchestrator.session")
	defer span.End()

	result, err := rt.Run(ctx, self, intent, agentContext)

	ts.mu.Lock()
	completedAt := time.Now().UTC()
	ts.info.CompletedAt = &completedAt
	if err != nil {
		ts.info.Status = agentrt.StatusFailed
		ts.info.Error = err.Error()
	} else {
		ts.info.Status = result.Status
		ts.info.Result = &result
		if result.Error != "" {
			ts.info.Error = result.Error
		}
	}
	snapshot := ts.info
	ts.mu.Unlock()

	o.logger.Info("session completed", "session_id", sessionID, "status", snapshot.Status)

	if o.redisIndex != nil {
		if putErr := o.redisIndex.Put(ctx, snapshot); putErr != nil {
			o.logger.Warn("redis session index put failed", "session_id", sessionID, "error", putErr)
		}
	}
	if o.etcdRegistry != nil {
		if deregErr := o.etcdRegistry.Deregister(ctx, sessionID); deregErr != nil {
			o.logger.Warn("etcd session deregistration failed", "session_id", sessionID, "error", deregErr)
		}
	}
}

// Cancel requests cooperative cancellation of a running session and marks
// it CANCELLED immediately. This does not guarantee the agent stops
// immediately — it must still poll IsCancelled between units of work.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	o.mu.RLock()
	ts, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return fmt.Errorf("orchestrator: unknown session %s", sessionID)
	}

	ts.rt.RequestCancel()

	ts.mu.Lock()
	ts.info.Status = agentrt.StatusCancelled
	snapshot := ts.info
	ts.mu.Unlock()

	o.logger.Info("session cancel requested", "session_id", sessionID)
	if o.redisIndex != nil {
		if err := o.redisIndex.Put(ctx, snapshot); err != nil {
			o.logger.Warn("redis session index put failed", "session_id", sessionID, "error", err)
		}
	}
	return nil
}

// GetStatus returns the current AgentSession for a session UUID.
func (o *Orchestrator) GetStatus(sessionID uuid.UUID) (AgentSession, error) {
	o.mu.RLock()
	ts, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return AgentSession{}, fmt.Errorf("orchestrator: unknown session %s", sessionID)
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.info, nil
}

// ListSessions returns every tracked session, optionally filtered by
// tenant ID (empty string means no filter), ordered by CreatedAt
// descending (spec §4.1's ordering convention applied consistently here).
func (o *Orchestrator) ListSessions(tenantID string) []AgentSession {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]AgentSession, 0, len(o.sessions))
	for _, ts := range o.sessions {
		ts.mu.Lock()
		info := ts.info
		ts.mu.Unlock()
		if tenantID != "" && info.TenantID != tenantID {
			continue
		}
		out = append(out, info)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.After(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
