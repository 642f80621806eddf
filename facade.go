package sentinel

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/sentinel-platform/sentinel/engram"
	"github.com/sentinel-platform/sentinel/orchestrator"
	"github.com/sentinel-platform/sentinel/policy"
	"github.com/sentinel-platform/sentinel/toolreg"
)

// Sentinel wires together the four core subsystems — engram store, policy
// engine, tool registry, and orchestrator — behind one constructor, the
// way a caller embedding Sentinel as a library wants them, rather than
// constructing each subpackage by hand.
type Sentinel struct {
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	engramStore engram.Store
	policy      policy.Engine
	tools       *toolreg.Registry
	orch        *orchestrator.Orchestrator
}

// Option configures a Sentinel at construction.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	meter       metric.Meter
	engramRoot  string
	engramStore engram.Store
	policy      policy.Engine
	opaURL      string
	usePolicy   string // "local" (default) or "remote"
}

// WithLogger attaches a structured logger; the default engram store, the
// tool registry, and the orchestrator built by New receive it, while the
// policy engine takes no logger. The zero value discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithTracer attaches an OpenTelemetry tracer. Unset defaults to a no-op
// tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) { c.tracer = tracer }
}

// WithMeter attaches an OpenTelemetry meter. Unset defaults to a no-op
// meter.
func WithMeter(meter metric.Meter) Option {
	return func(c *config) { c.meter = meter }
}

// WithEngramRoot sets the directory root for the default file-backed
// engram store. Ignored if WithEngramStore is also given.
func WithEngramRoot(root string) Option {
	return func(c *config) { c.engramRoot = root }
}

// WithEngramStore overrides the default file-backed engram store with a
// caller-supplied implementation (e.g. a test double).
func WithEngramStore(store engram.Store) Option {
	return func(c *config) { c.engramStore = store }
}

// WithRemotePolicy selects the remote OPA-backed policy engine pointed at
// opaURL instead of the default local CEL evaluator.
func WithRemotePolicy(opaURL string) Option {
	return func(c *config) {
		c.usePolicy = "remote"
		c.opaURL = opaURL
	}
}

// WithPolicyEngine overrides the default policy engine entirely.
func WithPolicyEngine(engine policy.Engine) Option {
	return func(c *config) { c.policy = engine }
}

// New constructs a Sentinel with sensible defaults: a file-backed engram
// store rooted at "./engrams", a local CEL policy engine, an empty tool
// registry, and an in-process orchestrator — every ambient dependency
// (logger, tracer, meter) defaults to its no-op form, matching the
// teacher's own zero-configuration constructors.
func New(opts ...Option) (*Sentinel, error) {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.tracer == nil {
		c.tracer = tracenoop.NewTracerProvider().Tracer("sentinel")
	}
	if c.meter == nil {
		c.meter = noop.NewMeterProvider().Meter("sentinel")
	}

	engramStore := c.engramStore
	if engramStore == nil {
		root := c.engramRoot
		if root == "" {
			root = "./engrams"
		}
		engramStore = engram.NewFileEngramStore(root, engram.WithLogger(c.logger))
	}

	policyEngine := c.policy
	if policyEngine == nil {
		if c.usePolicy == "remote" {
			policyEngine = policy.NewHTTPEngine(c.opaURL)
		} else {
			eng, err := policy.NewLocalEngine()
			if err != nil {
				return nil, NewValidationError("sentinel.New", err)
			}
			policyEngine = eng
		}
	}

	tools := toolreg.New(toolreg.WithLogger(c.logger))

	orch := orchestrator.New(
		orchestrator.WithLogger(c.logger),
		orchestrator.WithTracer(c.tracer),
		orchestrator.WithMeter(c.meter),
	)

	return &Sentinel{
		logger:      c.logger,
		tracer:      c.tracer,
		meter:       c.meter,
		engramStore: engramStore,
		policy:      policyEngine,
		tools:       tools,
		orch:        orch,
	}, nil
}

// Logger returns the logger New handed to the subsystems it built (see
// WithLogger).
func (s *Sentinel) Logger() *slog.Logger { return s.logger }

// Tracer returns the tracer the orchestrator was constructed with.
func (s *Sentinel) Tracer() trace.Tracer { return s.tracer }

// Meter returns the meter the orchestrator was constructed with.
func (s *Sentinel) Meter() metric.Meter { return s.meter }

// EngramStore returns the engram store backing this Sentinel.
func (s *Sentinel) EngramStore() engram.Store { return s.engramStore }

// Policy returns the policy engine backing this Sentinel.
func (s *Sentinel) Policy() policy.Engine { return s.policy }

// Tools returns the tool registry backing this Sentinel. Callers register
// their own tool implementations against it before starting agents.
func (s *Sentinel) Tools() *toolreg.Registry { return s.tools }

// Orchestrator returns the session orchestrator backing this Sentinel.
func (s *Sentinel) Orchestrator() *orchestrator.Orchestrator { return s.orch }
