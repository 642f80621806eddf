// Package sentinel is the root facade over Sentinel's core subsystems: the
// tamper-evident engram store, the policy engine, the tool registry, and
// the agent orchestrator. Playbook packages (hunt, simulate) and the
// gRPC front door (transport/grpc, cmd/sentineld) are built on top of these
// same types; this package exists so a caller embedding Sentinel as a
// library can wire all four with one constructor call instead of importing
// each subpackage directly.
//
// # Getting started
//
//	s, err := sentinel.New(
//		sentinel.WithLogger(logger),
//		sentinel.WithEngramRoot("/var/lib/sentinel/engrams"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sessionID, err := s.Orchestrator().Start(ctx, rt, agent, intent, nil)
//
// # Error handling
//
// This package defines *sentinel.Error, a structured error carrying an Op,
// a Kind (one of the Kind* constants), and the underlying cause, built by
// the New*Error helpers; New itself returns one (KindValidation) when the
// local policy engine cannot be built. The subsystem packages return their
// own error types instead (toolreg.PolicyViolation and
// toolreg.UnknownToolError, engram.NotFoundError, engram.IntegrityError,
// engram.NotFinalizedError), matched with errors.As:
//
//	if err != nil {
//		var denied *toolreg.PolicyViolation
//		if errors.As(err, &denied) {
//			// handle denial
//		}
//	}
//
// # Observability
//
// New accepts an OpenTelemetry tracer and meter; when omitted, every
// constructed component defaults to the no-op implementations so a caller
// who doesn't care about tracing pays nothing for it.
package sentinel
