package grpc

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial connects to a Sentinel orchestrator gRPC front door at addr and
// returns a ready-to-use OrchestratorService client. TLS is left to a
// future iteration (spec §6's external interfaces are read-only
// contracts; this front door is new territory per SPEC_FULL.md §4.9, and
// insecure transport is adequate for the CLI's default localhost use).
func Dial(addr string) (OrchestratorService, func() error, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wireCodec{})),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("transport/grpc: failed to dial %s: %w", addr, err)
	}
	return NewOrchestratorServiceClient(conn), conn.Close, nil
}
