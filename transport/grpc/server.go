package grpc

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/sentinel-platform/sentinel/orchestrator"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// ListenAddr is the TCP address to listen on, e.g. ":7443".
	ListenAddr string

	// GracefulTimeout bounds how long Serve waits for in-flight RPCs to
	// finish during shutdown before forcing a stop.
	GracefulTimeout time.Duration
}

// DefaultServerConfig returns sensible defaults for local and
// containerized deployment alike.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{ListenAddr: ":7443", GracefulTimeout: 30 * time.Second}
}

// Server wraps a grpc.Server exposing the orchestrator front door, with
// graceful shutdown on SIGINT/SIGTERM or context cancellation — the same
// lifecycle shape as the teacher's serve.Server.
type Server struct {
	grpcServer   *grpc.Server
	listener     net.Listener
	config       ServerConfig
	healthServer *health.Server
}

// NewServer builds and binds a Server exposing orch over factories,
// forcing the JSON wire codec (codec.go) instead of the protobuf codec
// since these message structs are hand-authored, not protoc-generated.
func NewServer(cfg ServerConfig, orch *orchestrator.Orchestrator, factories map[string]AgentFactory) (*Server, error) {
	if cfg.ListenAddr == "" {
		cfg = DefaultServerConfig()
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 30 * time.Second
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("transport/grpc: failed to listen on %s: %w", cfg.ListenAddr, err)
	}

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(wireCodec{}))
	RegisterOrchestratorServiceServer(grpcServer, NewOrchestratorServer(orch, factories))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(orchestratorServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{grpcServer: grpcServer, listener: listener, config: cfg, healthServer: healthServer}, nil
}

// GRPCServer returns the underlying grpc.Server, for registering
// additional services before Serve is called.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until the context is cancelled or a SIGINT/SIGTERM is
// received, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.grpcServer.Serve(s.listener); err != nil {
			errCh <- fmt.Errorf("transport/grpc: serve error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		s.GracefulStop()
		return ctx.Err()
	case <-sigCh:
		s.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// GracefulStop stops accepting new connections and waits for in-flight
// RPCs to finish, up to GracefulTimeout, then forces a stop.
func (s *Server) GracefulStop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.GracefulTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}
