// Command sentineld runs the Sentinel orchestrator's gRPC front door
// (SPEC_FULL.md §4.9): it loads process configuration, builds the policy
// engine, registers one agent factory per known hunt playbook, and serves
// StartRun/CancelRun/GetStatus/ListSessions until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/config"
	"github.com/sentinel-platform/sentinel/external"
	"github.com/sentinel-platform/sentinel/hunt"
	"github.com/sentinel-platform/sentinel/orchestrator"
	"github.com/sentinel-platform/sentinel/policy"
	transportgrpc "github.com/sentinel-platform/sentinel/transport/grpc"
)

func main() {
	configPath := flag.String("config", "sentineld.yaml", "path to the sentineld configuration file")
	listenAddr := flag.String("listen", "", "override config.grpc.listen_addr")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.GRPC.ListenAddr = *listenAddr
	}

	policyEngine := buildPolicyEngine(cfg, logger)

	orch := orchestrator.New(orchestrator.WithLogger(logger))

	factories := map[string]transportgrpc.AgentFactory{
		"hunt.credential_abuse":  credentialAbuseFactory(policyEngine),
		"hunt.lateral_movement":  lateralMovementFactory(policyEngine),
		"hunt.data_exfiltration": dataExfiltrationFactory(policyEngine),
	}

	srv, err := transportgrpc.NewServer(transportgrpc.ServerConfig{ListenAddr: cfg.GRPC.ListenAddr}, orch, factories)
	if err != nil {
		logger.Error("failed to construct server", "error", err)
		os.Exit(1)
	}

	logger.Info("sentineld listening", "addr", srv.Addr())
	if err := srv.Serve(context.Background()); err != nil && err != context.Canceled {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func buildPolicyEngine(cfg *config.Config, logger *slog.Logger) policy.Engine {
	if cfg.Policy.Mode == "remote" {
		return policy.NewHTTPEngine(cfg.Policy.OPAURL)
	}
	eng, err := policy.NewLocalEngine()
	if err != nil {
		logger.Error("failed to construct local policy engine", "error", err)
		os.Exit(1)
	}
	return eng
}

// The SIEM connector itself is out of scope (spec §1's non-goals): a nil
// external.SiemProtocol stands in here until a deployment wires a real
// connector ahead of NewServer.

func credentialAbuseFactory(policyEngine policy.Engine) transportgrpc.AgentFactory {
	return func(agentID, tenantID string) (*agentrt.Runtime, agentrt.Agent, error) {
		rt, err := agentrt.NewRuntime(agentrt.Config{AgentID: agentID, AgentType: string(hunt.PlaybookCredentialAbuse), TenantID: tenantID}, nil, nil, policyEngine)
		if err != nil {
			return nil, nil, err
		}
		var siem external.SiemProtocol
		agent := hunt.NewCredentialAbuseAgent(rt, siem, hunt.NewCredentialAbuseConfig())
		return rt, agent, nil
	}
}

func lateralMovementFactory(policyEngine policy.Engine) transportgrpc.AgentFactory {
	return func(agentID, tenantID string) (*agentrt.Runtime, agentrt.Agent, error) {
		rt, err := agentrt.NewRuntime(agentrt.Config{AgentID: agentID, AgentType: string(hunt.PlaybookLateralMovement), TenantID: tenantID}, nil, nil, policyEngine)
		if err != nil {
			return nil, nil, err
		}
		var siem external.SiemProtocol
		agent := hunt.NewLateralMovementAgent(rt, siem, hunt.NewLateralMovementConfig())
		return rt, agent, nil
	}
}

func dataExfiltrationFactory(policyEngine policy.Engine) transportgrpc.AgentFactory {
	return func(agentID, tenantID string) (*agentrt.Runtime, agentrt.Agent, error) {
		rt, err := agentrt.NewRuntime(agentrt.Config{AgentID: agentID, AgentType: string(hunt.PlaybookDataExfiltration), TenantID: tenantID}, nil, nil, policyEngine)
		if err != nil {
			return nil, nil, err
		}
		var siem external.SiemProtocol
		agent := hunt.NewDataExfiltrationAgent(rt, siem, hunt.NewDataExfiltrationConfig())
		return rt, agent, nil
	}
}
