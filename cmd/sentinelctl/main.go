// Command sentinelctl is a thin client for a running sentineld: it dials
// the orchestrator's gRPC front door (SPEC_FULL.md §4.9) and issues one of
// start/cancel/status/list against it, printing the JSON response.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	transportgrpc "github.com/sentinel-platform/sentinel/transport/grpc"
)

func main() {
	addr := flag.String("addr", "localhost:7443", "address of the sentineld gRPC front door")
	agentType := flag.String("agent-type", "", "agent type to start, e.g. hunt.credential_abuse")
	tenantID := flag.String("tenant", "", "tenant id")
	intent := flag.String("intent", "", "natural-language intent for a start command")
	sessionID := flag.String("session", "", "session id for cancel/status commands")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: sentinelctl [flags] start|cancel|status|list")
		os.Exit(2)
	}

	client, closeConn, err := transportgrpc.Dial(*addr)
	if err != nil {
		logger.Error("failed to dial sentineld", "addr", *addr, "error", err)
		os.Exit(1)
	}
	defer closeConn()

	ctx := context.Background()

	switch cmd := flag.Arg(0); cmd {
	case "start":
		if *agentType == "" || *tenantID == "" || *intent == "" {
			fmt.Fprintln(os.Stderr, "start requires -agent-type, -tenant, and -intent")
			os.Exit(2)
		}
		resp, err := client.StartRun(ctx, &transportgrpc.StartRunRequest{
			AgentType: *agentType,
			TenantID:  *tenantID,
			Intent:    *intent,
		})
		printResult(resp, err)
	case "cancel":
		if *sessionID == "" {
			fmt.Fprintln(os.Stderr, "cancel requires -session")
			os.Exit(2)
		}
		resp, err := client.CancelRun(ctx, &transportgrpc.CancelRunRequest{SessionID: *sessionID})
		printResult(resp, err)
	case "status":
		if *sessionID == "" {
			fmt.Fprintln(os.Stderr, "status requires -session")
			os.Exit(2)
		}
		resp, err := client.GetStatus(ctx, &transportgrpc.GetStatusRequest{SessionID: *sessionID})
		printResult(resp, err)
	case "list":
		resp, err := client.ListSessions(ctx, &transportgrpc.ListSessionsRequest{TenantID: *tenantID})
		printResult(resp, err)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
}

func printResult(v any, err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	data, marshalErr := json.MarshalIndent(v, "", "  ")
	if marshalErr != nil {
		fmt.Fprintln(os.Stderr, marshalErr)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
