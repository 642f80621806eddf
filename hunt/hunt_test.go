package hunt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/external"
	"github.com/sentinel-platform/sentinel/external/externaltest"
)

func newTestRuntime(t *testing.T, agentType string) *agentrt.Runtime {
	t.Helper()
	rt, err := agentrt.NewRuntime(agentrt.Config{AgentID: "a1", AgentType: agentType, TenantID: "t1"}, nil, nil, nil)
	require.NoError(t, err)
	return rt
}

func TestCredentialAbuse_BruteForceAndStuffingDetected(t *testing.T) {
	var events []external.Event
	for i := 0; i < 12; i++ {
		events = append(events, external.Event{SourceIP: "1.2.3.4", User: "alice"})
	}
	for i := 0; i < 6; i++ {
		events = append(events, external.Event{SourceIP: "9.9.9.9", User: "user" + string(rune('a'+i))})
	}
	siem := &externaltest.SiemProtocol{
		Sequence: []external.QueryResult{
			{TotalHits: len(events), Events: events}, // failed_logins_by_ip (only query: both flags off below)
		},
	}

	cfg := NewCredentialAbuseConfig()
	cfg.LockoutCorrelation = false
	cfg.ServiceAccountMonitoring = false
	rt := newTestRuntime(t, "hunt")
	agent := NewCredentialAbuseAgent(rt, siem, cfg)

	result, err := rt.Run(context.Background(), agent, "hunt for credential abuse", nil)
	require.NoError(t, err)
	assert.Equal(t, agentrt.StatusCompleted, result.Status)
	assert.Len(t, result.Findings, 2)
}

func TestCredentialAbuse_ServiceAccountFailuresAreCritical(t *testing.T) {
	siem := &externaltest.SiemProtocol{
		Sequence: []external.QueryResult{
			{}, // failed_logins_by_ip: no hits
			{TotalHits: 3, Events: []external.Event{{User: "svc-backup"}, {User: "svc-backup"}}}, // service_account_failures
		},
	}
	cfg := NewCredentialAbuseConfig()
	cfg.LockoutCorrelation = false
	rt := newTestRuntime(t, "hunt")
	agent := NewCredentialAbuseAgent(rt, siem, cfg)

	result, err := rt.Run(context.Background(), agent, "hunt", nil)
	require.NoError(t, err)
	found := false
	for _, f := range result.Findings {
		if f.Severity == "critical" {
			found = true
		}
	}
	assert.True(t, found, "expected a critical finding for service account failures")
}

func TestLateralMovement_ServiceAccountHopThresholdTriggersFinding(t *testing.T) {
	siem := &externaltest.SiemProtocol{
		Sequence: []external.QueryResult{
			{}, // internal_rdp
			{TotalHits: 4, Events: []external.Event{
				{User: "svc-app", Hostname: "host-a"},
				{User: "svc-app", Hostname: "host-b"},
			}}, // service_account_hops
			{}, // smb_winrm
			{}, // unusual_internal_ports
		},
	}
	cfg := NewLateralMovementConfig()
	rt := newTestRuntime(t, "hunt")
	agent := NewLateralMovementAgent(rt, siem, cfg)

	result, err := rt.Run(context.Background(), agent, "hunt for lateral movement", nil)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Contains(t, result.Findings[0].Evidence["service_account"], "svc-app")
}

func TestLateralMovement_DeadQueryDoesNotProduceFindings(t *testing.T) {
	siem := &externaltest.SiemProtocol{
		Sequence: []external.QueryResult{
			{}, {}, {},
			{TotalHits: 999, Events: []external.Event{{SourceIP: "1.1.1.1"}}}, // unusual_internal_ports
		},
	}
	cfg := NewLateralMovementConfig()
	rt := newTestRuntime(t, "hunt")
	agent := NewLateralMovementAgent(rt, siem, cfg)

	result, err := rt.Run(context.Background(), agent, "hunt", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
	assert.Equal(t, 4, result.ActionsTaken, "all four queries including the dead one are still issued")
}

func TestDataExfiltration_LargeTransferDetected(t *testing.T) {
	siem := &externaltest.SiemProtocol{
		Sequence: []external.QueryResult{
			{TotalHits: 1, Events: []external.Event{
				{SourceIP: "10.0.0.5", DestIP: "203.0.113.9", Raw: map[string]any{"network": map[string]any{"bytes": 200_000_000}}},
			}}, // large_outbound
			{}, // dns_tunneling
			{}, // unusual_destinations
			{}, // after_hours_transfers
		},
	}
	cfg := NewDataExfiltrationConfig()
	rt := newTestRuntime(t, "hunt")
	agent := NewDataExfiltrationAgent(rt, siem, cfg)

	result, err := rt.Run(context.Background(), agent, "hunt for exfiltration", nil)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "high", result.Findings[0].Severity)
}

func TestDataExfiltration_DNSTunnelingDetectedByQueryLength(t *testing.T) {
	longName := ""
	for i := 0; i < 60; i++ {
		longName += "a"
	}
	siem := &externaltest.SiemProtocol{
		Sequence: []external.QueryResult{
			{}, // large_outbound
			{TotalHits: 1, Events: []external.Event{
				{SourceIP: "10.0.0.9", Raw: map[string]any{"dns": map[string]any{"question": map[string]any{"name": longName}}}},
			}}, // dns_tunneling
			{}, // unusual_destinations
			{}, // after_hours_transfers
		},
	}
	cfg := NewDataExfiltrationConfig()
	rt := newTestRuntime(t, "hunt")
	agent := NewDataExfiltrationAgent(rt, siem, cfg)

	result, err := rt.Run(context.Background(), agent, "hunt", nil)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Contains(t, result.Findings[0].Title, "DNS tunneling")
}

func TestSigmaGenerator_CredentialAbuseRuleYAML(t *testing.T) {
	gen := SigmaGenerator{}
	f := HuntFinding{
		Playbook:          PlaybookCredentialAbuse,
		Severity:          "high",
		Title:             "Excessive failed logins from 1.2.3.4",
		Description:       "desc",
		Evidence:          map[string]any{"source_ips": []string{"1.2.3.4"}},
		MitreTechniqueIDs: []string{"T1110.001"},
	}
	rule := gen.FromFinding(f)
	require.NotNil(t, rule)
	assert.Equal(t, "high", rule.Level)
	yamlStr, err := rule.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, yamlStr, "title: Excessive failed logins")
	assert.Contains(t, yamlStr, "attack.t1110.001")
}
