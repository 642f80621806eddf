package simulate

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

func TestInitialAccess_ExploitableVulnOnInternetFacingHostProducesFinding(t *testing.T) {
	host := external.Node{ID: "host-1", Label: "Host", Properties: map[string]any{"hostname": "web-01", "is_internet_facing": true}}
	vuln := external.Node{ID: "vuln-1", Label: "Vulnerability", Properties: map[string]any{"cvss_score": 9.1, "exploitable": true, "cve_id": "CVE-2024-1234"}}

	graph := &externaltest.GraphProtocol{
		NodesByLabel: map[string][]external.Node{
			"Host": {host},
		},
		NeighborsByNode: map[string][]external.Node{
			"host-1": {vuln},
		},
		AttackPaths: external.AttackPathsResult{
			AttackPaths: []external.AttackPath{{Nodes: []string{"host-1"}, RiskScore: 0.8}},
		},
	}

	cfg := NewInitialAccessConfig()
	cfg.Techniques = []string{"T1190"}
	rt := newTestRuntime(t, "simulate")
	agent := NewInitialAccessAgent(rt, graph, cfg)

	result, err := rt.Run(context.Background(), agent, "simulate initial access", nil)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "critical", result.Findings[0].Severity)
	assert.Contains(t, result.Findings[0].Title, "web-01")
	assert.Contains(t, result.Findings[0].Evidence["cve_ids"], "CVE-2024-1234")
}

func TestInitialAccess_NoExploitableVulnsProducesNoFinding(t *testing.T) {
	host := external.Node{ID: "host-1", Label: "Host", Properties: map[string]any{"hostname": "web-01", "is_internet_facing": true}}
	graph := &externaltest.GraphProtocol{
		NodesByLabel: map[string][]external.Node{"Host": {host}},
	}
	cfg := NewInitialAccessConfig()
	cfg.Techniques = []string{"T1190"}
	rt := newTestRuntime(t, "simulate")
	agent := NewInitialAccessAgent(rt, graph, cfg)

	result, err := rt.Run(context.Background(), agent, "simulate", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
}

func TestLateralMovement_PassTheHashRequiresTwoAdminHosts(t *testing.T) {
	user := external.Node{ID: "user-1", Label: "User", Properties: map[string]any{"username": "bob"}}
	hostA := external.Node{ID: "host-a", Label: "Host", Properties: map[string]any{"permissions": []string{"admin"}}}
	hostB := external.Node{ID: "host-b", Label: "Host", Properties: map[string]any{"permissions": []string{"admin-local"}}}

	graph := &externaltest.GraphProtocol{
		NodesByLabel: map[string][]external.Node{"User": {user}},
		NeighborsByNode: map[string][]external.Node{
			"user-1": {hostA, hostB},
		},
		Blast: external.BlastRadius{Nodes: []string{"host-a", "host-b"}, BlastScore: 0.6},
	}
	cfg := NewLateralMovementSimConfig()
	cfg.Techniques = []string{"T1550.002"}
	rt := newTestRuntime(t, "simulate")
	agent := NewLateralMovementSimAgent(rt, graph, cfg)

	result, err := rt.Run(context.Background(), agent, "simulate lateral movement", nil)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "critical", result.Findings[0].Severity)
	assert.Contains(t, result.Findings[0].Evidence["username"], "bob")
}

func TestLateralMovement_SingleAdminHostProducesNoFinding(t *testing.T) {
	user := external.Node{ID: "user-1", Label: "User", Properties: map[string]any{"username": "bob"}}
	hostA := external.Node{ID: "host-a", Label: "Host", Properties: map[string]any{"permissions": []string{"admin"}}}

	graph := &externaltest.GraphProtocol{
		NodesByLabel:    map[string][]external.Node{"User": {user}},
		NeighborsByNode: map[string][]external.Node{"user-1": {hostA}},
	}
	cfg := NewLateralMovementSimConfig()
	cfg.Techniques = []string{"T1550.002"}
	rt := newTestRuntime(t, "simulate")
	agent := NewLateralMovementSimAgent(rt, graph, cfg)

	result, err := rt.Run(context.Background(), agent, "simulate", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
}

func TestPrivilegeEscalation_EnabledDefaultAccountWithAccessIsHighSeverity(t *testing.T) {
	user := external.Node{ID: "user-1", Label: "User", Properties: map[string]any{"username": "admin", "enabled": true}}
	host := external.Node{ID: "host-1", Label: "Host", Properties: map[string]any{}}

	graph := &externaltest.GraphProtocol{
		NodesByLabel:    map[string][]external.Node{"User": {user}},
		NeighborsByNode: map[string][]external.Node{"user-1": {host}},
	}
	cfg := NewPrivilegeEscalationConfig()
	cfg.Techniques = []string{"T1078.001"}
	rt := newTestRuntime(t, "simulate")
	agent := NewPrivilegeEscalationAgent(rt, graph, cfg)

	result, err := rt.Run(context.Background(), agent, "simulate privilege escalation", nil)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "high", result.Findings[0].Severity)
	assert.True(t, result.Findings[0].Recommendations[0] != "")
}

func TestPrivilegeEscalation_DisabledDefaultAccountProducesNoFinding(t *testing.T) {
	user := external.Node{ID: "user-1", Label: "User", Properties: map[string]any{"username": "admin", "enabled": false}}
	graph := &externaltest.GraphProtocol{NodesByLabel: map[string][]external.Node{"User": {user}}}
	cfg := NewPrivilegeEscalationConfig()
	cfg.Techniques = []string{"T1078.001"}
	rt := newTestRuntime(t, "simulate")
	agent := NewPrivilegeEscalationAgent(rt, graph, cfg)

	result, err := rt.Run(context.Background(), agent, "simulate", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
}

func TestExfiltration_CrownJewelEgressPathProducesCriticalFinding(t *testing.T) {
	crownJewel := external.Node{ID: "host-cj", Label: "Host", Properties: map[string]any{"criticality": "critical"}}
	exit := external.Node{ID: "host-exit", Label: "Host", Properties: map[string]any{"is_internet_facing": true}}

	graph := &externaltest.GraphProtocol{
		NodesByLabel: map[string][]external.Node{"Host": {crownJewel, exit}},
		AttackPaths: external.AttackPathsResult{
			AttackPaths: []external.AttackPath{{Nodes: []string{"host-cj", "host-exit"}, RiskScore: 0.9}},
		},
	}
	cfg := NewExfiltrationConfig()
	cfg.Techniques = []string{"T1041"}
	rt := newTestRuntime(t, "simulate")
	agent := NewExfiltrationSimAgent(rt, graph, cfg)

	result, err := rt.Run(context.Background(), agent, "simulate exfiltration", nil)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "critical", result.Findings[0].Severity)
}

func TestExfiltration_NoInternetFacingHostsProducesNoFinding(t *testing.T) {
	crownJewel := external.Node{ID: "host-cj", Label: "Host", Properties: map[string]any{"criticality": "critical"}}
	graph := &externaltest.GraphProtocol{NodesByLabel: map[string][]external.Node{"Host": {crownJewel}}}
	cfg := NewExfiltrationConfig()
	cfg.Techniques = []string{"T1041"}
	rt := newTestRuntime(t, "simulate")
	agent := NewExfiltrationSimAgent(rt, graph, cfg)

	result, err := rt.Run(context.Background(), agent, "simulate", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
}

func TestComputeRiskScore_ClampsAtTen(t *testing.T) {
	score := computeRiskScore(1.0, "critical", 1.0)
	assert.Equal(t, 10.0, score)
}

func TestComputeRiskScore_UnknownSeverityDefaultsToMedium(t *testing.T) {
	knownMedium := computeRiskScore(0.0, "medium", 0.0)
	unknown := computeRiskScore(0.0, "made-up", 0.0)
	assert.Equal(t, knownMedium, unknown)
}

func TestGetTechniquesForTactic_ReturnsAllFiveByTactic(t *testing.T) {
	for _, tactic := range []TacticType{TacticInitialAccess, TacticLateralMovement, TacticPrivilegeEscalation, TacticExfiltration} {
		assert.Len(t, GetTechniquesForTactic(tactic), 5, "tactic %s", tactic)
	}
}

func TestGetTechnique_LooksUpByID(t *testing.T) {
	tech, ok := GetTechnique("T1190")
	require.True(t, ok)
	assert.Equal(t, "Exploit Public-Facing Application", tech.TechniqueName)

	_, ok = GetTechnique("T9999")
	assert.False(t, ok)
}
