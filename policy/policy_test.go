package policy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allAgentTypes = []string{"hunt", "simulate", "discover", "govern", "unknown_type"}

// TestLocalEngine_BlockedActionsAlwaysDeny covers invariant 4.
func TestLocalEngine_BlockedActionsAlwaysDeny(t *testing.T) {
	eng, err := NewLocalEngine()
	require.NoError(t, err)

	for _, action := range []string{"delete_data", "modify_firewall", "disable_security", "exfiltrate", "execute_payload"} {
		for _, agentType := range allAgentTypes {
			d, err := eng.EvaluateAgentAction(Input{AgentType: agentType, Action: action})
			require.NoError(t, err)
			assert.Falsef(t, d.Allowed, "action=%s agent_type=%s", action, agentType)
			assert.Equalf(t, TierDeny, d.Tier, "action=%s agent_type=%s", action, agentType)
		}
	}
}

func TestLocalEngine_UnknownAgentTypeDenies(t *testing.T) {
	eng, err := NewLocalEngine()
	require.NoError(t, err)

	d, err := eng.EvaluateAgentAction(Input{AgentType: "bogus", Action: "read_graph"})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, TierDeny, d.Tier)
	assert.Contains(t, d.Violations, "unknown_agent_type")
}

func TestLocalEngine_ActionNotInAllowlistDenies(t *testing.T) {
	eng, err := NewLocalEngine()
	require.NoError(t, err)

	d, err := eng.EvaluateAgentAction(Input{AgentType: "simulate", Action: "search_graph"})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, TierDeny, d.Tier)
	assert.Contains(t, d.Violations, "action_not_allowed")
}

func TestLocalEngine_AllowedActionsPerAgentType(t *testing.T) {
	eng, err := NewLocalEngine()
	require.NoError(t, err)

	for agentType, actions := range allowedActions {
		for action := range actions {
			d, err := eng.EvaluateAgentAction(Input{AgentType: agentType, Action: action})
			require.NoError(t, err)
			assert.Truef(t, d.Allowed, "agent_type=%s action=%s", agentType, action)
		}
	}
}

// TestLocalEngine_ResponseTierTable covers invariant 5.
func TestLocalEngine_ResponseTierTable(t *testing.T) {
	eng, err := NewLocalEngine()
	require.NoError(t, err)

	for action, tier := range tierTable {
		d, err := eng.EvaluateResponseTier(Input{Action: action})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, tier, d.Tier)
	}

	d, err := eng.EvaluateResponseTier(Input{Action: "totally_unrecognized_action"})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, TierReview, d.Tier)
}

// TestRemoteEngine_MatchesLocalEngine implements spec §9's stated test
// invariant: the local and remote implementations agree on every input.
// The fake remote server here deliberately reimplements the tables as raw
// Go rather than delegating to LocalEngine, so the comparison is real.
func TestRemoteEngine_MatchesLocalEngine(t *testing.T) {
	local, err := NewLocalEngine()
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(fakeOPAHandler))
	defer srv.Close()

	remote := NewHTTPEngine(srv.URL)

	corpus := []Input{
		{AgentType: "hunt", Action: "query_logs"},
		{AgentType: "hunt", Action: "delete_data"},
		{AgentType: "simulate", Action: "read_graph"},
		{AgentType: "simulate", Action: "search_graph"},
		{AgentType: "discover", Action: "scan_network"},
		{AgentType: "govern", Action: "audit_agents"},
		{AgentType: "bogus", Action: "read_graph"},
	}

	for _, input := range corpus {
		localDecision, err := local.EvaluateAgentAction(input)
		require.NoError(t, err)
		remoteDecision, err := remote.EvaluateAgentAction(input)
		require.NoError(t, err)
		assert.Equalf(t, localDecision.Allowed, remoteDecision.Allowed, "input=%+v", input)
		assert.Equalf(t, localDecision.Tier, remoteDecision.Tier, "input=%+v", input)
	}
}

func TestHTTPEngine_FailsClosedOnTransportError(t *testing.T) {
	eng := NewHTTPEngine("http://127.0.0.1:1") // nothing listens here
	d, err := eng.EvaluateAgentAction(Input{AgentType: "hunt", Action: "query_logs"})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, TierDeny, d.Tier)
}

func TestHTTPEngine_CoercesUnrecognizedTier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"allow": true, "tier": "not-a-real-tier"},
		})
	}))
	defer srv.Close()

	eng := NewHTTPEngine(srv.URL)
	d, err := eng.EvaluateAgentAction(Input{AgentType: "hunt", Action: "query_logs"})
	require.NoError(t, err)
	assert.Equal(t, TierDeny, d.Tier)
}

func fakeOPAHandler(w http.ResponseWriter, r *http.Request) {
	var req evalRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	result := map[string]any{"allow": false, "tier": string(TierDeny), "violations": []string{}}

	if blockedActions[req.Input.Action] {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"result": result})
		return
	}

	switch r.URL.Path {
	case "/v1/data/" + pathAgentBase:
		actions, ok := allowedActions[req.Input.AgentType]
		if !ok {
			result["violations"] = []string{"unknown_agent_type"}
		} else if !actions[req.Input.Action] {
			result["violations"] = []string{"action_not_allowed"}
		} else {
			result["allow"] = true
			result["tier"] = string(tierTable[req.Input.Action])
			if result["tier"] == "" {
				result["tier"] = string(TierReview)
			}
		}
	case "/v1/data/" + pathResponseApproval:
		result["allow"] = true
		tier, ok := tierTable[req.Input.Action]
		if !ok {
			tier = TierReview
		}
		result["tier"] = string(tier)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"result": result})
}
