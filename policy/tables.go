package policy

// These tables are the authoritative agent-action allowlist and
// response-tier mapping from spec §4.4, taken verbatim from the original
// implementation's sentinel_policy/local.py so the local evaluator and the
// remote OPA service are guaranteed to agree on every input.

// blockedActions are denied unconditionally regardless of agent type.
var blockedActions = map[string]bool{
	"delete_data":       true,
	"modify_firewall":   true,
	"disable_security":  true,
	"exfiltrate":        true,
	"execute_payload":   true,
}

// allowedActions is the closed per-agent-type allowlist.
var allowedActions = map[string]map[string]bool{
	"hunt": {
		"query_logs":       true,
		"search_graph":     true,
		"correlate_events": true,
		"read_alerts":      true,
		"create_finding":   true,
	},
	"simulate": {
		"read_graph":      true,
		"compute_path":    true,
		"generate_report": true,
	},
	"discover": {
		"scan_network":    true,
		"query_cloud_api": true,
		"update_graph":    true,
		"read_graph":      true,
	},
	"govern": {
		"audit_agents":     true,
		"check_policy":     true,
		"review_engram":    true,
		"list_mcp_servers": true,
	},
}

// tierTable is the closed response-tier mapping. Actions absent from every
// bucket default to TierReview.
var tierTable = map[string]Tier{
	"read_alerts":      TierAuto,
	"query_logs":       TierAuto,
	"search_graph":     TierAuto,
	"read_graph":       TierAuto,
	"correlate_events": TierAuto,
	"list_mcp_servers": TierAuto,
	"check_policy":     TierAuto,
	"review_engram":    TierAuto,

	"create_finding":  TierFastTrack,
	"generate_report": TierFastTrack,
	"compute_path":    TierFastTrack,
	"audit_agents":    TierFastTrack,

	"update_graph":    TierReview,
	"scan_network":    TierReview,
	"query_cloud_api": TierReview,
}
