package hunt

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/external"
)

// LateralMovementAgent hunts for internal RDP fan-out, service-account
// hopping, and SMB/WinRM lateral activity.
type LateralMovementAgent struct {
	*BaseHuntAgent
	Config LateralMovementConfig
}

// NewLateralMovementAgent constructs the playbook.
func NewLateralMovementAgent(rt *agentrt.Runtime, siem external.SiemProtocol, cfg LateralMovementConfig) *LateralMovementAgent {
	return &LateralMovementAgent{BaseHuntAgent: NewBaseHuntAgent(rt, siem, cfg.Config), Config: cfg}
}

func (a *LateralMovementAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	return a.BaseHuntAgent.Plan(ctx, intent, agentContext)
}

func (a *LateralMovementAgent) Execute(ctx context.Context, plan agentrt.Plan) (agentrt.Result, error) {
	return a.BaseHuntAgent.ExecutePlaybook(ctx, plan, a)
}

// unusualInternalPortExclusions lists the common, expected internal
// service ports excluded from the "unusual ports" query.
var unusualInternalPortExclusions = []int{22, 53, 80, 88, 135, 389, 443, 445, 636, 3389, 5985, 5986, 8080, 8443}

func (a *LateralMovementAgent) BuildQueries(ctx context.Context, plan agentrt.Plan) ([]QueryTuple, error) {
	start, end := a.TimeRange()
	tf := timeFilter(start.Format(rfc3339), end.Format(rfc3339))
	index := a.Config.IndexPattern

	queries := []QueryTuple{
		{
			Name: "internal_rdp",
			DSL: map[string]any{
				"bool": map[string]any{
					"must": []any{
						map[string]any{"term": map[string]any{"destination.port": 3389}},
						tf,
					},
				},
			},
			Index: index,
		},
		{
			Name: "service_account_hops",
			DSL: map[string]any{
				"bool": map[string]any{
					"must": []any{
						map[string]any{"wildcard": map[string]any{"user.name": "svc-*"}},
						map[string]any{"match": map[string]any{"event.category": "authentication"}},
						map[string]any{"match": map[string]any{"event.outcome": "success"}},
						tf,
					},
				},
			},
			Index: index,
		},
		{
			Name: "smb_winrm",
			DSL: map[string]any{
				"bool": map[string]any{
					"must": []any{
						map[string]any{"terms": map[string]any{"destination.port": []int{445, 5985, 5986}}},
						tf,
					},
				},
			},
			Index: index,
		},
		// unusual_internal_ports is issued to the SIEM but intentionally
		// never consulted in AnalyzeResults; it mirrors a hunt query the
		// upstream playbook also builds without analyzing, kept here as-is
		// rather than "fixed" since it's harmless and removing it would be
		// a behavior change beyond this port.
		{
			Name: "unusual_internal_ports",
			DSL: map[string]any{
				"bool": map[string]any{
					"must":     []any{tf},
					"must_not": []any{map[string]any{"terms": map[string]any{"destination.port": unusualInternalPortExclusions}}},
				},
			},
			Index: index,
		},
	}
	return queries, nil
}

func (a *LateralMovementAgent) AnalyzeResults(ctx context.Context, results map[string]external.QueryResult) ([]HuntFinding, error) {
	var findings []HuntFinding

	if r, ok := results["service_account_hops"]; ok && r.TotalHits > 0 {
		svcHostMap := map[string]map[string]bool{}
		for _, ev := range r.Events {
			user := ev.User
			if user == "" {
				user = "unknown"
			}
			host := ev.Hostname
			if host == "" {
				host = ev.DestIP
			}
			if host == "" {
				host = "unknown"
			}
			if svcHostMap[user] == nil {
				svcHostMap[user] = map[string]bool{}
			}
			svcHostMap[user][host] = true
		}

		for svcAccount, hosts := range svcHostMap {
			if len(hosts) >= a.Config.ServiceAccountHopThreshold {
				sorted := sortedKeys(hosts)
				findings = append(findings, HuntFinding{
					ID:          uuid.NewString(),
					Playbook:    PlaybookLateralMovement,
					Severity:    "high",
					Title:       fmt.Sprintf("Service account %s active on %d hosts", svcAccount, len(sorted)),
					Description: fmt.Sprintf("Service account '%s' authenticated to %d distinct hosts: %s. This may indicate lateral movement using compromised credentials.", svcAccount, len(sorted), joinComma(sorted)),
					Evidence: map[string]any{
						"source_hosts":    sorted,
						"dest_hosts":      sorted,
						"service_account": svcAccount,
						"host_count":      len(sorted),
					},
					Recommendations: []string{
						fmt.Sprintf("Audit all activity by %s", svcAccount),
						"Restrict service account to expected hosts",
						"Rotate service account credentials",
					},
					AffectedHosts:     sorted,
					AffectedUsers:     []string{svcAccount},
					MitreTechniqueIDs: []string{"T1021"},
					MitreTactic:       "Lateral Movement",
				})
			}
		}
	}

	if r, ok := results["internal_rdp"]; ok && r.TotalHits > 0 {
		rdpSources := map[string]map[string]bool{}
		for _, ev := range r.Events {
			src := ev.SourceIP
			if src == "" {
				src = "unknown"
			}
			dst := ev.DestIP
			if dst == "" {
				dst = "unknown"
			}
			if rdpSources[src] == nil {
				rdpSources[src] = map[string]bool{}
			}
			rdpSources[src][dst] = true
		}

		for srcIP, destinations := range rdpSources {
			if isInternal(srcIP, a.Config.InternalSubnetPrefixes) && len(destinations) >= 2 {
				sorted := sortedKeys(destinations)
				affected := append([]string{srcIP}, sorted...)
				findings = append(findings, HuntFinding{
					ID:          uuid.NewString(),
					Playbook:    PlaybookLateralMovement,
					Severity:    "medium",
					Title:       fmt.Sprintf("Internal RDP fan-out from %s", srcIP),
					Description: fmt.Sprintf("Host %s made RDP connections to %d internal hosts: %s.", srcIP, len(sorted), joinComma(sorted)),
					Evidence: map[string]any{
						"source_hosts": []string{srcIP},
						"dest_hosts":   sorted,
						"dest_ports":   []int{3389},
					},
					Recommendations: []string{
						fmt.Sprintf("Investigate host %s for compromise", srcIP),
						"Review RDP access policies",
						"Enable NLA for all RDP endpoints",
					},
					AffectedHosts:     affected,
					MitreTechniqueIDs: []string{"T1021.001"},
					MitreTactic:       "Lateral Movement",
				})
			}
		}
	}

	if r, ok := results["smb_winrm"]; ok && r.TotalHits > 0 {
		smbSources := map[string]map[string]bool{}
		for _, ev := range r.Events {
			src := ev.SourceIP
			if src == "" {
				src = "unknown"
			}
			dst := ev.DestIP
			if dst == "" {
				dst = "unknown"
			}
			if smbSources[src] == nil {
				smbSources[src] = map[string]bool{}
			}
			smbSources[src][dst] = true
		}

		for srcIP, destinations := range smbSources {
			if len(destinations) >= a.Config.ServiceAccountHopThreshold {
				sorted := sortedKeys(destinations)
				affected := append([]string{srcIP}, sorted...)
				findings = append(findings, HuntFinding{
					ID:          uuid.NewString(),
					Playbook:    PlaybookLateralMovement,
					Severity:    "medium",
					Title:       fmt.Sprintf("SMB/WinRM fan-out from %s", srcIP),
					Description: fmt.Sprintf("Host %s made SMB/WinRM connections to %d hosts: %s.", srcIP, len(sorted), joinComma(sorted)),
					Evidence: map[string]any{
						"source_hosts": []string{srcIP},
						"dest_hosts":   sorted,
						"dest_ports":   []int{445, 5985},
					},
					Recommendations: []string{
						fmt.Sprintf("Investigate host %s for compromise", srcIP),
						"Review SMB/WinRM access controls",
					},
					AffectedHosts:     affected,
					MitreTechniqueIDs: []string{"T1021.002"},
					MitreTactic:       "Lateral Movement",
				})
			}
		}
	}

	return findings, nil
}

func isInternal(ip string, prefixes []string) bool {
	for _, p := range prefixes {
		if len(ip) >= len(p) && ip[:len(p)] == p {
			return true
		}
	}
	return false
}
