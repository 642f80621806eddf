package hunt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/external"
)

// CredentialAbuseAgent hunts for brute-force, credential-stuffing, and
// service-account authentication abuse.
type CredentialAbuseAgent struct {
	*BaseHuntAgent
	Config CredentialAbuseConfig
}

// NewCredentialAbuseAgent constructs the playbook.
func NewCredentialAbuseAgent(rt *agentrt.Runtime, siem external.SiemProtocol, cfg CredentialAbuseConfig) *CredentialAbuseAgent {
	return &CredentialAbuseAgent{BaseHuntAgent: NewBaseHuntAgent(rt, siem, cfg.Config), Config: cfg}
}

func (a *CredentialAbuseAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	return a.BaseHuntAgent.Plan(ctx, intent, agentContext)
}

func (a *CredentialAbuseAgent) Execute(ctx context.Context, plan agentrt.Plan) (agentrt.Result, error) {
	return a.BaseHuntAgent.ExecutePlaybook(ctx, plan, a)
}

func timeFilter(start, end string) map[string]any {
	return map[string]any{
		"range": map[string]any{
			"@timestamp": map[string]any{"gte": start, "lte": end},
		},
	}
}

func (a *CredentialAbuseAgent) BuildQueries(ctx context.Context, plan agentrt.Plan) ([]QueryTuple, error) {
	start, end := a.TimeRange()
	tf := timeFilter(start.Format(rfc3339), end.Format(rfc3339))
	index := a.Config.IndexPattern

	queries := []QueryTuple{
		{
			Name: "failed_logins_by_ip",
			DSL: map[string]any{
				"bool": map[string]any{
					"must": []any{
						map[string]any{"match": map[string]any{"event.outcome": "failure"}},
						map[string]any{"match": map[string]any{"event.category": "authentication"}},
						tf,
					},
				},
			},
			Index: index,
		},
	}

	if a.Config.LockoutCorrelation {
		queries = append(queries, QueryTuple{
			Name: "account_lockouts",
			DSL: map[string]any{
				"bool": map[string]any{
					"must": []any{
						map[string]any{"terms": map[string]any{"event.code": []string{"4740", "4625"}}},
						tf,
					},
				},
			},
			Index: index,
		})
	}

	if a.Config.ServiceAccountMonitoring {
		queries = append(queries, QueryTuple{
			Name: "service_account_failures",
			DSL: map[string]any{
				"bool": map[string]any{
					"must": []any{
						map[string]any{"match": map[string]any{"event.outcome": "failure"}},
						map[string]any{"match": map[string]any{"event.category": "authentication"}},
						map[string]any{"wildcard": map[string]any{"user.name": "svc-*"}},
						tf,
					},
				},
			},
			Index: index,
		})
	}

	return queries, nil
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"

func (a *CredentialAbuseAgent) AnalyzeResults(ctx context.Context, results map[string]external.QueryResult) ([]HuntFinding, error) {
	var findings []HuntFinding

	if r, ok := results["failed_logins_by_ip"]; ok && r.TotalHits > 0 {
		ipCounts := map[string]int{}
		ipUsers := map[string]map[string]bool{}
		for _, ev := range r.Events {
			ip := ev.SourceIP
			if ip == "" {
				ip = "unknown"
			}
			ipCounts[ip]++
			user := ev.User
			if user == "" {
				user = "unknown"
			}
			if ipUsers[ip] == nil {
				ipUsers[ip] = map[string]bool{}
			}
			ipUsers[ip][user] = true
		}

		for ip, count := range ipCounts {
			if count >= a.Config.FailedLoginThreshold {
				uniqueUsers := sortedKeys(ipUsers[ip])
				severity := "medium"
				if count > a.Config.FailedLoginThreshold*3 {
					severity = "high"
				}
				findings = append(findings, HuntFinding{
					ID:          uuid.NewString(),
					Playbook:    PlaybookCredentialAbuse,
					Severity:    severity,
					Title:       fmt.Sprintf("Excessive failed logins from %s", ip),
					Description: fmt.Sprintf("Source IP %s had %d failed login attempts targeting %d unique user(s) in the last %d hours.", ip, count, len(uniqueUsers), a.Config.TimeWindowHours),
					Evidence: map[string]any{
						"source_ips":   []string{ip},
						"failed_count": count,
						"target_users": uniqueUsers,
						"event_ids":    []string{"4625"},
					},
					Recommendations: []string{
						fmt.Sprintf("Block IP %s at the perimeter firewall", ip),
						"Enable account lockout policies if not set",
						"Review affected accounts for compromise",
					},
					AffectedUsers:     uniqueUsers,
					MitreTechniqueIDs: []string{"T1110.001"},
					MitreTactic:       "Credential Access",
				})
			}
		}

		for ip, users := range ipUsers {
			if len(users) >= a.Config.CredentialStuffingUniqueUsers {
				sorted := sortedKeys(users)
				findings = append(findings, HuntFinding{
					ID:          uuid.NewString(),
					Playbook:    PlaybookCredentialAbuse,
					Severity:    "high",
					Title:       fmt.Sprintf("Potential credential stuffing from %s", ip),
					Description: fmt.Sprintf("Source IP %s attempted logins against %d unique accounts, indicating possible credential stuffing attack.", ip, len(sorted)),
					Evidence: map[string]any{
						"source_ips":       []string{ip},
						"target_users":     sorted,
						"unique_user_count": len(sorted),
					},
					Recommendations: []string{
						fmt.Sprintf("Block IP %s immediately", ip),
						"Force password reset for targeted accounts",
						"Enable MFA for all affected accounts",
						"Check credentials against breach databases",
					},
					AffectedUsers:     sorted,
					MitreTechniqueIDs: []string{"T1110.004"},
					MitreTactic:       "Credential Access",
				})
			}
		}
	}

	if r, ok := results["service_account_failures"]; ok && r.TotalHits > 0 {
		accounts := map[string]bool{}
		for _, ev := range r.Events {
			if ev.User != "" {
				accounts[ev.User] = true
			}
		}
		if len(accounts) > 0 {
			sorted := sortedKeys(accounts)
			findings = append(findings, HuntFinding{
				ID:          uuid.NewString(),
				Playbook:    PlaybookCredentialAbuse,
				Severity:    "critical",
				Title:       "Service account authentication failures",
				Description: fmt.Sprintf("Service accounts %s experienced authentication failures. Service accounts should never fail in normal operations.", joinComma(sorted)),
				Evidence: map[string]any{
					"target_users":   sorted,
					"total_failures": r.TotalHits,
				},
				Recommendations: []string{
					"Immediately rotate affected service account credentials",
					"Audit recent activity of these service accounts",
					"Review service account permissions for least-privilege",
				},
				AffectedUsers:     sorted,
				MitreTechniqueIDs: []string{"T1110"},
				MitreTactic:       "Credential Access",
			})
		}
	}

	if r, ok := results["failed_logins_by_ip"]; ok && r.TotalHits > 0 {
		llmFindings := a.llmAnalyze(ctx, results)
		findings = append(findings, llmFindings...)
	}

	return findings, nil
}

// llmAnalyze asks the LLM for subtler patterns (time-based, low-and-slow
// password spraying, unusual user agents) the threshold rules above miss.
// Swallows any LLM or parse error, matching the original's best-effort
// supplementary analysis.
func (a *CredentialAbuseAgent) llmAnalyze(ctx context.Context, results map[string]external.QueryResult) []HuntFinding {
	if a.LLM == nil {
		return nil
	}
	type sampleEvent struct {
		Timestamp string `json:"timestamp"`
		SourceIP  string `json:"source_ip"`
		User      string `json:"user"`
		Hostname  string `json:"hostname"`
	}
	summary := map[string]any{}
	for name, r := range results {
		samples := make([]sampleEvent, 0, 20)
		for i, ev := range r.Events {
			if i >= 20 {
				break
			}
			samples = append(samples, sampleEvent{Timestamp: ev.Timestamp, SourceIP: ev.SourceIP, User: ev.User, Hostname: ev.Hostname})
		}
		summary[name] = map[string]any{"total_hits": r.TotalHits, "sample_events": samples}
	}
	data, _ := json.Marshal(summary)
	prompt := fmt.Sprintf(
		"Analyze these SIEM query results for credential abuse patterns.\n"+
			"Look for: time-based patterns, password spraying (low-and-slow), unusual user agents.\n\n"+
			"Data: %s\n\n"+
			"Return a JSON object with 'findings' array. Each finding: severity, title, description, "+
			"mitre_technique_ids, affected_users (arrays of strings).", string(data))

	resp, err := a.LLM.Complete(ctx, []external.Message{{Role: "user", Content: prompt}}, "You are a SOC analyst specializing in credential abuse.", 1024)
	if err != nil {
		return nil
	}

	var parsed struct {
		Findings []struct {
			Severity          string   `json:"severity"`
			Title             string   `json:"title"`
			Description       string   `json:"description"`
			MitreTechniqueIDs []string `json:"mitre_technique_ids"`
			AffectedUsers     []string `json:"affected_users"`
		} `json:"findings"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil
	}
	out := make([]HuntFinding, 0, len(parsed.Findings))
	for _, f := range parsed.Findings {
		severity := f.Severity
		if severity == "" {
			severity = "medium"
		}
		title := f.Title
		if title == "" {
			title = "LLM-identified pattern"
		}
		out = append(out, HuntFinding{
			ID:                uuid.NewString(),
			Playbook:          PlaybookCredentialAbuse,
			Severity:          severity,
			Title:             title,
			Description:       f.Description,
			MitreTechniqueIDs: f.MitreTechniqueIDs,
			AffectedUsers:     f.AffectedUsers,
			MitreTactic:       "Credential Access",
		})
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
