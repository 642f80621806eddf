package hunt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/external"
)

// DataExfiltrationAgent hunts for large outbound transfers, DNS
// tunneling indicators, unusual destinations, and after-hours transfers.
type DataExfiltrationAgent struct {
	*BaseHuntAgent
	Config DataExfiltrationConfig
}

// NewDataExfiltrationAgent constructs the playbook.
func NewDataExfiltrationAgent(rt *agentrt.Runtime, siem external.SiemProtocol, cfg DataExfiltrationConfig) *DataExfiltrationAgent {
	return &DataExfiltrationAgent{BaseHuntAgent: NewBaseHuntAgent(rt, siem, cfg.Config), Config: cfg}
}

func (a *DataExfiltrationAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	return a.BaseHuntAgent.Plan(ctx, intent, agentContext)
}

func (a *DataExfiltrationAgent) Execute(ctx context.Context, plan agentrt.Plan) (agentrt.Result, error) {
	return a.BaseHuntAgent.ExecutePlaybook(ctx, plan, a)
}

func (a *DataExfiltrationAgent) BuildQueries(ctx context.Context, plan agentrt.Plan) ([]QueryTuple, error) {
	start, end := a.TimeRange()
	tf := timeFilter(start.Format(rfc3339), end.Format(rfc3339))
	index := a.Config.IndexPattern

	queries := []QueryTuple{
		{
			Name: "large_outbound",
			DSL: map[string]any{
				"bool": map[string]any{
					"must": []any{
						map[string]any{"range": map[string]any{"network.bytes": map[string]any{"gte": a.Config.LargeTransferBytes}}},
						tf,
					},
					"must_not": []any{map[string]any{"terms": map[string]any{"destination.ip": []string{"10.0.0.0/8"}}}},
				},
			},
			Index: index,
		},
		{
			Name: "dns_tunneling",
			DSL: map[string]any{
				"bool": map[string]any{
					"must": []any{
						map[string]any{"match": map[string]any{"event.category": "dns"}},
						tf,
					},
				},
			},
			Index: index,
		},
	}

	if a.Config.UnusualDestinationCheck {
		// unusual_destinations is issued to the SIEM but never consulted
		// in AnalyzeResults, matching the upstream playbook exactly.
		queries = append(queries, QueryTuple{
			Name: "unusual_destinations",
			DSL: map[string]any{
				"bool": map[string]any{
					"must": []any{
						map[string]any{"match": map[string]any{"event.category": "network"}},
						tf,
					},
					"must_not": []any{map[string]any{"terms": map[string]any{"destination.ip": []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}}}},
				},
			},
			Index: index,
		})
	}

	queries = append(queries, QueryTuple{
		Name: "after_hours_transfers",
		DSL: map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"match": map[string]any{"event.category": "network"}},
					map[string]any{"range": map[string]any{"network.bytes": map[string]any{"gte": a.Config.LargeTransferBytes / 10}}},
					tf,
				},
			},
		},
		Index: index,
	})

	return queries, nil
}

func (a *DataExfiltrationAgent) AnalyzeResults(ctx context.Context, results map[string]external.QueryResult) ([]HuntFinding, error) {
	var findings []HuntFinding

	if r, ok := results["large_outbound"]; ok && r.TotalHits > 0 {
		destBytes := map[string]int64{}
		destSources := map[string]map[string]bool{}
		for _, ev := range r.Events {
			dst := ev.DestIP
			if dst == "" {
				dst = "unknown"
			}
			src := ev.SourceIP
			if src == "" {
				src = "unknown"
			}
			destBytes[dst] += rawBytes(ev.Raw)
			if destSources[dst] == nil {
				destSources[dst] = map[string]bool{}
			}
			destSources[dst][src] = true
		}

		for dstIP, totalBytes := range destBytes {
			if totalBytes >= a.Config.LargeTransferBytes {
				sources := sortedKeys(destSources[dstIP])
				mb := float64(totalBytes) / (1024 * 1024)
				findings = append(findings, HuntFinding{
					ID:          uuid.NewString(),
					Playbook:    PlaybookDataExfiltration,
					Severity:    "high",
					Title:       fmt.Sprintf("Large data transfer to %s (%.0f MB)", dstIP, mb),
					Description: fmt.Sprintf("Total of %.1f MB transferred to external destination %s from %d internal host(s).", mb, dstIP, len(sources)),
					Evidence: map[string]any{
						"dest_ips":     []string{dstIP},
						"total_bytes":  totalBytes,
						"source_hosts": sources,
					},
					Recommendations: []string{
						fmt.Sprintf("Investigate traffic to %s", dstIP),
						"Check if destination is an authorized service",
						"Review DLP policies for sensitive data",
					},
					AffectedHosts:     sources,
					MitreTechniqueIDs: []string{"T1567"},
					MitreTactic:       "Exfiltration",
				})
			}
		}
	}

	if r, ok := results["dns_tunneling"]; ok && r.TotalHits > 0 {
		var longQueries []string
		suspectHosts := map[string]bool{}
		for _, ev := range r.Events {
			dnsName := dnsQuestionName(ev.Raw)
			if len(dnsName) >= a.Config.DNSQueryLengthThreshold {
				longQueries = append(longQueries, dnsName)
				if ev.SourceIP != "" {
					suspectHosts[ev.SourceIP] = true
				}
			}
		}

		if len(longQueries) > 0 {
			sample := longQueries
			if len(sample) > 10 {
				sample = sample[:10]
			}
			sorted := sortedKeys(suspectHosts)
			findings = append(findings, HuntFinding{
				ID:          uuid.NewString(),
				Playbook:    PlaybookDataExfiltration,
				Severity:    "high",
				Title:       fmt.Sprintf("Possible DNS tunneling (%d suspicious queries)", len(longQueries)),
				Description: fmt.Sprintf("Detected %d DNS queries with names of %d or more characters, a common indicator of DNS tunneling.", len(longQueries), a.Config.DNSQueryLengthThreshold),
				Evidence: map[string]any{
					"dns_queries":  sample,
					"source_hosts": sorted,
					"query_count":  len(longQueries),
				},
				Recommendations: []string{
					"Block suspicious DNS domains at resolver",
					"Investigate source hosts for malware",
					"Deploy DNS monitoring and filtering",
				},
				AffectedHosts:     sorted,
				MitreTechniqueIDs: []string{"T1071.004"},
				MitreTactic:       "Exfiltration",
			})
		}
	}

	if r, ok := results["after_hours_transfers"]; ok && r.TotalHits > 0 {
		afterHoursHosts := map[string]bool{}
		afterHoursCount := 0
		for _, ev := range r.Events {
			if ev.Timestamp == "" {
				continue
			}
			ts, err := time.Parse(rfc3339, ev.Timestamp)
			if err != nil {
				continue
			}
			hour := ts.Hour()
			if hour >= a.Config.AfterHoursStart || hour < a.Config.AfterHoursEnd {
				afterHoursCount++
				if ev.SourceIP != "" {
					afterHoursHosts[ev.SourceIP] = true
				}
			}
		}

		if afterHoursCount > 0 {
			sorted := sortedKeys(afterHoursHosts)
			findings = append(findings, HuntFinding{
				ID:          uuid.NewString(),
				Playbook:    PlaybookDataExfiltration,
				Severity:    "medium",
				Title:       fmt.Sprintf("After-hours data transfers from %d host(s)", len(sorted)),
				Description: fmt.Sprintf("Detected %d network transfer events outside business hours (%d:00-%d:00).", afterHoursCount, a.Config.AfterHoursStart, a.Config.AfterHoursEnd),
				Evidence: map[string]any{
					"source_hosts": sorted,
					"event_count":  afterHoursCount,
				},
				Recommendations: []string{
					"Review after-hours transfer policies",
					"Investigate source hosts for scheduled tasks",
					"Consider network segmentation for after-hours",
				},
				AffectedHosts:     sorted,
				MitreTechniqueIDs: []string{"T1048"},
				MitreTactic:       "Exfiltration",
			})
		}
	}

	return findings, nil
}

func rawBytes(raw map[string]any) int64 {
	network, _ := raw["network"].(map[string]any)
	if network == nil {
		return 0
	}
	switch v := network["bytes"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func dnsQuestionName(raw map[string]any) string {
	dns, _ := raw["dns"].(map[string]any)
	if dns == nil {
		return ""
	}
	question, _ := dns["question"].(map[string]any)
	if question == nil {
		return ""
	}
	name, _ := question["name"].(string)
	return name
}
