package hunt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/engram"
	"github.com/sentinel-platform/sentinel/external"
)

// QueryTuple is one SIEM query a playbook wants executed: a name used to
// key its result, the query DSL, and the index pattern to run it against
// (empty means "use the playbook's configured index pattern").
type QueryTuple struct {
	Name  string
	DSL   map[string]any
	Index string
}

// Playbook is implemented by each concrete hunt playbook. BaseHuntAgent
// drives it the same way agentrt.Runtime drives an Agent: the playbook is
// passed back to BaseHuntAgent's methods as self.
type Playbook interface {
	BuildQueries(ctx context.Context, plan agentrt.Plan) ([]QueryTuple, error)
	AnalyzeResults(ctx context.Context, results map[string]external.QueryResult) ([]HuntFinding, error)
}

// BaseHuntAgent is the shared machinery every hunt playbook extends:
// time-window computation, SIEM query execution with per-query session
// recording, Sigma rule generation, and LLM-backed planning/summarizing.
type BaseHuntAgent struct {
	*agentrt.Runtime
	SIEM   external.SiemProtocol
	Common Config

	sigmaGen SigmaGenerator
}

// NewBaseHuntAgent constructs the shared hunt machinery.
func NewBaseHuntAgent(rt *agentrt.Runtime, siem external.SiemProtocol, common Config) *BaseHuntAgent {
	return &BaseHuntAgent{Runtime: rt, SIEM: siem, Common: common}
}

// TimeRange computes the hunt's query window ending now.
func (b *BaseHuntAgent) TimeRange() (time.Time, time.Time) {
	end := time.Now().UTC()
	start := end.Add(-time.Duration(b.Common.TimeWindowHours) * time.Hour)
	return start, end
}

// Plan asks the LLM for a structured hunt plan. With no LLM wired it
// returns a static plan built from the playbook's own configuration; an
// error from the LLM is returned as the plan error.
func (b *BaseHuntAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	plan := agentrt.Plan{
		Description: fmt.Sprintf("Run the %s hunt playbook over the last %d hours against %s",
			b.Common.Playbook, b.Common.TimeWindowHours, b.Common.IndexPattern),
		Rationale:  "intent: " + intent,
		Confidence: 0.7,
		Steps: []string{
			"build playbook-specific SIEM queries",
			"execute queries against the configured index pattern",
			"analyze results for the playbook's known patterns",
			"generate Sigma rules for confirmed findings",
		},
	}
	if b.LLM == nil {
		return plan, nil
	}
	system := "You are a threat hunting expert. Given a hunting intent and configuration, " +
		"produce a structured plan. Include which data sources to query, what patterns to " +
		"look for, and in what order."
	user := fmt.Sprintf("Hunt intent: %s\nPlaybook: %s\nTime window: %d hours\nIndex pattern: %s\n",
		intent, b.Common.Playbook, b.Common.TimeWindowHours, b.Common.IndexPattern)
	if err := b.LLM.CompleteStructured(ctx, []external.Message{{Role: "user", Content: user}}, huntPlanSchema, system, 512, &plan); err != nil {
		return agentrt.Plan{}, err
	}
	return plan, nil
}

var huntPlanSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"description":  map[string]any{"type": "string"},
		"rationale":    map[string]any{"type": "string"},
		"confidence":   map[string]any{"type": "number"},
		"steps":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"alternatives": map[string]any{"type": "array"},
	},
}

// ExecutePlaybook runs the execute phase: build queries, run each against
// the SIEM (recording a session action per query), hand results to the
// playbook's analysis, generate Sigma rules, and summarize.
func (b *BaseHuntAgent) ExecutePlaybook(ctx context.Context, plan agentrt.Plan, pb Playbook) (agentrt.Result, error) {
	queries, err := pb.BuildQueries(ctx, plan)
	if err != nil {
		return agentrt.Result{}, err
	}

	results := make(map[string]external.QueryResult, len(queries))
	totalEvents := 0
	for _, q := range queries {
		if b.IsCancelled() {
			break
		}
		index := q.Index
		if index == "" {
			index = b.Common.IndexPattern
		}
		result, err := b.runQuery(ctx, q, index)
		if err != nil {
			return agentrt.Result{}, err
		}
		results[q.Name] = result
		totalEvents += result.TotalHits

		if sess := b.Session(); sess != nil {
			_ = sess.AddAction(fmt.Sprintf("siem_query_%s", q.Name),
				fmt.Sprintf("Executed query '%s': %d hits", q.Name, result.TotalHits),
				engram.AddActionOpts{
					Success: true,
					Details: map[string]any{"query_dsl": q.DSL, "total_hits": result.TotalHits},
				})
		}
	}

	findings, err := pb.AnalyzeResults(ctx, results)
	if err != nil {
		return agentrt.Result{}, err
	}

	var sigmaRules []SigmaRule
	if b.Common.GenerateSigmaRules {
		for i := range findings {
			rule := b.sigmaGen.FromFinding(findings[i])
			if rule != nil {
				sigmaRules = append(sigmaRules, *rule)
				findings[i].SigmaRule = rule
			}
		}
	}

	summary := b.generateSummary(ctx, findings, totalEvents)
	if sess := b.Session(); sess != nil {
		_ = sess.AddAction("hunt_summary", summary, engram.AddActionOpts{Success: true})
	}

	agentFindings := make([]agentrt.Finding, 0, len(findings))
	for _, hf := range findings {
		evidence := map[string]any{}
		for k, v := range hf.Evidence {
			evidence[k] = v
		}
		evidence["playbook"] = string(hf.Playbook)
		evidence["affected_hosts"] = hf.AffectedHosts
		evidence["affected_users"] = hf.AffectedUsers
		evidence["mitre_technique_ids"] = hf.MitreTechniqueIDs
		evidence["mitre_tactic"] = hf.MitreTactic
		if hf.SigmaRule != nil {
			if y, err := hf.SigmaRule.ToYAML(); err == nil {
				evidence["sigma_yaml"] = y
			}
		}
		agentFindings = append(agentFindings, agentrt.Finding{
			ID:              hf.ID,
			Severity:        hf.Severity,
			Title:           hf.Title,
			Description:     hf.Description,
			Evidence:        evidence,
			Recommendations: hf.Recommendations,
		})
	}

	return agentrt.Result{
		Findings:        agentFindings,
		Recommendations: nil,
		ActionsTaken:    len(queries),
	}, nil
}

// runQuery executes a single SIEM query inside its own span, matching the
// ambient stack's requirement for a span per playbook query loop iteration.
func (b *BaseHuntAgent) runQuery(ctx context.Context, q QueryTuple, index string) (external.QueryResult, error) {
	ctx, span := b.Tracer.Start(ctx, "sentinel.hunt.query", trace.WithAttributes(
		attribute.String("query.name", q.Name),
		attribute.String("query.index", index),
		attribute.String("playbook", string(b.Common.Playbook)),
	))
	defer span.End()
	result, err := b.SIEM.ExecuteQuery(ctx, q.DSL, index, b.Common.MaxResultsPerQuery,
		[]external.SortField{{Field: "@timestamp", Order: "desc"}}, nil)
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}

func (b *BaseHuntAgent) generateSummary(ctx context.Context, findings []HuntFinding, totalEvents int) string {
	if len(findings) == 0 {
		return fmt.Sprintf("%s hunt analyzed %d events and found no findings.", b.Common.Playbook, totalEvents)
	}
	if b.LLM == nil {
		return fmt.Sprintf("%s hunt analyzed %d events and produced %d findings.", b.Common.Playbook, totalEvents, len(findings))
	}
	var lines []string
	for _, f := range findings {
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s", strings.ToUpper(f.Severity), f.Title, f.Description))
	}
	prompt := fmt.Sprintf("Summarize the results of a %s threat hunt.\nEvents analyzed: %d\nFindings (%d):\n%s\n\n"+
		"Provide a concise 2-3 sentence summary suitable for a SOC analyst.",
		b.Common.Playbook, totalEvents, len(findings), strings.Join(lines, "\n"))
	resp, err := b.LLM.Complete(ctx, []external.Message{{Role: "user", Content: prompt}}, "", 256)
	if err != nil {
		return fmt.Sprintf("%s hunt analyzed %d events and produced %d findings.", b.Common.Playbook, totalEvents, len(findings))
	}
	return resp.Content
}
