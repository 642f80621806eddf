package simulate

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/engram"
	"github.com/sentinel-platform/sentinel/external"
)

// GraphContext is the high-level graph topology every simulation
// technique handler is given to work with, gathered once per run.
type GraphContext struct {
	TenantID        string
	Hosts           []external.Node
	Users           []external.Node
	Services        []external.Node
	Vulnerabilities []external.Node
}

// SimPlaybook is implemented by each concrete tactic playbook. BaseSimAgent
// drives it the same way agentrt.Runtime drives an Agent and BaseHuntAgent
// drives a hunt.Playbook: the playbook is passed back to BaseSimAgent's
// methods as self.
type SimPlaybook interface {
	SelectTechniques(ctx context.Context, plan agentrt.Plan) ([]MitreTechnique, error)
	SimulateTechnique(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error)
}

// BaseSimAgent is the shared machinery every simulation playbook extends:
// read-only graph context gathering, per-technique execution with session
// recording, and LLM-backed planning/summarizing. All simulations are
// read-only — they never write to the digital twin.
type BaseSimAgent struct {
	*agentrt.Runtime
	Graph  external.GraphProtocol
	Common Config
}

// NewBaseSimAgent constructs the shared simulation machinery.
func NewBaseSimAgent(rt *agentrt.Runtime, graph external.GraphProtocol, common Config) *BaseSimAgent {
	return &BaseSimAgent{Runtime: rt, Graph: graph, Common: common}
}

// Plan asks the LLM for a structured simulation plan. With no LLM wired
// it returns a static plan describing the tactic and technique filter; an
// error from the LLM is returned as the plan error.
func (b *BaseSimAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	techniquesFilter := "all"
	if len(b.Common.Techniques) > 0 {
		techniquesFilter = strings.Join(b.Common.Techniques, ", ")
	}
	plan := agentrt.Plan{
		Description: fmt.Sprintf("Simulate %s techniques (%s) against the knowledge graph (read-only)", b.Common.Tactic, techniquesFilter),
		Rationale:   "intent: " + intent,
		Confidence:  0.7,
		Steps: []string{
			"select MITRE ATT&CK techniques for the configured tactic",
			"gather host/user/service/vulnerability topology from the graph",
			"simulate each technique read-only against the topology",
			"score findings and propose remediation",
		},
	}
	if b.LLM == nil {
		return plan, nil
	}
	system := "You are a red team simulation planner. Produce a plan for testing MITRE ATT&CK " +
		"techniques against a network knowledge graph. This is read-only — no live attacks."
	user := fmt.Sprintf("Simulation intent: %s\nTactic: %s\nTechniques filter: %s\n", intent, b.Common.Tactic, techniquesFilter)
	if err := b.LLM.CompleteStructured(ctx, []external.Message{{Role: "user", Content: user}}, simPlanSchema, system, 512, &plan); err != nil {
		return agentrt.Plan{}, err
	}
	return plan, nil
}

var simPlanSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"description":  map[string]any{"type": "string"},
		"rationale":    map[string]any{"type": "string"},
		"confidence":   map[string]any{"type": "number"},
		"steps":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"alternatives": map[string]any{"type": "array"},
	},
}

// buildGraphContext gathers the topology every technique handler reads:
// up to 500 hosts, users, services, and vulnerabilities for the tenant.
func (b *BaseSimAgent) buildGraphContext(ctx context.Context) (GraphContext, error) {
	tenantID := b.Config.TenantID
	hosts, err := b.Graph.QueryNodes(ctx, "Host", tenantID, nil, 500)
	if err != nil {
		return GraphContext{}, err
	}
	users, err := b.Graph.QueryNodes(ctx, "User", tenantID, nil, 500)
	if err != nil {
		return GraphContext{}, err
	}
	services, err := b.Graph.QueryNodes(ctx, "Service", tenantID, nil, 500)
	if err != nil {
		return GraphContext{}, err
	}
	vulns, err := b.Graph.QueryNodes(ctx, "Vulnerability", tenantID, nil, 500)
	if err != nil {
		return GraphContext{}, err
	}
	return GraphContext{TenantID: tenantID, Hosts: hosts, Users: users, Services: services, Vulnerabilities: vulns}, nil
}

// ExecuteSimulation runs the execute phase: select techniques, gather
// graph context, run each technique's handler (recording a
// simulate_<technique_id> session action per technique), and summarize.
func (b *BaseSimAgent) ExecuteSimulation(ctx context.Context, plan agentrt.Plan, pb SimPlaybook) (agentrt.Result, error) {
	techniques, err := pb.SelectTechniques(ctx, plan)
	if err != nil {
		return agentrt.Result{}, err
	}
	gctx, err := b.buildGraphContext(ctx)
	if err != nil {
		return agentrt.Result{}, err
	}

	var allFindings []SimulationFinding
	techniquesWithFindings := 0
	for _, technique := range techniques {
		if b.IsCancelled() {
			break
		}
		findings, err := b.runTechnique(ctx, pb, technique, gctx)
		if err != nil {
			return agentrt.Result{}, err
		}
		if len(findings) > 0 {
			techniquesWithFindings++
			allFindings = append(allFindings, findings...)
		}
		if sess := b.Session(); sess != nil {
			_ = sess.AddAction(fmt.Sprintf("simulate_%s", technique.TechniqueID),
				fmt.Sprintf("Simulated %s (%s): %d findings", technique.TechniqueID, technique.TechniqueName, len(findings)),
				engram.AddActionOpts{
					Success: true,
					Details: map[string]any{"technique_id": technique.TechniqueID, "findings_count": len(findings)},
				})
		}
	}

	summary := b.generateSummary(ctx, allFindings, techniques)
	if sess := b.Session(); sess != nil {
		_ = sess.AddAction("simulation_summary", summary, engram.AddActionOpts{Success: true})
	}

	highestRisk := 0.0
	for _, f := range allFindings {
		if f.RiskScore > highestRisk {
			highestRisk = f.RiskScore
		}
	}
	// Built for parity with the original (which constructs the equivalent
	// result object but never reads it back either) — the run-level detail
	// lives in the engram session actions recorded above, not here.
	_ = SimulationResult{
		Tactic:                 b.Common.Tactic,
		Config:                 b.Common,
		Findings:               allFindings,
		TechniquesTested:       len(techniques),
		TechniquesWithFindings: techniquesWithFindings,
		HighestRiskScore:       highestRisk,
		Summary:                summary,
	}

	return agentrt.Result{
		Findings:     b.toAgentFindings(allFindings),
		ActionsTaken: len(techniques),
	}, nil
}

// runTechnique executes a single technique simulation inside its own span,
// matching the ambient stack's requirement for a span per playbook
// technique loop iteration.
func (b *BaseSimAgent) runTechnique(ctx context.Context, pb SimPlaybook, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	ctx, span := b.Tracer.Start(ctx, "sentinel.simulate.technique", trace.WithAttributes(
		attribute.String("technique.id", technique.TechniqueID),
		attribute.String("tactic", string(b.Common.Tactic)),
	))
	defer span.End()
	findings, err := pb.SimulateTechnique(ctx, technique, gctx)
	if err != nil {
		span.RecordError(err)
	}
	return findings, err
}

func (b *BaseSimAgent) generateSummary(ctx context.Context, findings []SimulationFinding, techniques []MitreTechnique) string {
	if len(findings) == 0 {
		return fmt.Sprintf("No findings from %d %s technique(s) tested.", len(techniques), b.Common.Tactic)
	}
	if b.LLM == nil {
		return fmt.Sprintf("%s simulation tested %d technique(s) and surfaced %d findings.", b.Common.Tactic, len(techniques), len(findings))
	}
	var lines []string
	for _, f := range findings {
		lines = append(lines, fmt.Sprintf("- [%s] %s %s", strings.ToUpper(f.Severity), f.TechniqueID, f.Title))
	}
	prompt := fmt.Sprintf("Summarize adversarial simulation results for %s.\nTechniques tested: %d\nFindings (%d):\n%s\n\n"+
		"Provide a concise red-team assessment for a CISO briefing.",
		b.Common.Tactic, len(techniques), len(findings), strings.Join(lines, "\n"))
	resp, err := b.LLM.Complete(ctx, []external.Message{{Role: "user", Content: prompt}}, "You are a senior red team operator.", 512)
	if err != nil {
		return fmt.Sprintf("%s simulation tested %d technique(s) and surfaced %d findings.", b.Common.Tactic, len(techniques), len(findings))
	}
	return resp.Content
}

func (b *BaseSimAgent) toAgentFindings(findings []SimulationFinding) []agentrt.Finding {
	out := make([]agentrt.Finding, 0, len(findings))
	for _, sf := range findings {
		evidence := map[string]any{}
		for k, v := range sf.Evidence {
			evidence[k] = v
		}
		evidence["tactic"] = string(sf.Tactic)
		evidence["technique_id"] = sf.TechniqueID
		evidence["technique_name"] = sf.TechniqueName
		evidence["risk_score"] = sf.RiskScore
		evidence["attack_paths_count"] = len(sf.AttackPaths)
		evidence["affected_nodes"] = sf.AffectedNodes
		evidence["mitre_url"] = sf.MitreURL
		evidence["remediation"] = sf.Remediation

		recs := make([]string, 0, len(sf.Remediation))
		for _, r := range sf.Remediation {
			recs = append(recs, r.Title)
		}

		out = append(out, agentrt.Finding{
			ID:              sf.ID,
			Severity:        sf.Severity,
			Title:           sf.Title,
			Description:     sf.Description,
			Evidence:        evidence,
			Recommendations: recs,
		})
	}
	return out
}

// computeRiskScore blends attack-path risk, technique severity, and blast
// radius into a single 0-10 risk score.
func computeRiskScore(pathRisk float64, severity string, blastScore float64) float64 {
	severityMultipliers := map[string]float64{
		"critical": 1.0,
		"high":     0.8,
		"medium":   0.5,
		"low":      0.2,
	}
	sevMult, ok := severityMultipliers[severity]
	if !ok {
		sevMult = 0.5
	}
	score := (pathRisk * 5.0) + (sevMult * 2.5) + (blastScore * 2.5)
	if score > 10.0 {
		return 10.0
	}
	return score
}
