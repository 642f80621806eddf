package simulate

import (
	"context"
	"fmt"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/external"
)

// remoteServicePorts are the ports T1133 treats as externally-reachable
// remote administration services.
var remoteServicePorts = map[int]bool{22: true, 3389: true, 5900: true, 5985: true}

// remoteServicePortNumbers extracts each node's port property, for the
// T1133 evidence's exposed_ports list.
func remoteServicePortNumbers(nodes []external.Node) []int {
	ports := make([]int, 0, len(nodes))
	for _, n := range nodes {
		ports = append(ports, propInt(n.Properties, "port"))
	}
	return ports
}

// InitialAccessAgent simulates initial-access techniques: exploitation of
// public-facing applications, external remote services, phishing,
// valid-account abuse, and trusted-relationship exploitation.
type InitialAccessAgent struct {
	*BaseSimAgent
	Config InitialAccessConfig
}

// NewInitialAccessAgent constructs the playbook.
func NewInitialAccessAgent(rt *agentrt.Runtime, graph external.GraphProtocol, cfg InitialAccessConfig) *InitialAccessAgent {
	return &InitialAccessAgent{BaseSimAgent: NewBaseSimAgent(rt, graph, cfg.Config), Config: cfg}
}

func (a *InitialAccessAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	return a.BaseSimAgent.Plan(ctx, intent, agentContext)
}

func (a *InitialAccessAgent) Execute(ctx context.Context, plan agentrt.Plan) (agentrt.Result, error) {
	return a.BaseSimAgent.ExecuteSimulation(ctx, plan, a)
}

func (a *InitialAccessAgent) SelectTechniques(ctx context.Context, plan agentrt.Plan) ([]MitreTechnique, error) {
	all := GetTechniquesForTactic(TacticInitialAccess)
	if len(a.Config.Techniques) == 0 {
		return all, nil
	}
	filter := map[string]bool{}
	for _, id := range a.Config.Techniques {
		filter[id] = true
	}
	var out []MitreTechnique
	for _, t := range all {
		if filter[t.TechniqueID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (a *InitialAccessAgent) SimulateTechnique(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	switch technique.TechniqueID {
	case "T1190":
		return a.simT1190(ctx, technique, gctx)
	case "T1133":
		return a.simT1133(ctx, technique, gctx)
	case "T1566":
		return a.simT1566(ctx, technique, gctx)
	case "T1078":
		return a.simT1078(ctx, technique, gctx)
	case "T1199":
		return a.simT1199(ctx, technique, gctx)
	default:
		return nil, nil
	}
}

func internetFacingHosts(gctx GraphContext) []external.Node {
	var out []external.Node
	for _, h := range gctx.Hosts {
		if propBool(h.Properties, "is_internet_facing") {
			out = append(out, h)
		}
	}
	return out
}

// simT1190 looks for exploitable vulnerabilities on internet-facing hosts.
func (a *InitialAccessAgent) simT1190(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var findings []SimulationFinding
	for _, host := range internetFacingHosts(gctx) {
		neighbors, err := a.Graph.QueryNeighbors(ctx, host.ID, gctx.TenantID, []string{"EXPOSES", "HAS_CVE"}, nil, 0)
		if err != nil {
			return nil, err
		}
		var exploitable []external.Node
		for _, n := range neighbors {
			if n.Label == "Vulnerability" && propBool(n.Properties, "exploitable") {
				exploitable = append(exploitable, n)
			}
		}
		if len(exploitable) == 0 {
			continue
		}

		pathsResult, err := a.Graph.FindAttackPaths(ctx, gctx.TenantID, []string{host.ID}, nil, a.Config.MaxDepth, a.Config.MaxPaths, false, false)
		if err != nil {
			return nil, err
		}
		pathRisk := maxRiskScore(pathsResult.AttackPaths)
		risk := computeRiskScore(pathRisk, "critical", 0.0)

		hostname := propString(host.Properties, "hostname")
		if hostname == "" {
			hostname = host.ID
		}
		findings = append(findings, SimulationFinding{
			ID:            NewFindingID(),
			Tactic:        TacticInitialAccess,
			TechniqueID:   technique.TechniqueID,
			TechniqueName: technique.TechniqueName,
			Severity:      "critical",
			Title:         fmt.Sprintf("Exploitable public-facing service on %s", hostname),
			Description:   fmt.Sprintf("Host %s is internet-facing and exposes %d exploitable vulnerability(ies).", hostname, len(exploitable)),
			AttackPaths:   pathsResult.AttackPaths,
			RiskScore:     risk,
			AffectedNodes: []string{host.ID},
			Evidence: map[string]any{
				"cve_ids":     cveIDsOf(exploitable),
				"host_id":     host.ID,
				"paths_count": len(pathsResult.AttackPaths),
			},
			Remediation: []RemediationStep{
				{Title: "Patch exploitable vulnerabilities", Description: "Apply vendor patches for all exploitable CVEs on this host", Priority: "critical", Effort: "medium"},
				{Title: "Deploy WAF", Description: "Place a web application firewall in front of the internet-facing service", Priority: "high", Effort: "medium"},
			},
			MitreURL: technique.MitreURL,
		})
	}
	return findings, nil
}

// simT1133 looks for internet-facing hosts exposing remote-administration
// services, and counts the neighbouring users without MFA as evidence.
func (a *InitialAccessAgent) simT1133(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var findings []SimulationFinding
	for _, host := range internetFacingHosts(gctx) {
		neighbors, err := a.Graph.QueryNeighbors(ctx, host.ID, gctx.TenantID, []string{"HAS_ACCESS", "EXPOSES"}, nil, 0)
		if err != nil {
			return nil, err
		}
		var remoteSvcs []external.Node
		var noMFAUsers []external.Node
		for _, n := range neighbors {
			if remoteServicePorts[propInt(n.Properties, "port")] {
				remoteSvcs = append(remoteSvcs, n)
			}
			if n.Label == "User" && !propBool(n.Properties, "mfa_enabled") {
				noMFAUsers = append(noMFAUsers, n)
			}
		}
		if len(remoteSvcs) == 0 {
			continue
		}
		risk := computeRiskScore(0.5, "high", 0.0)
		hostname := propString(host.Properties, "hostname")
		if hostname == "" {
			hostname = host.ID
		}
		findings = append(findings, SimulationFinding{
			ID:            NewFindingID(),
			Tactic:        TacticInitialAccess,
			TechniqueID:   technique.TechniqueID,
			TechniqueName: technique.TechniqueName,
			Severity:      "high",
			Title:         fmt.Sprintf("External remote service exposure on %s", hostname),
			Description:   fmt.Sprintf("Host %s exposes %d remote administration service(s); %d user(s) with access have no MFA.", hostname, len(remoteSvcs), len(noMFAUsers)),
			RiskScore:     risk,
			AffectedNodes: []string{host.ID},
			Evidence: map[string]any{
				"exposed_ports":     remoteServicePortNumbers(remoteSvcs),
				"no_mfa_user_count": len(noMFAUsers),
			},
			Remediation: []RemediationStep{
				{Title: "Enable MFA", Description: "Require multi-factor authentication for all remote service access", Priority: "critical", Effort: "low"},
				{Title: "Restrict source IPs", Description: "Limit remote service access to known administrative source ranges", Priority: "high", Effort: "low"},
			},
			MitreURL: technique.MitreURL,
		})
	}
	return findings, nil
}

// simT1566 looks for human users without MFA who have access to critical
// or high-criticality hosts.
func (a *InitialAccessAgent) simT1566(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var findings []SimulationFinding
	var noMFAUsers []external.Node
	for _, u := range gctx.Users {
		if !propBool(u.Properties, "is_service_account") && !propBool(u.Properties, "mfa_enabled") {
			noMFAUsers = append(noMFAUsers, u)
		}
	}

	var criticalAccessUsers []external.Node
	var userEvidence []map[string]any
	for _, u := range noMFAUsers {
		neighbors, err := a.Graph.QueryNeighbors(ctx, u.ID, gctx.TenantID, []string{"HAS_ACCESS"}, nil, 0)
		if err != nil {
			return nil, err
		}
		criticalHostCount := 0
		for _, n := range neighbors {
			crit := propString(n.Properties, "criticality")
			if crit == "critical" || crit == "high" {
				criticalHostCount++
			}
		}
		if criticalHostCount > 0 {
			criticalAccessUsers = append(criticalAccessUsers, u)
			username := propString(u.Properties, "username")
			if username == "" {
				username = u.ID
			}
			userEvidence = append(userEvidence, map[string]any{
				"user_id":             u.ID,
				"username":            username,
				"critical_host_count": criticalHostCount,
			})
		}
	}
	if len(criticalAccessUsers) == 0 {
		return nil, nil
	}

	severity := "medium"
	if len(criticalAccessUsers) > 3 {
		severity = "high"
	}
	risk := computeRiskScore(0.6, severity, 0.0)
	findings = append(findings, SimulationFinding{
		ID:            NewFindingID(),
		Tactic:        TacticInitialAccess,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      severity,
		Title:         fmt.Sprintf("%d user(s) without MFA have access to critical systems", len(criticalAccessUsers)),
		Description:   fmt.Sprintf("%d human user(s) without MFA have access to critical or high-criticality hosts, making them prime phishing targets.", len(criticalAccessUsers)),
		RiskScore:     risk,
		AffectedNodes: nodeIDs(criticalAccessUsers),
		Evidence: map[string]any{
			"users":        userEvidence,
			"total_no_mfa": len(noMFAUsers),
		},
		Remediation: []RemediationStep{
			{Title: "Enable MFA", Description: "Require multi-factor authentication for all users with critical system access", Priority: "critical", Effort: "low"},
			{Title: "Security awareness training", Description: "Run targeted phishing-resistance training for high-value users", Priority: "high", Effort: "medium"},
		},
		MitreURL: technique.MitreURL,
	})
	return findings, nil
}

// simT1078 looks for service accounts with broad access (5+ neighbors).
func (a *InitialAccessAgent) simT1078(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var findings []SimulationFinding
	for _, u := range gctx.Users {
		if !propBool(u.Properties, "is_service_account") {
			continue
		}
		neighbors, err := a.Graph.QueryNeighbors(ctx, u.ID, gctx.TenantID, []string{"HAS_ACCESS"}, nil, 0)
		if err != nil {
			return nil, err
		}
		if len(neighbors) < 5 {
			continue
		}
		risk := computeRiskScore(0.5, "high", 0.0)
		username := propString(u.Properties, "username")
		if username == "" {
			username = u.ID
		}
		findings = append(findings, SimulationFinding{
			ID:            NewFindingID(),
			Tactic:        TacticInitialAccess,
			TechniqueID:   technique.TechniqueID,
			TechniqueName: technique.TechniqueName,
			Severity:      "high",
			Title:         fmt.Sprintf("Service account %s has broad access", username),
			Description:   fmt.Sprintf("Service account %s has access to %d resource(s), an attractive target for valid-account abuse.", username, len(neighbors)),
			RiskScore:     risk,
			AffectedNodes: []string{u.ID},
			Evidence: map[string]any{
				"username":     username,
				"access_count": len(neighbors),
			},
			Remediation: []RemediationStep{
				{Title: "Apply least privilege", Description: "Scope the service account's access down to what it actually needs", Priority: "high", Effort: "medium"},
				{Title: "Rotate credentials", Description: "Rotate the service account's credentials on a regular schedule", Priority: "medium", Effort: "low"},
			},
			MitreURL: technique.MitreURL,
		})
	}
	return findings, nil
}

// simT1199 looks for trust relationships between network segments or
// organizations, finding paths across every trust edge at once.
func (a *InitialAccessAgent) simT1199(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	edges, err := a.Graph.QueryEdges(ctx, gctx.TenantID, "TRUSTS", "", "", 0)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}

	var affected []string
	var sources []string
	for _, e := range edges {
		affected = append(affected, e.SourceID, e.TargetID)
		sources = append(sources, e.SourceID)
	}
	affected = uniqueStrings(affected)

	pathsResult, err := a.Graph.FindAttackPaths(ctx, gctx.TenantID, uniqueStrings(sources), nil, a.Config.MaxDepth, a.Config.MaxPaths, false, false)
	if err != nil {
		return nil, err
	}
	pathRisk := maxRiskScore(pathsResult.AttackPaths)
	risk := computeRiskScore(pathRisk, "medium", 0.0)

	return []SimulationFinding{{
		ID:            NewFindingID(),
		Tactic:        TacticInitialAccess,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      "medium",
		Title:         fmt.Sprintf("%d trust relationship(s) found", len(edges)),
		Description:   fmt.Sprintf("Found %d trust relationship(s) spanning %d node(s), any of which could be exploited for initial access.", len(edges), len(affected)),
		AttackPaths:   pathsResult.AttackPaths,
		RiskScore:     risk,
		AffectedNodes: affected,
		Evidence: map[string]any{
			"trust_count": len(edges),
			"paths_count": len(pathsResult.AttackPaths),
		},
		Remediation: []RemediationStep{
			{Title: "Review trust boundaries", Description: "Audit every trust relationship for business justification", Priority: "medium", Effort: "medium"},
			{Title: "Implement zero-trust", Description: "Move toward per-resource authentication instead of blanket network trust", Priority: "high", Effort: "high"},
		},
		MitreURL: technique.MitreURL,
	}}, nil
}
