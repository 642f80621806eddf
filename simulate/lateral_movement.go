package simulate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/external"
)

// LateralMovementSimAgent simulates lateral-movement techniques: RDP and
// SSH chaining, pass-the-hash, Kerberos ticket abuse, and domain trust
// exploitation.
type LateralMovementSimAgent struct {
	*BaseSimAgent
	Config LateralMovementSimConfig
}

// NewLateralMovementSimAgent constructs the playbook.
func NewLateralMovementSimAgent(rt *agentrt.Runtime, graph external.GraphProtocol, cfg LateralMovementSimConfig) *LateralMovementSimAgent {
	return &LateralMovementSimAgent{BaseSimAgent: NewBaseSimAgent(rt, graph, cfg.Config), Config: cfg}
}

func (a *LateralMovementSimAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	return a.BaseSimAgent.Plan(ctx, intent, agentContext)
}

func (a *LateralMovementSimAgent) Execute(ctx context.Context, plan agentrt.Plan) (agentrt.Result, error) {
	return a.BaseSimAgent.ExecuteSimulation(ctx, plan, a)
}

func (a *LateralMovementSimAgent) SelectTechniques(ctx context.Context, plan agentrt.Plan) ([]MitreTechnique, error) {
	all := GetTechniquesForTactic(TacticLateralMovement)
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

func (a *LateralMovementSimAgent) SimulateTechnique(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	switch technique.TechniqueID {
	case "T1021.001":
		return a.simRemoteServiceChain(ctx, technique, gctx, 3389, "rdp")
	case "T1021.004":
		return a.simRemoteServiceChain(ctx, technique, gctx, 22, "ssh")
	case "T1550.002":
		return a.simPassTheHash(ctx, technique, gctx)
	case "T1558":
		return a.simKerberos(ctx, technique, gctx)
	case "T1482":
		return a.simDomainTrust(ctx, technique, gctx)
	default:
		return nil, nil
	}
}

// simRemoteServiceChain is shared by T1021.001 (RDP) and T1021.004 (SSH):
// find services on the given port, then check whether any lateral
// movement chain the pathfinder returns actually uses that protocol.
func (a *LateralMovementSimAgent) simRemoteServiceChain(ctx context.Context, technique MitreTechnique, gctx GraphContext, port int, protocolSubstr string) ([]SimulationFinding, error) {
	var svcs []external.Node
	for _, s := range gctx.Services {
		if propInt(s.Properties, "port") == port {
			svcs = append(svcs, s)
		}
	}
	if len(svcs) == 0 {
		return nil, nil
	}

	pathsResult, err := a.Graph.FindAttackPaths(ctx, gctx.TenantID, nodeIDs(svcs), nil, a.Config.MaxDepth, a.Config.MaxPaths, true, false)
	if err != nil {
		return nil, err
	}

	var matchingChains []external.AttackPath
	for _, chain := range pathsResult.LateralChains {
		for _, t := range chain.Techniques {
			if strings.Contains(strings.ToLower(t), protocolSubstr) {
				matchingChains = append(matchingChains, chain)
				break
			}
		}
	}
	if len(matchingChains) == 0 {
		return nil, nil
	}

	maxRisk := maxRiskScore(matchingChains)
	risk := computeRiskScore(maxRisk, "high", 0.0)
	affected := uniqueStrings(nodeIDs(svcs))

	label := strings.ToUpper(protocolSubstr)
	title := fmt.Sprintf("%s lateral movement chain detected (%d chain(s))", label, len(matchingChains))
	remediation := []RemediationStep{
		{Title: fmt.Sprintf("Restrict %s to jump servers", label), Description: fmt.Sprintf("Route all %s access through dedicated jump/bastion hosts", label), Priority: "high", Effort: "medium"},
	}
	if protocolSubstr == "rdp" {
		remediation = append(remediation, RemediationStep{Title: "Enable Network Level Authentication", Description: "Require NLA on every RDP-enabled host", Priority: "medium", Effort: "low"})
	} else {
		remediation = append(remediation, RemediationStep{Title: "Switch to certificate-based SSH auth", Description: "Disable password authentication in favor of SSH certificates", Priority: "high", Effort: "medium"})
	}

	return []SimulationFinding{{
		ID:            NewFindingID(),
		Tactic:        TacticLateralMovement,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      "high",
		Title:         title,
		Description:   fmt.Sprintf("Found %d %s service(s) that participate in a lateral movement chain.", len(svcs), label),
		AttackPaths:   matchingChains,
		RiskScore:     risk,
		AffectedNodes: affected,
		Evidence: map[string]any{
			protocolSubstr + "_host_count": len(svcs),
			"chain_count":                  len(matchingChains),
		},
		Remediation: remediation,
		MitreURL:    technique.MitreURL,
	}}, nil
}

// simPassTheHash looks for users with administrative access to two or
// more hosts — pass-the-hash lets an adversary reuse one credential
// across all of them.
func (a *LateralMovementSimAgent) simPassTheHash(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var findings []SimulationFinding
	for _, u := range gctx.Users {
		neighbors, err := a.Graph.QueryNeighbors(ctx, u.ID, gctx.TenantID, []string{"HAS_ACCESS"}, nil, 0)
		if err != nil {
			return nil, err
		}
		var adminHosts []external.Node
		for _, n := range neighbors {
			perms := propStringSlice(n.Properties, "permissions")
			if containsFold(perms, "admin") {
				adminHosts = append(adminHosts, n)
			}
		}
		if len(adminHosts) < 2 {
			continue
		}

		blast, err := a.Graph.ComputeBlastRadius(ctx, gctx.TenantID, u.ID, 0, 0)
		if err != nil {
			return nil, err
		}
		risk := computeRiskScore(0.7, "critical", blast.BlastScore)
		username := propString(u.Properties, "username")
		if username == "" {
			username = u.ID
		}
		findings = append(findings, SimulationFinding{
			ID:            NewFindingID(),
			Tactic:        TacticLateralMovement,
			TechniqueID:   technique.TechniqueID,
			TechniqueName: technique.TechniqueName,
			Severity:      "critical",
			Title:         fmt.Sprintf("%s has administrative access to %d hosts", username, len(adminHosts)),
			Description:   fmt.Sprintf("User %s has administrative access to %d host(s); a single stolen credential enables pass-the-hash movement across all of them.", username, len(adminHosts)),
			BlastRadius:   &blast,
			RiskScore:     risk,
			AffectedNodes: append([]string{u.ID}, nodeIDs(adminHosts)...),
			Evidence: map[string]any{
				"username":         username,
				"admin_host_count": len(adminHosts),
				"blast_score":      blast.BlastScore,
			},
			Remediation: []RemediationStep{
				{Title: "Implement LAPS", Description: "Deploy unique, rotated local administrator passwords per host", Priority: "critical", Effort: "medium"},
				{Title: "Enable Credential Guard", Description: "Enable virtualization-based credential protection on affected hosts", Priority: "high", Effort: "medium"},
			},
			MitreURL: technique.MitreURL,
		})
	}
	return findings, nil
}

// simKerberos looks for users in privileged groups with access to a
// domain controller.
func (a *LateralMovementSimAgent) simKerberos(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var findings []SimulationFinding
	for _, u := range gctx.Users {
		neighbors, err := a.Graph.QueryNeighbors(ctx, u.ID, gctx.TenantID, []string{"MEMBER_OF", "HAS_ACCESS"}, nil, 0)
		if err != nil {
			return nil, err
		}
		var privilegedGroups, dcAccess []external.Node
		for _, n := range neighbors {
			name := strings.ToLower(propString(n.Properties, "name"))
			if n.Label == "Group" && (strings.Contains(name, "admin") || strings.Contains(name, "domain") || strings.Contains(name, "enterprise")) {
				privilegedGroups = append(privilegedGroups, n)
			}
			hostname := strings.ToLower(propString(n.Properties, "hostname"))
			if n.Label == "Host" && strings.Contains(hostname, "dc") {
				dcAccess = append(dcAccess, n)
			}
		}
		if len(privilegedGroups) == 0 || len(dcAccess) == 0 {
			continue
		}

		risk := computeRiskScore(0.8, "critical", 0.0)
		username := propString(u.Properties, "username")
		if username == "" {
			username = u.ID
		}
		findings = append(findings, SimulationFinding{
			ID:            NewFindingID(),
			Tactic:        TacticLateralMovement,
			TechniqueID:   technique.TechniqueID,
			TechniqueName: technique.TechniqueName,
			Severity:      "critical",
			Title:         fmt.Sprintf("%s can reach domain controllers with privileged group membership", username),
			Description:   fmt.Sprintf("User %s is a member of %d privileged group(s) and has access to %d domain controller(s), enabling Kerberos ticket abuse.", username, len(privilegedGroups), len(dcAccess)),
			RiskScore:     risk,
			AffectedNodes: append([]string{u.ID}, nodeIDs(dcAccess)...),
			Evidence: map[string]any{
				"username":          username,
				"privileged_groups": groupNames(privilegedGroups),
				"dc_count":          len(dcAccess),
			},
			Remediation: []RemediationStep{
				{Title: "Rotate KRBTGT account", Description: "Rotate the KRBTGT password twice to invalidate golden tickets", Priority: "critical", Effort: "low"},
				{Title: "Monitor Kerberos anomalies", Description: "Deploy detection for ticket-granting-ticket and silver-ticket abuse patterns", Priority: "high", Effort: "medium"},
			},
			MitreURL: technique.MitreURL,
		})
	}
	return findings, nil
}

// simDomainTrust looks for transitive domain trust relationships: a
// trust target that is itself the source of another trust.
func (a *LateralMovementSimAgent) simDomainTrust(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	edges, err := a.Graph.QueryEdges(ctx, gctx.TenantID, "TRUSTS", "", "", 0)
	if err != nil {
		return nil, err
	}
	if len(edges) < 2 {
		return nil, nil
	}

	trustTargets := map[string][]string{}
	for _, e := range edges {
		trustTargets[e.SourceID] = append(trustTargets[e.SourceID], e.TargetID)
	}
	transitiveCount := 0
	for _, targets := range trustTargets {
		for _, t := range targets {
			if _, isSource := trustTargets[t]; isSource {
				transitiveCount++
			}
		}
	}
	if transitiveCount == 0 {
		return nil, nil
	}

	var affected []string
	for _, e := range edges {
		affected = append(affected, e.SourceID, e.TargetID)
	}
	affected = uniqueStrings(affected)

	risk := computeRiskScore(0.5, "medium", 0.0)
	return []SimulationFinding{{
		ID:            NewFindingID(),
		Tactic:        TacticLateralMovement,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      "medium",
		Title:         fmt.Sprintf("%d transitive domain trust relationship(s)", transitiveCount),
		Description:   fmt.Sprintf("Found %d transitive trust relationship(s) among %d total trust edge(s), enabling multi-hop domain traversal.", transitiveCount, len(edges)),
		RiskScore:     risk,
		AffectedNodes: affected,
		Evidence: map[string]any{
			"trust_count":     len(edges),
			"transitive_hops": transitiveCount,
		},
		Remediation: []RemediationStep{
			{Title: "Enable SID filtering", Description: "Enable SID filtering across all external/transitive domain trusts", Priority: "high", Effort: "low"},
			{Title: "Audit trust relationships", Description: "Review every domain trust for business justification and tighten scope", Priority: "medium", Effort: "medium"},
		},
		MitreURL: technique.MitreURL,
	}}, nil
}
