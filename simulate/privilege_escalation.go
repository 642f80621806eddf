package simulate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/external"
)

// defaultAccountNames are built-in/default account usernames T1078.001
// treats as a privilege-escalation risk when left enabled.
var defaultAccountNames = map[string]bool{
	"admin": true, "administrator": true, "root": true, "guest": true,
	"sa": true, "postgres": true, "oracle": true, "test": true,
}

// PrivilegeEscalationAgent simulates privilege-escalation techniques:
// exploitation of high-severity vulnerabilities, default accounts,
// overprivileged roles, service-account token abuse, and excessive IAM
// permissions.
type PrivilegeEscalationAgent struct {
	*BaseSimAgent
	Config PrivilegeEscalationConfig
}

// NewPrivilegeEscalationAgent constructs the playbook.
func NewPrivilegeEscalationAgent(rt *agentrt.Runtime, graph external.GraphProtocol, cfg PrivilegeEscalationConfig) *PrivilegeEscalationAgent {
	return &PrivilegeEscalationAgent{BaseSimAgent: NewBaseSimAgent(rt, graph, cfg.Config), Config: cfg}
}

func (a *PrivilegeEscalationAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	return a.BaseSimAgent.Plan(ctx, intent, agentContext)
}

func (a *PrivilegeEscalationAgent) Execute(ctx context.Context, plan agentrt.Plan) (agentrt.Result, error) {
	return a.BaseSimAgent.ExecuteSimulation(ctx, plan, a)
}

func (a *PrivilegeEscalationAgent) SelectTechniques(ctx context.Context, plan agentrt.Plan) ([]MitreTechnique, error) {
	all := GetTechniquesForTactic(TacticPrivilegeEscalation)
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

func (a *PrivilegeEscalationAgent) SimulateTechnique(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	switch technique.TechniqueID {
	case "T1068":
		return a.simT1068(ctx, technique, gctx)
	case "T1078.001":
		return a.simT1078_001(ctx, technique, gctx)
	case "T1548":
		return a.simT1548(ctx, technique, gctx)
	case "T1134":
		return a.simT1134(ctx, technique, gctx)
	case "T1098":
		return a.simT1098(ctx, technique, gctx)
	default:
		return nil, nil
	}
}

// simT1068 looks for high-severity exploitable vulnerabilities anywhere
// in the topology.
func (a *PrivilegeEscalationAgent) simT1068(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var candidates []external.Node
	maxCVSS := 0.0
	for _, v := range gctx.Vulnerabilities {
		cvss := propFloat(v.Properties, "cvss_score")
		if cvss >= 7.0 && propBool(v.Properties, "exploitable") {
			candidates = append(candidates, v)
			if cvss > maxCVSS {
				maxCVSS = cvss
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	risk := computeRiskScore(maxCVSS/10.0, "critical", 0.0)
	return []SimulationFinding{{
		ID:            NewFindingID(),
		Tactic:        TacticPrivilegeEscalation,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      "critical",
		Title:         fmt.Sprintf("%d exploitable high-severity vulnerability(ies)", len(candidates)),
		Description:   fmt.Sprintf("Found %d exploitable vulnerability(ies) with CVSS >= 7.0 (max %.1f), any of which could be used for local privilege escalation.", len(candidates), maxCVSS),
		RiskScore:     risk,
		AffectedNodes: nodeIDs(candidates),
		Evidence: map[string]any{
			"cve_ids":    cveIDsOf(candidates),
			"max_cvss":   maxCVSS,
			"vuln_count": len(candidates),
		},
		Remediation: []RemediationStep{
			{Title: "Patch critical vulnerabilities", Description: "Apply vendor patches for every exploitable CVSS >= 7.0 vulnerability", Priority: "critical", Effort: "medium"},
			{Title: "Application sandboxing", Description: "Sandbox vulnerable applications to limit the blast radius of exploitation", Priority: "high", Effort: "high"},
		},
		MitreURL: technique.MitreURL,
	}}, nil
}

// simT1078_001 looks for enabled default/built-in accounts with access.
func (a *PrivilegeEscalationAgent) simT1078_001(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var findings []SimulationFinding
	for _, u := range gctx.Users {
		username := strings.ToLower(propString(u.Properties, "username"))
		if !defaultAccountNames[username] {
			continue
		}
		enabled := true
		if v, ok := u.Properties["enabled"]; ok {
			if b, ok := v.(bool); ok {
				enabled = b
			}
		}
		if !enabled {
			continue
		}
		neighbors, err := a.Graph.QueryNeighbors(ctx, u.ID, gctx.TenantID, []string{"HAS_ACCESS"}, nil, 0)
		if err != nil {
			return nil, err
		}
		if len(neighbors) == 0 {
			continue
		}

		risk := computeRiskScore(0.6, "high", 0.0)
		findings = append(findings, SimulationFinding{
			ID:            NewFindingID(),
			Tactic:        TacticPrivilegeEscalation,
			TechniqueID:   technique.TechniqueID,
			TechniqueName: technique.TechniqueName,
			Severity:      "high",
			Title:         fmt.Sprintf("Default account %s is enabled with access", username),
			Description:   fmt.Sprintf("Default/built-in account %s is enabled and has access to %d resource(s).", username, len(neighbors)),
			RiskScore:     risk,
			AffectedNodes: []string{u.ID},
			Evidence: map[string]any{
				"username":     username,
				"access_count": len(neighbors),
			},
			Remediation: []RemediationStep{
				{Title: "Disable default account", Description: "Disable or remove the default/built-in account", Priority: "high", Effort: "low", Automated: true},
				{Title: "Enforce unique credentials", Description: "Require unique, non-default credentials for every privileged account", Priority: "medium", Effort: "medium"},
			},
			MitreURL: technique.MitreURL,
		})
	}
	return findings, nil
}

// simT1548 looks for roles granting wildcard permissions.
func (a *PrivilegeEscalationAgent) simT1548(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	edges, err := a.Graph.QueryEdges(ctx, gctx.TenantID, "MEMBER_OF", "User", "Role", 0)
	if err != nil {
		return nil, err
	}
	roleIDs := uniqueStrings(edgeTargets(edges))
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var overprivileged []string
	for _, roleID := range roleIDs {
		neighbors, err := a.Graph.QueryNeighbors(ctx, roleID, gctx.TenantID, nil, nil, 0)
		if err != nil {
			return nil, err
		}
		var roleData *external.Node
		for i := range neighbors {
			if neighbors[i].ID == roleID {
				roleData = &neighbors[i]
				break
			}
		}
		if roleData == nil {
			continue
		}
		perms := propStringSlice(roleData.Properties, "permissions")
		if containsFold(perms, "*") || hasWildcardPermission(perms) {
			overprivileged = append(overprivileged, roleID)
		}
	}
	if len(overprivileged) == 0 {
		return nil, nil
	}

	risk := computeRiskScore(0.6, "high", 0.0)
	return []SimulationFinding{{
		ID:            NewFindingID(),
		Tactic:        TacticPrivilegeEscalation,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      "high",
		Title:         fmt.Sprintf("%d role(s) grant wildcard permissions", len(overprivileged)),
		Description:   fmt.Sprintf("Found %d role(s) with wildcard ('*') permissions, allowing any member to escalate to arbitrary actions.", len(overprivileged)),
		RiskScore:     risk,
		AffectedNodes: overprivileged,
		Evidence: map[string]any{
			"role_count": len(overprivileged),
			"roles":      overprivileged,
		},
		Remediation: []RemediationStep{
			{Title: "Replace wildcards with specific permissions", Description: "Enumerate and grant only the specific actions each role actually needs", Priority: "high", Effort: "medium"},
		},
		MitreURL: technique.MitreURL,
	}}, nil
}

func hasWildcardPermission(perms []string) bool {
	for _, p := range perms {
		if strings.Contains(p, "*") {
			return true
		}
	}
	return false
}

// simT1134 looks for service accounts with access to 3+ critical hosts.
func (a *PrivilegeEscalationAgent) simT1134(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var findings []SimulationFinding
	for _, u := range gctx.Users {
		if !propBool(u.Properties, "is_service_account") {
			continue
		}
		neighbors, err := a.Graph.QueryNeighbors(ctx, u.ID, gctx.TenantID, []string{"HAS_ACCESS"}, nil, 0)
		if err != nil {
			return nil, err
		}
		var criticalHosts []external.Node
		for _, n := range neighbors {
			crit := propString(n.Properties, "criticality")
			if crit == "critical" || crit == "high" {
				criticalHosts = append(criticalHosts, n)
			}
		}
		if len(criticalHosts) < 3 {
			continue
		}

		blast, err := a.Graph.ComputeBlastRadius(ctx, gctx.TenantID, u.ID, 0, 0)
		if err != nil {
			return nil, err
		}
		risk := computeRiskScore(0.7, "high", blast.BlastScore)
		username := propString(u.Properties, "username")
		if username == "" {
			username = u.ID
		}
		findings = append(findings, SimulationFinding{
			ID:            NewFindingID(),
			Tactic:        TacticPrivilegeEscalation,
			TechniqueID:   technique.TechniqueID,
			TechniqueName: technique.TechniqueName,
			Severity:      "high",
			Title:         fmt.Sprintf("Service account %s token grants access to %d critical hosts", username, len(criticalHosts)),
			Description:   fmt.Sprintf("Service account %s has access to %d critical/high-criticality host(s); its token is a high-value escalation target.", username, len(criticalHosts)),
			BlastRadius:   &blast,
			RiskScore:     risk,
			AffectedNodes: append([]string{u.ID}, nodeIDs(criticalHosts)...),
			Evidence: map[string]any{
				"username":            username,
				"critical_host_count": len(criticalHosts),
				"blast_score":         blast.BlastScore,
			},
			Remediation: []RemediationStep{
				{Title: "Limit token lifetime", Description: "Issue short-lived tokens instead of long-lived service account credentials", Priority: "high", Effort: "low"},
				{Title: "Restrict service account scope", Description: "Scope the service account down to only the critical hosts it needs", Priority: "high", Effort: "medium"},
			},
			MitreURL: technique.MitreURL,
		})
	}
	return findings, nil
}

// simT1098 looks for roles granting excessive IAM-related permissions.
func (a *PrivilegeEscalationAgent) simT1098(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	edges, err := a.Graph.QueryEdges(ctx, gctx.TenantID, "MEMBER_OF", "User", "Role", 0)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}
	roleIDs := uniqueStrings(edgeTargets(edges))

	var findings []SimulationFinding
	for _, roleID := range roleIDs {
		neighbors, err := a.Graph.QueryNeighbors(ctx, roleID, gctx.TenantID, nil, nil, 0)
		if err != nil {
			return nil, err
		}
		var roleData *external.Node
		for i := range neighbors {
			if neighbors[i].ID == roleID {
				roleData = &neighbors[i]
				break
			}
		}
		if roleData == nil {
			continue
		}
		perms := propStringSlice(roleData.Properties, "permissions")
		hasIAM := false
		for _, p := range perms {
			lower := strings.ToLower(p)
			if strings.Contains(lower, "iam") || strings.Contains(lower, "identity") || strings.Contains(lower, "user") || strings.Contains(lower, "role") {
				hasIAM = true
				break
			}
		}
		if !hasIAM || len(perms) <= 10 {
			continue
		}

		var roleUsers []string
		for _, e := range edges {
			if e.TargetID == roleID {
				roleUsers = append(roleUsers, e.SourceID)
			}
		}

		risk := computeRiskScore(0.6, "high", 0.0)
		findings = append(findings, SimulationFinding{
			ID:            NewFindingID(),
			Tactic:        TacticPrivilegeEscalation,
			TechniqueID:   technique.TechniqueID,
			TechniqueName: technique.TechniqueName,
			Severity:      "high",
			Title:         fmt.Sprintf("Role %s grants excessive IAM permissions", roleID),
			Description:   fmt.Sprintf("Role %s grants %d permission(s) including IAM-related actions, held by %d user(s).", roleID, len(perms), len(roleUsers)),
			RiskScore:     risk,
			AffectedNodes: append([]string{roleID}, roleUsers...),
			Evidence: map[string]any{
				"role_id":          roleID,
				"permission_count": len(perms),
				"user_count":       len(roleUsers),
			},
			Remediation: []RemediationStep{
				{Title: "Enforce separation of duties", Description: "Split IAM administration from other operational permissions", Priority: "high", Effort: "medium"},
				{Title: "Run privileged access reviews", Description: "Periodically review IAM-capable roles for continued business need", Priority: "medium", Effort: "low"},
			},
			MitreURL: technique.MitreURL,
		})
	}
	return findings, nil
}

func edgeTargets(edges []external.Edge) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.TargetID)
	}
	return out
}
