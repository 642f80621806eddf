package simulate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinel-platform/sentinel/agentrt"
	"github.com/sentinel-platform/sentinel/external"
)

// ExfiltrationSimAgent simulates data exfiltration techniques: egress
// from crown-jewel assets, DNS tunneling paths, exfiltration to cloud/web
// services, cloud storage transfer, and scheduled-task egress.
type ExfiltrationSimAgent struct {
	*BaseSimAgent
	Config ExfiltrationConfig
}

// NewExfiltrationSimAgent constructs the playbook.
func NewExfiltrationSimAgent(rt *agentrt.Runtime, graph external.GraphProtocol, cfg ExfiltrationConfig) *ExfiltrationSimAgent {
	return &ExfiltrationSimAgent{BaseSimAgent: NewBaseSimAgent(rt, graph, cfg.Config), Config: cfg}
}

func (a *ExfiltrationSimAgent) Plan(ctx context.Context, intent string, agentContext any) (agentrt.Plan, error) {
	return a.BaseSimAgent.Plan(ctx, intent, agentContext)
}

func (a *ExfiltrationSimAgent) Execute(ctx context.Context, plan agentrt.Plan) (agentrt.Result, error) {
	return a.BaseSimAgent.ExecuteSimulation(ctx, plan, a)
}

func (a *ExfiltrationSimAgent) SelectTechniques(ctx context.Context, plan agentrt.Plan) ([]MitreTechnique, error) {
	all := GetTechniquesForTactic(TacticExfiltration)
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

func (a *ExfiltrationSimAgent) SimulateTechnique(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	switch technique.TechniqueID {
	case "T1041":
		return a.simT1041(ctx, technique, gctx)
	case "T1048":
		return a.simT1048(ctx, technique, gctx)
	case "T1567":
		return a.simT1567(ctx, technique, gctx)
	case "T1537":
		return a.simT1537(ctx, technique, gctx)
	case "T1029":
		return a.simT1029(ctx, technique, gctx)
	default:
		return nil, nil
	}
}

// simT1041 finds attack paths from critical/crown-jewel hosts to
// internet-facing egress nodes.
func (a *ExfiltrationSimAgent) simT1041(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var crownJewels, internetFacing []external.Node
	for _, h := range gctx.Hosts {
		if propString(h.Properties, "criticality") == "critical" {
			crownJewels = append(crownJewels, h)
		}
		if propBool(h.Properties, "is_internet_facing") {
			internetFacing = append(internetFacing, h)
		}
	}
	if len(crownJewels) == 0 || len(internetFacing) == 0 {
		return nil, nil
	}

	pathsResult, err := a.Graph.FindAttackPaths(ctx, gctx.TenantID, nodeIDs(crownJewels), nodeIDs(internetFacing), a.Config.MaxDepth, a.Config.MaxPaths, false, false)
	if err != nil {
		return nil, err
	}
	if len(pathsResult.AttackPaths) == 0 {
		return nil, nil
	}

	risk := computeRiskScore(maxRiskScore(pathsResult.AttackPaths), "critical", 0.0)
	return []SimulationFinding{{
		ID:            NewFindingID(),
		Tactic:        TacticExfiltration,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      "critical",
		Title:         fmt.Sprintf("%d egress path(s) from critical assets", len(pathsResult.AttackPaths)),
		Description:   fmt.Sprintf("Found %d attack path(s) from %d critical asset(s) to %d internet-facing node(s).", len(pathsResult.AttackPaths), len(crownJewels), len(internetFacing)),
		AttackPaths:   pathsResult.AttackPaths,
		RiskScore:     risk,
		AffectedNodes: uniqueStrings(nodeIDs(crownJewels)),
		Evidence: map[string]any{
			"paths_count":       len(pathsResult.AttackPaths),
			"crown_jewel_count": len(crownJewels),
			"exit_count":        len(internetFacing),
		},
		Remediation: []RemediationStep{
			{Title: "Network segmentation", Description: "Isolate critical assets from internet-facing segments", Priority: "critical", Effort: "high"},
			{Title: "Deploy DLP", Description: "Implement data loss prevention on egress points", Priority: "high", Effort: "medium"},
		},
		MitreURL: technique.MitreURL,
	}}, nil
}

// simT1048 checks whether sensitive hosts can reach DNS services,
// enabling DNS tunneling exfiltration.
func (a *ExfiltrationSimAgent) simT1048(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var dnsServices []external.Node
	for _, s := range gctx.Services {
		if propInt(s.Properties, "port") == 53 {
			dnsServices = append(dnsServices, s)
		}
	}
	if len(dnsServices) == 0 {
		return nil, nil
	}

	sensitiveHosts := sensitiveHosts(gctx)
	var reachableFrom []string
	for _, host := range sensitiveHosts {
		neighbors, err := a.Graph.QueryNeighbors(ctx, host.ID, gctx.TenantID, []string{"CAN_REACH", "CONNECTS_TO"}, nil, 0)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if propInt(n.Properties, "port") == 53 {
				reachableFrom = append(reachableFrom, host.ID)
				break
			}
		}
	}
	if len(reachableFrom) == 0 {
		return nil, nil
	}

	risk := computeRiskScore(0.5, "high", 0.0)
	return []SimulationFinding{{
		ID:            NewFindingID(),
		Tactic:        TacticExfiltration,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      "high",
		Title:         fmt.Sprintf("DNS exfiltration path from %d sensitive host(s)", len(reachableFrom)),
		Description:   fmt.Sprintf("%d sensitive host(s) can reach DNS services, enabling potential DNS tunneling exfiltration.", len(reachableFrom)),
		RiskScore:     risk,
		AffectedNodes: reachableFrom,
		Evidence: map[string]any{
			"dns_service_count":    len(dnsServices),
			"reachable_host_count": len(reachableFrom),
		},
		Remediation: []RemediationStep{
			{Title: "Restrict DNS resolvers", Description: "Limit outbound DNS to approved internal resolvers only", Priority: "high", Effort: "low"},
			{Title: "DNS monitoring", Description: "Deploy DNS query monitoring for anomalous patterns", Priority: "medium", Effort: "medium"},
		},
		MitreURL: technique.MitreURL,
	}}, nil
}

func sensitiveHosts(gctx GraphContext) []external.Node {
	var out []external.Node
	for _, h := range gctx.Hosts {
		crit := propString(h.Properties, "criticality")
		if crit == "critical" || crit == "high" {
			out = append(out, h)
		}
	}
	return out
}

// simT1567 checks whether sensitive hosts can reach cloud/web
// applications.
func (a *ExfiltrationSimAgent) simT1567(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	apps, err := a.Graph.QueryNodes(ctx, "Application", gctx.TenantID, nil, 200)
	if err != nil {
		return nil, err
	}
	var cloudApps []external.Node
	cloudAppIDs := map[string]bool{}
	for _, app := range apps {
		appType := propString(app.Properties, "app_type")
		if appType == "database" || appType == "web_app" {
			cloudApps = append(cloudApps, app)
			cloudAppIDs[app.ID] = true
		}
	}
	if len(cloudApps) == 0 {
		return nil, nil
	}

	var reachableApps []string
	for _, host := range sensitiveHosts(gctx) {
		neighbors, err := a.Graph.QueryNeighbors(ctx, host.ID, gctx.TenantID, []string{"CAN_REACH", "DEPENDS_ON"}, nil, 0)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if cloudAppIDs[n.ID] {
				reachableApps = append(reachableApps, n.ID)
			}
		}
	}
	if len(reachableApps) == 0 {
		return nil, nil
	}

	uniqueApps := uniqueStrings(reachableApps)
	risk := computeRiskScore(0.5, "high", 0.0)
	return []SimulationFinding{{
		ID:            NewFindingID(),
		Tactic:        TacticExfiltration,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      "high",
		Title:         fmt.Sprintf("%d cloud service(s) reachable from sensitive hosts", len(uniqueApps)),
		Description:   fmt.Sprintf("Sensitive hosts can reach %d cloud application(s), enabling data exfiltration to web services.", len(uniqueApps)),
		RiskScore:     risk,
		AffectedNodes: uniqueApps,
		Evidence: map[string]any{
			"cloud_app_count":      len(uniqueApps),
			"sensitive_host_count": len(sensitiveHosts(gctx)),
		},
		Remediation: []RemediationStep{
			{Title: "Implement CASB", Description: "Deploy a cloud access security broker to control cloud service access", Priority: "high", Effort: "high"},
			{Title: "Block unauthorized cloud storage", Description: "Restrict access to unapproved cloud storage services", Priority: "high", Effort: "medium"},
		},
		MitreURL: technique.MitreURL,
	}}, nil
}

// simT1537 checks who has direct access to cloud storage applications.
func (a *ExfiltrationSimAgent) simT1537(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	apps, err := a.Graph.QueryNodes(ctx, "Application", gctx.TenantID, nil, 200)
	if err != nil {
		return nil, err
	}
	var storageApps []external.Node
	for _, app := range apps {
		if propString(app.Properties, "app_type") == "database" {
			storageApps = append(storageApps, app)
		}
	}
	if len(storageApps) == 0 {
		return nil, nil
	}

	var accessibleBy []string
	for _, app := range storageApps {
		neighbors, err := a.Graph.QueryNeighbors(ctx, app.ID, gctx.TenantID, []string{"HAS_ACCESS"}, nil, 0)
		if err != nil {
			return nil, err
		}
		accessibleBy = append(accessibleBy, nodeIDs(neighbors)...)
	}
	if len(accessibleBy) == 0 {
		return nil, nil
	}

	uniqueAccessors := uniqueStrings(accessibleBy)
	risk := computeRiskScore(0.5, "high", 0.0)
	return []SimulationFinding{{
		ID:            NewFindingID(),
		Tactic:        TacticExfiltration,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      "high",
		Title:         fmt.Sprintf("%d entity(ies) can access cloud storage", len(uniqueAccessors)),
		Description:   fmt.Sprintf("%d user(s)/service(s) have direct access to %d cloud storage application(s).", len(uniqueAccessors), len(storageApps)),
		RiskScore:     risk,
		AffectedNodes: nodeIDs(storageApps),
		Evidence: map[string]any{
			"storage_app_count": len(storageApps),
			"accessor_count":    len(uniqueAccessors),
		},
		Remediation: []RemediationStep{
			{Title: "Enforce cloud storage policies", Description: "Implement access policies on all cloud storage resources", Priority: "high", Effort: "medium"},
			{Title: "Enable access logging", Description: "Enable detailed logging on all cloud storage access", Priority: "medium", Effort: "low"},
		},
		MitreURL: technique.MitreURL,
	}}, nil
}

// simT1029 checks whether scheduler/daemon services can reach external
// hosts.
func (a *ExfiltrationSimAgent) simT1029(ctx context.Context, technique MitreTechnique, gctx GraphContext) ([]SimulationFinding, error) {
	var schedulerServices []external.Node
	for _, s := range gctx.Services {
		name := strings.ToLower(propString(s.Properties, "name"))
		for _, kw := range []string{"cron", "scheduler", "task", "daemon"} {
			if strings.Contains(name, kw) {
				schedulerServices = append(schedulerServices, s)
				break
			}
		}
	}
	if len(schedulerServices) == 0 {
		return nil, nil
	}

	type schedulerEgress struct {
		Service       string
		HostID        string
		ExternalCount int
	}
	var withEgress []schedulerEgress
	for _, svc := range schedulerServices {
		hostID := propString(svc.Properties, "host_id")
		if hostID == "" {
			hostID = svc.ID
		}
		neighbors, err := a.Graph.QueryNeighbors(ctx, hostID, gctx.TenantID, []string{"CAN_REACH", "CONNECTS_TO"}, nil, 0)
		if err != nil {
			return nil, err
		}
		externalCount := 0
		for _, n := range neighbors {
			if propBool(n.Properties, "is_internet_facing") {
				externalCount++
			}
		}
		if externalCount > 0 {
			name := propString(svc.Properties, "name")
			if name == "" {
				name = "unknown"
			}
			withEgress = append(withEgress, schedulerEgress{Service: name, HostID: hostID, ExternalCount: externalCount})
		}
	}
	if len(withEgress) == 0 {
		return nil, nil
	}

	affected := make([]string, 0, len(withEgress))
	schedulers := make([]map[string]any, 0, len(withEgress))
	for _, s := range withEgress {
		affected = append(affected, s.HostID)
		schedulers = append(schedulers, map[string]any{"service": s.Service, "host_id": s.HostID, "external_count": s.ExternalCount})
	}

	risk := computeRiskScore(0.4, "medium", 0.0)
	return []SimulationFinding{{
		ID:            NewFindingID(),
		Tactic:        TacticExfiltration,
		TechniqueID:   technique.TechniqueID,
		TechniqueName: technique.TechniqueName,
		Severity:      "medium",
		Title:         fmt.Sprintf("%d scheduler(s) with external reach", len(withEgress)),
		Description:   fmt.Sprintf("Found %d scheduler service(s) that can reach external hosts, enabling automated data exfiltration.", len(withEgress)),
		RiskScore:     risk,
		AffectedNodes: affected,
		Evidence: map[string]any{
			"schedulers": schedulers,
		},
		Remediation: []RemediationStep{
			{Title: "Audit scheduled tasks", Description: "Review all scheduled tasks for unauthorized data transfers", Priority: "medium", Effort: "medium"},
			{Title: "Restrict outbound connectivity", Description: "Block outbound connections from scheduler hosts", Priority: "medium", Effort: "low"},
		},
		MitreURL: technique.MitreURL,
	}}, nil
}
