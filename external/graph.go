package external

import "context"

// Node is a single graph entity (Host, User, Service, Vulnerability,
// Application, Role, ...). Properties carries every domain-specific field
// (criticality, cvss_score, permissions, port, ...); simulation playbooks
// read these dynamically the way the original Python implementation reads
// dict fields, rather than through a closed Go struct per label.
type Node struct {
	ID         string
	Label      string
	Properties map[string]any
}

// Edge is a directed relationship between two nodes (HAS_ACCESS, MEMBER_OF,
// TRUSTS, CAN_REACH, CONNECTS_TO, DEPENDS_ON, ...).
type Edge struct {
	SourceID   string
	TargetID   string
	Type       string
	Properties map[string]any
}

// AttackPath is one path the pathfinding engine found between two nodes,
// optionally part of a lateral-movement chain.
type AttackPath struct {
	Nodes      []string
	Techniques []string
	RiskScore  float64
}

// AttackPathsResult bundles direct paths and, when requested, lateral
// movement chains derived from them.
type AttackPathsResult struct {
	AttackPaths    []AttackPath
	LateralChains  []AttackPath
}

// BlastRadius is the set of nodes reachable from a compromised node under
// a given exploitability threshold and hop count, plus a composite score.
type BlastRadius struct {
	Nodes      []string
	BlastScore float64
}

// GraphProtocol is the read-only interface simulation playbooks use to
// query the infrastructure knowledge graph (spec §4.7, §6). The core never
// writes to the graph; only external connectors do.
type GraphProtocol interface {
	QueryNodes(ctx context.Context, label, tenantID string, filters map[string]any, limit int) ([]Node, error)
	QueryNeighbors(ctx context.Context, nodeID, tenantID string, edgeTypes, targetLabels []string, limit int) ([]Node, error)
	QueryEdges(ctx context.Context, tenantID string, edgeType, sourceLabel, targetLabel string, limit int) ([]Edge, error)
	FindAttackPaths(ctx context.Context, tenantID string, sources, targets []string, maxDepth, maxPaths int, includeLateral, includeBlast bool) (AttackPathsResult, error)
	ComputeBlastRadius(ctx context.Context, tenantID, nodeID string, maxHops int, minExploitability float64) (BlastRadius, error)
}
