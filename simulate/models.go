package simulate

import (
	"github.com/google/uuid"

	"github.com/sentinel-platform/sentinel/external"
)

// TacticType is one of the four MITRE ATT&CK tactics this module
// simulates.
type TacticType string

const (
	TacticInitialAccess       TacticType = "initial_access"
	TacticLateralMovement     TacticType = "lateral_movement"
	TacticPrivilegeEscalation TacticType = "privilege_escalation"
	TacticExfiltration        TacticType = "exfiltration"
)

// Config is the tactic-agnostic simulation configuration shared by every
// concrete tactic config below.
type Config struct {
	Tactic              TacticType
	Techniques          []string // empty means "every technique for Tactic"
	MaxPaths            int
	MaxDepth            int
	MinExploitability   float64
	IncludeBlastRadius  bool
	TargetNodeIDs       []string
	SourceNodeIDs       []string
}

func defaultConfig(tactic TacticType) Config {
	return Config{
		Tactic:             tactic,
		MaxPaths:           50,
		MaxDepth:           10,
		MinExploitability:  0.3,
		IncludeBlastRadius: true,
	}
}

// InitialAccessConfig configures the initial-access simulation playbook.
type InitialAccessConfig struct {
	Config
	CheckExposedServices  bool
	CheckPhishingVectors  bool
	CheckValidAccounts    bool
	ExposedServicePorts   []int
}

// NewInitialAccessConfig returns the playbook's defaults.
func NewInitialAccessConfig() InitialAccessConfig {
	return InitialAccessConfig{
		Config:               defaultConfig(TacticInitialAccess),
		CheckExposedServices: true,
		CheckPhishingVectors: true,
		CheckValidAccounts:   true,
		ExposedServicePorts:  []int{80, 443, 8080, 8443, 3389, 22, 21, 25, 445},
	}
}

// LateralMovementSimConfig configures the lateral-movement simulation
// playbook.
type LateralMovementSimConfig struct {
	Config
	MaxChainLength          int
	CheckCredentialReuse    bool
	CheckTrustExploitation  bool
	CheckRemoteServices     bool
}

// NewLateralMovementSimConfig returns the playbook's defaults.
func NewLateralMovementSimConfig() LateralMovementSimConfig {
	return LateralMovementSimConfig{
		Config:                 defaultConfig(TacticLateralMovement),
		MaxChainLength:         8,
		CheckCredentialReuse:   true,
		CheckTrustExploitation: true,
		CheckRemoteServices:    true,
	}
}

// PrivilegeEscalationConfig configures the privilege-escalation
// simulation playbook.
type PrivilegeEscalationConfig struct {
	Config
	CheckMisconfigs            bool
	CheckVulnerableServices    bool
	CheckExcessivePermissions  bool
	AdminRolePatterns          []string
}

// NewPrivilegeEscalationConfig returns the playbook's defaults.
func NewPrivilegeEscalationConfig() PrivilegeEscalationConfig {
	return PrivilegeEscalationConfig{
		Config:                    defaultConfig(TacticPrivilegeEscalation),
		CheckMisconfigs:           true,
		CheckVulnerableServices:   true,
		CheckExcessivePermissions: true,
		AdminRolePatterns:         []string{"admin", "root", "superuser", "owner", "contributor"},
	}
}

// ExfiltrationConfig configures the exfiltration simulation playbook.
type ExfiltrationConfig struct {
	Config
	CheckDataPaths        bool
	CheckDNSExfil         bool
	CheckCloudStorage     bool
	SensitiveDataLabels   []string
}

// NewExfiltrationConfig returns the playbook's defaults.
func NewExfiltrationConfig() ExfiltrationConfig {
	return ExfiltrationConfig{
		Config:              defaultConfig(TacticExfiltration),
		CheckDataPaths:      true,
		CheckDNSExfil:       true,
		CheckCloudStorage:   true,
		SensitiveDataLabels: []string{"pii", "phi", "financial", "credentials", "source-code"},
	}
}

// RemediationStep is one concrete action to address a finding.
type RemediationStep struct {
	Title       string
	Description string
	Priority    string // critical|high|medium|low
	Effort      string // high|medium|low
	Automated   bool
}

// SimulationFinding is one attack opportunity a technique handler
// surfaced against the graph.
type SimulationFinding struct {
	ID              string
	Tactic          TacticType
	TechniqueID     string
	TechniqueName   string
	Severity        string
	Title           string
	Description     string
	AttackPaths     []external.AttackPath
	BlastRadius     *external.BlastRadius
	RiskScore       float64
	AffectedNodes   []string
	Evidence        map[string]any
	Remediation     []RemediationStep
	MitreURL        string
}

// NewFindingID returns a fresh finding identifier.
func NewFindingID() string {
	return uuid.NewString()
}

// SimulationResult is the full outcome of running every selected
// technique for one tactic.
type SimulationResult struct {
	Tactic                  TacticType
	Config                  Config
	Findings                []SimulationFinding
	TechniquesTested        int
	TechniquesWithFindings  int
	HighestRiskScore        float64
	DurationSeconds         float64
	Summary                 string
}
