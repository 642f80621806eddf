// Package hunt implements threat-hunting playbooks: SIEM query
// construction, finding analysis, and Sigma detection rule generation
// (spec §4.6).
package hunt

import (
	"time"

	"github.com/google/uuid"
)

// PlaybookType identifies a built-in hunt playbook.
type PlaybookType string

const (
	PlaybookCredentialAbuse  PlaybookType = "credential_abuse"
	PlaybookLateralMovement  PlaybookType = "lateral_movement"
	PlaybookDataExfiltration PlaybookType = "data_exfiltration"
)

// Config holds the fields every hunt playbook shares. Concrete playbook
// configs embed this and add their own thresholds.
type Config struct {
	Playbook            PlaybookType
	TimeWindowHours     int
	IndexPattern        string
	MaxResultsPerQuery  int
	SeverityThreshold   string
	TargetHosts         []string
	TargetUsers         []string
	GenerateSigmaRules  bool
}

func defaultConfig(playbook PlaybookType) Config {
	return Config{
		Playbook:           playbook,
		TimeWindowHours:    24,
		IndexPattern:       "filebeat-*,winlogbeat-*,logs-*",
		MaxResultsPerQuery: 1000,
		SeverityThreshold:  "medium",
		GenerateSigmaRules: true,
	}
}

// CredentialAbuseConfig configures the credential abuse playbook.
type CredentialAbuseConfig struct {
	Config
	FailedLoginThreshold           int
	BruteForceWindowMinutes        int
	LockoutCorrelation             bool
	CredentialStuffingUniqueUsers  int
	ServiceAccountMonitoring       bool
}

// NewCredentialAbuseConfig returns the playbook's defaults.
func NewCredentialAbuseConfig() CredentialAbuseConfig {
	return CredentialAbuseConfig{
		Config:                        defaultConfig(PlaybookCredentialAbuse),
		FailedLoginThreshold:          10,
		BruteForceWindowMinutes:       5,
		LockoutCorrelation:            true,
		CredentialStuffingUniqueUsers: 5,
		ServiceAccountMonitoring:      true,
	}
}

// LateralMovementConfig configures the lateral movement playbook.
type LateralMovementConfig struct {
	Config
	InternalSubnetPrefixes      []string
	RDPChainMaxHops             int
	ServiceAccountHopThreshold  int
	UnusualPortThreshold        int
}

// NewLateralMovementConfig returns the playbook's defaults.
func NewLateralMovementConfig() LateralMovementConfig {
	return LateralMovementConfig{
		Config:                     defaultConfig(PlaybookLateralMovement),
		InternalSubnetPrefixes:     []string{"10.", "172.16.", "192.168."},
		RDPChainMaxHops:            3,
		ServiceAccountHopThreshold: 2,
		UnusualPortThreshold:       5,
	}
}

// DataExfiltrationConfig configures the data exfiltration playbook.
type DataExfiltrationConfig struct {
	Config
	LargeTransferBytes        int64
	DNSQueryLengthThreshold   int
	DNSTXTRecordThreshold     int
	UnusualDestinationCheck   bool
	AfterHoursStart           int
	AfterHoursEnd             int
}

// NewDataExfiltrationConfig returns the playbook's defaults.
func NewDataExfiltrationConfig() DataExfiltrationConfig {
	return DataExfiltrationConfig{
		Config:                  defaultConfig(PlaybookDataExfiltration),
		LargeTransferBytes:      100_000_000,
		DNSQueryLengthThreshold: 50,
		DNSTXTRecordThreshold:   10,
		UnusualDestinationCheck: true,
		AfterHoursStart:         22,
		AfterHoursEnd:           6,
	}
}

// SigmaDetection is the detection clause of a Sigma rule.
type SigmaDetection struct {
	Selection map[string]any `yaml:"selection"`
	Filter    map[string]any `yaml:"filter,omitempty"`
	Condition string         `yaml:"condition"`
}

// SigmaRule is a SigmaHQ-conformant detection rule. Field declaration
// order is the YAML key order the generator must emit.
type SigmaRule struct {
	Title           string            `yaml:"title"`
	ID              uuid.UUID         `yaml:"id"`
	Status          string            `yaml:"status"`
	Description     string            `yaml:"description"`
	Author          string            `yaml:"author"`
	Date            string            `yaml:"date"`
	References      []string          `yaml:"references"`
	Tags            []string          `yaml:"tags"`
	Logsource       map[string]string `yaml:"logsource"`
	Detection       SigmaDetection    `yaml:"detection"`
	Falsepositives  []string          `yaml:"falsepositives"`
	Level           string            `yaml:"level"`
}

// HuntFinding is a single finding produced by a hunt playbook, carrying
// MITRE ATT&CK context and (optionally) a generated Sigma rule.
type HuntFinding struct {
	ID                string
	Playbook          PlaybookType
	Severity          string
	Title             string
	Description       string
	Evidence          map[string]any
	Recommendations   []string
	AffectedHosts     []string
	AffectedUsers     []string
	MitreTechniqueIDs []string
	MitreTactic       string
	SigmaRule         *SigmaRule
	Timestamp         *time.Time
}

// PlaybookResult is the full result of one hunt playbook run.
type PlaybookResult struct {
	Playbook        PlaybookType
	Findings        []HuntFinding
	SigmaRules      []SigmaRule
	QueriesExecuted int
	EventsAnalyzed  int
	DurationSeconds float64
	Summary         string
}
