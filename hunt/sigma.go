package hunt

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SigmaGenerator converts hunt findings into Sigma detection rules,
// dispatching by playbook type the way the original converter does.
type SigmaGenerator struct{}

// FromFinding builds a Sigma rule from a finding, or returns nil if the
// finding's playbook has no rule builder.
func (g SigmaGenerator) FromFinding(f HuntFinding) *SigmaRule {
	switch f.Playbook {
	case PlaybookCredentialAbuse:
		rule := g.credentialAbuseRule(f)
		return &rule
	case PlaybookLateralMovement:
		rule := g.lateralMovementRule(f)
		return &rule
	case PlaybookDataExfiltration:
		rule := g.dataExfiltrationRule(f)
		return &rule
	default:
		return nil
	}
}

func (g SigmaGenerator) credentialAbuseRule(f HuntFinding) SigmaRule {
	selection := map[string]any{
		"event.outcome":  "failure",
		"event.category": "authentication",
	}
	if v, ok := f.Evidence["source_ips"]; ok {
		selection["source.ip"] = v
	}
	if v, ok := f.Evidence["target_users"]; ok {
		selection["user.name"] = v
	}
	if v, ok := f.Evidence["event_ids"]; ok {
		selection["event.code"] = v
	}

	return g.build(f, selection, nil, []string{"attack.credential_access"},
		map[string]string{"category": "authentication", "product": "windows"},
		[]string{"Legitimate account lockout due to password change"})
}

func (g SigmaGenerator) lateralMovementRule(f HuntFinding) SigmaRule {
	selection := map[string]any{}
	if v, ok := f.Evidence["source_hosts"]; ok {
		selection["source.ip"] = v
	}
	if v, ok := f.Evidence["dest_hosts"]; ok {
		selection["destination.ip"] = v
	}
	if v, ok := f.Evidence["dest_ports"]; ok {
		selection["destination.port"] = v
	} else {
		selection["destination.port"] = []int{3389, 445, 5985}
	}

	return g.build(f, selection, nil, []string{"attack.lateral_movement"},
		map[string]string{"category": "network_connection", "product": "any"},
		[]string{"Legitimate system administration via RDP or WinRM"})
}

func (g SigmaGenerator) dataExfiltrationRule(f HuntFinding) SigmaRule {
	selection := map[string]any{}
	if v, ok := f.Evidence["dest_ips"]; ok {
		selection["destination.ip"] = v
	}
	if v, ok := f.Evidence["dest_ports"]; ok {
		selection["destination.port"] = v
	}
	if v, ok := f.Evidence["dns_queries"]; ok {
		selection["dns.question.name|contains"] = v
	}

	return g.build(f, selection, nil, []string{"attack.exfiltration"},
		map[string]string{"category": "network_connection", "product": "any"},
		[]string{"Large legitimate file transfers", "Backup operations"})
}

func (g SigmaGenerator) build(f HuntFinding, selection, filter map[string]any, baseTags []string, logsource map[string]string, falsepositives []string) SigmaRule {
	tags := append([]string{}, baseTags...)
	for _, tid := range f.MitreTechniqueIDs {
		tags = append(tags, "attack."+strings.ToLower(tid))
	}
	return SigmaRule{
		Title:          f.Title,
		ID:             uuid.New(),
		Status:         "experimental",
		Description:    f.Description,
		Author:         "Sentinel Hunt Agent",
		Date:           time.Now().UTC().Format("2006/01/02"),
		References:     []string{},
		Tags:           tags,
		Logsource:      logsource,
		Detection:      SigmaDetection{Selection: selection, Filter: filter, Condition: "selection"},
		Falsepositives: falsepositives,
		Level:          severityToLevel(f.Severity),
	}
}

func severityToLevel(severity string) string {
	switch severity {
	case "critical":
		return "critical"
	case "high":
		return "high"
	case "medium":
		return "medium"
	case "low":
		return "low"
	case "info":
		return "informational"
	default:
		return "medium"
	}
}

// ToYAML serializes the rule to valid Sigma YAML, relying on the struct's
// field declaration order for key order.
func (r SigmaRule) ToYAML() (string, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
