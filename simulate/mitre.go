// Package simulate implements adversarial simulation playbooks (spec
// §4.7): read-only, MITRE ATT&CK technique-driven exploration of the
// infrastructure knowledge graph that never mutates the digital twin.
package simulate

// GraphQueryPattern documents the shape of graph query a technique's
// simulation handler issues — informational metadata surfaced to callers
// and LLM prompts, not itself executed.
type GraphQueryPattern struct {
	NodeLabels        []string
	EdgeTypes         []string
	RequiredProperties []string
	Description       string
}

// MitreTechnique is one ATT&CK technique this module knows how to
// simulate against the graph.
type MitreTechnique struct {
	TechniqueID     string
	TechniqueName   string
	Tactic          TacticType
	Description     string
	MitreURL        string
	SeverityDefault string
	GraphQuery      GraphQueryPattern
}

func mitreURL(id string) string {
	return "https://attack.mitre.org/techniques/" + id + "/"
}

// MitreTechniques is every technique this module can simulate, keyed by
// technique ID.
var MitreTechniques = map[string]MitreTechnique{
	"T1190": {
		TechniqueID: "T1190", TechniqueName: "Exploit Public-Facing Application",
		Tactic:          TacticInitialAccess,
		Description:     "Adversaries exploit a weakness in an internet-facing host or application to gain initial access.",
		MitreURL:        mitreURL("T1190"),
		SeverityDefault: "critical",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Host", "Vulnerability"}, EdgeTypes: []string{"EXPOSES", "HAS_CVE"},
			RequiredProperties: []string{"is_internet_facing", "exploitable"},
			Description:         "internet-facing host with an exploitable vulnerability",
		},
	},
	"T1133": {
		TechniqueID: "T1133", TechniqueName: "External Remote Services",
		Tactic:          TacticInitialAccess,
		Description:     "Adversaries use external-facing remote services (VPN, RDP, SSH, VNC) to gain initial access.",
		MitreURL:        mitreURL("T1133"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Host", "Service", "User"}, EdgeTypes: []string{"HAS_ACCESS", "EXPOSES"},
			RequiredProperties: []string{"is_internet_facing", "port", "mfa_enabled"},
			Description:         "internet-facing remote service, with users lacking MFA counted",
		},
	},
	"T1566": {
		TechniqueID: "T1566", TechniqueName: "Phishing",
		Tactic:          TacticInitialAccess,
		Description:     "Adversaries send phishing messages to gain access via a user who clicks a link or opens an attachment.",
		MitreURL:        mitreURL("T1566"),
		SeverityDefault: "medium",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"User", "Host"}, EdgeTypes: []string{"HAS_ACCESS"},
			RequiredProperties: []string{"mfa_enabled", "criticality"},
			Description:         "human user without MFA with access to a critical or high-criticality host",
		},
	},
	"T1078": {
		TechniqueID: "T1078", TechniqueName: "Valid Accounts",
		Tactic:          TacticInitialAccess,
		Description:     "Adversaries obtain and abuse credentials of existing accounts to gain initial access.",
		MitreURL:        mitreURL("T1078"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"User"}, EdgeTypes: []string{"HAS_ACCESS"},
			RequiredProperties: []string{"is_service_account"},
			Description:         "service account with broad access",
		},
	},
	"T1199": {
		TechniqueID: "T1199", TechniqueName: "Trusted Relationship",
		Tactic:          TacticInitialAccess,
		Description:     "Adversaries breach or otherwise leverage organizations with access to the intended victim through a trust relationship.",
		MitreURL:        mitreURL("T1199"),
		SeverityDefault: "medium",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Host", "Organization"}, EdgeTypes: []string{"TRUSTS"},
			RequiredProperties: []string{},
			Description:         "trust relationship between network segments or organizations",
		},
	},

	"T1021.001": {
		TechniqueID: "T1021.001", TechniqueName: "Remote Services: Remote Desktop Protocol",
		Tactic:          TacticLateralMovement,
		Description:     "Adversaries use RDP to move laterally between hosts using valid credentials.",
		MitreURL:        mitreURL("T1021/001"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Service", "Host"}, EdgeTypes: []string{},
			RequiredProperties: []string{"port"},
			Description:         "RDP services (port 3389) reachable in a lateral movement chain",
		},
	},
	"T1021.004": {
		TechniqueID: "T1021.004", TechniqueName: "Remote Services: SSH",
		Tactic:          TacticLateralMovement,
		Description:     "Adversaries use SSH to move laterally between hosts using valid credentials.",
		MitreURL:        mitreURL("T1021/004"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Service", "Host"}, EdgeTypes: []string{},
			RequiredProperties: []string{"port"},
			Description:         "SSH services (port 22) reachable in a lateral movement chain",
		},
	},
	"T1550.002": {
		TechniqueID: "T1550.002", TechniqueName: "Use Alternate Authentication Material: Pass the Hash",
		Tactic:          TacticLateralMovement,
		Description:     "Adversaries use stolen password hashes to authenticate as a user without cracking the hash.",
		MitreURL:        mitreURL("T1550/002"),
		SeverityDefault: "critical",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"User", "Host"}, EdgeTypes: []string{"HAS_ACCESS"},
			RequiredProperties: []string{"permissions"},
			Description:         "user with administrative access to two or more hosts",
		},
	},
	"T1558": {
		TechniqueID: "T1558", TechniqueName: "Steal or Forge Kerberos Tickets",
		Tactic:          TacticLateralMovement,
		Description:     "Adversaries steal or forge Kerberos tickets to move laterally or escalate privileges within a domain.",
		MitreURL:        mitreURL("T1558"),
		SeverityDefault: "critical",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"User", "Group", "Host"}, EdgeTypes: []string{"MEMBER_OF", "HAS_ACCESS"},
			RequiredProperties: []string{"name", "hostname"},
			Description:         "user in a privileged group with access to a domain controller",
		},
	},
	"T1482": {
		TechniqueID: "T1482", TechniqueName: "Domain Trust Discovery",
		Tactic:          TacticLateralMovement,
		Description:     "Adversaries gather information on domain trust relationships to identify lateral movement or privilege escalation opportunities.",
		MitreURL:        mitreURL("T1482"),
		SeverityDefault: "medium",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Host"}, EdgeTypes: []string{"TRUSTS"},
			RequiredProperties: []string{},
			Description:         "transitive domain trust relationships",
		},
	},

	"T1068": {
		TechniqueID: "T1068", TechniqueName: "Exploitation for Privilege Escalation",
		Tactic:          TacticPrivilegeEscalation,
		Description:     "Adversaries exploit software vulnerabilities to elevate privileges.",
		MitreURL:        mitreURL("T1068"),
		SeverityDefault: "critical",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Vulnerability"}, EdgeTypes: []string{},
			RequiredProperties: []string{"cvss_score", "exploitable"},
			Description:         "high-severity exploitable vulnerability",
		},
	},
	"T1078.001": {
		TechniqueID: "T1078.001", TechniqueName: "Valid Accounts: Default Accounts",
		Tactic:          TacticPrivilegeEscalation,
		Description:     "Adversaries abuse default credentials left enabled on systems to elevate privileges.",
		MitreURL:        mitreURL("T1078/001"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"User"}, EdgeTypes: []string{"HAS_ACCESS"},
			RequiredProperties: []string{"username", "enabled"},
			Description:         "enabled default/built-in account with access",
		},
	},
	"T1548": {
		TechniqueID: "T1548", TechniqueName: "Abuse Elevation Control Mechanism",
		Tactic:          TacticPrivilegeEscalation,
		Description:     "Adversaries abuse mechanisms that grant elevated privileges, such as overprivileged roles.",
		MitreURL:        mitreURL("T1548"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"User", "Role"}, EdgeTypes: []string{"MEMBER_OF"},
			RequiredProperties: []string{"permissions"},
			Description:         "role with wildcard permissions",
		},
	},
	"T1134": {
		TechniqueID: "T1134", TechniqueName: "Access Token Manipulation",
		Tactic:          TacticPrivilegeEscalation,
		Description:     "Adversaries modify access tokens or abuse service account tokens to escalate privileges.",
		MitreURL:        mitreURL("T1134"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"User", "Host"}, EdgeTypes: []string{"HAS_ACCESS"},
			RequiredProperties: []string{"is_service_account", "criticality"},
			Description:         "service account with access to multiple critical hosts",
		},
	},
	"T1098": {
		TechniqueID: "T1098", TechniqueName: "Account Manipulation",
		Tactic:          TacticPrivilegeEscalation,
		Description:     "Adversaries manipulate accounts or their permissions, such as IAM roles with excessive permissions.",
		MitreURL:        mitreURL("T1098"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"User", "Role"}, EdgeTypes: []string{"MEMBER_OF"},
			RequiredProperties: []string{"permissions"},
			Description:         "role with excessive IAM-related permissions",
		},
	},

	"T1041": {
		TechniqueID: "T1041", TechniqueName: "Exfiltration Over C2 Channel",
		Tactic:          TacticExfiltration,
		Description:     "Adversaries exfiltrate data over an existing command and control channel.",
		MitreURL:        mitreURL("T1041"),
		SeverityDefault: "critical",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Host"}, EdgeTypes: []string{},
			RequiredProperties: []string{"criticality", "is_internet_facing"},
			Description:         "attack path from a critical asset to an internet-facing node",
		},
	},
	"T1048": {
		TechniqueID: "T1048", TechniqueName: "Exfiltration Over Alternative Protocol",
		Tactic:          TacticExfiltration,
		Description:     "Adversaries exfiltrate data over a different protocol than the command and control channel, such as DNS.",
		MitreURL:        mitreURL("T1048"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Service", "Host"}, EdgeTypes: []string{"CAN_REACH", "CONNECTS_TO"},
			RequiredProperties: []string{"port"},
			Description:         "sensitive host able to reach a DNS service",
		},
	},
	"T1567": {
		TechniqueID: "T1567", TechniqueName: "Exfiltration Over Web Service",
		Tactic:          TacticExfiltration,
		Description:     "Adversaries exfiltrate data to a legitimate cloud/web service to blend in with normal traffic.",
		MitreURL:        mitreURL("T1567"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Application", "Host"}, EdgeTypes: []string{"CAN_REACH", "DEPENDS_ON"},
			RequiredProperties: []string{"app_type", "criticality"},
			Description:         "sensitive host able to reach a cloud/web application",
		},
	},
	"T1537": {
		TechniqueID: "T1537", TechniqueName: "Transfer Data to Cloud Account",
		Tactic:          TacticExfiltration,
		Description:     "Adversaries exfiltrate data to a cloud account they control, such as cloud storage.",
		MitreURL:        mitreURL("T1537"),
		SeverityDefault: "high",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Application"}, EdgeTypes: []string{"HAS_ACCESS"},
			RequiredProperties: []string{"app_type"},
			Description:         "cloud storage application with accessors",
		},
	},
	"T1029": {
		TechniqueID: "T1029", TechniqueName: "Scheduled Transfer",
		Tactic:          TacticExfiltration,
		Description:     "Adversaries schedule data transfers through automated tasks to blend in with normal activity.",
		MitreURL:        mitreURL("T1029"),
		SeverityDefault: "medium",
		GraphQuery: GraphQueryPattern{
			NodeLabels: []string{"Service", "Host"}, EdgeTypes: []string{"CAN_REACH", "CONNECTS_TO"},
			RequiredProperties: []string{"name", "is_internet_facing"},
			Description:         "scheduler/daemon service with external reach",
		},
	},
}

// TechniquesByTactic groups MitreTechniques by tactic, in the declaration
// order above.
var TechniquesByTactic = buildTechniquesByTactic()

func buildTechniquesByTactic() map[TacticType][]MitreTechnique {
	order := []string{
		"T1190", "T1133", "T1566", "T1078", "T1199",
		"T1021.001", "T1021.004", "T1550.002", "T1558", "T1482",
		"T1068", "T1078.001", "T1548", "T1134", "T1098",
		"T1041", "T1048", "T1567", "T1537", "T1029",
	}
	out := map[TacticType][]MitreTechnique{}
	for _, id := range order {
		t := MitreTechniques[id]
		out[t.Tactic] = append(out[t.Tactic], t)
	}
	return out
}

// GetTechniquesForTactic returns every technique registered for tactic.
func GetTechniquesForTactic(tactic TacticType) []MitreTechnique {
	return TechniquesByTactic[tactic]
}

// GetTechnique looks up a technique by ID.
func GetTechnique(id string) (MitreTechnique, bool) {
	t, ok := MitreTechniques[id]
	return t, ok
}
