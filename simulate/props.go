package simulate

import (
	"strings"

	"github.com/sentinel-platform/sentinel/external"
)

// Property accessors for external.Node.Properties, which carries
// whatever domain-specific fields the backing graph implementation
// returns (criticality, cvss_score, permissions, port, ...) the same way
// the original implementation reads dict fields rather than through a
// closed struct per label.

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func propBool(props map[string]any, key string) bool {
	if v, ok := props[key].(bool); ok {
		return v
	}
	return false
}

func propFloat(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func propInt(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func propStringSlice(props map[string]any, key string) []string {
	switch v := props[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func containsFold(ss []string, needle string) bool {
	for _, s := range ss {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func nodeIDs(nodes []external.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

// groupNames extracts each node's name property, for evidence listing
// privileged group membership by name rather than count.
func groupNames(nodes []external.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, propString(n.Properties, "name"))
	}
	return out
}

// cveIDsOf extracts each vulnerability node's cve_id property, defaulting
// to "unknown" when absent.
func cveIDsOf(vulns []external.Node) []string {
	out := make([]string, 0, len(vulns))
	for _, v := range vulns {
		cveID := propString(v.Properties, "cve_id")
		if cveID == "" {
			cveID = "unknown"
		}
		out = append(out, cveID)
	}
	return out
}

func uniqueStrings(ss []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func maxRiskScore(paths []external.AttackPath) float64 {
	max := 0.0
	for _, p := range paths {
		if p.RiskScore > max {
			max = p.RiskScore
		}
	}
	return max
}
