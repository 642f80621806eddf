// Package externaltest provides hand-written in-memory fakes for the
// external package's interfaces, used by playbook and agent-runtime tests
// the way the teacher SDK's own test suites hand-roll mocks rather than
// reaching for a mocking framework (e.g. framework_test.go).
package externaltest

import (
	"context"
	"encoding/json"

	"github.com/sentinel-platform/sentinel/external"
)

// LLMProvider is a scripted external.LLMProvider: CompleteFunc and
// CompleteStructuredFunc are called directly if set, otherwise a canned
// default response is returned.
type LLMProvider struct {
	CompleteFunc           func(ctx context.Context, messages []external.Message, system string, maxTokens int) (external.CompletionResponse, error)
	StructuredResponseJSON string
}

func (m *LLMProvider) Complete(ctx context.Context, messages []external.Message, system string, maxTokens int) (external.CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages, system, maxTokens)
	}
	return external.CompletionResponse{Content: "summary unavailable in test", Model: "mock"}, nil
}

func (m *LLMProvider) CompleteStructured(ctx context.Context, messages []external.Message, schema any, system string, maxTokens int, out any) error {
	if m.StructuredResponseJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(m.StructuredResponseJSON), out)
}

// SiemProtocol is a scripted external.SiemProtocol. ExecuteQuery carries
// no query name (matching the real protocol it fakes), so responses are
// consumed from Sequence in call order — callers script fixtures in the
// same order the playbook under test is known to issue its queries.
type SiemProtocol struct {
	Sequence []external.QueryResult
	Calls    []map[string]any
}

func (m *SiemProtocol) ExecuteQuery(ctx context.Context, queryDSL map[string]any, index string, size int, sort []external.SortField, aggs map[string]any) (external.QueryResult, error) {
	idx := len(m.Calls)
	m.Calls = append(m.Calls, queryDSL)
	if idx < len(m.Sequence) {
		return m.Sequence[idx], nil
	}
	return external.QueryResult{}, nil
}

func (m *SiemProtocol) DiscoverIndices(ctx context.Context, pattern string) ([]string, error) {
	return nil, nil
}

// GraphProtocol is a scripted external.GraphProtocol backed by label-keyed
// node lists and static edge/path/blast-radius responses.
type GraphProtocol struct {
	NodesByLabel    map[string][]external.Node
	NeighborsByNode map[string][]external.Node
	Edges           []external.Edge
	AttackPaths     external.AttackPathsResult
	Blast           external.BlastRadius
}

func (m *GraphProtocol) QueryNodes(ctx context.Context, label, tenantID string, filters map[string]any, limit int) ([]external.Node, error) {
	return m.NodesByLabel[label], nil
}

func (m *GraphProtocol) QueryNeighbors(ctx context.Context, nodeID, tenantID string, edgeTypes, targetLabels []string, limit int) ([]external.Node, error) {
	return m.NeighborsByNode[nodeID], nil
}

func (m *GraphProtocol) QueryEdges(ctx context.Context, tenantID string, edgeType, sourceLabel, targetLabel string, limit int) ([]external.Edge, error) {
	if edgeType == "" {
		return m.Edges, nil
	}
	var out []external.Edge
	for _, e := range m.Edges {
		if e.Type == edgeType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *GraphProtocol) FindAttackPaths(ctx context.Context, tenantID string, sources, targets []string, maxDepth, maxPaths int, includeLateral, includeBlast bool) (external.AttackPathsResult, error) {
	return m.AttackPaths, nil
}

func (m *GraphProtocol) ComputeBlastRadius(ctx context.Context, tenantID, nodeID string, maxHops int, minExploitability float64) (external.BlastRadius, error) {
	return m.Blast, nil
}
