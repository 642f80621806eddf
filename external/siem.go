package external

import "context"

// Event is one SIEM log record. Raw carries the full source document;
// the typed fields surface the ones hunt playbooks read most often.
type Event struct {
	ID         string
	Index      string
	Timestamp  string
	SourceIP   string
	DestIP     string
	SourcePort int
	DestPort   int
	EventType  string
	Severity   string
	Message    string
	User       string
	Hostname   string
	Raw        map[string]any
}

// SortField is one entry in a SIEM sort clause, e.g. {"@timestamp": "desc"}.
type SortField struct {
	Field string
	Order string
}

// QueryResult is the outcome of one SIEM query.
type QueryResult struct {
	Events       []Event
	TotalHits    int
	TookMS       int
	TimedOut     bool
	Aggregations map[string]any
}

// SiemProtocol is the read-only query surface hunt playbooks use to reach
// the SIEM (spec §6). Queries are query-DSL maps (e.g. Elasticsearch Query
// DSL); this core treats them as opaque.
type SiemProtocol interface {
	ExecuteQuery(ctx context.Context, queryDSL map[string]any, index string, size int, sort []SortField, aggs map[string]any) (QueryResult, error)
	DiscoverIndices(ctx context.Context, pattern string) ([]string, error)
}
