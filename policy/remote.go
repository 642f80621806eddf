package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultOPAURL = "http://localhost:8181"
	pathAgentBase      = "agent/base"
	pathResponseApproval = "response/approval"
)

// HTTPEngine is a client for an external OPA-conformant policy service,
// speaking its wire protocol exactly: POST /v1/data/{path} with
// {"input": <Input>}, expecting {"result": {...}} (spec §4.4, §6).
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

// HTTPOption configures an HTTPEngine.
type HTTPOption func(*HTTPEngine)

// WithHTTPClient overrides the default http.Client (e.g. for timeouts or
// test transports).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPEngine) {
		if c != nil {
			e.client = c
		}
	}
}

// NewHTTPEngine builds a client against baseURL (an OPA sidecar address by
// default).
func NewHTTPEngine(baseURL string, opts ...HTTPOption) *HTTPEngine {
	if baseURL == "" {
		baseURL = defaultOPAURL
	}
	e := &HTTPEngine{
		baseURL: trimTrailingSlash(baseURL),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

type evalRequest struct {
	Input Input `json:"input"`
}

type evalResponse struct {
	Result struct {
		Allow      bool           `json:"allow"`
		Tier       string         `json:"tier"`
		Reasons    []string       `json:"reasons"`
		Violations []string       `json:"violations"`
		Metadata   map[string]any `json:"metadata"`
	} `json:"result"`
}

// EvaluateAgentAction consults policy_path "agent/base".
func (e *HTTPEngine) EvaluateAgentAction(input Input) (Decision, error) {
	return e.evaluate(context.Background(), pathAgentBase, input)
}

// EvaluateResponseTier consults policy_path "response/approval".
func (e *HTTPEngine) EvaluateResponseTier(input Input) (Decision, error) {
	return e.evaluate(context.Background(), pathResponseApproval, input)
}

// evaluate performs the OPA POST and fails closed: any transport error or
// non-2xx response becomes a deny Decision, never an error returned to the
// caller, because the core must never fail open on a policy-service outage
// (spec §4.4, §7).
func (e *HTTPEngine) evaluate(ctx context.Context, policyPath string, input Input) (Decision, error) {
	body, err := json.Marshal(evalRequest{Input: input})
	if err != nil {
		return Decision{}, fmt.Errorf("policy: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/data/%s", e.baseURL, policyPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("policy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return denyServiceUnavailable(err.Error()), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return denyServiceUnavailable(fmt.Sprintf("policy service returned status %d", resp.StatusCode)), nil
	}

	var parsed evalResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return denyServiceUnavailable("policy service returned unparseable response"), nil
	}

	tier := Tier(parsed.Result.Tier)
	if !validTier(tier) {
		tier = TierDeny
	}

	return Decision{
		Allowed:    parsed.Result.Allow,
		Tier:       tier,
		Reasons:    parsed.Result.Reasons,
		Violations: parsed.Result.Violations,
		Metadata:   parsed.Result.Metadata,
	}, nil
}

func denyServiceUnavailable(reason string) Decision {
	return Decision{
		Allowed: false,
		Tier:    TierDeny,
		Reasons: []string{reason},
	}
}

func validTier(t Tier) bool {
	switch t {
	case TierAuto, TierFastTrack, TierReview, TierDeny:
		return true
	default:
		return false
	}
}
