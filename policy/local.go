package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// LocalEngine is an in-process conformance twin of the remote OPA service.
// The tables in tables.go are the source of truth; rather than a bare
// switch/map walk, the decision rules are compiled once into CEL programs
// and evaluated per call — giving the CEL dependency declared by the SDK
// this module was built from an actual consumer, instead of sitting unused.
type LocalEngine struct {
	env          *cel.Env
	blockedProg  cel.Program
	allowedProgs map[string]cel.Program
	tierProg     cel.Program
}

// NewLocalEngine compiles the agent-action and response-tier CEL programs
// once at construction time.
func NewLocalEngine() (*LocalEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("action", cel.StringType),
		cel.Variable("tiers", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: build cel env: %w", err)
	}

	blockedProg, err := compileExpr(env, blockedActionsExpr())
	if err != nil {
		return nil, fmt.Errorf("policy: compile blocked-actions expression: %w", err)
	}

	allowedProgs := make(map[string]cel.Program, len(allowedActions))
	for agentType, actions := range allowedActions {
		prog, err := compileExpr(env, actionInSetExpr(actions))
		if err != nil {
			return nil, fmt.Errorf("policy: compile allowlist for %q: %w", agentType, err)
		}
		allowedProgs[agentType] = prog
	}

	tierProg, err := compileTierExpr(env)
	if err != nil {
		return nil, fmt.Errorf("policy: compile tier expression: %w", err)
	}

	return &LocalEngine{
		env:          env,
		blockedProg:  blockedProg,
		allowedProgs: allowedProgs,
		tierProg:     tierProg,
	}, nil
}

func compileExpr(env *cel.Env, expr string) (cel.Program, error) {
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	return env.Program(ast)
}

func compileTierExpr(env *cel.Env) (cel.Program, error) {
	return compileExpr(env, `tiers[action]`)
}

func blockedActionsExpr() string {
	return actionInSetExpr(blockedActions)
}

// actionInSetExpr renders a CEL "action in [...]" membership expression
// over the given action set, in a deterministic key order so compiled
// programs are reproducible across process runs.
func actionInSetExpr(set map[string]bool) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sortStrings(names)

	expr := `action in [`
	for i, name := range names {
		if i > 0 {
			expr += ", "
		}
		expr += `"` + name + `"`
	}
	expr += `]`
	return expr
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// EvaluateAgentAction implements the allowlist rules from spec §4.4:
// blocked actions deny unconditionally, unknown agent types deny, actions
// outside the agent's allowlist deny, everything else allows with tier
// computed from the response-tier table.
func (e *LocalEngine) EvaluateAgentAction(input Input) (Decision, error) {
	blocked, _, err := e.blockedProg.Eval(map[string]any{"action": input.Action, "tiers": map[string]string{}})
	if err != nil {
		return Decision{}, fmt.Errorf("policy: eval blocked expression: %w", err)
	}
	if blocked.Value().(bool) {
		return Decision{
			Allowed:    false,
			Tier:       TierDeny,
			Reasons:    []string{fmt.Sprintf("action %q is unconditionally blocked", input.Action)},
			Violations: []string{"blocked_action"},
		}, nil
	}

	allowedProg, ok := e.allowedProgs[input.AgentType]
	if !ok {
		return Decision{
			Allowed:    false,
			Tier:       TierDeny,
			Reasons:    []string{fmt.Sprintf("unknown agent type %q", input.AgentType)},
			Violations: []string{"unknown_agent_type"},
		}, nil
	}

	allowed, _, err := allowedProg.Eval(map[string]any{"action": input.Action, "tiers": map[string]string{}})
	if err != nil {
		return Decision{}, fmt.Errorf("policy: eval allowlist expression: %w", err)
	}
	if !allowed.Value().(bool) {
		return Decision{
			Allowed:    false,
			Tier:       TierDeny,
			Reasons:    []string{fmt.Sprintf("action %q is not allowed for agent type %q", input.Action, input.AgentType)},
			Violations: []string{"action_not_allowed"},
		}, nil
	}

	tierDecision, err := e.EvaluateResponseTier(input)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: true, Tier: tierDecision.Tier}, nil
}

// EvaluateResponseTier implements the closed response-tier table from
// spec §4.4. Unknown actions default to TierReview; this evaluation always
// returns Allowed=true — tier is the payload, not a gate.
func (e *LocalEngine) EvaluateResponseTier(input Input) (Decision, error) {
	strTiers := make(map[string]string, len(tierTable))
	for action, tier := range tierTable {
		strTiers[action] = string(tier)
	}

	out, _, err := e.tierProg.Eval(map[string]any{"action": input.Action, "tiers": strTiers})
	if err != nil {
		// action absent from the map: cel-go returns a "no such key"
		// evaluation error rather than a zero value, so treat any
		// lookup failure as the documented default.
		return Decision{Allowed: true, Tier: TierReview}, nil
	}

	tierStr, ok := out.Value().(string)
	if !ok || tierStr == "" {
		return Decision{Allowed: true, Tier: TierReview}, nil
	}
	return Decision{Allowed: true, Tier: Tier(tierStr)}, nil
}
