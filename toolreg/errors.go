package toolreg

import "fmt"

// PolicyViolation is raised when a tool call is denied, either because the
// calling agent type is not in the tool's allowlist or because the policy
// engine denied it. It carries the tool name and the reasons so callers can
// surface a precise explanation.
type PolicyViolation struct {
	Tool    string
	Reasons []string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("toolreg: tool %q denied: %v", e.Tool, e.Reasons)
}

// UnknownToolError is raised when no tool is registered under the given name.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("toolreg: no tool registered with name %q", e.Name)
}

// AlreadyRegisteredError is raised by Register when a tool name is reused.
type AlreadyRegisteredError struct {
	Name string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("toolreg: tool %q is already registered", e.Name)
}
