// Package policy implements piebot's risk-classified policy engine: it maps
// a (tool name, risk class, arguments) triple to a ternary allow/deny/
// allow-with-approval decision, and supplies the redaction function the
// audit journal applies to every payload before it hits disk.
//
// Narrowed from the teacher's (borisdali-helpdesk/internal/policy) YAML
// rule-matching engine down to the four boolean gates spec.md names.
package policy

import (
	"log/slog"

	"piebot/internal/domain"
)

// SecurityConfig is the process-scoped configuration the engine evaluates
// against. Lifted into an explicit value (rather than read from globals at
// decision time) so callers and tests can construct it directly.
type SecurityConfig struct {
	// ExecutionArmed gates WRITE risk. When false, every WRITE is denied
	// with RequiresApproval=true, signalling the deny is policy-driven
	// and remediable by arming the system.
	ExecutionArmed bool

	// AllowExec gates EXEC risk.
	AllowExec bool

	// AllowNetwork gates NETWORK risk.
	AllowNetwork bool
}

// Engine evaluates policy decisions for tool invocations.
type Engine struct {
	cfg SecurityConfig
}

// NewEngine constructs an Engine bound to the given configuration.
func NewEngine(cfg SecurityConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Decide maps (toolName, risk, args) to a PolicyDecision. It never panics:
// an unrecognized risk class deterministically denies with no approval
// path, per spec.md §4.2.
func (e *Engine) Decide(toolName string, risk domain.RiskClass, args map[string]any) domain.PolicyDecision {
	decision := e.decide(risk)
	slog.Debug("policy decision",
		"tool", toolName,
		"risk", risk,
		"allow", decision.Allow,
		"requires_approval", decision.RequiresApproval,
		"reason", decision.Reason)
	return decision
}

func (e *Engine) decide(risk domain.RiskClass) domain.PolicyDecision {
	switch risk {
	case domain.RiskRead:
		return domain.PolicyDecision{Allow: true, RequiresApproval: false, Reason: "read is always allowed"}

	case domain.RiskWrite:
		if !e.cfg.ExecutionArmed {
			return domain.PolicyDecision{Allow: false, RequiresApproval: true, Reason: "execution not armed"}
		}
		return domain.PolicyDecision{Allow: true, RequiresApproval: true, Reason: "write requires approval"}

	case domain.RiskExec:
		if !e.cfg.AllowExec {
			return domain.PolicyDecision{Allow: false, RequiresApproval: false, Reason: "exec not allowed"}
		}
		return domain.PolicyDecision{Allow: true, RequiresApproval: true, Reason: "exec requires approval"}

	case domain.RiskNetwork:
		if !e.cfg.AllowNetwork {
			return domain.PolicyDecision{Allow: false, RequiresApproval: false, Reason: "network not allowed"}
		}
		return domain.PolicyDecision{Allow: true, RequiresApproval: true, Reason: "network requires approval"}

	default:
		return domain.PolicyDecision{Allow: false, RequiresApproval: false, Reason: "unknown risk class"}
	}
}
