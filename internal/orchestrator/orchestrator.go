// Package orchestrator drives the planner→executor→critic control loop:
// resolve backends, propose and transform a plan, invoke each call
// through the registry, let the critic judge the attempt, and retry up
// to a bounded number of attempts.
//
// Grounded on the teacher's (borisdali-helpdesk/cmd/helpdesk)
// orchestrator.go attempt-numbered control flow and outcome/retry
// vocabulary, replacing its ADK remote-agent delegation with the
// in-process three-operation Backend interface from internal/router,
// since this orchestrator talks to backends directly rather than over
// a network transport.
package orchestrator

import (
	"fmt"

	"piebot/internal/audit"
	"piebot/internal/domain"
	"piebot/internal/registry"
	"piebot/internal/router"
)

// DefaultMaxAttempts is the bounded-retry ceiling spec.md §4.8 names.
const DefaultMaxAttempts = 2

// Orchestrator runs one observation through the planner/executor/critic
// loop, emitting the full run event sequence to a single Journal.
type Orchestrator struct {
	router      *router.Router
	registry    *registry.Registry
	journal     *audit.Journal
	maxAttempts int
}

// New constructs an Orchestrator bound to a Router, a Registry, and the
// Journal that both will emit into. maxAttempts <= 0 uses
// DefaultMaxAttempts.
func New(r *router.Router, reg *registry.Registry, journal *audit.Journal, maxAttempts int) *Orchestrator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Orchestrator{router: r, registry: reg, journal: journal, maxAttempts: maxAttempts}
}

// RunOnce executes the full per-run event sequence of spec.md §4.8 over
// a single observation and returns the terminal RunResult. It never
// panics: any error raised by a backend or the registry is caught,
// classified, emitted as RunFailed, and folded into the returned result.
func (o *Orchestrator) RunOnce(obs domain.Observation) (result domain.RunResult) {
	runID := obs.RunId
	defer func() {
		if rec := recover(); rec != nil {
			result = o.fail(runID, nil, fmt.Sprintf("Panic: %v", rec), 0)
		}
	}()

	o.emit(runID, audit.RunStarted, map[string]any{"run_id": runID})
	o.emit(runID, audit.ObservationCaptured, map[string]any{"kind": obs.Kind, "data": obs.Data})

	var cumulative []domain.ToolResult

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		planner, err := o.router.GetBackendForRole("planner")
		if err != nil {
			return o.fail(runID, cumulative, fmt.Sprintf("BackendResolution: %s", err), attempt)
		}
		executor, err := o.router.GetBackendForRole("executor")
		if err != nil {
			return o.fail(runID, cumulative, fmt.Sprintf("BackendResolution: %s", err), attempt)
		}
		critic, err := o.router.GetBackendForRole("critic")
		if err != nil {
			return o.fail(runID, cumulative, fmt.Sprintf("BackendResolution: %s", err), attempt)
		}

		proposal, err := planner.Plan(obs)
		if err != nil {
			return o.fail(runID, cumulative, fmt.Sprintf("PlannerError: %s", err), attempt)
		}
		o.emit(runID, audit.PlanProposed, planProposedPayload(attempt, proposal))

		executed, err := executor.Execute(proposal)
		if err != nil {
			return o.fail(runID, cumulative, fmt.Sprintf("ExecutorError: %s", err), attempt)
		}
		o.emit(runID, audit.PlanProposed, planProposedPayload(attempt, executed))

		attemptResults := make([]domain.ToolResult, 0, len(executed.ToolCalls))
		for _, call := range executed.ToolCalls {
			callResult := o.registry.Invoke(runID, call.ToolName, call.Args)
			attemptResults = append(attemptResults, callResult)
			cumulative = append(cumulative, callResult)
		}

		report, err := critic.Critique(obs, attemptResults)
		if err != nil {
			return o.fail(runID, cumulative, fmt.Sprintf("CriticError: %s", err), attempt)
		}
		o.emit(runID, audit.CriticReport, map[string]any{
			"attempt":    attempt,
			"decision":   string(report.Decision),
			"reason":     report.Reason,
			"retry_hint": report.RetryHint,
		})

		switch report.Decision {
		case domain.DecisionPassed:
			o.emit(runID, audit.RunCompleted, map[string]any{"attempts": attempt})
			return domain.RunResult{RunId: runID, Ok: true, ToolResults: cumulative}

		case domain.DecisionRetry:
			if attempt < o.maxAttempts {
				continue
			}
			return o.fail(runID, cumulative, report.Reason, attempt)

		case domain.DecisionFailed:
			return o.fail(runID, cumulative, report.Reason, attempt)

		default:
			return o.fail(runID, cumulative, fmt.Sprintf("unrecognized critic decision %q", report.Decision), attempt)
		}
	}

	return o.fail(runID, cumulative, "exhausted attempts", o.maxAttempts)
}

// fail emits RunFailed and builds the failed RunResult.
func (o *Orchestrator) fail(runID string, cumulative []domain.ToolResult, reason string, attempts int) domain.RunResult {
	o.emit(runID, audit.RunFailed, map[string]any{"error": reason, "attempts": attempts})
	return domain.RunResult{RunId: runID, Ok: false, ToolResults: cumulative, Error: reason}
}

func (o *Orchestrator) emit(runID string, typ audit.EventType, payload map[string]any) {
	o.journal.Append(runID, typ, payload) //nolint:errcheck
}

func planProposedPayload(attempt int, plan domain.ToolPlan) map[string]any {
	calls := make([]map[string]any, len(plan.ToolCalls))
	for i, c := range plan.ToolCalls {
		calls[i] = map[string]any{"tool_name": c.ToolName, "args": c.Args}
	}
	return map[string]any{
		"attempt":    attempt,
		"agent_type": string(plan.AgentType),
		"tool_calls": calls,
		"note":       plan.Note,
	}
}
