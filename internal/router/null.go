package router

import (
	"fmt"
	"strings"

	"piebot/internal/domain"
)

// nullBackend is the deterministic stub backend spec.md §9 requires: no
// real model call, predictable output from its input alone, so that
// orchestrator runs against it are fully reproducible in tests and in
// the replayer. It is the only backend kind the core requires.
type nullBackend struct{}

func newNullBackend(ModelConfig) (Backend, error) {
	return nullBackend{}, nil
}

// fileReadToolName must match tools/fileread.Name; kept as a local
// literal rather than an import so this stub has no dependency on a
// concrete tool package.
const fileReadToolName = "file_read"

// Plan special-cases obs.Kind == "file_read" to synthesize a file_read
// ToolCall from obs.Data["path"], and otherwise falls back to an explicit
// "tool_calls" sideband in obs.Data, if present. An observation that
// matches neither produces an empty plan with an explanatory note.
func (nullBackend) Plan(obs domain.Observation) (domain.ToolPlan, error) {
	if obs.Kind == "file_read" {
		path := strings.TrimSpace(stringField(obs.Data, "path"))
		if path == "" {
			return domain.ToolPlan{
				RunId:     obs.RunId,
				AgentType: domain.AgentPlanner,
				ToolCalls: nil,
				Note:      "missing path",
			}, nil
		}
		call := domain.ToolCall{
			RunId:    obs.RunId,
			ToolName: fileReadToolName,
			Args:     map[string]any{"path": path},
		}
		return domain.ToolPlan{
			RunId:     obs.RunId,
			AgentType: domain.AgentPlanner,
			ToolCalls: []domain.ToolCall{call},
			Note:      "read file",
		}, nil
	}

	calls, err := extractToolCalls(obs)
	if err != nil {
		return domain.ToolPlan{}, err
	}
	note := ""
	if len(calls) == 0 {
		note = "no tool_calls present in observation data"
	}
	return domain.ToolPlan{
		RunId:     obs.RunId,
		AgentType: domain.AgentPlanner,
		ToolCalls: calls,
		Note:      note,
	}, nil
}

// Execute passes the planner's calls through unchanged, restamped as the
// executor's view. The stub performs no rewriting of its own.
func (nullBackend) Execute(plan domain.ToolPlan) (domain.ToolPlan, error) {
	return domain.ToolPlan{
		RunId:     plan.RunId,
		AgentType: domain.AgentExecutor,
		ToolCalls: plan.ToolCalls,
		Note:      plan.Note,
	}, nil
}

// Critique passes when every result in the current attempt succeeded,
// and otherwise retries, citing the first failure's error as the reason.
func (nullBackend) Critique(obs domain.Observation, results []domain.ToolResult) (domain.CriticReport, error) {
	for _, r := range results {
		if !r.Ok {
			return domain.CriticReport{
				RunId:    obs.RunId,
				Decision: domain.DecisionRetry,
				Reason:   r.Error,
			}, nil
		}
	}
	return domain.CriticReport{
		RunId:    obs.RunId,
		Decision: domain.DecisionPassed,
		Reason:   "all tool calls succeeded",
	}, nil
}

// stringField reads a string-typed field out of data, returning "" if
// absent or not a string.
func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// extractToolCalls reads obs.Data["tool_calls"] as a []any of
// map[string]any entries with "tool_name" and optional "args" keys.
func extractToolCalls(obs domain.Observation) ([]domain.ToolCall, error) {
	raw, ok := obs.Data["tool_calls"]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("observation data tool_calls must be a list")
	}

	calls := make([]domain.ToolCall, 0, len(items))
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tool_calls[%d] must be a mapping", i)
		}
		name, _ := entry["tool_name"].(string)
		if name == "" {
			return nil, fmt.Errorf("tool_calls[%d] missing tool_name", i)
		}
		args, _ := entry["args"].(map[string]any)
		calls = append(calls, domain.ToolCall{
			RunId:    obs.RunId,
			ToolName: name,
			Args:     args,
		})
	}
	return calls, nil
}
