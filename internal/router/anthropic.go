package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"piebot/internal/domain"
)

// anthropicBackend is the optional, non-core backend kind: it turns each
// of plan/execute/critique into one Claude call, asking the model to
// respond with a single JSON object matching the operation's expected
// shape, and parses that text back into the domain type. Narrowed from
// the teacher's (borisdali-helpdesk/internal/model) ADK-request
// translation layer down to one prompt-in, JSON-out round trip per
// operation, since this router has no ADK content/part model to bridge.
type anthropicBackend struct {
	client anthropic.Client
	model  string
}

func newAnthropicBackend(cfg ModelConfig) (Backend, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	name, _ := cfg.Params["model"].(string)
	if name == "" {
		name = "claude-3-5-sonnet-latest"
	}
	return &anthropicBackend{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  name,
	}, nil
}

func (b *anthropicBackend) Plan(obs domain.Observation) (domain.ToolPlan, error) {
	var plan domain.ToolPlan
	prompt := fmt.Sprintf(
		"Propose a tool plan for this observation as a single JSON object with fields "+
			"tool_calls (array of {tool_name, args}) and note (string). Observation: %s",
		mustJSON(obs))
	if err := b.completeJSON(prompt, &plan); err != nil {
		return domain.ToolPlan{}, err
	}
	plan.RunId = obs.RunId
	plan.AgentType = domain.AgentPlanner
	return plan, nil
}

func (b *anthropicBackend) Execute(plan domain.ToolPlan) (domain.ToolPlan, error) {
	var out domain.ToolPlan
	prompt := fmt.Sprintf(
		"Review this tool plan and respond with the final JSON object (same shape) "+
			"to actually execute: %s", mustJSON(plan))
	if err := b.completeJSON(prompt, &out); err != nil {
		return domain.ToolPlan{}, err
	}
	out.RunId = plan.RunId
	out.AgentType = domain.AgentExecutor
	return out, nil
}

func (b *anthropicBackend) Critique(obs domain.Observation, results []domain.ToolResult) (domain.CriticReport, error) {
	var report domain.CriticReport
	prompt := fmt.Sprintf(
		"Judge these tool results for observation %s and respond with a single JSON "+
			"object with fields decision (one of \"passed\", \"retry\", \"failed\"), "+
			"reason, and retry_hint. Results: %s", obs.RunId, mustJSON(results))
	if err := b.completeJSON(prompt, &report); err != nil {
		return domain.CriticReport{}, err
	}
	report.RunId = obs.RunId
	return report, nil
}

// completeJSON sends prompt as a single user message and unmarshals the
// first text block of the reply into target.
func (b *anthropicBackend) completeJSON(prompt string, target any) error {
	ctx := context.Background()
	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: 2048,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	})
	if err != nil {
		return fmt.Errorf("anthropic API error: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		if err := json.Unmarshal([]byte(block.Text), target); err != nil {
			slog.Debug("anthropic backend: non-JSON text block", "text", block.Text)
			continue
		}
		return nil
	}
	return fmt.Errorf("anthropic response contained no parseable JSON text block")
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
