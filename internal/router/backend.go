package router

import "piebot/internal/domain"

// Backend is the closed interface every model kind implements. The
// orchestrator talks to backends only through this surface and never
// inspects which kind is behind it.
type Backend interface {
	Plan(obs domain.Observation) (domain.ToolPlan, error)
	Execute(plan domain.ToolPlan) (domain.ToolPlan, error)
	Critique(obs domain.Observation, results []domain.ToolResult) (domain.CriticReport, error)
}

// BackendFactory constructs a Backend from a model's declared
// configuration. Registered per kind in Router.
type BackendFactory func(model ModelConfig) (Backend, error)
