package router

import "fmt"

// Router resolves orchestration roles to Backend instances per the
// loaded Config, constructing (and caching) one Backend per distinct
// model name the first time it is requested.
type Router struct {
	cfg       Config
	factories map[string]BackendFactory
	cache     map[string]Backend
}

// New constructs a Router over cfg with the built-in "null" kind always
// registered; callers may register additional kinds (e.g. "anthropic")
// with RegisterKind before the first GetBackendForRole call.
func New(cfg Config) *Router {
	r := &Router{
		cfg:       cfg,
		factories: map[string]BackendFactory{"null": newNullBackend},
		cache:     make(map[string]Backend),
	}
	r.factories["anthropic"] = newAnthropicBackend
	return r
}

// RegisterKind adds or replaces the factory for a backend kind.
func (r *Router) RegisterKind(kind string, factory BackendFactory) {
	r.factories[kind] = factory
}

// GetBackendForRole resolves role (planner/executor/critic) to a Backend
// per spec.md §4.7: an unrouted role, a routed-but-undeclared model, or
// an unimplemented kind are each distinct, named failures.
func (r *Router) GetBackendForRole(role string) (Backend, error) {
	modelName, routed := r.cfg.Routing[role]
	if !routed {
		return nil, fmt.Errorf("no model routed for role")
	}

	if backend, cached := r.cache[modelName]; cached {
		return backend, nil
	}

	model, declared := r.cfg.Models[modelName]
	if !declared {
		return nil, fmt.Errorf("routed model not defined")
	}

	factory, implemented := r.factories[model.Kind]
	if !implemented {
		return nil, fmt.Errorf("model kind not implemented")
	}

	backend, err := factory(model)
	if err != nil {
		return nil, fmt.Errorf("construct backend for role %s: %w", role, err)
	}
	r.cache[modelName] = backend
	return backend, nil
}
