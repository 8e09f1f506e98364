// Package router implements the role router: configuration-driven mapping
// of orchestration roles (planner/executor/critic) to Backend instances,
// all exposed through the same three-operation interface.
//
// Grounded on the teacher's (borisdali-helpdesk/cmd/helpdesk)
// loadAgentsConfig/AgentConfig pattern — os.ExpandEnv over the raw bytes
// before yaml.Unmarshal, so deployment secrets can be interpolated from
// the environment — generalized from "agent name to backend URL" to
// "model name to backend kind."
package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelConfig describes one named model entry in the routing document.
type ModelConfig struct {
	Kind         string         `yaml:"kind"`
	Capabilities []string       `yaml:"capabilities"`
	Params       map[string]any `yaml:"params"`
}

// Config is the parsed role-router document: a table of named models and
// a table mapping roles to model names.
type Config struct {
	Models  map[string]ModelConfig `yaml:"models"`
	Routing map[string]string      `yaml:"routing"`
}

// nullLiteral is the normalized form the null YAML literal collapses to
// wherever it appears in a model's kind or in a routing entry, per
// spec.md §6 / §9's documented conflation: "no value configured" and
// "route explicitly to the null backend" are treated the same.
const nullLiteral = "null"

// LoadConfig reads, env-expands, and parses a role-router YAML document
// at path, then normalizes null literals to the string "null".
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read router config: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse router config: %w", err)
	}
	normalize(&cfg)
	return cfg, nil
}

// normalize rewrites an empty (YAML-null) kind or routing value to the
// literal string "null", so downstream lookups never need to special
// case the Go zero value.
func normalize(cfg *Config) {
	for name, model := range cfg.Models {
		if model.Kind == "" {
			model.Kind = nullLiteral
			cfg.Models[name] = model
		}
	}
	for role, model := range cfg.Routing {
		if model == "" {
			cfg.Routing[role] = nullLiteral
		}
	}
}
