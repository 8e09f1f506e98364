package orchestrator

import (
	"path/filepath"
	"testing"

	"piebot/internal/approval"
	"piebot/internal/audit"
	"piebot/internal/domain"
	"piebot/internal/policy"
	"piebot/internal/registry"
	"piebot/internal/router"
)

func newTestOrchestrator(t *testing.T, maxAttempts int) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "audit.jsonl")
	journal, err := audit.Open(journalPath, nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { journal.Close() })

	ctx := domain.ToolContext{RepoRoot: dir, RuntimeRoot: dir}
	eng := policy.NewEngine(policy.SecurityConfig{})
	gate := approval.NewGate("")
	reg := registry.New(ctx, eng, gate, journal)
	reg.Register(domain.ToolSpec{
		Name: "file_read",
		Risk: domain.RiskRead,
		Handler: func(args map[string]any, tctx domain.ToolContext) (map[string]any, error) {
			path, _ := args["path"].(string)
			if path == "" || path == "missing.txt" {
				return nil, errNotFound
			}
			return map[string]any{"path": path, "content": "ok"}, nil
		},
	})

	r := router.New(router.Config{
		Models:  map[string]router.ModelConfig{"stub": {Kind: "null"}},
		Routing: map[string]string{"planner": "stub", "executor": "stub", "critic": "stub"},
	})

	return New(r, reg, journal, maxAttempts), journalPath
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "file not found" }

var errNotFound = notFoundErr{}

func TestRunOnceFileReadHappyPath(t *testing.T) {
	orc, journalPath := newTestOrchestrator(t, 2)
	obs := domain.Observation{
		RunId: "run1",
		Kind:  "file_read",
		Data:  map[string]any{"path": "a.go"},
	}

	result := orc.RunOnce(obs)
	if !result.Ok {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if len(result.ToolResults) != 1 || !result.ToolResults[0].Ok {
		t.Fatalf("unexpected tool results: %+v", result.ToolResults)
	}

	events, err := audit.ReadAll(journalPath)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if events[0].Type != audit.RunStarted {
		t.Fatalf("first event = %s, want RunStarted", events[0].Type)
	}
	last := events[len(events)-1]
	if last.Type != audit.RunCompleted {
		t.Fatalf("last event = %s, want RunCompleted", last.Type)
	}
}

func TestRunOnceMissingFileRetriesThenFails(t *testing.T) {
	orc, journalPath := newTestOrchestrator(t, 2)
	obs := domain.Observation{
		RunId: "run2",
		Kind:  "file_read",
		Data:  map[string]any{"path": "missing.txt"},
	}

	result := orc.RunOnce(obs)
	if result.Ok {
		t.Fatal("expected failure after exhausting retries")
	}
	if result.Error == "" {
		t.Fatal("expected a non-empty failure reason")
	}

	events, err := audit.ReadAll(journalPath)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}

	planProposedCount := 0
	for _, e := range events {
		if e.Type == audit.PlanProposed {
			planProposedCount++
		}
	}
	// Two PlanProposed events per attempt (planner view + executor view),
	// two attempts.
	if planProposedCount != 4 {
		t.Fatalf("PlanProposed count = %d, want 4", planProposedCount)
	}

	last := events[len(events)-1]
	if last.Type != audit.RunFailed {
		t.Fatalf("last event = %s, want RunFailed", last.Type)
	}
}

func TestRunOnceUnroutedRoleFailsRun(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "audit.jsonl")
	journal, err := audit.Open(journalPath, nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	ctx := domain.ToolContext{RepoRoot: dir, RuntimeRoot: dir}
	reg := registry.New(ctx, policy.NewEngine(policy.SecurityConfig{}), approval.NewGate(""), journal)
	r := router.New(router.Config{
		Models:  map[string]router.ModelConfig{"stub": {Kind: "null"}},
		Routing: map[string]string{"planner": "stub"},
	})
	orc := New(r, reg, journal, 2)

	result := orc.RunOnce(domain.Observation{RunId: "run3", Data: map[string]any{}})
	if result.Ok {
		t.Fatal("expected failure when executor role is unrouted")
	}
}
