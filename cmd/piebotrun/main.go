// Command piebotrun drives one observation through the orchestrator's
// plan→execute→critique loop and prints the terminal RunResult as JSON.
//
// Grounded on the teacher's (borisdali-helpdesk/cmd/auditor,
// borisdali-helpdesk/cmd/approvals) one-shot, flag-parsed CLI convention:
// logging.Init strips -log-level first, remaining flags describe a single
// action, and the process exits non-zero when that action did not
// succeed.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"piebot/internal/approval"
	"piebot/internal/audit"
	"piebot/internal/domain"
	"piebot/internal/logging"
	"piebot/internal/orchestrator"
	"piebot/internal/policy"
	"piebot/internal/registry"
	"piebot/internal/router"
	"piebot/tools/fileread"
	"piebot/tools/gitdiff"
	"piebot/tools/patchapply"
)

func main() {
	args := logging.Init(os.Args[1:])

	var (
		observationPath = flag.String("observation", "", "path to a JSON Observation file (required)")
		journalPath     = flag.String("journal", "run.journal", "path to the run's audit journal file")
		routerConfig    = flag.String("router-config", "router.yaml", "path to the role-router YAML config")
		repoRoot        = flag.String("repo-root", ".", "repository root tool handlers may read and modify")
		runtimeRoot     = flag.String("runtime-root", ".", "runtime root artifacts and staged patches live under")
		maxAttempts     = flag.Int("max-attempts", orchestrator.DefaultMaxAttempts, "bounded retry ceiling for the run")
		approvalToken   = flag.String("approval-token-expected", "", "expected approval token (or set PIEBOT_APPROVAL_TOKEN)")
		executionArm    = flag.Bool("execution-arm", false, "allow WRITE-risk tools (or set EXECUTION_ARM=true)")
		allowExec       = flag.Bool("allow-exec", false, "allow EXEC-risk tools (or set ALLOW_EXEC=true)")
		allowNetwork    = flag.Bool("allow-network", false, "allow NETWORK-risk tools (or set ALLOW_NETWORK=true)")
	)
	flag.CommandLine.Parse(args)

	if *observationPath == "" {
		fmt.Fprintln(os.Stderr, "piebotrun: -observation is required")
		os.Exit(1)
	}

	if *approvalToken == "" {
		*approvalToken = os.Getenv("PIEBOT_APPROVAL_TOKEN")
	}
	if envBool("EXECUTION_ARM") {
		*executionArm = true
	}
	if envBool("ALLOW_EXEC") {
		*allowExec = true
	}
	if envBool("ALLOW_NETWORK") {
		*allowNetwork = true
	}

	obs, err := loadObservation(*observationPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piebotrun: %v\n", err)
		os.Exit(1)
	}

	cfg, err := router.LoadConfig(*routerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piebotrun: %v\n", err)
		os.Exit(1)
	}

	journal, err := audit.Open(*journalPath, policy.Redact)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piebotrun: %v\n", err)
		os.Exit(1)
	}
	defer journal.Close()

	pol := policy.NewEngine(policy.SecurityConfig{
		ExecutionArmed: *executionArm,
		AllowExec:      *allowExec,
		AllowNetwork:   *allowNetwork,
	})
	gate := approval.NewGate(*approvalToken)

	toolCtx := domain.ToolContext{RepoRoot: *repoRoot, RuntimeRoot: *runtimeRoot}
	reg := registry.New(toolCtx, pol, gate, journal)
	for _, spec := range []domain.ToolSpec{fileread.Spec, gitdiff.Spec, patchapply.Spec} {
		if err := reg.Register(spec); err != nil {
			fmt.Fprintf(os.Stderr, "piebotrun: %v\n", err)
			os.Exit(1)
		}
	}

	rtr := router.New(cfg)
	orch := orchestrator.New(rtr, reg, journal, *maxAttempts)

	result := orch.RunOnce(obs)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "piebotrun: marshal result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if !result.Ok {
		slog.Error("run failed", "run_id", result.RunId, "error", result.Error)
		os.Exit(1)
	}
}

func loadObservation(path string) (domain.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("read observation: %w", err)
	}
	var obs domain.Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return domain.Observation{}, fmt.Errorf("parse observation: %w", err)
	}
	return obs, nil
}

// envBool parses a case-insensitive, trimmed truthy set out of an
// environment variable, not just the literal string "true".
func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
