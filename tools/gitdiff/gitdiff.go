// Package gitdiff implements a read-only tool handler that shells out to
// `git diff` within the repo root: a worked example of a RiskRead tool
// whose handler invokes an external process rather than touching the
// filesystem directly.
package gitdiff

import (
	"bytes"
	"fmt"
	"os/exec"

	"piebot/internal/domain"
)

// Name is the tool's registered name.
const Name = "git_diff"

// Handler runs `git diff [ref] [-- path]` inside ctx.RepoRoot. Both "ref"
// and "path" in args are optional; an empty ref diffs the working tree
// against HEAD.
func Handler(args map[string]any, ctx domain.ToolContext) (map[string]any, error) {
	gitArgs := []string{"diff"}
	if ref, _ := args["ref"].(string); ref != "" {
		gitArgs = append(gitArgs, ref)
	}
	if path, _ := args["path"].(string); path != "" {
		gitArgs = append(gitArgs, "--", path)
	}

	cmd := exec.Command("git", gitArgs...)
	cmd.Dir = ctx.RepoRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git diff: %w: %s", err, stderr.String())
	}

	return map[string]any{
		"diff": stdout.String(),
	}, nil
}

// Spec is the ToolSpec registration for git_diff.
var Spec = domain.ToolSpec{
	Name: Name,
	Risk: domain.RiskRead,
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ref":  map[string]any{"type": "string"},
			"path": map[string]any{"type": "string"},
		},
	},
	Handler: Handler,
}
