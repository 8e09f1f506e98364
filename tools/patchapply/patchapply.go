// Package patchapply implements the write-risk diff-applier tool named
// in spec.md §6's patch file staging contract: patch text must already
// be staged under the runtime root, referenced by filename only.
package patchapply

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"piebot/internal/domain"
)

// Name is the tool's registered name.
const Name = "patch_apply"

// stagingDir is where patch text must already live, relative to the
// runtime root, per spec.md §6.
const stagingDir = "artifacts/diffs"

// Handler applies a pre-staged patch file via `git apply`. args must
// carry a non-empty "filename" referring to a file directly under
// <runtime_root>/artifacts/diffs — no path separators or parent
// traversal are accepted, since the filename is taken as-is to build the
// staged path.
func Handler(args map[string]any, ctx domain.ToolContext) (map[string]any, error) {
	filename, _ := args["filename"].(string)
	if filename == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if strings.ContainsAny(filename, `/\`) || filename == ".." || filename == "." {
		return nil, fmt.Errorf("filename must not contain path separators or parent traversal: %s", filename)
	}

	stagedPath := filepath.Join(ctx.RuntimeRoot, stagingDir, filename)
	data, err := os.ReadFile(stagedPath)
	if err != nil {
		return nil, fmt.Errorf("read staged patch %s: %w", filename, err)
	}
	sum := sha256.Sum256(data)

	cmd := exec.Command("git", "apply", stagedPath)
	cmd.Dir = ctx.RepoRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git apply: %w: %s", err, stderr.String())
	}

	return map[string]any{
		"applied":   true,
		"diff_file": filename,
		"diff_hash": hex.EncodeToString(sum[:]),
	}, nil
}

// Spec is the ToolSpec registration for patch_apply. It is RiskWrite: it
// mutates the repository working tree.
var Spec = domain.ToolSpec{
	Name: Name,
	Risk: domain.RiskWrite,
	Schema: map[string]any{
		"type":       "object",
		"properties": map[string]any{"filename": map[string]any{"type": "string"}},
		"required":   []string{"filename"},
	},
	Handler: Handler,
}
