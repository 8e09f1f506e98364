// Package fileread implements a read-only file-content tool handler: a
// worked example exercising the registry's RiskRead path end to end.
package fileread

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"piebot/internal/domain"
)

// Name is the tool's registered name.
const Name = "file_read"

// Handler reads a repo-relative file and returns its text, size, and a
// content hash. args must carry a non-empty "path"; the path must resolve
// within ctx.RepoRoot — parent traversal is rejected.
func Handler(args map[string]any, ctx domain.ToolContext) (map[string]any, error) {
	rel, _ := args["path"].(string)
	if rel == "" {
		return nil, fmt.Errorf("path is required")
	}

	full := filepath.Join(ctx.RepoRoot, rel)
	cleanRoot := filepath.Clean(ctx.RepoRoot)
	if !strings.HasPrefix(filepath.Clean(full), cleanRoot+string(os.PathSeparator)) && filepath.Clean(full) != cleanRoot {
		return nil, fmt.Errorf("path escapes repo root: %s", rel)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}

	sum := sha256.Sum256(data)
	return map[string]any{
		"path":   rel,
		"size":   len(data),
		"text":   string(data),
		"sha256": hex.EncodeToString(sum[:]),
	}, nil
}

// Spec is the ToolSpec registration for file_read.
var Spec = domain.ToolSpec{
	Name: Name,
	Risk: domain.RiskRead,
	Schema: map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
		"required":   []string{"path"},
	},
	Handler: Handler,
}
