package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreWritesCanonicalFile(t *testing.T) {
	root := t.TempDir()
	stored, err := Store(root, "call_1", map[string]any{"b": 1, "a": 2})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	wantPath := filepath.Join(root, "artifacts", "tool_results", "call_1.json")
	if stored.ArtifactPath != wantPath {
		t.Fatalf("path = %s, want %s", stored.ArtifactPath, wantPath)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != `{"a":2,"b":1}` {
		t.Fatalf("unexpected canonical bytes: %s", data)
	}
	if stored.Bytes != len(data) {
		t.Fatalf("bytes = %d, want %d", stored.Bytes, len(data))
	}
	if len(stored.ArtifactHash) != 64 {
		t.Fatalf("hash should be 64 hex chars, got %d", len(stored.ArtifactHash))
	}
}

func TestStoreUniquePerCallID(t *testing.T) {
	root := t.TempDir()
	Store(root, "call_a", map[string]any{"x": 1})
	Store(root, "call_b", map[string]any{"x": 2})

	entries, err := os.ReadDir(filepath.Join(root, "artifacts", "tool_results"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 artifact files, got %d", len(entries))
	}
}
