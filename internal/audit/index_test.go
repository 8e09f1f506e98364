package audit

import (
	"context"
	"path/filepath"
	"testing"
)

func TestIndexRebuildAndQuery(t *testing.T) {
	j, path := openTestJournal(t)
	if _, err := j.Append("run1", RunStarted, map[string]any{"run_id": "run1"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := j.Append("run1", ToolExecuted, map[string]any{"tool_name": "file_read"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := j.Append("run1", RunCompleted, map[string]any{"attempts": 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	j.Close()

	events, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}

	idx, err := OpenIndex(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	if err := idx.Rebuild(ctx, events); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	all, err := idx.Query(ctx, QueryOptions{RunId: "run1"})
	if err != nil {
		t.Fatalf("query by run: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 indexed events, got %d", len(all))
	}

	toolOnly, err := idx.Query(ctx, QueryOptions{ToolName: "file_read"})
	if err != nil {
		t.Fatalf("query by tool: %v", err)
	}
	if len(toolOnly) != 1 || toolOnly[0].Type != ToolExecuted {
		t.Fatalf("expected exactly one ToolExecuted row for file_read, got %+v", toolOnly)
	}

	limited, err := idx.Query(ctx, QueryOptions{RunId: "run1", Limit: 1})
	if err != nil {
		t.Fatalf("query with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit=1 to return exactly one row, got %d", len(limited))
	}

	if err := idx.Rebuild(ctx, events); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	again, err := idx.Query(ctx, QueryOptions{RunId: "run1"})
	if err != nil {
		t.Fatalf("query after second rebuild: %v", err)
	}
	if len(again) != 3 {
		t.Fatalf("rebuild should replace rather than append rows; got %d", len(again))
	}
}
