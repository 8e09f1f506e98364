package patchapply

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"piebot/internal/domain"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	run("init")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("line one\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "a.txt")
	run("commit", "-m", "initial")
	return dir
}

const samplePatch = `diff --git a/a.txt b/a.txt
index 02bff51..c730c45 100644
--- a/a.txt
+++ b/a.txt
@@ -1 +1 @@
-line one
+line two
`

func TestHandlerAppliesStagedPatch(t *testing.T) {
	repo := initRepo(t)
	runtime := t.TempDir()
	stageDir := filepath.Join(runtime, stagingDir)
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stageDir, "change.patch"), []byte(samplePatch), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := Handler(map[string]any{"filename": "change.patch"}, domain.ToolContext{RepoRoot: repo, RuntimeRoot: runtime})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if out["diff_hash"] == "" {
		t.Fatal("expected a non-empty diff_hash")
	}
	if out["diff_file"] != "change.patch" {
		t.Fatalf("diff_file = %v, want %q", out["diff_file"], "change.patch")
	}
	if out["applied"] != true {
		t.Fatalf("applied = %v, want true", out["applied"])
	}

	data, err := os.ReadFile(filepath.Join(repo, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "line two\n" {
		t.Fatalf("file content = %q, want %q", data, "line two\n")
	}
}

func TestHandlerRejectsPathSeparatorInFilename(t *testing.T) {
	_, err := Handler(map[string]any{"filename": "../escape.patch"}, domain.ToolContext{RepoRoot: t.TempDir(), RuntimeRoot: t.TempDir()})
	if err == nil {
		t.Fatal("expected path separator in filename to be rejected")
	}
}

func TestHandlerRejectsMissingFilename(t *testing.T) {
	_, err := Handler(map[string]any{}, domain.ToolContext{RepoRoot: t.TempDir(), RuntimeRoot: t.TempDir()})
	if err == nil {
		t.Fatal("expected missing filename to be rejected")
	}
}

func TestHandlerFailsWhenPatchNotStaged(t *testing.T) {
	repo := initRepo(t)
	_, err := Handler(map[string]any{"filename": "nope.patch"}, domain.ToolContext{RepoRoot: repo, RuntimeRoot: t.TempDir()})
	if err == nil {
		t.Fatal("expected an error when the staged patch file does not exist")
	}
}
