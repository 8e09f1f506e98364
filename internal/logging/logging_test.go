package logging

import "testing"

func TestInitStripsLogLevelFlag(t *testing.T) {
	remaining := Init([]string{"--log-level=debug", "observation.json"})
	if len(remaining) != 1 || remaining[0] != "observation.json" {
		t.Fatalf("remaining = %v, want [observation.json]", remaining)
	}
}

func TestInitStripsSeparateFlagValue(t *testing.T) {
	remaining := Init([]string{"-log-level", "warn", "run.json"})
	if len(remaining) != 1 || remaining[0] != "run.json" {
		t.Fatalf("remaining = %v, want [run.json]", remaining)
	}
}

func TestInitLeavesUnrelatedArgsAlone(t *testing.T) {
	remaining := Init([]string{"a.json", "b.json"})
	if len(remaining) != 2 {
		t.Fatalf("remaining = %v, want 2 args untouched", remaining)
	}
}
