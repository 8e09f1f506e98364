package audit

import (
	"fmt"

	"piebot/pkg/canon"
)

// genesisState is the literal sentinel the replayer's derived state hash
// chain starts from.
const genesisState = "GENESIS"

// ReplayResult is what Replay produces on success.
type ReplayResult struct {
	RunId           string
	EventCount      int
	ReplayStateHash string
}

// Replay runs Verify, then enforces spec.md §4.3's ordering invariants:
// non-empty log, first event is RunStarted, all events share one run_id,
// exactly one terminal event (RunCompleted or RunFailed) with nothing
// after it, and every event has both type and hash populated. On success
// it derives and returns the terminal replay_state_hash.
func Replay(events []Event) (ReplayResult, error) {
	if err := Verify(events); err != nil {
		return ReplayResult{}, err
	}

	if len(events) == 0 {
		return ReplayResult{}, fmt.Errorf("missing terminal event: empty log")
	}

	if events[0].Type != RunStarted {
		return ReplayResult{}, fmt.Errorf("first event must be RunStarted")
	}

	runID := events[0].RunId
	terminalIdx := -1
	for i, e := range events {
		if e.Type == "" || e.Hash == "" {
			return ReplayResult{}, fmt.Errorf("event %d missing type or hash", i+1)
		}
		if e.RunId != runID {
			return ReplayResult{}, fmt.Errorf("event %d has a different run_id", i+1)
		}
		if terminalIdx != -1 {
			return ReplayResult{}, fmt.Errorf("events after terminal event")
		}
		if e.Type == RunCompleted || e.Type == RunFailed {
			terminalIdx = i
		}
	}
	if terminalIdx == -1 {
		return ReplayResult{}, fmt.Errorf("missing terminal event")
	}

	state := genesisState
	for _, e := range events {
		state = canon.Hash(map[string]any{
			"prev":       state,
			"event_hash": e.Hash,
			"type":       string(e.Type),
		})
	}

	return ReplayResult{RunId: runID, EventCount: len(events), ReplayStateHash: state}, nil
}
