// Command piebotreplay verifies a run journal's hash chain and ordering
// invariants and prints a one-line verdict.
//
// Grounded on the teacher's (borisdali-helpdesk/cmd/auditor) -verify mode:
// open the store, run integrity verification, report PASS/FAIL, exit
// accordingly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"piebot/internal/audit"
	"piebot/internal/logging"
)

func main() {
	args := logging.Init(os.Args[1:])

	journalPath := flag.String("journal", "run.journal", "path to the run's audit journal file")
	indexPath := flag.String("index", "", "optional sqlite path to rebuild a queryable index into on success")
	flag.CommandLine.Parse(args)

	events, err := audit.ReadAll(*journalPath)
	if err != nil {
		fmt.Printf("REPLAY FAIL: %v\n", err)
		os.Exit(1)
	}

	result, err := audit.Replay(events)
	if err != nil {
		fmt.Printf("REPLAY FAIL: %v\n", err)
		os.Exit(1)
	}

	if *indexPath != "" {
		if err := rebuildIndex(*indexPath, events); err != nil {
			slog.Warn("index rebuild failed", "path", *indexPath, "err", err)
		}
	}

	fmt.Printf("REPLAY OK: run_id=%s events=%d replay_state_hash=%s\n",
		result.RunId, result.EventCount, result.ReplayStateHash)
	os.Exit(0)
}

// rebuildIndex projects a verified journal into the sqlite-backed query
// index, so operators can filter a run's history by type or tool without
// re-parsing the journal file. The index is derived and disposable: a
// failure here never changes the replay verdict already printed.
func rebuildIndex(path string, events []audit.Event) error {
	idx, err := audit.OpenIndex(path)
	if err != nil {
		return err
	}
	defer idx.Close()
	return idx.Rebuild(context.Background(), events)
}
