package audit

import "fmt"

// Verify re-derives the hash chain over events and confirms, for each
// record: (a) prev_hash equals the previous record's hash (absent on the
// first record), and (b) the record's own hash matches its recomputed
// content hash. It returns the offending line number (1-indexed) on the
// first mismatch found.
func Verify(events []Event) error {
	var prevHash string
	for i, e := range events {
		line := i + 1

		if i == 0 {
			if e.PrevHash != "" {
				return fmt.Errorf("prev_hash mismatch at line %d", line)
			}
		} else if e.PrevHash != prevHash {
			return fmt.Errorf("prev_hash mismatch at line %d", line)
		}

		if computeHash(e) != e.Hash {
			return fmt.Errorf("hash mismatch at line %d", line)
		}

		prevHash = e.Hash
	}
	return nil
}
