package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"piebot/pkg/canon"
)

// tailScanWindow bounds how much of an existing journal file is re-read on
// open to recover the chain tip. spec.md §9 leaves the window size an
// implementer choice; grown from the 8 KiB floor to 64 KiB here (see
// DESIGN.md). A single record larger than this window is not recoverable:
// the next append starts a fresh chain, exactly as spec.md documents.
const tailScanWindow = 64 * 1024

// Journal is the single writer for one run's append-only audit log: a
// line-delimited file of canonical JSON Events, one per line, each
// trailer-newline-terminated.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	tip    string // hash of the last appended record; "" if none yet
	redact redactFunc
}

// Open opens (creating if necessary) the journal file at path, recovering
// the chain tip from its tail if records already exist.
func Open(path string, redact redactFunc) (*Journal, error) {
	if redact == nil {
		redact = func(s string) string { return s }
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{path: path, file: f, redact: redact}
	tip, err := recoverTip(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("recover journal tip: %w", err)
	}
	j.tip = tip
	return j, nil
}

// recoverTip reads a bounded tail window of the file and parses the last
// non-empty line's hash field. Returns "" (absent) if nothing parseable
// is found.
func recoverTip(f *os.File) (string, error) {
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()
	if size == 0 {
		return "", nil
	}

	readFrom := size - tailScanWindow
	if readFrom < 0 {
		readFrom = 0
	}
	buf := make([]byte, size-readFrom)
	if _, err := f.ReadAt(buf, readFrom); err != nil {
		return "", err
	}

	lines := bytes.Split(bytes.TrimRight(buf, "\n"), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			return "", nil
		}
		hash, _ := raw["hash"].(string)
		return hash, nil
	}
	return "", nil
}

// Append constructs an event, redacts its payload, computes its hash
// chained off the current tip, writes it as one canonical-JSON line, and
// advances the tip. This is the only way an Event is ever created.
func (j *Journal) Append(runID string, typ EventType, payload map[string]any) (Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e := newEvent(runID, typ, payload)
	e.Payload = redactPayload(e.Payload, j.redact).(map[string]any)
	if j.tip != "" {
		e.PrevHash = j.tip
	}
	e.Hash = computeHash(e)

	line := append(canon.Bytes(e), '\n')
	if _, err := j.file.Write(line); err != nil {
		return Event{}, fmt.Errorf("append audit event: %w", err)
	}
	j.tip = e.Hash
	return e, nil
}

// Close releases the journal's file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// ReadAll reads every non-empty line from the journal file at path, in
// order, tolerating and skipping blank lines per spec.md §6.
func ReadAll(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal for read: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse journal line: %w", err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return events, nil
}
