// Package state implements piebot's state adapter: a canonical JSON
// mapping persisted at a caller-supplied path, mutated only through a
// dot-path "set" patch vocabulary and rewritten whole on every
// successful delta.
//
// Grounded on the teacher's (borisdali-helpdesk/cmd/helpdesk)
// loadInfraConfig load-and-default pattern — read the file if present,
// otherwise seed and persist a default — generalized from a fixed
// InfraConfig struct to an opaque map[string]any.
package state

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"piebot/pkg/canon"
)

// Patch is one operation in a StateDelta. op is currently restricted to
// "set"; path is a dot-separated key path; value is the value to assign.
type Patch struct {
	Op    string
	Path  string
	Value any
}

// StateDelta is an ordered sequence of patches applied atomically: any
// patch failing aborts the whole delta with no partial persistence.
type StateDelta struct {
	Patches []Patch
}

// Adapter owns one state file: the sole writer, and the source of
// read-only snapshots handed to callers.
type Adapter struct {
	mu    sync.Mutex
	path  string
	state map[string]any
}

// LoadOrInit parses the state at path if it exists, or seeds a skeleton
// {"version": 1} and persists it immediately.
func LoadOrInit(path string) (*Adapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read state: %w", err)
		}
		a := &Adapter{path: path, state: map[string]any{"version": 1}}
		if err := a.persistLocked(); err != nil {
			return nil, err
		}
		return a, nil
	}

	parsed, err := canon.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	m, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("state file does not contain a JSON object")
	}
	return &Adapter{path: path, state: m}, nil
}

// Snapshot returns a deep copy of the current state, safe for the caller
// to read or retain without risk of aliasing the adapter's live state.
func (a *Adapter) Snapshot() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return deepCopy(a.state).(map[string]any)
}

// ApplyDelta applies every patch in delta in order. Any unsupported op or
// empty/non-string path fails the whole call, leaving the on-disk state
// and in-memory state unchanged. On success the entire state is
// rewritten to disk in canonical form.
func (a *Adapter) ApplyDelta(delta StateDelta) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	working := deepCopy(a.state).(map[string]any)

	for i, p := range delta.Patches {
		if p.Op != "set" {
			return fmt.Errorf("patch %d: unsupported op %q", i, p.Op)
		}
		if p.Path == "" {
			return fmt.Errorf("patch %d: empty path", i)
		}
		if err := setDotPath(working, p.Path, p.Value); err != nil {
			return fmt.Errorf("patch %d: %w", i, err)
		}
	}

	a.state = working
	return a.persistLocked()
}

// persistLocked rewrites the whole state file in canonical form. Callers
// must hold a.mu.
func (a *Adapter) persistLocked() error {
	data := canon.Bytes(a.state)
	if err := os.WriteFile(a.path, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// setDotPath assigns value at the dot-separated path within m, creating
// intermediate mappings on demand. It fails if an existing intermediate
// segment is present but not itself a mapping.
func setDotPath(m map[string]any, path string, value any) error {
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("path %q has an empty segment", path)
		}
	}

	cursor := m
	for _, seg := range segments[:len(segments)-1] {
		next, exists := cursor[seg]
		if !exists {
			child := make(map[string]any)
			cursor[seg] = child
			cursor = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("path %q: segment %q is not a mapping", path, seg)
		}
		cursor = child
	}
	cursor[segments[len(segments)-1]] = value
	return nil
}

// deepCopy recursively copies maps and slices so snapshots and working
// copies never alias the adapter's live state.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
