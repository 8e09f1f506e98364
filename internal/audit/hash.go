package audit

import "piebot/pkg/canon"

// computeHash returns the content hash of e as it would be written to the
// journal, computed over the canonical encoding of the record with the
// hash field absent (to avoid a circular dependency on its own output).
// Adapted from the teacher's ComputeEventHash (internal/audit/hash.go).
func computeHash(e Event) string {
	e.Hash = ""
	return canon.Hash(e)
}

// redactFunc maps a raw string to its redacted form. Injected so this
// package doesn't import internal/policy (avoids an import cycle; policy
// does not depend on audit).
type redactFunc func(string) string

// redactPayload recursively applies redact to every string found in a
// payload mapping or sequence; other scalars pass through unchanged.
func redactPayload(v any, redact redactFunc) any {
	switch t := v.(type) {
	case string:
		return redact(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = redactPayload(val, redact)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = redactPayload(val, redact)
		}
		return out
	default:
		return v
	}
}
