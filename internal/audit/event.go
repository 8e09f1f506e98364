// Package audit implements piebot's append-only, hash-chained audit
// journal: the Event record, the file-backed Journal writer, the chain
// Verifier, and the Replayer that derives a terminal state hash.
//
// Adapted from the teacher's (borisdali-helpdesk/internal/audit) Event
// shape and ComputeEventHash/VerifyChain chain logic, re-targeted from a
// SQLite row store to the line-delimited canonical JSON file spec.md
// §4.3/§6 mandates.
package audit

import (
	"time"

	"piebot/pkg/canon"
)

// EventType is the closed set of audit event types spec.md §6 names.
// Writers must restrict themselves to this set.
type EventType string

const (
	RunStarted         EventType = "RunStarted"
	ObservationCaptured EventType = "ObservationCaptured"
	PlanProposed        EventType = "PlanProposed"
	PolicyDecision       EventType = "PolicyDecision"
	ApprovalRequested   EventType = "ApprovalRequested"
	ApprovalGranted     EventType = "ApprovalGranted"
	ApprovalDenied      EventType = "ApprovalDenied"
	CriticReport        EventType = "CriticReport"
	ToolExecuted        EventType = "ToolExecuted"
	ToolResultStored    EventType = "ToolResultStored"
	StateDeltaApplied   EventType = "StateDeltaApplied"
	RunCompleted        EventType = "RunCompleted"
	RunFailed           EventType = "RunFailed"
)

// Event is a single audit record. PrevHash is empty for the first record
// in a chain; Hash is always populated once appended.
type Event struct {
	RunId    string         `json:"run_id"`
	Type     EventType      `json:"type"`
	TsUTC    string         `json:"ts_utc"`
	Payload  map[string]any `json:"payload"`
	PrevHash string         `json:"prev_hash,omitempty"`
	Hash     string         `json:"hash,omitempty"`
}

// CanonMap implements canon.Mapper so Event hashes deterministically
// regardless of Go struct field order. null and absence are kept
// distinguishable: prev_hash/hash are only written into the map when the
// event actually carries them.
func (e Event) CanonMap() map[string]any {
	m := map[string]any{
		"run_id":  e.RunId,
		"type":    string(e.Type),
		"ts_utc":  e.TsUTC,
		"payload": canon.Canonicalize(e.Payload),
	}
	if e.PrevHash != "" {
		m["prev_hash"] = e.PrevHash
	}
	if e.Hash != "" {
		m["hash"] = e.Hash
	}
	return m
}

// newEvent builds an Event with the current UTC timestamp and no hash
// fields set; the Journal fills prev_hash/hash in on Append.
func newEvent(runID string, typ EventType, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		RunId:   runID,
		Type:    typ,
		TsUTC:   time.Now().UTC().Format(time.RFC3339Nano),
		Payload: payload,
	}
}
