package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Index is a derived, rebuildable query projection over a journal file.
// It is never consulted by Verify or Replay — the line-delimited journal
// file remains the sole source of truth — but lets operators filter
// historical events by run, type, or tool name without re-reading and
// re-parsing the whole log on every query.
//
// Grounded on the teacher's internal/audit/store.go Query/QueryOptions
// design, demoted here from primary storage to a read-side index (see
// DESIGN.md and SPEC_FULL.md §2a).
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if necessary) a sqlite-backed index at dbPath.
func OpenIndex(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		type TEXT NOT NULL,
		ts_utc TEXT NOT NULL,
		tool_name TEXT,
		hash TEXT NOT NULL,
		payload_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	CREATE INDEX IF NOT EXISTS idx_events_tool ON events(tool_name);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Rebuild drops and repopulates the index from the given journal events.
// Intended to run after a journal has been fully written (or periodically
// against a live one); it never mutates the journal itself.
func (idx *Index) Rebuild(ctx context.Context, events []Event) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (run_id, type, ts_utc, tool_name, hash, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare index insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		payloadJSON, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload for index: %w", err)
		}
		toolName, _ := e.Payload["tool_name"].(string)
		if _, err := stmt.ExecContext(ctx, e.RunId, string(e.Type), e.TsUTC, toolName, e.Hash, string(payloadJSON)); err != nil {
			return fmt.Errorf("insert index row: %w", err)
		}
	}

	return tx.Commit()
}

// QueryOptions filters the index's event listing.
type QueryOptions struct {
	RunId    string
	Type     EventType
	ToolName string
	Limit    int
}

// IndexedEvent is a row projected back out of the index.
type IndexedEvent struct {
	RunId    string
	Type     EventType
	TsUTC    string
	ToolName string
	Hash     string
	Payload  map[string]any
}

// Query returns events matching opts in journal (insertion) order.
func (idx *Index) Query(ctx context.Context, opts QueryOptions) ([]IndexedEvent, error) {
	query := "SELECT run_id, type, ts_utc, tool_name, hash, payload_json FROM events WHERE 1=1"
	var args []any
	if opts.RunId != "" {
		query += " AND run_id = ?"
		args = append(args, opts.RunId)
	}
	if opts.Type != "" {
		query += " AND type = ?"
		args = append(args, string(opts.Type))
	}
	if opts.ToolName != "" {
		query += " AND tool_name = ?"
		args = append(args, opts.ToolName)
	}
	query += " ORDER BY seq ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var out []IndexedEvent
	for rows.Next() {
		var e IndexedEvent
		var toolName sql.NullString
		var payloadJSON string
		if err := rows.Scan(&e.RunId, &e.Type, &e.TsUTC, &toolName, &e.Hash, &payloadJSON); err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		e.ToolName = toolName.String
		if err := json.Unmarshal([]byte(payloadJSON), &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal indexed payload: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the index's database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}
