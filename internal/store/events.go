package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

const noteworthyLogPath = "projectManagement/Logs/noteworthy.json"

func noteworthyArchivePath(date time.Time) string {
	return filepath.Join("projectManagement", "Logs", fmt.Sprintf("noteworthy-archived-%s.json", date.Format("2006-01-02")))
}

// RecordEvent appends a noteworthy event (append-only, never mutated —
// spec §3) and archives the current log to a dated file once the row
// count reaches noteworthySizeLimit (spec §8: "At exactly
// noteworthySizeLimit, the next event triggers archival of current events
// to a dated file").
func (s *Store) RecordEvent(ctx context.Context, e *model.NoteworthyEvent, sizeLimit int) error {
	e.CreatedAt = time.Now().UTC()

	dynamic := func(ctx context.Context, tx *sql.Tx) ([]Stmt, []FileWrite, error) {
		var count int
		row := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM noteworthy_events WHERE archived_at IS NULL`)
		if err := row.Scan(&count); err != nil {
			return nil, nil, fmt.Errorf("count noteworthy events: %w", err)
		}
		if count < sizeLimit {
			return nil, nil, nil
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT id, event_type, title, primary_theme, related_task_id, session_id, impact, reasoning, outcome, severity, created_at
			FROM noteworthy_events WHERE archived_at IS NULL ORDER BY created_at`)
		if err != nil {
			return nil, nil, err
		}
		defer rows.Close()
		var toArchive []model.NoteworthyEvent
		for rows.Next() {
			var ev model.NoteworthyEvent
			var createdAt string
			if err := rows.Scan(&ev.ID, &ev.Type, &ev.Title, &ev.PrimaryTheme, &ev.RelatedTaskID, &ev.SessionID,
				&ev.Impact, &ev.Reasoning, &ev.Outcome, &ev.Severity, &createdAt); err != nil {
				return nil, nil, err
			}
			ev.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
			toArchive = append(toArchive, ev)
		}
		archivedAt := time.Now().UTC()
		path := noteworthyArchivePath(archivedAt)
		content, err := EncodeJSON(path, toArchive)
		if err != nil {
			return nil, nil, err
		}
		return []Stmt{{
			Query: `UPDATE noteworthy_events SET archived_at = ? WHERE archived_at IS NULL AND id != ?`,
			Args:  []any{archivedAt.Format("2006-01-02T15:04:05.000Z"), e.ID},
		}}, []FileWrite{{Path: path, Content: content}}, nil
	}

	return s.Apply(ctx, ChangeSet{
		Kind: "event",
		Dynamic: dynamic,
		Stmts: []Stmt{{
			Query: `INSERT INTO noteworthy_events
				(id, event_type, title, primary_theme, related_task_id, session_id, impact, reasoning, outcome, severity, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			Args: []any{e.ID, e.Type, e.Title, e.PrimaryTheme, e.RelatedTaskID, e.SessionID,
				e.Impact, e.Reasoning, e.Outcome, e.Severity, e.CreatedAt.Format("2006-01-02T15:04:05.000Z")},
		}},
		Notify: []Notification{{Kind: "event", ID: e.ID, Action: "created"}},
	})
}

// RecordEventRelationship links two events or an event to a work item
// (e.g. a decision event related to the task it affected).
func (s *Store) RecordEventRelationship(ctx context.Context, eventID, relatedID, relation string) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "event",
		Stmts: []Stmt{{
			Query: `INSERT INTO event_relationships (event_id, related_id, relation) VALUES (?, ?, ?)
				ON CONFLICT(event_id, related_id, relation) DO NOTHING`,
			Args: []any{eventID, relatedID, relation},
		}},
	})
}

// RecentEvents returns the un-archived events, most recent first.
func (s *Store) RecentEvents(ctx context.Context) ([]Row, error) {
	return s.Query(ctx, ViewRecentEvents)
}
