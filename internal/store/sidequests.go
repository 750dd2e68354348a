package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

func sidequestFilePath(id string, terminal bool) string {
	dir := "sidequests"
	if terminal {
		dir = filepath.Join("sidequests", "archive")
	}
	return filepath.Join("projectManagement", "Tasks", dir, id+".json")
}

// ActiveSidequestCount returns the current active_sidequests_count for a
// task from the sidequest_limit_status view.
func (s *Store) ActiveSidequestCount(ctx context.Context, taskID string) (count, max int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT active_sidequests_count, max_simultaneous_sidequests
		FROM task_sidequest_limits WHERE task_id = ?`, taskID)
	if err := row.Scan(&count, &max); err != nil {
		return 0, 0, model.Wrap(model.ErrNotFound, err, "no sidequest limit row for task %s", taskID)
	}
	return count, max, nil
}

// CreateSidequest allocates the next SQ-<timestamp>-<n> ordinal inside the
// same transaction that inserts the row (spec §4.1), blocks the parent
// task, and persists the paused task's context snapshot — all as one
// atomic paired write (spec §4.2 scenario A).
func (s *Store) CreateSidequest(ctx context.Context, sq *model.Sidequest, snap *model.ContextSnapshot) (string, error) {
	sq.CreatedAt = time.Now().UTC()
	sq.UpdatedAt = sq.CreatedAt
	if sq.Status == "" {
		sq.Status = model.StatusPending
	}
	tsPrefix := sq.CreatedAt.Format("20060102150405")

	var allocatedID string
	dynamic := func(ctx context.Context, tx *sql.Tx) ([]Stmt, []FileWrite, error) {
		var maxN int
		row := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM sidequest_status WHERE id LIKE ?`, "SQ-"+tsPrefix+"-%")
		if err := row.Scan(&maxN); err != nil {
			return nil, nil, fmt.Errorf("count existing sidequests: %w", err)
		}
		allocatedID = fmt.Sprintf("SQ-%s-%03d", tsPrefix, maxN+1)
		sq.ID = allocatedID

		path := sidequestFilePath(allocatedID, false)
		content, err := EncodeJSON(path, sq)
		if err != nil {
			return nil, nil, err
		}

		stmts := []Stmt{{
			Query: `INSERT INTO sidequest_status
				(id, parent_task_id, scope_description, reason, urgency, impact, inherited_themes, status, created_at, last_updated)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			Args: []any{allocatedID, sq.ParentTaskID, sq.ScopeDescription, sq.Reason, sq.Urgency,
				string(sq.Impact), marshalJSON(sq.InheritedThemes), sq.Status, nowISO(), nowISO()},
		}, {
			Query: `UPDATE task_status SET status = ?, blocked_reason = ?, last_updated = ? WHERE id = ?`,
			Args:  []any{model.StatusBlocked, "sidequest:" + allocatedID, nowISO(), sq.ParentTaskID},
		}, {
			Query: `INSERT INTO task_queue (task_id, context_snapshot, paused_at) VALUES (?, ?, ?)
				ON CONFLICT(task_id) DO UPDATE SET context_snapshot = excluded.context_snapshot, paused_at = excluded.paused_at`,
			Args: []any{sq.ParentTaskID, marshalJSON(snap), nowISO()},
		}}
		return stmts, []FileWrite{{Path: path, Content: content}}, nil
	}

	err := s.Apply(ctx, ChangeSet{
		Kind: "sidequest",
		Dynamic: dynamic,
		Validate: func(ctx context.Context, tx *sql.Tx) error {
			var count, max int
			row := tx.QueryRowContext(ctx, `
				SELECT active_sidequests_count, max_simultaneous_sidequests
				FROM task_sidequest_limits WHERE task_id = ?`, sq.ParentTaskID)
			if err := row.Scan(&count, &max); err != nil {
				return fmt.Errorf("reading sidequest limits: %w", err)
			}
			if count > max {
				return fmt.Errorf("sidequest limit exceeded for task %s (%d/%d)", sq.ParentTaskID, count, max)
			}
			return nil
		},
		Notify: []Notification{{Kind: "sidequest", Action: "created"}},
	})
	if err != nil {
		return "", err
	}
	return allocatedID, nil
}

// GetSidequest returns a sidequest row, or NotFound.
func (s *Store) GetSidequest(ctx context.Context, id string) (*model.Sidequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, parent_task_id, scope_description, reason, urgency, impact, inherited_themes, status, created_at, last_updated
		FROM sidequest_status WHERE id = ?`, id)
	var sq model.Sidequest
	var inherited, createdAt, updatedAt string
	if err := row.Scan(&sq.ID, &sq.ParentTaskID, &sq.ScopeDescription, &sq.Reason, &sq.Urgency,
		&sq.Impact, &inherited, &sq.Status, &createdAt, &updatedAt); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "sidequest %s not found", id)
	}
	sq.InheritedThemes = unmarshalJSON[[]string](inherited)
	sq.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	sq.UpdatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", updatedAt)
	return &sq, nil
}

// CompleteSidequest archives the sidequest file, decrements the active
// count (via trigger), restores the parent task's context snapshot, and
// resumes the parent — all atomically.
func (s *Store) CompleteSidequest(ctx context.Context, id string) (*model.ContextSnapshot, error) {
	sq, err := s.GetSidequest(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := s.LoadContextSnapshot(ctx, sq.ParentTaskID)
	if err != nil {
		return nil, err
	}

	oldPath := sidequestFilePath(id, false)
	newPath := sidequestFilePath(id, true)
	sq.Status = model.StatusCompleted
	sq.UpdatedAt = time.Now().UTC()
	content, err := EncodeJSON(newPath, sq)
	if err != nil {
		return nil, err
	}

	err = s.Apply(ctx, ChangeSet{
		Kind: "sidequest",
		Stmts: []Stmt{{
			Query: `UPDATE sidequest_status SET status = ?, last_updated = ? WHERE id = ?`,
			Args:  []any{model.StatusCompleted, nowISO(), id},
		}, {
			Query: `UPDATE task_status SET status = ?, blocked_reason = '', last_updated = ? WHERE id = ?`,
			Args:  []any{model.StatusInProgress, nowISO(), sq.ParentTaskID},
		}, {
			Query: `DELETE FROM task_queue WHERE task_id = ?`,
			Args:  []any{sq.ParentTaskID},
		}},
		Files: []FileWrite{
			{Path: newPath, Content: content},
			{Path: oldPath, Remove: true},
		},
		Notify: []Notification{{Kind: "sidequest", ID: id, Action: "updated"}},
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// CancelSidequest moves one sidequest to cancelled and discards its
// parent's context snapshot instead of restoring it. It is not called when
// a parent task is cancelled.
func (s *Store) CancelSidequest(ctx context.Context, id string) error {
	sq, err := s.GetSidequest(ctx, id)
	if err != nil {
		return err
	}
	oldPath := sidequestFilePath(id, false)
	newPath := sidequestFilePath(id, true)
	sq.Status = model.StatusCancelled
	content, err := EncodeJSON(newPath, sq)
	if err != nil {
		return err
	}
	return s.Apply(ctx, ChangeSet{
		Kind: "sidequest",
		Stmts: []Stmt{{
			Query: `UPDATE sidequest_status SET status = ?, last_updated = ? WHERE id = ?`,
			Args:  []any{model.StatusCancelled, nowISO(), id},
		}, {
			Query: `DELETE FROM task_queue WHERE task_id = ?`,
			Args:  []any{sq.ParentTaskID},
		}},
		Files: []FileWrite{
			{Path: newPath, Content: content},
			{Path: oldPath, Remove: true},
		},
		Notify: []Notification{{Kind: "sidequest", ID: id, Action: "updated"}},
	})
}
