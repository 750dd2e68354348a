package store

import (
	"context"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

// CreateSubtask inserts a subtask row under a task or sidequest parent.
func (s *Store) CreateSubtask(ctx context.Context, st *model.Subtask) error {
	st.CreatedAt = time.Now().UTC()
	st.UpdatedAt = st.CreatedAt
	if st.Status == "" {
		st.Status = model.StatusPending
	}
	stmts := []Stmt{{
		Query: `INSERT INTO subtask_status
			(id, parent_id, parent_kind, title, status, flow_refs, files, context_mode, progress, created_at, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		Args: []any{st.ID, st.ParentID, string(st.ParentKind), st.Title, st.Status,
			marshalJSON(st.FlowRefs), marshalJSON(st.Files), string(st.ContextMode), st.Progress, nowISO(), nowISO()},
	}}
	if st.ParentKind == model.ParentSidequest {
		stmts = append(stmts, Stmt{
			Query: `INSERT INTO subtask_sidequest_relationships (subtask_id, sidequest_id) VALUES (?, ?)
				ON CONFLICT(subtask_id, sidequest_id) DO NOTHING`,
			Args: []any{st.ID, st.ParentID},
		})
	}
	return s.Apply(ctx, ChangeSet{
		Kind: "subtask",
		Stmts:  stmts,
		Notify: []Notification{{Kind: "subtask", ID: st.ID, Action: "created"}},
	})
}

// GetSubtask returns a subtask row, or NotFound.
func (s *Store) GetSubtask(ctx context.Context, id string) (*model.Subtask, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, parent_id, parent_kind, title, status, flow_refs, files, context_mode, progress, created_at, last_updated
		FROM subtask_status WHERE id = ?`, id)
	var st model.Subtask
	var flowRefs, files, createdAt, updatedAt string
	if err := row.Scan(&st.ID, &st.ParentID, &st.ParentKind, &st.Title, &st.Status,
		&flowRefs, &files, &st.ContextMode, &st.Progress, &createdAt, &updatedAt); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "subtask %s not found", id)
	}
	st.FlowRefs = unmarshalJSON[[]model.FlowStepRef](flowRefs)
	st.Files = unmarshalJSON[[]string](files)
	st.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	st.UpdatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", updatedAt)
	return &st, nil
}

// ListSubtasksByParent returns every subtask under a task or sidequest.
func (s *Store) ListSubtasksByParent(ctx context.Context, parentID string) ([]*model.Subtask, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM subtask_status WHERE parent_id = ? ORDER BY created_at`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	var out []*model.Subtask
	for _, id := range ids {
		st, err := s.GetSubtask(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// CountIncompleteSubtasks reports how many of a parent's subtasks are not
// yet completed — the guard behind task/sidequest completion (spec §4.2).
func (s *Store) CountIncompleteSubtasks(ctx context.Context, parentID string) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM subtask_status WHERE parent_id = ? AND status != ?`, parentID, model.StatusCompleted)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateSubtaskStatus transitions a subtask in place (no file pairing —
// subtasks are tracked only in the DB per spec §6's on-disk layout, which
// lists no Subtasks/ directory of their own).
func (s *Store) UpdateSubtaskStatus(ctx context.Context, id, newStatus string) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "subtask",
		Stmts: []Stmt{{
			Query: `UPDATE subtask_status SET status = ?, last_updated = ? WHERE id = ?`,
			Args:  []any{newStatus, nowISO(), id},
		}},
		Notify: []Notification{{Kind: "subtask", ID: id, Action: "updated"}},
	})
}

// UpdateSubtaskProgress is the atomic progress write for subtasks (spec
// §4.2's updateProgress, subtask case).
func (s *Store) UpdateSubtaskProgress(ctx context.Context, id string, pct int) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "subtask",
		Stmts: []Stmt{{
			Query: `UPDATE subtask_status SET progress = ?, last_updated = ? WHERE id = ?`,
			Args:  []any{pct, nowISO(), id},
		}},
		Notify: []Notification{{Kind: "subtask", ID: id, Action: "updated"}},
	})
}
