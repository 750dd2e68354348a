package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// taskFilePath mirrors the on-disk layout spec §6:
// projectManagement/Tasks/active/<TASK-id>.json (or archive/ once terminal).
func taskFilePath(id string, terminal bool) string {
	dir := "active"
	if terminal {
		dir = "archive"
	}
	return filepath.Join("projectManagement", "Tasks", dir, id+".json")
}

// defaultMaxActiveSidequests is used when the caller passes a
// non-positive limit (e.g. project config omits tasks.maxActiveSidequests).
const defaultMaxActiveSidequests = 3

// CreateTask inserts a new task row and writes its paired JSON file. Caller
// is responsible for having already validated the milestone and theme
// exist (Scheduler.createTask does this before calling Store).
// maxActiveSidequests seeds the task's per-task sidequest cap (project
// config's tasks.maxActiveSidequests, spec §6) enforced later by
// guards.SidequestLimitGuard.
func (s *Store) CreateTask(ctx context.Context, t *model.Task, maxActiveSidequests int) error {
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if maxActiveSidequests <= 0 {
		maxActiveSidequests = defaultMaxActiveSidequests
	}

	path := taskFilePath(t.ID, false)
	content, err := EncodeJSON(path, t)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	return s.Apply(ctx, ChangeSet{
		Kind: "task",
		Stmts: []Stmt{{
			Query: `INSERT INTO task_status
				(id, title, status, priority, milestone_id, primary_theme, related_themes,
				 progress, acceptance_criteria, dependencies, estimated_effort, actual_effort,
				 blocked_reason, created_at, last_updated)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			Args: []any{t.ID, t.Title, t.Status, t.Priority, t.MilestoneID, t.PrimaryTheme,
				marshalJSON(t.RelatedThemes), t.Progress, marshalJSON(t.AcceptanceCriteria),
				marshalJSON(t.Dependencies), t.EstimatedEffort, t.ActualEffort, t.BlockedReason,
				nowISO(), nowISO()},
		}, {
			Query: `INSERT INTO task_sidequest_limits (task_id, max_simultaneous_sidequests, active_sidequests_count)
				VALUES (?, ?, 0)`,
			Args: []any{t.ID, maxActiveSidequests},
		}},
		Files:  []FileWrite{{Path: path, Content: content}},
		Notify: []Notification{{Kind: "task", ID: t.ID, Action: "created"}},
	})
}

// GetTask returns the current row for a task, or NotFound.
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, status, priority, milestone_id, primary_theme, related_themes,
		       progress, acceptance_criteria, dependencies, estimated_effort, actual_effort,
		       blocked_reason, created_at, last_updated
		FROM task_status WHERE id = ?`, id)

	var t model.Task
	var relatedThemes, acceptance, deps, createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.Title, &t.Status, &t.Priority, &t.MilestoneID, &t.PrimaryTheme,
		&relatedThemes, &t.Progress, &acceptance, &deps, &t.EstimatedEffort, &t.ActualEffort,
		&t.BlockedReason, &createdAt, &updatedAt); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "task %s not found", id)
	}
	t.RelatedThemes = unmarshalJSON[[]string](relatedThemes)
	t.AcceptanceCriteria = unmarshalJSON[[]string](acceptance)
	t.Dependencies = unmarshalJSON[[]string](deps)
	t.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	t.UpdatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", updatedAt)
	return &t, nil
}

// ListActiveTasks returns every task that is not in a terminal
// state, used by SessionBoot to find the in-progress task to resume.
func (s *Store) ListActiveTasks(ctx context.Context) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM task_status WHERE status NOT IN ('completed', 'cancelled') ORDER BY created_at`)
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
	var tasks []*model.Task
	for _, id := range ids {
		t, err := s.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// UpdateTaskStatus transitions a task's status and rewrites its paired
// file, moving it between active/ and archive/ when the new status is
// terminal. The caller (Scheduler) is responsible for having already
// validated the transition is legal.
func (s *Store) UpdateTaskStatus(ctx context.Context, id, newStatus, blockedReason string) error {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	wasTerminal := t.Status == model.StatusCompleted || t.Status == model.StatusCancelled
	t.Status = newStatus
	t.BlockedReason = blockedReason
	t.UpdatedAt = time.Now().UTC()
	isTerminal := newStatus == model.StatusCompleted || newStatus == model.StatusCancelled

	files := []FileWrite{}
	newPath := taskFilePath(id, isTerminal)
	content, err := EncodeJSON(newPath, t)
	if err != nil {
		return err
	}
	files = append(files, FileWrite{Path: newPath, Content: content})
	if wasTerminal != isTerminal {
		files = append(files, FileWrite{Path: taskFilePath(id, wasTerminal), Remove: true})
	}

	return s.Apply(ctx, ChangeSet{
		Kind: "task",
		Stmts: []Stmt{{
			Query: `UPDATE task_status SET status = ?, blocked_reason = ?, last_updated = ? WHERE id = ?`,
			Args:  []any{newStatus, blockedReason, nowISO(), id},
		}},
		Files:  files,
		Notify: []Notification{{Kind: "task", ID: id, Action: "updated"}},
	})
}

// UpdateTaskProgress is the "real-time state preservation" write: every
// progress update is its own atomic paired write, so an unclean shutdown
// never loses more than the in-flight call (spec §4.2).
func (s *Store) UpdateTaskProgress(ctx context.Context, id string, pct int) error {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	t.Progress = pct
	t.UpdatedAt = time.Now().UTC()
	path := taskFilePath(id, false)
	content, err := EncodeJSON(path, t)
	if err != nil {
		return err
	}
	return s.Apply(ctx, ChangeSet{
		Kind: "task",
		Stmts: []Stmt{{
			Query: `UPDATE task_status SET progress = ?, last_updated = ? WHERE id = ?`,
			Args:  []any{pct, nowISO(), id},
		}},
		Files:  []FileWrite{{Path: path, Content: content}},
		Notify: []Notification{{Kind: "task", ID: id, Action: "updated"}},
	})
}

// SaveContextSnapshot writes the paused task's context snapshot into
// task_queue (spec §4.2, scenario A) as part of the same atomic write that
// blocks the parent task.
func (s *Store) SaveContextSnapshot(ctx context.Context, taskID string, snap *model.ContextSnapshot) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "task",
		Stmts: []Stmt{{
			Query: `INSERT INTO task_queue (task_id, context_snapshot, paused_at) VALUES (?, ?, ?)
				ON CONFLICT(task_id) DO UPDATE SET context_snapshot = excluded.context_snapshot, paused_at = excluded.paused_at`,
			Args: []any{taskID, marshalJSON(snap), nowISO()},
		}},
	})
}

// LoadContextSnapshot retrieves the stored snapshot for a task, if any.
func (s *Store) LoadContextSnapshot(ctx context.Context, taskID string) (*model.ContextSnapshot, error) {
	var raw string
	row := s.db.QueryRowContext(ctx, `SELECT context_snapshot FROM task_queue WHERE task_id = ?`, taskID)
	if err := row.Scan(&raw); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "no context snapshot for task %s", taskID)
	}
	snap := unmarshalJSON[model.ContextSnapshot](raw)
	return &snap, nil
}

// ClearContextSnapshot removes the snapshot once a task has resumed.
func (s *Store) ClearContextSnapshot(ctx context.Context, taskID string) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "task",
		Stmts: []Stmt{{Query: `DELETE FROM task_queue WHERE task_id = ?`, Args: []any{taskID}}},
	})
}
