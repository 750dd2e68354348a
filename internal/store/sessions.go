package store

import (
	"context"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

// CreateSession starts a new session row. SessionBoot is responsible for
// ensuring at most one session is `active` at a time (spec §3).
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	sess.StartTime = time.Now().UTC()
	sess.LastActivity = sess.StartTime
	if sess.Status == "" {
		sess.Status = "active"
	}
	return s.Apply(ctx, ChangeSet{
		Kind: "session",
		Stmts: []Stmt{{
			Query: `INSERT INTO sessions (id, start_time, last_activity, context_mode, status)
				VALUES (?, ?, ?, ?, ?)`,
			Args: []any{sess.ID, nowISO(), nowISO(), string(sess.ContextMode), sess.Status},
		}, {
			Query: `INSERT INTO session_context (session_id, active_themes, active_tasks, active_quests, snapshot_json, created_at)
				VALUES (?, ?, ?, ?, '{}', ?)`,
			Args: []any{sess.ID, marshalJSON(sess.ActiveThemes), marshalJSON(sess.ActiveTasks), marshalJSON(sess.ActiveQuests), nowISO()},
		}},
		Notify: []Notification{{Kind: "session", ID: sess.ID, Action: "created"}},
	})
}

// GetSession returns a session row plus its most recent session_context
// row, or NotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, start_time, last_activity, context_mode, status FROM sessions WHERE id = ?`, id)
	var sess model.Session
	var start, last string
	if err := row.Scan(&sess.ID, &start, &last, &sess.ContextMode, &sess.Status); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "session %s not found", id)
	}
	sess.StartTime, _ = time.Parse("2006-01-02T15:04:05.000Z", start)
	sess.LastActivity, _ = time.Parse("2006-01-02T15:04:05.000Z", last)

	ctxRow := s.db.QueryRowContext(ctx, `
		SELECT active_themes, active_tasks, active_quests FROM session_context
		WHERE session_id = ? ORDER BY created_at DESC LIMIT 1`, id)
	var themes, tasks, quests string
	if err := ctxRow.Scan(&themes, &tasks, &quests); err == nil {
		sess.ActiveThemes = unmarshalJSON[[]string](themes)
		sess.ActiveTasks = unmarshalJSON[[]string](tasks)
		sess.ActiveQuests = unmarshalJSON[[]string](quests)
	}
	return &sess, nil
}

// ActiveSession returns the single `active` session, if any.
func (s *Store) ActiveSession(ctx context.Context) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id FROM sessions WHERE status = 'active' ORDER BY start_time DESC LIMIT 1`)
	var id string
	if err := row.Scan(&id); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "no active session")
	}
	return s.GetSession(ctx, id)
}

// UpdateSessionContext records a new session_context snapshot for a
// session — called whenever ContextLoader changes the active theme/task/
// sidequest set, so resuming later replays the same load.
func (s *Store) UpdateSessionContext(ctx context.Context, sessionID string, themes, tasks, quests []string) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "session",
		Stmts: []Stmt{{
			Query: `UPDATE sessions SET last_activity = ? WHERE id = ?`,
			Args:  []any{nowISO(), sessionID},
		}, {
			Query: `INSERT INTO session_context (session_id, active_themes, active_tasks, active_quests, snapshot_json, created_at)
				VALUES (?, ?, ?, ?, '{}', ?)`,
			Args: []any{sessionID, marshalJSON(themes), marshalJSON(tasks), marshalJSON(quests), nowISO()},
		}},
	})
}

// EndSession transitions a session to a terminal status (completed or
// terminated).
func (s *Store) EndSession(ctx context.Context, id, status string) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "session",
		Stmts: []Stmt{{
			Query: `UPDATE sessions SET status = ?, last_activity = ? WHERE id = ?`,
			Args:  []any{status, nowISO(), id},
		}},
		Notify: []Notification{{Kind: "session", ID: id, Action: "updated"}},
	})
}
