package store

import (
	"context"
	"database/sql"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

// CreateFlow registers a flow's steps and its theme associations
// (theme_flows edge table — spec §9: "store edges, not embedded objects").
func (s *Store) CreateFlow(ctx context.Context, f *model.Flow) error {
	stmts := []Stmt{{
		Query: `INSERT INTO flow_status (flow_id, flow_file, primary_themes, completion_percent, status)
			VALUES (?, ?, ?, ?, 'not-started')`,
		Args: []any{f.FlowID, f.FlowFile, marshalJSON(f.PrimaryThemes), f.CompletionPercent},
	}}
	for _, step := range f.Steps {
		stmts = append(stmts, Stmt{
			Query: `INSERT INTO flow_step_status (flow_id, step_id, description, dependencies, status)
				VALUES (?, ?, ?, ?, ?)`,
			Args: []any{f.FlowID, step.StepID, step.Description, marshalJSON(step.Dependencies), nonEmptyOr(step.Status, model.StatusPending)},
		})
	}
	for _, theme := range f.PrimaryThemes {
		stmts = append(stmts, Stmt{
			Query: `INSERT INTO theme_flows (theme_name, flow_id) VALUES (?, ?)
				ON CONFLICT(theme_name, flow_id) DO NOTHING`,
			Args: []any{theme, f.FlowID},
		})
	}
	return s.Apply(ctx, ChangeSet{
		Kind: "flow",
		Stmts:  stmts,
		Notify: []Notification{{Kind: "flow", ID: f.FlowID, Action: "created"}},
	})
}

func nonEmptyOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// GetFlow reassembles a flow and its steps from the edge tables.
func (s *Store) GetFlow(ctx context.Context, flowID string) (*model.Flow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT flow_id, flow_file, primary_themes, completion_percent FROM flow_status WHERE flow_id = ?`, flowID)
	var f model.Flow
	var themes string
	if err := row.Scan(&f.FlowID, &f.FlowFile, &themes, &f.CompletionPercent); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "flow %s not found", flowID)
	}
	f.PrimaryThemes = unmarshalJSON[[]string](themes)

	rows, err := s.db.QueryContext(ctx, `
		SELECT step_id, description, dependencies, status FROM flow_step_status WHERE flow_id = ? ORDER BY step_id`, flowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var step model.FlowStep
		var deps string
		if err := rows.Scan(&step.StepID, &step.Description, &deps, &step.Status); err != nil {
			return nil, err
		}
		step.Dependencies = unmarshalJSON[[]string](deps)
		f.Steps = append(f.Steps, step)
	}
	return &f, nil
}

// UpdateFlowStepStatus transitions a single step and recomputes the
// flow's completion_percent and overall status from its steps, all inside
// one transaction via the Dynamic hook.
func (s *Store) UpdateFlowStepStatus(ctx context.Context, flowID, stepID, status string) error {
	dynamic := func(ctx context.Context, tx *sql.Tx) ([]Stmt, []FileWrite, error) {
		if _, err := tx.ExecContext(ctx, `UPDATE flow_step_status SET status = ? WHERE flow_id = ? AND step_id = ?`,
			status, flowID, stepID); err != nil {
			return nil, nil, err
		}
		var total, done int
		row := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM flow_step_status WHERE flow_id = ?`, flowID)
		if err := row.Scan(&total); err != nil {
			return nil, nil, err
		}
		row = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM flow_step_status WHERE flow_id = ? AND status = ?`, flowID, model.StatusCompleted)
		if err := row.Scan(&done); err != nil {
			return nil, nil, err
		}
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(done) / float64(total)
		}
		flowStatus := "in-progress"
		if done == total && total > 0 {
			flowStatus = "complete"
		} else if done == 0 {
			flowStatus = "not-started"
		}
		return []Stmt{{
			Query: `UPDATE flow_status SET completion_percent = ?, status = ? WHERE flow_id = ?`,
			Args:  []any{pct, flowStatus, flowID},
		}}, nil, nil
	}
	return s.Apply(ctx, ChangeSet{
		Kind: "flow",
		Dynamic: dynamic,
		Notify:  []Notification{{Kind: "flow", ID: flowID, Action: "updated"}},
	})
}

// ThemesForFlow returns the themes bound to a flow via theme_flows.
func (s *Store) ThemesForFlow(ctx context.Context, flowID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT theme_name FROM theme_flows WHERE flow_id = ?`, flowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

// FlowsForTheme returns the flows bound to a theme via theme_flows, used
// by ContextLoader to expand from a theme to its flows.
func (s *Store) FlowsForTheme(ctx context.Context, themeName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT flow_id FROM theme_flows WHERE theme_name = ?`, themeName)
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
	return ids, nil
}
