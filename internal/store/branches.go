package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

// CreateBranch allocates the next ai-pm-org-branch-NNN ordinal inside the
// transaction (same Dynamic pattern as sidequest ordinals) and records the
// branch row. The actual `git branch`/`git checkout` plumbing is
// BranchManager's job; Store only persists the bookkeeping row.
func (s *Store) CreateBranch(ctx context.Context, creator model.BranchCreator, baseHash, purpose string) (*model.Branch, error) {
	now := time.Now().UTC()
	var branch model.Branch

	dynamic := func(ctx context.Context, tx *sql.Tx) ([]Stmt, []FileWrite, error) {
		var maxNum sql.NullInt64
		row := tx.QueryRowContext(ctx, `SELECT MAX(number) FROM ai_instance_branches`)
		if err := row.Scan(&maxNum); err != nil {
			return nil, nil, fmt.Errorf("max branch number: %w", err)
		}
		n := int(maxNum.Int64) + 1
		branch = model.Branch{
			Number:    n,
			Name:      fmt.Sprintf("ai-pm-org-branch-%03d", n),
			CreatedAt: now,
			CreatedBy: creator,
			BaseHash:  baseHash,
			Status:    "active",
			Purpose:   purpose,
		}
		return []Stmt{{
			Query: `INSERT INTO ai_instance_branches
				(number, name, created_at, created_by_name, created_by_email, created_by_source, git_base_hash, status, purpose)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			Args: []any{n, branch.Name, now.Format("2006-01-02T15:04:05.000Z"), creator.Name, creator.Email,
				creator.Source, baseHash, "active", purpose},
		}}, nil, nil
	}

	err := s.Apply(ctx, ChangeSet{
		Kind: "branch",
		Dynamic: dynamic,
		Notify:  []Notification{{Kind: "branch", Action: "created"}},
	})
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

// GetBranch returns a branch row by name, or NotFound.
func (s *Store) GetBranch(ctx context.Context, name string) (*model.Branch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT number, name, created_at, created_by_name, created_by_email, created_by_source, git_base_hash, status, purpose
		FROM ai_instance_branches WHERE name = ?`, name)
	var b model.Branch
	var createdAt string
	if err := row.Scan(&b.Number, &b.Name, &createdAt, &b.CreatedBy.Name, &b.CreatedBy.Email,
		&b.CreatedBy.Source, &b.BaseHash, &b.Status, &b.Purpose); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "branch %s not found", name)
	}
	b.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	return &b, nil
}

// ListBranches returns every tracked branch, most recent first.
func (s *Store) ListBranches(ctx context.Context) ([]*model.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, name, created_at, created_by_name, created_by_email, created_by_source, git_base_hash, status, purpose
		FROM ai_instance_branches ORDER BY number DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Branch
	for rows.Next() {
		var b model.Branch
		var createdAt string
		if err := rows.Scan(&b.Number, &b.Name, &createdAt, &b.CreatedBy.Name, &b.CreatedBy.Email,
			&b.CreatedBy.Source, &b.BaseHash, &b.Status, &b.Purpose); err != nil {
			return nil, err
		}
		b.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
		out = append(out, &b)
	}
	return out, nil
}

// UpdateBranchStatus transitions a branch's bookkeeping status (active,
// merged, deleted). The git-level operation is BranchManager's.
func (s *Store) UpdateBranchStatus(ctx context.Context, name, status string) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "branch",
		Stmts: []Stmt{{
			Query: `UPDATE ai_instance_branches SET status = ? WHERE name = ?`,
			Args:  []any{status, name},
		}},
		Notify: []Notification{{Kind: "branch", ID: name, Action: "updated"}},
	})
}

// GetGitProjectState returns the last-reconciled state for a project path.
func (s *Store) GetGitProjectState(ctx context.Context, projectPath string) (*model.GitProjectState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT project_path, current_hash, last_known_hash, last_sync, change_summary, affected_themes, reconciliation_status
		FROM git_project_state WHERE project_path = ?`, projectPath)
	var g model.GitProjectState
	var lastSync, affected string
	if err := row.Scan(&g.ProjectPath, &g.CurrentHash, &g.LastKnownHash, &lastSync, &g.ChangeSummary, &affected, &g.ReconciliationStatus); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "no git project state for %s", projectPath)
	}
	g.AffectedThemes = unmarshalJSON[[]string](affected)
	g.LastSync, _ = time.Parse("2006-01-02T15:04:05.000Z", lastSync)
	return &g, nil
}

// UpsertGitProjectState records a new reconciliation point, used by
// GitBridge after each diff/reconcile pass.
func (s *Store) UpsertGitProjectState(ctx context.Context, g *model.GitProjectState) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "branch",
		Stmts: []Stmt{{
			Query: `INSERT INTO git_project_state
				(project_path, current_hash, last_known_hash, last_sync, change_summary, affected_themes, reconciliation_status)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(project_path) DO UPDATE SET
					current_hash = excluded.current_hash,
					last_known_hash = excluded.last_known_hash,
					last_sync = excluded.last_sync,
					change_summary = excluded.change_summary,
					affected_themes = excluded.affected_themes,
					reconciliation_status = excluded.reconciliation_status`,
			Args: []any{g.ProjectPath, g.CurrentHash, g.LastKnownHash, g.LastSync.Format("2006-01-02T15:04:05.000Z"),
				g.ChangeSummary, marshalJSON(g.AffectedThemes), g.ReconciliationStatus},
		}},
		Notify: []Notification{{Kind: "git_project_state", ID: g.ProjectPath, Action: "updated"}},
	})
}

// RecordGitChangeImpact appends one file-level impact assessment from a
// GitBridge diff pass (append-only history, not upserted).
func (s *Store) RecordGitChangeImpact(ctx context.Context, projectPath, filePath string, candidateThemes []string, severity, strategy string) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "branch",
		Stmts: []Stmt{{
			Query: `INSERT INTO git_change_impacts (project_path, file_path, candidate_themes, severity, strategy, detected_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
			Args: []any{projectPath, filePath, marshalJSON(candidateThemes), severity, strategy, nowISO()},
		}},
	})
}
