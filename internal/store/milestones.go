package store

import (
	"context"
	"path/filepath"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

func milestoneFilePath(id string) string {
	return filepath.Join("projectManagement", "Milestones", id+".json")
}

// CreateMilestone inserts a milestone row and writes its paired definition
// file under projectManagement/Milestones.
func (s *Store) CreateMilestone(ctx context.Context, m *model.Milestone) error {
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	if m.Status == "" {
		m.Status = model.StatusPending
	}
	path := milestoneFilePath(m.ID)
	content, err := EncodeJSON(path, m)
	if err != nil {
		return err
	}
	return s.Apply(ctx, ChangeSet{
		Kind: "milestone",
		Stmts: []Stmt{{
			Query: `INSERT INTO milestone_status
				(id, description, dependencies, required_flows, related_tasks, implementation_plan_ids, status, created_at, last_updated)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			Args: []any{m.ID, m.Description, marshalJSON(m.Dependencies), marshalJSON(m.RequiredFlows),
				marshalJSON(m.RelatedTasks), marshalJSON(m.ImplementationPlanIDs), m.Status, nowISO(), nowISO()},
		}},
		Files:  []FileWrite{{Path: path, Content: content}},
		Notify: []Notification{{Kind: "milestone", ID: m.ID, Action: "created"}},
	})
}

// GetMilestone returns a milestone row, or NotFound.
func (s *Store) GetMilestone(ctx context.Context, id string) (*model.Milestone, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, dependencies, required_flows, related_tasks, implementation_plan_ids, status, created_at, last_updated
		FROM milestone_status WHERE id = ?`, id)
	var m model.Milestone
	var deps, flows, tasks, plans, createdAt, updatedAt string
	if err := row.Scan(&m.ID, &m.Description, &deps, &flows, &tasks, &plans, &m.Status, &createdAt, &updatedAt); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "milestone %s not found", id)
	}
	m.Dependencies = unmarshalJSON[[]string](deps)
	m.RequiredFlows = unmarshalJSON[[]model.RequiredFlow](flows)
	m.RelatedTasks = unmarshalJSON[[]string](tasks)
	m.ImplementationPlanIDs = unmarshalJSON[[]string](plans)
	m.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	m.UpdatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", updatedAt)
	return &m, nil
}

// UnmetRequiredFlows returns the subset of a milestone's required flows
// whose current flow_status.status doesn't yet meet the required status —
// the gate check behind transition(milestone, completed) (spec §4.2
// scenario C).
func (s *Store) UnmetRequiredFlows(ctx context.Context, milestoneID string) ([]model.RequiredFlow, error) {
	m, err := s.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	var unmet []model.RequiredFlow
	for _, rf := range m.RequiredFlows {
		var status string
		row := s.db.QueryRowContext(ctx, `SELECT status FROM flow_status WHERE flow_id = ?`, rf.FlowID)
		if err := row.Scan(&status); err != nil {
			unmet = append(unmet, rf) // missing flow can't satisfy the gate
			continue
		}
		if status != rf.RequiredStatus {
			unmet = append(unmet, rf)
		}
	}
	return unmet, nil
}

// UpdateMilestoneStatus transitions a milestone and rewrites its file. The
// caller (Scheduler/validation) is responsible for having already checked
// UnmetRequiredFlows is empty before transitioning to completed.
func (s *Store) UpdateMilestoneStatus(ctx context.Context, id, newStatus string) error {
	m, err := s.GetMilestone(ctx, id)
	if err != nil {
		return err
	}
	m.Status = newStatus
	m.UpdatedAt = time.Now().UTC()
	path := milestoneFilePath(id)
	content, err := EncodeJSON(path, m)
	if err != nil {
		return err
	}
	return s.Apply(ctx, ChangeSet{
		Kind: "milestone",
		Stmts: []Stmt{{
			Query: `UPDATE milestone_status SET status = ?, last_updated = ? WHERE id = ?`,
			Args:  []any{newStatus, nowISO(), id},
		}},
		Files:  []FileWrite{{Path: path, Content: content}},
		Notify: []Notification{{Kind: "milestone", ID: id, Action: "updated"}},
	})
}

func implementationPlanFilePath(planID, milestoneID string) string {
	return filepath.Join("projectManagement", "Milestones", milestoneID, "Plans", planID+".json")
}

// CreateImplementationPlan appends a new plan version. Versions are
// append-only; the caller is responsible for having found the prior
// highest-active version if this supersedes one (spec §3's Implementation
// Plan invariant).
func (s *Store) CreateImplementationPlan(ctx context.Context, p *model.ImplementationPlan) error {
	p.CreatedAt = time.Now().UTC()
	if p.Status == "" {
		p.Status = "active"
	}
	path := implementationPlanFilePath(p.ID, p.MilestoneID)
	content, err := EncodeJSON(path, p)
	if err != nil {
		return err
	}
	return s.Apply(ctx, ChangeSet{
		Kind: "milestone",
		Stmts: []Stmt{{
			Query: `INSERT INTO implementation_plans (id, milestone_id, version, status, phases, success_criteria, created_at, last_updated)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			Args: []any{p.ID, p.MilestoneID, p.Version, p.Status, marshalJSON(p.Phases), marshalJSON(p.SuccessCriteria), nowISO(), nowISO()},
		}, {
			Query: `UPDATE milestone_status SET implementation_plan_ids = json_insert(implementation_plan_ids, '$[#]', ?), last_updated = ? WHERE id = ?`,
			Args:  []any{p.ID, nowISO(), p.MilestoneID},
		}},
		Files:  []FileWrite{{Path: path, Content: content}},
		Notify: []Notification{{Kind: "implementation_plan", ID: p.ID, Action: "created"}},
	})
}

// CurrentImplementationPlan returns the highest-version plan that is still
// active for a milestone, or NotFound if none exists.
func (s *Store) CurrentImplementationPlan(ctx context.Context, milestoneID string) (*model.ImplementationPlan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, milestone_id, version, status, phases, success_criteria, created_at
		FROM implementation_plans
		WHERE milestone_id = ? AND status = 'active'
		ORDER BY version DESC LIMIT 1`, milestoneID)
	var p model.ImplementationPlan
	var phases, criteria, createdAt string
	if err := row.Scan(&p.ID, &p.MilestoneID, &p.Version, &p.Status, &phases, &criteria, &createdAt); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "no active implementation plan for milestone %s", milestoneID)
	}
	p.Phases = unmarshalJSON[[]string](phases)
	p.SuccessCriteria = unmarshalJSON[[]string](criteria)
	p.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	return &p, nil
}

// ArchiveImplementationPlansForMilestone marks every active plan for a
// milestone as superseded/completed when the milestone completes (spec §3:
// "archived on milestone completion").
func (s *Store) ArchiveImplementationPlansForMilestone(ctx context.Context, milestoneID string) error {
	return s.Apply(ctx, ChangeSet{
		Kind: "milestone",
		Stmts: []Stmt{{
			Query: `UPDATE implementation_plans SET status = 'completed', last_updated = ? WHERE milestone_id = ? AND status = 'active'`,
			Args:  []any{nowISO(), milestoneID},
		}},
	})
}
