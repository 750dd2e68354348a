// Package scheduler owns the lifecycle of tasks, subtasks, and
// sidequests: creation, starting, pausing for a sidequest, resuming, and
// state transitions restricted to the graphs in internal/validation
// (spec §4.2).
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/guards"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/metrics"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/validation"
)

// Scheduler is the single owner of task/subtask/sidequest lifecycle
// operations; every mutation goes through it rather than directly through
// Store, so the guards and validators always run.
type Scheduler struct {
	store      *store.Store
	validators *validation.Registry
	guards     *guards.Runner

	maxSidequestSizeLimit int // noteworthySizeLimit passed through to Store.RecordEvent
	maxActiveSidequests   int // tasks.maxActiveSidequests, seeded onto every new task
}

// New builds a Scheduler backed by the given Store. maxActiveSidequests is
// project config's tasks.maxActiveSidequests (spec §6); pass 0 to accept
// Store's built-in default.
func New(st *store.Store, noteworthySizeLimit int, maxActiveSidequests int) *Scheduler {
	return &Scheduler{
		store:                 st,
		validators:            validation.NewRegistry(),
		guards:                guards.NewRunner(),
		maxSidequestSizeLimit: noteworthySizeLimit,
		maxActiveSidequests:   maxActiveSidequests,
	}
}

// TaskSpec is the input to CreateTask.
type TaskSpec struct {
	ID                 string
	Title              string
	Priority           string
	MilestoneID        string
	PrimaryTheme       string
	RelatedThemes      []string
	AcceptanceCriteria []string
	Dependencies       []string
	EstimatedEffort    float64
}

// CreateTask validates a milestone and primary theme exist, then inserts
// the task (spec §4.2: "Requires a valid milestone id and at least a
// primary theme. Fails with MissingMilestone, UnknownTheme").
func (s *Scheduler) CreateTask(ctx context.Context, spec TaskSpec) (*model.Task, error) {
	if spec.MilestoneID == "" {
		return nil, model.New(model.ErrMissingMilestone, "task requires a milestone id")
	}
	if _, err := s.store.GetMilestone(ctx, spec.MilestoneID); store.NotFound(err) {
		return nil, model.New(model.ErrMissingMilestone, "milestone %s does not exist", spec.MilestoneID)
	} else if err != nil {
		return nil, err
	}
	if spec.PrimaryTheme == "" {
		return nil, model.New(model.ErrUnknownTheme, "task requires a primary theme")
	}
	if _, err := s.store.GetTheme(ctx, spec.PrimaryTheme); store.NotFound(err) {
		return nil, model.New(model.ErrUnknownTheme, "theme %s does not exist", spec.PrimaryTheme)
	} else if err != nil {
		return nil, err
	}

	t := &model.Task{
		ID:                 spec.ID,
		Title:              spec.Title,
		Priority:           spec.Priority,
		MilestoneID:        spec.MilestoneID,
		PrimaryTheme:       spec.PrimaryTheme,
		RelatedThemes:      spec.RelatedThemes,
		AcceptanceCriteria: spec.AcceptanceCriteria,
		Dependencies:       spec.Dependencies,
		EstimatedEffort:    spec.EstimatedEffort,
		Status:             model.StatusPending,
	}
	if err := s.store.CreateTask(ctx, t, s.maxActiveSidequests); err != nil {
		return nil, err
	}
	return t, nil
}

// StartTask moves a task to in-progress, failing with ConcurrentTask if
// another task is already in-progress in this session (spec §4.2).
func (s *Scheduler) StartTask(ctx context.Context, id string) error {
	active, err := s.store.ListActiveTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range active {
		if t.ID != id && t.Status == model.StatusInProgress {
			return model.New(model.ErrConcurrentTask, "task %s is already in-progress", t.ID)
		}
	}
	return s.Transition(ctx, validation.KindTask, id, model.StatusInProgress, false)
}

// SidequestSpec is the input to CreateSidequest.
type SidequestSpec struct {
	ID               string
	ScopeDescription string
	Reason           string
	Urgency          string
	Impact           model.SidequestImpact
	InheritedThemes  []string
}

// CreateSidequest implements spec §4.2's five-step algorithm: check the
// limit via the guard, snapshot the paused subtask's context, block the
// parent, and insert the sidequest.
func (s *Scheduler) CreateSidequest(ctx context.Context, parentTaskID string, spec SidequestSpec, pausedSubtask *model.Subtask, loadedThemes, loadedFlows, loadedFiles []string) (string, error) {
	gctx := &guards.GuardContext{}
	if err := guards.PopulateSidequestState(ctx, s.store, parentTaskID, gctx); err != nil {
		return "", err
	}
	outcome := s.guards.Run(ctx, gctx, guards.CreateSidequestGuards())
	if outcome.Blocked {
		r := outcome.HardBlocks()[0]
		metrics.SidequestLimitExceeded.Inc()
		return "", model.New(model.ErrLimitExceeded, "%s", r.Message).WithSuggestion(fmt.Sprintf("resolutions: %v", r.Resolutions))
	}

	var snap model.ContextSnapshot
	if pausedSubtask != nil {
		snap = model.ContextSnapshot{
			PausedSubtaskID: pausedSubtask.ID,
			PausedProgress:  pausedSubtask.Progress,
			LoadedThemes:    loadedThemes,
			LoadedFlows:     loadedFlows,
			LoadedFiles:     loadedFiles,
			PausedAt:        time.Now().UTC(),
		}
	}

	sq := &model.Sidequest{
		ID:               spec.ID,
		ParentTaskID:     parentTaskID,
		ScopeDescription: spec.ScopeDescription,
		Reason:           spec.Reason,
		Urgency:          spec.Urgency,
		Impact:           spec.Impact,
		InheritedThemes:  spec.InheritedThemes,
		Status:           model.StatusPending,
	}
	return s.store.CreateSidequest(ctx, sq, &snap)
}

// CompleteSidequest implements spec §4.2's completeSidequest: verifies
// subtasks are completed, archives the sidequest, restores the parent's
// context snapshot, and resumes the parent.
func (s *Scheduler) CompleteSidequest(ctx context.Context, id string) (*model.ContextSnapshot, error) {
	tctx := &validation.TransitionContext{Store: s.store, Ctx: ctx}
	sq, err := s.store.GetSidequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validators.Validate(validation.KindSidequest, sq.Status, model.StatusCompleted, tctx, id); err != nil {
		return nil, err
	}
	return s.store.CompleteSidequest(ctx, id)
}

// CancelSidequest cancels one sidequest by id and discards its parent's
// context snapshot rather than restoring it. Cancelling a parent task
// through Transition does not cancel that task's sidequests.
func (s *Scheduler) CancelSidequest(ctx context.Context, id string) error {
	return s.store.CancelSidequest(ctx, id)
}

// UpdateTaskProgress is the real-time state-preservation write for tasks
// (spec §4.2 updateProgress).
func (s *Scheduler) UpdateTaskProgress(ctx context.Context, id string, pct int) error {
	return s.store.UpdateTaskProgress(ctx, id, pct)
}

// UpdateSubtaskProgress is updateProgress's subtask case.
func (s *Scheduler) UpdateSubtaskProgress(ctx context.Context, id string, pct int) error {
	return s.store.UpdateSubtaskProgress(ctx, id, pct)
}

// Transition validates and applies a status change for the given entity
// kind, restricted to its state graph (spec §4.2 transition).
func (s *Scheduler) Transition(ctx context.Context, kind validation.EntityKind, id, newStatus string, force bool) error {
	tctx := &validation.TransitionContext{Store: s.store, Ctx: ctx, Force: force}

	var current string
	switch kind {
	case validation.KindTask:
		t, err := s.store.GetTask(ctx, id)
		if err != nil {
			return err
		}
		current = t.Status
	case validation.KindSidequest:
		sq, err := s.store.GetSidequest(ctx, id)
		if err != nil {
			return err
		}
		current = sq.Status
	case validation.KindSubtask:
		st, err := s.store.GetSubtask(ctx, id)
		if err != nil {
			return err
		}
		current = st.Status
	case validation.KindMilestone:
		m, err := s.store.GetMilestone(ctx, id)
		if err != nil {
			return err
		}
		current = m.Status
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}

	if err := s.validators.Validate(kind, current, newStatus, tctx, id); err != nil {
		return model.Wrap(model.ErrStateTransitionForbidden, err, "transition %s %s", kind, id)
	}

	switch kind {
	case validation.KindTask:
		blockedReason := ""
		return s.store.UpdateTaskStatus(ctx, id, newStatus, blockedReason)
	case validation.KindSidequest:
		if newStatus == model.StatusCancelled {
			return s.store.CancelSidequest(ctx, id)
		}
		return nil // completion goes through CompleteSidequest for snapshot restore
	case validation.KindSubtask:
		return s.store.UpdateSubtaskStatus(ctx, id, newStatus)
	case validation.KindMilestone:
		if newStatus == model.StatusCompleted {
			if err := s.store.ArchiveImplementationPlansForMilestone(ctx, id); err != nil {
				return err
			}
		}
		return s.store.UpdateMilestoneStatus(ctx, id, newStatus)
	}
	return nil
}
