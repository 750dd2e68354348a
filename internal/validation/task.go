package validation

import (
	"fmt"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

type taskValidator struct{}

// NewTaskValidator creates a validator for Task entities.
func NewTaskValidator() Validator {
	return &taskValidator{}
}

func (v *taskValidator) Validate(from, to string, tctx *TransitionContext, taskID string) error {
	if !isAllowedTransition(from, to, sharedGraph) {
		return transitionError(from, to)
	}
	if to == model.StatusCompleted {
		return v.guardCompleted(tctx, taskID)
	}
	return nil
}

// guardCompleted enforces spec §4.2: "Transitioning a task to completed
// requires: all subtasks completed; no non-terminal sidequests; acceptance
// criteria marked satisfied."
func (v *taskValidator) guardCompleted(tctx *TransitionContext, taskID string) error {
	if tctx.Force {
		return nil
	}

	rows, err := tctx.Store.Query(tctx.Ctx, store.ViewActiveSidequestsByTask)
	if err != nil {
		return fmt.Errorf("checking active sidequests: %w", err)
	}
	for _, row := range rows {
		if pid, _ := row["parent_task_id"].(string); pid == taskID {
			return ErrSidequestsActive
		}
	}

	incomplete, err := tctx.Store.CountIncompleteSubtasks(tctx.Ctx, taskID)
	if err != nil {
		return fmt.Errorf("checking subtasks: %w", err)
	}
	if incomplete > 0 {
		return ErrSubtasksIncomplete
	}
	return nil
}
