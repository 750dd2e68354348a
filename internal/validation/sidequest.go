package validation

import (
	"fmt"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

type sidequestValidator struct{}

// NewSidequestValidator creates a validator for Sidequest entities —
// they share the task graph (spec §4.2: "task and sidequest share the
// graph").
func NewSidequestValidator() Validator {
	return &sidequestValidator{}
}

func (v *sidequestValidator) Validate(from, to string, tctx *TransitionContext, sidequestID string) error {
	if !isAllowedTransition(from, to, sharedGraph) {
		return transitionError(from, to)
	}
	if to == model.StatusCompleted {
		return v.guardCompleted(tctx, sidequestID)
	}
	return nil
}

// guardCompleted enforces spec §4.2's completeSidequest step 1: "Verify
// all sidequest subtasks are completed."
func (v *sidequestValidator) guardCompleted(tctx *TransitionContext, sidequestID string) error {
	if tctx.Force {
		return nil
	}
	incomplete, err := tctx.Store.CountIncompleteSubtasks(tctx.Ctx, sidequestID)
	if err != nil {
		return fmt.Errorf("checking sidequest subtasks: %w", err)
	}
	if incomplete > 0 {
		return ErrSubtasksIncomplete
	}
	return nil
}
