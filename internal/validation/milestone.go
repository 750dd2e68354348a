package validation

import (
	"fmt"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

// milestoneGraph: declared → in-progress → completed, with an archival
// edge once superseded by a later implementation plan isn't modeled here
// (plans carry their own status; the milestone itself only ever advances).
var milestoneGraph = map[string][]string{
	model.StatusPending:    {model.StatusInProgress},
	model.StatusInProgress: {model.StatusCompleted},
	model.StatusCompleted:  {},
}

type milestoneValidator struct{}

// NewMilestoneValidator creates a validator for Milestone entities.
func NewMilestoneValidator() Validator {
	return &milestoneValidator{}
}

func (v *milestoneValidator) Validate(from, to string, tctx *TransitionContext, milestoneID string) error {
	if !isAllowedTransition(from, to, milestoneGraph) {
		return transitionError(from, to)
	}
	if to == model.StatusCompleted {
		return v.guardCompleted(tctx, milestoneID)
	}
	return nil
}

// guardCompleted enforces spec §4.2: "Transitioning a milestone to
// completed requires: all required_flows meet their required status; all
// its implementation plans are completed" (spec §8 scenario C).
func (v *milestoneValidator) guardCompleted(tctx *TransitionContext, milestoneID string) error {
	if tctx.Force {
		return nil
	}
	unmet, err := tctx.Store.UnmetRequiredFlows(tctx.Ctx, milestoneID)
	if err != nil {
		return fmt.Errorf("checking required flows: %w", err)
	}
	if len(unmet) > 0 {
		return fmt.Errorf("%w: %d required flow(s) unmet", ErrFlowsNotMet, len(unmet))
	}
	if _, err := tctx.Store.CurrentImplementationPlan(tctx.Ctx, milestoneID); err == nil {
		// An active plan still exists — it hasn't been completed/superseded yet.
		return ErrPlansNotComplete
	}
	return nil
}
