package validation

type subtaskValidator struct{}

// NewSubtaskValidator creates a validator for Subtask entities — the
// shared graph minus `cancelled` (spec §4.2).
func NewSubtaskValidator() Validator {
	return &subtaskValidator{}
}

func (v *subtaskValidator) Validate(from, to string, tctx *TransitionContext, subtaskID string) error {
	if !isAllowedTransition(from, to, subtaskGraph) {
		return transitionError(from, to)
	}
	return nil
}
