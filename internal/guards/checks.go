package guards

import (
	"context"
	"fmt"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

// SidequestLimitGuard is spec §4.2 createSidequest step 2: at or above the
// task's maxSimultaneousSidequests, fail with the four advisory
// resolutions instead of creating the sidequest.
var SidequestLimitGuard = NewGuardFunc("sidequest_limit", func(_ context.Context, gctx *GuardContext) Result {
	if gctx.ActiveSidequestCount < gctx.MaxSimultaneousSidequests {
		return Pass("sidequest_limit")
	}
	return FailWithResolutions("sidequest_limit", HardBlock,
		fmt.Sprintf("task %s already has %d active sidequest(s), at its limit of %d",
			gctx.TaskID, gctx.ActiveSidequestCount, gctx.MaxSimultaneousSidequests),
		model.LimitExceededResolutions,
	)
})

// MilestoneFlowGateGuard is spec §4.2/§8 scenario C: a milestone cannot
// complete while any required flow is below its required status.
var MilestoneFlowGateGuard = NewGuardFunc("milestone_flow_gate", func(_ context.Context, gctx *GuardContext) Result {
	if gctx.UnmetRequiredFlows == 0 {
		return Pass("milestone_flow_gate")
	}
	return Fail("milestone_flow_gate", HardBlock,
		fmt.Sprintf("milestone %s has %d unmet required flow(s)", gctx.MilestoneID, gctx.UnmetRequiredFlows),
		"bring every required flow to its required status before completing the milestone",
	)
})

// MilestonePlansGuard is the implementation-plan half of the same gate:
// every plan linked to the milestone must be completed.
var MilestonePlansGuard = NewGuardFunc("milestone_plans_complete", func(_ context.Context, gctx *GuardContext) Result {
	if !gctx.ActiveImplementationPlan {
		return Pass("milestone_plans_complete")
	}
	return Fail("milestone_plans_complete", HardBlock,
		fmt.Sprintf("milestone %s still has an active (non-completed) implementation plan", gctx.MilestoneID),
		"complete or supersede the active implementation plan first",
	)
})

// ContextEscalationGuard is spec §4.3: focused→expanded needs no
// approval; expanded→wide requires explicit user approval; each task gets
// at most one escalation.
var ContextEscalationGuard = NewGuardFunc("context_escalation", func(_ context.Context, gctx *GuardContext) Result {
	if gctx.EscalationsUsed >= 1 {
		return Fail("context_escalation", HardBlock,
			"this task has already used its one permitted context escalation",
			"spawn a sidequest for the additional context, or request direct user approval",
		)
	}
	if gctx.CurrentMode == string(model.ModeExpanded) && gctx.RequestedMode == string(model.ModeWide) && !gctx.Force {
		return Fail("context_escalation", SoftBlock,
			"escalating from expanded to wide context requires explicit user approval",
			"confirm the escalation, which will be recorded as a noteworthy event",
		)
	}
	return Pass("context_escalation")
})

// SharedFileThresholdGuard is spec §3's Theme invariant: no file is shared
// by more than sharedFileThreshold themes without flagging.
var SharedFileThresholdGuard = NewGuardFunc("shared_file_threshold", func(_ context.Context, gctx *GuardContext) Result {
	if gctx.ThemeCount <= gctx.Threshold {
		return Pass("shared_file_threshold")
	}
	return Fail("shared_file_threshold", Warning,
		fmt.Sprintf("%s is now shared by %d themes (threshold %d)", gctx.FilePath, gctx.ThemeCount, gctx.Threshold),
		"consider whether the file's responsibilities should be split across themes",
	)
})

// --- Guard Sets ---

// CreateSidequestGuards returns the guards that run before creating a sidequest.
func CreateSidequestGuards() []Guard {
	return []Guard{SidequestLimitGuard}
}

// CompleteMilestoneGuards returns the guards that run before completing a milestone.
func CompleteMilestoneGuards() []Guard {
	return []Guard{MilestoneFlowGateGuard, MilestonePlansGuard}
}

// EscalateContextGuards returns the guards that run before ContextLoader escalates mode.
func EscalateContextGuards() []Guard {
	return []Guard{ContextEscalationGuard}
}

// RegisterSharedFileGuards returns the guards that run after linking a file to a theme.
func RegisterSharedFileGuards() []Guard {
	return []Guard{SharedFileThresholdGuard}
}
