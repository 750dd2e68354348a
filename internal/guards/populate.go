package guards

import (
	"context"
	"fmt"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

// PopulateSidequestState fills the GuardContext with the inputs
// SidequestLimitGuard needs, read from the Store's sidequest_limit_status
// view (spec §4.2 createSidequest step 1).
func PopulateSidequestState(ctx context.Context, st *store.Store, taskID string, gctx *GuardContext) error {
	count, max, err := st.ActiveSidequestCount(ctx, taskID)
	if err != nil {
		return fmt.Errorf("populating sidequest guard state: %w", err)
	}
	gctx.TaskID = taskID
	gctx.ActiveSidequestCount = count
	gctx.MaxSimultaneousSidequests = max
	return nil
}

// PopulateMilestoneState fills the GuardContext with the inputs the
// milestone-completion guards need.
func PopulateMilestoneState(ctx context.Context, st *store.Store, milestoneID string, gctx *GuardContext) error {
	unmet, err := st.UnmetRequiredFlows(ctx, milestoneID)
	if err != nil {
		return fmt.Errorf("populating milestone guard state: %w", err)
	}
	gctx.MilestoneID = milestoneID
	gctx.UnmetRequiredFlows = len(unmet)

	_, err = st.CurrentImplementationPlan(ctx, milestoneID)
	gctx.ActiveImplementationPlan = err == nil
	return nil
}

// PopulateSharedFileState fills the GuardContext with the inputs
// SharedFileThresholdGuard needs after a file→theme link is recorded.
func PopulateSharedFileState(ctx context.Context, st *store.Store, filePath string, threshold int, gctx *GuardContext) error {
	names, err := st.ThemesSharingFile(ctx, filePath)
	if err != nil {
		return fmt.Errorf("populating shared-file guard state: %w", err)
	}
	gctx.FilePath = filePath
	gctx.ThemeCount = len(names)
	gctx.Threshold = threshold
	return nil
}
