package guards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidequestLimitGuardPassesBelowLimit(t *testing.T) {
	gctx := &GuardContext{TaskID: "TASK-1", ActiveSidequestCount: 1, MaxSimultaneousSidequests: 3}
	result := SidequestLimitGuard.Check(context.Background(), gctx)
	assert.True(t, result.Passed)
}

func TestSidequestLimitGuardBlocksAtLimitWithResolutions(t *testing.T) {
	gctx := &GuardContext{TaskID: "TASK-1", ActiveSidequestCount: 3, MaxSimultaneousSidequests: 3}
	result := SidequestLimitGuard.Check(context.Background(), gctx)
	require.False(t, result.Passed)
	assert.Equal(t, HardBlock, result.Severity)
	assert.NotEmpty(t, result.Resolutions)
}

func TestContextEscalationGuardRequiresForceForWideEscalation(t *testing.T) {
	gctx := &GuardContext{CurrentMode: "expanded", RequestedMode: "wide"}
	result := ContextEscalationGuard.Check(context.Background(), gctx)
	require.False(t, result.Passed)
	assert.Equal(t, SoftBlock, result.Severity)

	gctx.Force = true
	result = ContextEscalationGuard.Check(context.Background(), gctx)
	assert.True(t, result.Passed)
}

func TestContextEscalationGuardBlocksSecondEscalation(t *testing.T) {
	gctx := &GuardContext{EscalationsUsed: 1, CurrentMode: "focused", RequestedMode: "expanded"}
	result := ContextEscalationGuard.Check(context.Background(), gctx)
	require.False(t, result.Passed)
	assert.Equal(t, HardBlock, result.Severity)
}

func TestSharedFileThresholdGuardWarnsOverThreshold(t *testing.T) {
	gctx := &GuardContext{FilePath: "internal/store/tasks.go", ThemeCount: 4, Threshold: 3}
	result := SharedFileThresholdGuard.Check(context.Background(), gctx)
	require.False(t, result.Passed)
	assert.Equal(t, Warning, result.Severity)
}

func TestRunnerAggregatesHardBlockAsBlocked(t *testing.T) {
	runner := NewRunner()
	gctx := &GuardContext{TaskID: "TASK-1", ActiveSidequestCount: 3, MaxSimultaneousSidequests: 3}
	outcome := runner.Run(context.Background(), gctx, []Guard{SidequestLimitGuard})

	assert.True(t, outcome.Blocked)
	require.Len(t, outcome.HardBlocks(), 1)
	assert.Contains(t, outcome.FormatBlockMessage(), "sidequest_limit")
}

func TestRunnerSoftBlockOverriddenByForce(t *testing.T) {
	runner := NewRunner()
	gctx := &GuardContext{CurrentMode: "expanded", RequestedMode: "wide", Force: true}
	outcome := runner.Run(context.Background(), gctx, []Guard{ContextEscalationGuard})

	assert.False(t, outcome.Blocked)
}
