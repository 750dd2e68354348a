package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

func newTestScheduler(t *testing.T) (*Scheduler, *store.Store) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.CreateMilestone(ctx, &model.Milestone{ID: "MILESTONE-1", Description: "first milestone"}))
	require.NoError(t, st.CreateTheme(ctx, &model.Theme{Name: "core"}))

	return New(st, 500, 3), st
}

func TestCreateTaskRequiresExistingMilestoneAndTheme(t *testing.T) {
	ctx := context.Background()
	sched, _ := newTestScheduler(t)

	_, err := sched.CreateTask(ctx, TaskSpec{ID: "TASK-1", Title: "no milestone"})
	require.Error(t, err)
	merr, ok := model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.ErrMissingMilestone, merr.Kind)

	_, err = sched.CreateTask(ctx, TaskSpec{ID: "TASK-1", Title: "unknown milestone", MilestoneID: "MILESTONE-MISSING", PrimaryTheme: "core"})
	require.Error(t, err)
	merr, ok = model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.ErrMissingMilestone, merr.Kind)

	_, err = sched.CreateTask(ctx, TaskSpec{ID: "TASK-1", Title: "unknown theme", MilestoneID: "MILESTONE-1", PrimaryTheme: "nope"})
	require.Error(t, err)
	merr, ok = model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.ErrUnknownTheme, merr.Kind)
}

func TestCreateTaskSucceeds(t *testing.T) {
	ctx := context.Background()
	sched, _ := newTestScheduler(t)

	task, err := sched.CreateTask(ctx, TaskSpec{
		ID: "TASK-1", Title: "build the thing", MilestoneID: "MILESTONE-1", PrimaryTheme: "core",
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, task.Status)
}

func TestStartTaskRejectsConcurrentInProgress(t *testing.T) {
	ctx := context.Background()
	sched, _ := newTestScheduler(t)

	_, err := sched.CreateTask(ctx, TaskSpec{ID: "TASK-1", Title: "first", MilestoneID: "MILESTONE-1", PrimaryTheme: "core"})
	require.NoError(t, err)
	_, err = sched.CreateTask(ctx, TaskSpec{ID: "TASK-2", Title: "second", MilestoneID: "MILESTONE-1", PrimaryTheme: "core"})
	require.NoError(t, err)

	require.NoError(t, sched.StartTask(ctx, "TASK-1"))

	err = sched.StartTask(ctx, "TASK-2")
	require.Error(t, err)
	merr, ok := model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.ErrConcurrentTask, merr.Kind)
}

func TestCreateSidequestBlockedAtLimit(t *testing.T) {
	ctx := context.Background()
	sched, _ := newTestScheduler(t)

	_, err := sched.CreateTask(ctx, TaskSpec{ID: "TASK-1", Title: "main work", MilestoneID: "MILESTONE-1", PrimaryTheme: "core"})
	require.NoError(t, err)

	for i, id := range []string{"SQ-1", "SQ-2", "SQ-3"} {
		_, err := sched.CreateSidequest(ctx, "TASK-1", SidequestSpec{
			ID: id, ScopeDescription: "fix something", Reason: "blocking", Urgency: "high",
		}, nil, nil, nil, nil)
		require.NoErrorf(t, err, "sidequest %d (%s) should succeed within the default limit", i, id)
	}

	_, err = sched.CreateSidequest(ctx, "TASK-1", SidequestSpec{
		ID: "SQ-4", ScopeDescription: "one too many", Reason: "blocking", Urgency: "high",
	}, nil, nil, nil, nil)
	require.Error(t, err)
	merr, ok := model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.ErrLimitExceeded, merr.Kind)
}

func TestCreateSidequestHonorsConfiguredLimit(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.CreateMilestone(ctx, &model.Milestone{ID: "MILESTONE-1", Description: "first milestone"}))
	require.NoError(t, st.CreateTheme(ctx, &model.Theme{Name: "core"}))

	sched := New(st, 500, 1)
	_, err = sched.CreateTask(ctx, TaskSpec{ID: "TASK-1", Title: "main work", MilestoneID: "MILESTONE-1", PrimaryTheme: "core"})
	require.NoError(t, err)

	_, err = sched.CreateSidequest(ctx, "TASK-1", SidequestSpec{
		ID: "SQ-1", ScopeDescription: "fix something", Reason: "blocking", Urgency: "high",
	}, nil, nil, nil, nil)
	require.NoError(t, err, "first sidequest should succeed under a configured limit of 1")

	_, err = sched.CreateSidequest(ctx, "TASK-1", SidequestSpec{
		ID: "SQ-2", ScopeDescription: "second one", Reason: "blocking", Urgency: "high",
	}, nil, nil, nil, nil)
	require.Error(t, err, "second sidequest should be blocked once the configured limit of 1 is reached")
	merr, ok := model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.ErrLimitExceeded, merr.Kind)
}
