package tasks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/scheduler"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

func newFixture(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.CreateMilestone(ctx, &model.Milestone{ID: "MILESTONE-1", Description: "m1"}))
	require.NoError(t, st.CreateTheme(ctx, &model.Theme{Name: "core"}))

	return scheduler.New(st, 500, 3)
}

func TestCreateTaskToolSuccess(t *testing.T) {
	sched := newFixture(t)
	tool := NewCreateTask(sched)

	params, err := json.Marshal(map[string]any{
		"id": "TASK-1", "title": "build the thing",
		"milestone_id": "MILESTONE-1", "primary_theme": "core",
	})
	require.NoError(t, err)

	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "TASK-1")
}

func TestCreateTaskToolMissingMilestoneSurfacesAsToolError(t *testing.T) {
	sched := newFixture(t)
	tool := NewCreateTask(sched)

	params, err := json.Marshal(map[string]any{
		"id": "TASK-1", "title": "no milestone", "primary_theme": "core",
	})
	require.NoError(t, err)

	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestTaskLifecycleStartUpdateComplete(t *testing.T) {
	sched := newFixture(t)
	ctx := context.Background()

	createParams, _ := json.Marshal(map[string]any{
		"id": "TASK-1", "title": "ship it", "milestone_id": "MILESTONE-1", "primary_theme": "core",
	})
	_, err := NewCreateTask(sched).Execute(ctx, createParams)
	require.NoError(t, err)

	startParams, _ := json.Marshal(map[string]string{"task_id": "TASK-1"})
	startResult, err := NewStartTask(sched).Execute(ctx, startParams)
	require.NoError(t, err)
	require.False(t, startResult.IsError)

	progressParams, _ := json.Marshal(map[string]any{"task_id": "TASK-1", "percent": 75})
	progressResult, err := NewUpdateTaskProgress(sched).Execute(ctx, progressParams)
	require.NoError(t, err)
	require.False(t, progressResult.IsError)

	completeParams, _ := json.Marshal(map[string]string{"task_id": "TASK-1"})
	completeResult, err := NewCompleteTask(sched).Execute(ctx, completeParams)
	require.NoError(t, err)
	require.False(t, completeResult.IsError)
	assert.Contains(t, completeResult.Content[0].Text, string(model.StatusCompleted))
}
