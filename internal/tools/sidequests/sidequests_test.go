package sidequests

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

func newFixture(t *testing.T) (*scheduler.Scheduler, *store.Store) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.CreateMilestone(ctx, &model.Milestone{ID: "MILESTONE-1", Description: "m1"}))
	require.NoError(t, st.CreateTheme(ctx, &model.Theme{Name: "core"}))

	sched := scheduler.New(st, 500, 3)
	_, err = sched.CreateTask(ctx, scheduler.TaskSpec{ID: "TASK-1", Title: "main work", MilestoneID: "MILESTONE-1", PrimaryTheme: "core"})
	require.NoError(t, err)

	return sched, st
}

func TestCreateSidequestToolSuccess(t *testing.T) {
	sched, st := newFixture(t)
	tool := NewCreateSidequest(sched, st)

	params, err := json.Marshal(map[string]string{
		"id":                "SQ-1",
		"parent_task_id":    "TASK-1",
		"scope_description": "unblock the build",
	})
	require.NoError(t, err)

	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "sidequest_id")
}

func TestCreateSidequestToolMissingRequiredField(t *testing.T) {
	sched, st := newFixture(t)
	tool := NewCreateSidequest(sched, st)

	params, err := json.Marshal(map[string]string{"parent_task_id": "TASK-1"})
	require.NoError(t, err)

	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestCreateSidequestToolSurfacesLimitExceededAsToolError(t *testing.T) {
	sched, st := newFixture(t)
	tool := NewCreateSidequest(sched, st)

	for _, id := range []string{"SQ-1", "SQ-2", "SQ-3"} {
		params, err := json.Marshal(map[string]string{
			"id": id, "parent_task_id": "TASK-1", "scope_description": "detour",
		})
		require.NoError(t, err)
		result, err := tool.Execute(context.Background(), params)
		require.NoError(t, err)
		require.False(t, result.IsError)
	}

	params, err := json.Marshal(map[string]string{
		"id": "SQ-4", "parent_task_id": "TASK-1", "scope_description": "one too many",
	})
	require.NoError(t, err)
	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "limit")
}

func TestCompleteSidequestToolRestoresSnapshot(t *testing.T) {
	sched, st := newFixture(t)
	createTool := NewCreateSidequest(sched, st)
	completeTool := NewCompleteSidequest(sched)

	params, err := json.Marshal(map[string]string{
		"id": "SQ-1", "parent_task_id": "TASK-1", "scope_description": "detour",
	})
	require.NoError(t, err)
	createResult, err := createTool.Execute(context.Background(), params)
	require.NoError(t, err)
	require.False(t, createResult.IsError)

	var created struct {
		SidequestID string `json:"sidequest_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(createResult.Content[0].Text), &created))
	require.NotEmpty(t, created.SidequestID)

	completeParams, err := json.Marshal(map[string]string{"sidequest_id": created.SidequestID})
	require.NoError(t, err)
	completeResult, err := completeTool.Execute(context.Background(), completeParams)
	require.NoError(t, err)
	require.False(t, completeResult.IsError)
	assert.Contains(t, completeResult.Content[0].Text, "sidequest_id")
}
