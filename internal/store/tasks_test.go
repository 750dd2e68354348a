package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := Open(root)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task := &model.Task{
		ID:                 "TASK-001",
		Title:              "Wire up the scheduler",
		Priority:           "high",
		MilestoneID:        "MILESTONE-001",
		PrimaryTheme:       "scheduler",
		AcceptanceCriteria: []string{"tasks can be created", "progress updates persist"},
	}
	require.NoError(t, s.CreateTask(ctx, task, 3))

	got, err := s.GetTask(ctx, "TASK-001")
	require.NoError(t, err)
	require.Equal(t, "Wire up the scheduler", got.Title)
	require.Equal(t, model.StatusPending, got.Status)
	require.Equal(t, []string{"tasks can be created", "progress updates persist"}, got.AcceptanceCriteria)

	path := filepath.Join(s.projectRoot, taskFilePath("TASK-001", false))
	_, err = os.Stat(path)
	require.NoError(t, err, "paired JSON file should exist on disk")
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTask(context.Background(), "TASK-MISSING")
	require.Error(t, err)
	merr, ok := model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.ErrNotFound, merr.Kind)
}

func TestUpdateTaskProgress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task := &model.Task{ID: "TASK-002", Title: "Progress tracking", MilestoneID: "M1", PrimaryTheme: "core"}
	require.NoError(t, s.CreateTask(ctx, task, 3))
	require.NoError(t, s.UpdateTaskProgress(ctx, "TASK-002", 42))

	got, err := s.GetTask(ctx, "TASK-002")
	require.NoError(t, err)
	require.Equal(t, 42, got.Progress)
}

func TestUpdateTaskStatusMovesFileBetweenActiveAndArchive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task := &model.Task{ID: "TASK-003", Title: "Archive me", MilestoneID: "M1", PrimaryTheme: "core"}
	require.NoError(t, s.CreateTask(ctx, task, 3))

	activePath := filepath.Join(s.projectRoot, taskFilePath("TASK-003", false))
	_, err := os.Stat(activePath)
	require.NoError(t, err)

	require.NoError(t, s.UpdateTaskStatus(ctx, "TASK-003", model.StatusCompleted, ""))

	_, err = os.Stat(activePath)
	require.True(t, os.IsNotExist(err), "active file should be removed once terminal")

	archivePath := filepath.Join(s.projectRoot, taskFilePath("TASK-003", true))
	_, err = os.Stat(archivePath)
	require.NoError(t, err, "archived file should exist once terminal")

	got, err := s.GetTask(ctx, "TASK-003")
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, got.Status)
}
