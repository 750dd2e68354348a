// Package tasks implements the task/subtask management tools:
// aipm_create_task, aipm_start_task, aipm_complete_task,
// aipm_update_task_progress, aipm_update_subtask_progress.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/mcpserver"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/scheduler"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/validation"
)

var validate = validator.New()

// --- aipm_create_task ---

type createTaskParams struct {
	ID                 string   `json:"id" validate:"required"`
	Title              string   `json:"title" validate:"required"`
	Priority           string   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
	MilestoneID        string   `json:"milestone_id" validate:"required"`
	PrimaryTheme       string   `json:"primary_theme" validate:"required"`
	RelatedThemes      []string `json:"related_themes,omitempty"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	Dependencies       []string `json:"dependencies,omitempty"`
	EstimatedEffort    float64  `json:"estimated_effort,omitempty"`
}

type CreateTask struct {
	sched *scheduler.Scheduler
}

func NewCreateTask(sched *scheduler.Scheduler) *CreateTask { return &CreateTask{sched: sched} }

func (t *CreateTask) Name() string { return "aipm_create_task" }
func (t *CreateTask) Description() string {
	return "Create a task under a milestone, with a required primary theme. Fails if the milestone or theme does not exist."
}
func (t *CreateTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "id": {"type": "string", "description": "Task identifier, e.g. TASK-17301234"},
    "title": {"type": "string"},
    "priority": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
    "milestone_id": {"type": "string"},
    "primary_theme": {"type": "string"},
    "related_themes": {"type": "array", "items": {"type": "string"}},
    "acceptance_criteria": {"type": "array", "items": {"type": "string"}},
    "dependencies": {"type": "array", "items": {"type": "string"}},
    "estimated_effort": {"type": "number"}
  },
  "required": ["id", "title", "milestone_id", "primary_theme"]
}`)
}

func (t *CreateTask) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p createTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	task, err := t.sched.CreateTask(ctx, scheduler.TaskSpec{
		ID:                 p.ID,
		Title:              p.Title,
		Priority:           p.Priority,
		MilestoneID:        p.MilestoneID,
		PrimaryTheme:       p.PrimaryTheme,
		RelatedThemes:      p.RelatedThemes,
		AcceptanceCriteria: p.AcceptanceCriteria,
		Dependencies:       p.Dependencies,
		EstimatedEffort:    p.EstimatedEffort,
	})
	if err != nil {
		if me, ok := model.AsError(err); ok {
			return mcpserver.ErrorResult(me.Message), nil
		}
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{
		"task_id": task.ID,
		"status":  task.Status,
		"message": fmt.Sprintf("created task %s", task.ID),
	}), nil
}

// --- aipm_start_task ---

type startTaskParams struct {
	TaskID string `json:"task_id" validate:"required"`
}

type StartTask struct {
	sched *scheduler.Scheduler
}

func NewStartTask(sched *scheduler.Scheduler) *StartTask { return &StartTask{sched: sched} }

func (t *StartTask) Name() string { return "aipm_start_task" }
func (t *StartTask) Description() string {
	return "Move a task to in-progress. Fails with a concurrent-task error if another task is already in-progress."
}
func (t *StartTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {"task_id": {"type": "string"}},
  "required": ["task_id"]
}`)
}

func (t *StartTask) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p startTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	if err := t.sched.StartTask(ctx, p.TaskID); err != nil {
		if me, ok := model.AsError(err); ok {
			return mcpserver.ErrorResult(me.Message), nil
		}
		return nil, fmt.Errorf("starting task: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{
		"task_id": p.TaskID,
		"status":  model.StatusInProgress,
	}), nil
}

// --- aipm_complete_task ---

type completeTaskParams struct {
	TaskID string `json:"task_id" validate:"required"`
	Force  bool   `json:"force,omitempty"`
}

type CompleteTask struct {
	sched *scheduler.Scheduler
}

func NewCompleteTask(sched *scheduler.Scheduler) *CompleteTask { return &CompleteTask{sched: sched} }

func (t *CompleteTask) Name() string { return "aipm_complete_task" }
func (t *CompleteTask) Description() string {
	return "Mark a task completed, enforcing its state-transition graph; force skips only the incomplete-subtask and active-sidequest checks."
}
func (t *CompleteTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string"},
    "force": {"type": "boolean", "description": "Skip the incomplete-subtask and active-sidequest checks; the transition graph still applies"}
  },
  "required": ["task_id"]
}`)
}

func (t *CompleteTask) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p completeTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	if err := t.sched.Transition(ctx, validation.KindTask, p.TaskID, model.StatusCompleted, p.Force); err != nil {
		if me, ok := model.AsError(err); ok {
			return mcpserver.ErrorResult(me.Message), nil
		}
		return nil, fmt.Errorf("completing task: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{
		"task_id": p.TaskID,
		"status":  model.StatusCompleted,
	}), nil
}

// --- aipm_update_task_progress ---

type updateTaskProgressParams struct {
	TaskID  string `json:"task_id" validate:"required"`
	Percent int    `json:"percent" validate:"min=0,max=100"`
}

type UpdateTaskProgress struct {
	sched *scheduler.Scheduler
}

func NewUpdateTaskProgress(sched *scheduler.Scheduler) *UpdateTaskProgress {
	return &UpdateTaskProgress{sched: sched}
}

func (t *UpdateTaskProgress) Name() string { return "aipm_update_task_progress" }
func (t *UpdateTaskProgress) Description() string {
	return "Record a task's current completion percentage without changing its status."
}
func (t *UpdateTaskProgress) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string"},
    "percent": {"type": "integer", "minimum": 0, "maximum": 100}
  },
  "required": ["task_id", "percent"]
}`)
}

func (t *UpdateTaskProgress) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p updateTaskProgressParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := t.sched.UpdateTaskProgress(ctx, p.TaskID, p.Percent); err != nil {
		return nil, fmt.Errorf("updating task progress: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{"task_id": p.TaskID, "percent": p.Percent}), nil
}

// --- aipm_update_subtask_progress ---

type updateSubtaskProgressParams struct {
	SubtaskID string `json:"subtask_id" validate:"required"`
	Percent   int    `json:"percent" validate:"min=0,max=100"`
}

type UpdateSubtaskProgress struct {
	sched *scheduler.Scheduler
}

func NewUpdateSubtaskProgress(sched *scheduler.Scheduler) *UpdateSubtaskProgress {
	return &UpdateSubtaskProgress{sched: sched}
}

func (t *UpdateSubtaskProgress) Name() string { return "aipm_update_subtask_progress" }
func (t *UpdateSubtaskProgress) Description() string {
	return "Record a subtask's current completion percentage without changing its status."
}
func (t *UpdateSubtaskProgress) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "subtask_id": {"type": "string"},
    "percent": {"type": "integer", "minimum": 0, "maximum": 100}
  },
  "required": ["subtask_id", "percent"]
}`)
}

func (t *UpdateSubtaskProgress) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p updateSubtaskProgressParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := t.sched.UpdateSubtaskProgress(ctx, p.SubtaskID, p.Percent); err != nil {
		return nil, fmt.Errorf("updating subtask progress: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{"subtask_id": p.SubtaskID, "percent": p.Percent}), nil
}
