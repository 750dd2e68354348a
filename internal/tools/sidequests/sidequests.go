// Package sidequests implements the sidequest lifecycle tools:
// aipm_create_sidequest, aipm_complete_sidequest, aipm_cancel_sidequest.
package sidequests

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/mcpserver"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/scheduler"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

var validate = validator.New()

// --- aipm_create_sidequest ---

type createSidequestParams struct {
	ID               string   `json:"id" validate:"required"`
	ParentTaskID     string   `json:"parent_task_id" validate:"required"`
	ScopeDescription string   `json:"scope_description" validate:"required"`
	Reason           string   `json:"reason,omitempty"`
	Urgency          string   `json:"urgency,omitempty"`
	Impact           string   `json:"impact,omitempty" validate:"omitempty,oneof=minimal moderate significant"`
	InheritedThemes  []string `json:"inherited_themes,omitempty"`
	PausedSubtaskID  string   `json:"paused_subtask_id,omitempty"`
	LoadedThemes     []string `json:"loaded_themes,omitempty"`
	LoadedFlows      []string `json:"loaded_flows,omitempty"`
	LoadedFiles      []string `json:"loaded_files,omitempty"`
}

type CreateSidequest struct {
	sched *scheduler.Scheduler
	store *store.Store
}

func NewCreateSidequest(sched *scheduler.Scheduler, st *store.Store) *CreateSidequest {
	return &CreateSidequest{sched: sched, store: st}
}

func (t *CreateSidequest) Name() string { return "aipm_create_sidequest" }
func (t *CreateSidequest) Description() string {
	return "Spin off a bounded sidequest from a task, pausing the task and snapshotting its loaded context. Fails with a LimitExceeded error (carrying wait/modify_existing/replace/raise_limit resolutions) if the per-task sidequest limit is reached."
}
func (t *CreateSidequest) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "id": {"type": "string"},
    "parent_task_id": {"type": "string"},
    "scope_description": {"type": "string"},
    "reason": {"type": "string"},
    "urgency": {"type": "string"},
    "impact": {"type": "string", "enum": ["minimal", "moderate", "significant"]},
    "inherited_themes": {"type": "array", "items": {"type": "string"}},
    "paused_subtask_id": {"type": "string", "description": "Subtask to pause and snapshot, if any"},
    "loaded_themes": {"type": "array", "items": {"type": "string"}},
    "loaded_flows": {"type": "array", "items": {"type": "string"}},
    "loaded_files": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["id", "parent_task_id", "scope_description"]
}`)
}

func (t *CreateSidequest) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p createSidequestParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	var pausedSubtask *model.Subtask
	if p.PausedSubtaskID != "" {
		st, err := t.store.GetSubtask(ctx, p.PausedSubtaskID)
		if err != nil {
			return mcpserver.ErrorResult(fmt.Sprintf("paused subtask not found: %v", err)), nil
		}
		pausedSubtask = st
	}

	id, err := t.sched.CreateSidequest(ctx, p.ParentTaskID, scheduler.SidequestSpec{
		ID:               p.ID,
		ScopeDescription: p.ScopeDescription,
		Reason:           p.Reason,
		Urgency:          p.Urgency,
		Impact:           model.SidequestImpact(p.Impact),
		InheritedThemes:  p.InheritedThemes,
	}, pausedSubtask, p.LoadedThemes, p.LoadedFlows, p.LoadedFiles)
	if err != nil {
		if me, ok := model.AsError(err); ok {
			return mcpserver.ErrorResult(me.Message), nil
		}
		return nil, fmt.Errorf("creating sidequest: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{
		"sidequest_id": id,
		"parent_task_id": p.ParentTaskID,
	}), nil
}

// --- aipm_complete_sidequest ---

type completeSidequestParams struct {
	SidequestID string `json:"sidequest_id" validate:"required"`
}

type CompleteSidequest struct {
	sched *scheduler.Scheduler
}

func NewCompleteSidequest(sched *scheduler.Scheduler) *CompleteSidequest {
	return &CompleteSidequest{sched: sched}
}

func (t *CompleteSidequest) Name() string { return "aipm_complete_sidequest" }
func (t *CompleteSidequest) Description() string {
	return "Complete a sidequest, archive it, and restore the parent task's paused context snapshot."
}
func (t *CompleteSidequest) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {"sidequest_id": {"type": "string"}},
  "required": ["sidequest_id"]
}`)
}

func (t *CompleteSidequest) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p completeSidequestParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	snap, err := t.sched.CompleteSidequest(ctx, p.SidequestID)
	if err != nil {
		if me, ok := model.AsError(err); ok {
			return mcpserver.ErrorResult(me.Message), nil
		}
		return nil, fmt.Errorf("completing sidequest: %w", err)
	}
	result := map[string]any{"sidequest_id": p.SidequestID}
	if snap != nil {
		result["restored_subtask_id"] = snap.PausedSubtaskID
		result["restored_progress"] = snap.PausedProgress
		result["restored_themes"] = snap.LoadedThemes
		result["restored_flows"] = snap.LoadedFlows
		result["restored_files"] = snap.LoadedFiles
	}
	return mcpserver.JSONResult(result), nil
}

// --- aipm_cancel_sidequest ---

type cancelSidequestParams struct {
	SidequestID string `json:"sidequest_id" validate:"required"`
}

type CancelSidequest struct {
	sched *scheduler.Scheduler
}

func NewCancelSidequest(sched *scheduler.Scheduler) *CancelSidequest {
	return &CancelSidequest{sched: sched}
}

func (t *CancelSidequest) Name() string { return "aipm_cancel_sidequest" }
func (t *CancelSidequest) Description() string {
	return "Cancel a sidequest, discarding its parent's paused context snapshot rather than restoring it."
}
func (t *CancelSidequest) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {"sidequest_id": {"type": "string"}},
  "required": ["sidequest_id"]
}`)
}

func (t *CancelSidequest) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p cancelSidequestParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := t.sched.CancelSidequest(ctx, p.SidequestID); err != nil {
		if me, ok := model.AsError(err); ok {
			return mcpserver.ErrorResult(me.Message), nil
		}
		return nil, fmt.Errorf("cancelling sidequest: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{"sidequest_id": p.SidequestID, "status": model.StatusCancelled}), nil
}
