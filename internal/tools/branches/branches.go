// Package branches implements the BranchManager tools: aipm_create_branch,
// aipm_merge_branch, aipm_list_branches, aipm_stale_branches.
package branches

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/branch"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/mcpserver"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

var validate = validator.New()

// --- aipm_create_branch ---

type createBranchParams struct {
	Purpose                string `json:"purpose" validate:"required"`
	HasOrganizationalState bool   `json:"has_organizational_state,omitempty"`
}

type CreateBranch struct {
	mgr *branch.Manager
}

func NewCreateBranch(mgr *branch.Manager) *CreateBranch { return &CreateBranch{mgr: mgr} }

func (t *CreateBranch) Name() string { return "aipm_create_branch" }
func (t *CreateBranch) Description() string {
	return "Create a new parallel work branch off the organizational main branch, ensuring the org-main branch exists first."
}
func (t *CreateBranch) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "purpose": {"type": "string"},
    "has_organizational_state": {"type": "boolean", "description": "True when restoring from an existing projectManagement/ tree"}
  },
  "required": ["purpose"]
}`)
}

func (t *CreateBranch) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p createBranchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	b, err := t.mgr.CreateWorkBranch(ctx, p.Purpose, p.HasOrganizationalState)
	if err != nil {
		if me, ok := model.AsError(err); ok {
			return mcpserver.ErrorResult(me.Message), nil
		}
		return nil, fmt.Errorf("creating branch: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{
		"name":       b.Name,
		"number":     b.Number,
		"created_by": b.CreatedBy.Name,
		"base_hash":  b.BaseHash,
		"purpose":    b.Purpose,
	}), nil
}

// --- aipm_merge_branch ---

type mergeBranchParams struct {
	BranchName  string `json:"branch_name" validate:"required"`
	DeleteAfter bool   `json:"delete_after,omitempty"`
}

type MergeBranch struct {
	mgr *branch.Manager
}

func NewMergeBranch(mgr *branch.Manager) *MergeBranch { return &MergeBranch{mgr: mgr} }

func (t *MergeBranch) Name() string { return "aipm_merge_branch" }
func (t *MergeBranch) Description() string {
	return "Merge a work branch back into the organizational main branch. Fails if the working tree is dirty or the merge conflicts."
}
func (t *MergeBranch) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "branch_name": {"type": "string"},
    "delete_after": {"type": "boolean"}
  },
  "required": ["branch_name"]
}`)
}

func (t *MergeBranch) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p mergeBranchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	if err := t.mgr.MergeWorkBranch(ctx, p.BranchName, p.DeleteAfter); err != nil {
		if me, ok := model.AsError(err); ok {
			return mcpserver.ErrorResult(me.Message), nil
		}
		return nil, fmt.Errorf("merging branch: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{"branch_name": p.BranchName, "merged": true, "deleted": p.DeleteAfter}), nil
}

// --- aipm_list_branches ---

type ListBranches struct {
	mgr *branch.Manager
}

func NewListBranches(mgr *branch.Manager) *ListBranches { return &ListBranches{mgr: mgr} }

func (t *ListBranches) Name() string { return "aipm_list_branches" }
func (t *ListBranches) Description() string {
	return "List every tracked work branch and its status."
}
func (t *ListBranches) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *ListBranches) Execute(ctx context.Context, _ json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	all, err := t.mgr.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	out := make([]map[string]any, 0, len(all))
	for _, b := range all {
		out = append(out, map[string]any{
			"name":       b.Name,
			"number":     b.Number,
			"status":     b.Status,
			"purpose":    b.Purpose,
			"created_by": b.CreatedBy.Name,
			"created_at": b.CreatedAt,
		})
	}
	return mcpserver.JSONResult(map[string]any{"branches": out}), nil
}

// --- aipm_stale_branches ---

type StaleBranches struct {
	mgr *branch.Manager
}

func NewStaleBranches(mgr *branch.Manager) *StaleBranches { return &StaleBranches{mgr: mgr} }

func (t *StaleBranches) Name() string { return "aipm_stale_branches" }
func (t *StaleBranches) Description() string {
	return "Report active branches with no recent commits or that have exceeded the age threshold. Advisory only — never auto-merges or auto-deletes."
}
func (t *StaleBranches) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *StaleBranches) Execute(ctx context.Context, _ json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	stale, err := t.mgr.StaleBranches(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("checking stale branches: %w", err)
	}
	out := make([]map[string]any, 0, len(stale))
	for _, b := range stale {
		out = append(out, map[string]any{"name": b.Name, "created_at": b.CreatedAt})
	}
	return mcpserver.JSONResult(map[string]any{"stale_branches": out}), nil
}
