// Package context implements the context-loading tools: aipm_load_context
// and aipm_escalate_context.
package context

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/contextload"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/mcpserver"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

var validate = validator.New()

// --- aipm_load_context ---

type flowRefParam struct {
	FlowID   string   `json:"flow_id"`
	FlowFile string   `json:"flow_file"`
	StepIDs  []string `json:"step_ids,omitempty"`
}

type loadContextParams struct {
	ProjectRoot    string         `json:"project_root" validate:"required"`
	PrimaryTheme   string         `json:"primary_theme" validate:"required"`
	RelatedThemes  []string       `json:"related_themes,omitempty"`
	FlowReferences []flowRefParam `json:"flow_references,omitempty"`
	Mode           string         `json:"mode,omitempty" validate:"omitempty,oneof=focused expanded wide"`
	MaxFlowFiles   int            `json:"max_flow_files,omitempty"`
	ReadmeFirst    bool           `json:"readme_first,omitempty"`
}

type LoadContext struct {
	loader *contextload.Loader
}

func NewLoadContext(loader *contextload.Loader) *LoadContext { return &LoadContext{loader: loader} }

func (t *LoadContext) Name() string { return "aipm_load_context" }
func (t *LoadContext) Description() string {
	return "Select the minimum sufficient file set for a work item's primary theme, related themes, and flow references, bounded to a memory budget."
}
func (t *LoadContext) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "project_root": {"type": "string"},
    "primary_theme": {"type": "string"},
    "related_themes": {"type": "array", "items": {"type": "string"}},
    "flow_references": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "flow_id": {"type": "string"},
          "flow_file": {"type": "string"},
          "step_ids": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "mode": {"type": "string", "enum": ["focused", "expanded", "wide"]},
    "max_flow_files": {"type": "integer"},
    "readme_first": {"type": "boolean"}
  },
  "required": ["project_root", "primary_theme"]
}`)
}

func (t *LoadContext) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p loadContextParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	mode := model.ModeFocused
	switch p.Mode {
	case string(model.ModeExpanded):
		mode = model.ModeExpanded
	case string(model.ModeWide):
		mode = model.ModeWide
	}

	var refs []model.FlowStepRef
	for _, r := range p.FlowReferences {
		refs = append(refs, model.FlowStepRef{FlowID: r.FlowID, FlowFile: r.FlowFile, StepIDs: r.StepIDs})
	}

	sel, err := t.loader.Load(ctx, contextload.Request{
		ProjectRoot:    p.ProjectRoot,
		PrimaryTheme:   p.PrimaryTheme,
		RelatedThemes:  p.RelatedThemes,
		FlowReferences: refs,
		Mode:           mode,
		MaxFlowFiles:   p.MaxFlowFiles,
		ReadmeFirst:    p.ReadmeFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("loading context: %w", err)
	}

	return mcpserver.JSONResult(map[string]any{
		"mode":           sel.Mode,
		"always_files":   sel.AlwaysFiles,
		"theme_files":    sel.ThemeFiles,
		"flow_files":     sel.FlowFiles,
		"readme_files":   sel.ReadmeFiles,
		"warnings":       sel.Warnings,
		"estimated_size": sel.EstimatedSize,
	}), nil
}

// --- aipm_escalate_context ---

type escalateContextParams struct {
	TaskID       string `json:"task_id" validate:"required"`
	Current      string `json:"current" validate:"required,oneof=focused expanded wide"`
	Requested    string `json:"requested" validate:"required,oneof=focused expanded wide"`
	UserApproved bool   `json:"user_approved,omitempty"`
}

type EscalateContext struct {
	loader *contextload.Loader
}

func NewEscalateContext(loader *contextload.Loader) *EscalateContext {
	return &EscalateContext{loader: loader}
}

func (t *EscalateContext) Name() string { return "aipm_escalate_context" }
func (t *EscalateContext) Description() string {
	return "Escalate a task's context mode (focused to expanded is automatic; expanded to wide requires user approval), bounded to one escalation per task."
}
func (t *EscalateContext) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string"},
    "current": {"type": "string", "enum": ["focused", "expanded", "wide"]},
    "requested": {"type": "string", "enum": ["focused", "expanded", "wide"]},
    "user_approved": {"type": "boolean"}
  },
  "required": ["task_id", "current", "requested"]
}`)
}

func (t *EscalateContext) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p escalateContextParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := validate.Struct(p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	if err := t.loader.Escalate(ctx, p.TaskID, model.ContextMode(p.Current), model.ContextMode(p.Requested), p.UserApproved); err != nil {
		if me, ok := model.AsError(err); ok {
			return mcpserver.ErrorResult(me.Message), nil
		}
		return nil, fmt.Errorf("escalating context: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{"task_id": p.TaskID, "mode": p.Requested}), nil
}
