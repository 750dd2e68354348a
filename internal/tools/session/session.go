// Package session implements the SessionBoot tools: aipm_boot_session and
// aipm_end_session.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/mcpserver"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/session"
)

// --- aipm_boot_session ---

type bootSessionParams struct {
	DeadlineSeconds int  `json:"deadline_seconds,omitempty"`
	Force           bool `json:"force,omitempty"`
}

type BootSession struct {
	boot *session.Boot
}

func NewBootSession(boot *session.Boot) *BootSession { return &BootSession{boot: boot} }

func (t *BootSession) Name() string { return "aipm_boot_session" }
func (t *BootSession) Description() string {
	return "Run the session-boot sequence: create a session, reconcile any external Git changes, and restore or compute working context. Degrades to a minimal read-only snapshot if the deadline is exceeded."
}
func (t *BootSession) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "deadline_seconds": {"type": "integer", "description": "Total boot deadline; defaults to 10s"},
    "force": {"type": "boolean", "description": "Skip the fast path and force a comprehensive boot"}
  }
}`)
}

func (t *BootSession) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p bootSessionParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
		}
	}

	deadline := session.DefaultDeadline
	if p.DeadlineSeconds > 0 {
		deadline = time.Duration(p.DeadlineSeconds) * time.Second
	}

	snap, err := t.boot.Run(ctx, deadline, p.Force)
	if err != nil {
		return nil, fmt.Errorf("booting session: %w", err)
	}

	taskIDs := make([]string, 0, len(snap.ActiveTasks))
	for _, tk := range snap.ActiveTasks {
		taskIDs = append(taskIDs, tk.ID)
	}

	return mcpserver.JSONResult(map[string]any{
		"session_id":       snap.Session.ID,
		"fast_path":        snap.FastPath,
		"degraded":         snap.Degraded,
		"resumed_task_id":  snap.ResumedTaskID,
		"active_task_ids":  taskIDs,
		"pending_approval": snap.PendingApproval,
	}), nil
}

// --- aipm_end_session ---

type endSessionParams struct {
	SessionID string `json:"session_id"`
}

type EndSession struct {
	boot *session.Boot
}

func NewEndSession(boot *session.Boot) *EndSession { return &EndSession{boot: boot} }

func (t *EndSession) Name() string { return "aipm_end_session" }
func (t *EndSession) Description() string {
	return "Terminate a session, writing its final context snapshot and marking it completed."
}
func (t *EndSession) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {"session_id": {"type": "string"}},
  "required": ["session_id"]
}`)
}

func (t *EndSession) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p endSessionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.SessionID == "" {
		return mcpserver.ErrorResult("session_id is required"), nil
	}
	if err := t.boot.End(ctx, p.SessionID); err != nil {
		return nil, fmt.Errorf("ending session: %w", err)
	}
	return mcpserver.JSONResult(map[string]any{"session_id": p.SessionID, "status": "completed"}), nil
}
