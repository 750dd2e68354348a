// Package content provides MCP prompts and resources for the server: guided
// workflows and reference material an agent can pull in alongside the
// aipm_* tools, without any of it touching Store state itself.
package content

import "github.com/aryanduntley/AIProjectManager-sub003/internal/mcpserver"

// --- boot-session prompt ---

// BootSessionPrompt walks an agent through starting a session correctly:
// run aipm_boot_session first, then branch off before touching files.
type BootSessionPrompt struct{}

func (p *BootSessionPrompt) Definition() mcpserver.PromptDefinition {
	return mcpserver.PromptDefinition{
		Name:        "boot-session",
		Description: "Guide for starting a work session: boot, reconcile pending Git changes, then create a work branch.",
		Arguments:   []mcpserver.PromptArgumentSpec{},
	}
}

func (p *BootSessionPrompt) Get(_ map[string]string) (*mcpserver.PromptsGetResult, error) {
	return &mcpserver.PromptsGetResult{
		Description: "Guide for booting a session",
		Messages: []mcpserver.PromptMessage{
			{Role: "user", Content: mcpserver.ContentBlock{Type: "text", Text: bootSessionGuide}},
		},
	}, nil
}

const bootSessionGuide = `# Starting a session

1. Call aipm_boot_session. If fast_path is true, the prior session's
   context is still valid and you can resume immediately.
2. If pending_approval is non-empty, the project changed outside this
   tool since the last session (external edits, another branch merged).
   Each entry names a file, a severity, and a strategy. auto-strategy
   entries are already reconciled; user-approval and manual entries need
   you to look at the diff before trusting existing task progress.
3. If resumed_task_id is set, a task was in-progress when the last
   session ended. Confirm with the user before continuing it blind.
4. Before editing anything, call aipm_create_branch with a short purpose
   string. Every substantive change happens on its own branch; the
   organizational branch (projectManagement/) is never edited directly.
5. Use aipm_load_context with the task's primary_theme and any
   related_themes/flow_references to pull the minimum file set instead of
   reading the whole tree.
`

// --- plan-task prompt ---

// PlanTaskPrompt guides creating a task with the organizational metadata
// the scheduler needs (milestone, theme, acceptance criteria).
type PlanTaskPrompt struct{}

func (p *PlanTaskPrompt) Definition() mcpserver.PromptDefinition {
	return mcpserver.PromptDefinition{
		Name:        "plan-task",
		Description: "Guide for creating a well-formed task: milestone, theme, acceptance criteria, and dependencies.",
		Arguments:   []mcpserver.PromptArgumentSpec{},
	}
}

func (p *PlanTaskPrompt) Get(_ map[string]string) (*mcpserver.PromptsGetResult, error) {
	return &mcpserver.PromptsGetResult{
		Description: "Guide for planning a task",
		Messages: []mcpserver.PromptMessage{
			{Role: "user", Content: mcpserver.ContentBlock{Type: "text", Text: planTaskGuide}},
		},
	}, nil
}

const planTaskGuide = `# Planning a task

Every task needs:
- A milestone_id referring to an existing milestone (aipm_create_task
  fails with MissingMilestone otherwise).
- A primary_theme naming the theme whose files are loaded by default;
  related_themes for secondary context, pulled in only under wide
  context mode.
- acceptance_criteria: concrete, checkable statements — not "works
  correctly" but "returns 404 for an unknown id".
- dependencies: task ids that must complete first. They are recorded on
  the task; aipm_start_task does not check them.

If the task is large enough to need parallel workstreams, split it into
subtasks after creation rather than cramming everything into one task's
acceptance criteria.
`

// --- handle-sidequest prompt ---

// HandleSidequestPrompt guides pausing in-progress work for an
// unplanned but necessary detour.
type HandleSidequestPrompt struct{}

func (p *HandleSidequestPrompt) Definition() mcpserver.PromptDefinition {
	return mcpserver.PromptDefinition{
		Name:        "handle-sidequest",
		Description: "Guide for creating a sidequest when unplanned work interrupts an in-progress subtask.",
		Arguments:   []mcpserver.PromptArgumentSpec{},
	}
}

func (p *HandleSidequestPrompt) Get(_ map[string]string) (*mcpserver.PromptsGetResult, error) {
	return &mcpserver.PromptsGetResult{
		Description: "Guide for handling a sidequest",
		Messages: []mcpserver.PromptMessage{
			{Role: "user", Content: mcpserver.ContentBlock{Type: "text", Text: handleSidequestGuide}},
		},
	}, nil
}

const handleSidequestGuide = `# Handling a sidequest

A sidequest is unplanned work discovered mid-task — a bug that blocks
progress, a missing dependency, a broken build. Before creating one:

1. Is this really blocking, or can it become a follow-up task instead?
   Sidequests pause the parent subtask's progress; only use one when
   continuing without the detour isn't realistic.
2. Call aipm_create_sidequest with the parent task id and, if a subtask
   was actively in progress, its id as paused_subtask_id — this snapshots
   the subtask's progress and loaded context so it can be restored later.
3. A task allows a bounded number of concurrent sidequests. If
   aipm_create_sidequest returns LimitExceeded, its suggestion lists your
   options: wait for one to finish, fold the new work into an existing
   sidequest, replace one, or ask the user to raise the limit.
4. When the detour is resolved, call aipm_complete_sidequest — this
   restores the paused subtask's progress and loaded context exactly as
   they were. aipm_cancel_sidequest instead discards the snapshot
   without restoring it and marks the sidequest cancelled.
`
