package content

import "github.com/aryanduntley/AIProjectManager-sub003/internal/mcpserver"

// --- aipm://entity-model resource ---

// EntityModelResource documents the work-item and organizational schema
// the Store persists.
type EntityModelResource struct{}

func (r *EntityModelResource) Definition() mcpserver.ResourceDefinition {
	return mcpserver.ResourceDefinition{
		URI:         "aipm://entity-model",
		Name:        "Entity Model",
		Description: "Work-item and organizational entity types persisted by the Store, and how they relate.",
		MimeType:    "text/markdown",
	}
}

func (r *EntityModelResource) Read() (*mcpserver.ResourcesReadResult, error) {
	return &mcpserver.ResourcesReadResult{
		Contents: []mcpserver.ResourceContent{
			{URI: "aipm://entity-model", MimeType: "text/markdown", Text: entityModelContent},
		},
	}, nil
}

// --- aipm://guardrails resource ---

// GuardrailsResource documents the guard checks that gate scheduler and
// context-escalation operations.
type GuardrailsResource struct{}

func (r *GuardrailsResource) Definition() mcpserver.ResourceDefinition {
	return mcpserver.ResourceDefinition{
		URI:         "aipm://guardrails",
		Name:        "Guardrails",
		Description: "Guard checks run before state transitions, their severities, and what triggers each.",
		MimeType:    "text/markdown",
	}
}

func (r *GuardrailsResource) Read() (*mcpserver.ResourcesReadResult, error) {
	return &mcpserver.ResourcesReadResult{
		Contents: []mcpserver.ResourceContent{
			{URI: "aipm://guardrails", MimeType: "text/markdown", Text: guardrailsContent},
		},
	}, nil
}

// --- aipm://tool-reference resource ---

// ToolReferenceResource is a quick-reference card for every aipm_* tool.
type ToolReferenceResource struct{}

func (r *ToolReferenceResource) Definition() mcpserver.ResourceDefinition {
	return mcpserver.ResourceDefinition{
		URI:         "aipm://tool-reference",
		Name:        "Tool Reference",
		Description: "Quick-reference card for every aipm_* tool, its parameters, and what it returns.",
		MimeType:    "text/markdown",
	}
}

func (r *ToolReferenceResource) Read() (*mcpserver.ResourcesReadResult, error) {
	return &mcpserver.ResourcesReadResult{
		Contents: []mcpserver.ResourceContent{
			{URI: "aipm://tool-reference", MimeType: "text/markdown", Text: toolReferenceContent},
		},
	}, nil
}

// --- Static content ---

const entityModelContent = `# Entity Model

## Work items

### Task
Top-level unit of planned work.
- Fields: id, title, status (pending/in-progress/blocked/completed/cancelled),
  priority, milestone_id, primary_theme, related_themes, progress,
  acceptance_criteria, dependencies, estimated_effort, actual_effort,
  blocked_reason, created_at, last_updated.
- A task must name an existing milestone and theme at creation.
- Progress is set directly (aipm_update_task_progress); it is not
  derived from subtask progress.

### Subtask
A task broken into independently trackable units of work.
- Fields: id, parent_id, parent_kind, title, status, flow_refs, files,
  context_mode, progress.
- Can be paused by a sidequest; its progress and loaded context are
  snapshotted and restored on sidequest completion. Cancelling the
  sidequest discards the snapshot without restoring it.

### Sidequest
Unplanned work that interrupts an in-progress subtask.
- Fields: id, parent_task_id, scope_description, reason, urgency,
  impact, status, created_at.
- Bounded per task by a configured limit; exceeding it returns
  LimitExceeded with four resolutions (wait, modify_existing, replace,
  raise_limit).

## Organizational entities

### Theme
Names a cohesive area of the codebase and the files that belong to it.
Tasks declare one primary_theme and may declare related_themes.

### Flow
Describes a cross-theme interaction as an ordered sequence of steps,
each step naming the file(s) it touches. Tasks can reference specific
flow steps instead of loading the whole flow.

### Milestone
Groups tasks toward a larger deliverable; a task cannot be created
without naming one.

### Branch
A Git branch allocated for one task's work, created off the
organizational main branch and merged back (never force-pushed, never
auto-deleted).

### Session
One boot-to-end window of agent activity. Carries the context mode in
effect and a pointer to resumed/active tasks.
`

const guardrailsContent = `# Guardrails

## Severities

| Level | Meaning | Override |
|-------|---------|----------|
| HardBlock | operation refused outright | fix the underlying condition |
| SoftBlock | operation refused by default | pass force=true |
| Warning | operation proceeds, result carries a warning | none needed |
| Suggestion | informational only | none needed |

## Guard sets

### CreateSidequestGuards
Run before aipm_create_sidequest. Blocks when the parent task's active
sidequest count is already at its configured limit.

### CompleteMilestoneGuards
Run before a milestone is marked complete. Blocks while any of its
required flows are unmet or an implementation plan is still active.

### EscalateContextGuards
Run before every aipm_escalate_context call. Requires
user_approved=true for expanded → wide; blocks a second escalation on
the same task.

### RegisterSharedFileGuards
Run when a file is claimed by more themes than the configured
sharedFileThreshold. Warns rather than
blocks — shared files are expected at integration boundaries, but worth
surfacing so context loading doesn't silently double-count them.

## GuardContext

Guards receive a populated GuardContext rather than querying the Store
themselves, so a guard set runs as one read pass instead of one query
per guard.
`

const toolReferenceContent = `# Tool Reference

## Tasks
- aipm_create_task — title, priority, milestone_id, primary_theme,
  related_themes, acceptance_criteria, dependencies, estimated_effort.
- aipm_start_task — task_id. Fails ConcurrentTask if any other task is
  already in-progress.
- aipm_complete_task — task_id, force. Blocks on incomplete subtasks
  unless force=true.
- aipm_update_task_progress — task_id, percent (0-100).
- aipm_update_subtask_progress — subtask_id, percent (0-100).

## Sidequests
- aipm_create_sidequest — parent_task_id, scope_description, reason,
  urgency, impact, paused_subtask_id (optional).
- aipm_complete_sidequest — sidequest_id. Restores the paused subtask's
  progress and loaded context.
- aipm_cancel_sidequest — sidequest_id. Discards the snapshot without
  restoring it.

## Context
- aipm_load_context — project_root, primary_theme, related_themes,
  flow_references, mode (focused/expanded/wide), max_flow_files,
  readme_first.
- aipm_escalate_context — task_id, current, requested, user_approved.

## Branches
- aipm_create_branch — purpose, has_organizational_state.
- aipm_merge_branch — branch_name, delete_after.
- aipm_list_branches — no params.
- aipm_stale_branches — no params. Advisory only.

## Sessions
- aipm_boot_session — deadline_seconds, force.
- aipm_end_session — session_id.
`
