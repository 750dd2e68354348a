package model

import "time"

// Status enums shared by the task/subtask/sidequest state graph (spec §4.2).
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusBlocked    = "blocked"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ContextMode is the breadth of themes/flows exposed to the agent.
type ContextMode string

const (
	ModeFocused  ContextMode = "focused"
	ModeExpanded ContextMode = "expanded"
	ModeWide     ContextMode = "wide"
)

// SidequestImpact classifies how much a sidequest changes the parent task's
// scope.
type SidequestImpact string

const (
	ImpactMinimal     SidequestImpact = "minimal"
	ImpactModerate    SidequestImpact = "moderate"
	ImpactSignificant SidequestImpact = "significant"
)

// Session is the top-level unit of a running MCP process. Exactly one
// session is `active` at a time (spec §3).
type Session struct {
	ID            string
	StartTime     time.Time
	LastActivity  time.Time
	ContextMode   ContextMode
	ActiveThemes  []string
	ActiveTasks   []string
	ActiveQuests  []string
	Status        string // active, paused, completed, terminated
}

// Task is a unit of work tracked against a milestone.
type Task struct {
	ID                 string
	Title              string
	Status             string
	Priority           string
	MilestoneID        string
	PrimaryTheme       string
	RelatedThemes      []string
	Progress           int
	AcceptanceCriteria []string
	Dependencies       []string
	EstimatedEffort    float64
	ActualEffort       float64
	BlockedReason      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ParentKind identifies what kind of entity owns a Subtask.
type ParentKind string

const (
	ParentTask      ParentKind = "task"
	ParentSidequest ParentKind = "sidequest"
)

// FlowStepRef ties a subtask to a concrete step within a flow.
type FlowStepRef struct {
	FlowID   string
	FlowFile string
	StepIDs  []string
}

// Subtask is owned exclusively by one Task or Sidequest.
type Subtask struct {
	ID            string
	ParentID      string
	ParentKind    ParentKind
	Title         string
	Status        string
	FlowRefs      []FlowStepRef
	Files         []string
	ContextMode   ContextMode
	Progress      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Sidequest is a tangential unit of work spawned mid-task that pauses its
// parent until resolved.
type Sidequest struct {
	ID               string
	ParentTaskID     string
	ScopeDescription string
	Reason           string
	Urgency          string
	Impact           SidequestImpact
	InheritedThemes  []string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ContextSnapshot captures the state of the active subtask at the moment a
// task is paused (for a sidequest), so it can be restored byte-for-byte on
// resume (spec §4.2, scenario A).
type ContextSnapshot struct {
	PausedSubtaskID string
	PausedProgress  int
	LoadedThemes    []string
	LoadedFlows     []string
	LoadedFiles     []string
	PausedAt        time.Time
}

// RequiredFlow is a milestone gate: a flow must reach at least the required
// status before the milestone can complete.
type RequiredFlow struct {
	FlowID           string
	RequiredStatus   string
}

// Milestone is a completion gate on the project's path.
type Milestone struct {
	ID                    string
	Description           string
	Dependencies          []string
	RequiredFlows         []RequiredFlow
	RelatedTasks          []string
	ImplementationPlanIDs []string
	Status                string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// SharedFileEntry records which themes share a file and why.
type SharedFileEntry struct {
	Themes      []string
	Description string
}

// Theme is a named bucket of source files representing a functional or
// technical slice of the project.
type Theme struct {
	Name        string
	Category    string
	Files       []string
	LinkedNames []string
	SharedFiles map[string]SharedFileEntry
	Keywords    []string
	ApprovedAt  *time.Time
}

// FlowStep is one ordered step within a Flow.
type FlowStep struct {
	StepID       string
	Description  string
	Dependencies []string
	Status       string
}

// Flow is an ordered set of user-experience steps grouped by domain.
type Flow struct {
	FlowID             string
	FlowFile           string
	Steps              []FlowStep
	PrimaryThemes      []string
	CompletionPercent  float64
}

// ImplementationPlan decomposes a milestone into phases and feeds task
// generation. Versions are append-only.
type ImplementationPlan struct {
	ID              string
	MilestoneID     string
	Status          string // active, completed, superseded
	Version         int
	Phases          []string
	SuccessCriteria []string
	CreatedAt       time.Time
}

// NoteworthyEvent is an append-only record of a decision or occurrence
// worth surfacing later. Never mutated once written.
type NoteworthyEvent struct {
	ID            string
	Type          string
	Title         string
	PrimaryTheme  string
	RelatedTaskID string
	SessionID     string
	Impact        string
	Reasoning     string
	Outcome       string
	Severity      string
	CreatedAt     time.Time
	ArchivedAt    *time.Time
}

// BranchCreator records who created a work branch and how that was
// determined (spec §4.4 "user detection").
type BranchCreator struct {
	Name   string
	Email  string
	Source string // git-config, env, system, fallback
}

// Branch is a `ai-pm-org-branch-NNN` work branch.
type Branch struct {
	Number    int
	Name      string
	CreatedAt time.Time
	CreatedBy BranchCreator
	BaseHash  string
	Status    string // active, merged, deleted
	Purpose   string
}

// GitProjectState tracks the last-reconciled Git HEAD for a project path.
type GitProjectState struct {
	ProjectPath          string
	CurrentHash          string
	LastKnownHash        string
	LastSync             time.Time
	ChangeSummary        string
	AffectedThemes       []string
	ReconciliationStatus string
}
