// Package guards implements the advisory/gating layer sitting in front of
// Scheduler and ContextLoader operations. Each guard returns a result with
// a severity that determines how the caller responds:
//
//   - HARD_BLOCK: stops execution. Caller cannot proceed.
//   - SOFT_BLOCK: stops execution by default but can be overridden with force=true.
//   - WARNING: operation proceeds but includes an advisory message in the response.
//   - SUGGESTION: operation proceeds with an optional recommendation.
//
// Guards are grouped into GuardSets for specific operations (create
// sidequest, escalate context, complete milestone). The Runner executes a
// set and aggregates results.
package guards

import (
	"context"
	"fmt"
	"strings"
)

// Severity indicates how a guard failure affects execution.
type Severity int

const (
	Suggestion Severity = iota
	Warning
	SoftBlock
	HardBlock
)

func (s Severity) String() string {
	switch s {
	case Suggestion:
		return "SUGGESTION"
	case Warning:
		return "WARNING"
	case SoftBlock:
		return "SOFT_BLOCK"
	case HardBlock:
		return "HARD_BLOCK"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of a single guard check.
type Result struct {
	GuardName string   `json:"guardName"`
	Passed    bool     `json:"passed"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Remedy    string   `json:"remedy,omitempty"`
	// Resolutions lists the advisory options a caller may choose from when
	// this guard fails (spec §4.2's LimitExceeded: wait, modify_existing,
	// replace, raise_limit). Empty for guards with a single remedy.
	Resolutions []string `json:"resolutions,omitempty"`
}

// Outcome is the aggregated result of running a GuardSet.
type Outcome struct {
	Blocked bool     `json:"blocked"`
	Results []Result `json:"results"`
}

func (o *Outcome) HardBlocks() []Result  { return o.filterSeverity(HardBlock) }
func (o *Outcome) SoftBlocks() []Result  { return o.filterSeverity(SoftBlock) }
func (o *Outcome) Warnings() []Result    { return o.filterSeverity(Warning) }
func (o *Outcome) Suggestions() []Result { return o.filterSeverity(Suggestion) }

func (o *Outcome) filterSeverity(sev Severity) []Result {
	var out []Result
	for _, r := range o.Results {
		if !r.Passed && r.Severity == sev {
			out = append(out, r)
		}
	}
	return out
}

// FormatBlockMessage returns a human-readable message describing why the
// operation was blocked.
func (o *Outcome) FormatBlockMessage() string {
	if !o.Blocked {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Operation blocked by guards:\n")
	for _, r := range o.HardBlocks() {
		sb.WriteString(fmt.Sprintf("\n[HARD_BLOCK] %s: %s", r.GuardName, r.Message))
		if r.Remedy != "" {
			sb.WriteString(fmt.Sprintf("\n  Remedy: %s", r.Remedy))
		}
	}
	for _, r := range o.SoftBlocks() {
		sb.WriteString(fmt.Sprintf("\n[SOFT_BLOCK] %s: %s", r.GuardName, r.Message))
		if r.Remedy != "" {
			sb.WriteString(fmt.Sprintf("\n  Remedy: %s", r.Remedy))
		}
	}
	if len(o.SoftBlocks()) > 0 {
		sb.WriteString("\n\nUse force=true to override soft blocks.")
	}
	return sb.String()
}

// FormatAdvisoryMessage returns a human-readable message for warnings and
// suggestions.
func (o *Outcome) FormatAdvisoryMessage() string {
	warnings := o.Warnings()
	suggestions := o.Suggestions()
	if len(warnings) == 0 && len(suggestions) == 0 {
		return ""
	}
	var sb strings.Builder
	if len(warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, r := range warnings {
			sb.WriteString(fmt.Sprintf("  - %s: %s", r.GuardName, r.Message))
			if r.Remedy != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", r.Remedy))
			}
			sb.WriteString("\n")
		}
	}
	if len(suggestions) > 0 {
		sb.WriteString("Suggestions:\n")
		for _, r := range suggestions {
			sb.WriteString(fmt.Sprintf("  - %s: %s", r.GuardName, r.Message))
			if r.Remedy != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", r.Remedy))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Guard is a single check that can be composed into guard sets.
type Guard interface {
	Name() string
	Check(ctx context.Context, gctx *GuardContext) Result
}

// GuardContext carries everything guards need to evaluate their checks,
// populated ahead of time by Populate* helpers so guards never query the
// Store directly themselves.
type GuardContext struct {
	// Force allows overriding soft blocks (an explicit escalation/override
	// call, never the default path).
	Force bool

	// Sidequest-limit guard inputs (spec §4.2 createSidequest step 2).
	TaskID                    string
	ActiveSidequestCount      int
	MaxSimultaneousSidequests int

	// Milestone-completion guard inputs (spec §4.2, §8 scenario C).
	MilestoneID              string
	UnmetRequiredFlows       int
	ActiveImplementationPlan bool

	// Context-escalation guard inputs (spec §4.3).
	CurrentMode     string
	RequestedMode   string
	EscalationsUsed int

	// Shared-file threshold inputs (spec §3's Theme invariant).
	FilePath   string
	ThemeCount int
	Threshold  int
}

// GuardFunc adapts a function to Guard.
type GuardFunc struct {
	name  string
	check func(ctx context.Context, gctx *GuardContext) Result
}

func NewGuardFunc(name string, fn func(ctx context.Context, gctx *GuardContext) Result) *GuardFunc {
	return &GuardFunc{name: name, check: fn}
}

func (g *GuardFunc) Name() string { return g.name }
func (g *GuardFunc) Check(ctx context.Context, gctx *GuardContext) Result {
	return g.check(ctx, gctx)
}

// Pass returns a passing result for the given guard name.
func Pass(guardName string) Result {
	return Result{GuardName: guardName, Passed: true}
}

// Fail returns a failing result with the given severity and message.
func Fail(guardName string, severity Severity, message, remedy string) Result {
	return Result{GuardName: guardName, Passed: false, Severity: severity, Message: message, Remedy: remedy}
}

// FailWithResolutions is Fail plus an explicit resolution menu (used by
// the sidequest-limit guard's four advisory options).
func FailWithResolutions(guardName string, severity Severity, message string, resolutions []string) Result {
	return Result{GuardName: guardName, Passed: false, Severity: severity, Message: message, Resolutions: resolutions}
}

// Runner executes a set of guards and aggregates results.
type Runner struct{}

func NewRunner() *Runner { return &Runner{} }

func (r *Runner) Run(ctx context.Context, gctx *GuardContext, guardSet []Guard) *Outcome {
	outcome := &Outcome{}
	for _, g := range guardSet {
		result := g.Check(ctx, gctx)
		outcome.Results = append(outcome.Results, result)
		if !result.Passed {
			switch result.Severity {
			case HardBlock:
				outcome.Blocked = true
			case SoftBlock:
				if !gctx.Force {
					outcome.Blocked = true
				}
			}
		}
	}
	return outcome
}
