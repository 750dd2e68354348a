// Package contextload implements the context-loading algorithm of spec
// §4.3: choosing the minimum sufficient set of files for a work item and
// escalating on demand, bounded to one escalation per task.
package contextload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/guards"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/themeflow"
)

// defaultMemoryBudget is spec §4.3 step 5's 100 MiB default. Not exposed
// as a project config option — spec.md's option table doesn't list one,
// so it stays a package constant until a future option is added.
const defaultMemoryBudget = 100 * 1024 * 1024

const readmeByteCap = 2 * 1024

// AlwaysAccessible is the set of project-root files loaded regardless of
// mode (spec §4.3 step 4), relative to the project root.
var AlwaysAccessible = []string{
	"README.md",
	"go.mod",
	"projectManagement/ProjectBlueprint/blueprint.json",
	"projectManagement/UserSettings/config.json",
}

// Request is the input to Load: the work item's theme/flow references and
// the caller's current escalation budget.
type Request struct {
	ProjectRoot    string
	PrimaryTheme   string
	RelatedThemes  []string
	FlowReferences []model.FlowStepRef
	Mode           model.ContextMode
	MaxFlowFiles   int
	ReadmeFirst    bool
}

// Selection is the result of Load: the resolved file set plus any
// truncation warnings.
type Selection struct {
	Mode          model.ContextMode
	ThemeFiles    []string
	FlowFiles     []string
	ReadmeFiles   []string
	AlwaysFiles   []string
	Warnings      []string
	EstimatedSize int64
}

// Loader implements spec §4.3's selection algorithm and escalation policy.
type Loader struct {
	store  *store.Store
	index  *themeflow.Index
	guards *guards.Runner

	// escalationsUsed tracks, per task id, how many times the task has
	// escalated (spec §4.3: "Each task is permitted at most one
	// escalation"). Scoped per task, not per session (an Open Question
	// decision).
	escalationsUsed map[string]int
}

// New builds a Loader backed by the given Store and ThemeFlowIndex.
func New(st *store.Store, idx *themeflow.Index) *Loader {
	return &Loader{
		store:           st,
		index:           idx,
		guards:          guards.NewRunner(),
		escalationsUsed: map[string]int{},
	}
}

// Load runs the five-step selection algorithm for req.Mode.
func (l *Loader) Load(ctx context.Context, req Request) (*Selection, error) {
	sel := &Selection{Mode: req.Mode, AlwaysFiles: AlwaysAccessible}

	themes := l.themesForMode(req)
	for _, name := range themes {
		t, ok := l.index.Theme(name)
		if !ok {
			continue
		}
		sel.ThemeFiles = append(sel.ThemeFiles, t.Files...)
		if req.ReadmeFirst {
			sel.ReadmeFiles = append(sel.ReadmeFiles, readmesFor(req.ProjectRoot, t.Files)...)
		}
	}

	maxFlowFiles := req.MaxFlowFiles
	if maxFlowFiles <= 0 {
		maxFlowFiles = 3
	}
	for i, ref := range req.FlowReferences {
		if i >= maxFlowFiles {
			sel.Warnings = append(sel.Warnings, fmt.Sprintf("dropped flow file %s: exceeds maxFlowFiles=%d", ref.FlowFile, maxFlowFiles))
			continue
		}
		sel.FlowFiles = append(sel.FlowFiles, ref.FlowFile)
	}

	sel.ThemeFiles = dedupe(sel.ThemeFiles)
	sel.ReadmeFiles = dedupe(sel.ReadmeFiles)
	sel.FlowFiles = dedupe(sel.FlowFiles)

	l.estimateAndTruncate(req.ProjectRoot, sel, defaultMemoryBudget)
	return sel, nil
}

// themesForMode returns the theme set a given mode exposes: focused is
// primary only, expanded adds linked themes, wide is every related theme
// (spec §4.3's three-mode table).
func (l *Loader) themesForMode(req Request) []string {
	switch req.Mode {
	case model.ModeFocused:
		return []string{req.PrimaryTheme}
	case model.ModeExpanded:
		themes := []string{req.PrimaryTheme}
		if t, ok := l.index.Theme(req.PrimaryTheme); ok {
			themes = append(themes, t.LinkedNames...)
		}
		return dedupe(themes)
	case model.ModeWide:
		themes := append([]string{req.PrimaryTheme}, req.RelatedThemes...)
		if t, ok := l.index.Theme(req.PrimaryTheme); ok {
			themes = append(themes, t.LinkedNames...)
		}
		return dedupe(themes)
	default:
		return []string{req.PrimaryTheme}
	}
}

// Escalate attempts to move a task's context from its current mode to the
// requested one, running ContextEscalationGuard first (spec §4.3:
// focused→expanded is automatic on a failed sufficiency check; expanded→wide
// needs explicit user approval; one escalation per task).
func (l *Loader) Escalate(ctx context.Context, taskID string, current, requested model.ContextMode, userApproved bool) error {
	gctx := &guards.GuardContext{
		CurrentMode:     string(current),
		RequestedMode:   string(requested),
		EscalationsUsed: l.escalationsUsed[taskID],
		Force:           userApproved,
	}
	outcome := l.guards.Run(ctx, gctx, guards.EscalateContextGuards())
	if outcome.Blocked {
		r := outcome.HardBlocks()
		if len(r) == 0 {
			r = outcome.SoftBlocks()
		}
		return model.New(model.ErrValidation, "%s", r[0].Message).WithSuggestion(r[0].Remedy)
	}
	l.escalationsUsed[taskID]++
	return nil
}

// ValidateFlowReferences applies the validation.flowReferences project
// option's three modes over every flow reference a work item declares.
func (l *Loader) ValidateFlowReferences(mode string, refs []model.FlowStepRef) []error {
	var errs []error
	for _, ref := range refs {
		if err := l.index.ValidateFlowReference(mode, ref.FlowID, ref.StepIDs); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func readmesFor(projectRoot string, files []string) []string {
	dirs := map[string]bool{}
	var out []string
	for _, f := range files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		candidate := filepath.Join(projectRoot, dir, "README.md")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			out = append(out, filepath.Join(dir, "README.md"))
		}
	}
	return out
}

// estimateAndTruncate sums file sizes on disk and, if the total exceeds
// budget, drops the least-relevant flow files first then the
// lowest-confidence (last-added) theme files, recording a human-readable
// warning each time (spec §4.3 step 5).
func (l *Loader) estimateAndTruncate(projectRoot string, sel *Selection, budget int64) {
	size := func(rel string) int64 {
		info, err := os.Stat(filepath.Join(projectRoot, rel))
		if err != nil {
			return 0
		}
		if rel == "README.md" || filepath.Base(rel) == "README.md" {
			if info.Size() > readmeByteCap {
				return readmeByteCap
			}
		}
		return info.Size()
	}

	total := int64(0)
	for _, f := range sel.AlwaysFiles {
		total += size(f)
	}
	for _, f := range sel.ThemeFiles {
		total += size(f)
	}
	for _, f := range sel.ReadmeFiles {
		total += size(f)
	}
	for _, f := range sel.FlowFiles {
		total += size(f)
	}
	sel.EstimatedSize = total

	if total <= budget {
		return
	}
	sel.Warnings = append(sel.Warnings, fmt.Sprintf(
		"estimated context size %s exceeds budget %s, truncating lowest-relevance files",
		humanize.Bytes(uint64(total)), humanize.Bytes(uint64(budget))))

	for total > budget && len(sel.FlowFiles) > 0 {
		dropped := sel.FlowFiles[len(sel.FlowFiles)-1]
		sel.FlowFiles = sel.FlowFiles[:len(sel.FlowFiles)-1]
		total -= size(dropped)
		sel.Warnings = append(sel.Warnings, fmt.Sprintf("dropped flow file %s", dropped))
	}
	for total > budget && len(sel.ThemeFiles) > 0 {
		dropped := sel.ThemeFiles[len(sel.ThemeFiles)-1]
		sel.ThemeFiles = sel.ThemeFiles[:len(sel.ThemeFiles)-1]
		total -= size(dropped)
		sel.Warnings = append(sel.Warnings, fmt.Sprintf("dropped theme file %s", dropped))
	}
	sel.EstimatedSize = total
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
