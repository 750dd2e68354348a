// Package gitbridge implements GitBridge (spec §4.5): detecting external
// changes to the source tree between sessions and driving organizational
// reconciliation.
package gitbridge

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/gitutil"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/metrics"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

// Severity classifies the impact of a single changed file.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Strategy is the reconciliation path chosen for a changed file (spec
// §4.5's three strategies).
type Strategy string

const (
	StrategyAuto         Strategy = "auto"
	StrategyUserApproval Strategy = "user-approval"
	StrategyManual       Strategy = "manual"
)

// directoryThemeHints maps canonical directory tokens to candidate themes
// (spec §4.5). A plain map is the right-sized tool here — no library
// improves on a literal lookup table.
var directoryThemeHints = map[string][]string{
	"auth":     {"authentication"},
	"user":     {"user-management"},
	"payment":  {"billing"},
	"api":      {"api"},
	"ui":       {"frontend"},
	"database": {"data-layer"},
	"admin":    {"administration"},
	"config":   {"configuration"},
}

// namePatternHints maps filename substrings to candidate themes (spec
// §4.5's second, weaker inference tier).
var namePatternHints = map[string][]string{
	"auth":    {"authentication"},
	"login":   {"authentication"},
	"payment": {"billing"},
	"billing": {"billing"},
	"user":    {"user-management"},
	"profile": {"user-management"},
	"api":     {"api"},
	"config":  {"configuration"},
	"test":    {"testing"},
}

// Impact is the result of analyzing one changed file against the theme
// index.
type Impact struct {
	File            string
	ChangeType      string
	CandidateThemes []string
	Source          string // direct, directory, name-pattern, none
	Severity        Severity
	Strategy        Strategy
}

// Bridge drives git diffing and impact analysis against the Store's
// recorded theme state.
type Bridge struct {
	git         *gitutil.Runner
	store       *store.Store
	mu          *sync.Mutex
	projectRoot string
}

// New builds a Bridge for projectRoot, sharing the process-wide Git mutex
// with BranchManager.
func New(projectRoot string, st *store.Store, mu *sync.Mutex) *Bridge {
	return &Bridge{git: gitutil.New(projectRoot), store: st, mu: mu, projectRoot: projectRoot}
}

// DetectChanges implements spec §4.5 steps 1–4: compute HEAD, compare to
// the last-known hash, and if different enumerate the diff. A matching
// hash means fast boot — no reconciliation needed.
func (b *Bridge) DetectChanges(ctx context.Context) (changed bool, files []gitutil.ChangedFile, currentHash string, err error) {
	b.mu.Lock()
	currentHash, err = b.git.HeadHash(ctx)
	b.mu.Unlock()
	if err != nil {
		return false, nil, "", err
	}

	prior, err := b.store.GetGitProjectState(ctx, b.projectRoot)
	if store.NotFound(err) {
		return true, nil, currentHash, nil // first boot: nothing to diff against yet
	}
	if err != nil {
		return false, nil, "", err
	}
	if prior.LastKnownHash == currentHash {
		return false, nil, currentHash, nil
	}

	b.mu.Lock()
	files, err = b.git.DiffNameStatus(ctx, fmt.Sprintf("%s..%s", prior.LastKnownHash, currentHash))
	b.mu.Unlock()
	if err != nil {
		return false, nil, "", err
	}
	return true, files, currentHash, nil
}

// AnalyzeImpact classifies one changed file against the theme index,
// applying spec §4.5's three-tier inference (direct > directory > name
// pattern) and a magnitude-biased severity.
func (b *Bridge) AnalyzeImpact(ctx context.Context, rangeSpec string, cf gitutil.ChangedFile, themeFiles map[string][]string) (Impact, error) {
	imp := Impact{File: cf.Path, ChangeType: cf.ChangeType}

	for theme, files := range themeFiles {
		for _, f := range files {
			if f == cf.Path {
				imp.CandidateThemes = append(imp.CandidateThemes, theme)
				imp.Source = "direct"
			}
		}
	}

	if imp.Source == "" {
		for dir, themes := range directoryThemeHints {
			if strings.Contains(filepath.ToSlash(cf.Path), dir+"/") {
				imp.CandidateThemes = append(imp.CandidateThemes, themes...)
				imp.Source = "directory"
			}
		}
	}

	if imp.Source == "" {
		lower := strings.ToLower(cf.Path)
		for pattern, themes := range namePatternHints {
			if strings.Contains(lower, pattern) {
				imp.CandidateThemes = append(imp.CandidateThemes, themes...)
				imp.Source = "name-pattern"
			}
		}
	}
	if imp.Source == "" {
		imp.Source = "none"
	}
	imp.CandidateThemes = dedupe(imp.CandidateThemes)

	magnitude, err := b.magnitude(ctx, rangeSpec, cf.Path)
	if err != nil {
		magnitude = 0 // best-effort; severity still derivable from change type
	}
	imp.Severity = severityFor(cf.ChangeType, len(imp.CandidateThemes), magnitude)
	imp.Strategy = strategyFor(cf.ChangeType, imp.Source, len(imp.CandidateThemes))
	return imp, nil
}

// magnitude parses the full diff for one file and returns added+removed
// line count, used to bias severity between medium and high.
func (b *Bridge) magnitude(ctx context.Context, rangeSpec, path string) (int, error) {
	b.mu.Lock()
	raw, err := b.git.RawDiff(ctx, rangeSpec+" -- "+path)
	b.mu.Unlock()
	if err != nil || raw == "" {
		return 0, err
	}
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(raw))
	if err != nil {
		return 0, err
	}
	total := 0
	for _, fd := range fileDiffs {
		for _, h := range fd.Hunks {
			for _, line := range strings.Split(string(h.Body), "\n") {
				if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
					total++
				}
			}
		}
	}
	return total, nil
}

func severityFor(changeType string, candidateCount, magnitude int) Severity {
	if changeType == "deleted" && candidateCount > 1 {
		return SeverityCritical
	}
	if changeType == "deleted" {
		return SeverityHigh
	}
	if magnitude > 100 {
		return SeverityHigh
	}
	if magnitude > 20 {
		return SeverityMedium
	}
	return SeverityLow
}

func strategyFor(changeType, source string, candidateCount int) Strategy {
	if changeType == "deleted" && candidateCount > 1 {
		return StrategyManual
	}
	if source == "none" {
		return StrategyUserApproval // no existing theme claims it: candidate for a new theme
	}
	if candidateCount > 1 {
		return StrategyUserApproval
	}
	return StrategyAuto
}

// Reconcile runs DetectChanges + AnalyzeImpact for every changed file,
// records a noteworthy decision event per file, and advances
// git_project_state to the new hash.
func (b *Bridge) Reconcile(ctx context.Context, sessionID string) ([]Impact, error) {
	changed, files, currentHash, err := b.DetectChanges(ctx)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}

	prior, err := b.store.GetGitProjectState(ctx, b.projectRoot)
	lastHash := ""
	if err == nil {
		lastHash = prior.LastKnownHash
	}
	rangeSpec := fmt.Sprintf("%s..%s", lastHash, currentHash)

	themeFiles, err := b.loadThemeFiles(ctx)
	if err != nil {
		return nil, err
	}

	var impacts []Impact
	var affectedThemes []string
	for _, cf := range files {
		imp, err := b.AnalyzeImpact(ctx, rangeSpec, cf, themeFiles)
		if err != nil {
			return nil, err
		}
		impacts = append(impacts, imp)
		affectedThemes = append(affectedThemes, imp.CandidateThemes...)
		metrics.GitReconciliations.WithLabelValues(string(imp.Strategy)).Inc()

		if err := b.store.RecordGitChangeImpact(ctx, b.projectRoot, imp.File, imp.CandidateThemes, string(imp.Severity), string(imp.Strategy)); err != nil {
			return nil, err
		}
		if err := b.store.RecordEvent(ctx, &model.NoteworthyEvent{
			ID:        fmt.Sprintf("EVT-%s-%s", currentHash[:8], filepath.Base(imp.File)),
			Type:      "decision",
			Title:     fmt.Sprintf("reconciliation: %s (%s)", imp.File, imp.ChangeType),
			SessionID: sessionID,
			Impact:    string(imp.Severity),
			Reasoning: fmt.Sprintf("source=%s strategy=%s candidates=%v", imp.Source, imp.Strategy, imp.CandidateThemes),
			Severity:  string(imp.Severity),
		}, 500); err != nil {
			return nil, err
		}
	}

	return impacts, b.store.UpsertGitProjectState(ctx, &model.GitProjectState{
		ProjectPath:          b.projectRoot,
		CurrentHash:          currentHash,
		LastKnownHash:        currentHash,
		LastSync:             time.Now().UTC(),
		ChangeSummary:        fmt.Sprintf("%d file(s) changed", len(files)),
		AffectedThemes:       dedupe(affectedThemes),
		ReconciliationStatus: "reconciled",
	})
}

func (b *Bridge) loadThemeFiles(ctx context.Context) (map[string][]string, error) {
	// ThemeFlowIndex owns the in-memory theme cache for ContextLoader;
	// Bridge reads straight through the Store here since it only needs
	// file lists, not the index's fuzzy-resolution behavior.
	return b.store.AllThemeFiles(ctx)
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
