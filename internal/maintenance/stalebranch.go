package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

// StaleBranchJob warns about active branches created at least StaleAfter
// ago (commit activity is not inspected) —
// a feature the distilled spec doesn't name but that BranchManager's
// maxActiveBranches policy implies: branches piling up need surfacing
// before they silently exhaust the limit.
type StaleBranchJob struct {
	Store              *store.Store
	Logger             *slog.Logger
	StaleAfter         time.Duration
	NoteworthySizeLimit int
}

func (j *StaleBranchJob) Name() string { return "stale-branch-warning" }

func (j *StaleBranchJob) Run(ctx context.Context) error {
	branches, err := j.Store.ListBranches(ctx)
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}
	now := time.Now().UTC()
	for _, b := range branches {
		if b.Status != "active" {
			continue
		}
		if now.Sub(b.CreatedAt) < j.StaleAfter {
			continue
		}
		j.Logger.Warn("branch stale", "branch", b.Name, "age", now.Sub(b.CreatedAt).Round(time.Hour))
		ev := &model.NoteworthyEvent{
			ID:       fmt.Sprintf("event-%d-stale-%s", now.UnixNano(), b.Name),
			Type:     "warning",
			Title:    fmt.Sprintf("branch %s has been active for %s with no merge", b.Name, now.Sub(b.CreatedAt).Round(time.Hour)),
			Impact:   string(model.ImpactMinimal),
			Reasoning: "stale-branch maintenance sweep",
			Outcome:  "warned",
			Severity: "low",
		}
		if err := j.Store.RecordEvent(ctx, ev, j.NoteworthySizeLimit); err != nil {
			j.Logger.Error("recording stale branch event", "error", err)
		}
	}
	return nil
}
