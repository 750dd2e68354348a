// Package session implements SessionBoot (spec §4.6): reconstructing
// complete working state on every session start within a tight latency
// budget, threading Store, Scheduler, and GitBridge.
package session

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/gitbridge"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/metrics"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/projectconfig"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/scheduler"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

// DefaultDeadline is spec §5's "session boot has a configurable total
// deadline (default 10s) after which it degrades to a minimal session
// exposing only read-only tools."
const DefaultDeadline = 10 * time.Second

// projectlogicTailLines bounds how much of the append-only jsonl log gets
// read at boot; the file can grow unbounded over a project's life.
const projectlogicTailLines = 50

// Snapshot is the reconstructed state handed back to the caller after
// Boot completes.
type Snapshot struct {
	Session          *model.Session
	FastPath         bool
	BlueprintSummary string
	FlowIndexJSON    string
	ProjectLogicTail []string
	CompletionPath   string
	ActiveTasks      []*model.Task
	ResumedTaskID    string
	PendingApproval  []gitbridge.Impact
	Degraded         bool
}

// Boot orchestrates SessionBoot's seven-step sequence.
type Boot struct {
	store       *store.Store
	scheduler   *scheduler.Scheduler
	bridge      *gitbridge.Bridge
	projectRoot string
	cfg         *projectconfig.Config

	activeMu sync.Mutex
	active   string
}

// New builds a Boot sequencer.
func New(st *store.Store, sched *scheduler.Scheduler, bridge *gitbridge.Bridge, projectRoot string, cfg *projectconfig.Config) *Boot {
	return &Boot{store: st, scheduler: sched, bridge: bridge, projectRoot: projectRoot, cfg: cfg}
}

// Run executes the boot sequence, degrading to a minimal read-only
// snapshot if it exceeds deadline.
func (b *Boot) Run(ctx context.Context, deadline time.Duration, force bool) (*Snapshot, error) {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	snap := &Snapshot{}

	// Step 2 is evaluated before step 1 inserts this boot's own row, so the
	// comparison is against the most recent prior session's context and
	// decides fast vs. comprehensive path.
	priorFresh, priorHashMatches := b.checkFastPathEligibility(ctx)

	// Step 1: open DB (already open by the time Boot runs), acquire a
	// session id, insert the sessions row.
	sess := &model.Session{
		ID:          "SESSION-" + uuid.NewString(),
		ContextMode: model.ModeFocused,
		Status:      "active",
	}
	if err := b.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	snap.Session = sess
	metrics.ActiveSessions.Inc()
	b.activeMu.Lock()
	b.active = sess.ID
	b.activeMu.Unlock()

	snap.FastPath = priorFresh && priorHashMatches && !force

	if snap.FastPath {
		if err := b.finish(ctx, sess, snap); err != nil {
			return nil, err
		}
		return snap, nil
	}

	// Step 3: load the four independent artifacts concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.BlueprintSummary = readFileBestEffort(filepath.Join(b.projectRoot, "projectManagement", "ProjectBlueprint", "blueprint.md"))
		return gctx.Err()
	})
	g.Go(func() error {
		snap.FlowIndexJSON = readFileBestEffort(filepath.Join(b.projectRoot, "projectManagement", "ProjectFlow", "flow-index.json"))
		return gctx.Err()
	})
	g.Go(func() error {
		snap.ProjectLogicTail = tailLines(filepath.Join(b.projectRoot, "projectManagement", "ProjectLogic", "projectlogic.jsonl"), projectlogicTailLines)
		return gctx.Err()
	})
	g.Go(func() error {
		snap.CompletionPath = readFileBestEffort(filepath.Join(b.projectRoot, "projectManagement", "Tasks", "completion-path.json"))
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		snap.Degraded = true
		return snap, nil
	}

	// Step 4: active implementation plan / tasks, auto-resume decision.
	active, err := b.store.ListActiveTasks(ctx)
	if err != nil {
		return nil, err
	}
	snap.ActiveTasks = active
	if b.cfg.Tasks.ResumeTasksOnStart {
		for _, t := range active {
			if t.Status == model.StatusInProgress {
				snap.ResumedTaskID = t.ID
				break
			}
		}
	}

	// Step 6: run GitBridge.detectChanges before finalizing auto-resume
	// (Open Question decision: reconciliation must complete first — a
	// changed hash defers auto-resume until its strategy is known).
	if b.bridge != nil {
		impacts, err := b.bridge.Reconcile(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		for _, imp := range impacts {
			if imp.Strategy != gitbridge.StrategyAuto {
				snap.PendingApproval = append(snap.PendingApproval, imp)
			}
		}
		if len(snap.PendingApproval) > 0 {
			snap.ResumedTaskID = "" // defer auto-resume until the user addresses pending reconciliation
		}
	}

	if err := b.finish(ctx, sess, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// checkFastPathEligibility implements step 2: the prior session's
// context must be fresh (< 24h) and the Git hash must be unchanged.
func (b *Boot) checkFastPathEligibility(ctx context.Context) (fresh, hashMatches bool) {
	prior, err := b.store.ActiveSession(ctx)
	if err != nil {
		return false, false
	}
	fresh = time.Since(prior.LastActivity) < 24*time.Hour

	if b.bridge == nil {
		return fresh, false
	}
	changed, _, _, err := b.bridge.DetectChanges(ctx)
	if err != nil {
		return fresh, false
	}
	return fresh, !changed
}

// finish implements steps 5 and 7: it computes the active themes from the
// primary themes of the active tasks and writes the fresh session_context
// row. A prior session's session_context is not read back.
func (b *Boot) finish(ctx context.Context, sess *model.Session, snap *Snapshot) error {
	themes := sess.ActiveThemes
	if len(themes) == 0 {
		for _, t := range snap.ActiveTasks {
			themes = append(themes, t.PrimaryTheme)
		}
	}
	var taskIDs []string
	for _, t := range snap.ActiveTasks {
		taskIDs = append(taskIDs, t.ID)
	}
	return b.store.UpdateSessionContext(ctx, sess.ID, themes, taskIDs, nil)
}

// End implements SessionBoot's termination contract: write a final
// session_context row and mark the session completed.
func (b *Boot) End(ctx context.Context, sessionID string) error {
	if sess, err := b.store.GetSession(ctx, sessionID); err == nil {
		if err := b.store.UpdateSessionContext(ctx, sessionID, sess.ActiveThemes, sess.ActiveTasks, sess.ActiveQuests); err != nil {
			return err
		}
	}
	if err := b.store.EndSession(ctx, sessionID, "completed"); err != nil {
		return err
	}
	metrics.ActiveSessions.Dec()
	b.activeMu.Lock()
	if b.active == sessionID {
		b.active = ""
	}
	b.activeMu.Unlock()
	return nil
}

// ActiveSessionID returns the most recently booted session's id, or ""
// if no session is currently active. Used to tag live-reconciliation
// events raised between boot and End.
func (b *Boot) ActiveSessionID() string {
	b.activeMu.Lock()
	defer b.activeMu.Unlock()
	return b.active
}

func readFileBestEffort(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(content)
}

func tailLines(path string, n int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines
}
