// Package branch implements BranchManager (spec §4.4): the canonical
// organizational branch and parallel work-branch lifecycle on top of the
// underlying Git repository.
package branch

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"sync"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/gitutil"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/metrics"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

// OrgMainBranch is the one canonical organizational branch spec §4.4
// requires to exist locally once the system is initialized.
const OrgMainBranch = "ai-pm-org-main"

// StaleAfterNoCommits and StaleAfterAge are spec §4.4's cleanup defaults:
// warn about branches with no commits in 14 days and age over 30 days.
const (
	StaleAfterNoCommits = 14 * 24 * time.Hour
	StaleAfterAge       = 30 * 24 * time.Hour
)

// Manager drives git via gitutil.Runner and records bookkeeping through
// Store, serialized behind a process-wide Git mutex (spec §5: "the Git
// repository is written only by BranchManager and GitBridge, and only
// while they hold a process-wide Git mutex").
type Manager struct {
	git   *gitutil.Runner
	store *store.Store
	mu    *sync.Mutex
}

// New builds a Manager for the repository at projectRoot. mu is the
// process-wide Git mutex owned by internal/server.Server; GitBridge takes
// the same lock before any mutating call.
func New(projectRoot string, st *store.Store, mu *sync.Mutex) *Manager {
	return &Manager{git: gitutil.New(projectRoot), store: st, mu: mu}
}

// EnsureOrgMain implements spec §4.4's three-way branch-origin decision:
// local exists → no-op; origin exists → team-clone case; else restore or
// initialize from the user's main branch.
func (m *Manager) EnsureOrgMain(ctx context.Context, hasOrganizationalState bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.git.BranchExists(ctx, OrgMainBranch) {
		return nil
	}
	if m.git.RemoteBranchExists(ctx, OrgMainBranch) {
		return m.git.CheckoutNewFrom(ctx, OrgMainBranch, "origin/"+OrgMainBranch)
	}

	current, err := m.git.CurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("determining user's main branch: %w", err)
	}
	if err := m.git.CheckoutNewFrom(ctx, OrgMainBranch, current); err != nil {
		return err
	}
	// hasOrganizationalState distinguishes the restoration case (validate
	// existing projectManagement/ files) from cold init (caller's
	// responsibility to scaffold a fresh tree); BranchManager only owns
	// the branch-level decision.
	_ = hasOrganizationalState
	return nil
}

// CreateWorkBranch ensures org-main exists, checks it out, reads its head
// hash as the base, allocates the branch number and row in Store, and
// creates the ai-pm-org-branch-NNN branch from org-main. No
// .ai-pm-meta.json file is written; the branch metadata lives only in the
// database.
func (m *Manager) CreateWorkBranch(ctx context.Context, purpose string, hasOrganizationalState bool) (*model.Branch, error) {
	if err := m.EnsureOrgMain(ctx, hasOrganizationalState); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.git.Checkout(ctx, OrgMainBranch); err != nil {
		return nil, fmt.Errorf("checking out %s: %w", OrgMainBranch, err)
	}
	baseHash, err := m.git.HeadHash(ctx)
	if err != nil {
		return nil, err
	}
	creator := m.detectCreator(ctx)

	branch, err := m.store.CreateBranch(ctx, creator, baseHash, purpose)
	if err != nil {
		return nil, err
	}
	if err := m.git.CheckoutNewFrom(ctx, branch.Name, OrgMainBranch); err != nil {
		return nil, fmt.Errorf("creating branch %s: %w", branch.Name, err)
	}
	metrics.BranchesCreated.Inc()
	return branch, nil
}

// MergeWorkBranch implements spec §4.4's mergeWorkBranch: clean-state
// check, checkout org-main, merge. Conflicts surface in standard Git form
// — no custom resolver is attempted.
func (m *Manager) MergeWorkBranch(ctx context.Context, branchName string, deleteAfter bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clean, err := m.git.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return model.New(model.ErrGitDirty, "working tree has uncommitted changes; commit or stash before merging")
	}

	if err := m.git.Checkout(ctx, OrgMainBranch); err != nil {
		return err
	}
	if err := m.git.Merge(ctx, branchName); err != nil {
		return model.Wrap(model.ErrMergeConflict, err, "merging %s into %s", branchName, OrgMainBranch)
	}

	if err := m.store.UpdateBranchStatus(ctx, branchName, "merged"); err != nil {
		return err
	}
	if deleteAfter {
		if err := m.git.DeleteBranch(ctx, branchName); err != nil {
			return err
		}
		return m.store.UpdateBranchStatus(ctx, branchName, "deleted")
	}
	return nil
}

// DeleteBranch removes a work branch on explicit user request (spec §4.4:
// "deletion requires explicit user request").
func (m *Manager) DeleteBranch(ctx context.Context, branchName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.git.DeleteBranch(ctx, branchName); err != nil {
		return err
	}
	return m.store.UpdateBranchStatus(ctx, branchName, "deleted")
}

// ListBranches is a thin wrapper over Store's bookkeeping rows.
func (m *Manager) ListBranches(ctx context.Context) ([]*model.Branch, error) {
	return m.store.ListBranches(ctx)
}

// GetBranchStatus is a thin wrapper over Store's bookkeeping row.
func (m *Manager) GetBranchStatus(ctx context.Context, name string) (*model.Branch, error) {
	return m.store.GetBranch(ctx, name)
}

// StaleBranches reports active branches whose tip commit is older than
// StaleAfterNoCommits, or whose creation date exceeds StaleAfterAge (spec
// §4.4 cleanup policy). The system never auto-merges or auto-deletes
// these; it only warns.
func (m *Manager) StaleBranches(ctx context.Context, now time.Time) ([]*model.Branch, error) {
	all, err := m.store.ListBranches(ctx)
	if err != nil {
		return nil, err
	}
	var stale []*model.Branch
	for _, b := range all {
		if b.Status != "active" {
			continue
		}
		if now.Sub(b.CreatedAt) > StaleAfterAge {
			stale = append(stale, b)
			continue
		}
		ts, err := m.git.LastCommitTime(ctx, b.Name)
		if err != nil {
			continue // branch may have been deleted out-of-band; surfaced elsewhere by doctor
		}
		if now.Sub(time.Unix(ts, 0)) > StaleAfterNoCommits {
			stale = append(stale, b)
		}
	}
	return stale, nil
}

// detectCreator implements spec §4.4's user-detection cascade: git config
// → USER/USERNAME env → system user → literal fallback "ai-user", with
// the chosen source recorded.
func (m *Manager) detectCreator(ctx context.Context) model.BranchCreator {
	name := m.git.ConfigValue(ctx, "user.name")
	email := m.git.ConfigValue(ctx, "user.email")
	if name != "" {
		return model.BranchCreator{Name: name, Email: email, Source: "git-config"}
	}

	if envUser := firstNonEmpty(os.Getenv("USER"), os.Getenv("USERNAME")); envUser != "" {
		return model.BranchCreator{Name: envUser, Source: "env"}
	}

	if u, err := user.Current(); err == nil && u.Username != "" {
		return model.BranchCreator{Name: u.Username, Source: "system"}
	}

	return model.BranchCreator{Name: "ai-user", Source: "fallback"}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
