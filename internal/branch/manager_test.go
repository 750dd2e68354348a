package branch

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/metrics"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}
	run("init", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")

	readme := dir + "/README.md"
	require.NoError(t, os.WriteFile(readme, []byte("initial"), 0o644))
	run("add", "README.md")
	run("commit", "-m", "initial commit")

	return dir
}

func TestCreateWorkBranchAllocatesAndChecksOut(t *testing.T) {
	ctx := context.Background()
	dir := initGitRepo(t)

	st, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mgr := New(dir, st, &sync.Mutex{})

	before := testutil.ToFloat64(metrics.BranchesCreated)

	b, err := mgr.CreateWorkBranch(ctx, "fix the thing", false)
	require.NoError(t, err)
	require.Equal(t, "ai-pm-org-branch-001", b.Name)
	require.Equal(t, "fix the thing", b.Purpose)

	current, err := mgr.git.CurrentBranch(ctx)
	require.NoError(t, err)
	require.Equal(t, b.Name, current)

	require.Equal(t, before+1, testutil.ToFloat64(metrics.BranchesCreated))
}

func TestCreateWorkBranchIncrementsNumberAcrossCalls(t *testing.T) {
	ctx := context.Background()
	dir := initGitRepo(t)

	st, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mgr := New(dir, st, &sync.Mutex{})

	first, err := mgr.CreateWorkBranch(ctx, "first purpose", false)
	require.NoError(t, err)
	second, err := mgr.CreateWorkBranch(ctx, "second purpose", false)
	require.NoError(t, err)

	require.Equal(t, first.Number+1, second.Number)
}
