// Package gitutil wraps the git plumbing shared by BranchManager and
// GitBridge: running context-aware subprocesses and parsing their output.
// Neither caller talks to exec.Command directly.
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes git subcommands against one working directory.
type Runner struct {
	Dir string
}

func New(dir string) *Runner {
	return &Runner{Dir: dir}
}

// Run executes `git <args...>` and returns trimmed stdout, or an error
// carrying stderr on failure.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), ctx.Err())
		}
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// HeadHash returns the current HEAD commit hash.
func (r *Runner) HeadHash(ctx context.Context) (string, error) {
	return r.Run(ctx, "rev-parse", "HEAD")
}

// BranchExists reports whether a local branch with the given name exists.
func (r *Runner) BranchExists(ctx context.Context, name string) bool {
	_, err := r.Run(ctx, "rev-parse", "--verify", "refs/heads/"+name)
	return err == nil
}

// RemoteBranchExists reports whether origin/<name> exists.
func (r *Runner) RemoteBranchExists(ctx context.Context, name string) bool {
	_, err := r.Run(ctx, "rev-parse", "--verify", "refs/remotes/origin/"+name)
	return err == nil
}

// CurrentBranch returns the checked-out branch name.
func (r *Runner) CurrentBranch(ctx context.Context) (string, error) {
	return r.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// Checkout checks out an existing branch.
func (r *Runner) Checkout(ctx context.Context, name string) error {
	_, err := r.Run(ctx, "checkout", name)
	return err
}

// CheckoutNewFrom creates and checks out a new branch from a start point.
func (r *Runner) CheckoutNewFrom(ctx context.Context, name, startPoint string) error {
	args := []string{"checkout", "-b", name}
	if startPoint != "" {
		args = append(args, startPoint)
	}
	_, err := r.Run(ctx, args...)
	return err
}

// IsClean reports whether the working tree has no uncommitted changes.
func (r *Runner) IsClean(ctx context.Context) (bool, error) {
	out, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// Merge merges sourceBranch into the currently checked-out branch.
// Conflicts surface as the raw git output; no custom resolver is
// attempted (spec §4.4: "main has final authority, standard Git tools are
// expected").
func (r *Runner) Merge(ctx context.Context, sourceBranch string) error {
	_, err := r.Run(ctx, "merge", "--no-edit", sourceBranch)
	return err
}

// DeleteBranch force-deletes a local branch.
func (r *Runner) DeleteBranch(ctx context.Context, name string) error {
	_, err := r.Run(ctx, "branch", "-D", name)
	return err
}

// LastCommitTime returns the Unix timestamp of a branch's tip commit, used
// by the stale-branch sweep.
func (r *Runner) LastCommitTime(ctx context.Context, branch string) (int64, error) {
	out, err := r.Run(ctx, "log", "-1", "--format=%ct", branch)
	if err != nil {
		return 0, err
	}
	var ts int64
	if _, err := fmt.Sscanf(out, "%d", &ts); err != nil {
		return 0, fmt.Errorf("parsing commit timestamp: %w", err)
	}
	return ts, nil
}

// ConfigValue reads a `git config` key, returning "" if unset.
func (r *Runner) ConfigValue(ctx context.Context, key string) string {
	out, _ := r.Run(ctx, "config", "--get", key)
	return out
}

// ChangedFile describes one entry from `git diff --name-status`.
type ChangedFile struct {
	Path       string
	OldPath    string
	ChangeType string // added, modified, deleted, renamed, copied
}

// DiffNameStatus runs `git diff --name-status <rangeSpec>` and parses the
// output (grounded on the same name-status parsing shape used elsewhere
// in the pack for change detection).
func (r *Runner) DiffNameStatus(ctx context.Context, rangeSpec string) ([]ChangedFile, error) {
	args := []string{"diff", "--name-status"}
	if rangeSpec != "" {
		args = append(args, rangeSpec)
	}
	out, err := r.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseNameStatus(out), nil
}

// RawDiff returns the full unified diff for a range, for magnitude scoring.
func (r *Runner) RawDiff(ctx context.Context, rangeSpec string) (string, error) {
	args := []string{"diff"}
	if rangeSpec != "" {
		args = append(args, rangeSpec)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git diff: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

func parseNameStatus(output string) []ChangedFile {
	var out []ChangedFile
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		status := parts[0]
		cf := ChangedFile{Path: filepath.ToSlash(parts[len(parts)-1])}
		switch {
		case strings.HasPrefix(status, "A"):
			cf.ChangeType = "added"
		case strings.HasPrefix(status, "M"):
			cf.ChangeType = "modified"
		case strings.HasPrefix(status, "D"):
			cf.ChangeType = "deleted"
		case strings.HasPrefix(status, "R"):
			cf.ChangeType = "renamed"
			if len(parts) >= 3 {
				cf.OldPath = filepath.ToSlash(parts[1])
			}
		case strings.HasPrefix(status, "C"):
			cf.ChangeType = "copied"
			if len(parts) >= 3 {
				cf.OldPath = filepath.ToSlash(parts[1])
			}
		default:
			cf.ChangeType = "modified"
		}
		out = append(out, cf)
	}
	return out
}
