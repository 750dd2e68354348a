package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// Rebuilder regenerates the canonical on-disk content for a logical path
// from the currently-committed database rows. Each component that owns
// paired JSON artifacts (scheduler for tasks/subtasks/sidequests,
// themeflow for themes/flows, branch for .ai-pm-meta.json, …) registers one
// so Reconcile can restore any file left orphaned by a crash between a
// rename and its SQL commit (spec §4.1 step 7, scenario F).
type Rebuilder func(ctx context.Context, path string) ([]byte, error)

// Reconcile compares every tracked file's on-disk checksum against the
// committed file_checksums row and rewrites any mismatch using the
// supplied rebuilders. It is idempotent and safe to run on every
// SessionBoot — a clean shutdown leaves nothing to reconcile.
func (s *Store) Reconcile(ctx context.Context, rebuilders map[string]Rebuilder) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, sha256 FROM file_checksums`)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list checksums: %w", err)
	}
	defer rows.Close()

	type tracked struct{ path, sum string }
	var all []tracked
	for rows.Next() {
		var t tracked
		if err := rows.Scan(&t.path, &t.sum); err != nil {
			return nil, fmt.Errorf("reconcile: scan: %w", err)
		}
		all = append(all, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var repaired []string
	for _, t := range all {
		full := s.resolve(t.path)
		data, err := os.ReadFile(full)
		onDisk := err == nil
		match := onDisk && checksumOf(data) == t.sum
		if match {
			continue
		}

		// Determine the right rebuilder by matching the longest registered
		// prefix kind (e.g. "tasks/" for active task files).
		rb, kind := matchRebuilder(rebuilders, t.path)
		if rb == nil {
			continue // no rebuilder registered; leave as-is, surfaced by caller via the returned list
		}

		content, err := rb(ctx, t.path)
		if err != nil {
			return repaired, fmt.Errorf("reconcile %s (kind %s): %w", t.path, kind, err)
		}
		if err := writeRepaired(full, content); err != nil {
			return repaired, fmt.Errorf("reconcile %s: write: %w", t.path, err)
		}
		if _, err := s.db.ExecContext(ctx, `
			UPDATE file_checksums SET sha256 = ? WHERE path = ?
		`, checksumOf(content), t.path); err != nil {
			return repaired, fmt.Errorf("reconcile %s: update checksum: %w", t.path, err)
		}
		repaired = append(repaired, t.path)
	}
	return repaired, nil
}

func checksumOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func matchRebuilder(rebuilders map[string]Rebuilder, path string) (Rebuilder, string) {
	var bestKind string
	var best Rebuilder
	for kind, rb := range rebuilders {
		if len(kind) > len(bestKind) && strings.HasPrefix(path, kind) {
			bestKind, best = kind, rb
		}
	}
	return best, bestKind
}

func writeRepaired(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(path, content, 0o644)
}
