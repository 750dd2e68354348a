package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/metrics"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

// FileWrite describes one half of a paired write: a file to create,
// overwrite, or remove alongside the SQL half of a ChangeSet.
type FileWrite struct {
	Path    string // absolute or relative to ProjectRoot()
	Content []byte // nil + Remove=true deletes the file
	Remove  bool
}

// Stmt is one SQL statement executed as part of a ChangeSet's transaction.
type Stmt struct {
	Query string
	Args  []any
}

// ChangeSet is the unit the Store applies atomically: a set of SQL
// statements and a set of file writes. Either both halves commit, or
// neither does (spec §4.1).
type ChangeSet struct {
	// Kind labels this ChangeSet for the aipm_store_writes_total /
	// aipm_store_write_errors_total counters (e.g. "task", "branch",
	// "sidequest"). Empty is reported as "unknown".
	Kind        string
	Stmts       []Stmt
	Files       []FileWrite
	Notify      []Notification
	// Dynamic runs first, inside the transaction, before any file staging.
	// It is how ordinal allocation (sidequest numbers, branch numbers) gets
	// "MAX(n)+1 inside the same transaction that inserts the new row"
	// (spec §4.1): Store serializes all writers onto a single connection
	// (SetMaxOpenConns(1)), so a read-then-write inside one *sql.Tx here is
	// exactly as race-free as a server-side MAX()+1 subquery would be, and
	// far easier to read. Dynamic may return additional statements/files
	// that depend on values only known once the transaction is open (e.g.
	// an allocated ordinal baked into a generated ID and file path).
	Dynamic func(ctx context.Context, tx *sql.Tx) (extraStmts []Stmt, extraFiles []FileWrite, err error)
	// Validate runs inside the transaction (after Stmts, before commit)
	// against the live *sql.Tx, so referential-integrity checks see the
	// change set's own writes. Return a non-nil error to abort with
	// IntegrityError.
	Validate func(ctx context.Context, tx *sql.Tx) error
}

// Apply executes a ChangeSet as one atomic unit, per the algorithm in
// spec §4.1:
//  1. Begin SQL transaction.
//  2. Stage file contents in sibling temp paths.
//  3. Execute SQL statements; validate referential integrity.
//  4. fsync each temp file, then atomically rename over the target.
//  5. Commit SQL transaction.
//  6. On any failure before commit: delete temp files, rollback SQL.
//  7. (Recovery from a crash between rename and commit is handled by
//     Reconcile, called at SessionBoot.)
func (s *Store) Apply(ctx context.Context, cs ChangeSet) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	kind := cs.Kind
	if kind == "" {
		kind = "unknown"
	}

	err = s.applyWithRetry(ctx, cs)
	if err != nil {
		metrics.StoreWriteErrors.WithLabelValues(errorKind(err)).Inc()
		return err
	}
	metrics.StoreWrites.WithLabelValues(kind).Inc()
	return nil
}

func errorKind(err error) string {
	if me, ok := model.AsError(err); ok {
		return string(me.Kind)
	}
	return "unknown"
}

// applyWithRetry retries ConflictError (e.g. SQLITE_BUSY from a concurrent
// writer) with bounded exponential backoff, per spec §4.1 "Automatic retry
// is limited to ConflictError with bounded exponential backoff (max 3
// attempts)".
func (s *Store) applyWithRetry(ctx context.Context, cs ChangeSet) error {
	const maxAttempts = 3
	backoff := 10 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.applyOnce(ctx, cs)
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("apply: retries exhausted: %w", lastErr)
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	var merr *model.Error
	if e, ok := err.(*model.Error); ok {
		merr = e
	}
	if merr != nil {
		return merr.Kind == model.ErrConflict
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func (s *Store) applyOnce(ctx context.Context, cs ChangeSet) (err error) {
	txid := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Wrap(model.ErrConflict, err, "begin transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if cs.Dynamic != nil {
		extraStmts, extraFiles, err2 := cs.Dynamic(ctx, tx)
		if err2 != nil {
			return fmt.Errorf("apply: dynamic stage: %w", err2)
		}
		cs.Stmts = append(cs.Stmts, extraStmts...)
		cs.Files = append(cs.Files, extraFiles...)
	}

	// Step 2: stage new file contents in sibling temp paths.
	staged := make([]*renameio.PendingFile, 0, len(cs.Files))
	defer func() {
		for _, p := range staged {
			p.Cleanup()
		}
	}()

	for _, fw := range cs.Files {
		path := s.resolve(fw.Path)
		if fw.Remove {
			continue // removals happen after commit, step 4
		}
		if err2 := os.MkdirAll(filepath.Dir(path), 0o755); err2 != nil {
			return fmt.Errorf("apply %s: mkdir: %w", fw.Path, err2)
		}
		pf, err2 := renameio.NewPendingFile(path, renameio.WithTempDir(filepath.Dir(path)), renameio.WithPermissions(0o644))
		if err2 != nil {
			return fmt.Errorf("apply %s: stage temp file (txid %s): %w", fw.Path, txid, err2)
		}
		if _, err2 := pf.Write(fw.Content); err2 != nil {
			pf.Cleanup()
			return fmt.Errorf("apply %s: write staged content: %w", fw.Path, err2)
		}
		staged = append(staged, pf)
	}

	// Step 3: execute SQL statements.
	for _, st := range cs.Stmts {
		if _, err2 := tx.ExecContext(ctx, st.Query, st.Args...); err2 != nil {
			if strings.Contains(err2.Error(), "locked") || strings.Contains(err2.Error(), "busy") {
				return model.Wrap(model.ErrConflict, err2, "exec statement")
			}
			return model.Wrap(model.ErrValidation, err2, "exec statement: %s", st.Query)
		}
	}

	// Record the intended checksum of every file half in the same
	// transaction as the SQL half. If the process crashes after the rename
	// below but before this transaction commits, the checksum row never
	// lands — Reconcile (run at next SessionBoot) notices the on-disk file
	// doesn't match any committed checksum and rewrites it from the last
	// committed DB state, undoing the orphaned rename (spec §4.1 step 7).
	for _, fw := range cs.Files {
		if fw.Remove {
			if _, err2 := tx.ExecContext(ctx, `DELETE FROM file_checksums WHERE path = ?`, fw.Path); err2 != nil {
				return model.Wrap(model.ErrValidation, err2, "recording checksum removal")
			}
			continue
		}
		sum := sha256.Sum256(fw.Content)
		if _, err2 := tx.ExecContext(ctx, `
			INSERT INTO file_checksums (path, sha256, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET sha256 = excluded.sha256, updated_at = excluded.updated_at
		`, fw.Path, hex.EncodeToString(sum[:]), time.Now().UTC().Format("2006-01-02T15:04:05.000Z")); err2 != nil {
			return model.Wrap(model.ErrValidation, err2, "recording checksum")
		}
	}
	if cs.Validate != nil {
		if err2 := cs.Validate(ctx, tx); err2 != nil {
			return model.Wrap(model.ErrIntegrity, err2, "referential integrity check failed")
		}
	}

	// Step 4: fsync each temp file and atomically rename over the target.
	// renameio.PendingFile.CloseAtomicallyReplace does both.
	for _, pf := range staged {
		if err2 := pf.CloseAtomicallyReplace(); err2 != nil {
			return fmt.Errorf("apply: atomic rename (txid %s): %w", txid, err2)
		}
	}
	// staged files are now committed to disk; clear so defer doesn't re-Cleanup them.
	staged = nil

	// Step 5: commit the SQL transaction. If we crash between the renames
	// above and this commit, SessionBoot's Reconcile pass rewrites the
	// files from the DB rows on next boot (spec §4.1 step 7).
	if err2 := tx.Commit(); err2 != nil {
		return model.Wrap(model.ErrConflict, err2, "commit transaction")
	}

	// File removals happen after a successful commit — the DB is now the
	// record of truth that the file should be gone.
	for _, fw := range cs.Files {
		if fw.Remove {
			_ = os.Remove(s.resolve(fw.Path))
		}
	}

	for _, n := range cs.Notify {
		s.publish(n.Kind, n.ID, n.Action)
	}

	return nil
}

func (s *Store) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.projectRoot, path)
}
