// Package store implements the hybrid file+database persistence layer: the
// Store component of the orchestrator. Every mutation is a single atomic
// unit across SQLite rows and on-disk JSON/markdown artifacts.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
	_ "modernc.org/sqlite"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the SQLite database and the projectManagement/ file tree it
// is paired with. All writes go through Apply; all other components read
// through Get/Query/Subscribe rather than touching the DB or file tree
// directly (spec §5: "only the Store writes").
type Store struct {
	db          *sql.DB
	projectRoot string

	// pending bounds the number of in-flight Apply calls (spec §5 default 32).
	pending *semaphore.Weighted

	mu   sync.Mutex
	subs map[string][]chan Notification
}

// Notification is delivered to subscribers of a given entity kind.
type Notification struct {
	Kind   string
	ID     string
	Action string // created, updated, deleted
}

// Open opens or creates the SQLite database at <projectRoot>/projectManagement/database/project.db
// and ensures the schema is present. If the existing database's schema is
// incompatible, Open returns an error rather than silently discarding data —
// unlike ephemeral caches, this database is the operational source of
// truth and must never be deleted out from under the user.
func Open(projectRoot string) (*Store, error) {
	dbPath := filepath.Join(projectRoot, "projectManagement", "database", "project.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	escaped := strings.ReplaceAll(dbPath, " ", "%20")
	db, err := sql.Open("sqlite", "file:"+escaped+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single logical writer, many readers (spec §5): WAL mode lets readers
	// proceed without blocking on the one writer's transaction.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: serialize writers ourselves via Apply's semaphore

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{
		db:          db,
		projectRoot: projectRoot,
		pending:     semaphore.NewWeighted(32),
		subs:        make(map[string][]chan Notification),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ProjectRoot returns the project directory this Store is paired with.
func (s *Store) ProjectRoot() string { return s.projectRoot }

// DB exposes the underlying connection for read-only queries that don't fit
// the prebuilt views. Never write through this handle — all writes must go
// through Apply so the file and row halves stay paired.
func (s *Store) DB() *sql.DB { return s.db }

// acquire reserves a backpressure slot, returning Busy immediately if the
// configured number of pending Apply calls (default 32) is already in
// flight (spec §5).
func (s *Store) acquire(ctx context.Context) (func(), error) {
	if !s.pending.TryAcquire(1) {
		return nil, model.New(model.ErrBusy, "store has %d pending writes queued; retry shortly", 32).
			WithSuggestion("retry with backoff")
	}
	return func() { s.pending.Release(1) }, nil
}

// publish notifies all subscribers of kind, dropping notifications for
// subscribers whose buffer is full rather than blocking the writer.
func (s *Store) publish(kind, id, action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[kind] {
		select {
		case ch <- Notification{Kind: kind, ID: id, Action: action}:
		default:
		}
	}
}

// Subscribe returns a channel of notifications for the given entity kind.
// The channel is closed when ctx is cancelled — subscriptions are finite
// per session, never outliving the caller (spec §4.1).
func (s *Store) Subscribe(ctx context.Context, kind string) <-chan Notification {
	ch := make(chan Notification, 16)
	s.mu.Lock()
	s.subs[kind] = append(s.subs[kind], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.subs[kind]
		for i, c := range list {
			if c == ch {
				s.subs[kind] = append(list[:i], list[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch
}
