// Package store persists users, task lists and tasks in a local SQLite
// database and lets subscribers watch for changes. It is the single
// durable owner of entity state; the sync engine and repository read and
// write exclusively through it.
package store

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"tasksync/internal/model"
)

// Store wraps the SQLite handle and the change-notification fanout.
type Store struct {
	db *sql.DB

	mu       sync.Mutex
	watchers map[int]chan struct{}
	nextID   int
}

// Open opens/creates the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	// A single connection sidesteps SQLITE_BUSY between the repository
	// and a concurrent sync pass.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, watchers: make(map[int]chan struct{})}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// NewID returns a fresh local identifier. ULIDs sort by creation time,
// which keeps list ordering stable without an extra counter.
func NewID() string { return ulid.Make().String() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  remote_id TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  display_name TEXT NOT NULL DEFAULT '',
  avatar_url TEXT NOT NULL DEFAULT '',
  signed_in INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS task_lists (
  id TEXT PRIMARY KEY,
  remote_id TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL,
  updated_ms INTEGER NOT NULL,
  created_ms INTEGER NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0,
  dirty INTEGER NOT NULL DEFAULT 1,
  deleted INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tasks (
  id TEXT PRIMARY KEY,
  remote_id TEXT NOT NULL DEFAULT '',
  remote_parent_id TEXT NOT NULL DEFAULT '',
  parent_id TEXT NOT NULL DEFAULT '',
  list_id TEXT NOT NULL REFERENCES task_lists(id),
  title TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  due_ms INTEGER NOT NULL DEFAULT 0,
  updated_ms INTEGER NOT NULL,
  completed INTEGER NOT NULL DEFAULT 0,
  position TEXT NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  deleted INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tasks_list ON tasks(list_id, parent_id, position);
`)
	return err
}

// Watch returns a channel that receives a signal after every mutation
// until ctx is cancelled. Signals are coalesced: a slow receiver sees at
// least one signal for any burst of writes. Callers re-query on signal.
func (s *Store) Watch(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}()

	return ch
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// wrapErr maps driver-level failures onto the shared error taxonomy.
func wrapErr(entity string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "constraint") {
		return &model.ConstraintError{Entity: entity, Detail: err.Error()}
	}
	return err
}

func timeToMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
