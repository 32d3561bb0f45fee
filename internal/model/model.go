// Package model defines the entities persisted by the local store and the
// error taxonomy shared across the engine packages.
package model

import "time"

// User is the account a device syncs on behalf of. At most one user is
// marked signed-in at a time.
type User struct {
	ID        string
	RemoteID  string // empty until first sync
	Email     string
	Name      string
	AvatarURL string
	SignedIn  bool
}

// TaskList is a named collection of tasks.
//
// ID is the local identifier, assigned at creation and never reused.
// RemoteID stays empty until the list has been pushed once; after that it
// is immutable.
type TaskList struct {
	ID        string
	RemoteID  string
	Title     string
	Updated   time.Time
	Created   time.Time
	IsDefault bool
	Dirty     bool // local changes not yet pushed
	Deleted   bool // tombstoned, awaiting remote delete
}

// Task is a single item within a task list. ParentID references another
// task in the same list ("" means top-level). Position is an opaque sort
// key; siblings are ordered by comparing positions as plain strings.
type Task struct {
	ID             string
	RemoteID       string
	RemoteParentID string
	ParentID       string
	ListID         string
	Title          string
	Notes          string
	Due            time.Time // zero means no due date
	Updated        time.Time
	Completed      bool
	Position       string
	Dirty          bool
	Deleted        bool
}

// Synced reports whether the entity is known to the remote service.
func (l TaskList) Synced() bool { return l.RemoteID != "" }

// Synced reports whether the entity is known to the remote service.
func (t Task) Synced() bool { return t.RemoteID != "" }
