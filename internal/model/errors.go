package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic handling with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid input")
	ErrConstraint = errors.New("constraint violation")
	ErrSyncFailed = errors.New("sync failed")
)

// ValidationError reports rejected caller input, e.g. an empty title.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConstraintError reports an attempted invariant breach against the local
// store, e.g. a task referencing a missing list.
type ConstraintError struct {
	Entity string
	Detail string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s constraint violated: %s", e.Entity, e.Detail)
}

func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}

// SyncError wraps a failure from a sync pass with the phase it occurred in.
// Local state keeps whatever partial progress the pass made; the caller is
// expected to retry later.
type SyncError struct {
	Op  string // "push-lists", "push-tasks", "pull", ...
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func (e *SyncError) Is(target error) bool {
	return target == ErrSyncFailed
}
