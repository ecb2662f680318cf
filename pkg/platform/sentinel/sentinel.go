// Package sentinel holds sentinel errors shared by stores so callers can
// branch on errors.Is without importing concrete store packages.
package sentinel

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a uniqueness violation on create.
	ErrAlreadyExists = errors.New("already exists")

	// ErrVersionConflict indicates an optimistic-concurrency write lost the race;
	// the caller should reload and retry.
	ErrVersionConflict = errors.New("version conflict")
)
