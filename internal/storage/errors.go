package storage

import "errors"

// Directory-level errors shared by the storage layers.
var (
	// ErrNoSuchObject is returned when a DN or ID lookup misses.
	ErrNoSuchObject = errors.New("no such object")

	// ErrAlreadyExists is returned when an entry with the same DN is already loaded.
	ErrAlreadyExists = errors.New("entry already exists")

	// ErrHasChildren is returned when deleting an entry that still has subordinates.
	ErrHasChildren = errors.New("subordinate objects must be deleted first")

	// ErrNotInSuffix is returned for DNs outside the backend suffix.
	ErrNotInSuffix = errors.New("DN is not within the backend suffix")

	// ErrEntriesMissing is returned at session close when placeholder
	// ancestors were never filled with real entries.
	ErrEntriesMissing = errors.New("entries missing")

	// ErrInternal marks programming-contract violations detected at runtime.
	ErrInternal = errors.New("internal error")
)
