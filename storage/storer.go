// Package storage defines the errors and the narrow interfaces shared by
// the concrete storage/filesystem backend and the rest of the engine, so
// that callers depend on behavior rather than a specific implementation.
package storage

import "errors"

var (
	// ErrReferenceHasChanged is returned by a reference update when the
	// stored reference no longer matches the expected old value, the
	// signal a compare-and-swap update failed.
	ErrReferenceHasChanged = errors.New("storage: reference has changed concurrently")
	// ErrReferenceNotFound is returned when the named reference does not
	// exist.
	ErrReferenceNotFound = errors.New("storage: reference not found")
)
