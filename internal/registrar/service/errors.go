package service

import "errors"

// Typed failures returned by the lifecycle engine. Every rejected operation
// maps to exactly one of these so the presentation layer can name the
// invariant that blocked it. Store backend failures pass through as
// *docstore.StoreError and are never retried here.
var (
	// ErrNotFound — no live record (or admin, or code) matches the request.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden — the actor's role lacks the permission for the operation.
	ErrForbidden = errors.New("role not permitted")

	// ErrInvalidState — the record is not in the lifecycle state the
	// operation requires (editing or finalizing a finalized record,
	// creating over an existing id).
	ErrInvalidState = errors.New("record not in required state")

	// ErrValidation — a supplied field is missing or malformed.
	ErrValidation = errors.New("invalid field value")
)
