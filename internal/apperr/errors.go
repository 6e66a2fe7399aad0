// Package apperr defines the error taxonomy shared by the service and
// API layers. Callers classify failures with errors.Is after unwrapping.
package apperr

import "errors"

var (
	// ErrNotFound indicates an unknown product, variant, reservation or alert
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a malformed request (empty item list,
	// non-positive quantity, negative threshold)
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientStock indicates the reserve precondition failed.
	// This is an expected outcome, not an internal fault.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidState indicates a confirm/cancel/resolve on a record
	// that already left the required state
	ErrInvalidState = errors.New("invalid state transition")

	// ErrDependency indicates a downstream store or collaborator failure
	ErrDependency = errors.New("dependency failure")
)
