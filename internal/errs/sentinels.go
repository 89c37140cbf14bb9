// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/mirror/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorage indicates a local storage fault (disk/database error).
	// Distinct from ErrNotFound: a storage fault must never read as an absent record.
	ErrStorage = errors.New("storage fault")

	// ErrTransient indicates a retryable remote failure (network, timeout).
	ErrTransient = errors.New("transient remote failure")

	// ErrPermanent indicates a non-retryable remote failure (auth revoked, malformed payload).
	ErrPermanent = errors.New("permanent remote failure")

	// ErrInvalidRecord indicates a malformed or schema-violating persisted record.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrConflict indicates a uniqueness or state conflict (e.g. entity already exists).
	ErrConflict = errors.New("conflict")

	// ErrWorkoutInProgress indicates the user already has an unfinished workout.
	ErrWorkoutInProgress = errors.New("workout already in progress")

	// ErrNoWorkoutInProgress indicates no open workout exists for the user.
	ErrNoWorkoutInProgress = errors.New("no workout in progress")
)
