package registry

import "errors"

var (
	// ErrInvalidPublicSignals is returned when fewer than two public signals
	// are supplied or a signal does not parse as an unsigned integer.
	ErrInvalidPublicSignals = errors.New("invalid public signals")

	// ErrInvalidThreshold is returned when the claimed threshold is zero.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrThresholdMismatch is returned when the first public signal does not
	// equal the claimed threshold.
	ErrThresholdMismatch = errors.New("threshold mismatch")

	// ErrCommitmentMismatch is returned when the second public signal does not
	// equal the claimed commitment.
	ErrCommitmentMismatch = errors.New("commitment mismatch")

	// ErrAlreadyInitialized is returned when the registry singleton already exists.
	ErrAlreadyInitialized = errors.New("registry already initialized")

	// ErrNotInitialized is returned when the registry singleton does not exist yet.
	ErrNotInitialized = errors.New("registry not initialized")

	// ErrDuplicateProof is returned when a record already exists for the proof hash.
	ErrDuplicateProof = errors.New("proof already verified")

	// ErrNotFound is returned when no record exists for the proof hash.
	ErrNotFound = errors.New("verification record not found")
)
