package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrOperationFailed    = errors.New("operation failed")

	// Ledger errors
	ErrGiftCodeNotFound  = errors.New("gift code not found")
	ErrGiftCodeCollision = errors.New("could not generate a unique gift code")
	ErrTrialUnavailable  = errors.New("trial period not available")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrLockNotAcquired   = errors.New("lock not acquired")
)
