package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. Entity-specific variants below wrap it so callers can match
	// either the generic or the specific error.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a user with the same email).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrProjectNotFound      = fmt.Errorf("%w: project", ErrNotFound)
	ErrTaskNotFound         = fmt.Errorf("%w: task", ErrNotFound)
	ErrCommentNotFound      = fmt.Errorf("%w: comment", ErrNotFound)
	ErrAttachmentNotFound   = fmt.Errorf("%w: attachment", ErrNotFound)
	ErrStatsNotFound        = fmt.Errorf("%w: project stats", ErrNotFound)
	ErrMembershipNotFound   = fmt.Errorf("%w: membership", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification", ErrNotFound)

	// ErrEmailExists indicates that a user with the given email already exists.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)
)

// IsNotFound checks whether err is any kind of "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
