/*
errors.go - Centralized error types for the credits subsystem

PURPOSE:
  All failures in this subsystem are local, recoverable-by-the-user
  conditions reported as returned errors. Nothing here is retried and
  nothing is fatal.

ERROR CATEGORIES:
  1. Client errors - InsufficientCredits, AlreadyUnlocked, InvalidAmount
  2. Auth errors - Unauthenticated
  3. Store errors - StorageWrite (in-memory state is kept, see below)

STORAGE FAILURES:
  When a durable write fails, the in-memory mutation is NOT rolled back.
  The operation has logically succeeded; the returned *StorageError lets
  the caller tell the user their change may not survive a restart.

USAGE:
  _, err := ledger.Debit(15, "Theme", credits.TxUnlock, "🎨")
  switch {
  case errors.Is(err, credits.ErrInsufficientCredits):
      // show "insufficient credits"
  case credits.IsStorageError(err):
      // logically succeeded, persistence failed
  }
*/
package credits

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientCredits is returned when a debit exceeds the balance.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrAlreadyUnlocked is returned when buying an item the user owns.
	ErrAlreadyUnlocked = errors.New("already unlocked")

	// ErrUnauthenticated is returned by mutating operations with no user.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrInvalidAmount is returned for zero or negative credit amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidType is returned for a transaction tag outside the TxType set.
	ErrInvalidType = errors.New("unknown transaction type")

	// ErrStorageWrite is returned when the durable store rejects a write.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrCorruptState is returned when persisted data cannot be decoded or
	// violates the ledger invariants.
	ErrCorruptState = errors.New("corrupt ledger state")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientCreditsError provides details about a shortfall.
type InsufficientCreditsError struct {
	Balance   int
	Requested int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: balance %d, requested %d", e.Balance, e.Requested)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// AlreadyUnlockedError names the item that is already owned.
type AlreadyUnlockedError struct {
	ItemID string
}

func (e *AlreadyUnlockedError) Error() string {
	return fmt.Sprintf("already unlocked: %s", e.ItemID)
}

func (e *AlreadyUnlockedError) Unwrap() error { return ErrAlreadyUnlocked }

// StorageError wraps a failed durable write.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage write failed for %q: %v", e.Key, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *StorageError) Unwrap() []error { return []error{ErrStorageWrite, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrAlreadyUnlocked) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidType)
}

// IsStorageError returns true if the operation succeeded in memory but the
// durable write failed.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageWrite)
}
