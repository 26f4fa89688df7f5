/*
Package credits provides the per-user credits ledger.

PURPOSE:
  Tracks one user's credit balance and the append-only history of signed
  transactions that produced it. Everything else in the subsystem (reward
  policy, unlock registry, notifications) mutates credits through the
  Ledger defined here.

KEY CONCEPTS IN THIS FILE (types.go):
  - TxType: Why a transaction happened (bonus, daily, task, ...)
  - Transaction: One signed balance mutation
  - Identity: The "current user" boundary supplied by the identity provider
  - Clock: Injected time source

DESIGN PRINCIPLES:
  1. Balance and history live side by side; balance == sum(history) always
  2. Newest-first history: index 0 is the most recent transaction
  3. Integer credits only, never zero-amount transactions
  4. No ambient state: identity, store and bus are passed in

USAGE:
  ledger := credits.NewLedger(user, store, bus)
  if err := ledger.Load(); err != nil { ... }
  err := ledger.Credit(2, "Task completed", credits.TxTask, "✅")

SEE ALSO:
  - ledger.go: Balance mutation and queries
  - store.go: Durable key-value contract
  - errors.go: Typed failures
*/
package credits

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

type TxType string

const (
	TxBonus    TxType = "bonus"    // Welcome bonus on first login
	TxDaily    TxType = "daily"    // Daily login reward
	TxTask     TxType = "task"     // Household task completed
	TxAI       TxType = "ai"       // AI consultation
	TxRecipe   TxType = "recipe"   // Recipe generated
	TxShopping TxType = "shopping" // Shopping list used
	TxProfile  TxType = "profile"  // Profile customized
	TxStreak   TxType = "streak"   // Login streak bonus
	TxUnlock   TxType = "unlock"   // Cosmetic item purchased
	TxSpent    TxType = "spent"    // Generic spend
)

var validTxTypes = map[TxType]bool{
	TxBonus: true, TxDaily: true, TxTask: true, TxAI: true, TxRecipe: true,
	TxShopping: true, TxProfile: true, TxStreak: true, TxUnlock: true, TxSpent: true,
}

// Valid reports whether t is one of the known transaction tags.
func (t TxType) Valid() bool { return validTxTypes[t] }

// =============================================================================
// TRANSACTION
// =============================================================================

// Transaction is one signed credit-balance mutation.
// Positive Amount = credits gained, negative = credits spent. Never zero.
type Transaction struct {
	ID          string    `json:"id"`
	Type        TxType    `json:"type"`
	Amount      int       `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Icon        string    `json:"icon"`
}

// newTransactionID returns a time-ordered identifier (UUIDv7) so IDs sort
// by creation time and stay unique within the same millisecond.
func newTransactionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// =============================================================================
// IDENTITY - Authentication boundary
// =============================================================================

// Identity is the current-user provider. All mutating operations check
// IsAuthenticated at call time, not only at construction.
type Identity interface {
	UserID() string
	IsAuthenticated() bool
}

// User is a plain Identity value.
type User struct {
	ID            string
	Authenticated bool
}

func (u *User) UserID() string        { return u.ID }
func (u *User) IsAuthenticated() bool { return u != nil && u.Authenticated && u.ID != "" }

// SignOut marks the user as no longer authenticated.
func (u *User) SignOut() { u.Authenticated = false }

// =============================================================================
// CLOCK
// =============================================================================

// Clock returns the current time. Tests inject fixed clocks.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// DateKey formats t as a calendar-day string in loc ("2006-01-02").
func DateKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(time.DateOnly)
}
