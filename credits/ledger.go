/*
ledger.go - Per-user balance and transaction history

PURPOSE:
  The Ledger owns one user's balance and newest-first transaction list,
  persists both to the Store on every mutation, and announces each
  mutation on the event bus.

CRITICAL INVARIANTS:
  1. NON-NEGATIVE: balance >= 0. A debit larger than the balance is
     rejected with no mutation.
  2. CONSISTENT: balance == sum(transactions.Amount) at all times. Balance
     is kept alongside the history (O(1) reads), never re-derived per read.
  3. NON-ZERO: every transaction has Amount != 0.

LIFECYCLE:
  Load()   First login seeds WelcomeBonus credits and one bonus
           transaction; later logins read the saved state.
  Reset()  Logout. Clears memory only. Durable state is left alone.

AUTHENTICATION:
  Credit while signed out is silently ignored (returns nil). This keeps the
  source behaviour: a reward earned during an auth flicker is dropped.
  Debit while signed out fails with ErrUnauthenticated.

KNOWN GAP - LOST UPDATES:
  Each Ledger reads the store once in Load and writes back on every
  mutation. Two Ledgers for the same user (two tabs, two server replicas)
  both start from the same snapshot; the second write clobbers the first
  one's balance and history. There is no versioning or compare-and-swap.
  Correctness under concurrent writers would need optimistic concurrency
  in the Store or server-side arbitration. ledger_test.go asserts the
  current last-writer-wins behaviour.

  A single Ledger value is not safe for concurrent use either; the HTTP
  server serialises calls per session (session.Manager).

EXAMPLE FLOW:
  1. New user logs in:          balance 10  [+10 bonus]
  2. Completes a task:          balance 12  [+2 task, +10 bonus]
  3. Buys an avatar for 5:      balance 7   [-5 unlock, +2 task, +10 bonus]
  4. Tries to buy a theme (15): ErrInsufficientCredits, nothing changes

SEE ALSO:
  - store.go: Key layout
  - errors.go: Failure types
  - unlocks/registry.go: Debit-then-unlock
*/
package credits

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/catbutler/credits-engine/events"
)

// WelcomeBonus is granted once, on the first ever login.
const (
	WelcomeBonus            = 10
	WelcomeBonusDescription = "Welcome bonus"
	WelcomeBonusIcon        = "🎉"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	identity Identity
	store    Store
	bus      events.Publisher
	clock    Clock
	logger   *log.Entry

	welcomeBonus int

	balance      int
	transactions []Transaction // newest first
	loaded       bool
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithClock(c Clock) Option { return func(l *Ledger) { l.clock = c } }

func WithLogger(e *log.Entry) Option { return func(l *Ledger) { l.logger = e } }

// WithWelcomeBonus overrides the first-login grant. Values <= 0 disable it.
func WithWelcomeBonus(n int) Option { return func(l *Ledger) { l.welcomeBonus = n } }

// NewLedger creates an empty ledger. Call Load before use.
// bus may be nil, in which case nothing is published.
func NewLedger(id Identity, store Store, bus events.Publisher, opts ...Option) *Ledger {
	l := &Ledger{
		identity:     id,
		store:        store,
		bus:          bus,
		clock:        SystemClock,
		logger:       log.WithField("component", "ledger"),
		welcomeBonus: WelcomeBonus,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Load reads the user's ledger from the store, seeding a new one with the
// welcome bonus on first login. Stored state that fails VerifyHistory is
// rejected with ErrCorruptState. A no-op when not authenticated.
func (l *Ledger) Load() error {
	if !l.identity.IsAuthenticated() {
		return nil
	}
	uid := l.identity.UserID()
	l.balance, l.transactions, l.loaded = 0, nil, false

	balance, found, err := LoadInt(l.store, Key(EntityCredits, uid))
	if err != nil {
		return err
	}

	if !found {
		l.transactions = []Transaction{}
		if l.welcomeBonus > 0 {
			l.balance = l.welcomeBonus
			l.transactions = []Transaction{l.newTx(l.welcomeBonus, WelcomeBonusDescription, TxBonus, WelcomeBonusIcon)}
		}
		l.loaded = true
		l.logger.WithFields(log.Fields{"user_id": uid, "balance": l.balance}).Info("New ledger seeded")
		return l.persist()
	}

	var txs []Transaction
	if _, err := LoadJSON(l.store, Key(EntityTransactions, uid), &txs); err != nil {
		return err
	}
	if txs == nil {
		txs = []Transaction{}
	}
	if err := VerifyHistory(balance, txs); err != nil {
		return err
	}
	l.balance = balance
	l.transactions = txs
	l.loaded = true
	return nil
}

// Reset clears in-memory state on logout. The store is not touched.
func (l *Ledger) Reset() {
	l.balance = 0
	l.transactions = nil
	l.loaded = false
}

// Loaded reports whether Load has populated the ledger.
func (l *Ledger) Loaded() bool { return l.loaded }

// =============================================================================
// MUTATIONS
// =============================================================================

// Credit adds amount to the balance and records a transaction.
//
// Returns ErrInvalidAmount for amount <= 0 and ErrInvalidType for an unknown
// tag. Silently does nothing when the user is not authenticated. A *StorageError means the credit was applied
// in memory but not persisted.
func (l *Ledger) Credit(amount int, description string, typ TxType, icon string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !typ.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	if !l.identity.IsAuthenticated() {
		l.logger.WithField("amount", amount).Debug("Credit ignored: not authenticated")
		return nil
	}

	l.balance += amount
	l.prepend(l.newTx(amount, description, typ, icon))
	err := l.persist()

	l.publish(events.CreditsEarned{
		Amount:      amount,
		Description: description,
		NewBalance:  l.balance,
		Type:        string(typ),
	})
	return err
}

// Debit removes amount from the balance if enough credits are available.
//
// On success it returns the new balance. With insufficient funds or no
// authenticated user nothing changes and the error says why.
func (l *Ledger) Debit(amount int, description string, typ TxType, icon string) (int, error) {
	if amount <= 0 {
		return l.balance, ErrInvalidAmount
	}
	if !typ.Valid() {
		return l.balance, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	if !l.identity.IsAuthenticated() {
		return l.balance, ErrUnauthenticated
	}
	if l.balance < amount {
		return l.balance, &InsufficientCreditsError{Balance: l.balance, Requested: amount}
	}

	l.balance -= amount
	l.prepend(l.newTx(-amount, description, typ, icon))
	err := l.persist()

	l.publish(events.CreditsSpent{
		Amount:      amount,
		Description: description,
		NewBalance:  l.balance,
		Type:        string(typ),
	})
	return l.balance, err
}

func (l *Ledger) newTx(amount int, description string, typ TxType, icon string) Transaction {
	return Transaction{
		ID:          newTransactionID(),
		Type:        typ,
		Amount:      amount,
		Description: description,
		Date:        l.clock().UTC(),
		Icon:        icon,
	}
}

func (l *Ledger) prepend(tx Transaction) {
	l.transactions = append([]Transaction{tx}, l.transactions...)
}

// persist writes balance and history. Both writes are attempted even if the
// first fails; in-memory state is never rolled back.
func (l *Ledger) persist() error {
	uid := l.identity.UserID()
	var errs []error
	if err := SaveInt(l.store, Key(EntityCredits, uid), l.balance); err != nil {
		errs = append(errs, err)
	}
	if err := SaveJSON(l.store, Key(EntityTransactions, uid), l.transactions); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	l.logger.WithError(err).WithField("user_id", uid).Error("Failed to persist ledger")
	return err
}

func (l *Ledger) publish(e events.Event) {
	if l.bus != nil {
		l.bus.Publish(e)
	}
}

// =============================================================================
// QUERIES - In-memory only, never touch the store
// =============================================================================

func (l *Ledger) Balance() int { return l.balance }

// Transactions returns a copy of the history, newest first.
func (l *Ledger) Transactions() []Transaction {
	out := make([]Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// RecentTransactions returns at most limit of the newest transactions.
func (l *Ledger) RecentTransactions(limit int) []Transaction {
	if limit <= 0 {
		return []Transaction{}
	}
	if limit > len(l.transactions) {
		limit = len(l.transactions)
	}
	out := make([]Transaction, limit)
	copy(out, l.transactions[:limit])
	return out
}

func (l *Ledger) TotalEarned() int {
	total := 0
	for _, tx := range l.transactions {
		if tx.Amount > 0 {
			total += tx.Amount
		}
	}
	return total
}

func (l *Ledger) TotalSpent() int {
	total := 0
	for _, tx := range l.transactions {
		if tx.Amount < 0 {
			total -= tx.Amount
		}
	}
	return total
}

// Summary is a read-only snapshot of the ledger.
type Summary struct {
	Balance          int
	TotalEarned      int
	TotalSpent       int
	TransactionCount int
	// SpendRatio is TotalSpent / TotalEarned rounded to 2 places, 0 when
	// nothing was earned.
	SpendRatio decimal.Decimal
}

func (l *Ledger) Summary() Summary {
	earned, spent := l.TotalEarned(), l.TotalSpent()
	ratio := decimal.Zero
	if earned > 0 {
		ratio = decimal.NewFromInt(int64(spent)).
			Div(decimal.NewFromInt(int64(earned))).
			Round(2)
	}
	return Summary{
		Balance:          l.balance,
		TotalEarned:      earned,
		TotalSpent:       spent,
		TransactionCount: len(l.transactions),
		SpendRatio:       ratio,
	}
}

// Verify checks the ledger invariants against the in-memory state.
func (l *Ledger) Verify() error {
	return VerifyHistory(l.balance, l.transactions)
}

// VerifyHistory checks that balance is non-negative, equals the sum of the
// history, and that no transaction has a zero amount.
func VerifyHistory(balance int, txs []Transaction) error {
	if balance < 0 {
		return fmt.Errorf("%w: negative balance %d", ErrCorruptState, balance)
	}
	sum := 0
	for i, tx := range txs {
		if tx.Amount == 0 {
			return fmt.Errorf("%w: transaction %d (%s) has zero amount", ErrCorruptState, i, tx.ID)
		}
		sum += tx.Amount
	}
	if sum != balance {
		return fmt.Errorf("%w: balance %d != sum of transactions %d", ErrCorruptState, balance, sum)
	}
	return nil
}
