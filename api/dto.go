/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the HTTP API. Domain types with stable JSON tags
  (credits.Transaction, notifications.Notification, unlocks.Item) are
  returned as-is; everything else gets a DTO here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/notifications"
	"github.com/catbutler/credits-engine/rewards"
)

// =============================================================================
// CREDITS
// =============================================================================

// CreditsDTO is the balance summary for the current user.
type CreditsDTO struct {
	Balance          int            `json:"balance"`
	TotalEarned      int            `json:"totalEarned"`
	TotalSpent       int            `json:"totalSpent"`
	TransactionCount int            `json:"transactionCount"`
	SpendRatio       string         `json:"spendRatio"`
	Streak           rewards.Streak `json:"streak"`
	Achievements     []string       `json:"achievements"`
}

type TransactionsDTO struct {
	Balance      int                   `json:"balance"`
	Transactions []credits.Transaction `json:"transactions"`
}

// SpendRequest is a generic debit.
type SpendRequest struct {
	Amount      int    `json:"amount"`
	Description string `json:"description"`
}

type BalanceDTO struct {
	Balance int `json:"balance"`
}

// =============================================================================
// REWARDS
// =============================================================================

type ActionDTO struct {
	rewards.Outcome
	Balance int `json:"balance"`
}

type DailyLoginDTO struct {
	Granted bool           `json:"granted"`
	Balance int            `json:"balance"`
	Streak  rewards.Streak `json:"streak"`
}

// =============================================================================
// UNLOCKS
// =============================================================================

// UnlocksDTO lists owned item ids per kind.
type UnlocksDTO map[string][]string

type UnlockDTO struct {
	ItemID  string `json:"itemId"`
	Balance int    `json:"balance"`
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

type NotificationsDTO struct {
	UnreadCount   int                          `json:"unreadCount"`
	Notifications []notifications.Notification `json:"notifications"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type ScenarioResultDTO struct {
	Status   string `json:"status"`
	Scenario string `json:"scenario"`
	Balance  int    `json:"balance"`
}
