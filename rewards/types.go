/*
Package rewards maps user actions to credit rewards.

PURPOSE:
  The reward policy is a fixed table: each named action ("task completed",
  "recipe generated", ...) earns a fixed number of credits with a fixed
  description and icon. On top of the table sit three stateful rules:

  - Daily login: at most one reward per calendar day per user
  - Login streak: consecutive-day counter, bonus every 3rd day
  - Achievements: one-shot flags that fire when a counter crosses a
    threshold

KEY DIFFERENCES FROM THE LEDGER:
  1. The ledger only knows amounts; the policy knows WHY
  2. Idempotency markers live in their own keys, not in the ledger
  3. Counters and rewards move together: Engine.Record is the only call
     site that does both, so they cannot drift apart

ACTIONS:
  daily_login          1 credit, once per day
  task_completed       2 credits
  ai_consultation      1 credit
  recipe_generated     1 credit
  shopping_list_used   3 credits
  profile_customized   5 credits, once per account
  (streak)             N credits for an N-day streak, N divisible by 3

SEE ALSO:
  - policies.go: The table
  - streak.go: Day-boundary arithmetic
  - achievements.go: Thresholds
  - engine.go: Stateful rules wired to the ledger
*/
package rewards

import (
	"errors"
	"fmt"

	"github.com/catbutler/credits-engine/credits"
)

// =============================================================================
// ACTIONS
// =============================================================================

// Action names something a user did that may earn credits.
type Action string

const (
	ActionDailyLogin        Action = "daily_login"
	ActionTaskCompleted     Action = "task_completed"
	ActionAIConsultation    Action = "ai_consultation"
	ActionRecipeGenerated   Action = "recipe_generated"
	ActionShoppingListUsed  Action = "shopping_list_used"
	ActionProfileCustomized Action = "profile_customized"
)

// ErrUnknownAction is returned for actions missing from the policy table.
var ErrUnknownAction = errors.New("unknown reward action")

// ParseAction validates a wire-level action name.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := DefaultPolicies()[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// =============================================================================
// POLICY
// =============================================================================

// Policy is one row of the reward table.
type Policy struct {
	Action      Action
	Amount      int
	Description string
	Icon        string
	Type        credits.TxType

	// Once limits the reward to one grant per account.
	Once bool
}

// Crediter is the part of the ledger a policy needs.
type Crediter interface {
	Credit(amount int, description string, typ credits.TxType, icon string) error
}

// Apply credits the policy's configured reward. It has no other effect.
func (p Policy) Apply(c Crediter) error {
	return c.Credit(p.Amount, p.Description, p.Type, p.Icon)
}
