package rewards

import (
	"fmt"

	"github.com/catbutler/credits-engine/credits"
)

// =============================================================================
// POLICY TABLE
// =============================================================================

// Table maps actions to their reward.
type Table map[Action]Policy

// DefaultPolicies returns a fresh copy of the built-in reward table.
func DefaultPolicies() Table {
	return Table{
		ActionDailyLogin: {
			Action: ActionDailyLogin, Amount: 1,
			Description: "Daily login reward", Icon: "📅", Type: credits.TxDaily,
		},
		ActionTaskCompleted: {
			Action: ActionTaskCompleted, Amount: 2,
			Description: "Task completed", Icon: "✅", Type: credits.TxTask,
		},
		ActionAIConsultation: {
			Action: ActionAIConsultation, Amount: 1,
			Description: "AI consultation", Icon: "🤖", Type: credits.TxAI,
		},
		ActionRecipeGenerated: {
			Action: ActionRecipeGenerated, Amount: 1,
			Description: "Recipe generated", Icon: "🍳", Type: credits.TxRecipe,
		},
		ActionShoppingListUsed: {
			Action: ActionShoppingListUsed, Amount: 3,
			Description: "Shopping list used", Icon: "🛒", Type: credits.TxShopping,
		},
		ActionProfileCustomized: {
			Action: ActionProfileCustomized, Amount: 5,
			Description: "Profile customized", Icon: "🎨", Type: credits.TxProfile,
			Once: true,
		},
	}
}

// Lookup returns the policy for a.
func (t Table) Lookup(a Action) (Policy, error) {
	p, ok := t[a]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
	return p, nil
}

// WithAmounts returns a copy of t with reward amounts replaced. Unknown
// actions and non-positive amounts are rejected.
func (t Table) WithAmounts(amounts map[string]int) (Table, error) {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	for name, amount := range amounts {
		p, ok := out[Action(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
		}
		if amount <= 0 {
			return nil, fmt.Errorf("reward %q: %w", name, credits.ErrInvalidAmount)
		}
		p.Amount = amount
		out[Action(name)] = p
	}
	return out, nil
}

// StreakPolicy is the bonus for an N-day login streak: N credits.
func StreakPolicy(days int) Policy {
	return Policy{
		Amount:      days,
		Description: fmt.Sprintf("%d-day login streak bonus", days),
		Icon:        "🔥",
		Type:        credits.TxStreak,
	}
}
