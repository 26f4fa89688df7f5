package notifications

import (
	"fmt"

	"github.com/catbutler/credits-engine/events"
)

// Type is the display style of a notification.
type Type string

const (
	TypeCreditEarned Type = "credit_earned"
	TypeCreditSpent  Type = "credit_spent"
	TypeAchievement  Type = "achievement"
	TypeInfo         Type = "info"
	TypeSuccess      Type = "success"
	TypeWarning      Type = "warning"
	TypeError        Type = "error"
)

func (t Type) Valid() bool {
	switch t {
	case TypeCreditEarned, TypeCreditSpent, TypeAchievement,
		TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	}
	return false
}

// Categories group notifications in the UI.
const (
	CategoryCredits      = "credits"
	CategoryAchievements = "achievements"
	CategoryRewards      = "rewards"
	CategoryUnlocks      = "unlocks"
	CategoryGeneral      = "general"
)

// draft is a notification before it gets an id and timestamp.
type draft struct {
	Type     Type
	Title    string
	Message  string
	Icon     string
	Category string
}

// render maps a domain event to its fixed template. ok is false for events
// that produce no notification.
func render(e events.Event) (draft, bool) {
	switch ev := e.(type) {
	case events.CreditsEarned:
		return draft{
			Type:     TypeCreditEarned,
			Title:    "Credits Earned!",
			Message:  fmt.Sprintf("+%d credits: %s", ev.Amount, ev.Description),
			Icon:     "💰",
			Category: CategoryCredits,
		}, true
	case events.CreditsSpent:
		return draft{
			Type:     TypeCreditSpent,
			Title:    "Credits Spent",
			Message:  fmt.Sprintf("-%d credits: %s", ev.Amount, ev.Description),
			Icon:     "💸",
			Category: CategoryCredits,
		}, true
	case events.AchievementUnlocked:
		return draft{
			Type:     TypeAchievement,
			Title:    "Achievement Unlocked!",
			Message:  fmt.Sprintf("%s: %s", ev.Title, ev.Description),
			Icon:     "🏆",
			Category: CategoryAchievements,
		}, true
	case events.DailyLoginReward:
		msg := "Welcome back! Here is your daily login reward."
		if ev.IsFirst {
			msg = "Welcome! You earned your first daily login reward."
		}
		return draft{
			Type:     TypeSuccess,
			Title:    "Daily Reward",
			Message:  msg,
			Icon:     "📅",
			Category: CategoryRewards,
		}, true
	case events.LoginStreakReward:
		return draft{
			Type:     TypeSuccess,
			Title:    "Login Streak!",
			Message:  fmt.Sprintf("%d days in a row! Bonus credits added.", ev.Days),
			Icon:     "🔥",
			Category: CategoryRewards,
		}, true
	case events.ItemUnlocked:
		return draft{
			Type:     TypeSuccess,
			Title:    "Item Unlocked",
			Message:  fmt.Sprintf("You unlocked %s.", ev.ItemName),
			Icon:     "🔓",
			Category: CategoryUnlocks,
		}, true
	}
	return draft{}, false
}
