/*
events.go - Domain events carried on the bus

PURPOSE:
  Defines the named signals the credits subsystem emits and the payload
  carried by each one. Producers (ledger, unlock registry, reward engine)
  publish these; consumers (notification center, metrics) subscribe.

EVENTS:
  credits_earned        CreditsEarned{Amount, Description, NewBalance}
  credits_spent         CreditsSpent{Amount, Description, NewBalance}
  achievement_unlocked  AchievementUnlocked{ID, Title, Description}
  daily_login_reward    DailyLoginReward{IsFirst}
  login_streak_reward   LoginStreakReward{Days}
  item_unlocked         ItemUnlocked{ItemID, ItemName, Cost}

SEE ALSO:
  - bus.go: Delivery semantics
*/
package events

// =============================================================================
// EVENT NAMES
// =============================================================================

// Name identifies a signal on the bus.
type Name string

const (
	CreditsEarnedName       Name = "credits_earned"
	CreditsSpentName        Name = "credits_spent"
	AchievementUnlockedName Name = "achievement_unlocked"
	DailyLoginRewardName    Name = "daily_login_reward"
	LoginStreakRewardName   Name = "login_streak_reward"
	ItemUnlockedName        Name = "item_unlocked"
)

// Names lists every domain event, in the order consumers usually register.
var Names = []Name{
	CreditsEarnedName,
	CreditsSpentName,
	AchievementUnlockedName,
	DailyLoginRewardName,
	LoginStreakRewardName,
	ItemUnlockedName,
}

// Event is anything that can travel on the bus.
type Event interface {
	Name() Name
}

// =============================================================================
// PAYLOADS
// =============================================================================

type CreditsEarned struct {
	Amount      int    `json:"amount"`
	Description string `json:"description"`
	NewBalance  int    `json:"newBalance"`
	Type        string `json:"type,omitempty"`
}

func (CreditsEarned) Name() Name { return CreditsEarnedName }

type CreditsSpent struct {
	Amount      int    `json:"amount"`
	Description string `json:"description"`
	NewBalance  int    `json:"newBalance"`
	Type        string `json:"type,omitempty"`
}

func (CreditsSpent) Name() Name { return CreditsSpentName }

type AchievementUnlocked struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (AchievementUnlocked) Name() Name { return AchievementUnlockedName }

// DailyLoginReward fires once per calendar day per user.
// IsFirst is true when the user has never been rewarded before.
type DailyLoginReward struct {
	IsFirst bool `json:"isFirst"`
}

func (DailyLoginReward) Name() Name { return DailyLoginRewardName }

type LoginStreakReward struct {
	Days int `json:"days"`
}

func (LoginStreakReward) Name() Name { return LoginStreakRewardName }

type ItemUnlocked struct {
	ItemID   string `json:"itemId"`
	ItemName string `json:"itemName"`
	Cost     int    `json:"cost"`
}

func (ItemUnlocked) Name() Name { return ItemUnlockedName }
