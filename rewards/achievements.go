package rewards

// =============================================================================
// ACHIEVEMENTS - One-shot flags driven by action counters
// =============================================================================

// Achievement fires once, when Counter reaches Threshold.
type Achievement struct {
	ID          string
	Title       string
	Description string
	Icon        string
	Counter     Action
	Threshold   int
}

// DefaultAchievements is the built-in achievement list.
func DefaultAchievements() []Achievement {
	return []Achievement{
		{
			ID: "first_login", Title: "First Login!", Icon: "🐾",
			Description: "Welcome to CatButler! You logged in for the first time.",
			Counter:     ActionDailyLogin, Threshold: 1,
		},
		{
			ID: "recipe_explorer", Title: "Recipe Explorer", Icon: "🍳",
			Description: "Generated 5 recipes.",
			Counter:     ActionRecipeGenerated, Threshold: 5,
		},
		{
			ID: "shopping_pro", Title: "Shopping Pro", Icon: "🛒",
			Description: "Used 10 shopping lists.",
			Counter:     ActionShoppingListUsed, Threshold: 10,
		},
		{
			ID: "task_master", Title: "Task Master", Icon: "✅",
			Description: "Completed 10 household tasks.",
			Counter:     ActionTaskCompleted, Threshold: 10,
		},
		{
			ID: "ai_curious", Title: "Curious Cat", Icon: "🤖",
			Description: "Asked the AI butler 5 questions.",
			Counter:     ActionAIConsultation, Threshold: 5,
		},
	}
}

// Check compares the counter against the threshold. It returns the
// description and true only when the threshold is crossed and the flag is
// not yet set. It never grants credits.
func (a Achievement) Check(counters map[Action]int, flags map[string]bool) (string, bool) {
	if flags[a.ID] {
		return "", false
	}
	if counters[a.Counter] < a.Threshold {
		return "", false
	}
	return a.Description, true
}
