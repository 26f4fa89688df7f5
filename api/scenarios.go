/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built histories that replace the caller's account with a
	realistic few days of CatButler use. Each scenario is a list of days;
	every day opens a session (granting the daily reward), records actions
	and buys items.

AVAILABLE SCENARIOS:

	new-cat-owner:  First day, profile set up, one recipe
	streak-week:    Seven consecutive logins with a task each day
	shopaholic:     Heavy shopping-list use, then a spending spree
	returning-user: Streak broken by a four-day gap, AI questions on return

HOW SCENARIOS WORK:
 1. Close the caller's session and delete their stored state
 2. Replay each day with the clock set to that day (last day is today)
 3. Next request opens a fresh session from the replayed state

USAGE VIA API:

	POST /api/me/scenarios/load
	{"scenario_id": "streak-week"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description, days

NOTE:

	Scenarios wipe the caller's account. Routes are only mounted when
	CATBUTLER_ENABLE_SCENARIOS is set.

SEE ALSO:
  - session/replay.go: Manager.Replay
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/catbutler/credits-engine/rewards"
	"github.com/catbutler/credits-engine/session"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	days []session.Day
}

func repeat(a rewards.Action, n int) []rewards.Action {
	out := make([]rewards.Action, n)
	for i := range out {
		out[i] = a
	}
	return out
}

func consecutive(n int, perDay ...rewards.Action) []session.Day {
	days := make([]session.Day, n)
	for i := range days {
		days[i] = session.Day{Offset: i, Actions: perDay}
	}
	return days
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "new-cat-owner",
			Name:        "New Cat Owner",
			Description: "First login, profile customized, first recipe",
			Category:    "onboarding",
		},
		days: []session.Day{
			{Offset: 0, Actions: []rewards.Action{rewards.ActionProfileCustomized, rewards.ActionRecipeGenerated}},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "streak-week",
			Name:        "Streak Week",
			Description: "Seven days in a row with one task per day; two streak bonuses",
			Category:    "streaks",
		},
		days: consecutive(7, rewards.ActionTaskCompleted),
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "shopaholic",
			Name:        "Shopaholic",
			Description: "Twelve shopping lists over three days, then three unlocks",
			Category:    "unlocks",
		},
		days: []session.Day{
			{Offset: 0, Actions: repeat(rewards.ActionShoppingListUsed, 4)},
			{Offset: 1, Actions: repeat(rewards.ActionShoppingListUsed, 4)},
			{
				Offset:  2,
				Actions: repeat(rewards.ActionShoppingListUsed, 4),
				Unlocks: []string{"ocean", "gold_border", "special_avatar"},
			},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "returning-user",
			Name:        "Returning User",
			Description: "Two-day streak, four days away, three more days and five AI questions",
			Category:    "achievements",
		},
		days: []session.Day{
			{Offset: 0},
			{Offset: 1},
			{Offset: 5},
			{Offset: 6},
			{Offset: 7, Actions: repeat(rewards.ActionAIConsultation, 5)},
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// LoadScenario replaces the caller's account with a predefined history.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sc, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	// Replay logs the user out itself, so it must not run inside Do.
	balance, err := h.Sessions.Replay(userID(r), sc.days)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.Logger.WithField("user_id", userID(r)).WithField("scenario", sc.ID).Info("Scenario loaded")
	writeJSON(w, http.StatusOK, ScenarioResultDTO{Status: "loaded", Scenario: sc.ID, Balance: balance})
}
