/*
scenarios_test.go - Tests for demo scenarios

PURPOSE:
	Loads each scenario through the API and checks the resulting balance,
	streak and achievements. Doubles as an end-to-end test of several days
	of rewards, unlocks and streak bonuses.
*/
package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_NotMountedByDefault(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.call("GET", "/api/scenarios", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenarios_List(t *testing.T) {
	ts := newTestServerWith(t, RouterOptions{Scenarios: true})
	rec := ts.call("GET", "/api/scenarios", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]ScenarioDTO](t, rec)
	require.Len(t, list, len(scenarios))
	assert.Equal(t, "new-cat-owner", list[0].ID)
}

func TestScenarios_Load(t *testing.T) {
	tests := []struct {
		id           string
		balance      int
		streak       int
		achievements []string
	}{
		// 10 welcome + 1 daily + 5 profile + 1 recipe
		{"new-cat-owner", 17, 1, []string{"first_login"}},
		// 10 + 7 daily + 3 + 6 streak + 7*2 task
		{"streak-week", 40, 7, []string{"first_login"}},
		// 10 + 3 daily + 3 streak + 12*3 shopping - 15 - 10 - 20
		{"shopaholic", 7, 3, []string{"first_login", "shopping_pro"}},
		// 10 + 5 daily + 3 streak + 5 ai
		{"returning-user", 23, 3, []string{"first_login", "ai_curious"}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			// GIVEN: A user with some existing activity
			// WHEN: Loading a scenario into their account
			// THEN: Old state is gone and the replayed history is in place

			ts := newTestServerWith(t, RouterOptions{Scenarios: true})
			ts.call("POST", "/api/me/actions/profile_customized", "42", "")

			rec := ts.call("POST", "/api/me/scenarios/load", "42", `{"scenario_id": "`+tt.id+`"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			res := decode[ScenarioResultDTO](t, rec)
			assert.Equal(t, tt.balance, res.Balance)

			rec = ts.call("GET", "/api/me/credits", "42", "")
			dto := decode[CreditsDTO](t, rec)
			assert.Equal(t, tt.balance, dto.Balance, "no extra daily reward today")
			assert.Equal(t, tt.streak, dto.Streak.Count)
			assert.ElementsMatch(t, tt.achievements, dto.Achievements)
		})
	}
}

func TestScenarios_ShopaholicOwnsItems(t *testing.T) {
	ts := newTestServerWith(t, RouterOptions{Scenarios: true})
	ts.call("POST", "/api/me/scenarios/load", "42", `{"scenario_id": "shopaholic"}`)

	rec := ts.call("GET", "/api/me/unlocks", "42", "")
	owned := decode[map[string][]string](t, rec)
	assert.Contains(t, owned["avatar"], "special_avatar")
	assert.Contains(t, owned["theme"], "ocean")
	assert.Contains(t, owned["border"], "gold_border")
}

func TestScenarios_UnknownScenario(t *testing.T) {
	ts := newTestServerWith(t, RouterOptions{Scenarios: true})
	rec := ts.call("POST", "/api/me/scenarios/load", "42", `{"scenario_id": "space-cat"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.call("POST", "/api/me/scenarios/load", "", `{"scenario_id": "streak-week"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
