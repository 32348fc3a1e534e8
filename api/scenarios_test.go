package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hedge-desk/request"
)

func (f *fixture) loadScenario(id string) {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/scenarios/load", request.Actor{}, LoadScenarioRequest{ScenarioID: id})
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (f *fixture) listAll() []RequestDTO {
	f.t.Helper()
	rec := f.do(http.MethodGet, "/api/requests", testAdmin, nil)
	require.Equal(f.t, http.StatusOK, rec.Code)
	return decodeBody[[]RequestDTO](f.t, rec)
}

func countByStatus(rs []RequestDTO) map[request.Status]int {
	out := map[request.Status]int{}
	for _, r := range rs {
		out[r.Status]++
	}
	return out
}

func TestListScenarios(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/scenarios", request.Actor{}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[[]ScenarioDTO](t, rec)
	require.Len(t, got, 3)
	assert.Equal(t, "pipeline", got[0].ID)
}

func TestLoadScenario_Pipeline(t *testing.T) {
	f := newFixture(t)

	f.loadScenario("pipeline")

	counts := countByStatus(f.listAll())
	assert.Equal(t, 1, counts[request.StatusDraft])
	assert.Equal(t, 2, counts[request.StatusInReview])

	rec := f.do(http.MethodGet, "/api/executives", testSeller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]request.Executive](t, rec), 3)

	rec = f.do(http.MethodGet, "/api/scenarios/current", request.Actor{}, nil)
	assert.Equal(t, "pipeline", decodeBody[ScenarioDTO](t, rec).ID)
}

func TestLoadScenario_ApprovedBook(t *testing.T) {
	// GIVEN / WHEN
	f := newFixture(t)
	f.loadScenario("approved-book")

	// THEN: three active covers, the 20-day one is upcoming
	rec := f.do(http.MethodGet, "/api/portfolio", testCoordinator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decodeBody[PortfolioDTO](t, rec)
	assert.Equal(t, 3, sum.Active.Count)
	assert.Len(t, sum.Active.BankShares, 3)
	require.Len(t, sum.Upcoming, 1)
	assert.Equal(t, "Forestal Araucanía", sum.Upcoming[0].Client)
	assert.Equal(t, 20, sum.Active.ForwardDays.Min)
	assert.Equal(t, 180, sum.Active.ForwardDays.Max)

	for _, r := range f.listAll() {
		assert.Equal(t, request.StatusApproved, r.Status)
		require.NotNil(t, r.Comparison)
		assert.Len(t, r.Comparison.Quotes, 3)
		assert.Equal(t, r.Bank, r.Comparison.Selected)
	}
}

func TestLoadScenario_FullDeskReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	f.loadScenario("pipeline")

	f.loadScenario("full-desk")

	all := f.listAll()
	assert.Len(t, all, 8)
	counts := countByStatus(all)
	assert.Equal(t, 3, counts[request.StatusApproved])
	assert.Equal(t, 1, counts[request.StatusRejected])
	assert.Equal(t, 1, counts[request.StatusVoided])

	rec := f.do(http.MethodGet, "/api/executives", testSeller, nil)
	assert.Len(t, decodeBody[[]request.Executive](t, rec), 3, "executives are not duplicated")
}

func TestLoadScenario_Unknown(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/scenarios/load", request.Actor{}, LoadScenarioRequest{ScenarioID: "nope"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetDatabase(t *testing.T) {
	f := newFixture(t)
	f.loadScenario("approved-book")
	// Prime the summary cache.
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/portfolio", testAdmin, nil).Code)

	rec := f.do(http.MethodPost, "/api/scenarios/reset", request.Actor{}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.listAll())
	rec = f.do(http.MethodGet, "/api/portfolio", testAdmin, nil)
	assert.Equal(t, 0, decodeBody[PortfolioDTO](t, rec).All.Count)
	rec = f.do(http.MethodGet, "/api/scenarios/current", request.Actor{}, nil)
	assert.Equal(t, "null\n", rec.Body.String())
}
