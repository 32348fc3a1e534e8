package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hedge-desk/coverage"
	"github.com/warp/hedge-desk/pricing"
	"github.com/warp/hedge-desk/request"
	"github.com/warp/hedge-desk/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var created = time.Date(2025, time.May, 2, 14, 30, 0, 0, time.UTC)

func approvedRequest(id string) request.Request {
	expiry := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	return request.Request{
		ID:                id,
		SellerID:          "seller-1",
		Status:            request.StatusApproved,
		Client:            "Transportes del Sur",
		RUT:               "12.345.678-5",
		BusinessAmountUsd: dec("12500.50"),
		Units:             2,
		InternalNumbers:   []string{"INT-1", "INT-2"},
		Payments: []coverage.Payment{
			{ID: "p-1", Type: coverage.DownPayment, AmountClp: dec("4000000"), DueDate: "2025-06-01", Notes: "pie"},
			{ID: "p-2", Type: coverage.Financing, AmountClp: dec("6000400"), DueDate: "2025-07-01", IsRemainingBalance: true},
		},
		ReferenceRate:   coverage.Some(dec("800")),
		ClientRate:      coverage.Some(dec("796")),
		SpotRate:        coverage.Some(dec("790")),
		ForwardPoints:   coverage.Some(dec("5.25")),
		AllInRate:       coverage.Some(dec("795.25")),
		CoveragePercent: coverage.Some(dec("75.5")),
		Bank:            "Banco Uno",
		ForwardDays:     90,
		Expiry:          &expiry,
		SIENumber:       "SIE-77",
		Comparison: &pricing.Comparison{
			Quotes:     []pricing.Quote{{Bank: "Banco Uno", Spot: dec("790"), ForwardPoints: dec("5.25"), Markup: decimal.NewNullDecimal(dec("0.75"))}},
			Selected:   "Banco Uno",
			CapturedAt: created,
		},
		Invoice:   &pricing.Invoice{TotalPerUnitUsd: dec("6256.13"), NetPerUnitUsd: dec("5257.25"), TotalClp: dec("4975187")},
		Notes:     "urgente",
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
	}
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	want := approvedRequest("r-1")

	require.NoError(t, store.Save(ctx, want))
	got, err := store.Get(ctx, "r-1")
	require.NoError(t, err)

	assert.Equal(t, want.SellerID, got.SellerID)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Client, got.Client)
	assert.Equal(t, want.InternalNumbers, got.InternalNumbers)
	assert.True(t, want.BusinessAmountUsd.Equal(got.BusinessAmountUsd))
	assert.Equal(t, 2, got.Units)

	assert.True(t, got.ReferenceRate.Valid)
	assert.True(t, dec("800").Equal(got.ReferenceRate.Decimal))
	assert.True(t, dec("5.25").Equal(got.ForwardPoints.Decimal))
	assert.True(t, dec("75.5").Equal(got.CoveragePercent.Decimal))

	require.NotNil(t, got.Expiry)
	assert.True(t, want.Expiry.Equal(*got.Expiry))
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, 90, got.ForwardDays)

	require.Len(t, got.Payments, 2)
	assert.Equal(t, "p-1", got.Payments[0].ID)
	assert.Equal(t, coverage.DownPayment, got.Payments[0].Type)
	assert.Equal(t, "pie", got.Payments[0].Notes)
	assert.True(t, got.Payments[1].IsRemainingBalance)
	assert.True(t, dec("6000400").Equal(got.Payments[1].AmountClp))

	require.NotNil(t, got.Comparison)
	assert.Equal(t, "Banco Uno", got.Comparison.Selected)
	assert.True(t, dec("0.75").Equal(got.Comparison.Quotes[0].Markup.Decimal))
	require.NotNil(t, got.Invoice)
	assert.True(t, dec("4975187").Equal(got.Invoice.TotalClp))

	// Coverage depends only on stored inputs, so it survives the round trip.
	assert.True(t, want.Coverage().CoveredExposureUsd.Equal(got.Coverage().CoveredExposureUsd))
}

func TestStore_AbsentOptionalsStayAbsent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	draft := request.Request{
		ID: "d-1", SellerID: "s", Status: request.StatusDraft, Client: "C", RUT: "11.111.111-1",
		BusinessAmountUsd: dec("1000"), Units: 1, ReferenceRate: coverage.Some(dec("900")),
		CreatedAt: created, UpdatedAt: created,
	}
	require.NoError(t, store.Save(ctx, draft))

	got, err := store.Get(ctx, "d-1")
	require.NoError(t, err)
	assert.False(t, got.ClientRate.Valid)
	assert.False(t, got.CoveragePercent.Valid)
	assert.Nil(t, got.Expiry)
	assert.Nil(t, got.Comparison)
	assert.Nil(t, got.Invoice)
	assert.Empty(t, got.InternalNumbers)
	assert.Empty(t, got.Payments)
}

func TestStore_SaveReplacesPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	r := approvedRequest("r-1")
	require.NoError(t, store.Save(ctx, r))

	r.Payments = r.Payments[:1]
	r.Status = request.StatusVoided
	require.NoError(t, store.Save(ctx, r))

	got, err := store.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, request.StatusVoided, got.Status)
	assert.Len(t, got.Payments, 1)
}

func TestStore_SecondRemainingBalanceRejected(t *testing.T) {
	store := newTestStore(t)
	r := approvedRequest("r-1")
	r.Payments[0].IsRemainingBalance = true

	err := store.Save(context.Background(), r)
	assert.ErrorIs(t, err, request.ErrValidation)

	_, err = store.Get(context.Background(), "r-1")
	assert.ErrorIs(t, err, request.ErrNotFound, "the failed save is rolled back")
}

func TestStore_ListFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := approvedRequest("a")
	b := approvedRequest("b")
	b.Status = request.StatusDraft
	b.CreatedAt = created.Add(time.Hour)
	c := approvedRequest("c")
	c.SellerID = "seller-2"
	c.CreatedAt = created.Add(2 * time.Hour)
	for _, r := range []request.Request{a, b, c} {
		require.NoError(t, store.Save(ctx, r))
	}

	all, err := store.List(ctx, request.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Len(t, all[2].Payments, 2, "payments are loaded for listed requests")

	approved, err := store.List(ctx, request.Filter{Status: request.StatusApproved, SellerID: "seller-1"})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "a", approved[0].ID)

	none, err := store.List(ctx, request.Filter{SellerID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_DeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, approvedRequest("r-1")))

	require.NoError(t, store.Delete(ctx, "r-1"))
	_, err := store.Get(ctx, "r-1")
	assert.ErrorIs(t, err, request.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "r-1"), request.ErrNotFound)

	// Re-saving under the same id starts from a clean payment list.
	fresh := approvedRequest("r-1")
	fresh.Payments = fresh.Payments[1:]
	require.NoError(t, store.Save(ctx, fresh))
	got, err := store.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Len(t, got.Payments, 1)
}

// =============================================================================
// EXECUTIVES
// =============================================================================

func TestStore_Executives(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveExecutive(ctx, request.Executive{ID: "e-2", Name: "Luis", Bank: "Banco Dos", ContactNumber: "222", CreatedAt: created}))
	require.NoError(t, store.SaveExecutive(ctx, request.Executive{ID: "e-1", Name: "Ana", Bank: "Banco Uno", ContactNumber: "111", CreatedAt: created}))
	require.NoError(t, store.SaveExecutive(ctx, request.Executive{ID: "e-3", Name: "Beto", Bank: "Banco Uno", ContactNumber: "333", CreatedAt: created}))

	all, err := store.ListExecutives(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Luis", all[0].Name, "ordered by bank then name")

	uno, err := store.ListExecutives(ctx, "Banco Uno")
	require.NoError(t, err)
	require.Len(t, uno, 2)
	assert.Equal(t, "Ana", uno[0].Name)
	assert.True(t, created.Equal(uno[0].CreatedAt))

	require.NoError(t, store.DeleteExecutive(ctx, "e-1"))
	assert.ErrorIs(t, store.DeleteExecutive(ctx, "e-1"), request.ErrNotFound)
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, approvedRequest("r-1")))
	require.NoError(t, store.SaveExecutive(ctx, request.Executive{ID: "e", Name: "A", Bank: "B", ContactNumber: "1"}))

	require.NoError(t, store.Reset(ctx))

	all, err := store.List(ctx, request.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	execs, err := store.ListExecutives(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, execs)
}

// =============================================================================
// SERVICE ON SQLITE
// =============================================================================

func TestStore_BacksRequestService(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	svc := &request.Service{Store: store, Executives: store, Log: log}

	seller := request.Actor{ID: "seller-1", Role: request.RoleSeller}
	admin := request.Actor{ID: "admin-1", Role: request.RoleAdmin}

	in := approvedRequest("")
	in.Status = ""
	in.Comparison, in.Invoice, in.Expiry = nil, nil, nil
	in.ClientRate, in.SpotRate, in.ForwardPoints, in.AllInRate = coverage.None(), coverage.None(), coverage.None(), coverage.None()
	in.Bank, in.ForwardDays = "", 0

	r, err := svc.Create(ctx, seller, in)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, seller, r.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, admin, r.ID, request.Approval{
		Quotes:       []pricing.Quote{{Bank: "Banco Uno", Spot: dec("790"), ForwardPoints: dec("5")}},
		SelectedBank: "Banco Uno",
		ForwardDays:  30,
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusApproved, got.Status)
	assert.True(t, dec("796").Equal(got.ClientRate.Decimal))
	require.NotNil(t, got.Invoice)

	sum, err := svc.Portfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.All.Count)
}
