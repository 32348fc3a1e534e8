package request_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hedge-desk/coverage"
	"github.com/warp/hedge-desk/request"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func validRequest() request.Request {
	return request.Request{
		Client:            "Transportes del Sur",
		RUT:               "12.345.678-5",
		BusinessAmountUsd: decimal.NewFromInt(12500),
		Units:             1,
		ReferenceRate:     coverage.Some(decimal.NewFromInt(800)),
		Payments: []coverage.Payment{
			{Type: coverage.DownPayment, AmountClp: decimal.NewFromInt(4_000_000), DueDate: "2025-07-01"},
			{Type: coverage.Financing, AmountClp: decimal.NewFromInt(6_000_000), DueDate: "2025-08-01"},
		},
	}
}

func validationErrors(t *testing.T, err error) request.ValidationErrors {
	t.Helper()
	require.Error(t, err)
	var v request.ValidationErrors
	require.True(t, errors.As(err, &v), "want ValidationErrors, got %T", err)
	assert.True(t, request.IsClientError(err))
	return v
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestNext_TransitionTable(t *testing.T) {
	tests := []struct {
		name   string
		role   request.Role
		from   request.Status
		action request.Action
		want   request.Status
		err    error
	}{
		{"seller submits draft", request.RoleSeller, request.StatusDraft, request.ActionSubmit, request.StatusInReview, nil},
		{"coordinator submits draft", request.RoleCoordinator, request.StatusDraft, request.ActionSubmit, request.StatusInReview, nil},
		{"submit twice", request.RoleSeller, request.StatusInReview, request.ActionSubmit, "", request.ErrInvalidTransition},
		{"admin approves", request.RoleAdmin, request.StatusInReview, request.ActionApprove, request.StatusApproved, nil},
		{"admin rejects", request.RoleAdmin, request.StatusInReview, request.ActionReject, request.StatusRejected, nil},
		{"approve draft", request.RoleAdmin, request.StatusDraft, request.ActionApprove, "", request.ErrInvalidTransition},
		{"reject approved", request.RoleAdmin, request.StatusApproved, request.ActionReject, "", request.ErrInvalidTransition},
		{"seller approves", request.RoleSeller, request.StatusInReview, request.ActionApprove, "", request.ErrForbidden},
		{"coordinator rejects", request.RoleCoordinator, request.StatusInReview, request.ActionReject, "", request.ErrForbidden},
		{"admin voids draft", request.RoleAdmin, request.StatusDraft, request.ActionVoid, request.StatusVoided, nil},
		{"admin voids approved", request.RoleAdmin, request.StatusApproved, request.ActionVoid, request.StatusVoided, nil},
		{"admin voids rejected", request.RoleAdmin, request.StatusRejected, request.ActionVoid, request.StatusVoided, nil},
		{"void twice", request.RoleAdmin, request.StatusVoided, request.ActionVoid, "", request.ErrInvalidTransition},
		{"seller voids", request.RoleSeller, request.StatusDraft, request.ActionVoid, "", request.ErrForbidden},
		{"unknown action", request.RoleAdmin, request.StatusDraft, request.Action("archive"), "", request.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := request.Next(tt.role, tt.from, tt.action)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_InvalidTransitionCarriesContext(t *testing.T) {
	_, err := request.Next(request.RoleAdmin, request.StatusApproved, request.ActionApprove)

	var te *request.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, request.ActionApprove, te.Action)
	assert.Equal(t, request.StatusApproved, te.From)
	assert.Contains(t, err.Error(), "APPROVED")
}

func TestPermissions(t *testing.T) {
	all := []request.Status{
		request.StatusDraft, request.StatusInReview, request.StatusApproved,
		request.StatusRejected, request.StatusVoided,
	}
	for _, s := range all {
		assert.Equal(t, s != request.StatusVoided, request.CanEditData(request.RoleAdmin, s), "admin data %s", s)
		assert.Equal(t, s != request.StatusVoided, request.CanEditCoverage(request.RoleAdmin, s), "admin coverage %s", s)
		assert.Equal(t, s == request.StatusDraft || s == request.StatusInReview,
			request.CanEditData(request.RoleSeller, s), "seller data %s", s)
		assert.False(t, request.CanEditCoverage(request.RoleSeller, s), "seller coverage %s", s)
		assert.False(t, request.CanEditData(request.RoleCoordinator, s), "coordinator data %s", s)
	}
}

func TestCanView(t *testing.T) {
	r := request.Request{SellerID: "s-1"}
	assert.True(t, request.CanView(request.Actor{ID: "s-1", Role: request.RoleSeller}, r))
	assert.False(t, request.CanView(request.Actor{ID: "s-2", Role: request.RoleSeller}, r))
	assert.True(t, request.CanView(request.Actor{ID: "a", Role: request.RoleAdmin}, r))
	assert.True(t, request.CanView(request.Actor{ID: "c", Role: request.RoleCoordinator}, r))
	assert.False(t, request.CanView(request.Actor{ID: "x", Role: "GUEST"}, r))
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate_ValidRequest(t *testing.T) {
	assert.NoError(t, request.Validate(validRequest()))
}

func TestValidate_FieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *request.Request)
		field  string
	}{
		{"empty client", func(r *request.Request) { r.Client = "   " }, "client"},
		{"long client", func(r *request.Request) { r.Client = strings.Repeat("a", 201) }, "client"},
		{"missing rut", func(r *request.Request) { r.RUT = "" }, "rut"},
		{"unformatted rut", func(r *request.Request) { r.RUT = "12345678-5" }, "rut"},
		{"bad check digit", func(r *request.Request) { r.RUT = "12.345.678-9" }, "rut"},
		{"zero business", func(r *request.Request) { r.BusinessAmountUsd = decimal.Zero }, "business_amount_usd"},
		{"huge business", func(r *request.Request) { r.BusinessAmountUsd = decimal.NewFromInt(1_000_000_000) }, "business_amount_usd"},
		{"zero units", func(r *request.Request) { r.Units = 0 }, "units"},
		{"too many units", func(r *request.Request) { r.Units = 10001 }, "units"},
		{"too many internal numbers", func(r *request.Request) { r.InternalNumbers = make([]string, 101) }, "internal_numbers"},
		{"long internal number", func(r *request.Request) { r.InternalNumbers = []string{strings.Repeat("9", 51)} }, "internal_numbers"},
		{"missing reference rate", func(r *request.Request) { r.ReferenceRate = coverage.None() }, "reference_rate"},
		{"zero client rate", func(r *request.Request) { r.ClientRate = coverage.Some(decimal.Zero) }, "client_rate"},
		{"negative spot", func(r *request.Request) { r.SpotRate = coverage.Some(decimal.NewFromInt(-1)) }, "spot_rate"},
		{"percent above 100", func(r *request.Request) { r.CoveragePercent = coverage.Some(decimal.NewFromInt(101)) }, "coverage_percent"},
		{"negative percent", func(r *request.Request) { r.CoveragePercent = coverage.Some(decimal.NewFromInt(-1)) }, "coverage_percent"},
		{"forward too long", func(r *request.Request) { r.ForwardDays = 361 }, "forward_days"},
		{"long notes", func(r *request.Request) { r.Notes = strings.Repeat("n", 2001) }, "notes"},
		{"long sie", func(r *request.Request) { r.SIENumber = strings.Repeat("s", 51) }, "sie_number"},
		{"long bank", func(r *request.Request) { r.Bank = strings.Repeat("b", 101) }, "bank"},
		{"no payments", func(r *request.Request) { r.Payments = nil }, "payments"},
		{"too many payments", func(r *request.Request) {
			r.Payments = make([]coverage.Payment, 51)
			for i := range r.Payments {
				r.Payments[i] = coverage.Payment{Type: coverage.TradeIn, AmountClp: decimal.NewFromInt(1), DueDate: "2025-01-01"}
			}
		}, "payments"},
		{"two remaining-balance flags", func(r *request.Request) {
			r.Payments[0].IsRemainingBalance = true
			r.Payments[1].IsRemainingBalance = true
		}, "payments"},
		{"zero payment", func(r *request.Request) { r.Payments[1].AmountClp = decimal.Zero }, "payments[1].amount_clp"},
		{"unknown type", func(r *request.Request) { r.Payments[0].Type = "CHEQUE" }, "payments[0].type"},
		{"missing due date", func(r *request.Request) { r.Payments[0].DueDate = "" }, "payments[0].due_date"},
		{"malformed due date", func(r *request.Request) { r.Payments[0].DueDate = "01/07/2025" }, "payments[0].due_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(&r)

			v := validationErrors(t, request.Validate(r))
			assert.Contains(t, v, tt.field)
		})
	}
}

func TestValidate_Boundaries(t *testing.T) {
	r := validRequest()
	r.Client = strings.Repeat("á", 200)
	r.BusinessAmountUsd = decimal.NewFromInt(999_999_999)
	r.Units = 10000
	r.ForwardDays = 360
	r.CoveragePercent = coverage.Some(decimal.NewFromInt(100))
	r.RUT = "9.068.826-k"

	assert.NoError(t, request.Validate(r))
}

func TestValidate_RemainingBalanceMayBeZero(t *testing.T) {
	r := validRequest()
	r.Payments[1].AmountClp = decimal.Zero
	r.Payments[1].IsRemainingBalance = true

	assert.NoError(t, request.Validate(r))
}

func TestValidateExecutive(t *testing.T) {
	ok := request.Executive{Name: "María Pérez", Bank: "Banco Uno", ContactNumber: "+56 (9) 1234-5678"}
	assert.NoError(t, request.ValidateExecutive(ok))

	bad := request.Executive{Name: "", Bank: strings.Repeat("b", 101), ContactNumber: "call me"}
	v := validationErrors(t, request.ValidateExecutive(bad))
	assert.Len(t, v, 3)
	assert.Contains(t, v, "name")
	assert.Contains(t, v, "bank")
	assert.Contains(t, v, "contact_number")
}

func TestValidationErrors_MessageIsSorted(t *testing.T) {
	err := request.ValidationErrors{"units": "bad", "client": "bad"}
	assert.Equal(t, "validation failed: client: bad; units: bad", err.Error())
	assert.ErrorIs(t, err, request.ErrValidation)
}
