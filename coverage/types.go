/*
Package coverage computes hedging exposure for a USD deal paid in CLP.

PURPOSE:
  A sales request carries a USD deal size and a schedule of CLP payments.
  Some of those payments are "secured" funding (down payment, cash on
  delivery, bank financing) and justify buying forward cover for part of
  the deal. This package turns the payment schedule plus the exchange-rate
  parameters into the exposure figures shown on forms, dashboards and
  export templates.

KEY CONCEPTS IN THIS FILE (types.go):
  - PaymentType: category of a scheduled payment
  - Payment: one scheduled payment within a request
  - Params: rate/percent override bundle passed to the calculator
  - Result: the computed exposure projection (never persisted)

DESIGN PRINCIPLES:
  1. Pure: no I/O, no shared state, safe to call from any goroutine
  2. Precision: all money uses decimal.Decimal
  3. Total: never returns an error, degenerate inputs yield zeros

SEE ALSO:
  - calculator.go: Calculate
  - remaining.go: remaining-balance auto-adjustment
*/
package coverage

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT
// =============================================================================

type PaymentType string

const (
	DownPayment    PaymentType = "DOWN_PAYMENT"
	CashOnDelivery PaymentType = "CASH_ON_DELIVERY"
	Financing      PaymentType = "FINANCING"
	InternalCredit PaymentType = "INTERNAL_CREDIT"
	SpecialProgram PaymentType = "SPECIAL_PROGRAM"
	TradeIn        PaymentType = "TRADE_IN"
)

// PaymentTypes lists every category in display order.
var PaymentTypes = []PaymentType{
	DownPayment, CashOnDelivery, Financing, InternalCredit, SpecialProgram, TradeIn,
}

var paymentLabels = map[PaymentType]string{
	DownPayment:    "Pie",
	CashOnDelivery: "Contra Entrega",
	Financing:      "Financiamiento",
	InternalCredit: "Crédito Interno",
	SpecialProgram: "Programa Especial",
	TradeIn:        "Chatarrización",
}

// Label returns the human label used on forms and exports.
func (t PaymentType) Label() string {
	if l, ok := paymentLabels[t]; ok {
		return l
	}
	return string(t)
}

// Valid reports whether t is a known category.
func (t PaymentType) Valid() bool {
	_, ok := paymentLabels[t]
	return ok
}

// CountsTowardBase reports whether payments of this type are part of the
// coverage base.
func (t PaymentType) CountsTowardBase() bool {
	switch t {
	case DownPayment, CashOnDelivery, Financing:
		return true
	default:
		return false
	}
}

// Payment is one scheduled payment of a request.
type Payment struct {
	ID        string          `json:"id,omitempty"`
	Type      PaymentType     `json:"type"`
	AmountClp decimal.Decimal `json:"amount_clp"`
	DueDate   string          `json:"due_date"` // YYYY-MM-DD, past or future

	// IsRemainingBalance marks the payment whose amount is derived from the
	// deal total. At most one payment per request carries it.
	IsRemainingBalance bool   `json:"is_remaining_balance"`
	Notes              string `json:"notes,omitempty"`
}

// amount returns the payment amount with negatives coerced to zero.
func (p Payment) amount() decimal.Decimal {
	if p.AmountClp.IsNegative() {
		return decimal.Zero
	}
	return p.AmountClp
}

// =============================================================================
// CALCULATOR INPUT / OUTPUT
// =============================================================================

// Params bundles the optional calculator inputs. An invalid (absent)
// NullDecimal means "not provided".
type Params struct {
	// AppliedPercent overrides the suggested percent when present.
	AppliedPercent decimal.NullDecimal

	// ClientRate is the negotiated rate (CLP per USD), known after approval.
	ClientRate decimal.NullDecimal

	// ReferenceRate is the indicative rate entered with the request.
	ReferenceRate decimal.NullDecimal

	BusinessAmountUsd decimal.NullDecimal
}

// Result is the exposure projection for one request. It has no identity
// and is recomputed whenever an input changes.
type Result struct {
	TotalBusinessUsd decimal.Decimal `json:"total_business_usd"`
	TotalBusinessClp decimal.Decimal `json:"total_business_clp"`

	CoverageBaseClp decimal.Decimal `json:"coverage_base_clp"`
	// CoverageBaseUsd converts with the reference-preferring rate.
	CoverageBaseUsd decimal.Decimal `json:"coverage_base_usd"`
	// ApprovedCoverageBaseUsd converts with the client-preferring rate.
	ApprovedCoverageBaseUsd decimal.Decimal `json:"approved_coverage_base_usd"`

	SuggestedCoveragePercent decimal.Decimal `json:"suggested_coverage_percent"`
	AppliedCoveragePercent   decimal.Decimal `json:"applied_coverage_percent"`

	CoveredExposureUsd   decimal.Decimal `json:"covered_exposure_usd"`
	UncoveredExposureUsd decimal.Decimal `json:"uncovered_exposure_usd"`
	CoveredExposureClp   decimal.Decimal `json:"covered_exposure_clp"`
	UncoveredExposureClp decimal.Decimal `json:"uncovered_exposure_clp"`
}

// OverCovered reports whether the covered amount exceeds the deal size.
// Display code flags this through the sign of UncoveredExposureUsd.
func (r Result) OverCovered() bool {
	return r.UncoveredExposureUsd.IsNegative()
}

// Zero returns a result with every field set to decimal zero.
func Zero() Result {
	return Result{
		TotalBusinessUsd:         decimal.Zero,
		TotalBusinessClp:         decimal.Zero,
		CoverageBaseClp:          decimal.Zero,
		CoverageBaseUsd:          decimal.Zero,
		ApprovedCoverageBaseUsd:  decimal.Zero,
		SuggestedCoveragePercent: decimal.Zero,
		AppliedCoveragePercent:   decimal.Zero,
		CoveredExposureUsd:       decimal.Zero,
		UncoveredExposureUsd:     decimal.Zero,
		CoveredExposureClp:       decimal.Zero,
		UncoveredExposureClp:     decimal.Zero,
	}
}

// =============================================================================
// NULLABLE HELPERS
// =============================================================================

// Some wraps a value as a present optional.
func Some(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// SomeFloat wraps a float as a present optional. NaN and ±Inf are absent.
func SomeFloat(f float64) decimal.NullDecimal {
	if !finite(f) {
		return decimal.NullDecimal{}
	}
	return Some(decimal.NewFromFloat(f))
}

// None is the absent optional.
func None() decimal.NullDecimal {
	return decimal.NullDecimal{}
}
