/*
calculator.go - Coverage calculation engine

PURPOSE:
  Converts a payment schedule and exchange-rate parameters into hedging
  exposure figures. This is the only place where the exposure arithmetic
  lives; forms, dashboards and exports all read its Result.

ALGORITHM:
  1. TotalBusinessClp  = round(businessUsd * effectiveRate)
  2. CoverageBaseClp   = sum of DOWN_PAYMENT, CASH_ON_DELIVERY, FINANCING
  3. Suggested %       = clamp(base / total * 100, 0, 100), 0 if total is 0
  4. Applied %         = override, else suggested
  5. CoverageBaseUsd   = round(baseClp / baseRate)
  6. CoveredUsd        = floor(baseClp / baseRate * applied / 100 / 1000) * 1000
                         (from the unrounded base, exact)
  7. UncoveredUsd      = businessUsd - coveredUsd (not clamped)
  8. CLP mirrors       = USD figures * effectiveRate

RATE SELECTION (two different preferences, both intentional):
  effectiveRate = clientRate, else referenceRate
  baseRate      = referenceRate, else clientRate

  Before approval only the reference rate exists. After approval the
  negotiated client rate drives the final exposure conversion, but the
  base-in-USD figure shown when the percent was suggested must stay
  anchored on the reference rate.

DEGENERATE INPUTS:
  Absent or non-positive rates count as missing. Absent or non-positive
  business amount yields Zero(). Negative payment amounts count as 0.
  Every division checks its denominator.

EXAMPLE:
  payments: DOWN_PAYMENT 4.000.000, FINANCING 6.000.000
  business: US$ 12.500, reference rate: 800
  -> total CLP 10.000.000, suggested 100%, base US$ 12.500,
     covered US$ 12.000, uncovered US$ 500

SEE ALSO:
  - types.go: Params, Result
  - remaining.go: keeps the remaining-balance payment in sync
*/
package coverage

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// Calculate computes the coverage projection for a payment schedule.
// It never fails: degenerate inputs produce zero figures.
func Calculate(payments []Payment, params Params) Result {
	businessUsd := positive(params.BusinessAmountUsd)
	if businessUsd.IsZero() {
		return Zero()
	}

	clientRate := positive(params.ClientRate)
	referenceRate := positive(params.ReferenceRate)

	// Intentional asymmetry, see RATE SELECTION above. Do not collapse
	// these into a single rate.
	effectiveRate := firstNonZero(clientRate, referenceRate)
	baseRate := firstNonZero(referenceRate, clientRate)

	totalClp := businessUsd.Mul(effectiveRate).Round(0)
	baseClp := Base(payments)

	suggested := decimal.Zero
	if totalClp.IsPositive() {
		suggested = clamp(baseClp.Div(totalClp).Mul(hundred), decimal.Zero, hundred)
	}

	applied := suggested
	if params.AppliedPercent.Valid {
		applied = params.AppliedPercent.Decimal
	}

	baseUsd := divOrZero(baseClp, baseRate).Round(0)
	approvedBaseUsd := divOrZero(baseClp, effectiveRate).Round(0)

	// Floored from the exact base, not the rounded display figure.
	covered := floorThousands(baseClp.Mul(applied), baseRate.Mul(hundred))
	uncovered := businessUsd.Sub(covered)

	return Result{
		TotalBusinessUsd:         businessUsd,
		TotalBusinessClp:         totalClp,
		CoverageBaseClp:          baseClp.Round(0),
		CoverageBaseUsd:          baseUsd,
		ApprovedCoverageBaseUsd:  approvedBaseUsd,
		SuggestedCoveragePercent: suggested.Round(2),
		AppliedCoveragePercent:   applied,
		CoveredExposureUsd:       covered,
		UncoveredExposureUsd:     uncovered,
		CoveredExposureClp:       covered.Mul(effectiveRate).Round(0),
		UncoveredExposureClp:     uncovered.Mul(effectiveRate).Round(0),
	}
}

// CalculateFloat is Calculate for callers holding raw float form values.
// NaN, ±Inf and non-positive rates are treated as absent. A negative
// appliedPercent means "no override".
func CalculateFloat(payments []Payment, appliedPercent, clientRate, businessUsd, referenceRate float64) Result {
	params := Params{
		ClientRate:        SomeFloat(clientRate),
		ReferenceRate:     SomeFloat(referenceRate),
		BusinessAmountUsd: SomeFloat(businessUsd),
	}
	if finite(appliedPercent) && appliedPercent >= 0 {
		params.AppliedPercent = SomeFloat(appliedPercent)
	}
	return Calculate(payments, params)
}

// Base sums the amounts of payments that count toward the coverage base.
func Base(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.Type.CountsTowardBase() {
			sum = sum.Add(p.amount())
		}
	}
	return sum
}

// =============================================================================
// HELPERS
// =============================================================================

func positive(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid || !n.Decimal.IsPositive() {
		return decimal.Zero
	}
	return n.Decimal
}

func firstNonZero(a, b decimal.Decimal) decimal.Decimal {
	if !a.IsZero() {
		return a
	}
	return b
}

// floorThousands returns floor(num/den/1000)*1000 without intermediate
// rounding. A zero den gives 0.
func floorThousands(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	q, r := num.QuoRem(den.Mul(thousand), 0)
	if r.Sign()*den.Sign() < 0 {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q.Mul(thousand)
}

func divOrZero(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
