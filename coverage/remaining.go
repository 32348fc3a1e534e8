package coverage

import "github.com/shopspring/decimal"

// =============================================================================
// REMAINING BALANCE - Keeps the flagged payment equal to what is left
// =============================================================================
//
// One payment per request may be flagged IsRemainingBalance. Its amount is
// not an input: it is always total - sum(other payments), floored at 0.
// Callers re-apply the rule whenever the deal total or any other payment
// changes. Applying it to an already balanced list changes nothing, so it
// can be wired to reactive state without update loops.

// ApplyRemainingBalance recomputes the flagged payment's amount. It returns
// a new slice and whether the flagged amount changed. The input slice is
// never modified. With no flagged payment or a non-positive total the
// payments are returned as-is.
func ApplyRemainingBalance(payments []Payment, totalBusinessClp decimal.Decimal) ([]Payment, bool) {
	idx := remainingIndex(payments)
	if idx < 0 || !totalBusinessClp.IsPositive() {
		return payments, false
	}

	want := balanceFor(payments, idx, totalBusinessClp)
	if payments[idx].AmountClp.Equal(want) {
		return payments, false
	}

	out := clonePayments(payments)
	out[idx].AmountClp = want
	return out, true
}

// MarkRemainingBalance flags payments[index] as the remaining-balance
// payment, clears the flag everywhere else and recomputes its amount.
// An out-of-range index returns the payments unchanged.
func MarkRemainingBalance(payments []Payment, index int, totalBusinessClp decimal.Decimal) []Payment {
	if index < 0 || index >= len(payments) {
		return payments
	}
	out := clonePayments(payments)
	for i := range out {
		out[i].IsRemainingBalance = i == index
	}
	out[index].AmountClp = balanceFor(out, index, totalBusinessClp)
	return out
}

// ClearRemainingBalance removes the flag from payments[index]. The amount
// is kept and becomes a regular input again.
func ClearRemainingBalance(payments []Payment, index int) []Payment {
	if index < 0 || index >= len(payments) {
		return payments
	}
	out := clonePayments(payments)
	out[index].IsRemainingBalance = false
	return out
}

// RemainingAmount is what is still unassigned: total - sum(all payments).
// Negative when the schedule exceeds the deal.
func RemainingAmount(payments []Payment, totalBusinessClp decimal.Decimal) decimal.Decimal {
	return totalBusinessClp.Sub(Total(payments))
}

// Total sums every payment amount regardless of type.
func Total(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.amount())
	}
	return sum
}

// CountRemainingBalance returns how many payments carry the flag.
func CountRemainingBalance(payments []Payment) int {
	n := 0
	for _, p := range payments {
		if p.IsRemainingBalance {
			n++
		}
	}
	return n
}

func remainingIndex(payments []Payment) int {
	for i, p := range payments {
		if p.IsRemainingBalance {
			return i
		}
	}
	return -1
}

func balanceFor(payments []Payment, idx int, total decimal.Decimal) decimal.Decimal {
	others := decimal.Zero
	for i, p := range payments {
		if i != idx {
			others = others.Add(p.amount())
		}
	}
	return decimal.Max(decimal.Zero, total.Sub(others))
}

func clonePayments(payments []Payment) []Payment {
	out := make([]Payment, len(payments))
	copy(out, payments)
	return out
}
