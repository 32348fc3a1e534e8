package coverage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hedge-desk/coverage"
)

func flagged(p coverage.Payment) coverage.Payment {
	p.IsRemainingBalance = true
	return p
}

func TestApplyRemainingBalance_FillsGap(t *testing.T) {
	// GIVEN: 10M deal, 3M down payment, financing flagged as remaining
	// WHEN: Applying the rule
	// THEN: Financing becomes 7M

	payments := []coverage.Payment{
		pay(coverage.DownPayment, 3_000_000),
		flagged(pay(coverage.Financing, 0)),
	}

	out, changed := coverage.ApplyRemainingBalance(payments, clp(10_000_000))

	require.True(t, changed)
	assertDec(t, "7000000", out[1].AmountClp, "remaining")
	assert.True(t, coverage.RemainingAmount(out, clp(10_000_000)).IsZero())
	assert.True(t, payments[1].AmountClp.IsZero(), "input must not be mutated")
}

func TestApplyRemainingBalance_Idempotent(t *testing.T) {
	payments := []coverage.Payment{
		pay(coverage.DownPayment, 2_500_000),
		pay(coverage.TradeIn, 1_000_000),
		flagged(pay(coverage.Financing, 123)),
	}
	total := clp(9_000_000)

	once, changed := coverage.ApplyRemainingBalance(payments, total)
	require.True(t, changed)

	twice, changedAgain := coverage.ApplyRemainingBalance(once, total)

	assert.False(t, changedAgain)
	assert.Equal(t, once, twice)
	assertDec(t, "5500000", twice[2].AmountClp, "remaining")
}

func TestApplyRemainingBalance_OthersExceedTotal_FloorsAtZero(t *testing.T) {
	payments := []coverage.Payment{
		pay(coverage.DownPayment, 12_000_000),
		flagged(pay(coverage.Financing, 500)),
	}

	out, changed := coverage.ApplyRemainingBalance(payments, clp(10_000_000))

	assert.True(t, changed)
	assert.True(t, out[1].AmountClp.IsZero())
	assertDec(t, "-2000000", coverage.RemainingAmount(out, clp(10_000_000)), "remaining")
}

func TestApplyRemainingBalance_NoFlagOrNoTotal_NoChange(t *testing.T) {
	plain := []coverage.Payment{pay(coverage.DownPayment, 1_000_000)}
	out, changed := coverage.ApplyRemainingBalance(plain, clp(10_000_000))
	assert.False(t, changed)
	assert.Equal(t, plain, out)

	withFlag := []coverage.Payment{flagged(pay(coverage.DownPayment, 1_000_000))}
	out, changed = coverage.ApplyRemainingBalance(withFlag, clp(0))
	assert.False(t, changed)
	assert.Equal(t, withFlag, out)
}

func TestMarkRemainingBalance_MovesFlagAndRecomputes(t *testing.T) {
	// GIVEN: Payment 2 is flagged
	// WHEN: The user flags payment 0 instead
	// THEN: Only payment 0 is flagged and absorbs the remaining balance

	payments := []coverage.Payment{
		pay(coverage.DownPayment, 100),
		pay(coverage.CashOnDelivery, 4_000_000),
		flagged(pay(coverage.Financing, 6_000_000)),
	}

	out := coverage.MarkRemainingBalance(payments, 0, clp(12_000_000))

	assert.Equal(t, 1, coverage.CountRemainingBalance(out))
	assert.True(t, out[0].IsRemainingBalance)
	assert.False(t, out[2].IsRemainingBalance)
	assertDec(t, "2000000", out[0].AmountClp, "remaining")
	assertDec(t, "6000000", out[2].AmountClp, "former remaining keeps its amount")
	assert.True(t, payments[2].IsRemainingBalance, "input must not be mutated")

	_, changed := coverage.ApplyRemainingBalance(out, clp(12_000_000))
	assert.False(t, changed, "marking leaves the list balanced")
}

func TestMarkRemainingBalance_OutOfRange(t *testing.T) {
	payments := []coverage.Payment{pay(coverage.DownPayment, 100)}
	assert.Equal(t, payments, coverage.MarkRemainingBalance(payments, 3, clp(1000)))
	assert.Equal(t, payments, coverage.MarkRemainingBalance(payments, -1, clp(1000)))
}

func TestClearRemainingBalance_KeepsAmount(t *testing.T) {
	payments := []coverage.Payment{flagged(pay(coverage.Financing, 750))}

	out := coverage.ClearRemainingBalance(payments, 0)

	assert.False(t, out[0].IsRemainingBalance)
	assertDec(t, "750", out[0].AmountClp, "amount")
	assert.Equal(t, 0, coverage.CountRemainingBalance(out))
}
