/*
Package locale renders and parses figures the Chilean way and validates
Chilean national IDs (RUT).

NUMBER CONVENTION (es-CL):
  thousands separator "."   decimal separator ","
  FormatNumber(1234567.5, 2)        -> "1.234.567,50"
  FormatCurrency(1000, CurrencyCLP) -> "$1.000,00"
  FormatCurrency(1000, CurrencyUSD) -> "US$ 1.000,00"
  FormatPercent(12.5)               -> "12,50%"

Everything here is pure and allocation-light; the API and export
templates call it once per rendered figure.

SEE ALSO:
  - rut.go: RUT check digit, validation and formatting
  - parse.go: form input parsing and positive-number validation
*/
package locale

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyCLP Currency = "CLP"
	CurrencyUSD Currency = "USD"
)

const (
	thousandsSep = '.'
	decimalSep   = ','
)

// FormatNumber renders d with a fixed number of decimals using es-CL
// separators. Rounding is half away from zero.
func FormatNumber(d decimal.Decimal, decimals int32) string {
	fixed := d.StringFixed(decimals)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.Grow(len(intPart) + len(intPart)/3 + len(fracPart) + 2)
	if neg && !isZeroDigits(intPart+fracPart) {
		b.WriteByte('-')
	}
	b.WriteString(groupThousands(intPart))
	if decimals > 0 {
		b.WriteByte(decimalSep)
		b.WriteString(fracPart)
	}
	return b.String()
}

// FormatCurrency renders an amount with two decimals and a currency prefix:
// "$" for CLP and "US$ " for USD.
func FormatCurrency(d decimal.Decimal, currency Currency) string {
	n := FormatNumber(d, 2)
	if currency == CurrencyUSD {
		return "US$ " + n
	}
	if strings.HasPrefix(n, "-") {
		return "-$" + n[1:]
	}
	return "$" + n
}

// FormatPercent renders a percentage with two decimals and a trailing "%".
// No thousands grouping is applied.
func FormatPercent(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", string(decimalSep), 1) + "%"
}

// FormatRate renders an exchange rate with four decimals, e.g. "$950,1234".
func FormatRate(d decimal.Decimal) string {
	return "$" + FormatNumber(d, 4)
}

// groupThousands inserts separators into a string of digits.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)

	rem := len(digits) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(digits[:rem])
	for i := rem; i < len(digits); i += 3 {
		b.WriteByte(thousandsSep)
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func isZeroDigits(s string) bool {
	for _, r := range s {
		if r != '0' {
			return false
		}
	}
	return true
}

// =============================================================================
// COVERAGE LEVEL - Colour band of a coverage percentage
// =============================================================================

type CoverageLevel string

const (
	CoverageHigh   CoverageLevel = "high"
	CoverageMedium CoverageLevel = "medium"
	CoverageLow    CoverageLevel = "low"
)

var (
	highThreshold   = decimal.NewFromInt(80)
	mediumThreshold = decimal.NewFromInt(50)
)

// LevelOf bands a coverage percentage: >= 80 high, >= 50 medium, else low.
func LevelOf(percent decimal.Decimal) CoverageLevel {
	switch {
	case percent.GreaterThanOrEqual(highThreshold):
		return CoverageHigh
	case percent.GreaterThanOrEqual(mediumThreshold):
		return CoverageMedium
	default:
		return CoverageLow
	}
}
