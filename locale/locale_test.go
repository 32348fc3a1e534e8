package locale_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/hedge-desk/locale"
)

// =============================================================================
// RUT
// =============================================================================

func TestValidateRUT_KnownValid(t *testing.T) {
	valid := []string{
		"12.345.678-5",
		"12345678-5",
		"123456785",
		"11.111.111-1",
		"76.086.428-5",
		"9.068.826-K",
		"9.068.826-k",
		"10.000.013-K",
		"20.000.000-5",
		"30.686.957-4",
	}
	for _, rut := range valid {
		assert.True(t, locale.ValidateRUT(rut), rut)
	}
}

func TestValidateRUT_KnownInvalid(t *testing.T) {
	invalid := []string{
		"12.345.678-9",
		"11.111.111-K",
		"76.086.428-0",
		"9.068.826-1",
		"",
		"5",
		"-",
		"12.345.k78-5", // k inside body
	}
	for _, rut := range invalid {
		assert.False(t, locale.ValidateRUT(rut), rut)
	}
}

func TestRUTCheckDigit(t *testing.T) {
	assert.Equal(t, "5", locale.RUTCheckDigit("12345678"))
	assert.Equal(t, "K", locale.RUTCheckDigit("6"))
	assert.Equal(t, "K", locale.RUTCheckDigit("12345670"))
	assert.Equal(t, "", locale.RUTCheckDigit(""))
	assert.Equal(t, "", locale.RUTCheckDigit("12a"))
}

func TestFormatRUT(t *testing.T) {
	assert.Equal(t, "12.345.678-5", locale.FormatRUT("123456785"))
	assert.Equal(t, "12.345.678-5", locale.FormatRUT(" 12 345 678 - 5 "))
	assert.Equal(t, "9.068.826-k", locale.FormatRUT("9068826k"))
	assert.Equal(t, "1-9", locale.FormatRUT("19"))
	assert.Equal(t, "7", locale.FormatRUT("7"))
	// No validation: a wrong check digit is still formatted.
	assert.Equal(t, "12.345.678-9", locale.FormatRUT("12345678-9"))
}

// =============================================================================
// NUMBERS
// =============================================================================

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in       string
		decimals int32
		want     string
	}{
		{"0", 2, "0,00"},
		{"1", 0, "1"},
		{"999", 2, "999,00"},
		{"1000", 2, "1.000,00"},
		{"1234567.891", 2, "1.234.567,89"},
		{"1234567.895", 2, "1.234.567,90"},
		{"-1234.5", 2, "-1.234,50"},
		{"-0.001", 2, "0,00"},
		{"950.12345", 4, "950,1235"},
		{"10000000", 0, "10.000.000"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, locale.FormatNumber(d(tc.in), tc.decimals), tc.in)
	}
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$1.000,00", locale.FormatCurrency(d("1000"), locale.CurrencyCLP))
	assert.Equal(t, "$10.000.000,00", locale.FormatCurrency(d("10000000"), locale.CurrencyCLP))
	assert.Equal(t, "-$400.000,00", locale.FormatCurrency(d("-400000"), locale.CurrencyCLP))
	assert.Equal(t, "US$ 12.500,00", locale.FormatCurrency(d("12500"), locale.CurrencyUSD))
	assert.Equal(t, "US$ -500,00", locale.FormatCurrency(d("-500"), locale.CurrencyUSD))
	assert.Equal(t, "US$ 0,00", locale.FormatCurrency(decimal.Zero, locale.CurrencyUSD))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "12,50%", locale.FormatPercent(d("12.5")))
	assert.Equal(t, "100,00%", locale.FormatPercent(d("100")))
	assert.Equal(t, "94,12%", locale.FormatPercent(d("94.1176")))
	assert.Equal(t, "0,00%", locale.FormatPercent(decimal.Zero))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "$950,5000", locale.FormatRate(d("950.5")))
	assert.Equal(t, "$1.002,1234", locale.FormatRate(d("1002.1234")))
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, locale.CoverageHigh, locale.LevelOf(d("80")))
	assert.Equal(t, locale.CoverageHigh, locale.LevelOf(d("100")))
	assert.Equal(t, locale.CoverageMedium, locale.LevelOf(d("79.99")))
	assert.Equal(t, locale.CoverageMedium, locale.LevelOf(d("50")))
	assert.Equal(t, locale.CoverageLow, locale.LevelOf(d("49.99")))
}

// =============================================================================
// PARSING / POSITIVE VALIDATION
// =============================================================================

func TestValidatePositive(t *testing.T) {
	truthy := []any{"1", "0.01", " 42 ", "12abc", "1e3", "Infinity", "1e500", math.Inf(1), 1, int64(7), uint8(3), 0.5, float32(2), d("0.001"),
		decimal.NullDecimal{Decimal: d("3"), Valid: true}}
	for _, v := range truthy {
		assert.True(t, locale.ValidatePositive(v), "%#v", v)
	}

	falsy := []any{"", "abc", "0", "-1", "-0.5", 0, -3, 0.0, math.NaN(), math.Inf(-1), "-Infinity", "infinity", decimal.Zero,
		decimal.NullDecimal{}, nil, true, []int{1}}
	for _, v := range falsy {
		assert.False(t, locale.ValidatePositive(v), "%#v", v)
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"1.234.567,89": "1234567.89",
		"1000":         "1000",
		"1.000":        "1000",
		"12,5":         "12.5",
		"$4.000.000":   "4000000",
		"US$ 12.500":   "12500",
		"  ":           "0",
		"abc":          "0",
		"-3,25":        "-3.25",
	}
	for in, want := range cases {
		assert.True(t, d(want).Equal(locale.ParseAmount(in)), "%q -> %s", in, locale.ParseAmount(in))
	}
}

func TestParseLeadingFloat(t *testing.T) {
	f, ok := locale.ParseLeadingFloat("3.5kg")
	assert.True(t, ok)
	assert.Equal(t, 3.5, f)

	_, ok = locale.ParseLeadingFloat("kg3.5")
	assert.False(t, ok)

	f, ok = locale.ParseLeadingFloat("1e500")
	assert.True(t, ok)
	assert.True(t, math.IsInf(f, 1))

	f, ok = locale.ParseLeadingFloat("-Infinity and beyond")
	assert.True(t, ok)
	assert.True(t, math.IsInf(f, -1))
}
