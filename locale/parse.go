package locale

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// floatPrefix matches the longest leading number in a string, the way a
// lenient form parser reads "12abc" as 12 and "Infinity" as +Inf.
var floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?)`)

// ParseLeadingFloat parses the leading number of s after trimming spaces.
// ok is false when s does not start with a number. Out-of-range values
// parse as ±Inf.
func ParseLeadingFloat(s string) (f float64, ok bool) {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// ValidatePositive reports whether v is a number strictly greater than
// zero. +Inf counts, NaN does not. Strings are parsed leniently (leading
// number); every Go numeric type and decimal.Decimal are accepted.
// Anything else is false.
func ValidatePositive(v any) bool {
	switch n := v.(type) {
	case string:
		f, ok := ParseLeadingFloat(n)
		return ok && isPositive(f)
	case float64:
		return isPositive(n)
	case float32:
		return isPositive(float64(n))
	case int:
		return n > 0
	case int8:
		return n > 0
	case int16:
		return n > 0
	case int32:
		return n > 0
	case int64:
		return n > 0
	case uint:
		return n > 0
	case uint8:
		return n > 0
	case uint16:
		return n > 0
	case uint32:
		return n > 0
	case uint64:
		return n > 0
	case decimal.Decimal:
		return n.IsPositive()
	case decimal.NullDecimal:
		return n.Valid && n.Decimal.IsPositive()
	default:
		return false
	}
}

// ParseAmount reads a figure typed in es-CL form ("1.234.567,89"). Dots
// are dropped as thousands separators and the comma becomes the decimal
// point. Unparseable input yields zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "US$"), "$")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, string(thousandsSep), "")
	s = strings.Replace(s, string(decimalSep), ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isPositive(f float64) bool {
	return !math.IsNaN(f) && f > 0
}
