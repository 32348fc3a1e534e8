package locale

import (
	"strings"
)

// =============================================================================
// RUT - Chilean national ID
// =============================================================================
//
// A RUT is a numeric body plus a check character, written "12.345.678-5".
// The check character is a modulo-11 checksum over the body with weights
// 2,3,4,5,6,7 cycling from the rightmost digit:
//   remainder 0 -> "0", remainder 1 -> "K", otherwise 11 - remainder.

// CleanRUT keeps only digits and k/K.
func CleanRUT(rut string) string {
	var b strings.Builder
	b.Grow(len(rut))
	for _, r := range rut {
		if (r >= '0' && r <= '9') || r == 'k' || r == 'K' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RUTCheckDigit computes the check character for a digits-only body.
// It returns "" when body is empty or contains a non-digit.
func RUTCheckDigit(body string) string {
	if body == "" {
		return ""
	}
	sum, weight := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return ""
		}
		sum += int(c-'0') * weight
		if weight == 7 {
			weight = 2
		} else {
			weight++
		}
	}

	switch rem := sum % 11; rem {
	case 0:
		return "0"
	case 1:
		return "K"
	default:
		return string(rune('0' + 11 - rem))
	}
}

// ValidateRUT reports whether the check character of rut matches its body.
// Formatting characters are ignored and "k" is accepted for "K".
func ValidateRUT(rut string) bool {
	clean := CleanRUT(rut)
	if len(clean) < 2 {
		return false
	}
	body, check := clean[:len(clean)-1], strings.ToUpper(clean[len(clean)-1:])
	want := RUTCheckDigit(body)
	return want != "" && want == check
}

// FormatRUT renders a RUT as "12.345.678-5". It does not validate: input
// shorter than two significant characters is returned cleaned.
func FormatRUT(rut string) string {
	clean := CleanRUT(rut)
	if len(clean) < 2 {
		return clean
	}
	body, check := clean[:len(clean)-1], clean[len(clean)-1:]
	return groupThousands(body) + "-" + check
}
