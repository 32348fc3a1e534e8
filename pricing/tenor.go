package pricing

import (
	"slices"
	"time"
)

// StandardTenors are the forward lengths, in days, banks usually quote.
var StandardTenors = []int{7, 15, 30, 60, 90, 120, 180, 360}

// MaxForwardDays is the longest forward a request may carry.
const MaxForwardDays = 360

// IsStandardTenor reports whether days is one of StandardTenors.
func IsStandardTenor(days int) bool {
	return slices.Contains(StandardTenors, days)
}

// ForwardDays counts whole calendar days from from to expiry. Both are
// truncated to their UTC date first. Negative when expiry is earlier.
func ForwardDays(from, expiry time.Time) int {
	a := dateOf(from)
	b := dateOf(expiry)
	return int(b.Sub(a).Hours() / 24)
}

// ExpiryFromDays returns the date days calendar days after from.
func ExpiryFromDays(from time.Time, days int) time.Time {
	return dateOf(from).AddDate(0, 0, days)
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
