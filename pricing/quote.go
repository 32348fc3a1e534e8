/*
Package pricing holds the bank-side arithmetic of a forward cover: quotes,
client rates, invoice figures and forward tenors.

RATES (CLP per USD):
  all-in rate  = spot + forward points      (bank's raw cost)
  client rate  = all-in + markup            (charged to the sales unit)

An administrator asks up to three banks for a quote, compares them and
approves the request with one of them. The comparison is frozen on the
request at approval time so later edits cannot rewrite history.

SEE ALSO:
  - invoice.go: per-unit invoice figures derived from the approved quote
  - tenor.go: forward days and expiry dates
*/
package pricing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// StandardMarkup is the CLP markup pre-filled when the administrator
// leaves the field empty. An explicit 0 is a valid markup.
func StandardMarkup() decimal.Decimal {
	return decimal.NewFromInt(1)
}

// MaxComparedQuotes is how many bank quotes a comparison holds.
const MaxComparedQuotes = 3

// AllInRate returns spot + forward points.
func AllInRate(spot, forwardPoints decimal.Decimal) decimal.Decimal {
	return spot.Add(forwardPoints)
}

// ClientRate returns the all-in rate plus markup.
func ClientRate(spot, forwardPoints, markup decimal.Decimal) decimal.Decimal {
	return AllInRate(spot, forwardPoints).Add(markup)
}

// =============================================================================
// QUOTE
// =============================================================================

// Executive is a bank contact attached to a quote.
type Executive struct {
	Name          string `json:"name"`
	ContactNumber string `json:"contact_number"`
}

// Quote is one bank's forward offer.
type Quote struct {
	Bank          string              `json:"bank"`
	Spot          decimal.Decimal     `json:"spot"`
	ForwardPoints decimal.Decimal     `json:"forward_points"`
	Markup        decimal.NullDecimal `json:"markup"` // absent: not entered
	Executives    []Executive         `json:"executives,omitempty"`
}

// AllIn returns the quote's all-in rate.
func (q Quote) AllIn() decimal.Decimal {
	return AllInRate(q.Spot, q.ForwardPoints)
}

// Client returns the quote's client rate. A missing markup counts as 0.
func (q Quote) Client() decimal.Decimal {
	markup := decimal.Zero
	if q.Markup.Valid {
		markup = q.Markup.Decimal
	}
	return ClientRate(q.Spot, q.ForwardPoints, markup)
}

// Priced reports whether the bank actually quoted (non-zero spot).
func (q Quote) Priced() bool {
	return q.Spot.IsPositive()
}

// WithDefaultMarkup returns q with markup filled in when none was entered.
func (q Quote) WithDefaultMarkup(markup decimal.Decimal) Quote {
	if !q.Markup.Valid {
		q.Markup = decimal.NewNullDecimal(markup)
	}
	return q
}

// RankQuotes orders quotes by ascending client rate. Unpriced quotes go
// last; ties keep their input order. The input slice is not modified.
func RankQuotes(quotes []Quote) []Quote {
	out := make([]Quote, len(quotes))
	copy(out, quotes)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Priced(), out[j].Priced()
		if pi != pj {
			return pi
		}
		return out[i].Client().LessThan(out[j].Client())
	})
	return out
}

// Best returns the cheapest priced quote, or false when none is priced.
func Best(quotes []Quote) (Quote, bool) {
	ranked := RankQuotes(quotes)
	if len(ranked) == 0 || !ranked[0].Priced() {
		return Quote{}, false
	}
	return ranked[0], true
}

// =============================================================================
// COMPARISON - Frozen at approval
// =============================================================================

// Comparison is the set of quotes an administrator weighed, plus the one
// selected.
type Comparison struct {
	Quotes     []Quote   `json:"quotes"`
	Selected   string    `json:"selected"`
	CapturedAt time.Time `json:"captured_at"`
}

// SelectedQuote returns the quote of the selected bank.
func (c Comparison) SelectedQuote() (Quote, bool) {
	for _, q := range c.Quotes {
		if q.Bank == c.Selected {
			return q, true
		}
	}
	return Quote{}, false
}
