/*
Package portfolio aggregates approved covers into dashboard figures.

PURPOSE:
  The administrator dashboard answers "how much are we hedged, at what
  rate, with whom, for how long?". Every figure is a plain sum or weighted
  average over per-request calculator outputs; nothing here is stored.

BUCKETS:
  Active: approved covers whose expiry is still in the future
  All:    every approved cover

FIGURES PER BUCKET:
  CoveredUsd          sum of coverage.Result.CoveredExposureUsd
  WeightedClientRate  sum(clientRate * covered) / sum(covered)
  BankShares          covered amount and participation % per bank
  ForwardDays         min / avg / max over covers with a tenor
  AvgForwardPoints    mean over covers with non-zero points

UPCOMING EXPIRATIONS:
  Active covers expiring within UpcomingWindow, soonest first.

SEE ALSO:
  - coverage/calculator.go: per-request exposure
  - request/service.go: builds Covers from approved requests
*/
package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hedge-desk/coverage"
)

// UpcomingWindow is how far ahead the dashboard lists expirations.
const UpcomingWindow = 30 * 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// Cover is the slice of an approved request the dashboard needs.
type Cover struct {
	RequestID         string
	Client            string
	Bank              string
	Payments          []coverage.Payment
	AppliedPercent    decimal.NullDecimal
	ClientRate        decimal.Decimal
	BusinessAmountUsd decimal.Decimal
	ForwardDays       int
	ForwardPoints     decimal.Decimal
	Expiry            *time.Time
}

// Result runs the calculator for this cover. The dashboard passes the
// client rate only, so the base conversion also uses the client rate.
func (c Cover) Result() coverage.Result {
	return coverage.Calculate(c.Payments, coverage.Params{
		AppliedPercent:    c.AppliedPercent,
		ClientRate:        coverage.Some(c.ClientRate),
		BusinessAmountUsd: coverage.Some(c.BusinessAmountUsd),
	})
}

// ActiveAt reports whether the cover has not expired at now.
func (c Cover) ActiveAt(now time.Time) bool {
	return c.Expiry != nil && c.Expiry.After(now)
}

// =============================================================================
// SUMMARY
// =============================================================================

type BankShare struct {
	Bank         string          `json:"bank"`
	CoveredUsd   decimal.Decimal `json:"covered_usd"`
	SharePercent decimal.Decimal `json:"share_percent"`
}

type DayStats struct {
	Min int             `json:"min"`
	Avg decimal.Decimal `json:"avg"`
	Max int             `json:"max"`
}

type Bucket struct {
	Count              int             `json:"count"`
	CoveredUsd         decimal.Decimal `json:"covered_usd"`
	WeightedClientRate decimal.Decimal `json:"weighted_client_rate"`
	BankShares         []BankShare     `json:"bank_shares"`
	ForwardDays        DayStats        `json:"forward_days"`
	AvgForwardPoints   decimal.Decimal `json:"avg_forward_points"`
}

type Expiration struct {
	RequestID  string          `json:"request_id"`
	Client     string          `json:"client"`
	Bank       string          `json:"bank"`
	Expiry     time.Time       `json:"expiry"`
	CoveredUsd decimal.Decimal `json:"covered_usd"`
}

type Summary struct {
	AsOf     time.Time    `json:"as_of"`
	Active   Bucket       `json:"active"`
	All      Bucket       `json:"all"`
	Upcoming []Expiration `json:"upcoming"`
}

// Summarize computes the dashboard at now. Each cover's calculator result
// is computed once and shared by both buckets.
func Summarize(covers []Cover, now time.Time) Summary {
	scored := make([]scoredCover, len(covers))
	var active []scoredCover
	for i, c := range covers {
		scored[i] = scoredCover{Cover: c, covered: c.Result().CoveredExposureUsd}
		if c.ActiveAt(now) {
			active = append(active, scored[i])
		}
	}

	horizon := now.Add(UpcomingWindow)
	upcoming := []Expiration{}
	for _, s := range active {
		if !s.Expiry.After(horizon) {
			upcoming = append(upcoming, Expiration{
				RequestID:  s.RequestID,
				Client:     s.Client,
				Bank:       s.Bank,
				Expiry:     *s.Expiry,
				CoveredUsd: s.covered,
			})
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Expiry.Before(upcoming[j].Expiry)
	})

	return Summary{
		AsOf:     now,
		Active:   summarizeBucket(active),
		All:      summarizeBucket(scored),
		Upcoming: upcoming,
	}
}

type scoredCover struct {
	Cover
	covered decimal.Decimal
}

func summarizeBucket(covers []scoredCover) Bucket {
	b := Bucket{
		Count:              len(covers),
		CoveredUsd:         decimal.Zero,
		WeightedClientRate: decimal.Zero,
		BankShares:         []BankShare{},
		ForwardDays:        DayStats{Avg: decimal.Zero},
		AvgForwardPoints:   decimal.Zero,
	}

	weighted := decimal.Zero
	byBank := map[string]decimal.Decimal{}
	var days []int
	points := decimal.Zero
	pointsN := 0

	for _, c := range covers {
		b.CoveredUsd = b.CoveredUsd.Add(c.covered)
		weighted = weighted.Add(c.ClientRate.Mul(c.covered))

		if c.Bank != "" {
			byBank[c.Bank] = byBank[c.Bank].Add(c.covered)
		}
		if c.ForwardDays > 0 {
			days = append(days, c.ForwardDays)
		}
		if !c.ForwardPoints.IsZero() {
			points = points.Add(c.ForwardPoints)
			pointsN++
		}
	}

	if b.CoveredUsd.IsPositive() {
		b.WeightedClientRate = weighted.Div(b.CoveredUsd).Round(4)
	}
	b.BankShares = bankShares(byBank)
	b.ForwardDays = dayStats(days)
	if pointsN > 0 {
		b.AvgForwardPoints = points.Div(decimal.NewFromInt(int64(pointsN))).Round(4)
	}
	return b
}

func bankShares(byBank map[string]decimal.Decimal) []BankShare {
	total := decimal.Zero
	for _, v := range byBank {
		total = total.Add(v)
	}

	shares := make([]BankShare, 0, len(byBank))
	for bank, v := range byBank {
		share := decimal.Zero
		if total.IsPositive() {
			share = v.Div(total).Mul(hundred).Round(2)
		}
		shares = append(shares, BankShare{Bank: bank, CoveredUsd: v, SharePercent: share})
	}
	sort.Slice(shares, func(i, j int) bool {
		if !shares[i].CoveredUsd.Equal(shares[j].CoveredUsd) {
			return shares[i].CoveredUsd.GreaterThan(shares[j].CoveredUsd)
		}
		return shares[i].Bank < shares[j].Bank
	})
	return shares
}

func dayStats(days []int) DayStats {
	if len(days) == 0 {
		return DayStats{Avg: decimal.Zero}
	}
	lo, hi, sum := days[0], days[0], 0
	for _, d := range days {
		lo = min(lo, d)
		hi = max(hi, d)
		sum += d
	}
	return DayStats{
		Min: lo,
		Avg: decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(days)))).Round(2),
		Max: hi,
	}
}
