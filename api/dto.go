/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types carry
  raw decimals; responses add es-CL formatted strings next to them so the
  frontend does not format money itself.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DECIMALS:
  Amounts are accepted as JSON numbers or strings and returned as strings
  (shopspring/decimal). Optional amounts are null when absent.

DATES:
  Due dates and expiries use YYYY-MM-DD.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hedge-desk/coverage"
	"github.com/warp/hedge-desk/locale"
	"github.com/warp/hedge-desk/portfolio"
	"github.com/warp/hedge-desk/pricing"
	"github.com/warp/hedge-desk/request"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// CoverageRequest is the body of POST /api/coverage.
type CoverageRequest struct {
	Payments          []coverage.Payment  `json:"payments"`
	AppliedPercent    decimal.NullDecimal `json:"applied_percent"`
	ClientRate        decimal.NullDecimal `json:"client_rate"`
	ReferenceRate     decimal.NullDecimal `json:"reference_rate"`
	BusinessAmountUsd decimal.NullDecimal `json:"business_amount_usd"`
}

func (c CoverageRequest) Params() coverage.Params {
	return coverage.Params{
		AppliedPercent:    c.AppliedPercent,
		ClientRate:        c.ClientRate,
		ReferenceRate:     c.ReferenceRate,
		BusinessAmountUsd: c.BusinessAmountUsd,
	}
}

// CoverageDTO is a calculator result with display strings.
type CoverageDTO struct {
	coverage.Result
	OverCovered bool              `json:"over_covered"`
	Level       string            `json:"level"`
	Display     map[string]string `json:"display"`
}

func toCoverageDTO(res coverage.Result) CoverageDTO {
	return CoverageDTO{
		Result:      res,
		OverCovered: res.OverCovered(),
		Level:       string(locale.LevelOf(res.AppliedCoveragePercent)),
		Display: map[string]string{
			"total_business_usd":         locale.FormatCurrency(res.TotalBusinessUsd, locale.CurrencyUSD),
			"total_business_clp":         locale.FormatCurrency(res.TotalBusinessClp, locale.CurrencyCLP),
			"coverage_base_clp":          locale.FormatCurrency(res.CoverageBaseClp, locale.CurrencyCLP),
			"coverage_base_usd":          locale.FormatCurrency(res.CoverageBaseUsd, locale.CurrencyUSD),
			"approved_coverage_base_usd": locale.FormatCurrency(res.ApprovedCoverageBaseUsd, locale.CurrencyUSD),
			"suggested_coverage_percent": locale.FormatPercent(res.SuggestedCoveragePercent),
			"applied_coverage_percent":   locale.FormatPercent(res.AppliedCoveragePercent),
			"covered_exposure_usd":       locale.FormatCurrency(res.CoveredExposureUsd, locale.CurrencyUSD),
			"uncovered_exposure_usd":     locale.FormatCurrency(res.UncoveredExposureUsd, locale.CurrencyUSD),
			"covered_exposure_clp":       locale.FormatCurrency(res.CoveredExposureClp, locale.CurrencyCLP),
			"uncovered_exposure_clp":     locale.FormatCurrency(res.UncoveredExposureClp, locale.CurrencyCLP),
		},
	}
}

// RemainingRequest is the body of POST /api/coverage/remaining. The deal
// total is TotalBusinessClp when given, otherwise business amount times
// the client rate (or reference rate).
type RemainingRequest struct {
	Payments          []coverage.Payment  `json:"payments"`
	TotalBusinessClp  decimal.NullDecimal `json:"total_business_clp"`
	BusinessAmountUsd decimal.NullDecimal `json:"business_amount_usd"`
	ClientRate        decimal.NullDecimal `json:"client_rate"`
	ReferenceRate     decimal.NullDecimal `json:"reference_rate"`
}

func (rr RemainingRequest) Total() decimal.Decimal {
	if rr.TotalBusinessClp.Valid {
		return rr.TotalBusinessClp.Decimal
	}
	return coverage.Calculate(nil, coverage.Params{
		ClientRate:        rr.ClientRate,
		ReferenceRate:     rr.ReferenceRate,
		BusinessAmountUsd: rr.BusinessAmountUsd,
	}).TotalBusinessClp
}

type RemainingDTO struct {
	Payments         []coverage.Payment `json:"payments"`
	Changed          bool               `json:"changed"`
	TotalBusinessClp decimal.Decimal    `json:"total_business_clp"`
	Remaining        decimal.Decimal    `json:"remaining_clp"`
}

// RUTDTO is the response of GET /api/rut/{rut}.
type RUTDTO struct {
	Input      string `json:"input"`
	Valid      bool   `json:"valid"`
	Formatted  string `json:"formatted"`
	CheckDigit string `json:"check_digit,omitempty"`
}

// =============================================================================
// PRICING
// =============================================================================

type RankQuotesRequest struct {
	Quotes []pricing.Quote `json:"quotes"`
}

// QuoteDTO is a quote with its derived rates.
type QuoteDTO struct {
	pricing.Quote
	AllInRate  decimal.Decimal `json:"all_in_rate"`
	ClientRate decimal.Decimal `json:"client_rate"`
	Priced     bool            `json:"priced"`
	Best       bool            `json:"best"`
	Display    string          `json:"display"`
}

func toQuoteDTOs(quotes []pricing.Quote) []QuoteDTO {
	ranked := pricing.RankQuotes(quotes)
	out := make([]QuoteDTO, len(ranked))
	for i, q := range ranked {
		out[i] = QuoteDTO{
			Quote:      q,
			AllInRate:  q.AllIn(),
			ClientRate: q.Client(),
			Priced:     q.Priced(),
			Best:       i == 0 && q.Priced(),
			Display:    locale.FormatRate(q.Client()),
		}
	}
	return out
}

type InvoiceRequest struct {
	BusinessAmountUsd decimal.Decimal `json:"business_amount_usd"`
	ClientRate        decimal.Decimal `json:"client_rate"`
	AllInRate         decimal.Decimal `json:"all_in_rate"`
	Units             int             `json:"units"`
}

type InvoiceDTO struct {
	pricing.Invoice
	Display map[string]string `json:"display"`
}

func toInvoiceDTO(inv pricing.Invoice) InvoiceDTO {
	return InvoiceDTO{
		Invoice: inv,
		Display: map[string]string{
			"total_per_unit_usd": locale.FormatCurrency(inv.TotalPerUnitUsd, locale.CurrencyUSD),
			"net_per_unit_usd":   locale.FormatCurrency(inv.NetPerUnitUsd, locale.CurrencyUSD),
			"total_clp":          locale.FormatCurrency(inv.TotalClp, locale.CurrencyCLP),
		},
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestInput is the body of POST /api/requests and PUT /api/requests/{id}.
// Bank fields are ignored for non-administrators.
type RequestInput struct {
	SellerID string         `json:"seller_id"`
	Status   request.Status `json:"status"`

	Client            string             `json:"client"`
	RUT               string             `json:"rut"`
	BusinessAmountUsd decimal.Decimal    `json:"business_amount_usd"`
	Units             int                `json:"units"`
	InternalNumbers   []string           `json:"internal_numbers"`
	Payments          []coverage.Payment `json:"payments"`

	ReferenceRate   decimal.NullDecimal `json:"reference_rate"`
	ClientRate      decimal.NullDecimal `json:"client_rate"`
	SpotRate        decimal.NullDecimal `json:"spot_rate"`
	ForwardPoints   decimal.NullDecimal `json:"forward_points"`
	AllInRate       decimal.NullDecimal `json:"all_in_rate"`
	CoveragePercent decimal.NullDecimal `json:"coverage_percent"`

	Bank        string `json:"bank"`
	ForwardDays int    `json:"forward_days"`
	Expiry      string `json:"expiry"`
	SIENumber   string `json:"sie_number"`
	Notes       string `json:"notes"`
}

func (in RequestInput) ToDomain() (request.Request, error) {
	r := request.Request{
		SellerID:          in.SellerID,
		Status:            in.Status,
		Client:            in.Client,
		RUT:               in.RUT,
		BusinessAmountUsd: in.BusinessAmountUsd,
		Units:             in.Units,
		InternalNumbers:   in.InternalNumbers,
		Payments:          in.Payments,
		ReferenceRate:     in.ReferenceRate,
		ClientRate:        in.ClientRate,
		SpotRate:          in.SpotRate,
		ForwardPoints:     in.ForwardPoints,
		AllInRate:         in.AllInRate,
		CoveragePercent:   in.CoveragePercent,
		Bank:              in.Bank,
		ForwardDays:       in.ForwardDays,
		SIENumber:         in.SIENumber,
		Notes:             in.Notes,
	}
	expiry, err := parseDate("expiry", in.Expiry)
	if err != nil {
		return request.Request{}, err
	}
	r.Expiry = expiry
	return r, nil
}

// RequestDTO is a stored request with its live coverage projection.
type RequestDTO struct {
	request.Request
	StatusLabel     string            `json:"status_label"`
	Coverage        CoverageDTO       `json:"coverage"`
	FormattedRUT    string            `json:"formatted_rut"`
	Display         map[string]string `json:"display"`
	PaymentsDisplay []PaymentDisplay  `json:"payments_display"`
}

type PaymentDisplay struct {
	ID        string `json:"id"`
	TypeLabel string `json:"type_label"`
	Amount    string `json:"amount"`
}

func toRequestDTO(r request.Request) RequestDTO {
	dto := RequestDTO{
		Request:         r,
		StatusLabel:     r.Status.Label(),
		Coverage:        toCoverageDTO(r.Coverage()),
		FormattedRUT:    locale.FormatRUT(r.RUT),
		Display:         map[string]string{"business_amount_usd": locale.FormatCurrency(r.BusinessAmountUsd, locale.CurrencyUSD)},
		PaymentsDisplay: make([]PaymentDisplay, len(r.Payments)),
	}
	for name, v := range map[string]decimal.NullDecimal{
		"reference_rate": r.ReferenceRate,
		"client_rate":    r.ClientRate,
		"spot_rate":      r.SpotRate,
		"all_in_rate":    r.AllInRate,
	} {
		if v.Valid {
			dto.Display[name] = locale.FormatRate(v.Decimal)
		}
	}
	if r.Expiry != nil {
		dto.Display["expiry"] = r.Expiry.Format(request.DueDateLayout)
	}
	for i, p := range r.Payments {
		dto.PaymentsDisplay[i] = PaymentDisplay{
			ID:        p.ID,
			TypeLabel: p.Type.Label(),
			Amount:    locale.FormatCurrency(p.AmountClp, locale.CurrencyCLP),
		}
	}
	return dto
}

func toRequestDTOs(rs []request.Request) []RequestDTO {
	out := make([]RequestDTO, len(rs))
	for i, r := range rs {
		out[i] = toRequestDTO(r)
	}
	return out
}

// CoverageOverrideRequest is the body of PUT /api/requests/{id}/coverage.
// A null percent clears the override.
type CoverageOverrideRequest struct {
	CoveragePercent decimal.NullDecimal `json:"coverage_percent"`
}

// ApproveRequest is the body of POST /api/requests/{id}/approve.
type ApproveRequest struct {
	Quotes          []pricing.Quote     `json:"quotes"`
	SelectedBank    string              `json:"selected_bank"`
	Expiry          string              `json:"expiry"`
	ForwardDays     int                 `json:"forward_days"`
	SIENumber       string              `json:"sie_number"`
	CoveragePercent decimal.NullDecimal `json:"coverage_percent"`
}

func (a ApproveRequest) ToDomain() (request.Approval, error) {
	expiry, err := parseDate("expiry", a.Expiry)
	if err != nil {
		return request.Approval{}, err
	}
	return request.Approval{
		Quotes:          a.Quotes,
		SelectedBank:    a.SelectedBank,
		Expiry:          expiry,
		ForwardDays:     a.ForwardDays,
		SIENumber:       a.SIENumber,
		CoveragePercent: a.CoveragePercent,
	}, nil
}

// ReasonRequest is the body of reject and void.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// =============================================================================
// PORTFOLIO / EXECUTIVES
// =============================================================================

type PortfolioDTO struct {
	portfolio.Summary
	Display map[string]string `json:"display"`
}

func toPortfolioDTO(s portfolio.Summary) PortfolioDTO {
	return PortfolioDTO{
		Summary: s,
		Display: map[string]string{
			"active_covered_usd":          locale.FormatCurrency(s.Active.CoveredUsd, locale.CurrencyUSD),
			"active_weighted_client_rate": locale.FormatRate(s.Active.WeightedClientRate),
			"all_covered_usd":             locale.FormatCurrency(s.All.CoveredUsd, locale.CurrencyUSD),
			"all_weighted_client_rate":    locale.FormatRate(s.All.WeightedClientRate),
		},
	}
}

type ExecutiveRequest struct {
	Name          string `json:"name"`
	Bank          string `json:"bank"`
	ContactNumber string `json:"contact_number"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(request.DueDateLayout, s)
	if err != nil {
		return nil, request.ValidationErrors{field: fmt.Sprintf("must be a %s date", request.DueDateLayout)}
	}
	return &t, nil
}
