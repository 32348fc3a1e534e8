/*
Package request holds the currency-request aggregate and its lifecycle.

PURPOSE:
  A seller opens a request for a USD deal, lists how the customer pays in
  CLP and proposes a reference rate. An administrator negotiates forward
  cover with up to three banks and approves the request with one of them.
  Coverage figures are never stored: they are recomputed from the payments
  and rates through coverage.Calculate every time they are read.

LIFECYCLE:
  ┌───────┐  submit   ┌───────────┐  approve  ┌──────────┐
  │ DRAFT │ ────────▶ │ IN_REVIEW │ ────────▶ │ APPROVED │
  └───────┘           └───────────┘           └──────────┘
                            │ reject
                            ▼
                      ┌──────────┐
                      │ REJECTED │        any state ──void──▶ VOIDED
                      └──────────┘

KEY CONCEPTS:
  Request:   the aggregate (deal, payments, rates, bank data)
  Actor:     who is acting (role + id), taken from the caller
  Service:   orchestrates the lifecycle against a Store
  Executive: a bank contact used when negotiating quotes

SEE ALSO:
  - workflow.go: transitions and permissions
  - validate.go: form validation
  - service.go: Service
*/
package request

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hedge-desk/coverage"
	"github.com/warp/hedge-desk/portfolio"
	"github.com/warp/hedge-desk/pricing"
)

// =============================================================================
// STATUS AND ROLE
// =============================================================================

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusInReview Status = "IN_REVIEW"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusVoided   Status = "VOIDED"
)

var statusLabels = map[Status]string{
	StatusDraft:    "Borrador",
	StatusInReview: "En revisión",
	StatusApproved: "Aprobada",
	StatusRejected: "Rechazada",
	StatusVoided:   "Anulada",
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

type Role string

const (
	RoleSeller      Role = "SELLER"
	RoleAdmin       Role = "ADMIN"
	RoleCoordinator Role = "COORDINATOR"
)

func (r Role) Valid() bool {
	return r == RoleSeller || r == RoleAdmin || r == RoleCoordinator
}

// Actor is the user performing an operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// =============================================================================
// REQUEST
// =============================================================================

// Request is a currency-hedging request for one vehicle deal.
type Request struct {
	ID       string `json:"id"`
	SellerID string `json:"seller_id"`
	Status   Status `json:"status"`

	// Deal
	Client            string             `json:"client"`
	RUT               string             `json:"rut"`
	BusinessAmountUsd decimal.Decimal    `json:"business_amount_usd"`
	Units             int                `json:"units"`
	InternalNumbers   []string           `json:"internal_numbers"`
	Payments          []coverage.Payment `json:"payments"`

	// Rates. ReferenceRate comes with the request; the rest are set by an
	// administrator once a bank is chosen.
	ReferenceRate   decimal.NullDecimal `json:"reference_rate"`
	ClientRate      decimal.NullDecimal `json:"client_rate"`
	SpotRate        decimal.NullDecimal `json:"spot_rate"`
	ForwardPoints   decimal.NullDecimal `json:"forward_points"`
	AllInRate       decimal.NullDecimal `json:"all_in_rate"`
	CoveragePercent decimal.NullDecimal `json:"coverage_percent"`

	// Forward
	Bank        string     `json:"bank,omitempty"`
	ForwardDays int        `json:"forward_days,omitempty"`
	Expiry      *time.Time `json:"expiry,omitempty"`
	SIENumber   string     `json:"sie_number,omitempty"`

	Comparison *pricing.Comparison `json:"comparison,omitempty"`
	Invoice    *pricing.Invoice    `json:"invoice,omitempty"`

	Notes           string `json:"notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CoverageParams returns the calculator inputs held by the request.
func (r Request) CoverageParams() coverage.Params {
	return coverage.Params{
		AppliedPercent:    r.CoveragePercent,
		ClientRate:        r.ClientRate,
		ReferenceRate:     r.ReferenceRate,
		BusinessAmountUsd: coverage.Some(r.BusinessAmountUsd),
	}
}

// Coverage recomputes the exposure projection.
func (r Request) Coverage() coverage.Result {
	return coverage.Calculate(r.Payments, r.CoverageParams())
}

// TotalBusinessClp is the deal total the remaining-balance payment is
// derived from.
func (r Request) TotalBusinessClp() decimal.Decimal {
	return coverage.Calculate(nil, r.CoverageParams()).TotalBusinessClp
}

// Cover returns the dashboard view of an approved request.
func (r Request) Cover() portfolio.Cover {
	c := portfolio.Cover{
		RequestID:         r.ID,
		Client:            r.Client,
		Bank:              r.Bank,
		Payments:          r.Payments,
		AppliedPercent:    r.CoveragePercent,
		ClientRate:        r.ClientRate.Decimal,
		BusinessAmountUsd: r.BusinessAmountUsd,
		ForwardDays:       r.ForwardDays,
		Expiry:            r.Expiry,
	}
	if r.ForwardPoints.Valid {
		c.ForwardPoints = r.ForwardPoints.Decimal
	}
	return c
}

// Clone returns a deep copy; slices and pointers are not shared.
func (r Request) Clone() Request {
	out := r
	out.InternalNumbers = append([]string(nil), r.InternalNumbers...)
	out.Payments = append([]coverage.Payment(nil), r.Payments...)
	if r.Expiry != nil {
		e := *r.Expiry
		out.Expiry = &e
	}
	if r.Comparison != nil {
		c := *r.Comparison
		c.Quotes = append([]pricing.Quote(nil), r.Comparison.Quotes...)
		out.Comparison = &c
	}
	if r.Invoice != nil {
		inv := *r.Invoice
		out.Invoice = &inv
	}
	return out
}

// =============================================================================
// BANK EXECUTIVE
// =============================================================================

// Executive is a bank contact the administrators call for quotes.
type Executive struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Bank          string    `json:"bank"`
	ContactNumber string    `json:"contact_number"`
	CreatedAt     time.Time `json:"created_at"`
}
