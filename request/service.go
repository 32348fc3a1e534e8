/*
service.go - Request lifecycle orchestration

PURPOSE:
  Applies permissions, the remaining-balance rule and validation before
  every write, then persists through Store. Coverage is recomputed on read.

WRITE PIPELINE (Create, UpdateData, UpdateCoverage, Approve):
  1. Permission check (role + ownership)
  2. Merge input into the stored request
  3. Recompute the remaining-balance payment
  4. Validate
  5. Save, log, invalidate the portfolio summary

PORTFOLIO CACHE:
  The dashboard summary is cached through SummaryCache. Every write drops
  it; cache failures are logged and never fail the operation. A summary
  computed from a snapshot older than the last invalidation is returned
  but never stored.

EXAMPLE:
  svc := &request.Service{Store: memstore.New(), Log: logger}
  r, err := svc.Create(ctx, seller, draft)
  r, err = svc.Submit(ctx, seller, r.ID)
  r, err = svc.Approve(ctx, admin, r.ID, approval)

SEE ALSO:
  - workflow.go: Next, CanEditData, CanEditCoverage
  - validate.go: Validate
*/
package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/hedge-desk/coverage"
	"github.com/warp/hedge-desk/portfolio"
	"github.com/warp/hedge-desk/pricing"
)

// ErrNoExecutiveStore is returned by executive operations when the service
// was built without an ExecutiveStore.
var ErrNoExecutiveStore = errors.New("executive store not configured")

type Service struct {
	Store      Store
	Executives ExecutiveStore     // optional
	Cache      SummaryCache       // optional
	Log        logrus.FieldLogger // optional
	Now        func() time.Time   // optional, defaults to time.Now

	// DefaultMarkup fills quotes entered without a markup. Optional,
	// defaults to pricing.StandardMarkup.
	DefaultMarkup decimal.NullDecimal

	cacheMu  sync.Mutex
	cacheGen uint64 // bumped by every invalidation
}

// Markup returns the markup applied to quotes without one.
func (s *Service) Markup() decimal.Decimal {
	if s.DefaultMarkup.Valid {
		return s.DefaultMarkup.Decimal
	}
	return pricing.StandardMarkup()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) log() logrus.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

// =============================================================================
// CREATE / READ
// =============================================================================

// Create stores a new request. Sellers always own what they create; the
// initial status is DRAFT unless IN_REVIEW is asked for.
func (s *Service) Create(ctx context.Context, actor Actor, in Request) (Request, error) {
	if !actor.Role.Valid() {
		return Request{}, fmt.Errorf("unknown role %q: %w", actor.Role, ErrForbidden)
	}

	r := in.Clone()
	r.ID = uuid.NewString()
	if actor.Role == RoleSeller || r.SellerID == "" {
		r.SellerID = actor.ID
	}
	switch r.Status {
	case "":
		r.Status = StatusDraft
	case StatusDraft, StatusInReview:
	default:
		return Request{}, ValidationErrors{"status": "new requests start as DRAFT or IN_REVIEW"}
	}
	if !CanEditCoverage(actor.Role, r.Status) {
		r.CoveragePercent = decimal.NullDecimal{}
	}
	r.Comparison, r.Invoice, r.RejectionReason = nil, nil, ""

	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now

	if err := s.write(ctx, &r, "created", actor); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Get returns a request the actor may see.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (Request, error) {
	r, err := s.Store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !CanView(actor, r) {
		return Request{}, fmt.Errorf("request %s: %w", id, ErrForbidden)
	}
	return r, nil
}

// List returns the requests the actor may see. Sellers only get their own.
func (s *Service) List(ctx context.Context, actor Actor, f Filter) ([]Request, error) {
	if !actor.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", actor.Role, ErrForbidden)
	}
	if actor.Role == RoleSeller {
		f.SellerID = actor.ID
	}
	return s.Store.List(ctx, f)
}

// Coverage recomputes the exposure figures of a stored request.
func (s *Service) Coverage(ctx context.Context, actor Actor, id string) (coverage.Result, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return coverage.Result{}, err
	}
	return r.Coverage(), nil
}

// =============================================================================
// UPDATE
// =============================================================================

// UpdateData replaces the deal data and payments. Bank fields are only
// taken from administrators.
func (s *Service) UpdateData(ctx context.Context, actor Actor, id string, in Request) (Request, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return Request{}, err
	}
	if !CanEditData(actor.Role, r.Status) {
		return Request{}, fmt.Errorf("%s cannot edit a %s request: %w", actor.Role, r.Status, ErrForbidden)
	}

	in = in.Clone()
	r.Client = in.Client
	r.RUT = in.RUT
	r.BusinessAmountUsd = in.BusinessAmountUsd
	r.Units = in.Units
	r.InternalNumbers = in.InternalNumbers
	r.Payments = in.Payments
	r.ReferenceRate = in.ReferenceRate
	r.Notes = in.Notes
	if actor.IsAdmin() {
		r.ClientRate = in.ClientRate
		r.SpotRate = in.SpotRate
		r.ForwardPoints = in.ForwardPoints
		r.AllInRate = in.AllInRate
		r.Bank = in.Bank
		r.ForwardDays = in.ForwardDays
		r.Expiry = in.Expiry
		r.SIENumber = in.SIENumber
	}
	r.UpdatedAt = s.now()

	if err := s.write(ctx, &r, "updated", actor); err != nil {
		return Request{}, err
	}
	return r, nil
}

// UpdateCoverage sets or clears the applied coverage percent override.
func (s *Service) UpdateCoverage(ctx context.Context, actor Actor, id string, percent decimal.NullDecimal) (Request, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return Request{}, err
	}
	if !CanEditCoverage(actor.Role, r.Status) {
		return Request{}, fmt.Errorf("%s cannot change coverage of a %s request: %w", actor.Role, r.Status, ErrForbidden)
	}

	r.CoveragePercent = percent
	r.UpdatedAt = s.now()

	if err := s.write(ctx, &r, "coverage updated", actor); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Delete removes a request. Administrators may delete any request; sellers
// only their own drafts.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && !(actor.Role == RoleSeller && r.Status == StatusDraft) {
		return fmt.Errorf("%s cannot delete a %s request: %w", actor.Role, r.Status, ErrForbidden)
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}

	s.log().WithFields(logrus.Fields{"request_id": id, "actor": actor.ID}).Info("request deleted")
	s.invalidate(ctx)
	return nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func (s *Service) Submit(ctx context.Context, actor Actor, id string) (Request, error) {
	return s.transition(ctx, actor, id, ActionSubmit, nil)
}

func (s *Service) Reject(ctx context.Context, actor Actor, id, reason string) (Request, error) {
	return s.transition(ctx, actor, id, ActionReject, func(r *Request) error {
		r.RejectionReason = strings.TrimSpace(reason)
		return nil
	})
}

func (s *Service) Void(ctx context.Context, actor Actor, id, reason string) (Request, error) {
	return s.transition(ctx, actor, id, ActionVoid, func(r *Request) error {
		if reason = strings.TrimSpace(reason); reason != "" {
			r.RejectionReason = reason
		}
		return nil
	})
}

// Approval is what an administrator enters when closing a cover with a
// bank.
type Approval struct {
	Quotes       []pricing.Quote
	SelectedBank string

	// Either Expiry or ForwardDays; Expiry wins when both are set.
	Expiry      *time.Time
	ForwardDays int

	SIENumber       string
	CoveragePercent decimal.NullDecimal
}

// Approve closes the request with the selected bank quote. The comparison
// is frozen on the request; rates and invoice figures derive from the
// selected quote.
func (s *Service) Approve(ctx context.Context, actor Actor, id string, a Approval) (Request, error) {
	return s.transition(ctx, actor, id, ActionApprove, func(r *Request) error {
		now := s.now()
		markup := s.Markup()
		q, days, expiry, err := checkApproval(a, markup, now)
		if err != nil {
			return err
		}

		quotes := make([]pricing.Quote, len(a.Quotes))
		for i, aq := range a.Quotes {
			quotes[i] = aq.WithDefaultMarkup(markup)
		}
		r.Comparison = &pricing.Comparison{Quotes: quotes, Selected: q.Bank, CapturedAt: now}

		r.Bank = q.Bank
		r.SpotRate = coverage.Some(q.Spot)
		r.ForwardPoints = coverage.Some(q.ForwardPoints)
		r.AllInRate = coverage.Some(q.AllIn())
		r.ClientRate = coverage.Some(q.Client())
		r.ForwardDays = days
		r.Expiry = &expiry
		if a.SIENumber != "" {
			r.SIENumber = a.SIENumber
		}
		if a.CoveragePercent.Valid {
			r.CoveragePercent = a.CoveragePercent
		}

		inv := pricing.ComputeInvoice(r.BusinessAmountUsd, q.Client(), q.AllIn(), r.Units)
		r.Invoice = &inv
		return nil
	})
}

func checkApproval(a Approval, markup decimal.Decimal, now time.Time) (pricing.Quote, int, time.Time, error) {
	v := ValidationErrors{}

	switch {
	case len(a.Quotes) == 0:
		v.add("quotes", "at least one bank quote is required")
	case len(a.Quotes) > pricing.MaxComparedQuotes:
		v.add("quotes", fmt.Sprintf("cannot compare more than %d quotes", pricing.MaxComparedQuotes))
	}

	var selected pricing.Quote
	found := false
	for _, q := range a.Quotes {
		if q.Bank == a.SelectedBank {
			selected, found = q.WithDefaultMarkup(markup), true
			break
		}
	}
	switch {
	case !found:
		v.add("selected_bank", "selected bank is not among the quotes")
	case !selected.Priced():
		v.add("selected_bank", "selected bank has no spot rate")
	case !selected.AllIn().IsPositive():
		v.add("selected_bank", "all-in rate must be greater than 0")
	}

	days := a.ForwardDays
	var expiry time.Time
	if a.Expiry != nil {
		expiry = a.Expiry.UTC()
		days = pricing.ForwardDays(now, expiry)
	} else {
		expiry = pricing.ExpiryFromDays(now, days)
	}
	if days < 1 || days > pricing.MaxForwardDays {
		v.add("forward_days", fmt.Sprintf("forward must run between 1 and %d days", pricing.MaxForwardDays))
	}

	return selected, days, expiry, v.err()
}

// transition applies action, runs mutate on the loaded request, then goes
// through the common write pipeline.
func (s *Service) transition(ctx context.Context, actor Actor, id string, action Action, mutate func(*Request) error) (Request, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return Request{}, err
	}

	next, err := Next(actor.Role, r.Status, action)
	if err != nil {
		return Request{}, err
	}
	if mutate != nil {
		if err := mutate(&r); err != nil {
			return Request{}, err
		}
	}
	r.Status = next
	r.UpdatedAt = s.now()

	if err := s.write(ctx, &r, string(action), actor); err != nil {
		return Request{}, err
	}
	return r, nil
}

// write runs the shared tail of every mutation.
func (s *Service) write(ctx context.Context, r *Request, event string, actor Actor) error {
	for i := range r.Payments {
		if r.Payments[i].ID == "" {
			r.Payments[i].ID = uuid.NewString()
		}
	}
	r.Client = strings.TrimSpace(r.Client)
	r.Notes = strings.TrimSpace(r.Notes)
	r.SIENumber = strings.TrimSpace(r.SIENumber)

	if payments, changed := coverage.ApplyRemainingBalance(r.Payments, r.TotalBusinessClp()); changed {
		r.Payments = payments
	}

	if err := Validate(*r); err != nil {
		return err
	}
	if err := s.Store.Save(ctx, *r); err != nil {
		return fmt.Errorf("save request %s: %w", r.ID, err)
	}

	s.log().WithFields(logrus.Fields{
		"request_id": r.ID,
		"status":     r.Status,
		"actor":      actor.ID,
		"role":       actor.Role,
	}).Infof("request %s", event)
	s.invalidate(ctx)
	return nil
}

// =============================================================================
// PORTFOLIO
// =============================================================================

// Portfolio returns the dashboard summary over approved requests.
func (s *Service) Portfolio(ctx context.Context) (portfolio.Summary, error) {
	if s.Cache != nil {
		sum, ok, err := s.Cache.Load(ctx)
		if err != nil {
			s.log().WithError(err).Warn("portfolio cache load failed")
		} else if ok {
			return sum, nil
		}
	}

	s.cacheMu.Lock()
	gen := s.cacheGen
	s.cacheMu.Unlock()

	approved, err := s.Store.List(ctx, Filter{Status: StatusApproved})
	if err != nil {
		return portfolio.Summary{}, fmt.Errorf("list approved: %w", err)
	}
	covers := make([]portfolio.Cover, len(approved))
	for i, r := range approved {
		covers[i] = r.Cover()
	}
	sum := portfolio.Summarize(covers, s.now())

	if s.Cache != nil {
		s.storeSummary(ctx, gen, sum)
	}
	return sum, nil
}

// storeSummary caches sum unless a write invalidated the cache after the
// snapshot behind it was taken.
func (s *Service) storeSummary(ctx context.Context, gen uint64, sum portfolio.Summary) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheGen != gen {
		s.log().Debug("portfolio changed while summarizing, not caching")
		return
	}
	if err := s.Cache.Store(ctx, sum); err != nil {
		s.log().WithError(err).Warn("portfolio cache store failed")
	}
}

// Sweep is the result of one expiry pass.
type Sweep struct {
	// Expired covers crossed their expiry in (since, now].
	Expired []Request
	// Upcoming covers expire within portfolio.UpcomingWindow of now.
	Upcoming []Request
}

// SweepExpirations finds approved covers that expired since the previous
// pass and those about to expire. The summary cache is dropped when any
// cover changed from active to expired.
func (s *Service) SweepExpirations(ctx context.Context, since, now time.Time) (Sweep, error) {
	approved, err := s.Store.List(ctx, Filter{Status: StatusApproved})
	if err != nil {
		return Sweep{}, fmt.Errorf("list approved: %w", err)
	}

	var sweep Sweep
	horizon := now.Add(portfolio.UpcomingWindow)
	for _, r := range approved {
		if r.Expiry == nil {
			continue
		}
		switch exp := *r.Expiry; {
		case exp.After(since) && !exp.After(now):
			sweep.Expired = append(sweep.Expired, r)
		case exp.After(now) && !exp.After(horizon):
			sweep.Upcoming = append(sweep.Upcoming, r)
		}
	}

	if len(sweep.Expired) > 0 {
		s.invalidate(ctx)
	}
	return sweep, nil
}

func (s *Service) invalidate(ctx context.Context) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		s.log().WithError(err).Warn("portfolio cache invalidate failed")
	}
}

// =============================================================================
// BANK EXECUTIVES
// =============================================================================

func (s *Service) AddExecutive(ctx context.Context, actor Actor, e Executive) (Executive, error) {
	if s.Executives == nil {
		return Executive{}, ErrNoExecutiveStore
	}
	if !actor.IsAdmin() {
		return Executive{}, fmt.Errorf("managing executives requires %s: %w", RoleAdmin, ErrForbidden)
	}

	e.ID = uuid.NewString()
	e.Name = strings.TrimSpace(e.Name)
	e.Bank = strings.TrimSpace(e.Bank)
	e.ContactNumber = strings.TrimSpace(e.ContactNumber)
	e.CreatedAt = s.now()
	if err := ValidateExecutive(e); err != nil {
		return Executive{}, err
	}
	if err := s.Executives.SaveExecutive(ctx, e); err != nil {
		return Executive{}, fmt.Errorf("save executive: %w", err)
	}

	s.log().WithFields(logrus.Fields{"executive_id": e.ID, "bank": e.Bank}).Info("executive added")
	return e, nil
}

func (s *Service) ListExecutives(ctx context.Context, bank string) ([]Executive, error) {
	if s.Executives == nil {
		return nil, ErrNoExecutiveStore
	}
	return s.Executives.ListExecutives(ctx, bank)
}

func (s *Service) RemoveExecutive(ctx context.Context, actor Actor, id string) error {
	if s.Executives == nil {
		return ErrNoExecutiveStore
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("managing executives requires %s: %w", RoleAdmin, ErrForbidden)
	}
	if err := s.Executives.DeleteExecutive(ctx, id); err != nil {
		return err
	}
	s.log().WithField("executive_id", id).Info("executive removed")
	return nil
}
