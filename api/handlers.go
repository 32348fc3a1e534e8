/*
handlers.go - HTTP API handlers for the hedging desk

PURPOSE:
  Exposes the coverage calculator, the request workflow and the portfolio
  dashboard via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to request.Service.

ENDPOINTS:
  Calculator (stateless):
    POST   /api/coverage               Exposure projection
    POST   /api/coverage/remaining     Remaining-balance rule
    GET    /api/rut/{rut}              Validate and format a RUT
    POST   /api/quotes/rank            Rank bank quotes by client rate
    POST   /api/invoice                Per-unit invoice figures

  Requests:
    GET    /api/requests               List (?status=&seller=)
    POST   /api/requests               Create
    GET    /api/requests/{id}          Request with live coverage
    PUT    /api/requests/{id}          Replace deal data
    DELETE /api/requests/{id}          Delete
    PUT    /api/requests/{id}/coverage Applied percent override
    POST   /api/requests/{id}/submit|approve|reject|void

  Dashboard:
    GET    /api/portfolio              Portfolio summary (cached)
    POST   /api/admin/sweep            Run the expiry sweep now

  Executives:
    GET    /api/executives             List (?bank=)
    POST   /api/executives             Add
    DELETE /api/executives/{id}        Remove

ACTOR:
  X-User-Role (SELLER, ADMIN, COORDINATOR) and X-User-ID identify the
  caller. There is no authentication; a reverse proxy is expected to set
  these headers.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Role or ownership does not allow the operation
  - 404: Resource not found
  - 409: Status transition not allowed
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/warp/hedge-desk/coverage"
	"github.com/warp/hedge-desk/locale"
	"github.com/warp/hedge-desk/pricing"
	"github.com/warp/hedge-desk/request"
)

const (
	HeaderUserRole = "X-User-Role"
	HeaderUserID   = "X-User-ID"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter clears all stored data. Scenario loading uses it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *request.Service
	Store     Resetter
	Scheduler *ExpiryScheduler // optional
	Log       logrus.FieldLogger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(svc *request.Service, store Resetter, log logrus.FieldLogger) *Handler {
	return &Handler{Service: svc, Store: store, Log: log}
}

func actorFrom(r *http.Request) request.Actor {
	return request.Actor{
		ID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Role: request.Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderUserRole)))),
	}
}

// Health reports liveness and the last expiry sweep.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.Scheduler != nil {
		last, err := h.Scheduler.Status()
		resp["last_sweep"] = last
		if err != nil {
			resp["last_sweep_error"] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// CALCULATOR HANDLERS
// =============================================================================

// CalculateCoverage runs the calculator on an unsaved request.
// POST /api/coverage
func (h *Handler) CalculateCoverage(w http.ResponseWriter, r *http.Request) {
	var req CoverageRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, toCoverageDTO(coverage.Calculate(req.Payments, req.Params())))
}

// ApplyRemaining recomputes the remaining-balance payment.
// POST /api/coverage/remaining
func (h *Handler) ApplyRemaining(w http.ResponseWriter, r *http.Request) {
	var req RemainingRequest
	if !decode(w, r, &req) {
		return
	}
	if n := coverage.CountRemainingBalance(req.Payments); n > 1 {
		writeError(w, http.StatusBadRequest, "Only one payment may be the remaining balance",
			request.ValidationErrors{"payments": fmt.Sprintf("%d payments flagged as remaining balance", n)})
		return
	}

	total := req.Total()
	payments, changed := coverage.ApplyRemainingBalance(req.Payments, total)
	if payments == nil {
		payments = []coverage.Payment{}
	}
	writeJSON(w, http.StatusOK, RemainingDTO{
		Payments:         payments,
		Changed:          changed,
		TotalBusinessClp: total,
		Remaining:        coverage.RemainingAmount(payments, total),
	})
}

// CheckRUT validates and formats a Chilean tax id.
// GET /api/rut/{rut}
func (h *Handler) CheckRUT(w http.ResponseWriter, r *http.Request) {
	rut := chi.URLParam(r, "rut")
	dto := RUTDTO{
		Input:     rut,
		Valid:     locale.ValidateRUT(rut),
		Formatted: locale.FormatRUT(rut),
	}
	if clean := locale.CleanRUT(rut); len(clean) >= 2 {
		dto.CheckDigit = locale.RUTCheckDigit(clean[:len(clean)-1])
	}
	writeJSON(w, http.StatusOK, dto)
}

// RankQuotes orders bank quotes, cheapest client rate first.
// POST /api/quotes/rank
func (h *Handler) RankQuotes(w http.ResponseWriter, r *http.Request) {
	var req RankQuotesRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Quotes) > pricing.MaxComparedQuotes {
		writeError(w, http.StatusBadRequest, "Too many quotes",
			request.ValidationErrors{"quotes": fmt.Sprintf("cannot compare more than %d quotes", pricing.MaxComparedQuotes)})
		return
	}
	markup := h.Service.Markup()
	quotes := make([]pricing.Quote, len(req.Quotes))
	for i, q := range req.Quotes {
		quotes[i] = q.WithDefaultMarkup(markup)
	}
	writeJSON(w, http.StatusOK, toQuoteDTOs(quotes))
}

// ComputeInvoice returns per-unit invoice figures.
// POST /api/invoice
func (h *Handler) ComputeInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if !decode(w, r, &req) {
		return
	}
	inv := pricing.ComputeInvoice(req.BusinessAmountUsd, req.ClientRate, req.AllInRate, req.Units)
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// ListRequests returns the requests visible to the caller.
// GET /api/requests?status=&seller=
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := request.Filter{
		Status:   request.Status(strings.ToUpper(q.Get("status"))),
		SellerID: q.Get("seller"),
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown status", request.ValidationErrors{"status": string(f.Status)})
		return
	}

	rs, err := h.Service.List(r.Context(), actorFrom(r), f)
	if err != nil {
		h.fail(w, r, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(rs))
}

// CreateRequest stores a new hedging request.
// POST /api/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeRequestInput(w, r)
	if !ok {
		return
	}
	created, err := h.Service.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.fail(w, r, "Failed to create request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(created))
}

// GetRequest returns one request with its coverage projection.
// GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Service.Get(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// UpdateRequest replaces the deal data.
// PUT /api/requests/{id}
func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeRequestInput(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.UpdateData(r.Context(), actorFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, "Failed to update request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// DeleteRequest removes a request.
// DELETE /api/requests/{id}
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCoverage sets or clears the applied coverage percent.
// PUT /api/requests/{id}/coverage
func (h *Handler) UpdateCoverage(w http.ResponseWriter, r *http.Request) {
	var req CoverageOverrideRequest
	if !decode(w, r, &req) {
		return
	}
	updated, err := h.Service.UpdateCoverage(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.CoveragePercent)
	if err != nil {
		h.fail(w, r, "Failed to update coverage", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// SubmitRequest sends a draft to review.
// POST /api/requests/{id}/submit
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Service.Submit(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to submit request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// ApproveRequest closes a cover with the selected bank quote.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if !decode(w, r, &req) {
		return
	}
	approval, err := req.ToDomain()
	if err != nil {
		h.fail(w, r, "Invalid approval", err)
		return
	}
	updated, err := h.Service.Approve(r.Context(), actorFrom(r), chi.URLParam(r, "id"), approval)
	if err != nil {
		h.fail(w, r, "Failed to approve request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// RejectRequest rejects a request in review.
// POST /api/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var req ReasonRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	updated, err := h.Service.Reject(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, r, "Failed to reject request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// VoidRequest cancels a request in any status.
// POST /api/requests/{id}/void
func (h *Handler) VoidRequest(w http.ResponseWriter, r *http.Request) {
	var req ReasonRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	updated, err := h.Service.Void(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, r, "Failed to void request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetPortfolio returns the dashboard summary.
// GET /api/portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).Role.Valid() {
		h.fail(w, r, "Failed to load portfolio", request.ErrForbidden)
		return
	}
	sum, err := h.Service.Portfolio(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load portfolio", err)
		return
	}
	writeJSON(w, http.StatusOK, toPortfolioDTO(sum))
}

// TriggerSweep runs the expiry sweep immediately.
// POST /api/admin/sweep
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsAdmin() {
		h.fail(w, r, "Failed to run sweep", fmt.Errorf("sweep requires %s: %w", request.RoleAdmin, request.ErrForbidden))
		return
	}
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Expiry scheduler is not running", nil)
		return
	}
	sweep := h.Scheduler.RunOnce(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"expired":  toRequestDTOs(sweep.Expired),
		"upcoming": toRequestDTOs(sweep.Upcoming),
	})
}

// =============================================================================
// EXECUTIVE HANDLERS
// =============================================================================

// ListExecutives returns bank contacts, optionally for one bank.
// GET /api/executives?bank=
func (h *Handler) ListExecutives(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).Role.Valid() {
		h.fail(w, r, "Failed to list executives", request.ErrForbidden)
		return
	}
	execs, err := h.Service.ListExecutives(r.Context(), r.URL.Query().Get("bank"))
	if err != nil {
		h.fail(w, r, "Failed to list executives", err)
		return
	}
	if execs == nil {
		execs = []request.Executive{}
	}
	writeJSON(w, http.StatusOK, execs)
}

// CreateExecutive adds a bank contact.
// POST /api/executives
func (h *Handler) CreateExecutive(w http.ResponseWriter, r *http.Request) {
	var req ExecutiveRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.Service.AddExecutive(r.Context(), actorFrom(r), request.Executive{
		Name:          req.Name,
		Bank:          req.Bank,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		h.fail(w, r, "Failed to add executive", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// DeleteExecutive removes a bank contact.
// DELETE /api/executives/{id}
func (h *Handler) DeleteExecutive(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RemoveExecutive(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to remove executive", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeRequestInput(w http.ResponseWriter, r *http.Request) (request.Request, bool) {
	var in RequestInput
	if !decode(w, r, &in) {
		return request.Request{}, false
	}
	req, err := in.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return request.Request{}, false
	}
	return req, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return decode(w, r, v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, request.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, request.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, request.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, request.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && h.Log != nil {
		h.Log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"path":       r.URL.Path,
		}).WithError(err).Error(message)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
		var ve request.ValidationErrors
		if errors.As(err, &ve) {
			resp.Fields = ve
		}
	}
	writeJSON(w, status, resp)
}
