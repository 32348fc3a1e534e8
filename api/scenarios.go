/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	hedging requests for demos. Each scenario goes through request.Service,
	so data is validated and the remaining-balance rule is applied exactly
	as it is for real users.

AVAILABLE SCENARIOS:

	pipeline:       Drafts and requests in review from two sellers
	approved-book:  Approved covers across three banks, one expiring soon
	full-desk:      Both of the above plus a rejected and a voided request

HOW SCENARIOS WORK:
 1. Reset the store (requests and executives)
 2. Add bank executives as the admin
 3. Create requests as sellers
 4. Submit, approve, reject or void as needed

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "approved-book"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: request handlers
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/hedge-desk/coverage"
	"github.com/warp/hedge-desk/pricing"
	"github.com/warp/hedge-desk/request"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "pipeline",
		Name:        "Pipeline",
		Description: "Drafts and requests in review from two sellers",
	},
	{
		ID:          "approved-book",
		Name:        "Approved Book",
		Description: "Approved covers with Banco de Chile, Santander and BCI, one expiring within 30 days",
	},
	{
		ID:          "full-desk",
		Name:        "Full Desk",
		Description: "Pipeline and approved book plus rejected and voided requests",
	},
}

var (
	demoAdmin   = request.Actor{ID: "admin-1", Role: request.RoleAdmin}
	demoSellerA = request.Actor{ID: "vendedor-1", Role: request.RoleSeller}
	demoSellerB = request.Actor{ID: "vendedor-2", Role: request.RoleSeller}
)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	loaders := map[string]func(context.Context) error{
		"pipeline":      h.loadPipelineScenario,
		"approved-book": h.loadApprovedBookScenario,
		"full-desk":     h.loadFullDeskScenario,
	}
	load, ok := loaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	if h.Log != nil {
		h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	// Drop the cached summary along with the data.
	if h.Service.Cache != nil {
		_ = h.Service.Cache.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadPipelineScenario(ctx context.Context) error {
	if err := h.seedExecutives(ctx); err != nil {
		return err
	}

	// Pie + saldo: the remaining balance is derived from the deal total.
	_, err := h.Service.Create(ctx, demoSellerA, demoRequest("Transportes Andes SpA", "76.086.428-5", 120000, 3, "910",
		payment(coverage.DownPayment, 20_000_000, "2025-07-15", false),
		payment(coverage.CashOnDelivery, 0, "2025-09-30", true),
	))
	if err != nil {
		return fmt.Errorf("pipeline draft: %w", err)
	}

	r, err := h.Service.Create(ctx, demoSellerA, demoRequest("Minera Los Pinos Ltda", "77.777.777-7", 250000, 5, "905",
		payment(coverage.DownPayment, 50_000_000, "2025-08-01", false),
		payment(coverage.Financing, 100_000_000, "2025-12-01", false),
		payment(coverage.CashOnDelivery, 0, "2025-10-15", true),
	))
	if err != nil {
		return fmt.Errorf("pipeline review: %w", err)
	}
	if _, err := h.Service.Submit(ctx, demoSellerA, r.ID); err != nil {
		return err
	}

	r, err = h.Service.Create(ctx, demoSellerB, demoRequest("Agrícola Valle Central", "11.111.111-1", 60000, 1, "920",
		payment(coverage.CashOnDelivery, 55_200_000, "2025-09-01", false),
	))
	if err != nil {
		return fmt.Errorf("pipeline seller b: %w", err)
	}
	_, err = h.Service.Submit(ctx, demoSellerB, r.ID)
	return err
}

func (h *Handler) loadApprovedBookScenario(ctx context.Context) error {
	if err := h.seedExecutives(ctx); err != nil {
		return err
	}

	book := []struct {
		client   string
		rut      string
		usd      int64
		units    int
		bank     string
		spot     string
		points   string
		days     int
		payments []coverage.Payment
	}{
		{"Constructora Sur", "76.543.210-3", 180000, 4, "Banco de Chile", "935.20", "4.10", 90, []coverage.Payment{
			payment(coverage.DownPayment, 40_000_000, "2025-07-01", false),
			payment(coverage.CashOnDelivery, 0, "2025-10-01", true),
		}},
		{"Forestal Araucanía", "96.511.460-2", 90000, 2, "Santander", "938.00", "2.75", 20, []coverage.Payment{
			payment(coverage.CashOnDelivery, 0, "2025-07-20", true),
		}},
		{"Logística Norte", "78.123.456-7", 300000, 6, "BCI", "936.50", "6.20", 180, []coverage.Payment{
			payment(coverage.DownPayment, 60_000_000, "2025-07-10", false),
			payment(coverage.Financing, 120_000_000, "2026-01-10", false),
			payment(coverage.CashOnDelivery, 0, "2025-12-10", true),
		}},
	}

	for _, b := range book {
		r, err := h.Service.Create(ctx, demoSellerA, demoRequest(b.client, b.rut, b.usd, b.units, "930", b.payments...))
		if err != nil {
			return fmt.Errorf("%s: %w", b.client, err)
		}
		if _, err := h.Service.Submit(ctx, demoSellerA, r.ID); err != nil {
			return err
		}

		quotes := []pricing.Quote{
			{Bank: b.bank, Spot: decimal.RequireFromString(b.spot), ForwardPoints: decimal.RequireFromString(b.points)},
		}
		for _, other := range []string{"Banco de Chile", "Santander", "BCI"} {
			if other != b.bank {
				// Competing quotes come in slightly above the winner.
				quotes = append(quotes, pricing.Quote{
					Bank:          other,
					Spot:          decimal.RequireFromString(b.spot).Add(decimal.NewFromFloat(1.5)),
					ForwardPoints: decimal.RequireFromString(b.points),
				})
			}
		}
		_, err = h.Service.Approve(ctx, demoAdmin, r.ID, request.Approval{
			Quotes:       quotes,
			SelectedBank: b.bank,
			ForwardDays:  b.days,
			SIENumber:    "SIE-" + b.rut[:2],
		})
		if err != nil {
			return fmt.Errorf("approve %s: %w", b.client, err)
		}
	}
	return nil
}

func (h *Handler) loadFullDeskScenario(ctx context.Context) error {
	if err := h.loadApprovedBookScenario(ctx); err != nil {
		return err
	}
	if err := h.loadPipelineScenario(ctx); err != nil {
		return err
	}

	r, err := h.Service.Create(ctx, demoSellerB, demoRequest("Pesquera Austral", "76.086.428-5", 45000, 1, "925",
		payment(coverage.CashOnDelivery, 0, "2025-08-15", true),
	))
	if err != nil {
		return err
	}
	if _, err := h.Service.Submit(ctx, demoSellerB, r.ID); err != nil {
		return err
	}
	if _, err := h.Service.Reject(ctx, demoAdmin, r.ID, "Cliente sin línea de crédito vigente"); err != nil {
		return err
	}

	r, err = h.Service.Create(ctx, demoSellerA, demoRequest("Viña Los Robles", "11.111.111-1", 30000, 1, "925",
		payment(coverage.DownPayment, 27_750_000, "2025-07-30", false),
	))
	if err != nil {
		return err
	}
	_, err = h.Service.Void(ctx, demoAdmin, r.ID, "Negocio cancelado por el cliente")
	return err
}

// seedExecutives adds bank contacts unless some already exist.
func (h *Handler) seedExecutives(ctx context.Context) error {
	existing, err := h.Service.ListExecutives(ctx, "")
	if err != nil || len(existing) > 0 {
		return err
	}
	for _, e := range []request.Executive{
		{Name: "Carolina Muñoz", Bank: "Banco de Chile", ContactNumber: "+56 2 2637 1111"},
		{Name: "Rodrigo Silva", Bank: "Santander", ContactNumber: "+56 2 2320 2222"},
		{Name: "Francisca Rojas", Bank: "BCI", ContactNumber: "+56 2 2692 3333"},
	} {
		if _, err := h.Service.AddExecutive(ctx, demoAdmin, e); err != nil {
			return err
		}
	}
	return nil
}

func demoRequest(client, rut string, usd int64, units int, referenceRate string, payments ...coverage.Payment) request.Request {
	return request.Request{
		Client:            client,
		RUT:               rut,
		BusinessAmountUsd: decimal.NewFromInt(usd),
		Units:             units,
		ReferenceRate:     coverage.Some(decimal.RequireFromString(referenceRate)),
		Payments:          payments,
	}
}

func payment(t coverage.PaymentType, clp int64, due string, remaining bool) coverage.Payment {
	return coverage.Payment{
		Type:               t,
		AmountClp:          decimal.NewFromInt(clp),
		DueDate:            due,
		IsRemainingBalance: remaining,
	}
}
