/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements request.Store and request.ExecutiveStore using SQLite. Coverage
  results are never written: only the inputs the calculator needs.

KEY TABLES:
  requests:        One row per currency request (deal, rates, bank data)
  payments:        Payment schedule, ordered by position, cascade-deleted
  bank_executives: Bank contacts used when asking for quotes

COLUMN ENCODING:
  Money and rates are TEXT holding the exact decimal string, NULL when the
  optional value is absent. Times are RFC3339 UTC. The frozen quote
  comparison, the invoice and the internal numbers are JSON documents.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. An in-memory database is pinned to
  one connection, otherwise every pooled connection would see its own
  empty database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/hedge.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := &request.Service{Store: store, Executives: store}

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - request/store.go: Interface definitions
  - request/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/hedge-desk/coverage"
	"github.com/warp/hedge-desk/pricing"
	"github.com/warp/hedge-desk/request"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		status TEXT NOT NULL,
		client TEXT NOT NULL,
		rut TEXT NOT NULL,
		business_amount_usd TEXT NOT NULL,
		units INTEGER NOT NULL,
		internal_numbers_json TEXT NOT NULL DEFAULT '[]',
		reference_rate TEXT,
		client_rate TEXT,
		spot_rate TEXT,
		forward_points TEXT,
		all_in_rate TEXT,
		coverage_percent TEXT,
		bank TEXT NOT NULL DEFAULT '',
		forward_days INTEGER NOT NULL DEFAULT 0,
		expiry TEXT,
		sie_number TEXT NOT NULL DEFAULT '',
		comparison_json TEXT,
		invoice_json TEXT,
		notes TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_seller
		ON requests(seller_id, created_at DESC);

	-- Approved covers by expiry (dashboard + expiry sweep)
	CREATE INDEX IF NOT EXISTS idx_requests_expiry
		ON requests(expiry) WHERE status = 'APPROVED';

	CREATE TABLE IF NOT EXISTS payments (
		request_id TEXT NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		id TEXT NOT NULL DEFAULT '',
		payment_type TEXT NOT NULL,
		amount_clp TEXT NOT NULL,
		due_date TEXT NOT NULL,
		is_remaining_balance INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (request_id, position)
	);

	-- At most one remaining-balance payment per request
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_remaining_balance
		ON payments(request_id) WHERE is_remaining_balance = 1;

	CREATE TABLE IF NOT EXISTS bank_executives (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		bank TEXT NOT NULL,
		contact_number TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_executives_bank
		ON bank_executives(bank, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REQUEST STORE (request.Store interface)
// =============================================================================

// Save inserts or replaces a request and its payment schedule atomically.
func (s *Store) Save(ctx context.Context, r request.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	internalNumbers := r.InternalNumbers
	if internalNumbers == nil {
		internalNumbers = []string{}
	}
	numbersJSON, err := json.Marshal(internalNumbers)
	if err != nil {
		return fmt.Errorf("encode internal numbers: %w", err)
	}
	comparisonJSON, err := nullJSON(r.Comparison)
	if err != nil {
		return fmt.Errorf("encode comparison: %w", err)
	}
	invoiceJSON, err := nullJSON(r.Invoice)
	if err != nil {
		return fmt.Errorf("encode invoice: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO requests (id, seller_id, status, client, rut, business_amount_usd, units,
			internal_numbers_json, reference_rate, client_rate, spot_rate, forward_points,
			all_in_rate, coverage_percent, bank, forward_days, expiry, sie_number,
			comparison_json, invoice_json, notes, rejection_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			seller_id = excluded.seller_id,
			status = excluded.status,
			client = excluded.client,
			rut = excluded.rut,
			business_amount_usd = excluded.business_amount_usd,
			units = excluded.units,
			internal_numbers_json = excluded.internal_numbers_json,
			reference_rate = excluded.reference_rate,
			client_rate = excluded.client_rate,
			spot_rate = excluded.spot_rate,
			forward_points = excluded.forward_points,
			all_in_rate = excluded.all_in_rate,
			coverage_percent = excluded.coverage_percent,
			bank = excluded.bank,
			forward_days = excluded.forward_days,
			expiry = excluded.expiry,
			sie_number = excluded.sie_number,
			comparison_json = excluded.comparison_json,
			invoice_json = excluded.invoice_json,
			notes = excluded.notes,
			rejection_reason = excluded.rejection_reason,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		r.ID, r.SellerID, r.Status, r.Client, r.RUT, r.BusinessAmountUsd.String(), r.Units,
		string(numbersJSON), r.ReferenceRate, r.ClientRate, r.SpotRate, r.ForwardPoints,
		r.AllInRate, r.CoveragePercent, r.Bank, r.ForwardDays, nullTime(r.Expiry), r.SIENumber,
		comparisonJSON, invoiceJSON, r.Notes, r.RejectionReason,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE request_id = ?`, r.ID); err != nil {
		return fmt.Errorf("failed to clear payments: %w", err)
	}
	for i, p := range r.Payments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payments (id, request_id, position, payment_type, amount_clp, due_date,
				is_remaining_balance, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, r.ID, i, p.Type, p.AmountClp.String(), p.DueDate, p.IsRemainingBalance, p.Notes,
		)
		if err != nil {
			if isUniqueConstraintError(err) && strings.Contains(err.Error(), "payments.request_id") {
				return fmt.Errorf("request %s has more than one remaining-balance payment: %w", r.ID, request.ErrValidation)
			}
			return fmt.Errorf("failed to save payment %d: %w", i, err)
		}
	}

	return tx.Commit()
}

const requestColumns = `
	id, seller_id, status, client, rut, business_amount_usd, units,
	internal_numbers_json, reference_rate, client_rate, spot_rate, forward_points,
	all_in_rate, coverage_percent, bank, forward_days, expiry, sie_number,
	comparison_json, invoice_json, notes, rejection_reason, created_at, updated_at`

// Get retrieves a request by ID with its payments.
func (s *Store) Get(ctx context.Context, id string) (request.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.queryRequests(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	if err != nil {
		return request.Request{}, err
	}
	if len(rows) == 0 {
		return request.Request{}, fmt.Errorf("request %s: %w", id, request.ErrNotFound)
	}
	return rows[0], nil
}

// List returns matching requests, newest first.
func (s *Store) List(ctx context.Context, f request.Filter) ([]request.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + requestColumns + ` FROM requests WHERE 1 = 1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.SellerID != "" {
		query += ` AND seller_id = ?`
		args = append(args, f.SellerID)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	return s.queryRequests(ctx, query, args...)
}

// Delete removes a request; its payments go with it.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("request %s: %w", id, request.ErrNotFound)
	}
	return nil
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]request.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []request.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range requests {
		payments, err := s.loadPayments(ctx, requests[i].ID)
		if err != nil {
			return nil, err
		}
		requests[i].Payments = payments
	}
	return requests, nil
}

func scanRequest(rows *sql.Rows) (request.Request, error) {
	var r request.Request
	var business, numbersJSON, createdAt, updatedAt string
	var expiry, comparisonJSON, invoiceJSON sql.NullString

	if err := rows.Scan(
		&r.ID, &r.SellerID, &r.Status, &r.Client, &r.RUT, &business, &r.Units,
		&numbersJSON, &r.ReferenceRate, &r.ClientRate, &r.SpotRate, &r.ForwardPoints,
		&r.AllInRate, &r.CoveragePercent, &r.Bank, &r.ForwardDays, &expiry, &r.SIENumber,
		&comparisonJSON, &invoiceJSON, &r.Notes, &r.RejectionReason, &createdAt, &updatedAt,
	); err != nil {
		return request.Request{}, err
	}

	var err error
	if r.BusinessAmountUsd, err = decimal.NewFromString(business); err != nil {
		return request.Request{}, fmt.Errorf("request %s: bad business amount %q: %w", r.ID, business, err)
	}
	if err := json.Unmarshal([]byte(numbersJSON), &r.InternalNumbers); err != nil {
		return request.Request{}, fmt.Errorf("request %s: bad internal numbers: %w", r.ID, err)
	}
	if expiry.Valid {
		t, _ := time.Parse(time.RFC3339Nano, expiry.String)
		r.Expiry = &t
	}
	if comparisonJSON.Valid {
		r.Comparison = &pricing.Comparison{}
		if err := json.Unmarshal([]byte(comparisonJSON.String), r.Comparison); err != nil {
			return request.Request{}, fmt.Errorf("request %s: bad comparison: %w", r.ID, err)
		}
	}
	if invoiceJSON.Valid {
		r.Invoice = &pricing.Invoice{}
		if err := json.Unmarshal([]byte(invoiceJSON.String), r.Invoice); err != nil {
			return request.Request{}, fmt.Errorf("request %s: bad invoice: %w", r.ID, err)
		}
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return r, nil
}

func (s *Store) loadPayments(ctx context.Context, requestID string) ([]coverage.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_type, amount_clp, due_date, is_remaining_balance, notes
		FROM payments
		WHERE request_id = ?
		ORDER BY position ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []coverage.Payment{}
	for rows.Next() {
		var p coverage.Payment
		var amount string
		if err := rows.Scan(&p.ID, &p.Type, &amount, &p.DueDate, &p.IsRemainingBalance, &p.Notes); err != nil {
			return nil, err
		}
		if p.AmountClp, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("payment %s: bad amount %q: %w", p.ID, amount, err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// EXECUTIVE STORE (request.ExecutiveStore interface)
// =============================================================================

func (s *Store) SaveExecutive(ctx context.Context, e request.Executive) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO bank_executives (id, name, bank, contact_number, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			bank = excluded.bank,
			contact_number = excluded.contact_number
	`
	_, err := s.db.ExecContext(ctx, query, e.ID, e.Name, e.Bank, e.ContactNumber, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save executive: %w", err)
	}
	return nil
}

func (s *Store) ListExecutives(ctx context.Context, bank string) ([]request.Executive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, bank, contact_number, created_at FROM bank_executives`
	var args []any
	if bank != "" {
		query += ` WHERE bank = ?`
		args = append(args, bank)
	}
	query += ` ORDER BY bank ASC, name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	executives := []request.Executive{}
	for rows.Next() {
		var e request.Executive
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Name, &e.Bank, &e.ContactNumber, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		executives = append(executives, e)
	}
	return executives, rows.Err()
}

func (s *Store) DeleteExecutive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM bank_executives WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete executive: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("executive %s: %w", id, request.ErrNotFound)
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payments", "requests", "bank_executives"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullJSON(v any) (sql.NullString, error) {
	switch x := v.(type) {
	case *pricing.Comparison:
		if x == nil {
			return sql.NullString{}, nil
		}
	case *pricing.Invoice:
		if x == nil {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
