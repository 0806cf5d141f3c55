/*
Package sqlite provides the SQLite-backed store for billing inputs and
run history.

PURPOSE:
  Persists the input tables a billing run reads (employee directory,
  rate records, allowance records, time entries) and the outputs worth
  keeping across processes (run summaries, issued invoice numbers). The
  computation itself never touches the database; a run loads a snapshot,
  computes in memory, and writes back a summary.

KEY TABLES:
  employees:         Directory rows; replaced wholesale on import
  rate_records:      Append-only effective-dated labor rates
  allowance_records: Append-only effective-dated post differentials
  time_entries:      Raw timekeeping lines for the open period
  runs:              One row per executed pipeline run
  invoice_history:   Issued invoice numbers and amounts

APPEND-ONLY RATE TABLES:
  Rate and allowance corrections are new rows with a later insertion
  order, never updates. The resolver's last-inserted-wins tie break
  depends on rowid order being insertion order.

DECIMAL STORAGE:
  Hours and money are stored as TEXT and parsed back with
  shopspring/decimal. REAL columns would reintroduce the float drift
  this engine exists to avoid.

WAL MODE:
  SQLite is opened with WAL so readers do not block the importer.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/: The in-memory types these tables round-trip
  - invoice/number.go: The HistoryStore interface this implements
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/generic"
	"github.com/warp/billing-engine/invoice"
)

// Store implements persistence for billing inputs and run history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database in tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
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

func (s *Store) migrate() error {
	schema := `
	-- Employee directory (replaced wholesale on import)
	CREATE TABLE IF NOT EXISTS employees (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role_key TEXT NOT NULL DEFAULT '',
		post TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		clin TEXT NOT NULL DEFAULT '',
		sub_clin TEXT NOT NULL DEFAULT '',
		labor_category TEXT NOT NULL DEFAULT ''
	);

	-- Labor rates (append-only; rowid order is the tie break)
	CREATE TABLE IF NOT EXISTS rate_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_key TEXT NOT NULL,
		effective TEXT NOT NULL,
		hourly_rate_reg TEXT NOT NULL,
		hourly_rate_ot TEXT NOT NULL,
		bill_rate_reg TEXT NOT NULL,
		bill_rate_ot TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rate_records_entity
		ON rate_records(entity_key, effective);

	-- Post/hazard allowances (append-only; rowid order is the tie break)
	CREATE TABLE IF NOT EXISTS allowance_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post TEXT NOT NULL,
		effective TEXT NOT NULL,
		posting_rate TEXT NOT NULL,
		hazard_rate TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allowance_records_post
		ON allowance_records(post, effective);

	-- Raw timekeeping lines
	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		employee_key TEXT NOT NULL,
		date TEXT NOT NULL,
		task TEXT NOT NULL,
		hours TEXT NOT NULL,
		state TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_time_entries_employee_date
		ON time_entries(employee_key, date);

	-- Executed pipeline runs
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		policy TEXT NOT NULL,
		as_of TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		hours TEXT NOT NULL,
		amount TEXT NOT NULL,
		warnings INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Issued invoices
	CREATE TABLE IF NOT EXISTS invoice_history (
		number TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		recorded_on TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

// ReplaceEmployees replaces the whole directory atomically. The
// directory is a snapshot import, not an incrementally edited table.
func (s *Store) ReplaceEmployees(ctx context.Context, employees []billing.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM employees"); err != nil {
		return err
	}

	query := `
		INSERT INTO employees
		(key, name, role_key, post, city, location, region, clin, sub_clin, labor_category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, e := range employees {
		if _, err := tx.ExecContext(ctx, query,
			e.Key, e.Name, e.RoleKey, e.Post, e.City, e.Location,
			e.Region, e.CLIN, e.SubCLIN, e.LaborCategory,
		); err != nil {
			return fmt.Errorf("failed to insert employee %s: %w", e.Key, err)
		}
	}
	return tx.Commit()
}

// LoadDirectory returns the stored directory.
func (s *Store) LoadDirectory(ctx context.Context) (*billing.Directory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, name, role_key, post, city, location, region, clin, sub_clin, labor_category
		FROM employees ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dir := billing.NewDirectory()
	for rows.Next() {
		var e billing.Employee
		if err := rows.Scan(&e.Key, &e.Name, &e.RoleKey, &e.Post, &e.City,
			&e.Location, &e.Region, &e.CLIN, &e.SubCLIN, &e.LaborCategory); err != nil {
			return nil, err
		}
		dir.Add(e)
	}
	return dir, rows.Err()
}

// =============================================================================
// RATE AND ALLOWANCE BOOKS
// =============================================================================

// AddRateRecords appends rate versions. Never updates existing rows.
func (s *Store) AddRateRecords(ctx context.Context, records []billing.RateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO rate_records
		(entity_key, effective, hourly_rate_reg, hourly_rate_ot, bill_rate_reg, bill_rate_ot)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, query,
			r.EntityKey, r.Effective.String(),
			r.HourlyRateReg.String(), r.HourlyRateOT.String(),
			r.BillRateReg.String(), r.BillRateOT.String(),
		); err != nil {
			return fmt.Errorf("failed to insert rate record for %s: %w", r.EntityKey, err)
		}
	}
	return tx.Commit()
}

// LoadRateBook returns all rate versions in insertion order.
func (s *Store) LoadRateBook(ctx context.Context) (*billing.RateBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_key, effective, hourly_rate_reg, hourly_rate_ot, bill_rate_reg, bill_rate_ot
		FROM rate_records ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	book := billing.NewRateBook()
	for rows.Next() {
		var r billing.RateRecord
		var effective, hReg, hOT, bReg, bOT string
		if err := rows.Scan(&r.EntityKey, &effective, &hReg, &hOT, &bReg, &bOT); err != nil {
			return nil, err
		}
		r.Effective = parseDate(effective)
		r.HourlyRateReg = parseDecimal(hReg)
		r.HourlyRateOT = parseDecimal(hOT)
		r.BillRateReg = parseDecimal(bReg)
		r.BillRateOT = parseDecimal(bOT)
		book.Add(r)
	}
	return book, rows.Err()
}

// AddAllowanceRecords appends allowance versions. Never updates existing rows.
func (s *Store) AddAllowanceRecords(ctx context.Context, records []billing.AllowanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO allowance_records (post, effective, posting_rate, hazard_rate)
		VALUES (?, ?, ?, ?)
	`
	for _, a := range records {
		if _, err := tx.ExecContext(ctx, query,
			a.Post, a.Effective.String(),
			a.PostingRate.String(), a.HazardRate.String(),
		); err != nil {
			return fmt.Errorf("failed to insert allowance record for %s: %w", a.Post, err)
		}
	}
	return tx.Commit()
}

// LoadAllowanceBook returns all allowance versions in insertion order.
func (s *Store) LoadAllowanceBook(ctx context.Context) (*billing.AllowanceBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT post, effective, posting_rate, hazard_rate
		FROM allowance_records ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	book := billing.NewAllowanceBook()
	for rows.Next() {
		var a billing.AllowanceRecord
		var effective, posting, hazard string
		if err := rows.Scan(&a.Post, &effective, &posting, &hazard); err != nil {
			return nil, err
		}
		a.Effective = parseDate(effective)
		a.PostingRate = parseDecimal(posting)
		a.HazardRate = parseDecimal(hazard)
		book.Add(a)
	}
	return book, rows.Err()
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

// SaveTimeEntries upserts entries by ID. Re-importing an export replaces
// the earlier copy of each line, which is how approval-state changes
// arrive.
func (s *Store) SaveTimeEntries(ctx context.Context, entries []billing.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO time_entries (id, employee_key, date, task, hours, state, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_key = excluded.employee_key,
			date = excluded.date,
			task = excluded.task,
			hours = excluded.hours,
			state = excluded.state,
			description = excluded.description
	`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, query,
			e.ID, e.EmployeeKey, e.Date.String(), e.Task,
			e.Hours.String(), string(e.State), e.Description,
		); err != nil {
			return fmt.Errorf("failed to save time entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// LoadTimeEntries returns all stored entries ordered by date, then
// employee, then ID.
func (s *Store) LoadTimeEntries(ctx context.Context) ([]billing.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_key, date, task, hours, state, description
		FROM time_entries ORDER BY date, employee_key, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []billing.TimeEntry
	for rows.Next() {
		var e billing.TimeEntry
		var date, hours, state string
		if err := rows.Scan(&e.ID, &e.EmployeeKey, &date, &e.Task, &hours, &state, &e.Description); err != nil {
			return nil, err
		}
		e.Date = parseDate(date)
		e.Hours = parseDecimal(hours)
		e.State = billing.ApprovalState(state)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteTimeEntries clears the open period's entries after it is invoiced.
func (s *Store) DeleteTimeEntries(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM time_entries")
	return err
}

// =============================================================================
// RUNS
// =============================================================================

// RunSummary is the persisted record of one executed run.
type RunSummary struct {
	ID          string
	Policy      string
	AsOf        generic.TimePoint
	PeriodStart generic.TimePoint
	PeriodEnd   generic.TimePoint
	Hours       decimal.Decimal
	Amount      decimal.Decimal
	Warnings    int
	Errors      int
	CreatedAt   time.Time
}

// SaveRun records a run summary.
func (s *Store) SaveRun(ctx context.Context, r RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO runs
		(id, policy, as_of, period_start, period_end, hours, amount, warnings, errors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Policy, r.AsOf.String(),
		r.PeriodStart.String(), r.PeriodEnd.String(),
		r.Hours.String(), r.Amount.String(),
		r.Warnings, r.Errors,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, policy, as_of, period_start, period_end, hours, amount, warnings, errors, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var asOf, start, end, hours, amount, createdAt string
		if err := rows.Scan(&r.ID, &r.Policy, &asOf, &start, &end,
			&hours, &amount, &r.Warnings, &r.Errors, &createdAt); err != nil {
			return nil, err
		}
		r.AsOf = parseDate(asOf)
		r.PeriodStart = parseDate(start)
		r.PeriodEnd = parseDate(end)
		r.Hours = parseDecimal(hours)
		r.Amount = parseDecimal(amount)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// INVOICE HISTORY (invoice.HistoryStore interface)
// =============================================================================

var _ invoice.HistoryStore = (*Store)(nil)

// RecordInvoice records an issued invoice. Numbers are unique; issuing
// the same number twice is an error, not a silent overwrite.
func (s *Store) RecordInvoice(entry invoice.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO invoice_history (number, amount, recorded_on) VALUES (?, ?, ?)
	`, entry.Number, entry.Amount.String(), entry.RecordedOn.String())
	if err != nil {
		return fmt.Errorf("failed to record invoice %s: %w", entry.Number, err)
	}
	return nil
}

// InvoiceHistory returns all issued invoices ordered by number.
func (s *Store) InvoiceHistory() ([]invoice.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT number, amount, recorded_on FROM invoice_history ORDER BY number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []invoice.HistoryEntry
	for rows.Next() {
		var h invoice.HistoryEntry
		var amount, recordedOn string
		if err := rows.Scan(&h.Number, &amount, &recordedOn); err != nil {
			return nil, err
		}
		h.Amount = parseDecimal(amount)
		h.RecordedOn = parseDate(recordedOn)
		history = append(history, h)
	}
	return history, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"time_entries", "rate_records", "allowance_records", "employees", "runs", "invoice_history"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func parseDate(s string) generic.TimePoint {
	tp, _ := generic.ParseTimePoint(s)
	return tp
}

func parseDecimal(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}
