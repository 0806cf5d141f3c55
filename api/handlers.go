/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing pipeline via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Input tables:
    GET    /api/employees           List directory
    PUT    /api/employees           Replace directory
    GET    /api/entries             List time entries
    POST   /api/entries             Import/upsert time entries
    DELETE /api/entries             Clear the open period
    GET    /api/rates               List rate versions
    POST   /api/rates               Append rate versions
    GET    /api/rates/margins       Pay/bill margins as of a date
    GET    /api/allowances          List allowance versions
    POST   /api/allowances          Append allowance versions

  Runs:
    POST   /api/runs                Execute a pipeline run
    GET    /api/runs                Run history
    GET    /api/runs/{id}           Run summary
    GET    /api/runs/{id}/rollups   Aggregated rows (?by=employee|date|location)
    GET    /api/runs/{id}/warnings  Itemized findings
    GET    /api/runs/{id}/costs     Flat post/hazard cost lines
    GET    /api/runs/{id}/invoices  Per-CLIN invoice data
    POST   /api/runs/{id}/invoices/{clin}/issue  Record an issued number

  Invoices:
    GET    /api/invoices            Issued invoice history

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (store, pipeline, invoice assembly)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Run or CLIN not found
  - 409: Conflict (duplicate invoice number)
  - 422: Run completed with hard errors
  - 500: Internal errors

RUN CACHING:
  Full run results (joined entries, rollups, invoice data) are kept in
  memory keyed by run ID; only the summary is persisted. Results are
  recomputable from the stored inputs, so losing the cache costs one
  re-run, not data.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/config"
	"github.com/warp/billing-engine/factory"
	"github.com/warp/billing-engine/generic"
	"github.com/warp/billing-engine/invoice"
	"github.com/warp/billing-engine/metrics"
	"github.com/warp/billing-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Config   config.Config
	Sequence *invoice.Sequence

	mu   sync.RWMutex
	runs map[string]*runState
}

// runState keeps one run's full result in memory.
type runState struct {
	result   *billing.RunResult
	invoices map[string]*invoice.InvoiceData // by CLIN
	clins    []string                        // sorted
}

// NewHandler creates a new handler with the given store and config.
func NewHandler(store *sqlite.Store, cfg config.Config) *Handler {
	return &Handler{
		Store:    store,
		Config:   cfg,
		Sequence: factory.Sequence(cfg),
		runs:     make(map[string]*runState),
	}
}

// =============================================================================
// INPUT TABLE HANDLERS
// =============================================================================

// ListEmployees returns the directory.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	dir, err := h.Store.LoadDirectory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load directory", err)
		return
	}

	dtos := make([]EmployeeDTO, 0, dir.Len())
	for _, e := range dir.All() {
		dtos = append(dtos, toEmployeeDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReplaceEmployees replaces the whole directory from an import.
func (h *Handler) ReplaceEmployees(w http.ResponseWriter, r *http.Request) {
	var req []EmployeeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	employees := make([]billing.Employee, 0, len(req))
	for _, d := range req {
		if d.Key == "" {
			writeError(w, http.StatusBadRequest, "Employee key is required", nil)
			return
		}
		employees = append(employees, d.toDomain())
	}

	if err := h.Store.ReplaceEmployees(r.Context(), employees); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to replace directory", err)
		return
	}
	metrics.AddImportRows("employees", len(employees))
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(employees)})
}

// ListEntries returns stored time entries.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.LoadTimeEntries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load entries", err)
		return
	}

	dtos := make([]TimeEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toTimeEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ImportEntries upserts time entries by ID.
func (h *Handler) ImportEntries(w http.ResponseWriter, r *http.Request) {
	var req []TimeEntryDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entries := make([]billing.TimeEntry, 0, len(req))
	for i, d := range req {
		e, err := parseTimeEntry(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Entry %d invalid", i), err)
			return
		}
		entries = append(entries, e)
	}

	if err := h.Store.SaveTimeEntries(r.Context(), entries); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save entries", err)
		return
	}
	metrics.AddImportRows("time_entries", len(entries))
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(entries)})
}

// ClearEntries deletes the open period's entries.
func (h *Handler) ClearEntries(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTimeEntries(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear entries", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportRates appends rate versions.
func (h *Handler) ImportRates(w http.ResponseWriter, r *http.Request) {
	var req []RateRecordDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	records := make([]billing.RateRecord, 0, len(req))
	for i, d := range req {
		rec, err := parseRateRecord(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Rate record %d invalid", i), err)
			return
		}
		records = append(records, rec)
	}

	if err := h.Store.AddRateRecords(r.Context(), records); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rate records", err)
		return
	}
	metrics.AddImportRows("rate_records", len(records))
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(records)})
}

// ImportAllowances appends allowance versions.
func (h *Handler) ImportAllowances(w http.ResponseWriter, r *http.Request) {
	var req []AllowanceRecordDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	records := make([]billing.AllowanceRecord, 0, len(req))
	for i, d := range req {
		rec, err := parseAllowanceRecord(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Allowance record %d invalid", i), err)
			return
		}
		records = append(records, rec)
	}

	if err := h.Store.AddAllowanceRecords(r.Context(), records); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save allowance records", err)
		return
	}
	metrics.AddImportRows("allowance_records", len(records))
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(records)})
}

// ListRates returns every stored rate version, grouped by role in
// insertion order.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	book, err := h.Store.LoadRateBook(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rate book", err)
		return
	}

	dtos := make([]RateRecordDTO, 0, book.Len())
	for _, key := range book.Keys() {
		for _, rec := range book.ForKey(key) {
			dtos = append(dtos, toRateRecordDTO(rec))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAllowances returns every stored allowance version, grouped by post
// in insertion order.
func (h *Handler) ListAllowances(w http.ResponseWriter, r *http.Request) {
	book, err := h.Store.LoadAllowanceBook(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load allowance book", err)
		return
	}

	dtos := make([]AllowanceRecordDTO, 0, book.Len())
	for _, key := range book.Keys() {
		for _, rec := range book.ForKey(key) {
			dtos = append(dtos, toAllowanceRecordDTO(rec))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RateMargins returns pay/bill margins per role as of a date.
// GET /api/rates/margins?as_of=2024-02-29
func (h *Handler) RateMargins(w http.ResponseWriter, r *http.Request) {
	asOf := generic.Today()
	if s := r.URL.Query().Get("as_of"); s != "" {
		tp, err := generic.ParseTimePoint(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
			return
		}
		asOf = tp
	}

	book, err := h.Store.LoadRateBook(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rate book", err)
		return
	}

	margins := book.Margins(asOf)
	dtos := make([]MarginDTO, 0, len(margins))
	for _, m := range margins {
		dtos = append(dtos, MarginDTO{
			RoleKey:    m.RoleKey,
			HourlyReg:  m.HourlyReg.String(),
			BillReg:    m.BillReg.String(),
			MarginReg:  m.MarginReg.String(),
			MarginRate: m.MarginRate.String(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// CreateRun executes a pipeline run over the stored inputs.
// POST /api/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Policy == "" {
		req.Policy = factory.PolicyInvoicing
	}

	policy, err := factory.Policy(h.Config, req.Policy)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown policy", err)
		return
	}
	classifier, err := factory.Classifier(h.Config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Invalid task classification config", err)
		return
	}

	ctx := r.Context()
	dir, err := h.Store.LoadDirectory(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load directory", err)
		return
	}
	rates, err := h.Store.LoadRateBook(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rate book", err)
		return
	}
	allowances, err := h.Store.LoadAllowanceBook(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load allowance book", err)
		return
	}
	entries, err := h.Store.LoadTimeEntries(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load entries", err)
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusBadRequest, "No time entries to process", nil)
		return
	}

	// Default the as-of date to the end of the billing period, so rate
	// versions effective mid-period are picked the way the invoice will
	// be dated.
	asOf := billing.EntryPeriod(entries).End
	if req.AsOf != "" {
		tp, err := generic.ParseTimePoint(req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
			return
		}
		asOf = tp
	}

	started := time.Now()
	result, err := billing.Run(billing.JoinInput{
		Entries:    entries,
		Directory:  dir,
		Rates:      rates,
		Allowances: allowances,
		Classifier: classifier,
		AsOf:       asOf,
		BaseYear:   h.Config.BaseYear,
	}, policy)
	if err != nil {
		metrics.ObserveRun(req.Policy, metrics.ResultError, len(entries), time.Since(started))
		writeError(w, http.StatusUnprocessableEntity, "Run failed invariant checks", err)
		return
	}

	metrics.ObserveRun(req.Policy, metrics.ResultSuccess, len(entries), time.Since(started))
	for _, kind := range []billing.WarningKind{
		billing.WarnRateGap, billing.WarnAllowanceGap, billing.WarnUnknownTask,
		billing.WarnStateMismatch, billing.WarnUnresolvedEmployee, billing.WarnDirectoryGap,
		billing.WarnNegativeHours,
	} {
		metrics.AddRunWarnings(string(kind), result.Report.CountKind(kind))
	}

	invoices, err := invoice.Build(result.Joined, policy, factory.InvoiceOptions(h.Config))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to assemble invoice data", err)
		return
	}

	state := &runState{
		result:   result,
		invoices: invoices,
	}
	for clin := range state.invoices {
		state.clins = append(state.clins, clin)
	}
	sort.Strings(state.clins)

	id := uuid.New().String()
	h.mu.Lock()
	h.runs[id] = state
	h.mu.Unlock()

	summary := sqlite.RunSummary{
		ID:          id,
		Policy:      req.Policy,
		AsOf:        asOf,
		PeriodStart: result.Period.Start,
		PeriodEnd:   result.Period.End,
		Hours:       result.Hours(),
		Amount:      result.Amount(),
		Warnings:    len(result.Report.Warnings),
		Errors:      len(result.Report.Errors),
	}
	if err := h.Store.SaveRun(ctx, summary); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record run", err)
		return
	}

	dto := toRunDTO(summary)
	dto.PeriodLabel = result.Period.Label()
	dto.Entries = len(entries)
	dto.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusCreated, dto)
}

// ListRuns returns persisted run summaries, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, 0, len(runs))
	for _, s := range runs {
		dtos = append(dtos, toRunDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one cached run's summary.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := h.run(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Run not found or no longer cached", nil)
		return
	}

	res := state.result
	writeJSON(w, http.StatusOK, RunDTO{
		ID:          id,
		Policy:      res.Policy.Name,
		AsOf:        res.AsOf.String(),
		PeriodStart: res.Period.Start.String(),
		PeriodEnd:   res.Period.End.String(),
		PeriodLabel: res.Period.Label(),
		Entries:     len(res.Joined),
		Hours:       res.Hours().String(),
		Amount:      res.Amount().String(),
		Warnings:    len(res.Report.Warnings),
		Errors:      len(res.Report.Errors),
	})
}

// GetRunRollups returns aggregated rows for one run.
// GET /api/runs/{id}/rollups?by=employee|date|location
func (h *Handler) GetRunRollups(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := h.run(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Run not found or no longer cached", nil)
		return
	}

	var rollups []billing.Rollup
	switch by := r.URL.Query().Get("by"); by {
	case "", "employee":
		rollups = state.result.ByEmployee
	case "date":
		rollups = state.result.ByDate
	case "location":
		var err error
		rollups, err = billing.Aggregate(state.result.Joined,
			[]billing.GroupKey{billing.KeyCLIN, billing.KeyLocation, billing.KeyCity},
			state.result.Policy.ForHours(), billing.NewReport())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to aggregate", err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown grouping %q", by), nil)
		return
	}

	dtos := make([]RollupDTO, 0, len(rollups))
	for _, roll := range rollups {
		dtos = append(dtos, toRollupDTO(roll))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRunWarnings returns one run's itemized findings, errors first.
func (h *Handler) GetRunWarnings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := h.run(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Run not found or no longer cached", nil)
		return
	}

	report := state.result.Report
	dtos := make([]WarningDTO, 0, report.Count())
	for _, warn := range report.Errors {
		dtos = append(dtos, toWarningDTO(warn, "error"))
	}
	for _, warn := range report.Warnings {
		dtos = append(dtos, toWarningDTO(warn, "warning"))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRunCosts returns one run's post and hazard cost lines across all
// CLINs as a flat list.
func (h *Handler) GetRunCosts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := h.run(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Run not found or no longer cached", nil)
		return
	}

	dtos := []CostLineDTO{}
	for _, clin := range state.clins {
		data := state.invoices[clin]
		for _, c := range data.PostLines {
			dtos = append(dtos, toCostLineDTO(c))
		}
		for _, c := range data.HazardLines {
			dtos = append(dtos, toCostLineDTO(c))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRunInvoices returns per-CLIN invoice data for one run.
func (h *Handler) GetRunInvoices(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := h.run(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Run not found or no longer cached", nil)
		return
	}

	dtos := make([]InvoiceDTO, 0, len(state.clins))
	for _, clin := range state.clins {
		dtos = append(dtos, toInvoiceDTO(state.invoices[clin], h.Config.RegionForCLIN(clin), h.Config.Approvers))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// IssueInvoice allocates the next invoice number for one CLIN of a run
// and records it in history.
// POST /api/runs/{id}/invoices/{clin}/issue
func (h *Handler) IssueInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	clin := chi.URLParam(r, "clin")

	state, ok := h.run(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Run not found or no longer cached", nil)
		return
	}
	data, ok := state.invoices[clin]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Run has no invoice for CLIN %q", clin), nil)
		return
	}
	if state.result.Report.HasErrors() {
		writeError(w, http.StatusConflict, "Run has unresolved errors; fix source data and re-run", nil)
		return
	}

	var req IssueInvoiceRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	number := invoice.WithSuffix(h.Sequence.Next(), req.Suffix)
	entry := invoice.HistoryEntry{
		Number:     number,
		Amount:     data.Amount,
		RecordedOn: generic.Today(),
	}
	if err := h.Store.RecordInvoice(entry); err != nil {
		writeError(w, http.StatusConflict, "Failed to record invoice", err)
		return
	}
	metrics.IncInvoiceIssued()

	writeJSON(w, http.StatusCreated, InvoiceHistoryDTO{
		Number:     entry.Number,
		Amount:     entry.Amount.String(),
		RecordedOn: entry.RecordedOn.String(),
	})
}

// ListInvoiceHistory returns all issued invoices.
func (h *Handler) ListInvoiceHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Store.InvoiceHistory()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load invoice history", err)
		return
	}

	dtos := make([]InvoiceHistoryDTO, 0, len(history))
	for _, e := range history {
		dtos = append(dtos, InvoiceHistoryDTO{
			Number:     e.Number,
			Amount:     e.Amount.String(),
			RecordedOn: e.RecordedOn.String(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) run(id string) (*runState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	state, ok := h.runs[id]
	return state, ok
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseTimeEntry(d TimeEntryDTO) (billing.TimeEntry, error) {
	var e billing.TimeEntry
	if d.ID == "" {
		return e, fmt.Errorf("id is required")
	}
	if d.EmployeeKey == "" {
		return e, fmt.Errorf("employee_key is required")
	}
	date, err := generic.ParseTimePoint(d.Date)
	if err != nil {
		return e, fmt.Errorf("date: %w", err)
	}
	hours, err := parseDecimalField("hours", d.Hours)
	if err != nil {
		return e, err
	}
	if hours.IsNegative() {
		return e, fmt.Errorf("hours must not be negative, got %s", hours)
	}
	state := billing.ApprovalState(d.State)
	switch state {
	case billing.StateDraft, billing.StateSubmitted, billing.StateApproved, billing.StateDeclined:
	default:
		return e, fmt.Errorf("state %q not recognized", d.State)
	}

	return billing.TimeEntry{
		ID:          d.ID,
		EmployeeKey: d.EmployeeKey,
		Date:        date,
		Task:        d.Task,
		Hours:       hours,
		State:       state,
		Description: d.Description,
	}, nil
}

func parseRateRecord(d RateRecordDTO) (billing.RateRecord, error) {
	var rec billing.RateRecord
	if d.EntityKey == "" {
		return rec, fmt.Errorf("entity_key is required")
	}
	effective, err := generic.ParseTimePoint(d.Effective)
	if err != nil {
		return rec, fmt.Errorf("effective: %w", err)
	}
	rec.EntityKey = d.EntityKey
	rec.Effective = effective
	if rec.HourlyRateReg, err = parseDecimalField("hourly_rate_reg", d.HourlyRateReg); err != nil {
		return rec, err
	}
	if rec.HourlyRateOT, err = parseDecimalField("hourly_rate_ot", d.HourlyRateOT); err != nil {
		return rec, err
	}
	if rec.BillRateReg, err = parseDecimalField("bill_rate_reg", d.BillRateReg); err != nil {
		return rec, err
	}
	if rec.BillRateOT, err = parseDecimalField("bill_rate_ot", d.BillRateOT); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseAllowanceRecord(d AllowanceRecordDTO) (billing.AllowanceRecord, error) {
	var rec billing.AllowanceRecord
	if d.Post == "" {
		return rec, fmt.Errorf("post is required")
	}
	effective, err := generic.ParseTimePoint(d.Effective)
	if err != nil {
		return rec, fmt.Errorf("effective: %w", err)
	}
	rec.Post = d.Post
	rec.Effective = effective
	if rec.PostingRate, err = parseDecimalField("posting_rate", d.PostingRate); err != nil {
		return rec, err
	}
	if rec.HazardRate, err = parseDecimalField("hazard_rate", d.HazardRate); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseDecimalField(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
