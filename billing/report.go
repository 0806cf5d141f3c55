/*
report.go - Structured warnings and run-level errors

PURPOSE:
  Every lookup in the pipeline fails soft and records what happened here.
  A run always produces its rollups plus an itemized list of everything
  that went wrong, so an operator can correct source data before the
  numbers are trusted.

TAXONOMY (matches how operators triage):
  RateGap            No labor rate effective for a role as of the run date.
                     Billed amount treated as zero, always surfaced.
  AllowanceGap       Same, for a duty post's differential record.
  UnknownTask        Task code/label not in the classification table.
  StateMismatch      Entry not Approved in an invoicing run. Not an error;
                     excluded from invoice totals but counted so the
                     financial difference is visible.
  UnresolvedEmployee Entry whose employee has no directory row. A hard,
                     run-level error when the entry carries billable hours.
  DirectoryGap       Directory row unusable (missing role key or post).
  NegativeHours      Entry carries hours below zero. Always a hard error:
                     a negative line would silently shrink totals.

SEE ALSO:
  - join.go, aggregate.go: Producers
  - api/dto.go: JSON rendering for operators
*/
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/generic"
)

// =============================================================================
// WARNING
// =============================================================================

type WarningKind string

const (
	WarnRateGap            WarningKind = "rate_gap"
	WarnAllowanceGap       WarningKind = "allowance_gap"
	WarnUnknownTask        WarningKind = "unknown_task"
	WarnStateMismatch      WarningKind = "state_mismatch"
	WarnUnresolvedEmployee WarningKind = "unresolved_employee"
	WarnDirectoryGap       WarningKind = "directory_gap"
	WarnNegativeHours      WarningKind = "negative_hours"
)

// Warning is one structured finding. Error-severity findings carry the same
// shape; the Report keeps them in separate lists.
type Warning struct {
	Kind         WarningKind
	EmployeeKey  string
	EmployeeName string
	Task         string
	Date         generic.TimePoint
	Hours        decimal.Decimal
	Detail       string
}

func (w Warning) String() string {
	s := fmt.Sprintf("[%s] %s", w.Kind, w.Detail)
	if w.EmployeeKey != "" {
		s += fmt.Sprintf(" (employee %s)", w.EmployeeKey)
	}
	if !w.Date.IsZero() {
		s += fmt.Sprintf(" on %s", w.Date)
	}
	return s
}

// =============================================================================
// REPORT
// =============================================================================

// Report accumulates every warning and hard error for one run. Not safe for
// concurrent use; each run owns its own Report.
type Report struct {
	Warnings []Warning
	Errors   []Warning
}

func NewReport() *Report { return &Report{} }

func (r *Report) warn(w Warning)  { r.Warnings = append(r.Warnings, w) }
func (r *Report) fail(w Warning)  { r.Errors = append(r.Errors, w) }
func (r *Report) HasErrors() bool { return len(r.Errors) > 0 }

// Count returns warnings plus errors.
func (r *Report) Count() int { return len(r.Warnings) + len(r.Errors) }

// CountKind returns how many findings of one kind were recorded, across
// both severity lists.
func (r *Report) CountKind(kind WarningKind) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	for _, w := range r.Errors {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// MismatchedHours returns the total hours excluded by approval-state
// filtering, so an invoicing run can show the gap against the hours report.
func (r *Report) MismatchedHours() decimal.Decimal {
	total := decimal.Zero
	for _, w := range r.Warnings {
		if w.Kind == WarnStateMismatch {
			total = total.Add(w.Hours)
		}
	}
	return total
}

// =============================================================================
// PRODUCER HELPERS
// =============================================================================

func (r *Report) AddRateGap(e TimeEntry, emp Employee, asOf generic.TimePoint) {
	r.warn(Warning{
		Kind:         WarnRateGap,
		EmployeeKey:  e.EmployeeKey,
		EmployeeName: emp.Name,
		Task:         e.Task,
		Date:         e.Date,
		Hours:        e.Hours,
		Detail:       fmt.Sprintf("no labor rate for role %q as of %s; billing at zero", emp.RoleKey, asOf),
	})
}

func (r *Report) AddAllowanceGap(e TimeEntry, emp Employee, asOf generic.TimePoint) {
	r.warn(Warning{
		Kind:         WarnAllowanceGap,
		EmployeeKey:  e.EmployeeKey,
		EmployeeName: emp.Name,
		Task:         e.Task,
		Date:         e.Date,
		Hours:        e.Hours,
		Detail:       fmt.Sprintf("no allowance record for post %q as of %s; differentials at zero", emp.Post, asOf),
	})
}

func (r *Report) AddUnknownTask(e TimeEntry) {
	r.warn(Warning{
		Kind:        WarnUnknownTask,
		EmployeeKey: e.EmployeeKey,
		Task:        e.Task,
		Date:        e.Date,
		Hours:       e.Hours,
		Detail:      fmt.Sprintf("task %q not in classification table; treated as non-billable", e.Task),
	})
}

func (r *Report) AddStateMismatch(e TimeEntry) {
	r.warn(Warning{
		Kind:        WarnStateMismatch,
		EmployeeKey: e.EmployeeKey,
		Task:        e.Task,
		Date:        e.Date,
		Hours:       e.Hours,
		Detail:      fmt.Sprintf("entry in state %q excluded from approved-only rollup", e.State),
	})
}

// AddUnresolvedEmployee records a directory miss. Billable hours make it a
// hard error; otherwise it is a warning.
func (r *Report) AddUnresolvedEmployee(e TimeEntry, billable bool) {
	w := Warning{
		Kind:        WarnUnresolvedEmployee,
		EmployeeKey: e.EmployeeKey,
		Task:        e.Task,
		Date:        e.Date,
		Hours:       e.Hours,
		Detail:      fmt.Sprintf("employee %q has no directory row; excluded from invoice totals", e.EmployeeKey),
	}
	if billable && e.Hours.IsPositive() {
		r.fail(w)
		return
	}
	r.warn(w)
}

// AddNegativeHours records an entry whose hours are below zero. Always a
// hard error; the entry is carried unpriced so the bad line stays visible.
func (r *Report) AddNegativeHours(e TimeEntry) {
	r.fail(Warning{
		Kind:        WarnNegativeHours,
		EmployeeKey: e.EmployeeKey,
		Task:        e.Task,
		Date:        e.Date,
		Hours:       e.Hours,
		Detail:      fmt.Sprintf("entry carries negative hours (%s); excluded from billing", e.Hours),
	})
}

func (r *Report) AddDirectoryGap(emp Employee, detail string) {
	r.warn(Warning{
		Kind:         WarnDirectoryGap,
		EmployeeKey:  emp.Key,
		EmployeeName: emp.Name,
		Detail:       detail,
	})
}
