/*
Package billing implements the billing computation engine for a
multi-location services contract.

PURPOSE:
  Turns raw timekeeping entries into invoice-ready hour and cost rollups:
  effective-dated rate resolution, task classification, the entry/rate/
  allowance join, and multi-level aggregation with derived quantities
  (regular/overtime splits, wages, posting and hazard differential pay,
  G&A upcharge).

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeEntry: One raw timekeeping line (immutable input)
  - Employee/Directory: Who worked, their role, post, and contract line
  - RateRecord: Effective-dated labor pay/bill rates, keyed by role
  - AllowanceRecord: Effective-dated post/hazard differentials, keyed by post
  - JoinedEntry: A time entry with everything resolved and priced

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every hour and money value
  2. Immutability: Inputs are never mutated; every run recomputes from
     scratch and is idempotent
  3. Explicit gaps: Missing rates and unknown tasks become warnings on a
     Report, never silent zeros

USAGE:
  joined := billing.Join(billing.JoinInput{...}, report)
  rollups, err := billing.Aggregate(joined, keys, policy, report)

SEE ALSO:
  - classifier.go: Task code/label to category mapping
  - rates.go: The two effective-dated books
  - join.go: The join engine
  - aggregate.go: Rollups and derived columns
*/
package billing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/generic"
)

// =============================================================================
// TIME ENTRY - Raw timekeeping line
// =============================================================================

// ApprovalState is the workflow state a time entry was exported in.
type ApprovalState string

const (
	StateDraft     ApprovalState = "draft"
	StateSubmitted ApprovalState = "submitted"
	StateApproved  ApprovalState = "approved"
	StateDeclined  ApprovalState = "declined"
)

// TimeEntry is one line of timekeeping data as produced by ingestion.
// Entries are immutable once loaded; the contract line is assigned by the
// employee's role, not carried on the entry.
type TimeEntry struct {
	ID          string
	EmployeeKey string
	Date        generic.TimePoint
	Task        string // numeric task code or free-text label
	Hours       decimal.Decimal
	State       ApprovalState
	Description string // optional free text from the source export
}

// EntryPeriod returns the inclusive date span covered by a set of entries.
// Invoices and approval reports are labeled with this billing period.
func EntryPeriod(entries []TimeEntry) generic.Period {
	var p generic.Period
	for _, e := range entries {
		if p.Start.IsZero() || e.Date.Before(p.Start) {
			p.Start = e.Date
		}
		if p.End.IsZero() || e.Date.After(p.End) {
			p.End = e.Date
		}
	}
	return p
}

// =============================================================================
// EMPLOYEE DIRECTORY - Role, post, and contract line assignment
// =============================================================================

// Employee is one directory row. RoleKey selects the labor rate history,
// Post selects the allowance history, CLIN/SubCLIN route billed hours to
// invoice lines.
type Employee struct {
	Key           string
	Name          string
	RoleKey       string
	Post          string // duty post used for allowance lookup
	City          string // display city, usually the post itself
	Location      string // country
	Region        string // e.g. "Europe"
	CLIN          string
	SubCLIN       string // may carry an 'X' base-year placeholder
	LaborCategory string // contract labor category, e.g. "Electrician III"
}

// Directory is the employee lookup table for one run.
type Directory struct {
	byKey map[string]Employee
	order []string
}

func NewDirectory(employees ...Employee) *Directory {
	d := &Directory{byKey: make(map[string]Employee)}
	for _, e := range employees {
		d.Add(e)
	}
	return d
}

func (d *Directory) Add(e Employee) {
	if _, exists := d.byKey[e.Key]; !exists {
		d.order = append(d.order, e.Key)
	}
	d.byKey[e.Key] = e
}

func (d *Directory) Lookup(key string) (Employee, bool) {
	e, ok := d.byKey[key]
	return e, ok
}

func (d *Directory) Len() int { return len(d.byKey) }

// All returns employees sorted by key.
func (d *Directory) All() []Employee {
	keys := append([]string(nil), d.order...)
	sort.Strings(keys)
	out := make([]Employee, 0, len(keys))
	for _, k := range keys {
		out = append(out, d.byKey[k])
	}
	return out
}

// CheckMissing reports directory rows that cannot participate in a join:
// employees without a role key (no rate lookup possible) or without a post
// (no allowance lookup possible). The predecessor system let these slide
// until invoice review; surfacing them up front is cheaper.
func (d *Directory) CheckMissing(report *Report) {
	for _, e := range d.All() {
		if strings.TrimSpace(e.RoleKey) == "" {
			report.AddDirectoryGap(e, "missing role key")
		}
		if strings.TrimSpace(e.Post) == "" {
			report.AddDirectoryGap(e, "missing duty post")
		}
	}
}

// =============================================================================
// RATE RECORDS - Effective-dated labor rates and post allowances
// =============================================================================

// RateRecord is one version of a role's labor rates. HourlyRate* is what the
// employee is paid, BillRate* is what the government is billed.
type RateRecord struct {
	EntityKey     string // role key, occasionally an individual employee key
	Effective     generic.TimePoint
	HourlyRateReg decimal.Decimal
	HourlyRateOT  decimal.Decimal
	BillRateReg   decimal.Decimal
	BillRateOT    decimal.Decimal
}

func (r RateRecord) HistoryKey() string             { return r.EntityKey }
func (r RateRecord) EffectiveOn() generic.TimePoint { return r.Effective }

// AllowanceRecord is one version of a post's differential rates, expressed
// as fractions of regular wages (0.15, not 15).
type AllowanceRecord struct {
	Post        string
	Effective   generic.TimePoint
	PostingRate decimal.Decimal
	HazardRate  decimal.Decimal
}

func (a AllowanceRecord) HistoryKey() string             { return a.Post }
func (a AllowanceRecord) EffectiveOn() generic.TimePoint { return a.Effective }

// Compile-time checks that both record types resolve through the same engine.
var (
	_ generic.Effective = RateRecord{}
	_ generic.Effective = AllowanceRecord{}
)

// =============================================================================
// JOINED ENTRY - A time entry with everything resolved
// =============================================================================

// JoinedEntry is a TimeEntry joined to its employee, rate, allowance, and
// classification. Derived per run, never persisted.
type JoinedEntry struct {
	Entry    TimeEntry
	Employee Employee

	Category TaskCategory
	Class    BillingClass

	Rate      RateRecord
	Allowance AllowanceRecord

	BilledRate   decimal.Decimal
	BilledAmount decimal.Decimal

	// Gap flags. A flagged entry still carries hours for reporting but
	// contributes zero to the flagged amount.
	Unresolved   bool // no directory match
	RateGap      bool
	AllowanceGap bool
}

// wageHours returns the hours that count toward differential-pay wages
// under the given basis.
func (j JoinedEntry) wageHours(basis WagesBasis) decimal.Decimal {
	switch basis {
	case BasisAllRegularHours:
		if !regularCategories[j.Category] {
			return decimal.Zero
		}
	default: // BasisRegularTask
		if j.Category != CategoryRegular {
			return decimal.Zero
		}
	}
	return j.Entry.Hours
}

// Wages returns the entry's contribution to differential-pay wages:
// basis hours times the resolved regular pay rate.
func (j JoinedEntry) Wages(basis WagesBasis) decimal.Decimal {
	return j.wageHours(basis).Mul(j.Rate.HourlyRateReg)
}
