/*
policy.go - Named, versioned aggregation policies

PURPOSE:
  The predecessor scattered small business-rule variations across dozens
  of report scripts: which states count, which hours feed differential
  wages, whether zero-cost rows survive. Those variations are now named
  policies selected explicitly by the caller.

THE TWO SHIPPED POLICIES:
  InvoicingPolicy:     Approved entries only, zero-differential rows
                       dropped from cost rollups. Feeds invoices.
  HoursApprovalPolicy: Every state included, zero rows kept. Feeds the
                       hours-approval report a post signs off on.

WAGES BASIS:
  The source revisions disagree on whether differential wages use
  Regular-category hours only or all regular-classified hours. That is a
  business-rule ambiguity, not a bug, so it is a policy knob with the
  Regular-category basis as the shipped default.

SEE ALSO:
  - aggregate.go: Applies the policy
  - factory/: Builds policies from contract config
*/
package billing

import "github.com/shopspring/decimal"

// =============================================================================
// POLICY KNOBS
// =============================================================================

// ApprovalMode selects which entry states an aggregation includes.
type ApprovalMode string

const (
	// ModeApprovedOnly includes only Approved entries; others are counted
	// as StateMismatch warnings.
	ModeApprovedOnly ApprovalMode = "approved_only"
	// ModeAllStates includes every entry regardless of state.
	ModeAllStates ApprovalMode = "all_states"
)

// WagesBasis selects which hours feed the differential-pay wage base.
type WagesBasis string

const (
	// BasisRegularTask uses Regular-category hours only (current business rule).
	BasisRegularTask WagesBasis = "regular_task_hours"
	// BasisAllRegularHours uses every regular-classified hour (older revisions).
	BasisAllRegularHours WagesBasis = "all_regular_hours"
)

// RowFilter selects which rollup rows survive aggregation.
type RowFilter string

const (
	// FilterKeepAll retains every row.
	FilterKeepAll RowFilter = "keep_all"
	// FilterDropZeroDifferential drops rows with zero posting and hazard
	// pay. Cost invoices use this; hours-approval reports must not.
	FilterDropZeroDifferential RowFilter = "drop_zero_differential"
)

// =============================================================================
// POLICY
// =============================================================================

// Policy is a complete, named aggregation ruleset.
type Policy struct {
	Name    string
	Version int

	Mode       ApprovalMode
	WagesBasis WagesBasis
	Filter     RowFilter

	// Upcharge is the contract-wide G&A fraction applied to differential pay.
	Upcharge decimal.Decimal
}

// InvoicingPolicy is the ruleset for invoice generation.
func InvoicingPolicy(upcharge decimal.Decimal) Policy {
	return Policy{
		Name:       "invoicing",
		Version:    1,
		Mode:       ModeApprovedOnly,
		WagesBasis: BasisRegularTask,
		Filter:     FilterDropZeroDifferential,
		Upcharge:   upcharge,
	}
}

// HoursApprovalPolicy is the ruleset for hours-approval and status
// reporting. Unapproved hours are exactly what the report exists to show.
func HoursApprovalPolicy(upcharge decimal.Decimal) Policy {
	return Policy{
		Name:       "hours_approval",
		Version:    1,
		Mode:       ModeAllStates,
		WagesBasis: BasisRegularTask,
		Filter:     FilterKeepAll,
		Upcharge:   upcharge,
	}
}

// ForHours returns a copy of the policy with row filtering disabled. Hour
// reports keep zero-differential rows by business policy even when the
// parent policy drops them from cost rollups.
func (p Policy) ForHours() Policy {
	p.Filter = FilterKeepAll
	return p
}

// Includes reports whether the policy's approval mode admits the entry.
func (p Policy) Includes(e TimeEntry) bool {
	return p.Mode != ModeApprovedOnly || e.State == StateApproved
}
