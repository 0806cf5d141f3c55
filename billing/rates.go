/*
rates.go - The two effective-dated books

PURPOSE:
  Instantiates the generic effective-dated history twice: once for labor
  rates keyed by role, once for post allowances keyed by duty post. Both
  share one resolution algorithm (generic.History.Resolve); the books only
  add domain naming and analysis helpers.

SEE ALSO:
  - generic/history.go: The shared resolution algorithm
  - join.go: Resolves both books per run
*/
package billing

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/generic"
)

// =============================================================================
// RATE BOOK - Labor rate history keyed by role
// =============================================================================

type RateBook struct {
	history *generic.History[RateRecord]
}

func NewRateBook(records ...RateRecord) *RateBook {
	return &RateBook{history: generic.NewHistory[RateRecord](records...)}
}

func (b *RateBook) Add(r RateRecord) { b.history.Add(r) }
func (b *RateBook) Len() int         { return b.history.Len() }
func (b *RateBook) Keys() []string   { return b.history.Keys() }

// ForKey returns every rate version recorded for roleKey, oldest first.
func (b *RateBook) ForKey(roleKey string) []RateRecord { return b.history.ForKey(roleKey) }

// Resolve returns the rate record for roleKey effective as of asOf.
func (b *RateBook) Resolve(roleKey string, asOf generic.TimePoint) (RateRecord, error) {
	return b.history.Resolve(roleKey, asOf)
}

// =============================================================================
// ALLOWANCE BOOK - Post/hazard differential history keyed by post
// =============================================================================

type AllowanceBook struct {
	history *generic.History[AllowanceRecord]
}

func NewAllowanceBook(records ...AllowanceRecord) *AllowanceBook {
	return &AllowanceBook{history: generic.NewHistory[AllowanceRecord](records...)}
}

func (b *AllowanceBook) Add(r AllowanceRecord) { b.history.Add(r) }
func (b *AllowanceBook) Len() int              { return b.history.Len() }
func (b *AllowanceBook) Keys() []string        { return b.history.Keys() }

// ForKey returns every allowance version recorded for post, oldest first.
func (b *AllowanceBook) ForKey(post string) []AllowanceRecord { return b.history.ForKey(post) }

// Resolve returns the allowance record for post effective as of asOf.
func (b *AllowanceBook) Resolve(post string, asOf generic.TimePoint) (AllowanceRecord, error) {
	return b.history.Resolve(post, asOf)
}

// =============================================================================
// MARGIN ANALYSIS
// =============================================================================

// Margin is the spread between what a role bills and what it pays,
// used for contract-line profitability review.
type Margin struct {
	RoleKey    string
	HourlyReg  decimal.Decimal
	BillReg    decimal.Decimal
	MarginReg  decimal.Decimal // BillReg - HourlyReg
	MarginRate decimal.Decimal // MarginReg / HourlyReg, zero when pay rate is zero
}

// Margins computes the regular-rate margin for every role in the book as
// of a date, sorted by margin rate descending then role key for
// determinism. Roles with no record effective as of the date are skipped.
func (b *RateBook) Margins(asOf generic.TimePoint) []Margin {
	var out []Margin
	for _, role := range b.Keys() {
		rec, err := b.Resolve(role, asOf)
		if err != nil {
			continue
		}
		m := Margin{
			RoleKey:   role,
			HourlyReg: rec.HourlyRateReg,
			BillReg:   rec.BillRateReg,
			MarginReg: rec.BillRateReg.Sub(rec.HourlyRateReg),
		}
		if !rec.HourlyRateReg.IsZero() {
			m.MarginRate = m.MarginReg.Div(rec.HourlyRateReg)
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MarginRate.Equal(out[j].MarginRate) {
			return out[i].MarginRate.GreaterThan(out[j].MarginRate)
		}
		return out[i].RoleKey < out[j].RoleKey
	})
	return out
}
