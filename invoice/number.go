/*
number.go - Invoice numbering and history

PURPOSE:
  Invoice numbers are sequential per contract, with a per-location suffix
  so each country's labor invoice is distinct. The number/amount pairs of
  issued invoices are kept as history so a rerun never re-issues a number
  and reviewers can reconcile against prior billing.

SEE ALSO:
  - store/sqlite: Persists the history
*/
package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/generic"
)

// Sequence issues invoice numbers from a configured starting value.
// Not safe for concurrent use; numbering happens in the single-threaded
// assembly step.
type Sequence struct {
	prefix string
	next   int
}

// NewSequence returns a sequence that issues prefix+number, e.g.
// "SDI-1041". next is the configured next-invoice-number.
func NewSequence(prefix string, next int) *Sequence {
	return &Sequence{prefix: prefix, next: next}
}

// Next issues the next base number.
func (s *Sequence) Next() string {
	n := fmt.Sprintf("%s%d", s.prefix, s.next)
	s.next++
	return n
}

// Peek returns the number Next would issue, without consuming it.
func (s *Sequence) Peek() int { return s.next }

// WithSuffix renders a location-qualified invoice number, e.g.
// "SDI-1041" + "UKR" -> "SDI-1041UKR".
func WithSuffix(base, suffix string) string {
	return base + suffix
}

// HistoryEntry is one issued invoice.
type HistoryEntry struct {
	Number     string
	Amount     decimal.Decimal
	RecordedOn generic.TimePoint
}

// HistoryStore is the persistence boundary for issued invoices.
type HistoryStore interface {
	RecordInvoice(entry HistoryEntry) error
	InvoiceHistory() ([]HistoryEntry, error)
}
