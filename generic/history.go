/*
Package generic provides the domain-agnostic core of the billing engine.

PURPOSE:
  This package contains the types and algorithms shared by every
  effective-dated table in the system. Whether resolving an employee's
  labor rates or a duty post's differential allowances, the same history
  structure and the same resolution algorithm apply.

KEY CONCEPTS IN THIS FILE (history.go):
  - Effective: A versioned fact with a key and an effective date
  - History: An insertion-ordered collection of effective-dated records
  - Resolve: The single rate-resolution algorithm (latest applicable version)

DESIGN PRINCIPLES:
  1. One algorithm: Resolution is implemented exactly once and instantiated
     per record type. Duplicating it per table is how the predecessor
     system accumulated inconsistent rate lookups.
  2. Explicit gaps: A failed resolution is an error value, never a silent
     zero. Callers decide how to recover and must surface a warning.
  3. Determinism: Equal effective dates resolve to the last-inserted
     record, so identical inputs always yield identical outputs.

USAGE:
  history := generic.NewHistory[RateRecord]()
  history.Add(rec2023)
  history.Add(rec2024)
  rec, err := history.Resolve("electrician-iii", asOf)

SEE ALSO:
  - errors.go: Resolution error types
  - time.go: TimePoint and Period
  - billing/rates.go: The two domain instantiations
*/
package generic

import "sort"

// =============================================================================
// EFFECTIVE - A versioned, keyed fact
// =============================================================================

// Effective is a record that is valid from its effective date until
// superseded by a later-dated record for the same key.
type Effective interface {
	// HistoryKey returns the key the record is versioned under
	// (a role identifier, a post name, ...).
	HistoryKey() string

	// EffectiveOn returns the date the record takes effect.
	EffectiveOn() TimePoint
}

// =============================================================================
// HISTORY - Insertion-ordered effective-dated records
// =============================================================================

// History holds the full version history for one kind of effective-dated
// record. It is loaded once per run and never mutated afterwards.
type History[R Effective] struct {
	records []R
}

func NewHistory[R Effective](records ...R) *History[R] {
	h := &History[R]{}
	for _, r := range records {
		h.Add(r)
	}
	return h
}

// Add appends a record. Insertion order is significant: if two records for
// the same key carry the same effective date, the later-inserted one wins
// resolution.
func (h *History[R]) Add(r R) {
	h.records = append(h.records, r)
}

// Len returns the total number of records across all keys.
func (h *History[R]) Len() int { return len(h.records) }

// Keys returns the distinct keys in the history, sorted.
func (h *History[R]) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range h.records {
		if !seen[r.HistoryKey()] {
			seen[r.HistoryKey()] = true
			keys = append(keys, r.HistoryKey())
		}
	}
	sort.Strings(keys)
	return keys
}

// ForKey returns all records for a key in insertion order.
func (h *History[R]) ForKey(key string) []R {
	var out []R
	for _, r := range h.records {
		if r.HistoryKey() == key {
			out = append(out, r)
		}
	}
	return out
}

// Resolve returns the record for key whose effective date is the latest one
// not after asOf. Records for other keys and records effective after asOf
// are ignored. When two candidates share the maximum effective date the
// last-inserted record wins. When no candidate remains, Resolve returns a
// NotFoundError; callers must surface the gap, not default to zero.
func (h *History[R]) Resolve(key string, asOf TimePoint) (R, error) {
	var (
		best      R
		found     bool
		keyExists bool
	)
	for _, r := range h.records {
		if r.HistoryKey() != key {
			continue
		}
		keyExists = true
		if r.EffectiveOn().After(asOf) {
			continue
		}
		// >= keeps the last-inserted record on effective-date ties.
		if !found || r.EffectiveOn().AfterOrEqual(best.EffectiveOn()) {
			best = r
			found = true
		}
	}
	if !found {
		var zero R
		return zero, &NotFoundError{Key: key, AsOf: asOf, KeyExists: keyExists}
	}
	return best, nil
}
