package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - Day-granularity dates (billing runs never care about clock time)
// =============================================================================

// TimePoint is a calendar date in UTC. Effective dates, work dates, and
// as-of dates are all TimePoints; normalizing here keeps every comparison
// in the engine consistent regardless of how the source system stamped
// its timestamps.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func NewTimePointFromTime(t time.Time) TimePoint {
	return TimePoint{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseTimePoint parses a date in ISO format ("2006-01-02").
func ParseTimePoint(s string) (TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return TimePoint{}, err
	}
	return NewTimePointFromTime(t), nil
}

func Today() TimePoint {
	return NewTimePointFromTime(time.Now())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	return tp.Time.Format("2006-01-02")
}

// MonthName returns the full month name ("February"), used in billing
// period labels.
func (tp TimePoint) MonthName() string {
	return tp.Time.Format("January")
}

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] date range. A billing run reports
// the span of work dates it covered as its Period.
type Period struct {
	Start TimePoint
	End   TimePoint
}

func (p Period) Contains(tp TimePoint) bool {
	return tp.AfterOrEqual(p.Start) && tp.BeforeOrEqual(p.End)
}

func (p Period) IsValid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && p.Start.BeforeOrEqual(p.End)
}

// Label renders the period the way invoices reference it, e.g.
// "February 2024" for a period within one month, otherwise
// "2024-02-01 to 2024-03-15".
func (p Period) Label() string {
	if p.Start.Year() == p.End.Year() && p.Start.Month() == p.End.Month() {
		return p.Start.MonthName() + " " + p.Start.Time.Format("2006")
	}
	return p.Start.String() + " to " + p.End.String()
}
