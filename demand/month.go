package demand

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - The calendar period used as the monthly grouping key
// =============================================================================

// Month is a calendar month with a defined chronological ordering.
// The period key "YYYY-MM" is only a rendering; comparisons never rely on
// string order.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth builds a Month, normalizing out-of-range months (13 -> next January).
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" period key.
func ParseMonth(key string) (Month, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return Month{}, fmt.Errorf("invalid period key %q (use YYYY-MM): %w", key, err)
	}
	return MonthOf(t), nil
}

// String returns the zero-padded "YYYY-MM" period key.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start returns the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the month.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, -1)
}

// Next returns the following calendar month.
func (m Month) Next() Month { return m.Add(1) }

// Add shifts the month by n calendar months.
func (m Month) Add(n int) Month { return NewMonth(m.Year, m.Month+time.Month(n)) }

// Compare returns -1, 0 or +1.
func (m Month) Compare(other Month) int {
	switch {
	case m.Year < other.Year:
		return -1
	case m.Year > other.Year:
		return 1
	case m.Month < other.Month:
		return -1
	case m.Month > other.Month:
		return 1
	}
	return 0
}

// MonthsUntil returns the number of calendar months from m to other,
// negative when other is earlier.
func (m Month) MonthsUntil(other Month) int {
	return (other.Year-m.Year)*12 + int(other.Month) - int(m.Month)
}

func (m Month) Before(other Month) bool { return m.Compare(other) < 0 }
func (m Month) After(other Month) bool  { return m.Compare(other) > 0 }
func (m Month) IsZero() bool            { return m.Year == 0 && m.Month == 0 }

// Contains reports whether t falls in the month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// LatestMonth returns the chronologically last month in ms.
// The second result is false when ms is empty.
func LatestMonth(ms []Month) (Month, bool) {
	if len(ms) == 0 {
		return Month{}, false
	}
	latest := ms[0]
	for _, m := range ms[1:] {
		if m.After(latest) {
			latest = m
		}
	}
	return latest, true
}
