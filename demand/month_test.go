package demand_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/demand-engine/demand"
)

func TestMonth_NextAcrossYear(t *testing.T) {
	dec := demand.NewMonth(2023, time.December)
	assert.Equal(t, "2024-01", dec.Next().String())
	assert.Equal(t, "2023-11", dec.Add(-1).String())
}

func TestMonth_Ordering(t *testing.T) {
	// Chronological, not lexicographic on unpadded values
	a := demand.NewMonth(999, time.December)
	b := demand.NewMonth(1000, time.January)

	assert.True(t, a.Before(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 1, a.MonthsUntil(b))
	assert.Equal(t, -13, demand.NewMonth(2024, time.May).MonthsUntil(demand.NewMonth(2023, time.April)))
}

func TestLatestMonth(t *testing.T) {
	_, ok := demand.LatestMonth(nil)
	assert.False(t, ok)

	latest, ok := demand.LatestMonth([]demand.Month{
		demand.NewMonth(2024, time.March),
		demand.NewMonth(2024, time.November),
		demand.NewMonth(2023, time.December),
	})
	require.True(t, ok)
	assert.Equal(t, "2024-11", latest.String())
}

func TestParseMonth(t *testing.T) {
	m, err := demand.ParseMonth("2024-07")
	require.NoError(t, err)
	assert.Equal(t, demand.NewMonth(2024, time.July), m)
	assert.True(t, m.Contains(date(2024, time.July, 31)))
	assert.False(t, m.Contains(date(2024, time.August, 1)))

	_, err = demand.ParseMonth("2024-7-1")
	assert.Error(t, err)
}
