package demand_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/demand-engine/demand"
)

func TestBuildSeries_SortsAndSumsSameDay(t *testing.T) {
	// GIVEN: Out-of-order records with two sales on March 2
	// WHEN: Building the series
	// THEN: One point per day, ascending, same-day quantities summed

	records := []demand.SalesRecord{
		rec("A", date(2024, time.March, 3), 7),
		rec("A", date(2024, time.March, 1), 4),
		rec("B", date(2024, time.March, 1), 99),
		rec("A", time.Date(2024, time.March, 2, 9, 30, 0, 0, time.UTC), 2),
		rec("A", date(2024, time.March, 2), 3),
		rec("A", date(2024, time.March, 4), 1),
	}

	s, err := demand.BuildSeries(records, "A", 2)
	require.NoError(t, err)

	require.Equal(t, 4, s.Len())
	assert.Equal(t, []float64{4, 5, 7, 1}, s.Values())
	for i := 1; i < s.Len(); i++ {
		assert.True(t, s.Points[i-1].Date.Before(s.Points[i].Date))
	}
}

func TestBuildSeries_TooShort(t *testing.T) {
	records := []demand.SalesRecord{
		rec("A", date(2024, time.March, 1), 4),
		rec("A", date(2024, time.March, 2), 5),
		rec("A", date(2024, time.March, 3), 6),
	}

	// period 2 needs four points
	s, err := demand.BuildSeries(records, "A", 2)
	assert.ErrorIs(t, err, demand.ErrInsufficientData)
	assert.Equal(t, 3, s.Len(), "series is still returned")

	var ide *demand.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 4, ide.Need)
	assert.Equal(t, "points", ide.Unit)

	// non-seasonal needs two
	_, err = demand.BuildSeries(records, "A", 0)
	assert.NoError(t, err)
}

func TestBuildSeries_UnknownProduct(t *testing.T) {
	_, err := demand.BuildSeries(dailyA(), "Z", 2)
	assert.ErrorIs(t, err, demand.ErrProductNotFound)
}

func TestMinSeriesPoints(t *testing.T) {
	assert.Equal(t, 2, demand.MinSeriesPoints(0))
	assert.Equal(t, 2, demand.MinSeriesPoints(1))
	assert.Equal(t, 4, demand.MinSeriesPoints(2))
	assert.Equal(t, 14, demand.MinSeriesPoints(7))
}

func TestMonthlySeries_ChronologicalNoGapFill(t *testing.T) {
	records := []demand.SalesRecord{
		rec("A", date(2024, time.January, 5), 1),
		rec("A", date(2024, time.January, 20), 2),
		rec("A", date(2024, time.April, 1), 4),
		rec("A", date(2023, time.December, 31), 8),
	}
	s, err := demand.BuildSeries(records, "A", 0)
	require.NoError(t, err)

	rows := demand.MonthlySeries(s)

	require.Len(t, rows, 3)
	assert.Equal(t, "2023-12", rows[0].Period.String())
	assert.Equal(t, "2024-01", rows[1].Period.String())
	assert.Equal(t, "3", rows[1].Total.String())
	assert.Equal(t, "2024-04", rows[2].Period.String())
}
