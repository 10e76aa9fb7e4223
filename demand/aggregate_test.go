package demand_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/demand-engine/demand"
)

func mixedRecords() []demand.SalesRecord {
	return []demand.SalesRecord{
		rec("pan", date(2024, time.January, 3), 10),
		rec("leche", date(2024, time.January, 4), 5),
		rec("pan", date(2024, time.February, 1), 7),
		rec("cafe", date(2024, time.February, 9), 12),
		rec("leche", date(2024, time.February, 9), 7),
		rec("pan", date(2024, time.January, 28), 3),
	}
}

func TestMonthlyTotals_GroupsByProductAndMonth(t *testing.T) {
	aggs := demand.MonthlyTotals(mixedRecords())

	require.Len(t, aggs, 5)
	// product first encounter, then month
	assert.Equal(t, demand.ProductID("pan"), aggs[0].Product)
	assert.Equal(t, "2024-01", aggs[0].Period.String())
	assert.Equal(t, "13", aggs[0].Total.String())
	assert.Equal(t, "2024-02", aggs[1].Period.String())
	assert.Equal(t, demand.ProductID("leche"), aggs[2].Product)
	assert.Equal(t, demand.ProductID("cafe"), aggs[4].Product)
}

func TestMonthlyTotals_PreservesProductTotals(t *testing.T) {
	// GIVEN: Any dataset
	// WHEN: Summing a product's monthly totals
	// THEN: They equal the product's raw total

	records := mixedRecords()
	aggs := demand.MonthlyTotals(records)

	for _, p := range demand.DistinctProducts(records) {
		var raw []demand.SalesRecord
		for _, r := range records {
			if r.Product == p {
				raw = append(raw, r)
			}
		}
		totals := demand.ProductTotals(demand.FilterProduct(aggs, p))
		require.Len(t, totals, 1)
		assert.True(t, demand.GrandTotal(raw).Equal(totals[0].Total), "product %s", p)
	}
}

func TestTopN_OrderAndTies(t *testing.T) {
	// GIVEN: pan 20, leche 12, cafe 12
	// WHEN: Ranking
	// THEN: Descending, ties by product id

	top, err := demand.TopN(demand.MonthlyTotals(mixedRecords()), 10)
	require.NoError(t, err)

	require.Len(t, top, 3)
	assert.Equal(t, demand.ProductID("pan"), top[0].Product)
	assert.Equal(t, demand.ProductID("cafe"), top[1].Product)
	assert.Equal(t, demand.ProductID("leche"), top[2].Product)
}

func TestTopN_AtMostNAndBoundedByGrandTotal(t *testing.T) {
	records := mixedRecords()
	grand := demand.GrandTotal(records)

	for n := 1; n <= 4; n++ {
		top, err := demand.TopN(demand.MonthlyTotals(records), n)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(top), n)

		sum := demand.NewQuantityFromInt(0)
		for _, pt := range top {
			sum = sum.Add(pt.Total)
		}
		assert.True(t, sum.LessThanOrEqual(grand))
	}
}

func TestTopN_NonPositive(t *testing.T) {
	_, err := demand.TopN(nil, 0)
	assert.ErrorIs(t, err, demand.ErrValidation)
}

func TestSalesInPeriod(t *testing.T) {
	ps, err := demand.SalesInPeriod(mixedRecords(), 2, 2024)
	require.NoError(t, err)

	assert.Equal(t, "26", ps.Total.String())
	assert.Equal(t, []demand.ProductID{"cafe", "leche", "pan"}, []demand.ProductID{
		ps.ByProduct[0].Product, ps.ByProduct[1].Product, ps.ByProduct[2].Product,
	})

	empty, err := demand.SalesInPeriod(mixedRecords(), 6, 2024)
	require.NoError(t, err)
	assert.True(t, empty.Total.IsZero())
	assert.Empty(t, empty.ByProduct)
}

func TestSalesInPeriod_InvalidInput(t *testing.T) {
	for _, tc := range []struct{ month, year int }{{0, 2024}, {13, 2024}, {5, 0}} {
		_, err := demand.SalesInPeriod(mixedRecords(), tc.month, tc.year)
		var ve *demand.ValidationError
		assert.ErrorAs(t, err, &ve, "month=%d year=%d", tc.month, tc.year)
	}
}

func TestDistinctProducts_EachOnce(t *testing.T) {
	products := demand.DistinctProducts(mixedRecords())
	assert.ElementsMatch(t, []demand.ProductID{"pan", "leche", "cafe"}, products)
}
