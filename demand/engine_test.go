package demand_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/demand-engine/demand"
	"github.com/warp/demand-engine/demand/store"
	"github.com/warp/demand-engine/factory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestEngine() *demand.Engine {
	e := demand.NewEngine(store.NewMemory(),
		&factory.SmoothingForecaster{Period: 2, Horizon: 30},
		&factory.ARIMAForecaster{})
	e.Workers = 2
	return e
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(product string, at time.Time, qty int64) demand.SalesRecord {
	return demand.SalesRecord{Date: at, Product: demand.ProductID(product), Quantity: demand.NewQuantityFromInt(qty)}
}

// dailyA is product A selling [10,12,9,14,11,13,10,15] on eight consecutive days.
func dailyA() []demand.SalesRecord {
	var out []demand.SalesRecord
	for i, q := range []int64{10, 12, 9, 14, 11, 13, 10, 15} {
		out = append(out, rec("A", date(2024, time.March, 1+i), q))
	}
	return out
}

// monthlyB is product B with monthly totals [20,25,22,30], Jan-Apr 2024,
// split over two sales per month.
func monthlyB() []demand.SalesRecord {
	var out []demand.SalesRecord
	for i, total := range []int64{20, 25, 22, 30} {
		m := time.January + time.Month(i)
		out = append(out,
			rec("B", date(2024, m, 3), total-5),
			rec("B", date(2024, m, 17), 5),
		)
	}
	return out
}

func ingest(t *testing.T, e *demand.Engine, records ...[]demand.SalesRecord) *demand.Dataset {
	var all []demand.SalesRecord
	for _, r := range records {
		all = append(all, r...)
	}
	ds, err := e.Ingest(context.Background(), "test", all)
	require.NoError(t, err)
	return ds
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestEngine_EightDays_SmoothingAndTopProducts(t *testing.T) {
	// GIVEN: Product A with eight consecutive daily sales
	// WHEN: Forecasting with smoothing and ranking the top product
	// THEN: One non-negative whole number; A ranks first with 94

	e := newTestEngine()
	ctx := context.Background()
	ingest(t, e, dailyA())

	batch, err := e.ForecastSmoothing(ctx, demand.One("A"))
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)

	q := batch.Results[0].Quantity
	assert.GreaterOrEqual(t, q, 0.0)
	assert.Equal(t, float64(int64(q)), q)
	assert.Equal(t, "30d", batch.Results[0].Target)

	top, err := e.TopProducts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, demand.ProductID("A"), top[0].Product)
	assert.Equal(t, "94", top[0].Total.String())
}

func TestEngine_FourMonths_MonthlySeriesAndARIMATarget(t *testing.T) {
	// GIVEN: Product B with four monthly totals, January to April
	// WHEN: Reading the monthly series and forecasting with ARIMA
	// THEN: Four rows summing to 97; forecast targets May

	e := newTestEngine()
	ctx := context.Background()
	ingest(t, e, monthlyB())

	rows, err := e.MonthlySeries(ctx, demand.One("B"))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	sum := int64(0)
	for _, r := range rows {
		sum += r.Total.IntPart()
	}
	assert.Equal(t, int64(97), sum)
	assert.Equal(t, "2024-01", rows[0].Period.String())
	assert.Equal(t, "2024-04", rows[3].Period.String())

	batch, err := e.ForecastARIMA(ctx, demand.One("B"))
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "2024-05", batch.Target)
	assert.Equal(t, "2024-05", batch.Results[0].Target)
}

func TestEngine_NoIngest_NoData(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	_, err := e.ForecastSmoothing(ctx, demand.One("A"))
	assert.ErrorIs(t, err, demand.ErrNoData)

	_, err = e.ForecastARIMA(ctx, demand.All())
	assert.ErrorIs(t, err, demand.ErrNoData)

	_, err = e.TopProducts(ctx, 10)
	assert.ErrorIs(t, err, demand.ErrNoData)

	_, err = e.SalesByPeriod(ctx, 1, 2024)
	assert.ErrorIs(t, err, demand.ErrNoData)

	_, err = e.MonthlySeries(ctx, demand.All())
	assert.ErrorIs(t, err, demand.ErrNoData)
}

func TestEngine_SinglePoint_InsufficientDataFromBothModels(t *testing.T) {
	// GIVEN: Product C with exactly one sale
	// WHEN: Forecasting C with either model
	// THEN: InsufficientDataError

	e := newTestEngine()
	ctx := context.Background()
	ingest(t, e, dailyA(), []demand.SalesRecord{rec("C", date(2024, time.March, 2), 4)})

	_, err := e.ForecastSmoothing(ctx, demand.One("C"))
	assert.ErrorIs(t, err, demand.ErrInsufficientData)

	_, err = e.ForecastARIMA(ctx, demand.One("C"))
	assert.ErrorIs(t, err, demand.ErrInsufficientData)

	var ide *demand.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, demand.ProductID("C"), ide.Product)
}

// =============================================================================
// BATCH BEHAVIOR
// =============================================================================

func TestEngine_AllProducts_PartialSuccess(t *testing.T) {
	// GIVEN: A forecastable product and a single-sale product
	// WHEN: Forecasting all products
	// THEN: The batch succeeds with one result and one recorded failure

	e := newTestEngine()
	ctx := context.Background()
	ingest(t, e, dailyA(), []demand.SalesRecord{rec("C", date(2024, time.March, 2), 4)})

	batch, err := e.ForecastSmoothing(ctx, demand.All())
	require.NoError(t, err)

	require.Len(t, batch.Results, 1)
	assert.Equal(t, demand.ProductID("A"), batch.Results[0].Product)

	require.Len(t, batch.Failures, 1)
	assert.Equal(t, demand.ProductID("C"), batch.Failures[0].Product)
	assert.Equal(t, demand.KindInsufficientData, batch.Failures[0].Kind)
}

func TestEngine_AllProducts_SameAsSingleForOverlap(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	ingest(t, e, dailyA(), monthlyB())

	all, err := e.ForecastSmoothing(ctx, demand.All())
	require.NoError(t, err)

	for _, r := range all.Results {
		one, err := e.ForecastSmoothing(ctx, demand.One(r.Product))
		require.NoError(t, err)
		assert.Equal(t, r, one.Results[0])
	}
}

func TestEngine_AllProducts_SortedDescending(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	// D mirrors A at ten times the volume
	var d []demand.SalesRecord
	for _, r := range dailyA() {
		d = append(d, rec("D", r.Date, r.Quantity.IntPart()*10))
	}
	ingest(t, e, dailyA(), d)

	batch, err := e.ForecastSmoothing(ctx, demand.All())
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)

	assert.GreaterOrEqual(t, batch.Results[0].Quantity, batch.Results[1].Quantity)
	assert.Equal(t, demand.ProductID("D"), batch.Results[0].Product)
}

func TestEngine_ARIMABatch_SharedTargetAcrossProducts(t *testing.T) {
	// GIVEN: B ends in April, E ends in March
	// WHEN: Forecasting all products with ARIMA
	// THEN: Both forecasts target May

	e := newTestEngine()
	ctx := context.Background()
	ingest(t, e, monthlyB(), []demand.SalesRecord{
		rec("E", date(2024, time.January, 10), 5),
		rec("E", date(2024, time.February, 10), 9),
		rec("E", date(2024, time.March, 10), 7),
	})

	batch, err := e.ForecastARIMA(ctx, demand.All())
	require.NoError(t, err)

	assert.Equal(t, "2024-05", batch.Target)
	require.Len(t, batch.Results, 2)
	for _, r := range batch.Results {
		assert.Equal(t, "2024-05", r.Target, "product %s", r.Product)
	}

	// single-product calls use the same dataset-wide target
	one, err := e.ForecastARIMA(ctx, demand.One("E"))
	require.NoError(t, err)
	assert.Equal(t, "2024-05", one.Results[0].Target)
}

func TestEngine_Idempotent(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	ingest(t, e, dailyA(), monthlyB())

	s1, err := e.ForecastSmoothing(ctx, demand.All())
	require.NoError(t, err)
	s2, err := e.ForecastSmoothing(ctx, demand.All())
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	a1, err := e.ForecastARIMA(ctx, demand.All())
	require.NoError(t, err)
	a2, err := e.ForecastARIMA(ctx, demand.All())
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	t1, _ := e.TopProducts(ctx, 5)
	t2, _ := e.TopProducts(ctx, 5)
	assert.Equal(t, t1, t2)
}

// =============================================================================
// ERRORS AND INGEST
// =============================================================================

func TestEngine_UnknownProduct(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	ingest(t, e, dailyA())

	_, err := e.ForecastSmoothing(ctx, demand.One("nope"))
	assert.True(t, demand.IsNotFound(err))

	_, err = e.MonthlySeries(ctx, demand.One("nope"))
	assert.ErrorIs(t, err, demand.ErrProductNotFound)
}

func TestEngine_ZeroSelection_Rejected(t *testing.T) {
	e := newTestEngine()
	ingest(t, e, dailyA())

	_, err := e.ForecastSmoothing(context.Background(), demand.Selection{})
	assert.True(t, demand.IsClientError(err))
}

func TestEngine_Ingest_Validation(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	_, err := e.Ingest(ctx, "test", nil)
	assert.ErrorIs(t, err, demand.ErrValidation)

	bad := dailyA()
	bad[2].Quantity = demand.NewQuantityFromInt(-1)
	_, err = e.Ingest(ctx, "test", bad)

	var ve *demand.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 3, ve.Row)
	assert.Equal(t, "quantity", ve.Field)

	// rejected ingest leaves the store empty
	_, err = e.Dataset(ctx)
	assert.ErrorIs(t, err, demand.ErrNoData)
}

func TestEngine_Ingest_ReplacesDataset(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	first := ingest(t, e, dailyA())
	second := ingest(t, e, monthlyB())

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []demand.ProductID{"A"}, first.Products, "earlier snapshot is unchanged")

	current, err := e.Dataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
	assert.Equal(t, []demand.ProductID{"B"}, current.Products)
}

func TestEngine_SalesByPeriod(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	ingest(t, e, dailyA(), monthlyB())

	ps, err := e.SalesByPeriod(ctx, 3, 2024)
	require.NoError(t, err)

	assert.Equal(t, "116", ps.Total.String()) // A 94 + B 22
	require.Len(t, ps.ByProduct, 2)
	assert.Equal(t, demand.ProductID("A"), ps.ByProduct[0].Product)
	assert.Equal(t, "22", ps.ByProduct[1].Total.String())

	_, err = e.SalesByPeriod(ctx, 13, 2024)
	assert.ErrorIs(t, err, demand.ErrValidation)
}
