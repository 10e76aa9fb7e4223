/*
engine.go - The Orchestrator

PURPOSE:
  One entry point per core operation. Each call takes a snapshot of the
  Record Store, runs the Series Builder and the chosen Forecaster (or the
  Aggregator) over it, and returns plain values or a classified error.

DISPATCH:
  One(product):
    Build that product's series, forecast it, return the error as-is on
    failure.

  All():
    Forecast every distinct product in parallel. A product that cannot be
    forecast is recorded in Failures and the batch still succeeds.
    Results are sorted by quantity descending, ties by product id.

TARGET PERIOD:
  The "next month" target is computed once per batch from the whole
  dataset (latest observed month + 1) so every product forecasts the same
  period, even when individual series end earlier.

EXAMPLE:
  engine := demand.NewEngine(store.NewMemory(), smoothingFc, arimaFc)
  _, _ = engine.Ingest(ctx, "upload:ventas.csv", records)

  batch, err := engine.ForecastARIMA(ctx, demand.All())
  for _, r := range batch.Results {
      fmt.Println(r.Product, r.Target, r.Quantity)
  }

SEE ALSO:
  - series.go: Series Builder
  - aggregate.go: Aggregator/Ranker
  - factory/model.go: Forecaster implementations
*/
package demand

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Forecaster fits one model to one product series.
type Forecaster interface {
	// Name identifies the model in results and logs.
	Name() string

	// SeasonalPeriod is passed to BuildSeries to size its minimum length.
	// Zero for non-seasonal models.
	SeasonalPeriod() int

	// TargetLabel describes what a forecast covers given the batch target
	// month, e.g. "30d" or "2024-05".
	TargetLabel(target Month) string

	// Forecast returns the predicted quantity for series.
	Forecast(ctx context.Context, series ProductTimeSeries, target Month) (float64, error)
}

// ForecastFailure is a product dropped from a batch.
type ForecastFailure struct {
	Product ProductID
	Kind    ErrorKind
	Err     error
}

// BatchForecast is the output of a forecast operation.
type BatchForecast struct {
	Model     string
	Target    string
	DatasetID string
	Results   []ForecastResult
	Failures  []ForecastFailure
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs the core operations against a Store.
type Engine struct {
	Store     Store
	Smoothing Forecaster
	ARIMA     Forecaster
	Workers   int // parallel fits in a batch; <= 0 means GOMAXPROCS
}

// NewEngine creates an engine with one worker per CPU.
func NewEngine(store Store, smoothing, arima Forecaster) *Engine {
	return &Engine{
		Store:     store,
		Smoothing: smoothing,
		ARIMA:     arima,
		Workers:   runtime.GOMAXPROCS(0),
	}
}

// Ingest validates records and replaces the current dataset with them.
func (e *Engine) Ingest(ctx context.Context, source string, records []SalesRecord) (*Dataset, error) {
	if len(records) == 0 {
		return nil, &ValidationError{Reason: "no sales records to ingest"}
	}
	for i, r := range records {
		if err := validateRecord(i+1, r); err != nil {
			return nil, err
		}
	}

	ds := NewDataset(source, records)
	e.Store.Replace(ds)

	zerolog.Ctx(ctx).Info().
		Str("dataset_id", ds.ID).
		Str("source", source).
		Int("records", len(ds.Records)).
		Int("products", len(ds.Products)).
		Msg("dataset replaced")
	return ds, nil
}

func validateRecord(row int, r SalesRecord) error {
	switch {
	case r.Date.IsZero():
		return &ValidationError{Row: row, Field: "date", Reason: "missing"}
	case r.Product == "":
		return &ValidationError{Row: row, Field: "product", Reason: "missing"}
	case r.Quantity.IsNegative():
		return &ValidationError{Row: row, Field: "quantity", Reason: "must not be negative"}
	}
	return nil
}

// Dataset returns the current dataset.
func (e *Engine) Dataset(ctx context.Context) (*Dataset, error) {
	return e.Store.Snapshot()
}

// ForecastSmoothing runs the smoothing model over sel.
func (e *Engine) ForecastSmoothing(ctx context.Context, sel Selection) (*BatchForecast, error) {
	return e.forecast(ctx, e.Smoothing, sel)
}

// ForecastARIMA runs the ARIMA model over sel, targeting the month after the
// latest month in the dataset.
func (e *Engine) ForecastARIMA(ctx context.Context, sel Selection) (*BatchForecast, error) {
	return e.forecast(ctx, e.ARIMA, sel)
}

func (e *Engine) forecast(ctx context.Context, model Forecaster, sel Selection) (*BatchForecast, error) {
	if err := sel.validate(); err != nil {
		return nil, err
	}
	ds, err := e.Store.Snapshot()
	if err != nil {
		return nil, err
	}

	latest, ok := LatestMonth(ds.Months())
	if !ok {
		return nil, ErrNoData
	}
	target := latest.Next()

	batch := &BatchForecast{
		Model:     model.Name(),
		Target:    model.TargetLabel(target),
		DatasetID: ds.ID,
		Results:   []ForecastResult{},
		Failures:  []ForecastFailure{},
	}

	if product, ok := sel.Product(); ok {
		if !ds.HasProduct(product) {
			return nil, &productNotFoundError{Product: product}
		}
		res, err := forecastOne(ctx, model, ds.Records, product, target)
		if err != nil {
			return nil, err
		}
		batch.Results = append(batch.Results, res)
		return batch, nil
	}

	results := make([]ForecastResult, len(ds.Products))
	errs := make([]error, len(ds.Products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, product := range ds.Products {
		i, product := i, product
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// each goroutine owns slot i
			results[i], errs[i] = forecastOne(gctx, model, ds.Records, product, target)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx)
	for i, product := range ds.Products {
		if errs[i] != nil {
			log.Warn().
				Str("product", string(product)).
				Str("model", model.Name()).
				Str("kind", string(Kind(errs[i]))).
				Err(errs[i]).
				Msg("product skipped in batch forecast")
			batch.Failures = append(batch.Failures, ForecastFailure{Product: product, Kind: Kind(errs[i]), Err: errs[i]})
			continue
		}
		batch.Results = append(batch.Results, results[i])
	}

	sort.SliceStable(batch.Results, func(i, j int) bool {
		if batch.Results[i].Quantity != batch.Results[j].Quantity {
			return batch.Results[i].Quantity > batch.Results[j].Quantity
		}
		return batch.Results[i].Product < batch.Results[j].Product
	})
	return batch, nil
}

func forecastOne(ctx context.Context, model Forecaster, records []SalesRecord, product ProductID, target Month) (ForecastResult, error) {
	series, err := BuildSeries(records, product, model.SeasonalPeriod())
	if err != nil {
		return ForecastResult{}, err
	}
	q, err := model.Forecast(ctx, series, target)
	if err != nil {
		return ForecastResult{}, err
	}
	return ForecastResult{
		Product:  product,
		Model:    model.Name(),
		Target:   model.TargetLabel(target),
		Quantity: q,
	}, nil
}

func (e *Engine) workers() int {
	if e.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return e.Workers
}

// =============================================================================
// AGGREGATES
// =============================================================================

// TopProducts returns the n best-selling products over the whole dataset.
func (e *Engine) TopProducts(ctx context.Context, n int) ([]ProductTotal, error) {
	ds, err := e.Store.Snapshot()
	if err != nil {
		return nil, err
	}
	return TopN(MonthlyTotals(ds.Records), n)
}

// SalesByPeriod totals the sales of one calendar month.
func (e *Engine) SalesByPeriod(ctx context.Context, month, year int) (PeriodSales, error) {
	ds, err := e.Store.Snapshot()
	if err != nil {
		return PeriodSales{}, err
	}
	return SalesInPeriod(ds.Records, month, year)
}

// MonthlySeries returns month totals for sel, ordered by product then month.
func (e *Engine) MonthlySeries(ctx context.Context, sel Selection) ([]PeriodAggregate, error) {
	if err := sel.validate(); err != nil {
		return nil, err
	}
	ds, err := e.Store.Snapshot()
	if err != nil {
		return nil, err
	}

	aggs := MonthlyTotals(ds.Records)
	product, ok := sel.Product()
	if !ok {
		return aggs, nil
	}
	if !ds.HasProduct(product) {
		return nil, fmt.Errorf("monthly series: %w", &productNotFoundError{Product: product})
	}
	return FilterProduct(aggs, product), nil
}
