/*
Package factory provides JSON to Go forecaster conversion.

PURPOSE:
  Converts JSON model definitions into demand.Forecaster values. The
  server builds its two forecasters from configuration through this
  package, and the offline forecast command accepts a model name or a
  JSON definition.

JSON SCHEMA:
  {
    "type": "smoothing",
    "seasonal_period": 2,
    "horizon": 30
  }

  {
    "type": "arima"
  }

KEY FEATURES:
  - Validates JSON structure
  - Sets defaults (period 2, horizon 30)
  - Translates model package errors into demand error kinds

USAGE:
  f := NewModelFactory()
  fc, err := f.ParseModel(`{"type":"smoothing","horizon":14}`)

  engine := demand.NewEngine(store.NewMemory(), fc, arimaFc)

SEE ALSO:
  - smoothing/holtwinters.go: Holt-Winters model
  - arima/arima.go: ARIMA(1,1,1) model
  - demand/engine.go: Forecaster interface
*/
package factory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/warp/demand-engine/arima"
	"github.com/warp/demand-engine/demand"
	"github.com/warp/demand-engine/smoothing"
)

// Model type names.
const (
	TypeSmoothing = "smoothing"
	TypeARIMA     = "arima"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ModelJSON is the JSON representation of a forecasting model.
type ModelJSON struct {
	Type           string `json:"type"`                      // smoothing, arima
	SeasonalPeriod int    `json:"seasonal_period,omitempty"` // smoothing only
	Horizon        int    `json:"horizon,omitempty"`         // smoothing only, in days
}

// =============================================================================
// MODEL FACTORY
// =============================================================================

// ModelFactory converts JSON model definitions to forecasters.
type ModelFactory struct{}

// NewModelFactory creates a new model factory.
func NewModelFactory() *ModelFactory {
	return &ModelFactory{}
}

// ParseModel parses a JSON string into a Forecaster.
func (f *ModelFactory) ParseModel(jsonStr string) (demand.Forecaster, error) {
	var mj ModelJSON
	if err := json.Unmarshal([]byte(jsonStr), &mj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return f.FromJSON(mj)
}

// FromJSON converts ModelJSON to a Forecaster.
func (f *ModelFactory) FromJSON(mj ModelJSON) (demand.Forecaster, error) {
	switch mj.Type {
	case TypeSmoothing:
		period := mj.SeasonalPeriod
		if period == 0 {
			period = smoothing.DefaultSeasonalPeriod
		}
		horizon := mj.Horizon
		if horizon == 0 {
			horizon = smoothing.DefaultHorizon
		}
		if period < 1 {
			return nil, &demand.ValidationError{Field: "seasonal_period", Reason: "must be positive"}
		}
		if horizon < 1 {
			return nil, &demand.ValidationError{Field: "horizon", Reason: "must be positive"}
		}
		return &SmoothingForecaster{Period: period, Horizon: horizon}, nil

	case TypeARIMA:
		if mj.SeasonalPeriod != 0 || mj.Horizon != 0 {
			return nil, &demand.ValidationError{Field: "type", Reason: "arima takes no seasonal_period or horizon"}
		}
		return &ARIMAForecaster{}, nil

	default:
		return nil, &demand.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown model type %q", mj.Type)}
	}
}

// ToJSON converts a Forecaster built by this factory back to ModelJSON.
func (f *ModelFactory) ToJSON(fc demand.Forecaster) (ModelJSON, error) {
	switch m := fc.(type) {
	case *SmoothingForecaster:
		return ModelJSON{Type: TypeSmoothing, SeasonalPeriod: m.Period, Horizon: m.Horizon}, nil
	case *ARIMAForecaster:
		return ModelJSON{Type: TypeARIMA}, nil
	default:
		return ModelJSON{}, fmt.Errorf("unsupported forecaster %T", fc)
	}
}

// =============================================================================
// SMOOTHING FORECASTER
// =============================================================================

// SmoothingForecaster forecasts the total demand over the next Horizon
// days with Holt-Winters additive smoothing.
type SmoothingForecaster struct {
	Period  int
	Horizon int
}

func (s *SmoothingForecaster) Name() string        { return TypeSmoothing }
func (s *SmoothingForecaster) SeasonalPeriod() int { return s.Period }

func (s *SmoothingForecaster) TargetLabel(demand.Month) string {
	return fmt.Sprintf("%dd", s.Horizon)
}

func (s *SmoothingForecaster) Forecast(ctx context.Context, series demand.ProductTimeSeries, _ demand.Month) (float64, error) {
	model, err := smoothing.Fit(series.Values(), s.Period)
	if err != nil {
		if errors.Is(err, smoothing.ErrTooShort) {
			return 0, &demand.InsufficientDataError{
				Product: series.Product,
				Have:    series.Len(),
				Need:    smoothing.MinObservations(s.Period),
				Unit:    "points",
			}
		}
		return 0, &demand.FitError{Product: series.Product, Model: TypeSmoothing, Reason: err.Error()}
	}

	total, err := model.HorizonTotal(s.Horizon)
	if err != nil {
		return 0, &demand.FitError{Product: series.Product, Model: TypeSmoothing, Reason: err.Error()}
	}
	return total, nil
}

// =============================================================================
// ARIMA FORECASTER
// =============================================================================

// ARIMAForecaster forecasts a product's total for the target month with
// ARIMA(1,1,1) over its monthly totals.
type ARIMAForecaster struct{}

func (a *ARIMAForecaster) Name() string        { return TypeARIMA }
func (a *ARIMAForecaster) SeasonalPeriod() int { return 0 }

func (a *ARIMAForecaster) TargetLabel(target demand.Month) string {
	return target.String()
}

// Forecast predicts the target month. A series whose last month is before
// the month preceding target is forecast the extra steps ahead.
func (a *ARIMAForecaster) Forecast(ctx context.Context, series demand.ProductTimeSeries, target demand.Month) (float64, error) {
	monthly := demand.MonthlySeries(series)
	if len(monthly) < arima.MinObservations {
		return 0, &demand.InsufficientDataError{
			Product: series.Product,
			Have:    len(monthly),
			Need:    arima.MinObservations,
			Unit:    "months",
		}
	}

	values := make([]float64, len(monthly))
	for i, agg := range monthly {
		values[i] = agg.Total.InexactFloat64()
	}

	model := arima.New()
	if err := model.Fit(values); err != nil {
		return 0, &demand.FitError{Product: series.Product, Model: TypeARIMA, Reason: err.Error()}
	}

	steps := max(1, monthly[len(monthly)-1].Period.MonthsUntil(target))
	fc, err := model.Predict(steps)
	if err != nil {
		return 0, &demand.FitError{Product: series.Product, Model: TypeARIMA, Reason: err.Error()}
	}
	return fc[steps-1], nil
}
