// Package smoothing implements Holt-Winters exponential smoothing with an
// additive trend and an additive seasonal component.
//
// The model keeps a level l, a trend b and one seasonal term per phase of
// the seasonal period m. For each observation y[t]:
//
//	prediction  = l + b + s[t mod m]
//	l'          = alpha*(y[t] - s[t mod m]) + (1-alpha)*(l + b)
//	b'          = beta*(l' - l) + (1-beta)*b
//	s[t mod m]' = gamma*(y[t] - l - b) + (1-gamma)*s[t mod m]
//
// and the h-step forecast from the last observation n-1 is
// l + h*b + s[(n-1+h) mod m].
//
// Smoothing coefficients are chosen by minimizing the sum of squared
// one-step-ahead residuals over [0,1]^3, searched through a logistic map so
// the simplex stays inside the box.
package smoothing

import (
	"errors"
	"fmt"
	"math"

	"github.com/warp/demand-engine/optimize"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultSeasonalPeriod = 2
	DefaultHorizon        = 30
)

var (
	// ErrTooShort is returned when the series has fewer than two seasonal cycles.
	ErrTooShort = errors.New("series shorter than two seasonal cycles")

	// ErrConstant is returned for a zero-variance series.
	ErrConstant = errors.New("series has zero variance")

	// ErrNotFitted is returned by Forecast on an unfitted model.
	ErrNotFitted = errors.New("model must be fitted before forecasting")
)

// Params are the smoothing coefficients, each in [0,1].
type Params struct {
	Alpha float64 // level
	Beta  float64 // trend
	Gamma float64 // seasonal
}

// Model is a fitted Holt-Winters model.
type Model struct {
	Period int
	Params
	Level    float64
	Trend    float64
	Seasonal []float64 // latest estimate per phase, indexed by t mod Period
	SSE      float64
	NObs     int
	fitted   bool
}

// MinObservations returns the shortest series Fit accepts for period m.
func MinObservations(period int) int {
	return max(2, 2*period)
}

// starting points for the coefficient search
var starts = [][]float64{
	{0.5, 0.1, 0.1},
	{0.2, 0.05, 0.3},
	{0.8, 0.3, 0.5},
}

// Fit estimates the smoothing coefficients for values with the given period
// and runs the recursion over the whole series.
func Fit(values []float64, period int) (*Model, error) {
	if period < 1 {
		return nil, fmt.Errorf("seasonal period must be positive, got %d", period)
	}
	if len(values) < MinObservations(period) {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooShort, len(values), MinObservations(period))
	}
	if stat.Variance(values, nil) == 0 {
		return nil, ErrConstant
	}

	init := initialState(values, period)
	objective := func(x []float64) float64 {
		sse, _ := run(values, period, Params{Alpha: x[0], Beta: x[1], Gamma: x[2]}, init)
		return sse
	}

	res, err := optimize.Multistart(objective, starts, optimize.Unit(), optimize.DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("coefficient search: %w", err)
	}

	params := Params{Alpha: res.X[0], Beta: res.X[1], Gamma: res.X[2]}
	sse, final := run(values, period, params, init)
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return nil, fmt.Errorf("%w: sum of squared errors is not finite", optimize.ErrNonFinite)
	}

	return &Model{
		Period:   period,
		Params:   params,
		Level:    final.level,
		Trend:    final.trend,
		Seasonal: final.seasonal,
		SSE:      sse,
		NObs:     len(values),
		fitted:   true,
	}, nil
}

// Forecast returns the 1..steps ahead forecasts.
func (m *Model) Forecast(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	last := m.NObs - 1
	out := make([]float64, steps)
	for h := 1; h <= steps; h++ {
		out[h-1] = m.Level + float64(h)*m.Trend + m.Seasonal[(last+h)%m.Period]
	}
	return out, nil
}

// HorizonTotal sums the raw forecasts over steps and rounds half to even.
// Individual steps may be negative; only the rounded total is floored at
// zero.
func (m *Model) HorizonTotal(steps int) (float64, error) {
	fc, err := m.Forecast(steps)
	if err != nil {
		return 0, err
	}
	return math.Max(0, math.RoundToEven(floats.Sum(fc))), nil
}

// =============================================================================
// RECURSION
// =============================================================================

type state struct {
	level    float64
	trend    float64
	seasonal []float64
}

// initialState derives the starting components from the first two cycles:
// level is the mean of cycle one, trend the per-step change between the
// cycle means, seasonal terms the deviations of cycle one from its mean.
func initialState(values []float64, period int) state {
	first := stat.Mean(values[:period], nil)
	second := stat.Mean(values[period:2*period], nil)

	seasonal := make([]float64, period)
	for i := 0; i < period; i++ {
		seasonal[i] = values[i] - first
	}
	return state{
		level:    first,
		trend:    (second - first) / float64(period),
		seasonal: seasonal,
	}
}

// run applies the recursion and returns the SSE of one-step-ahead residuals
// and the final state. init is not modified.
func run(values []float64, period int, p Params, init state) (float64, state) {
	s := state{
		level:    init.level,
		trend:    init.trend,
		seasonal: append([]float64(nil), init.seasonal...),
	}

	sse := 0.0
	for t, y := range values {
		phase := t % period
		pred := s.level + s.trend + s.seasonal[phase]
		resid := y - pred
		sse += resid * resid

		level := p.Alpha*(y-s.seasonal[phase]) + (1-p.Alpha)*(s.level+s.trend)
		trend := p.Beta*(level-s.level) + (1-p.Beta)*s.trend
		s.seasonal[phase] = p.Gamma*(y-s.level-s.trend) + (1-p.Gamma)*s.seasonal[phase]
		s.level, s.trend = level, trend
	}
	return sse, s
}
