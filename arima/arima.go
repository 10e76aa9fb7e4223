// Package arima implements an ARIMA(1,1,1) model for short monthly series.
//
// The series is differenced once and an ARMA(1,1) without constant,
//
//	d[t] = phi*d[t-1] + e[t] + theta*e[t-1]
//
// is fitted to the differences by exact Gaussian maximum likelihood. The
// likelihood is evaluated with a Kalman filter over the state
// (d[t], theta*e[t]) started from its stationary distribution; the noise
// variance is concentrated out. Forecasts are integrated back to levels.
package arima

import (
	"errors"
	"fmt"
	"math"

	"github.com/warp/demand-engine/optimize"
)

// MinObservations is the shortest level series Fit accepts.
const MinObservations = 3

// coefficient bound keeping the AR part stationary and the MA part invertible
const coeffBound = 0.99

var (
	// ErrTooShort is returned for series shorter than MinObservations.
	ErrTooShort = errors.New("insufficient data points for ARIMA(1,1,1)")

	// ErrConstant is returned when the differenced series is identically zero.
	ErrConstant = errors.New("differenced series has zero variance")

	// ErrNotFitted is returned by Predict on an unfitted model.
	ErrNotFitted = errors.New("model must be fitted before prediction")
)

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int
	D int
	Q int
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// Model is an ARIMA(1,1,1) model.
type Model struct {
	Order  Order
	Phi    float64 // AR coefficient
	Theta  float64 // MA coefficient
	Sigma2 float64 // innovation variance
	LogLik float64
	AIC    float64
	BIC    float64
	NObs   int // differenced observations used by the likelihood

	fitted    bool
	lastLevel float64
	nextDiff  float64 // one-step prediction of the next difference
}

// New creates an unfitted ARIMA(1,1,1) model.
func New() *Model {
	return &Model{Order: Order{P: 1, D: 1, Q: 1}}
}

// starting points for (phi, theta)
var starts = [][]float64{
	{0, 0},
	{0.5, -0.5},
	{-0.5, 0.5},
	{0.3, 0.3},
}

// Fit estimates phi, theta and sigma^2 from a level series.
func (m *Model) Fit(values []float64) error {
	if len(values) < MinObservations {
		return fmt.Errorf("%w: have %d, need %d", ErrTooShort, len(values), MinObservations)
	}

	diffs := difference(values)
	if allZero(diffs) {
		return ErrConstant
	}

	objective := func(x []float64) float64 {
		f := filter(diffs, x[0], x[1])
		return -f.logLik
	}

	res, err := optimize.Multistart(objective, starts, optimize.Symmetric(coeffBound), optimize.DefaultSettings())
	if err != nil {
		return fmt.Errorf("likelihood maximization: %w", err)
	}

	f := filter(diffs, res.X[0], res.X[1])
	if math.IsNaN(f.logLik) || math.IsInf(f.logLik, 0) {
		return fmt.Errorf("%w: log-likelihood is not finite", optimize.ErrNonFinite)
	}

	m.Phi, m.Theta = res.X[0], res.X[1]
	m.Sigma2 = f.sigma2
	m.LogLik = f.logLik
	m.NObs = len(diffs)
	m.lastLevel = values[len(values)-1]
	m.nextDiff = f.nextDiff
	m.calculateIC()
	m.fitted = true
	return nil
}

// calculateIC sets AIC and BIC with phi, theta and sigma^2 as parameters.
func (m *Model) calculateIC() {
	k := 3.0
	m.AIC = -2*m.LogLik + 2*k
	m.BIC = -2*m.LogLik + k*math.Log(float64(m.NObs))
}

// Predict returns level forecasts for the next steps periods.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	// beyond one step the expected MA contribution is zero, so the
	// predicted difference decays geometrically with phi
	out := make([]float64, steps)
	level, d := m.lastLevel, m.nextDiff
	for h := 0; h < steps; h++ {
		level += d
		out[h] = level
		d *= m.Phi
	}
	return out, nil
}

// =============================================================================
// LIKELIHOOD
// =============================================================================

type filterResult struct {
	logLik   float64
	sigma2   float64
	nextDiff float64
}

// filter runs the Kalman filter for ARMA(1,1) with unit innovation variance
// over the state a = (d[t], theta*e[t]) with
//
//	T = [[phi, 1], [0, 0]], R = (1, theta), Z = (1, 0)
//
// and returns the concentrated log-likelihood.
func filter(y []float64, phi, theta float64) filterResult {
	n := float64(len(y))

	// stationary initial state covariance
	gamma0 := (1 + 2*phi*theta + theta*theta) / (1 - phi*phi)
	p00, p01, p11 := gamma0, theta, theta*theta
	var a0, a1, sumSq, sumLogF float64

	for _, obs := range y {
		v := obs - a0
		f := p00
		if f <= 0 || math.IsNaN(f) {
			return filterResult{logLik: math.Inf(-1)}
		}
		sumSq += v * v / f
		sumLogF += math.Log(f)

		// update
		u0 := a0 + p00*v/f
		u1 := a1 + p01*v/f
		m00 := p00 - p00*p00/f
		m01 := p01 - p00*p01/f
		m11 := p11 - p01*p01/f

		// predict
		a0 = phi*u0 + u1
		a1 = 0
		p00 = phi*phi*m00 + 2*phi*m01 + m11 + 1
		p01 = theta
		p11 = theta * theta
	}

	sigma2 := sumSq / n
	if sigma2 <= 0 {
		return filterResult{logLik: math.Inf(-1)}
	}
	ll := -n/2*(math.Log(2*math.Pi)+math.Log(sigma2)+1) - sumLogF/2
	return filterResult{logLik: ll, sigma2: sigma2, nextDiff: a0}
}

func difference(values []float64) []float64 {
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

func allZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}
