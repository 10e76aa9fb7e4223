package arima

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_OrderIsOneOneOne(t *testing.T) {
	model := New()

	assert.Equal(t, Order{P: 1, D: 1, Q: 1}, model.Order)
	assert.Equal(t, "(1,1,1)", model.Order.String())
}

func TestFit_FourMonths_OneStepForecast(t *testing.T) {
	// GIVEN: Four monthly totals
	// WHEN: Fitting ARIMA(1,1,1)
	// THEN: A finite forecast with coefficients inside the bounds

	model := New()
	require.NoError(t, model.Fit([]float64{20, 25, 22, 30}))

	fc, err := model.Predict(1)
	require.NoError(t, err)
	require.Len(t, fc, 1)

	assert.False(t, math.IsNaN(fc[0]) || math.IsInf(fc[0], 0))
	assert.LessOrEqual(t, math.Abs(model.Phi), coeffBound)
	assert.LessOrEqual(t, math.Abs(model.Theta), coeffBound)
	assert.Greater(t, model.Sigma2, 0.0)
	assert.Equal(t, 3, model.NObs)
}

func TestFit_LinearGrowth_ForecastContinuesUpward(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	model := New()
	require.NoError(t, model.Fit(values))

	fc, err := model.Predict(1)
	require.NoError(t, err)

	assert.InDelta(t, 110, fc[0], 2)
}

func TestFit_MinimumLength(t *testing.T) {
	// GIVEN: Series of one and two observations
	// WHEN: Fitting
	// THEN: ErrTooShort; three observations are accepted

	for _, values := range [][]float64{{5}, {5, 7}} {
		err := New().Fit(values)
		assert.ErrorIs(t, err, ErrTooShort)
	}

	assert.NoError(t, New().Fit([]float64{1, 2, 4}))
}

func TestFit_ConstantLevel(t *testing.T) {
	err := New().Fit([]float64{5, 5, 5, 5})
	assert.ErrorIs(t, err, ErrConstant)
}

func TestPredict_Unfitted(t *testing.T) {
	_, err := New().Predict(1)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestPredict_MultiStep_ExtendsOneStep(t *testing.T) {
	model := New()
	require.NoError(t, model.Fit([]float64{20, 25, 22, 30, 28, 35}))

	one, err := model.Predict(1)
	require.NoError(t, err)
	three, err := model.Predict(3)
	require.NoError(t, err)

	require.Len(t, three, 3)
	assert.Equal(t, one[0], three[0])

	// later differences decay by phi
	d1 := three[0] - 35
	d2 := three[1] - three[0]
	assert.InDelta(t, model.Phi*d1, d2, 1e-9)
}

func TestFit_InformationCriteria(t *testing.T) {
	model := New()
	require.NoError(t, model.Fit([]float64{20, 25, 22, 30, 28, 35}))

	assert.InDelta(t, -2*model.LogLik+6, model.AIC, 1e-9)
	assert.InDelta(t, -2*model.LogLik+3*math.Log(5), model.BIC, 1e-9)
}

func TestFilter_WhiteNoise_MatchesClosedForm(t *testing.T) {
	// GIVEN: phi = theta = 0
	// WHEN: Evaluating the likelihood
	// THEN: It equals the Gaussian white noise likelihood with sigma^2 = mean(y^2)

	y := []float64{5, -3, 8, 1}
	f := filter(y, 0, 0)

	ss := 0.0
	for _, v := range y {
		ss += v * v
	}
	n := float64(len(y))
	sigma2 := ss / n
	want := -n / 2 * (math.Log(2*math.Pi) + math.Log(sigma2) + 1)

	assert.InDelta(t, sigma2, f.sigma2, 1e-12)
	assert.InDelta(t, want, f.logLik, 1e-12)
	assert.Equal(t, 0.0, f.nextDiff)
}

func TestDifference(t *testing.T) {
	assert.Equal(t, []float64{5, -3, 8}, difference([]float64{20, 25, 22, 30}))
}
