package optimize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinimize_Quadratic_FindsInteriorMinimum(t *testing.T) {
	// GIVEN: A bowl with its minimum inside (-1,1)^2
	// WHEN: Minimizing from the origin
	// THEN: The minimum is found and reported as converged

	f := func(x []float64) float64 {
		return (x[0]-0.3)*(x[0]-0.3) + (x[1]+0.2)*(x[1]+0.2)
	}

	res, err := Minimize(f, []float64{0, 0}, Symmetric(1), DefaultSettings())
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, "FunctionConvergence", res.Status)
	assert.InDelta(t, 0.3, res.X[0], 1e-4)
	assert.InDelta(t, -0.2, res.X[1], 1e-4)
	assert.InDelta(t, 0, res.F, 1e-8)
}

func TestMinimize_MinimumOutsideBox_StaysInside(t *testing.T) {
	tests := []struct {
		name  string
		f     func([]float64) float64
		t     Transform
		bound float64
	}{
		{"unit", func(x []float64) float64 { return (x[0] - 2) * (x[0] - 2) }, Unit(), 1},
		{"symmetric", func(x []float64) float64 { return (x[0] - 5) * (x[0] - 5) }, Symmetric(0.99), 0.99},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Minimize(tc.f, []float64{0.5}, tc.t, DefaultSettings())
			require.NoError(t, err)

			assert.LessOrEqual(t, res.X[0], tc.bound)
			assert.InDelta(t, tc.bound, res.X[0], 1e-4)
		})
	}
}

func TestMinimize_StartOnBound(t *testing.T) {
	// GIVEN: A start exactly on the lower edge of [0,1]
	// WHEN: Minimizing
	// THEN: The inverse map stays finite and the search reaches the minimum

	f := func(x []float64) float64 { return (x[0] - 0.25) * (x[0] - 0.25) }

	res, err := Minimize(f, []float64{0}, Unit(), DefaultSettings())
	require.NoError(t, err)

	assert.InDelta(t, 0.25, res.X[0], 1e-4)
}

func TestMinimize_NonFiniteEverywhere(t *testing.T) {
	// GIVEN: An objective that is NaN at every point
	// WHEN: Minimizing
	// THEN: ErrNonFinite

	f := func(x []float64) float64 { return math.NaN() }

	_, err := Minimize(f, []float64{0.5, 0.5}, Unit(), DefaultSettings())
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestMinimize_MaxIterations_NotConverged(t *testing.T) {
	f := func(x []float64) float64 { return (x[0]-0.7)*(x[0]-0.7) + (x[1]-0.1)*(x[1]-0.1) }

	s := DefaultSettings()
	s.MaxIterations = 1

	res, err := Minimize(f, []float64{0, 0}, Symmetric(1), s)
	assert.ErrorIs(t, err, ErrNotConverged)
	assert.False(t, res.Converged)
	assert.Equal(t, "IterationLimit", res.Status)
	assert.NotNil(t, res.X, "best point is returned even without convergence")
}

func TestMultistart_PicksLowestMinimum(t *testing.T) {
	// GIVEN: Two basins, the deeper one at x=0.8
	// WHEN: Starting once in each basin
	// THEN: The deeper basin wins

	f := func(x []float64) float64 {
		left := (x[0]-0.2)*(x[0]-0.2) + 0.5
		right := (x[0] - 0.8) * (x[0] - 0.8)
		return math.Min(left, right)
	}

	res, err := Multistart(f, [][]float64{{0.1}, {0.9}}, Unit(), DefaultSettings())
	require.NoError(t, err)

	assert.InDelta(t, 0.8, res.X[0], 1e-4)
}

func TestMultistart_SkipsNonFiniteStarts(t *testing.T) {
	// The objective is undefined left of 0.5, where the first start sits.
	f := func(x []float64) float64 {
		if x[0] < 0.5 {
			return math.Inf(1)
		}
		return (x[0] - 0.7) * (x[0] - 0.7)
	}

	res, err := Multistart(f, [][]float64{{0.2}, {0.6}}, Unit(), DefaultSettings())
	require.NoError(t, err)

	assert.InDelta(t, 0.7, res.X[0], 1e-4)
}

func TestMultistart_NoStarts(t *testing.T) {
	_, err := Multistart(func(x []float64) float64 { return 0 }, nil, Unit(), DefaultSettings())
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestTransforms_RoundTrip(t *testing.T) {
	for _, x := range []float64{0.1, 0.5, 0.9} {
		u := Unit()
		assert.InDelta(t, x, u.To(u.From(x)), 1e-12)
	}
	for _, x := range []float64{-0.9, 0, 0.7} {
		s := Symmetric(0.99)
		assert.InDelta(t, x, s.To(s.From(x)), 1e-12)
	}
}
