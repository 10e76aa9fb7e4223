// Package optimize fits bounded model coefficients with gonum's Nelder-Mead
// simplex. The simplex runs in an unconstrained space and every point is
// mapped into the coefficient box through a Transform, so the objective is
// never evaluated outside the bounds.
package optimize

import (
	"errors"
	"fmt"
	"math"

	gopt "gonum.org/v1/gonum/optimize"
)

var (
	// ErrNotConverged is returned when the iteration limit is reached first.
	ErrNotConverged = errors.New("optimizer did not converge")

	// ErrNonFinite is returned when no finite objective value was found.
	ErrNonFinite = errors.New("objective is not finite at any visited point")
)

// =============================================================================
// TRANSFORMS
// =============================================================================

// edge keeps inverse transforms finite at the bounds.
const edge = 1e-9

// Transform maps an unconstrained coordinate onto a bounded coefficient (To)
// and back (From).
type Transform struct {
	To   func(u float64) float64
	From func(x float64) float64
}

// Unit maps the real line onto (0,1) with the logistic function.
func Unit() Transform {
	return Transform{
		To: func(u float64) float64 {
			if u >= 0 {
				return 1 / (1 + math.Exp(-u))
			}
			z := math.Exp(u)
			return z / (1 + z)
		},
		From: func(x float64) float64 {
			x = math.Max(edge, math.Min(1-edge, x))
			return math.Log(x / (1 - x))
		},
	}
}

// Symmetric maps the real line onto (-bound, bound) with bound*tanh.
func Symmetric(bound float64) Transform {
	return Transform{
		To: func(u float64) float64 { return bound * math.Tanh(u) },
		From: func(x float64) float64 {
			r := math.Max(-1+edge, math.Min(1-edge, x/bound))
			return math.Atanh(r)
		},
	}
}

func (t Transform) to(u []float64) []float64 {
	x := make([]float64, len(u))
	for i, v := range u {
		x[i] = t.To(v)
	}
	return x
}

func (t Transform) from(x []float64) []float64 {
	u := make([]float64, len(x))
	for i, v := range x {
		u[i] = t.From(v)
	}
	return u
}

// =============================================================================
// SEARCH
// =============================================================================

// Settings controls the search.
type Settings struct {
	MaxIterations int     // major iterations
	Tolerance     float64 // absolute and relative improvement counted as progress
	Stall         int     // iterations without progress before the search stops
	InitialStep   float64 // simplex size in the unconstrained space
}

// DefaultSettings returns settings suited to the small problems in this module.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations: 5000,
		Tolerance:     1e-10,
		Stall:         100,
		InitialStep:   0.05,
	}
}

// Result is the best point found, in coefficient space.
type Result struct {
	X          []float64
	F          float64
	Iterations int
	Status     string
	Converged  bool
}

// Minimize searches for the minimum of f starting at x0. Non-finite
// objective values are treated as +Inf so the simplex moves away from them.
// The Result holds the best point visited even when the error is
// ErrNotConverged.
func Minimize(f func([]float64) float64, x0 []float64, t Transform, s Settings) (Result, error) {
	problem := gopt.Problem{
		Func: func(u []float64) float64 {
			v := f(t.to(u))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return math.Inf(1)
			}
			return v
		},
	}
	// The converger is stateful, so every search gets its own.
	settings := &gopt.Settings{
		MajorIterations: s.MaxIterations,
		Converger: &gopt.FunctionConverge{
			Absolute:   s.Tolerance,
			Relative:   s.Tolerance,
			Iterations: s.Stall,
		},
	}

	res, err := gopt.Minimize(problem, t.from(x0), settings, &gopt.NelderMead{SimplexSize: s.InitialStep})
	if err != nil {
		// gonum refuses to start from a non-finite value.
		return Result{}, fmt.Errorf("%w: %v", ErrNonFinite, err)
	}

	out := Result{
		X:          t.to(res.X),
		F:          res.F,
		Iterations: res.Stats.MajorIterations,
		Status:     res.Status.String(),
		Converged:  res.Status == gopt.FunctionConvergence,
	}
	if math.IsInf(out.F, 1) {
		return out, ErrNonFinite
	}
	if !out.Converged {
		return out, fmt.Errorf("%w: %s", ErrNotConverged, res.Status)
	}
	return out, nil
}

// Multistart runs Minimize from each start and returns the best converged
// result. When no start converges the error of the best attempt is returned.
func Multistart(f func([]float64) float64, starts [][]float64, t Transform, s Settings) (Result, error) {
	var (
		best    Result
		bestErr error = ErrNonFinite
		found   bool
	)
	for _, x0 := range starts {
		res, err := Minimize(f, x0, t, s)
		switch {
		case res.X == nil:
			continue
		case err == nil && (!found || bestErr != nil || res.F < best.F):
			best, bestErr, found = res, nil, true
		case err != nil && !found:
			best, bestErr, found = res, err, true
		case err != nil && bestErr != nil && res.F < best.F:
			best, bestErr = res, err
		}
	}
	return best, bestErr
}
