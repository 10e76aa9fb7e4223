package demand

import (
	"sort"
	"time"
)

// =============================================================================
// SERIES BUILDER - Records -> ordered per-product time series
// =============================================================================

// Point is one (date, quantity) observation of a product series.
type Point struct {
	Date     time.Time
	Quantity Quantity
}

// ProductTimeSeries is one product's observations, ascending by date with
// at most one point per calendar day.
type ProductTimeSeries struct {
	Product ProductID
	Points  []Point
}

// Len returns the number of points.
func (s ProductTimeSeries) Len() int { return len(s.Points) }

// Values returns the quantities as float64 for model fitting.
func (s ProductTimeSeries) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Quantity.InexactFloat64()
	}
	return values
}

// Months returns the distinct calendar months covered by the series.
func (s ProductTimeSeries) Months() []Month {
	var months []Month
	for _, p := range s.Points {
		m := MonthOf(p.Date)
		if len(months) == 0 || months[len(months)-1] != m {
			months = append(months, m)
		}
	}
	return months
}

// MinSeriesPoints is the shortest series the builder accepts for a model with
// the given seasonal period: two points for the trend, two full cycles for
// the seasonal decomposition.
func MinSeriesPoints(seasonalPeriod int) int {
	return max(2, 2*seasonalPeriod)
}

// BuildSeries filters records to product, sums quantities that share a
// calendar day, and sorts ascending by date.
//
// A product absent from records yields ErrProductNotFound; a series shorter
// than MinSeriesPoints(seasonalPeriod) yields an InsufficientDataError.
// Pass seasonalPeriod 0 for non-seasonal consumers.
func BuildSeries(records []SalesRecord, product ProductID, seasonalPeriod int) (ProductTimeSeries, error) {
	byDay := make(map[time.Time]Quantity)
	for _, r := range records {
		if r.Product != product {
			continue
		}
		day := r.Day()
		if q, ok := byDay[day]; ok {
			byDay[day] = q.Add(r.Quantity)
		} else {
			byDay[day] = r.Quantity
		}
	}

	if len(byDay) == 0 {
		return ProductTimeSeries{}, &productNotFoundError{Product: product}
	}

	points := make([]Point, 0, len(byDay))
	for day, q := range byDay {
		points = append(points, Point{Date: day, Quantity: q})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	series := ProductTimeSeries{Product: product, Points: points}
	if need := MinSeriesPoints(seasonalPeriod); series.Len() < need {
		return series, &InsufficientDataError{Product: product, Have: series.Len(), Need: need, Unit: "points"}
	}
	return series, nil
}

// MonthlySeries sums a product series into one total per calendar month,
// ordered chronologically. Months without sales are not filled in.
func MonthlySeries(s ProductTimeSeries) []PeriodAggregate {
	var out []PeriodAggregate
	for _, p := range s.Points {
		m := MonthOf(p.Date)
		if n := len(out); n > 0 && out[n-1].Period == m {
			out[n-1].Total = out[n-1].Total.Add(p.Quantity)
			continue
		}
		out = append(out, PeriodAggregate{Product: s.Product, Period: m, Total: p.Quantity})
	}
	return out
}

type productNotFoundError struct {
	Product ProductID
}

func (e *productNotFoundError) Error() string {
	return "product not found: " + string(e.Product)
}

func (e *productNotFoundError) Unwrap() error { return ErrProductNotFound }
