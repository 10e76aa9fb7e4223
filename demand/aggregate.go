package demand

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATOR / RANKER - Read-only sums over a dataset snapshot
// =============================================================================

// MonthlyTotals groups records by (product, calendar month) and sums them.
// Rows are ordered by product first encounter, then chronologically.
func MonthlyTotals(records []SalesRecord) []PeriodAggregate {
	type key struct {
		product ProductID
		month   Month
	}
	totals := make(map[key]Quantity)
	for _, r := range records {
		k := key{product: r.Product, month: MonthOf(r.Date)}
		if q, ok := totals[k]; ok {
			totals[k] = q.Add(r.Quantity)
		} else {
			totals[k] = r.Quantity
		}
	}

	rank := make(map[ProductID]int)
	for i, p := range DistinctProducts(records) {
		rank[p] = i
	}

	out := make([]PeriodAggregate, 0, len(totals))
	for k, q := range totals {
		out = append(out, PeriodAggregate{Product: k.product, Period: k.month, Total: q})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Product != out[j].Product {
			return rank[out[i].Product] < rank[out[j].Product]
		}
		return out[i].Period.Before(out[j].Period)
	})
	return out
}

// FilterProduct keeps the aggregates of one product.
func FilterProduct(aggs []PeriodAggregate, product ProductID) []PeriodAggregate {
	out := make([]PeriodAggregate, 0)
	for _, a := range aggs {
		if a.Product == product {
			out = append(out, a)
		}
	}
	return out
}

// ProductTotals sums aggregates per product, in first-encounter order.
func ProductTotals(aggs []PeriodAggregate) []ProductTotal {
	index := make(map[ProductID]int)
	var out []ProductTotal
	for _, a := range aggs {
		i, ok := index[a.Product]
		if !ok {
			index[a.Product] = len(out)
			out = append(out, ProductTotal{Product: a.Product, Total: a.Total})
			continue
		}
		out[i].Total = out[i].Total.Add(a.Total)
	}
	return out
}

// TopN returns at most n products by total quantity, descending.
// Equal totals are ordered by ascending product id.
func TopN(aggs []PeriodAggregate, n int) ([]ProductTotal, error) {
	if n <= 0 {
		return nil, &ValidationError{Field: "n", Reason: "must be a positive integer"}
	}

	totals := ProductTotals(aggs)
	sort.SliceStable(totals, func(i, j int) bool {
		if c := totals[i].Total.Cmp(totals[j].Total); c != 0 {
			return c > 0
		}
		return totals[i].Product < totals[j].Product
	})

	if len(totals) > n {
		totals = totals[:n]
	}
	return totals, nil
}

// GrandTotal sums every record.
func GrandTotal(records []SalesRecord) Quantity {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Quantity)
	}
	return total
}

// SalesInPeriod totals the records of one calendar month, with a per-product
// breakdown ordered by product id.
func SalesInPeriod(records []SalesRecord, month, year int) (PeriodSales, error) {
	if month < 1 || month > 12 {
		return PeriodSales{}, &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if year < 1 {
		return PeriodSales{}, &ValidationError{Field: "year", Reason: "must be a positive year"}
	}

	period := Month{Year: year, Month: time.Month(month)}
	byProduct := make(map[ProductID]Quantity)
	total := decimal.Zero
	for _, r := range records {
		if !period.Contains(r.Date) {
			continue
		}
		total = total.Add(r.Quantity)
		if q, ok := byProduct[r.Product]; ok {
			byProduct[r.Product] = q.Add(r.Quantity)
		} else {
			byProduct[r.Product] = r.Quantity
		}
	}

	breakdown := make([]ProductTotal, 0, len(byProduct))
	for p, q := range byProduct {
		breakdown = append(breakdown, ProductTotal{Product: p, Total: q})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		return breakdown[i].Product < breakdown[j].Product
	})

	return PeriodSales{Period: period, Total: total, ByProduct: breakdown}, nil
}
