/*
Package demand provides the core sales forecasting and aggregation engine.

PURPOSE:
  This package turns irregular sales transactions into per-product time
  series, dispatches them to forecasting models, and aggregates/ranks the
  results. It knows nothing about HTTP, CSV parsing, or SQL: those adapters
  live in the api and ingest packages and hand this package plain records.

KEY CONCEPTS IN THIS FILE (types.go):
  - ProductID: Type-safe product identifier
  - SalesRecord: One (date, product, quantity) observation, immutable once ingested
  - Quantity: Exact decimal quantity used for every aggregation

DESIGN PRINCIPLES:
  1. Immutability: Records are copied into a Dataset and never mutated afterwards
  2. Precision: Aggregations use decimal.Decimal so totals are exact; models
     convert to float64 only at the fitting boundary
  3. Determinism: Every ordering has an explicit tie-break

USAGE:
  rec := demand.SalesRecord{
      Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
      Product:  "A",
      Quantity: demand.NewQuantity(12),
  }

SEE ALSO:
  - month.go: Calendar period used for monthly grouping
  - series.go: Series Builder
  - aggregate.go: Aggregator/Ranker
  - engine.go: Orchestrator
*/
package demand

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS AND QUANTITIES
// =============================================================================

// ProductID identifies a product. Uploads use the Producto column and the
// relational pull uses NombreProducto.
type ProductID string

// Quantity is a non-negative number of units sold.
type Quantity = decimal.Decimal

func NewQuantity(v float64) Quantity      { return decimal.NewFromFloat(v) }
func NewQuantityFromInt(v int64) Quantity { return decimal.NewFromInt(v) }

// =============================================================================
// SALES RECORD
// =============================================================================

// SalesRecord is the source of truth for every downstream computation.
type SalesRecord struct {
	Date     time.Time
	Product  ProductID
	Quantity Quantity
}

// Day returns the record date truncated to a UTC calendar day.
func (r SalesRecord) Day() time.Time {
	return Day(r.Date)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// PeriodAggregate is the total quantity of one product in one calendar month.
type PeriodAggregate struct {
	Product ProductID
	Period  Month
	Total   Quantity
}

// ProductTotal is the total quantity of one product across a set of periods.
type ProductTotal struct {
	Product ProductID
	Total   Quantity
}

// PeriodSales is the answer to "what sold in month M of year Y".
type PeriodSales struct {
	Period    Month
	Total     Quantity
	ByProduct []ProductTotal
}

// ForecastResult is one product's forecast. Output only, never stored.
type ForecastResult struct {
	Product  ProductID
	Model    string
	Target   string // "30d" horizon label or a "YYYY-MM" period key
	Quantity float64
}
