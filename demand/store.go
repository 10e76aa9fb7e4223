/*
store.go - The Record Store: the process-wide working dataset

PURPOSE:
  Holds at most one active Dataset. Every forecast and aggregate reads a
  snapshot; every ingest replaces the dataset wholesale.

LIFECYCLE:
  absent at startup -> populated by an ingest -> replaced by the next ingest.
  No versioning or rollback.

SNAPSHOT SWAP:
  Replace installs a new *Dataset by reference. A Dataset is never mutated
  after NewDataset returns, so a reader holding a snapshot sees either the
  old dataset or the new one, never a mix.

IMPLEMENTATIONS:
  - demand/store/memory.go: atomic pointer swap
*/
package demand

import (
	"time"

	"github.com/google/uuid"
)

// Store holds the current dataset.
type Store interface {
	// Snapshot returns the current dataset, or ErrNoData before the first ingest.
	Snapshot() (*Dataset, error)

	// Replace installs ds as the current dataset.
	Replace(ds *Dataset)
}

// Dataset is an immutable batch of ingested records.
type Dataset struct {
	ID       string
	Source   string // "upload:<filename>", "database", "scenario:<id>"
	LoadedAt time.Time
	Records  []SalesRecord
	Products []ProductID // distinct, in first-encounter order
}

// NewDataset copies records into a new immutable dataset.
func NewDataset(source string, records []SalesRecord) *Dataset {
	recs := make([]SalesRecord, len(records))
	copy(recs, records)

	return &Dataset{
		ID:       uuid.NewString(),
		Source:   source,
		LoadedAt: time.Now().UTC(),
		Records:  recs,
		Products: DistinctProducts(recs),
	}
}

// HasProduct reports whether product appears in the dataset.
func (d *Dataset) HasProduct(product ProductID) bool {
	for _, p := range d.Products {
		if p == product {
			return true
		}
	}
	return false
}

// Months returns the distinct calendar months present in the dataset.
func (d *Dataset) Months() []Month {
	seen := make(map[Month]bool)
	var months []Month
	for _, r := range d.Records {
		m := MonthOf(r.Date)
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	return months
}

// DistinctProducts returns each product once, in first-encounter order.
func DistinctProducts(records []SalesRecord) []ProductID {
	seen := make(map[ProductID]bool)
	products := make([]ProductID, 0)
	for _, r := range records {
		if !seen[r.Product] {
			seen[r.Product] = true
			products = append(products, r.Product)
		}
	}
	return products
}
