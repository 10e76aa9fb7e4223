/*
scenarios.go - Demo datasets for testing and demonstrations

PURPOSE:

	Provides pre-built sales histories that exercise the forecasting
	endpoints without an upload. Each scenario is generated
	deterministically so a demo always shows the same numbers.

AVAILABLE SCENARIOS:

	bakery-daily:      Two months of daily sales with a two-day rhythm
	seasonal-monthly:  Eighteen months of summer and winter products
	sparse-history:    A mix of long and very short histories (partial failures)

HOW SCENARIOS WORK:
 1. Generate the records
 2. Reset the sales database and write them as one sale per day (if configured)
 3. Replace the in-memory dataset

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "bakery-daily"}

NOTE:

	Scenarios reset the sales database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Dataset endpoints
  - cmd/server/main.go: seed command
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/demand-engine/demand"
	"github.com/warp/demand-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "bakery-daily",
		Name:        "Bakery (daily)",
		Description: "Sixty-one days of bakery sales with a two-day rhythm",
		Category:    "daily",
	},
	{
		ID:          "seasonal-monthly",
		Name:        "Seasonal (monthly)",
		Description: "Eighteen months of ice cream, hot chocolate and water",
		Category:    "monthly",
	},
	{
		ID:          "sparse-history",
		Name:        "Sparse history",
		Description: "New products with too little history to forecast",
		Category:    "daily",
	},
}

var scenarioGenerators = map[string]func() []demand.SalesRecord{
	"bakery-daily":     bakeryDaily,
	"seasonal-monthly": seasonalMonthly,
	"sparse-history":   sparseHistory,
}

// Scenarios lists the available demo datasets.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	copy(out, scenarios)
	return out
}

// ScenarioRecords generates the records of scenario id.
func ScenarioRecords(id string) ([]demand.SalesRecord, error) {
	gen, ok := scenarioGenerators[id]
	if !ok {
		return nil, &demand.ValidationError{Field: "scenario_id", Reason: fmt.Sprintf("unknown scenario %q", id)}
	}
	return gen(), nil
}

// SeedScenario resets sales and writes scenario id into it.
func SeedScenario(ctx context.Context, sales *sqlite.Store, id string) ([]demand.SalesRecord, error) {
	records, err := ScenarioRecords(id)
	if err != nil {
		return nil, err
	}
	if err := sales.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset sales database: %w", err)
	}
	if _, err := sales.SaveRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to save scenario %s: %w", id, err)
	}
	return records, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.getCurrentScenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces the dataset with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	var (
		records []demand.SalesRecord
		err     error
	)
	if h.Sales != nil {
		records, err = SeedScenario(ctx, h.Sales, req.ScenarioID)
	} else {
		records, err = ScenarioRecords(req.ScenarioID)
	}
	if err != nil {
		writeDomainError(w, r, "Failed to load scenario", err)
		return
	}

	ds, err := h.Engine.Ingest(ctx, "scenario:"+req.ScenarioID, records)
	if err != nil {
		writeDomainError(w, r, "Failed to load scenario", err)
		return
	}
	h.setCurrentScenario(req.ScenarioID)

	writeJSON(w, http.StatusOK, UploadResponse{
		Status:    "Scenario loaded",
		DatasetID: ds.ID,
		Source:    ds.Source,
		Records:   len(ds.Records),
		Products:  productNames(ds.Products),
	})
}

// =============================================================================
// GENERATORS
// =============================================================================

func scenarioDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func bakeryDaily() []demand.SalesRecord {
	start := scenarioDay(2024, time.March, 1)

	var records []demand.SalesRecord
	for i := 0; i < 61; i++ {
		d := start.AddDate(0, 0, i)
		odd := int64(i % 2)

		records = append(records,
			demand.SalesRecord{Date: d, Product: "Pan", Quantity: demand.NewQuantityFromInt(40 + 8*odd + int64(i/10))},
			demand.SalesRecord{Date: d, Product: "Leche", Quantity: demand.NewQuantityFromInt(20 + 5*(1-odd))},
			demand.SalesRecord{Date: d, Product: "Cafe", Quantity: demand.NewQuantityFromInt(12 + int64(i%3))},
		)
		if q := 30 - int64(i/3) + 6*odd; q > 0 {
			records = append(records, demand.SalesRecord{Date: d, Product: "Medialunas", Quantity: demand.NewQuantityFromInt(q)})
		}
	}
	return records
}

func seasonalMonthly() []demand.SalesRecord {
	// Relative demand by calendar month, January first.
	summer := [12]int64{9, 8, 6, 4, 2, 1, 1, 2, 4, 6, 8, 10}
	winter := [12]int64{1, 2, 3, 5, 8, 10, 10, 9, 6, 4, 2, 1}

	var records []demand.SalesRecord
	for i := 0; i < 18; i++ {
		m := demand.NewMonth(2023, time.January).Add(i)
		idx := int(m.Month) - 1

		for _, day := range []int{1, 15} {
			d := scenarioDay(m.Year, m.Month, day)
			records = append(records,
				demand.SalesRecord{Date: d, Product: "Helado", Quantity: demand.NewQuantityFromInt(20 + 15*summer[idx])},
				demand.SalesRecord{Date: d, Product: "Chocolate", Quantity: demand.NewQuantityFromInt(10 + 12*winter[idx])},
				demand.SalesRecord{Date: d, Product: "Agua", Quantity: demand.NewQuantityFromInt(50 + 3*int64(i) + 2*int64(i%3))},
			)
		}
	}
	return records
}

func sparseHistory() []demand.SalesRecord {
	start := scenarioDay(2024, time.May, 1)

	var records []demand.SalesRecord
	for i := 0; i < 21; i++ {
		d := start.AddDate(0, 0, i)
		records = append(records, demand.SalesRecord{Date: d, Product: "Yerba", Quantity: demand.NewQuantityFromInt(15 + 4*int64(i%2))})
	}
	records = append(records,
		demand.SalesRecord{Date: start.AddDate(0, 0, 19), Product: "Alfajor", Quantity: demand.NewQuantityFromInt(7)},
		demand.SalesRecord{Date: start.AddDate(0, 0, 20), Product: "Torta", Quantity: demand.NewQuantityFromInt(2)},
		demand.SalesRecord{Date: start.AddDate(0, 0, 20), Product: "Alfajor", Quantity: demand.NewQuantityFromInt(9)},
	)
	return records
}
