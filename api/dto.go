/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the demand package from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

QUANTITIES:
  Totals are decimal inside the engine and exported here as JSON numbers.
  Clients that need exact values should read them as decimals.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/demand-engine/demand"
	"github.com/warp/demand-engine/ingest"
)

// =============================================================================
// DATASET
// =============================================================================

type DatasetDTO struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	LoadedAt  time.Time `json:"loaded_at"`
	Records   int       `json:"records"`
	Products  []string  `json:"products"`
	FirstDate string    `json:"first_date"`
	LastDate  string    `json:"last_date"`
}

// UploadResponse is returned by both ingest endpoints.
type UploadResponse struct {
	Status    string   `json:"status"`
	DatasetID string   `json:"dataset_id"`
	Source    string   `json:"source"`
	Records   int      `json:"records"`
	Products  []string `json:"products"`
}

// =============================================================================
// FORECASTS
// =============================================================================

// ForecastDTO is one product's forecast. Target is "30d" for the smoothing
// horizon or the "YYYY-MM" month for ARIMA.
type ForecastDTO struct {
	Product  string  `json:"product"`
	Target   string  `json:"target"`
	Forecast float64 `json:"forecast"`
}

type FailureDTO struct {
	Product string `json:"product"`
	Kind    string `json:"kind"`
	Error   string `json:"error"`
}

// BatchForecastDTO lists forecasts in descending order of quantity.
type BatchForecastDTO struct {
	Model     string        `json:"model"`
	Target    string        `json:"target"`
	DatasetID string        `json:"dataset_id"`
	Forecasts []ForecastDTO `json:"forecasts"`
	Failures  []FailureDTO  `json:"failures"`
}

// =============================================================================
// SALES
// =============================================================================

type ProductTotalDTO struct {
	Product string  `json:"product"`
	Total   float64 `json:"total"`
}

type PeriodSalesDTO struct {
	Month     int               `json:"month"`
	Year      int               `json:"year"`
	Total     float64           `json:"total"`
	ByProduct []ProductTotalDTO `json:"by_product"`
}

type MonthlyRowDTO struct {
	Product string  `json:"product"`
	Period  string  `json:"period"`
	Total   float64 `json:"total"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toDatasetDTO(ds *demand.Dataset) DatasetDTO {
	dto := DatasetDTO{
		ID:       ds.ID,
		Source:   ds.Source,
		LoadedAt: ds.LoadedAt,
		Records:  len(ds.Records),
		Products: productNames(ds.Products),
	}
	var first, last time.Time
	for i, r := range ds.Records {
		d := r.Day()
		if i == 0 || d.Before(first) {
			first = d
		}
		if i == 0 || d.After(last) {
			last = d
		}
	}
	if len(ds.Records) > 0 {
		dto.FirstDate = first.Format(ingest.DateLayout)
		dto.LastDate = last.Format(ingest.DateLayout)
	}
	return dto
}

// NewBatchForecastDTO converts a batch for JSON output. Failures keep their
// error text.
func NewBatchForecastDTO(b *demand.BatchForecast) BatchForecastDTO {
	dto := BatchForecastDTO{
		Model:     b.Model,
		Target:    b.Target,
		DatasetID: b.DatasetID,
		Forecasts: make([]ForecastDTO, 0, len(b.Results)),
		Failures:  make([]FailureDTO, 0, len(b.Failures)),
	}
	for _, r := range b.Results {
		dto.Forecasts = append(dto.Forecasts, ForecastDTO{Product: string(r.Product), Target: r.Target, Forecast: r.Quantity})
	}
	for _, f := range b.Failures {
		dto.Failures = append(dto.Failures, FailureDTO{
			Product: string(f.Product),
			Kind:    string(f.Kind),
			Error:   f.Err.Error(),
		})
	}
	return dto
}

func toProductTotalDTOs(totals []demand.ProductTotal) []ProductTotalDTO {
	dtos := make([]ProductTotalDTO, 0, len(totals))
	for _, t := range totals {
		dtos = append(dtos, ProductTotalDTO{Product: string(t.Product), Total: t.Total.InexactFloat64()})
	}
	return dtos
}

func toPeriodSalesDTO(ps demand.PeriodSales) PeriodSalesDTO {
	return PeriodSalesDTO{
		Month:     int(ps.Period.Month),
		Year:      ps.Period.Year,
		Total:     ps.Total.InexactFloat64(),
		ByProduct: toProductTotalDTOs(ps.ByProduct),
	}
}

func toMonthlyRowDTOs(aggs []demand.PeriodAggregate) []MonthlyRowDTO {
	dtos := make([]MonthlyRowDTO, 0, len(aggs))
	for _, a := range aggs {
		dtos = append(dtos, MonthlyRowDTO{
			Product: string(a.Product),
			Period:  a.Period.String(),
			Total:   a.Total.InexactFloat64(),
		})
	}
	return dtos
}

func productNames(ids []demand.ProductID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return names
}
