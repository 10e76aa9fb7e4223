/*
handlers.go - HTTP API handlers for the demand forecasting service

PURPOSE:
  Exposes the demand engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the demand package.

ENDPOINTS:
  Ingestion:
    POST   /api/upload                  Multipart CSV upload (field "file")
    POST   /api/ingest/database         Re-pull the relational sales source
    GET    /api/dataset                 Current dataset metadata

  Forecasts:
    GET    /api/forecast?product=       Smoothing forecast, one or all products
    GET    /api/forecast/all_products   Smoothing forecast for every product
    GET    /api/forecast/next-month     ARIMA forecast for the month after the data

  Aggregates:
    GET    /api/top-products?n=         Best sellers over the whole dataset
    GET    /api/sales/by-period         ?month=&year= totals with breakdown
    GET    /api/sales/monthly?product=  Month totals per product

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: Dataset store and forecasting
  - Source: Relational puller (optional)
  - Sales:  Sales database written by scenarios (optional)

ERROR HANDLING:
  Errors are returned as JSON {error, kind, details} with HTTP status
  chosen by demand.Kind:
  - 400: Validation errors, invalid input
  - 404: Unknown product
  - 409: No dataset loaded yet
  - 422: Not enough history or the model failed to fit
  - 502: Relational source failed
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo datasets
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/warp/demand-engine/demand"
	"github.com/warp/demand-engine/ingest"
	"github.com/warp/demand-engine/store/sqlite"
)

// maxUploadBytes bounds the multipart body held in memory.
const maxUploadBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// SalesSource pulls the full sales history from an external system.
type SalesSource interface {
	Pull(ctx context.Context) ([]demand.SalesRecord, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine     *demand.Engine
	Source     SalesSource   // nil disables /api/ingest/database
	Sales      *sqlite.Store // nil keeps scenarios in memory only
	DefaultTop int

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler around engine.
func NewHandler(engine *demand.Engine, source SalesSource, sales *sqlite.Store) *Handler {
	return &Handler{
		Engine:     engine,
		Source:     source,
		Sales:      sales,
		DefaultTop: 10,
	}
}

// Health reports liveness. It does not require a dataset.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// INGESTION
// =============================================================================

// Upload parses a CSV upload and replaces the current dataset.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDomainError(w, r, "Missing upload", &demand.ValidationError{Field: "file", Reason: "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	records, err := ingest.ParseCSV(header.Filename, file)
	if err != nil {
		writeDomainError(w, r, "Failed to parse upload", err)
		return
	}

	h.ingest(w, r, "upload:"+header.Filename, records)
}

// IngestDatabase re-pulls the relational source and replaces the dataset.
func (h *Handler) IngestDatabase(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		writeError(w, http.StatusServiceUnavailable, "Relational source is not configured", nil)
		return
	}

	records, err := h.Source.Pull(r.Context())
	if err != nil {
		writeDomainError(w, r, "Failed to pull sales", err)
		return
	}

	h.ingest(w, r, "database", records)
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, source string, records []demand.SalesRecord) {
	ds, err := h.Engine.Ingest(r.Context(), source, records)
	if err != nil {
		writeDomainError(w, r, "Failed to ingest sales", err)
		return
	}

	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, UploadResponse{
		Status:    "Data uploaded successfully",
		DatasetID: ds.ID,
		Source:    ds.Source,
		Records:   len(ds.Records),
		Products:  productNames(ds.Products),
	})
}

// GetDataset returns metadata for the current dataset.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Engine.Dataset(r.Context())
	if err != nil {
		writeDomainError(w, r, "No dataset", err)
		return
	}
	writeJSON(w, http.StatusOK, toDatasetDTO(ds))
}

// =============================================================================
// FORECASTS
// =============================================================================

// Forecast runs the smoothing model for ?product= or, when absent, for
// every product.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	h.writeForecast(w, r, h.Engine.ForecastSmoothing, selectionFrom(r))
}

// ForecastAllProducts runs the smoothing model for every product.
func (h *Handler) ForecastAllProducts(w http.ResponseWriter, r *http.Request) {
	h.writeForecast(w, r, h.Engine.ForecastSmoothing, demand.All())
}

// ForecastNextMonth runs the ARIMA model against the month following the
// latest month in the dataset.
func (h *Handler) ForecastNextMonth(w http.ResponseWriter, r *http.Request) {
	h.writeForecast(w, r, h.Engine.ForecastARIMA, selectionFrom(r))
}

type forecastFunc func(ctx context.Context, sel demand.Selection) (*demand.BatchForecast, error)

func (h *Handler) writeForecast(w http.ResponseWriter, r *http.Request, run forecastFunc, sel demand.Selection) {
	batch, err := run(r.Context(), sel)
	if err != nil {
		writeDomainError(w, r, fmt.Sprintf("Failed to forecast %s", sel), err)
		return
	}
	writeJSON(w, http.StatusOK, NewBatchForecastDTO(batch))
}

func selectionFrom(r *http.Request) demand.Selection {
	product := strings.TrimSpace(r.URL.Query().Get("product"))
	if product == "" {
		return demand.All()
	}
	return demand.One(demand.ProductID(product))
}

// =============================================================================
// AGGREGATES
// =============================================================================

// TopProducts returns the n best selling products, n defaulting to
// DefaultTop.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	n := h.DefaultTop
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeDomainError(w, r, "Invalid n", &demand.ValidationError{Field: "n", Reason: "must be an integer"})
			return
		}
		n = v
	}

	totals, err := h.Engine.TopProducts(r.Context(), n)
	if err != nil {
		writeDomainError(w, r, "Failed to rank products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductTotalDTOs(totals))
}

// SalesByPeriod returns what sold in ?month= of ?year=.
func (h *Handler) SalesByPeriod(w http.ResponseWriter, r *http.Request) {
	month, err := intParam(r, "month")
	if err != nil {
		writeDomainError(w, r, "Invalid month", err)
		return
	}
	year, err := intParam(r, "year")
	if err != nil {
		writeDomainError(w, r, "Invalid year", err)
		return
	}

	sales, err := h.Engine.SalesByPeriod(r.Context(), month, year)
	if err != nil {
		writeDomainError(w, r, "Failed to aggregate sales", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodSalesDTO(sales))
}

// SalesMonthly returns month totals for ?product= or every product.
func (h *Handler) SalesMonthly(w http.ResponseWriter, r *http.Request) {
	aggs, err := h.Engine.MonthlySeries(r.Context(), selectionFrom(r))
	if err != nil {
		writeDomainError(w, r, "Failed to aggregate sales", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyRowDTOs(aggs))
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, &demand.ValidationError{Field: name, Reason: "is required"}
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &demand.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return v, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

func (h *Handler) getCurrentScenario() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.currentScenario
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps err to a status by its kind. Server side failures
// are logged with the request logger.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	kind := demand.Kind(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", string(kind)).Msg(message)
	}

	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Kind:    string(kind),
		Details: err.Error(),
	})
}

func statusFor(kind demand.ErrorKind) int {
	switch kind {
	case demand.KindValidation:
		return http.StatusBadRequest
	case demand.KindNotFound:
		return http.StatusNotFound
	case demand.KindNoData:
		return http.StatusConflict
	case demand.KindInsufficientData, demand.KindForecastFit:
		return http.StatusUnprocessableEntity
	case demand.KindExternalSource:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
