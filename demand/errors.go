/*
errors.go - Centralized error types for the demand engine

PURPOSE:
  All error kinds in one place. Core operations return these (wrapped with
  context) and never decide how they are presented; the api package maps
  them to HTTP status codes.

ERROR KINDS:
  1. Validation        - Malformed input (non-CSV upload, bad date, bad month)
  2. NoData            - Forecast/aggregate requested before any ingest
  3. InsufficientData  - Series too short for the requested model
  4. ForecastFit       - Numerical fitting failure
  5. ExternalSource    - Database connection/query failure
  6. ProductNotFound   - Product absent from the current dataset

USAGE:
  if errors.Is(err, demand.ErrInsufficientData) {
      var ide *demand.InsufficientDataError
      errors.As(err, &ide)
      log.Printf("%s needs %d points", ide.Product, ide.Need)
  }

SEE ALSO:
  - api/handlers.go: statusFor maps kinds to HTTP status
*/
package demand

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrNoData is returned when no dataset has been ingested yet.
	ErrNoData = errors.New("no data loaded")

	// ErrInsufficientData is returned when a series is too short for a model.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrForecastFit is returned when a model cannot be fitted.
	ErrForecastFit = errors.New("forecast fit failed")

	// ErrExternalSource is returned when the relational source fails.
	ErrExternalSource = errors.New("external source failed")

	// ErrProductNotFound is returned when a product is not in the dataset.
	ErrProductNotFound = errors.New("product not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes one rejected input value.
type ValidationError struct {
	Row    int // 1-based data row, 0 when not row specific
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientDataError reports how many observations a model needed.
type InsufficientDataError struct {
	Product ProductID
	Have    int
	Need    int
	Unit    string // "points" or "months"
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("product %q has %d %s, need at least %d", e.Product, e.Have, e.Unit, e.Need)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// FitError reports a numerical fitting failure.
type FitError struct {
	Product ProductID
	Model   string
	Reason  string
}

func (e *FitError) Error() string {
	if e.Product == "" {
		return fmt.Sprintf("%s fit failed: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("%s fit failed for product %q: %s", e.Model, e.Product, e.Reason)
}

func (e *FitError) Unwrap() error { return ErrForecastFit }

// ExternalSourceError wraps a database failure.
type ExternalSourceError struct {
	Op  string // e.g. "connect", "query", "scan"
	Err error
}

func (e *ExternalSourceError) Error() string {
	return fmt.Sprintf("external source %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the driver error.
func (e *ExternalSourceError) Unwrap() []error { return []error{ErrExternalSource, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// ErrorKind is the stable, transport-independent name of an error class.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNoData           ErrorKind = "no_data"
	KindInsufficientData ErrorKind = "insufficient_data"
	KindForecastFit      ErrorKind = "forecast_fit"
	KindExternalSource   ErrorKind = "external_source"
	KindNotFound         ErrorKind = "not_found"
	KindInternal         ErrorKind = "internal"
)

// Kind classifies err.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNoData):
		return KindNoData
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrForecastFit):
		return KindForecastFit
	case errors.Is(err, ErrExternalSource):
		return KindExternalSource
	case errors.Is(err, ErrProductNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing product.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}

// IsModelError returns true if the data could not support the model.
func IsModelError(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrForecastFit)
}
