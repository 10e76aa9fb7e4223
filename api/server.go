/*
server.go - HTTP router, middleware configuration and server lifecycle

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions,
  and runs the listener until the context is cancelled.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: zerolog logger in the request context
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/upload, /api/ingest/*   Dataset ingestion
  /api/dataset                 Current dataset metadata
  /api/forecast/*              Smoothing and ARIMA forecasts
  /api/top-products            Ranking
  /api/sales/*                 Period and monthly aggregates
  /api/scenarios/*             Demo datasets
  /api/health                  Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger zerolog.Logger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(&logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Ingestion
		r.Post("/upload", h.Upload)
		r.Post("/ingest/database", h.IngestDatabase)
		r.Get("/dataset", h.GetDataset)

		// Forecasts
		r.Route("/forecast", func(r chi.Router) {
			r.Get("/", h.Forecast)
			r.Get("/all_products", h.ForecastAllProducts)
			r.Get("/next-month", h.ForecastNextMonth)
		})

		// Aggregates
		r.Get("/top-products", h.TopProducts)
		r.Route("/sales", func(r chi.Router) {
			r.Get("/by-period", h.SalesByPeriod)
			r.Get("/monthly", h.SalesMonthly)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// =============================================================================
// SERVER
// =============================================================================

// Server wraps http.Server with a shutdown deadline.
type Server struct {
	server          *http.Server
	logger          *zerolog.Logger
	shutdownTimeout time.Duration
}

func NewServer(addr string, handler http.Handler, logger zerolog.Logger, shutdownTimeout time.Duration) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:          &logger,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then drains outstanding requests.
func (s *Server) Run(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("starting server")
		serverErrors <- s.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("graceful shutdown failed")
			return s.server.Close()
		}
	}

	return nil
}
