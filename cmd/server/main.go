/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the demand forecasting server, and offers two
  offline commands for demos and scripting.

COMMANDS:
  serve     Run the HTTP API (default port 8080)
  seed      Write a demo scenario into a SQLite sales database
  forecast  Forecast a CSV file and print JSON to stdout

STARTUP SEQUENCE (serve):
  1. Load configuration (defaults, --config file, .env, DEMAND_* variables)
  2. Open the relational sales source (sqlite3 or pgx)
  3. Build the forecasters through the model factory
  4. Pull the initial dataset if source.load_on_start is set
  5. Start the refresh scheduler if source.refresh_interval > 0
  6. Start the server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (server.shutdown_timeout)
  3. Stop the scheduler and close the database

EXAMPLES:
  # Serve from a local SQLite file
  demand serve --config demand.yaml

  # Serve from PostgreSQL
  DEMAND_SOURCE_DRIVER=pgx DEMAND_SOURCE_DSN=postgres://... demand serve

  # Seed a demo database
  demand seed --db sales.db --scenario seasonal-monthly

  # One-off forecast
  demand forecast --file ventas.csv --model arima

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/warp/demand-engine/api"
	"github.com/warp/demand-engine/config"
	"github.com/warp/demand-engine/demand"
	"github.com/warp/demand-engine/demand/store"
	"github.com/warp/demand-engine/factory"
	"github.com/warp/demand-engine/ingest"
	"github.com/warp/demand-engine/store/sqlite"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "demand",
		Short:         "Sales demand forecasting service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.AddCommand(newServeCmd(), newSeedCmd(), newForecastCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger()
	ctx := logger.WithContext(cmd.Context())

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	db, sales, err := openSource(cfg.Source)
	if err != nil {
		return err
	}
	defer db.Close()
	source := ingest.NewSQLSource(db)

	if cfg.Source.LoadOnStart {
		if err := loadInitial(ctx, engine, source); err != nil {
			// The API still serves uploads and scenarios without a database.
			logger.Warn().Err(err).Msg("initial load failed")
		}
	}

	scheduler := api.NewRefreshScheduler(source, engine, logger)
	scheduler.Interval = cfg.Source.RefreshInterval
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(engine, source, sales)
	handler.DefaultTop = cfg.Ranking.DefaultTop

	router := api.NewRouter(handler, logger, cfg.Server.AllowedOrigins)
	server := api.NewServer(fmt.Sprintf(":%d", cfg.Server.Port), router, logger, cfg.Server.ShutdownTimeout)

	return server.Run(ctx)
}

func loadInitial(ctx context.Context, engine *demand.Engine, source *ingest.SQLSource) error {
	records, err := source.Pull(ctx)
	if err != nil {
		return err
	}
	_, err = engine.Ingest(ctx, "database", records)
	return err
}

// =============================================================================
// SEED
// =============================================================================

func newSeedCmd() *cobra.Command {
	var dbPath, scenario string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a demo scenario into a SQLite sales database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				cfg, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				dbPath = cfg.Source.DSN
			}

			sales, err := sqlite.New(dbPath)
			if err != nil {
				return err
			}
			defer sales.Close()

			records, err := api.SeedScenario(cmd.Context(), sales, scenario)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s: %d records, %d products into %s\n",
				scenario, len(records), len(demand.DistinctProducts(records)), dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default source.dsn)")
	cmd.Flags().StringVar(&scenario, "scenario", "bakery-daily", "Scenario id")
	return cmd
}

// =============================================================================
// FORECAST
// =============================================================================

func newForecastCmd() *cobra.Command {
	var file, model, product string

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast a CSV file and print JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			ctx := zerolog.Nop().WithContext(cmd.Context())

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			records, err := ingest.ParseCSV(filepath.Base(file), f)
			if err != nil {
				return err
			}

			engine, err := newEngine(cfg)
			if err != nil {
				return err
			}
			if _, err := engine.Ingest(ctx, "upload:"+filepath.Base(file), records); err != nil {
				return err
			}

			sel := demand.All()
			if product != "" {
				sel = demand.One(demand.ProductID(product))
			}

			var batch *demand.BatchForecast
			switch model {
			case factory.TypeSmoothing:
				batch, err = engine.ForecastSmoothing(ctx, sel)
			case factory.TypeARIMA:
				batch, err = engine.ForecastARIMA(ctx, sel)
			default:
				return fmt.Errorf("unknown model %q (want %s or %s)", model, factory.TypeSmoothing, factory.TypeARIMA)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(api.NewBatchForecastDTO(batch))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file with Fecha, Producto, Cantidad columns")
	cmd.Flags().StringVarP(&model, "model", "m", factory.TypeSmoothing, "smoothing or arima")
	cmd.Flags().StringVarP(&product, "product", "p", "", "Single product (default all)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// =============================================================================
// WIRING
// =============================================================================

func newEngine(cfg *config.Config) (*demand.Engine, error) {
	models := factory.NewModelFactory()

	smoothing, err := models.FromJSON(factory.ModelJSON{
		Type:           factory.TypeSmoothing,
		SeasonalPeriod: cfg.Forecast.SeasonalPeriod,
		Horizon:        cfg.Forecast.Horizon,
	})
	if err != nil {
		return nil, fmt.Errorf("smoothing model: %w", err)
	}
	arima, err := models.FromJSON(factory.ModelJSON{Type: factory.TypeARIMA})
	if err != nil {
		return nil, fmt.Errorf("arima model: %w", err)
	}

	engine := demand.NewEngine(store.NewMemory(), smoothing, arima)
	engine.Workers = cfg.Forecast.Workers
	return engine, nil
}

// openSource opens the relational sales database. For sqlite3 the schema is
// migrated and the store is returned so scenarios can write to it.
func openSource(cfg config.SourceConfig) (*sql.DB, *sqlite.Store, error) {
	switch cfg.Driver {
	case "sqlite3":
		sales, err := sqlite.New(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sales database: %w", err)
		}
		return sales.DB(), sales, nil
	default:
		db, err := sql.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sales database: %w", err)
		}
		return db, nil, nil
	}
}
