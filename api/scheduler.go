/*
scheduler.go - Periodic refresh from the relational sales source

PURPOSE:
  Re-pulls the sales database on a fixed interval and replaces the current
  dataset, so forecasts follow new sales without a manual ingest.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - A failed pull or ingest is logged and the current dataset is kept
  - Stop waits for an in-flight refresh to finish

USAGE:
  scheduler := NewRefreshScheduler(source, engine, logger)
  scheduler.Interval = 15 * time.Minute
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: IngestDatabase endpoint (manual refresh)
  - ingest/sql.go: SQLSource
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/demand-engine/demand"
)

// RefreshScheduler replaces the dataset from Source every Interval.
type RefreshScheduler struct {
	Source   SalesSource
	Engine   *demand.Engine
	Interval time.Duration
	Timeout  time.Duration // per refresh; 0 means Interval

	logger zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRefreshScheduler creates a scheduler with a one hour interval.
func NewRefreshScheduler(source SalesSource, engine *demand.Engine, logger zerolog.Logger) *RefreshScheduler {
	return &RefreshScheduler{
		Source:   source,
		Engine:   engine,
		Interval: time.Hour,
		logger:   logger.With().Str("component", "refresh").Logger(),
	}
}

// Start begins the scheduler. A non-positive Interval disables it.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.Interval <= 0 {
		rs.logger.Info().Msg("refresh disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.logger.Info().Dur("interval", rs.Interval).Msg("refresh started")
}

// Stop stops the scheduler.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logger.Info().Msg("refresh stopped")
	}
}

func (rs *RefreshScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	for {
		select {
		case <-ticker.C:
			rs.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow performs one refresh and reports whether the dataset was replaced.
func (rs *RefreshScheduler) RunNow() bool {
	timeout := rs.Timeout
	if timeout <= 0 {
		timeout = rs.Interval
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = rs.logger.WithContext(ctx)

	records, err := rs.Source.Pull(ctx)
	if err != nil {
		rs.logger.Error().Err(err).Msg("pull failed, keeping current dataset")
		return false
	}

	if _, err := rs.Engine.Ingest(ctx, "database", records); err != nil {
		rs.logger.Error().Err(err).Msg("ingest failed, keeping current dataset")
		return false
	}
	return true
}
