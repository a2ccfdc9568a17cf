package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/efreitasn/marketmatch/internal/store"
)

// Scheduler clears every instrument at a fixed interval.
type Scheduler struct {
	interval    time.Duration
	clearer     *Clearer
	instruments *store.InstrumentStore
	logger      *slog.Logger
}

// NewScheduler creates a Scheduler with the given dependencies.
func NewScheduler(interval time.Duration, clearer *Clearer, instruments *store.InstrumentStore, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval:    interval,
		clearer:     clearer,
		instruments: instruments,
		logger:      logger,
	}
}

// Start launches a background goroutine that clears all instruments every
// interval. It stops when ctx is cancelled. A non-positive interval
// disables the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// tick runs one session per instrument, in symbol order. A failing
// instrument does not stop the others.
func (s *Scheduler) tick() int {
	cleared := 0
	for _, symbol := range s.instruments.Symbols() {
		session, err := s.clearer.Clear(symbol)
		if err != nil {
			s.logger.Warn("scheduled clearing failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		if session != nil {
			cleared++
		}
	}
	return cleared
}
