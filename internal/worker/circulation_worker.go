package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/observability/metrics"
)

// CirculationWorker periodically recounts checked out books from the store
// and resets the checked out gauge. The service adjusts the gauge in
// process; this keeps it correct across restarts and multiple replicas.
type CirculationWorker struct {
	books    domain.BookRepository
	logger   *slog.Logger
	interval time.Duration
	set      func(int)
}

// NewCirculationWorker creates a new circulation worker
func NewCirculationWorker(books domain.BookRepository, logger *slog.Logger, interval time.Duration) *CirculationWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &CirculationWorker{
		books:    books,
		logger:   logger,
		interval: interval,
		set:      metrics.SetCheckedOut,
	}
}

// Start syncs once immediately, then on every tick until ctx is done.
func (w *CirculationWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("circulation worker started", slog.Duration("interval", w.interval))
	w.Sync(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("circulation worker stopped")
			return
		case <-ticker.C:
			w.Sync(ctx)
		}
	}
}

// Sync recounts once. Failures are logged and the gauge is left as is.
func (w *CirculationWorker) Sync(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, total, err := w.books.List(ctx, domain.BookQuery{
		Filter: domain.BookFilter{Status: domain.StatusCheckedOut},
		Limit:  1,
	})
	if err != nil {
		w.logger.Error("failed to count checked out books",
			slog.String("error", err.Error()),
		)
		return
	}

	w.set(total)
	w.logger.Debug("checked out gauge synced", slog.Int("checked_out", total))
}
