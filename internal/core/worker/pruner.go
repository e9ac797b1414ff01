package worker

import (
	"context"
	"log/slog"
	"time"
)

// Purger deletes old rows from a history store.
type Purger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// Pruner deletes old fault history based on retention policy.
type Pruner struct {
	retention time.Duration
	history   Purger
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, history Purger) *Pruner {
	return &Pruner{
		retention: retention,
		history:   history,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Calculate check interval (e.g., 10% of retention period, but max 1 hour)
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	n, err := p.history.Purge(ctx, p.retention)
	if err != nil {
		slog.Error("Failed to prune fault history", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Pruned fault history", "rows", n, "retention", p.retention)
	}
}
