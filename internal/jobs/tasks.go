package jobs

import (
	"context"
	"log/slog"
	"time"
)

// StateSweeper removes expired authorization states
type StateSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// ClientPruner forgets idle rate limit clients
type ClientPruner interface {
	Cleanup(idle time.Duration) int
}

// SweepStates returns a job that sweeps expired states
func SweepStates(sweeper StateSweeper, logger *slog.Logger) Job {
	return func(ctx context.Context) error {
		n, err := sweeper.Sweep(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("expired states removed", "count", n)
		}
		return nil
	}
}

// PruneClients returns a job that drops rate limit state of clients idle
// for longer than idle
func PruneClients(pruner ClientPruner, idle time.Duration, logger *slog.Logger) Job {
	return func(ctx context.Context) error {
		if n := pruner.Cleanup(idle); n > 0 {
			logger.Debug("idle rate limit clients removed", "count", n)
		}
		return nil
	}
}
