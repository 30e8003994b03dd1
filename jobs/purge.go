package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPurgeLoginAttemptsHandler returns the handler deleting login
// attempt rows older than retention. Runs as a scheduled task.
func NewPurgeLoginAttemptsHandler(pool *pgxpool.Pool, retention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		cutoff := time.Now().Add(-retention)
		tag, err := pool.Exec(ctx, `DELETE FROM login_attempts WHERE created_at < $1`, cutoff)
		if err != nil {
			return err
		}
		logger.Info("purged login attempts",
			slog.Int64("deleted", tag.RowsAffected()),
			slog.Time("cutoff", cutoff))
		return nil
	}
}
