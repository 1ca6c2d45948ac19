package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/telemetry"
)

const defaultPurgeBatch = 100

// DocumentPurger deletes documents created before cutoff, at most batch per call.
type DocumentPurger interface {
	PurgeCreatedBefore(ctx context.Context, cutoff time.Time, batch int) (int, error)
}

// RetentionSweeper removes documents older than the retention window.
type RetentionSweeper struct {
	purger    DocumentPurger
	retention time.Duration
	batch     int
	now       func() time.Time
}

func NewRetentionSweeper(purger DocumentPurger, retention time.Duration) *RetentionSweeper {
	return &RetentionSweeper{
		purger:    purger,
		retention: retention,
		batch:     defaultPurgeBatch,
		now:       time.Now,
	}
}

// ProcessJobs purges in batches until a short batch signals nothing is left.
func (s *RetentionSweeper) ProcessJobs(ctx context.Context) error {
	ctx, span := telemetry.StartTransaction(ctx, "RetentionSweeper.ProcessJobs", "job.retention")
	defer span.End()

	cutoff := s.now().UTC().Add(-s.retention)
	total := 0
	for {
		n, err := s.purger.PurgeCreatedBefore(ctx, cutoff, s.batch)
		if err != nil {
			span.SetError(err)
			telemetry.CaptureError(ctx, err)
			return fmt.Errorf("purge after %d documents: %w", total, err)
		}
		total += n
		if n < s.batch {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if total > 0 {
		logger.FromContext(ctx).Info("expired documents purged", "count", total, "cutoff", cutoff)
	}
	return nil
}
