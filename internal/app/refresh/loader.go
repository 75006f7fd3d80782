package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/heartmarshall/mtgportal-cron/internal/domain"
	"github.com/heartmarshall/mtgportal-cron/pkg/ctxutil"
)

// BatchLoader moves records from a RecordSource into staging, one insert
// statement per batch. At most one batch is held in memory.
type BatchLoader struct {
	store   BatchInserter
	size    int
	log     *slog.Logger
	metrics Recorder
}

// NewBatchLoader creates a BatchLoader issuing batches of size records.
// metrics may be nil.
func NewBatchLoader(store BatchInserter, size int, log *slog.Logger, metrics Recorder) *BatchLoader {
	if size <= 0 {
		size = 1000
	}
	return &BatchLoader{store: store, size: size, log: log, metrics: metrics}
}

// Load drains src into staging. Cancellation is checked between batches
// only: a batch that has started is always finished. Decode errors from src
// are returned unchanged; insert failures are wrapped in *domain.LoadError.
func (l *BatchLoader) Load(ctx context.Context, src RecordSource) (LoadStats, error) {
	var stats LoadStats
	buf := make([]domain.CardRecord, 0, l.size)

	for {
		if err := ctx.Err(); err != nil {
			return stats, &domain.LoadError{Batch: stats.Batches + 1, Err: err}
		}

		buf = buf[:0]
		eof := false
		for len(buf) < l.size {
			rec, err := src.Next()
			if errors.Is(err, io.EOF) {
				eof = true
				break
			}
			if err != nil {
				return stats, err
			}
			buf = append(buf, rec)
		}
		stats.Decoded += len(buf)

		if len(buf) > 0 {
			if err := l.flush(ctx, buf, &stats); err != nil {
				return stats, err
			}
		}

		if eof {
			break
		}
	}

	stats.Skipped = stats.Decoded - stats.Inserted
	return stats, nil
}

func (l *BatchLoader) flush(ctx context.Context, batch []domain.CardRecord, stats *LoadStats) error {
	n := stats.Batches + 1
	start := time.Now()

	inserted, err := l.store.InsertBatch(context.WithoutCancel(ctx), batch)
	if err != nil {
		return &domain.LoadError{Batch: n, Err: err}
	}

	elapsed := time.Since(start)
	stats.Batches = n
	stats.Inserted += inserted

	if l.metrics != nil {
		l.metrics.ObserveBatch(len(batch), elapsed)
	}
	ctxutil.LoggerFromCtx(ctx, l.log).DebugContext(ctx, "batch inserted",
		slog.Int("batch", n),
		slog.Int("size", len(batch)),
		slog.Int("inserted", inserted),
		slog.Duration("duration", elapsed),
	)
	return nil
}
