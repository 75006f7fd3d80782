// Package refresh replaces the live card table with a freshly loaded copy of
// the bulk dataset. A run locates and downloads the dataset, streams it into
// the staging table in batches and swaps staging with live, all inside one
// transaction: readers see either the old catalog or the new one.
package refresh

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mtgportal-cron/internal/domain"
	"github.com/heartmarshall/mtgportal-cron/internal/metrics"
)

// Locator resolves where the current dataset can be downloaded.
// Implemented by scryfall.Locator.
type Locator interface {
	Locate(ctx context.Context) (domain.DatasetLocation, error)
}

// Fetcher downloads a dataset to local disk.
// Implemented by scryfall.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, loc domain.DatasetLocation) (domain.Download, error)
}

// RecordSource yields decoded records, io.EOF after the last one.
// Implemented by *decoder.Stream.
type RecordSource interface {
	Next() (domain.CardRecord, error)
	Close() error
}

// OpenFunc opens a payload file as a RecordSource.
type OpenFunc func(path string) (RecordSource, error)

// BatchInserter writes one batch into staging and reports how many rows
// were actually inserted.
type BatchInserter interface {
	InsertBatch(ctx context.Context, records []domain.CardRecord) (int, error)
}

// CardStore is the table contract consumed by the orchestrator.
// Implemented by cardtable.Repo.
type CardStore interface {
	BatchInserter
	EnsureTables(ctx context.Context) error
	VerifySchema(ctx context.Context) error
	TruncateStaging(ctx context.Context) error
	Promote(ctx context.Context) error
}

// UnitOfWork is one open transaction. Rollback must be a no-op once the
// unit has been committed or rolled back. Implemented by *postgres.Unit.
type UnitOfWork interface {
	Context() context.Context
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// BeginFunc opens a UnitOfWork.
type BeginFunc func(ctx context.Context) (UnitOfWork, error)

// Recorder receives run and batch metrics. Implemented by *metrics.Recorder.
type Recorder interface {
	ObserveBatch(size int, d time.Duration)
	ObserveRun(run metrics.Run)
	Push(ctx context.Context) error
}

// LoadStats counts what a load did.
type LoadStats struct {
	Decoded  int
	Inserted int
	// Skipped records had an id already present in staging.
	Skipped int
	Batches int
}

// Result summarises a run.
type Result struct {
	RunID    uuid.UUID
	State    State
	DryRun   bool
	Location domain.DatasetLocation
	Payload  string
	LoadStats
	Duration time.Duration
}

// Committed reports whether the run replaced the live table.
func (r Result) Committed() bool {
	return r.State == StateCommitted
}
