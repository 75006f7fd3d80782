package refresh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/qmuntal/stateless"

	"github.com/heartmarshall/mtgportal-cron/internal/metrics"
	"github.com/heartmarshall/mtgportal-cron/pkg/ctxutil"
)

// Options tune a run.
type Options struct {
	BatchSize int
	// DryRun locates, downloads and decodes the dataset without touching
	// the datastore.
	DryRun bool
	// CleanupDownloads removes every downloaded or extracted file after
	// the run, whatever its outcome.
	CleanupDownloads bool
}

// Deps are the collaborators of an Orchestrator. Metrics may be nil.
type Deps struct {
	Locator Locator
	Fetcher Fetcher
	Open    OpenFunc
	Store   CardStore
	Begin   BeginFunc
	Metrics Recorder
}

// Orchestrator runs one refresh end to end.
type Orchestrator struct {
	deps   Deps
	opts   Options
	loader *BatchLoader
	log    *slog.Logger
	now    func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	log := logger.With("component", "refresh")
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		loader: NewBatchLoader(deps.Store, opts.BatchSize, log, deps.Metrics),
		log:    log,
		now:    time.Now,
	}
}

// Run performs one refresh. Failures before the transaction starts leave
// the run in StateIdle with nothing to undo; later failures roll back and
// end in StateRolledBack. The returned Result is filled in either case.
func (o *Orchestrator) Run(ctx context.Context) (res Result, err error) {
	res.RunID = uuid.New()
	res.State = StateIdle
	res.DryRun = o.opts.DryRun

	ctx = ctxutil.WithRunID(ctx, res.RunID)
	log := ctxutil.LoggerFromCtx(ctx, o.log)
	start := o.now()

	log.InfoContext(ctx, "refresh started", slog.Bool("dry_run", o.opts.DryRun))

	defer func() {
		res.Duration = o.now().Sub(start)
		if r := recover(); r != nil {
			o.report(ctx, log, res, fmt.Errorf("panic: %v", r))
			panic(r)
		}
		o.report(ctx, log, res, err)
	}()

	loc, err := o.deps.Locator.Locate(ctx)
	if err != nil {
		return res, err
	}
	res.Location = loc

	dl, err := o.deps.Fetcher.Fetch(ctx, loc)
	if o.opts.CleanupDownloads {
		defer o.cleanup(ctx, log, dl.Files)
	}
	if err != nil {
		return res, err
	}
	res.Payload = dl.PayloadPath

	src, err := o.deps.Open(dl.PayloadPath)
	if err != nil {
		return res, err
	}
	defer src.Close()

	if o.opts.DryRun {
		res.LoadStats, err = o.drain(ctx, src)
		return res, err
	}

	err = o.transact(ctx, log, src, &res)
	return res, err
}

// transact runs Preparing, Loading and Promoting inside one unit of work
// and records the final state and load stats in res.
func (o *Orchestrator) transact(ctx context.Context, log *slog.Logger, src RecordSource, res *Result) error {
	unit, err := o.deps.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin refresh: %w", err)
	}

	machine := newMachine(log)
	uctx := unit.Context()

	fail := func(cause error) error {
		err := o.abort(ctx, machine, unit, cause)
		res.State = currentState(machine)
		return err
	}

	// Rollback is a no-op once the unit has been committed or aborted.
	defer func() {
		if r := recover(); r != nil {
			_ = fail(fmt.Errorf("panic: %v", r))
			panic(r)
		}
		_ = unit.Rollback(ctx)
	}()

	if err := machine.FireCtx(ctx, triggerPrepare); err != nil {
		return fail(err)
	}
	if err := o.prepare(uctx); err != nil {
		return fail(err)
	}

	if err := machine.FireCtx(ctx, triggerLoad); err != nil {
		return fail(err)
	}
	stats, err := o.loader.Load(uctx, src)
	res.LoadStats = stats
	if err != nil {
		return fail(err)
	}
	log.InfoContext(ctx, "staging loaded",
		slog.Int("decoded", stats.Decoded),
		slog.Int("inserted", stats.Inserted),
		slog.Int("skipped", stats.Skipped),
		slog.Int("batches", stats.Batches),
	)

	if err := machine.FireCtx(ctx, triggerPromote); err != nil {
		return fail(err)
	}
	if err := o.deps.Store.Promote(uctx); err != nil {
		return fail(err)
	}

	if err := unit.Commit(ctx); err != nil {
		return fail(err)
	}
	if err := machine.FireCtx(ctx, triggerCommit); err != nil {
		return err
	}

	res.State = currentState(machine)
	return nil
}

func (o *Orchestrator) prepare(ctx context.Context) error {
	if err := o.deps.Store.EnsureTables(ctx); err != nil {
		return err
	}
	if err := o.deps.Store.VerifySchema(ctx); err != nil {
		return err
	}
	return o.deps.Store.TruncateStaging(ctx)
}

// abort rolls the unit back and moves the machine to StateRolledBack.
func (o *Orchestrator) abort(ctx context.Context, machine *stateless.StateMachine, unit UnitOfWork, cause error) error {
	rbErr := unit.Rollback(ctx)
	if err := machine.FireCtx(ctx, triggerAbort); err != nil {
		ctxutil.LoggerFromCtx(ctx, o.log).ErrorContext(ctx, "state machine rejected abort", slog.String("error", err.Error()))
	}
	if rbErr != nil {
		return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, cause)
	}
	return cause
}

// drain decodes every record without storing anything.
func (o *Orchestrator) drain(ctx context.Context, src RecordSource) (LoadStats, error) {
	var stats LoadStats
	for {
		if stats.Decoded%o.loader.size == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		if _, err := src.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				return stats, nil
			}
			return stats, err
		}
		stats.Decoded++
	}
}

func (o *Orchestrator) cleanup(ctx context.Context, log *slog.Logger, files []string) {
	var result *multierror.Error
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		log.WarnContext(ctx, "cleanup downloads", slog.String("error", err.Error()))
		return
	}
	log.DebugContext(ctx, "downloads removed", slog.Int("files", len(files)))
}

func (o *Orchestrator) report(ctx context.Context, log *slog.Logger, res Result, err error) {
	if err != nil {
		log.ErrorContext(ctx, "refresh failed",
			slog.String("state", string(res.State)),
			slog.String("error", err.Error()),
			slog.Duration("duration", res.Duration),
		)
	} else {
		log.InfoContext(ctx, "refresh finished",
			slog.String("state", string(res.State)),
			slog.Bool("dry_run", res.DryRun),
			slog.String("uri", res.Location.URI),
			slog.Int("decoded", res.Decoded),
			slog.Int("inserted", res.Inserted),
			slog.Int("skipped", res.Skipped),
			slog.Int("batches", res.Batches),
			slog.Duration("duration", res.Duration),
		)
	}

	if o.deps.Metrics == nil || res.DryRun {
		return
	}
	o.deps.Metrics.ObserveRun(metrics.Run{
		Success:    err == nil && res.Committed(),
		Decoded:    res.Decoded,
		Inserted:   res.Inserted,
		Skipped:    res.Skipped,
		Batches:    res.Batches,
		Duration:   res.Duration,
		FinishedAt: o.now(),
	})
	if err := o.deps.Metrics.Push(context.WithoutCancel(ctx)); err != nil {
		log.WarnContext(ctx, "push metrics", slog.String("error", err.Error()))
	}
}
