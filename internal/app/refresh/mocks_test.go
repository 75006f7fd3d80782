package refresh

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/heartmarshall/mtgportal-cron/internal/domain"
	"github.com/heartmarshall/mtgportal-cron/internal/metrics"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newJSONLogger logs everything, debug included, as JSON lines into buf.
func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var lines []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid log line %q: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	return lines
}

func records(ids ...string) []domain.CardRecord {
	out := make([]domain.CardRecord, len(ids))
	for i, id := range ids {
		out[i] = domain.CardRecord{ID: id}
	}
	return out
}

// callLog records calls across every mock of a test, in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(name string) int {
	n := 0
	for _, c := range l.list() {
		if c == name {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------

type mockLocator struct {
	log *callLog
	loc domain.DatasetLocation
	err error
	ctx context.Context
}

func (m *mockLocator) Locate(ctx context.Context) (domain.DatasetLocation, error) {
	m.log.add("Locate")
	m.ctx = ctx
	return m.loc, m.err
}

type mockFetcher struct {
	log *callLog
	dl  domain.Download
	err error
}

func (m *mockFetcher) Fetch(_ context.Context, _ domain.DatasetLocation) (domain.Download, error) {
	m.log.add("Fetch")
	return m.dl, m.err
}

// sliceSource yields recs, then failAt's error (if set) instead of the
// element at that index, then io.EOF.
type sliceSource struct {
	recs    []domain.CardRecord
	pos     int
	failAt  int
	failErr error
	closed  bool
}

func newSliceSource(recs []domain.CardRecord) *sliceSource {
	return &sliceSource{recs: recs, failAt: -1}
}

func (s *sliceSource) Next() (domain.CardRecord, error) {
	if s.failErr != nil && s.pos == s.failAt {
		return domain.CardRecord{}, s.failErr
	}
	if s.pos >= len(s.recs) {
		return domain.CardRecord{}, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

// mockStore behaves like a staging table with a primary key on id.
type mockStore struct {
	log *callLog

	ensureErr   error
	verifyErr   error
	truncateErr error
	insertErr   error
	insertErrAt int // 1-based batch number; 0 means every batch
	promoteErr  error

	// onInsert runs before each insert; tests use it to cancel contexts.
	onInsert func(ctx context.Context, batch int)

	staged        map[string]bool
	batchSizes    []int
	insertCtxErrs []error
}

func newMockStore(log *callLog) *mockStore {
	return &mockStore{log: log, staged: make(map[string]bool)}
}

func (m *mockStore) EnsureTables(context.Context) error {
	m.log.add("EnsureTables")
	return m.ensureErr
}

func (m *mockStore) VerifySchema(context.Context) error {
	m.log.add("VerifySchema")
	return m.verifyErr
}

func (m *mockStore) TruncateStaging(context.Context) error {
	m.log.add("TruncateStaging")
	return m.truncateErr
}

func (m *mockStore) InsertBatch(ctx context.Context, recs []domain.CardRecord) (int, error) {
	m.log.add("InsertBatch")
	batch := len(m.batchSizes) + 1
	m.batchSizes = append(m.batchSizes, len(recs))

	if m.onInsert != nil {
		m.onInsert(ctx, batch)
	}
	m.insertCtxErrs = append(m.insertCtxErrs, ctx.Err())

	if m.insertErr != nil && (m.insertErrAt == 0 || m.insertErrAt == batch) {
		return 0, m.insertErr
	}

	inserted := 0
	for _, r := range recs {
		if !m.staged[r.ID] {
			m.staged[r.ID] = true
			inserted++
		}
	}
	return inserted, nil
}

func (m *mockStore) Promote(context.Context) error {
	m.log.add("Promote")
	return m.promoteErr
}

type mockUnit struct {
	log         *callLog
	ctx         context.Context
	commitErr   error
	rollbackErr error
	done        bool
	committed   bool
	rolledBack  bool
}

func (u *mockUnit) Context() context.Context { return u.ctx }

func (u *mockUnit) Commit(context.Context) error {
	u.log.add("Commit")
	if u.done {
		return errors.New("unit already finished")
	}
	u.done = true
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}

func (u *mockUnit) Rollback(context.Context) error {
	if u.done {
		return nil
	}
	u.log.add("Rollback")
	u.done = true
	u.rolledBack = true
	return u.rollbackErr
}

type mockRecorder struct {
	mu      sync.Mutex
	runs    []metrics.Run
	batches []int
	pushes  int
	pushErr error
}

func (m *mockRecorder) ObserveBatch(size int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, size)
}

func (m *mockRecorder) ObserveRun(run metrics.Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
}

func (m *mockRecorder) Push(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes++
	return m.pushErr
}
