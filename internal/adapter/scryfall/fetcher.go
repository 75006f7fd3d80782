package scryfall

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/heartmarshall/mtgportal-cron/internal/domain"
	"github.com/heartmarshall/mtgportal-cron/pkg/ctxutil"
)

const (
	filePrefix = "scryfall_bulk_cards_"
	chunkSize  = 8 << 10
)

// Fetcher downloads the bulk dataset into a local directory and unwraps it
// when it arrives as an archive.
type Fetcher struct {
	client *resty.Client
	dir    string
	log    *slog.Logger
	now    func() time.Time
}

// NewFetcher creates a Fetcher writing into dir. The download has no timeout
// of its own; it is bounded by the caller's context.
func NewFetcher(dir, userAgent string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: newClient(userAgent),
		dir:    dir,
		log:    logger.With("adapter", "scryfall_fetcher"),
		now:    time.Now,
	}
}

// Fetch downloads loc.URI and returns the JSON payload to decode.
// The returned Download lists every file created, also when err is non-nil.
func (f *Fetcher) Fetch(ctx context.Context, loc domain.DatasetLocation) (domain.Download, error) {
	var dl domain.Download
	log := ctxutil.LoggerFromCtx(ctx, f.log)

	fail := func(err error) (domain.Download, error) {
		return dl, &domain.FetchError{URI: loc.URI, Err: err}
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fail(fmt.Errorf("create download dir: %w", err))
	}

	ts := f.now()
	base := filepath.Join(f.dir, fmt.Sprintf("%s%s_%09d", filePrefix, ts.Format("20060102_150405"), ts.Nanosecond()))
	partPath := base + ".part"

	dl.Files = append(dl.Files, partPath)
	written, err := f.download(ctx, loc.URI, partPath)
	if err != nil {
		return fail(err)
	}

	log.InfoContext(ctx, "dataset downloaded", slog.String("path", partPath), slog.Int64("bytes", written))

	kind, err := sniffFile(partPath)
	if err != nil {
		return fail(err)
	}

	archivePath := base + kind.ext()
	if err := os.Rename(partPath, archivePath); err != nil {
		return fail(fmt.Errorf("rename download: %w", err))
	}
	dl.Files[0] = archivePath

	var extracted []string
	switch kind {
	case kindPlain:
		extracted = []string{archivePath}
	case kindZip:
		extracted, err = extractZip(archivePath, f.dir)
	case kindGzip:
		extracted, err = decompressGzip(archivePath, base+".json")
	case kindZstd:
		extracted, err = decompressZstd(archivePath, base+".json")
	}
	if kind != kindPlain {
		dl.Files = append(dl.Files, extracted...)
	}
	if err != nil {
		return fail(fmt.Errorf("unwrap %s: %w", kind, err))
	}

	payload, err := selectPayload(extracted)
	if err != nil {
		return fail(err)
	}
	dl.PayloadPath = payload

	log.InfoContext(ctx, "payload ready",
		slog.String("format", kind.String()),
		slog.String("payload", payload),
	)

	return dl, nil
}

// download streams uri into path in fixed-size chunks.
func (f *Fetcher) download(ctx context.Context, uri, path string) (int64, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(uri)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return 0, fmt.Errorf("%w: %d", domain.ErrUnexpectedStatus, resp.StatusCode())
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	// Wrapping hides ReaderFrom/WriterTo so the copy goes through buf.
	n, err := io.CopyBuffer(struct{ io.Writer }{out}, struct{ io.Reader }{body}, make([]byte, chunkSize))
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}

// selectPayload picks the single .json file among the unwrapped files.
func selectPayload(files []string) (string, error) {
	var candidates []string
	for _, p := range files {
		if isJSONFile(p) {
			candidates = append(candidates, p)
		}
	}

	switch len(candidates) {
	case 0:
		return "", domain.ErrNoPayloadFound
	case 1:
		return candidates[0], nil
	default:
		return "", fmt.Errorf("%w: %d candidates", domain.ErrAmbiguousPayload, len(candidates))
	}
}
