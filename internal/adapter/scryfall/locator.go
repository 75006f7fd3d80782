// Package scryfall resolves and downloads the Scryfall bulk card dataset.
package scryfall

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/heartmarshall/mtgportal-cron/internal/config"
	"github.com/heartmarshall/mtgportal-cron/internal/domain"
	"github.com/heartmarshall/mtgportal-cron/pkg/ctxutil"
)

// Locator asks the catalog endpoint where the current bulk dataset lives.
type Locator struct {
	client     *resty.Client
	catalogURL string
	bulkType   string
	log        *slog.Logger
	now        func() time.Time
}

// NewLocator creates a Locator for the configured catalog endpoint.
func NewLocator(cfg config.ScryfallConfig, userAgent string, logger *slog.Logger) *Locator {
	return &Locator{
		client:     newClient(userAgent).SetTimeout(cfg.RequestTimeout),
		catalogURL: cfg.CatalogURL,
		bulkType:   cfg.BulkType,
		log:        logger.With("adapter", "scryfall_locator"),
		now:        time.Now,
	}
}

func newClient(userAgent string) *resty.Client {
	return resty.New().
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
}

// Locate resolves the download URI of the bulk dataset. It does not retry.
func (l *Locator) Locate(ctx context.Context) (domain.DatasetLocation, error) {
	log := ctxutil.LoggerFromCtx(ctx, l.log)
	log.DebugContext(ctx, "catalog request", slog.String("url", l.catalogURL))

	resp, err := l.client.R().SetContext(ctx).Get(l.catalogURL)
	if err != nil {
		return domain.DatasetLocation{}, &domain.LocatorError{URL: l.catalogURL, Err: err}
	}
	if !resp.IsSuccess() {
		return domain.DatasetLocation{}, &domain.LocatorError{
			URL: l.catalogURL,
			Err: fmt.Errorf("%w: %d", domain.ErrUnexpectedStatus, resp.StatusCode()),
		}
	}

	var catalog catalogResponse
	if err := json.Unmarshal(resp.Body(), &catalog); err != nil {
		return domain.DatasetLocation{}, &domain.LocatorError{
			URL: l.catalogURL,
			Err: fmt.Errorf("%w: %v", domain.ErrUnrecognizedCatalog, err),
		}
	}

	obj, err := l.pick(catalog)
	if err != nil {
		return domain.DatasetLocation{}, &domain.LocatorError{URL: l.catalogURL, Err: err}
	}

	loc := domain.DatasetLocation{
		URI:        obj.DownloadURI,
		ResolvedAt: l.now(),
		Type:       obj.Type,
		UpdatedAt:  obj.updatedAt(),
		Size:       obj.size(),
	}

	log.InfoContext(ctx, "dataset located",
		slog.String("uri", loc.URI),
		slog.String("type", loc.Type),
		slog.Int64("size", loc.Size),
	)

	return loc, nil
}

// pick selects the bulk data object: the top-level object if present,
// otherwise the configured type from the list, otherwise the first entry.
func (l *Locator) pick(catalog catalogResponse) (bulkDataObject, error) {
	if catalog.DownloadURI != "" {
		return catalog.bulkDataObject, nil
	}
	if len(catalog.Data) == 0 {
		return bulkDataObject{}, domain.ErrUnrecognizedCatalog
	}

	obj := catalog.Data[0]
	if l.bulkType != "" {
		found := false
		for _, d := range catalog.Data {
			if d.Type == l.bulkType {
				obj, found = d, true
				break
			}
		}
		if !found {
			return bulkDataObject{}, fmt.Errorf("%w: %q", domain.ErrBulkTypeNotFound, l.bulkType)
		}
	}

	if obj.DownloadURI == "" {
		return bulkDataObject{}, fmt.Errorf("%w: entry has no download_uri", domain.ErrUnrecognizedCatalog)
	}
	return obj, nil
}
