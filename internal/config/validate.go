package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// maxTableNameLen leaves room for the "_swap" suffix used during promotion
// within PostgreSQL's 63-byte identifier limit.
const maxTableNameLen = 58

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	// Dry runs never connect.
	if strings.TrimSpace(c.Database.DSN) == "" && !c.Refresh.DryRun {
		return fmt.Errorf("database: dsn must not be empty")
	}
	if err := c.Scryfall.validate(); err != nil {
		return fmt.Errorf("scryfall: %w", err)
	}
	if err := c.Refresh.validate(); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if c.Metrics.PushgatewayURL != "" && strings.TrimSpace(c.Metrics.Job) == "" {
		return fmt.Errorf("metrics: job must be set when pushgateway_url is set")
	}
	return nil
}

func (s *ScryfallConfig) validate() error {
	u, err := url.Parse(s.CatalogURL)
	if err != nil {
		return fmt.Errorf("catalog_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("catalog_url must be an absolute http(s) URL (got %q)", s.CatalogURL)
	}
	if s.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be >= 0 (got %v)", s.RequestTimeout)
	}
	return nil
}

func (r *RefreshConfig) validate() error {
	if strings.TrimSpace(r.DownloadDir) == "" {
		return fmt.Errorf("download_dir must not be empty")
	}
	if r.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", r.BatchSize)
	}
	if r.RunTimeout < 0 {
		return fmt.Errorf("run_timeout must be >= 0 (got %v)", r.RunTimeout)
	}
	if err := validateTableName(r.StagingTable); err != nil {
		return fmt.Errorf("staging_table: %w", err)
	}
	if err := validateTableName(r.LiveTable); err != nil {
		return fmt.Errorf("live_table: %w", err)
	}
	if r.StagingTable == r.LiveTable {
		return fmt.Errorf("staging_table and live_table must differ (both %q)", r.LiveTable)
	}
	if r.StagingTable == SwapTableName(r.LiveTable) {
		return fmt.Errorf("staging_table must not be %q, it is reserved for promotion", r.StagingTable)
	}
	return nil
}

func validateTableName(name string) error {
	if len(name) == 0 || len(name) > maxTableNameLen {
		return fmt.Errorf("length must be 1..%d (got %d)", maxTableNameLen, len(name))
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%q is not a lowercase identifier", name)
	}
	return nil
}

// SwapTableName returns the intermediate name used while exchanging the
// staging and live tables.
func SwapTableName(live string) string {
	return live + "_swap"
}
