package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Scryfall ScryfallConfig `yaml:"scryfall"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"4"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// ScryfallConfig holds the bulk-data catalog endpoint settings.
type ScryfallConfig struct {
	CatalogURL string `yaml:"catalog_url" env:"SCRYFALL_CATALOG_URL" env-default:"https://api.scryfall.com/bulk-data/default-cards"`
	// BulkType selects an entry by its "type" when the catalog returns a list.
	// Empty means the first entry.
	BulkType  string `yaml:"bulk_type"  env:"SCRYFALL_BULK_TYPE"`
	UserAgent string `yaml:"user_agent" env:"SCRYFALL_USER_AGENT"`
	// RequestTimeout bounds the catalog request only; the bulk download is
	// bounded by the run context.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SCRYFALL_REQUEST_TIMEOUT" env-default:"30s"`
}

// RefreshConfig holds bulk refresh pipeline settings.
type RefreshConfig struct {
	DownloadDir      string        `yaml:"download_dir"      env:"REFRESH_DOWNLOAD_DIR"      env-default:"./data"`
	StagingTable     string        `yaml:"staging_table"     env:"REFRESH_STAGING_TABLE"     env-default:"cards_staging"`
	LiveTable        string        `yaml:"live_table"        env:"REFRESH_LIVE_TABLE"        env-default:"cards"`
	BatchSize        int           `yaml:"batch_size"        env:"REFRESH_BATCH_SIZE"        env-default:"1000"`
	DryRun           bool          `yaml:"dry_run"           env:"REFRESH_DRY_RUN"`
	CleanupDownloads bool          `yaml:"cleanup_downloads" env:"REFRESH_CLEANUP_DOWNLOADS"`
	RunTimeout       time.Duration `yaml:"run_timeout"       env:"REFRESH_RUN_TIMEOUT"       env-default:"0s"`
}

// MetricsConfig holds Prometheus Pushgateway settings. Metrics are only
// pushed when PushgatewayURL is set.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" env:"METRICS_PUSHGATEWAY_URL"`
	Job            string `yaml:"job"             env:"METRICS_JOB"             env-default:"card_catalog_refresh"`
}
