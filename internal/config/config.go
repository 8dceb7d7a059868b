package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" mapstructure:"checkpoint"`
	PNCP       PNCPConfig       `yaml:"pncp" mapstructure:"pncp"`
	Collect    CollectConfig    `yaml:"collect" mapstructure:"collect"`
	Rules      RulesConfig      `yaml:"rules" mapstructure:"rules"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Geo        GeoConfig        `yaml:"geo" mapstructure:"geo"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Schedule   ScheduleConfig   `yaml:"schedule" mapstructure:"schedule"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the canonical record database.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CheckpointConfig configures the seen-id set. Path applies to the sqlite
// driver; empty means a file under the data dir.
type CheckpointConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// PNCPConfig configures the source API client.
type PNCPConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	ItemBaseURL string  `yaml:"item_base_url" mapstructure:"item_base_url"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// CollectConfig configures the collection stage. The retry knobs apply to
// attachment downloads; zero keeps the resilience package defaults.
type CollectConfig struct {
	WindowDays        int    `yaml:"window_days" mapstructure:"window_days"`
	ModalityCodes     []int  `yaml:"modality_codes" mapstructure:"modality_codes"`
	MaxAttachments    int    `yaml:"max_attachments" mapstructure:"max_attachments"`
	DataDir           string `yaml:"data_dir" mapstructure:"data_dir"`
	RetryAttempts     int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs    int    `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	RetryMaxBackoffMs int    `yaml:"retry_max_backoff_ms" mapstructure:"retry_max_backoff_ms"`
}

// RulesConfig points at the resolver rules file. MinYear, when set, overrides
// the file and compiled-in plausibility floor.
type RulesConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	MinYear int    `yaml:"min_year" mapstructure:"min_year"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// GeoConfig configures the IBGE municipality loader. An empty BaseURL keeps
// the loader's built-in download location.
type GeoConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ServerConfig configures the read API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// ScheduleConfig configures the periodic collect trigger.
type ScheduleConfig struct {
	Cron string `yaml:"cron" mapstructure:"cron"`
}

// MonitoringConfig configures the background health checks the scheduler
// runs. An empty WebhookURL disables alert delivery.
type MonitoringConfig struct {
	WebhookURL              string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold    float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	QuarantineRateThreshold float64 `yaml:"quarantine_rate_threshold" mapstructure:"quarantine_rate_threshold"`
	StaleAfterHours         int     `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
	CheckIntervalSecs       int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours     int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		v.AddConfigPath(filepath.Join(home, ".radar-cli"))
	}

	// Environment
	v.SetEnvPrefix("RADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dataDir := "data"
	if homeErr == nil {
		dataDir = filepath.Join(home, ".radar-cli", "data")
	}

	// Defaults. Empty-valued keys are still registered so AutomaticEnv
	// sees them during Unmarshal.
	v.SetDefault("store.database_url", "")
	v.SetDefault("checkpoint.driver", "sqlite")
	v.SetDefault("checkpoint.path", "")
	v.SetDefault("pncp.base_url", "https://pncp.gov.br/api/consulta")
	v.SetDefault("pncp.item_base_url", "https://pncp.gov.br/api/pncp")
	v.SetDefault("pncp.page_size", 50)
	v.SetDefault("pncp.timeout_secs", 30)
	v.SetDefault("pncp.rate_limit", 5.0)
	v.SetDefault("pncp.rate_burst", 5)
	v.SetDefault("pncp.user_agent", "radar-cli/1.0")
	v.SetDefault("collect.window_days", 1)
	v.SetDefault("collect.modality_codes", []int{1, 13})
	v.SetDefault("collect.max_attachments", 5)
	v.SetDefault("collect.data_dir", dataDir)
	v.SetDefault("collect.retry_attempts", 3)
	v.SetDefault("collect.retry_backoff_ms", 500)
	v.SetDefault("collect.retry_max_backoff_ms", 10000)
	v.SetDefault("rules.path", "")
	v.SetDefault("rules.min_year", 2020)
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("geo.base_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("schedule.cron", "0 6,12,18 * * *")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.quarantine_rate_threshold", 0.25)
	v.SetDefault("monitoring.stale_after_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 900)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// CheckpointPath returns the sqlite checkpoint location, defaulting to a
// file under the data dir.
func (c *Config) CheckpointPath() string {
	if c.Checkpoint.Path != "" {
		return c.Checkpoint.Path
	}
	return filepath.Join(c.Collect.DataDir, "checkpoint.db")
}

// ArchiveDir returns where attachment originals are stored.
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.Collect.DataDir, "archive")
}

// Validate checks the fields the given mode depends on.
func (c *Config) Validate(mode string) error {
	var problems []string

	needsDB := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	switch mode {
	case "collect":
		needsDB()
		if c.PNCP.PageSize < 1 || c.PNCP.PageSize > 500 {
			problems = append(problems, "pncp.page_size must be between 1 and 500")
		}
		switch c.Checkpoint.Driver {
		case "sqlite", "postgres", "memory":
		default:
			problems = append(problems, "checkpoint.driver must be sqlite, postgres or memory")
		}
	case "serve":
		needsDB()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "audit", "geo", "migrate", "status", "runs", "quarantine":
		needsDB()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
