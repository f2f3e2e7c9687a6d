package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Catalog  CatalogConfig  `mapstructure:"catalog" yaml:"catalog"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Status   StatusConfig   `mapstructure:"status" yaml:"status"`
}

type DownloadConfig struct {
	OutDir      string `mapstructure:"out_dir" yaml:"out_dir"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	ChunkSize   string `mapstructure:"chunk_size" yaml:"chunk_size"`
	RateLimit   string `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Parsed forms of ChunkSize and RateLimit, filled by validate
	ChunkBytes     int   `mapstructure:"-" yaml:"-"`
	RateLimitBytes int64 `mapstructure:"-" yaml:"-"`
}

type RetryConfig struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	MinDelay time.Duration `mapstructure:"min_delay" yaml:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

type HTTPConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	UserAgent   string        `mapstructure:"user_agent" yaml:"user_agent"`
}

type CatalogConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type LogConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Level string `mapstructure:"level" yaml:"level"`
}

type StoreConfig struct {
	// DSN is a SQLite path or a postgres:// URL. Empty disables history.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

type StatusConfig struct {
	// Addr is the listen address of the status server. Empty disables it.
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// FlagKeys maps config keys to the command line flags that override them.
var FlagKeys = map[string]string{
	"download.out_dir":     "out",
	"download.concurrency": "task-count",
	"download.chunk_size":  "chunk-size",
	"download.rate_limit":  "rate-limit",
	"retry.attempts":       "retries",
	"log.level":            "log",
	"log.path":             "log-file",
	"store.dsn":            "history-db",
	"status.addr":          "status-addr",
}

const maxChunkSize = 64 << 20

// Load reads configuration from defaults, an optional YAML file, DLTOOL_*
// environment variables and, when flags is not nil, the flags the user set.
// An empty path looks for dltool.yaml in the working directory and
// $HOME/.config/dltool; not finding one is fine.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set Defaults
	v.SetDefault("download.out_dir", "")
	v.SetDefault("download.concurrency", runtime.NumCPU())
	v.SetDefault("download.chunk_size", "1MiB")
	v.SetDefault("download.rate_limit", "")
	v.SetDefault("retry.attempts", 5)
	v.SetDefault("retry.min_delay", "1s")
	v.SetDefault("retry.max_delay", "8s")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.idle_timeout", "30s")
	v.SetDefault("http.user_agent", "")
	v.SetDefault("catalog.base_url", "https://myrient.erista.me/files/")
	v.SetDefault("log.level", "warning")
	v.SetDefault("log.path", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("status.addr", "")

	// Read config File
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("dltool")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/dltool")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("DLTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Download.Concurrency <= 0 {
		return fmt.Errorf("download.concurrency must be positive, got %d", c.Download.Concurrency)
	}

	chunk, err := humanize.ParseBytes(c.Download.ChunkSize)
	if err != nil {
		return fmt.Errorf("download.chunk_size: %w", err)
	}
	if chunk == 0 || chunk > maxChunkSize {
		return fmt.Errorf("download.chunk_size must be between 1 B and %s", humanize.IBytes(maxChunkSize))
	}
	c.Download.ChunkBytes = int(chunk)

	c.Download.RateLimitBytes = 0
	if c.Download.RateLimit != "" {
		limit, err := humanize.ParseBytes(c.Download.RateLimit)
		if err != nil {
			return fmt.Errorf("download.rate_limit: %w", err)
		}
		c.Download.RateLimitBytes = int64(limit)
	}

	if c.Retry.Attempts <= 0 {
		return fmt.Errorf("retry.attempts must be positive, got %d", c.Retry.Attempts)
	}
	if c.Retry.MinDelay < 0 || c.Retry.MaxDelay < c.Retry.MinDelay {
		return fmt.Errorf("retry delays must satisfy 0 <= min_delay <= max_delay (got %s, %s)", c.Retry.MinDelay, c.Retry.MaxDelay)
	}

	if c.HTTP.Timeout <= 0 || c.HTTP.IdleTimeout <= 0 {
		return errors.New("http.timeout and http.idle_timeout must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warning, error (got %q)", c.Log.Level)
	}

	if c.Catalog.BaseURL == "" {
		return errors.New("catalog.base_url is required")
	}

	return nil
}
