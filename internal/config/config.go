package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gridfeed/gridfeed/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Source SourceConfig   `yaml:"source" mapstructure:"source"`
	Fields model.Bindings `yaml:"fields" mapstructure:"fields"`
	Fetch  FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Notion NotionConfig   `yaml:"notion" mapstructure:"notion"`
	Store  StoreConfig    `yaml:"store" mapstructure:"store"`
	Server ServerConfig   `yaml:"server" mapstructure:"server"`
	Log    LogConfig      `yaml:"log" mapstructure:"log"`
}

// SourceConfig names the external table to read and how to reach it.
type SourceConfig struct {
	// Kind selects the adapter: "table" (JSON over HTTP) or "notion".
	Kind string `yaml:"kind" mapstructure:"kind"`
	// URL is the records endpoint of a table source.
	URL string `yaml:"url" mapstructure:"url"`
	// SchemaURL is the column-descriptor endpoint of a table source.
	SchemaURL string `yaml:"schema_url" mapstructure:"schema_url"`
	// ProxyURL, when set, routes every GET through a proxy worker with the
	// real URL in the `url` query parameter.
	ProxyURL string `yaml:"proxy_url" mapstructure:"proxy_url"`
	// Limit truncates the published view; <= 0 means unbounded.
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// FetchConfig tunes the HTTP fetcher.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// NotionConfig holds Notion API credentials for the notion source kind.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	DatabaseID string `yaml:"database_id" mapstructure:"database_id"`
}

// StoreConfig configures the snapshot cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the view API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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

	// Environment
	v.SetEnvPrefix("GRIDFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Empty-string defaults also register the keys so that
	// environment overrides bind without a config file.
	v.SetDefault("source.kind", "table")
	v.SetDefault("source.url", "")
	v.SetDefault("source.schema_url", "")
	v.SetDefault("source.proxy_url", "")
	v.SetDefault("source.limit", 0)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "gridfeed/1.0")
	v.SetDefault("fields.title", "Title")
	v.SetDefault("fields.category", "Category")
	v.SetDefault("fields.date", "Date")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "gridfeed.db")
	v.SetDefault("server.port", 8080)
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
