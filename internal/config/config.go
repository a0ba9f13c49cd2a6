// Package config provides configuration management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
)

// AppFs is the filesystem configuration and .env files are read from.
var AppFs = afero.NewOsFs()

const (
	// EnvPrefix prefixes environment overrides, e.g. PRISMA_FILTER_PARSER_MAX_DEPTH.
	EnvPrefix = "PRISMA_FILTER"

	configName = ".prisma-filter"
)

// Config represents application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Parser    ParserConfig    `mapstructure:"parser"`
	Compiler  CompilerConfig  `mapstructure:"compiler"`
	Service   ServiceConfig   `mapstructure:"service"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// CatalogPath points at the entity catalog file.
	CatalogPath string `mapstructure:"catalog_path"`
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Dialect selects SQL rendering. Empty means detect from URL.
	Dialect string `mapstructure:"dialect"`
	URL     string `mapstructure:"url"`
}

// ParserConfig controls inbound filter parsing.
type ParserConfig struct {
	MaxDepth         int    `mapstructure:"max_depth"`
	UnknownOperators string `mapstructure:"unknown_operators"`
}

// CompilerConfig controls compilation.
type CompilerConfig struct {
	// MaxLimit caps limit; 0 disables the cap.
	MaxLimit int `mapstructure:"max_limit"`
}

// ServiceConfig controls the filter service.
type ServiceConfig struct {
	ParseCacheSize int `mapstructure:"parse_cache_size"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig selects the metrics adapter.
type TelemetryConfig struct {
	Type      string `mapstructure:"type"`
	Namespace string `mapstructure:"namespace"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Parser:      ParserConfig{MaxDepth: 16, UnknownOperators: "drop"},
		Service:     ServiceConfig{ParseCacheSize: 512},
		Log:         LogConfig{Level: "info", Format: "text"},
		Telemetry:   TelemetryConfig{Type: "noop"},
		CatalogPath: "catalog.yaml",
	}
}

// New creates a viper instance with defaults, search paths and environment
// binding applied. It does not read anything.
func New() (*viper.Viper, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "prisma-filter"))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("database.dialect", def.Database.Dialect)
	v.SetDefault("database.url", def.Database.URL)
	v.SetDefault("parser.max_depth", def.Parser.MaxDepth)
	v.SetDefault("parser.unknown_operators", def.Parser.UnknownOperators)
	v.SetDefault("compiler.max_limit", def.Compiler.MaxLimit)
	v.SetDefault("service.parse_cache_size", def.Service.ParseCacheSize)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("telemetry.type", def.Telemetry.Type)
	v.SetDefault("telemetry.namespace", def.Telemetry.Namespace)
	v.SetDefault("catalog_path", def.CatalogPath)
	return v, nil
}

// Load reads .env files, the config file when present and the environment.
func Load() (*Config, *viper.Viper, error) {
	if err := LoadDotEnv(".env", ".env.local"); err != nil {
		return nil, nil, err
	}

	v, err := New()
	if err != nil {
		return nil, nil, err
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Decode builds a Config from v and fills derived fields.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Database.Dialect == "" && cfg.Database.URL != "" {
		d, err := DetectDialect(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		cfg.Database.Dialect = string(d)
	}
	if cfg.Database.Dialect == "" {
		cfg.Database.Dialect = string(domain.PostgreSQL)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	if !domain.SQLDialect(c.Database.Dialect).Valid() {
		return fmt.Errorf("unsupported dialect %q", c.Database.Dialect)
	}
	if c.Parser.MaxDepth < 1 {
		return fmt.Errorf("parser.max_depth must be positive, got %d", c.Parser.MaxDepth)
	}
	switch c.Parser.UnknownOperators {
	case "drop", "reject":
	default:
		return fmt.Errorf("parser.unknown_operators must be drop or reject, got %q", c.Parser.UnknownOperators)
	}
	if c.Compiler.MaxLimit < 0 {
		return fmt.Errorf("compiler.max_limit must not be negative")
	}
	if c.Service.ParseCacheSize < 0 {
		return fmt.Errorf("service.parse_cache_size must not be negative")
	}
	return nil
}

// Watch reloads the configuration whenever the config file changes and
// hands each successfully decoded Config to fn.
func Watch(v *viper.Viper, fn func(*Config, error)) {
	v.OnConfigChange(reloadHandler(v, fn))
	v.WatchConfig()
}

func reloadHandler(v *viper.Viper, fn func(*Config, error)) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Decode(v)
		fn(cfg, err)
	}
}

// LoadDotEnv reads each existing file from AppFs and exports its variables.
// Variables already present in the environment win; later files do not
// override earlier ones.
func LoadDotEnv(names ...string) error {
	for _, name := range names {
		f, err := AppFs.Open(name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		vars, err := godotenv.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k, val := range vars {
			if _, set := os.LookupEnv(k); set {
				continue
			}
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}
