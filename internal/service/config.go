package service

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/satishbabariya/prisma-filter/internal/adapters/telemetry"
	"github.com/satishbabariya/prisma-filter/internal/config"
	"github.com/satishbabariya/prisma-filter/internal/core/query/compiler"
	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/query/parser"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
	"github.com/satishbabariya/prisma-filter/internal/debug"
)

// NewFromConfig configures logging, loads the catalog from config.AppFs and
// builds a service with the configured telemetry adapter.
func NewFromConfig(cfg *config.Config, reg prometheus.Registerer) (*FilterService, error) {
	if err := debug.Configure(cfg.Log.Level, cfg.Log.Format, nil); err != nil {
		return nil, err
	}
	tel, err := telemetry.NewTelemetry(&telemetry.Config{
		Type:      cfg.Telemetry.Type,
		Namespace: cfg.Telemetry.Namespace,
	}, reg)
	if err != nil {
		return nil, err
	}
	catalog, err := schema.LoadCatalog(config.AppFs, cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	opts := optionsFromConfig(cfg)
	opts.Telemetry = tel
	return NewFilterService(catalog, opts)
}

func optionsFromConfig(cfg *config.Config) Options {
	return Options{
		Parser: parser.Options{
			MaxDepth:         cfg.Parser.MaxDepth,
			UnknownOperators: parser.UnknownOperatorPolicy(cfg.Parser.UnknownOperators),
		},
		Compiler:       compiler.Options{MaxLimit: cfg.Compiler.MaxLimit},
		Dialect:        domain.SQLDialect(cfg.Database.Dialect),
		ParseCacheSize: cfg.Service.ParseCacheSize,
	}
}

// Watch reloads the service whenever the config file behind v changes.
// A failed reload keeps the current state.
func (s *FilterService) Watch(v *viper.Viper) {
	config.Watch(v, s.applyConfig)
}

func (s *FilterService) applyConfig(cfg *config.Config, err error) {
	if err != nil {
		debug.Warn("config change ignored", "error", err)
		return
	}
	if err := s.reloadFromConfig(cfg); err != nil {
		debug.Error("config reload failed", "error", err)
	}
}

func (s *FilterService) reloadFromConfig(cfg *config.Config) error {
	if err := debug.Configure(cfg.Log.Level, cfg.Log.Format, nil); err != nil {
		return err
	}
	catalog, err := schema.LoadCatalog(config.AppFs, cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}
	return s.Reload(catalog, optionsFromConfig(cfg))
}
