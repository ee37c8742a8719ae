package main

import (
	"errors"

	"github.com/timmy/promptvault/internal/config"
	"github.com/timmy/promptvault/internal/filter"
	"github.com/timmy/promptvault/internal/repository"
	"github.com/timmy/promptvault/internal/service"
	"github.com/timmy/promptvault/internal/source"
	"github.com/timmy/promptvault/internal/source/builtin"
	"github.com/timmy/promptvault/internal/storage"
	"gorm.io/gorm"
)

func buildRegistry(cfg *config.Config) (*source.Registry, error) {
	reg := source.NewRegistry()
	client := source.NewHTTPClient(source.HTTPConfig{
		Timeout:      cfg.Collect.RequestTimeout,
		UserAgent:    cfg.Collect.UserAgent,
		BrowserAgent: cfg.Collect.BrowserAgent,
	})
	if err := builtin.Register(reg, cfg, client); err != nil {
		return nil, err
	}
	return reg, nil
}

func buildFilter(cfg *config.Config) (*filter.Filter, error) {
	return filter.New(filter.Options{
		LogDir:              cfg.Collect.FilterLogDir,
		ExtraBlockKeywords:  cfg.Filter.ExtraBlockKeywords,
		ExtraReviewKeywords: cfg.Filter.ExtraReviewKeywords,
		ExtraURLPatterns:    cfg.Filter.ExtraURLPatterns,
	})
}

// openLedger returns nil when the run ledger is disabled.
func openLedger(cfg *config.Config) (*gorm.DB, *repository.CollectRunRepository, error) {
	if !cfg.Database.Enabled {
		return nil, nil, nil
	}
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, repository.NewCollectRunRepository(db), nil
}

// buildPublisher returns nil when no bucket is configured.
func buildPublisher(cfg *config.Config) (*service.PublishService, error) {
	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if errors.Is(err, storage.ErrNotConfigured) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return service.NewPublishService(objectStorage, cfg.Storage.CorpusKey), nil
}
