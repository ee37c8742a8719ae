package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/promptvault/internal/api"
	"github.com/timmy/promptvault/internal/api/handler"
	"github.com/timmy/promptvault/internal/api/middleware"
	"github.com/timmy/promptvault/internal/config"
	"github.com/timmy/promptvault/internal/corpus"
	"github.com/timmy/promptvault/internal/filter"
	"github.com/timmy/promptvault/internal/logger"
	"github.com/timmy/promptvault/internal/repository"
	"github.com/timmy/promptvault/internal/service"
	"github.com/timmy/promptvault/internal/source"
	"github.com/timmy/promptvault/internal/source/builtin"
	"github.com/timmy/promptvault/internal/storage"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.LogFile = cfg.Log.File
	logCfg.ServiceName = "promptvault-api"
	appLog := logger.New(logCfg.ApplyEnv())
	logger.SetDefaultLogger(appLog)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Gallery snapshot, reloaded whenever the corpus file changes
	gallery := service.NewGalleryService(corpus.NewStore(cfg.Collect.CorpusPath))
	if err := gallery.Reload(); err != nil {
		appLog.WithError(err).Fatal("Failed to load corpus")
	}
	go func() {
		if err := gallery.Watch(ctx); err != nil {
			appLog.WithError(err).Warn("Corpus watcher stopped; the gallery will not reload")
		}
	}()

	admin, closeAdmin, err := buildAdmin(cfg, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize collect service")
	}
	defer closeAdmin()

	router := api.SetupRouter(api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		Gallery: gallery,
		Admin:   admin,
		Logger:  appLog,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLog.WithFields(logger.Fields{
			"port":    cfg.Server.Port,
			"mode":    cfg.Server.Mode,
			"prompts": gallery.Len(),
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("Server forced to shutdown")
	}

	// Let an in-flight collect finish its corpus write.
	admin.Wait()
	appLog.Info("Server exited")
}

// buildAdmin wires the collect pipeline behind the admin endpoints.
func buildAdmin(cfg *config.Config, log *logger.Logger) (*handler.AdminHandler, func(), error) {
	reg := source.NewRegistry()
	client := source.NewHTTPClient(source.HTTPConfig{
		Timeout:      cfg.Collect.RequestTimeout,
		UserAgent:    cfg.Collect.UserAgent,
		BrowserAgent: cfg.Collect.BrowserAgent,
	})
	if err := builtin.Register(reg, cfg, client); err != nil {
		return nil, nil, err
	}

	contentFilter, err := filter.New(filter.Options{
		LogDir:              cfg.Collect.FilterLogDir,
		ExtraBlockKeywords:  cfg.Filter.ExtraBlockKeywords,
		ExtraReviewKeywords: cfg.Filter.ExtraReviewKeywords,
		ExtraURLPatterns:    cfg.Filter.ExtraURLPatterns,
	})
	if err != nil {
		return nil, nil, err
	}

	closer := func() {}
	var recorder service.RunRecorder
	var runs handler.RunLister
	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			log.WithError(err).Warn("Run ledger unavailable, runs will not be recorded")
		} else {
			repo := repository.NewCollectRunRepository(db)
			recorder, runs = repo, repo
			closer = func() { _ = repository.Close(db) }
		}
	}

	var publisher service.CorpusPublisher
	if cfg.Storage.PublishAfterMerge {
		objectStorage, err := storage.NewStorage(&cfg.Storage)
		switch {
		case errors.Is(err, storage.ErrNotConfigured):
			log.Warn("publish_after_merge is set but storage is not configured")
		case err != nil:
			closer()
			return nil, nil, err
		default:
			publisher = service.NewPublishService(objectStorage, cfg.Storage.CorpusKey)
		}
	}

	collect := service.NewCollectService(reg, contentFilter, recorder, publisher, log, &service.CollectConfig{
		OutputDir:         cfg.Collect.OutputDir,
		CorpusPath:        cfg.Collect.CorpusPath,
		DefaultLimit:      cfg.Collect.DefaultLimit,
		PublishAfterMerge: cfg.Storage.PublishAfterMerge,
	})
	return handler.NewAdminHandler(collect, runs, log), closer, nil
}
