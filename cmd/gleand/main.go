package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/and161185/glean-metrics/internal/buildinfo"
	"github.com/and161185/glean-metrics/internal/config"
	"github.com/and161185/glean-metrics/internal/glean"
	"github.com/and161185/glean-metrics/internal/server"
	"github.com/and161185/glean-metrics/metrics"
	"github.com/and161185/glean-metrics/storage/inmemory"
	"github.com/and161185/glean-metrics/storage/postgres"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildinfo.New(buildVersion, buildDate, buildCommit).Print(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.NewConfig()
	defer func() { _ = cfg.Logger.Sync() }()

	var (
		store server.Storage
		wg    sync.WaitGroup
	)
	if cfg.DatabaseDsn != "" {
		pg, err := postgres.NewPostgresStorage(ctx, cfg.DatabaseDsn, cfg.Logger)
		if err != nil {
			cfg.Logger.Fatal(err)
		}
		defer pg.Close()
		store = pg
	} else {
		mem := inmemory.NewMemStorage(cfg.Logger)
		if cfg.Restore {
			if err := mem.LoadFromFile(ctx, cfg.FileStoragePath); err != nil {
				cfg.Logger.Errorw("failed to restore metrics", "path", cfg.FileStoragePath, "error", err)
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			runPersistence(ctx, mem, cfg.FileStoragePath, cfg.StoreInterval, cfg.Logger)
		}()
		store = mem
	}

	cfg.Logger.Infow("telemetry config",
		"addr", cfg.Addr,
		"application_id", cfg.ApplicationID,
		"upload_enabled", cfg.UploadEnabled,
		"store_interval", cfg.StoreInterval,
		"file_storage_path", cfg.FileStoragePath,
		"database_dsn_set", cfg.DatabaseDsn != "",
		"metrics_disabled", len(cfg.MetricsDisabled),
	)

	state := glean.New(glean.Options{
		ApplicationID:      cfg.ApplicationID,
		ApplicationVersion: buildVersion,
		ApplicationBuildID: buildCommit,
		UploadEnabled:      cfg.UploadEnabled,
	}, store, cfg.Logger)
	if err := state.Initialize(ctx); err != nil {
		cfg.Logger.Fatal(err)
	}

	registry := metrics.NewRegistry(store, state, cfg.MetricsDisabled, cfg.Logger)

	srv := server.NewServer(store, state, registry, cfg)
	if err := srv.Run(ctx); err != nil {
		cfg.Logger.Errorw("server stopped", "error", err)
	}

	stop()
	wg.Wait()
}
