// Command apiserver serves the booster shop, boosters, collection and
// wallet over REST with live updates on /ws.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackmagic-app/blackmagic/internal/api"
	"github.com/blackmagic-app/blackmagic/internal/app"
	"github.com/blackmagic-app/blackmagic/internal/config"
	"github.com/blackmagic-app/blackmagic/internal/storage"
	"github.com/blackmagic-app/blackmagic/internal/version"
)

var (
	configPath = flag.String("config", "", "Config file (default: ~/.blackmagic/config.toml)")
	port       = flag.Int("port", 0, "API server port (overrides the config file)")
	dbPath     = flag.String("db-path", "", "Database path (overrides the config file)")
	ephemeral  = flag.Bool("ephemeral", false, "Keep everything in memory")
	debugMode  = flag.Bool("debug-mode", false, "Enable verbose debug logging")
	noWatch    = flag.Bool("no-watch", false, "Do not reload settings when the config file changes")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := *configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.API.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.DBPath = *dbPath
	}

	logger := app.NewLogger(os.Stderr, *debugMode || cfg.App.DebugMode)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Ephemeral: *ephemeral, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Error closing store", "error", err)
		}
	}()

	if a.DB != nil && cfg.MaintenanceInterval() > 0 {
		if svc, ok := a.Store.(*storage.Service); ok {
			sched := storage.NewScheduler(svc, &storage.SchedulerConfig{
				Interval:       cfg.MaintenanceInterval(),
				SkipBackup:     !cfg.Store.Backups,
				PruneOlderThan: storage.DefaultSchedulerConfig().PruneOlderThan,
				Logger:         logger,
			})
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = sched.Stop() }()
		}
	}

	if !*noWatch {
		go func() {
			if err := config.Watch(ctx, path, logger, a.ApplyConfig); err != nil {
				logger.Warn("Config hot reload disabled", "error", err)
			}
		}()
	}

	server := api.NewServer(&api.Config{
		Port:           cfg.API.Port,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}, a.Services, logger)

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	logger.Info("API server running", "url", fmt.Sprintf("http://localhost:%d", cfg.API.Port), "config", path, "version", version.Version)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
