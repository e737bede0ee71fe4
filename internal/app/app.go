// Package app wires configuration, storage, the card catalog and the
// facades into a running application shared by the CLI and the API server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/cards/scryfall"
	"github.com/blackmagic-app/blackmagic/internal/catalog"
	"github.com/blackmagic-app/blackmagic/internal/collection"
	"github.com/blackmagic-app/blackmagic/internal/config"
	"github.com/blackmagic-app/blackmagic/internal/events"
	"github.com/blackmagic-app/blackmagic/internal/facade"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
	"github.com/blackmagic-app/blackmagic/internal/storage"
	"github.com/blackmagic-app/blackmagic/internal/storage/memstore"
	"github.com/blackmagic-app/blackmagic/internal/storage/redisstore"
)

// Store is everything the application persists.
type Store interface {
	ledger.Store
	collection.Store
	booster.Store
	catalog.Cache

	// ResetUserData drops balance, history, collection and boosters.
	ResetUserData(ctx context.Context) error
}

// Options adjusts how an App is built.
type Options struct {
	// Ephemeral keeps everything in memory.
	Ephemeral bool

	// Fetcher replaces the Scryfall client.
	Fetcher catalog.Fetcher

	// Images replaces the image prober. Ignored when image checks are off.
	Images facade.ImageChecker

	Logger *slog.Logger
}

// App holds the wired application.
type App struct {
	Config   *config.Config
	Services *facade.Services
	Store    Store
	Catalog  *catalog.Service

	// DB is set for the sqlite backend only.
	DB *storage.DB

	Shop       *facade.ShopFacade
	Boosters   *facade.BoosterFacade
	Collection *facade.CollectionFacade
	Wallet     *facade.WalletFacade

	logger  *slog.Logger
	closers []func() error
}

// NewLogger returns a text logger writing to w, at debug level when debug
// is set.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// New builds an App from cfg. cfg must have passed Validate.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Config: cfg,
		logger: logger.With("component", "app"),
	}

	if err := a.openStore(ctx, opts.Ephemeral); err != nil {
		return nil, err
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = scryfall.NewClientWithOptions(scryfall.Options{
			BaseURL:           cfg.Catalog.BaseURL,
			UserAgent:         cfg.Catalog.UserAgent,
			RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
			Timeout:           cfg.CatalogTimeout(),
			Logger:            logger,
		})
	}

	cat, err := catalog.NewService(fetcher, a.Store, catalog.Options{
		CacheTTL:      cfg.CacheTTL(),
		LRUSize:       cfg.Catalog.LRUSize,
		KnownSetCodes: booster.ProductCodes(),
		Logger:        logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Catalog = cat

	loc, err := cfg.Location()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	images := opts.Images
	if images == nil && cfg.Catalog.VerifyImages {
		prober, err := catalog.NewImageProber(catalog.ProberOptions{
			UserAgent: cfg.Catalog.UserAgent,
			Logger:    logger,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		images = prober
	}

	a.Services = &facade.Services{
		Ledger:     ledger.New(a.Store, ledger.WithLocation(loc), ledger.WithLogger(logger.With("component", "ledger"))),
		Collection: a.Store,
		Boosters:   a.Store,
		Catalog:    cat,
		Images:     images,
		Generator:  booster.NewGenerator(),
		Events:     events.NewEventDispatcher(logger),
		Logger:     logger,
		Now:        time.Now,
	}
	a.Services.UpdateSettings(cfg.Settings())
	a.Services.Events.Register(events.NewLoggingObserver(logger, cfg.App.DebugMode))

	a.Shop = facade.NewShopFacade(a.Services)
	a.Boosters = facade.NewBoosterFacade(a.Services)
	a.Collection = facade.NewCollectionFacade(a.Services)
	a.Wallet = facade.NewWalletFacade(a.Services)

	return a, nil
}

func (a *App) openStore(ctx context.Context, ephemeral bool) error {
	cfg := a.Config
	switch {
	case ephemeral:
		a.Store = memstore.New()
		a.logger.Debug("Using in-memory store")

	case cfg.Store.Backend == "redis":
		store, err := redisstore.Dial(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB, redisstore.Options{
			Prefix:      cfg.Store.RedisPrefix,
			SetCacheTTL: cfg.CacheTTL(),
		})
		if err != nil {
			return err
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
		a.logger.Info("Using redis store", "addr", cfg.Store.RedisAddr)

	default:
		path := cfg.Store.DBPath
		if path == "" {
			path = storage.DefaultPath()
		}
		db, err := storage.Open(storage.DefaultConfig(path))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		a.DB = db
		a.Store = storage.NewService(db)
		a.closers = append(a.closers, db.Close)
		a.logger.Info("Using sqlite store", "path", path)
	}
	return nil
}

// ApplyConfig swaps in the economy and pack settings of cfg. Storage and
// catalog settings need a restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Services.UpdateSettings(cfg.Settings())
	a.logger.Info("Applied settings",
		"daily_reward", cfg.Economy.DailyReward,
		"collector_multiplier", cfg.Economy.CollectorMultiplier,
		"policy", cfg.Pack.Policy,
		"slot_size", cfg.Pack.SlotSize)
}

// ResetUserData wipes balance, history, collection and boosters.
func (a *App) ResetUserData(ctx context.Context) error {
	return a.Store.ResetUserData(ctx)
}

// Close releases the store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
