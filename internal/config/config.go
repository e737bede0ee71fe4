// Package config loads settings from ~/.blackmagic/config.toml, with
// BLACKMAGIC_* environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/facade"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLACKMAGIC_"

// Config represents the application configuration.
type Config struct {
	Store   StoreConfig   `toml:"store" envPrefix:"STORE_"`
	Catalog CatalogConfig `toml:"catalog" envPrefix:"CATALOG_"`
	Economy EconomyConfig `toml:"economy" envPrefix:"ECONOMY_"`
	Pack    PackConfig    `toml:"pack" envPrefix:"PACK_"`
	API     APIConfig     `toml:"api" envPrefix:"API_"`
	App     AppConfig     `toml:"app" envPrefix:"APP_"`
}

// StoreConfig selects where balance, collection and boosters live.
type StoreConfig struct {
	Backend       string `toml:"backend" env:"BACKEND"` // "sqlite" or "redis"
	DBPath        string `toml:"db_path" env:"DB_PATH"` // Empty selects ~/.blackmagic/blackmagic.db
	RedisAddr     string `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `toml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `toml:"redis_db" env:"REDIS_DB"`
	RedisPrefix   string `toml:"redis_prefix" env:"REDIS_PREFIX"`

	// MaintenanceInterval schedules sqlite backups and set cache pruning
	// in the API server. "0s" disables it.
	MaintenanceInterval string `toml:"maintenance_interval" env:"MAINTENANCE_INTERVAL"`
	Backups             bool   `toml:"backups" env:"BACKUPS"`
}

// CatalogConfig configures the Scryfall client and the card pool cache.
type CatalogConfig struct {
	BaseURL           string  `toml:"base_url" env:"BASE_URL"`
	UserAgent         string  `toml:"user_agent" env:"USER_AGENT"`
	RequestsPerSecond float64 `toml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Timeout           string  `toml:"timeout" env:"TIMEOUT"`     // e.g. "30s"
	CacheTTL          string  `toml:"cache_ttl" env:"CACHE_TTL"` // e.g. "24h"
	LRUSize           int     `toml:"lru_size" env:"LRU_SIZE"`
	VerifyImages      bool    `toml:"verify_images" env:"VERIFY_IMAGES"`
}

// EconomyConfig contains prices and rewards. Amounts are decimal strings.
type EconomyConfig struct {
	DailyReward         string `toml:"daily_reward" env:"DAILY_REWARD"`
	CollectorMultiplier string `toml:"collector_multiplier" env:"COLLECTOR_MULTIPLIER"`
	Timezone            string `toml:"timezone" env:"TIMEZONE"` // IANA name; empty is local time
}

// PackConfig controls booster composition.
type PackConfig struct {
	Policy   string `toml:"policy" env:"POLICY"` // "uniform" or "rarity"
	SlotSize int    `toml:"slot_size" env:"SLOT_SIZE"`
}

// APIConfig configures the REST server.
type APIConfig struct {
	Port           int      `toml:"port" env:"PORT"`
	AllowedOrigins []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode" env:"DEBUG_MODE"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     "sqlite",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "blackmagic:",

			MaintenanceInterval: "24h",
			Backups:             true,
		},
		Catalog: CatalogConfig{
			BaseURL:           "https://api.scryfall.com",
			UserAgent:         "BlackMagicApp/1.0",
			RequestsPerSecond: 10,
			Timeout:           "30s",
			CacheTTL:          "24h",
			LRUSize:           32,
			VerifyImages:      true,
		},
		Economy: EconomyConfig{
			DailyReward:         "500.00",
			CollectorMultiplier: "2.5",
		},
		Pack: PackConfig{
			Policy:   string(booster.PolicyUniform),
			SlotSize: booster.DefaultSlotSize,
		},
		API: APIConfig{
			Port: 8080,
		},
	}
}

// DefaultPath returns ~/.blackmagic/config.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".blackmagic", "config.toml"), nil
}

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults, applies environment overrides and
// validates the result. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveFile writes the configuration to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("invalid store backend %q: want sqlite or redis", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && c.Store.RedisAddr == "" {
		return errors.New("redis backend needs store.redis_addr")
	}

	if d, err := time.ParseDuration(c.Store.MaintenanceInterval); err != nil || d < 0 {
		return fmt.Errorf("invalid maintenance interval %q", c.Store.MaintenanceInterval)
	}

	if _, err := time.ParseDuration(c.Catalog.Timeout); err != nil {
		return fmt.Errorf("invalid catalog timeout %q: %w", c.Catalog.Timeout, err)
	}
	if _, err := time.ParseDuration(c.Catalog.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache TTL %q: %w", c.Catalog.CacheTTL, err)
	}
	if c.Catalog.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive: %v", c.Catalog.RequestsPerSecond)
	}
	if c.Catalog.LRUSize < 0 {
		return fmt.Errorf("LRU size cannot be negative: %d", c.Catalog.LRUSize)
	}

	reward, err := decimal.NewFromString(c.Economy.DailyReward)
	if err != nil || reward.IsNegative() {
		return fmt.Errorf("invalid daily reward %q", c.Economy.DailyReward)
	}
	multiplier, err := decimal.NewFromString(c.Economy.CollectorMultiplier)
	if err != nil || !multiplier.IsPositive() {
		return fmt.Errorf("invalid collector multiplier %q", c.Economy.CollectorMultiplier)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if _, err := booster.ParsePolicy(c.Pack.Policy); err != nil {
		return err
	}
	if c.Pack.SlotSize < 1 {
		return fmt.Errorf("slot size must be at least 1: %d", c.Pack.SlotSize)
	}

	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d", c.API.Port)
	}
	return nil
}

// CatalogTimeout returns the Scryfall request timeout.
func (c *Config) CatalogTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Catalog.Timeout)
	return d
}

// MaintenanceInterval returns how often maintenance runs, zero when it is
// disabled.
func (c *Config) MaintenanceInterval() time.Duration {
	d, _ := time.ParseDuration(c.Store.MaintenanceInterval)
	return d
}

// CacheTTL returns how long fetched card pools stay fresh.
func (c *Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Catalog.CacheTTL)
	return d
}

// Location returns the timezone that decides when a new reward day begins.
func (c *Config) Location() (*time.Location, error) {
	if c.Economy.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Economy.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Economy.Timezone, err)
	}
	return loc, nil
}

// Settings returns the economy and pack settings the facades run with.
// The config must have passed Validate.
func (c *Config) Settings() facade.Settings {
	policy, _ := booster.ParsePolicy(c.Pack.Policy)
	return facade.Settings{
		DailyReward:         decimal.RequireFromString(c.Economy.DailyReward),
		CollectorMultiplier: decimal.RequireFromString(c.Economy.CollectorMultiplier),
		Policy:              policy,
		SlotSize:            c.Pack.SlotSize,
		VerifyImages:        c.Catalog.VerifyImages,
	}
}
