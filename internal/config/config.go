// Package config loads runtime settings for the rescache commands from an
// optional YAML file, a .env file and RESCACHE_* environment variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RESCACHE_LOG_LEVEL.
const EnvPrefix = "RESCACHE"

// Config is the full set of settings for cmd/assets.
type Config struct {
	Assets  Assets       `mapstructure:"assets"`
	Cache   Cache        `mapstructure:"cache"`
	Font    Font         `mapstructure:"font"`
	Load    LoadSettings `mapstructure:"load"`
	Metrics Metrics      `mapstructure:"metrics"`
	Log     Log          `mapstructure:"log"`
}

// Assets locates the asset tree and its manifest.
type Assets struct {
	Root     string `mapstructure:"root"`     // directory every asset path is relative to
	Manifest string `mapstructure:"manifest"` // manifest path, relative to Root unless absolute
}

// Cache tunes the resource caches.
type Cache struct {
	Shards int `mapstructure:"shards"` // 0 = auto
}

// Font configures the font loader.
type Font struct {
	DPI              float64 `mapstructure:"dpi"`
	ParsedCacheBytes int64   `mapstructure:"parsed_cache_bytes"`
}

// LoadSettings bounds individual loader calls.
type LoadSettings struct {
	Timeout time.Duration `mapstructure:"timeout"` // per loader call; 0 = none
}

// Metrics selects the metrics backend and where to serve it.
type Metrics struct {
	Addr    string `mapstructure:"addr"`    // empty = do not serve
	Backend string `mapstructure:"backend"` // prom | vm | none
}

// Log configures the global zerolog logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Metrics backends accepted in Metrics.Backend.
const (
	BackendProm = "prom"
	BackendVM   = "vm"
	BackendNone = "none"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("assets.root", ".")
	v.SetDefault("assets.manifest", "assets.yaml")
	v.SetDefault("cache.shards", 0)
	v.SetDefault("font.dpi", 72.0)
	v.SetDefault("font.parsed_cache_bytes", int64(32<<20))
	v.SetDefault("load.timeout", 10*time.Second)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.backend", BackendProm)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads configuration. path may be empty, in which case only
// defaults, .env and the environment apply. A missing .env is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Metrics.Backend {
	case BackendProm, BackendVM, BackendNone:
	default:
		return fmt.Errorf("config: metrics.backend %q (want prom, vm or none)", c.Metrics.Backend)
	}
	if c.Font.DPI <= 0 {
		return fmt.Errorf("config: font.dpi must be positive, got %v", c.Font.DPI)
	}
	if c.Cache.Shards < 0 {
		return fmt.Errorf("config: cache.shards must be >= 0, got %d", c.Cache.Shards)
	}
	if c.Load.Timeout < 0 {
		return fmt.Errorf("config: load.timeout must be >= 0, got %v", c.Load.Timeout)
	}
	return nil
}
