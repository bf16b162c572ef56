// Package config loads canvas settings from defaults, an optional TOML file and
// CANVAS_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CANVAS_"

// Config is the full set of canvas settings.
type Config struct {
	MaxShapes      int     `toml:"max_shapes" env:"MAX_SHAPES"`
	ShowIndex      bool    `toml:"show_index" env:"SHOW_INDEX"`
	UseSignals     bool    `toml:"use_signals" env:"USE_SIGNALS"`
	ViewportWidth  float64 `toml:"viewport_width" env:"VIEWPORT_WIDTH"`
	ViewportHeight float64 `toml:"viewport_height" env:"VIEWPORT_HEIGHT"`
	UndoDepth      int     `toml:"undo_depth" env:"UNDO_DEPTH"`
	LogLevel       string  `toml:"log_level" env:"LOG_LEVEL"`
	DataDir        string  `toml:"data_dir" env:"DATA_DIR"`

	Storage Storage `toml:"storage" envPrefix:"STORAGE_"`
	Relay   Relay   `toml:"relay" envPrefix:"RELAY_"`
}

// Storage selects the durable document backend. DSN wins over the discrete
// connection fields when both are set.
type Storage struct {
	Driver   string `toml:"driver" env:"DRIVER"` // sqlite, postgres, mysql, mongodb, memory
	DSN      string `toml:"dsn" env:"DSN"`
	Host     string `toml:"host" env:"HOST"`
	Port     int    `toml:"port" env:"PORT"`
	User     string `toml:"user" env:"USER"`
	Password string `toml:"password" env:"PASSWORD"`
	Database string `toml:"database" env:"DATABASE"`
	SSLMode  string `toml:"ssl_mode" env:"SSL_MODE"`
}

// Relay configures the websocket relay server and clients.
type Relay struct {
	Addr             string `toml:"addr" env:"ADDR"`
	URL              string `toml:"url" env:"URL"`
	Document         string `toml:"document" env:"DOCUMENT"`
	SnapshotSchedule string `toml:"snapshot_schedule" env:"SNAPSHOT_SCHEDULE"`
}

// Default returns the built-in settings.
func Default() Config {
	dataDir := ".canvas"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "canvas")
	}
	return Config{
		MaxShapes:      10000,
		UseSignals:     true,
		ViewportWidth:  600,
		ViewportHeight: 600,
		UndoDepth:      40,
		LogLevel:       "info",
		DataDir:        dataDir,
		Storage:        Storage{Driver: "sqlite"},
		Relay: Relay{
			Addr:             ":8080",
			URL:              "ws://localhost:8080/ws",
			Document:         "default",
			SnapshotSchedule: "@every 30s",
		},
	}
}

// Load builds a Config from defaults, the TOML file at path (skipped when path
// is empty or the file does not exist) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("decode %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.MaxShapes <= 0:
		return fmt.Errorf("%w: max_shapes must be positive, got %d", ErrInvalid, c.MaxShapes)
	case c.ViewportWidth <= 0 || c.ViewportHeight <= 0:
		return fmt.Errorf("%w: viewport must be positive, got %gx%g", ErrInvalid, c.ViewportWidth, c.ViewportHeight)
	case c.UndoDepth <= 0:
		return fmt.Errorf("%w: undo_depth must be positive, got %d", ErrInvalid, c.UndoDepth)
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres", "mysql", "mongodb", "memory":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalid, c.Storage.Driver)
	}
	return nil
}

// DefaultPath returns the config file location under the user's config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "canvas", "config.toml")
}
