package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/kalambet/simpleprefs/internal/store"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Log     LogConfig
	Server  ServerConfig
}

type AppConfig struct {
	// Name selects the default preference file, as an application ID does.
	Name string `env:"PREFS_APP_NAME" envDefault:"com.kalambet.simpleprefs.demo"`
}

type StorageConfig struct {
	DataDir     string `env:"PREFS_DATA_DIR"`
	Backend     string `env:"PREFS_BACKEND" envDefault:"auto"`
	AsyncWrites bool   `env:"PREFS_ASYNC_WRITES" envDefault:"false"`
}

type LogConfig struct {
	Level string `env:"PREFS_LOG_LEVEL" envDefault:"info"`
	// Verbose turns on read/write logging in the preferences facade.
	Verbose bool `env:"PREFS_VERBOSE_LOG" envDefault:"false"`
}

type ServerConfig struct {
	Port  int    `env:"PREFS_SERVER_PORT" envDefault:"4100"`
	Token string `env:"PREFS_API_TOKEN"`
}

// EnvFilePath is the per-user dotenv file read by Load and written by SetKey.
// PREFS_CONFIG_DIR relocates it.
func EnvFilePath() string {
	dir := os.Getenv("PREFS_CONFIG_DIR")
	if dir == "" {
		dir = configDir()
	}
	return filepath.Join(dir, "prefs.env")
}

// Load reads configuration from defaults, dotenv files and PREFS_*
// environment variables.
//
// A ".env" in the working directory is read first, then EnvFilePath.
// Variables already present in the environment are never overridden, so the
// process environment wins over either file.
func Load() (Config, error) {
	loadEnvFiles(".env", EnvFilePath())
	return parse(env.Options{})
}

func loadEnvFiles(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("could not read env file, skipping", "path", p, "error", err)
		}
	}
}

func parse(opts env.Options) (Config, error) {
	cfg := Config{Storage: StorageConfig{DataDir: defaultDataDir()}}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.App.Name) == "" {
		return fmt.Errorf("invalid config: PREFS_APP_NAME must not be empty")
	}
	switch c.Storage.Backend {
	case store.BackendAuto, store.BackendFile, store.BackendSQLite, store.BackendMemory:
	default:
		return fmt.Errorf("invalid config: unknown backend %q (want auto, file, sqlite or memory)", c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server port %d out of range", c.Server.Port)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid config: log level %q: %w", c.Log.Level, err)
	}
	return nil
}

// SlogLevel returns the configured log level. Invalid levels were rejected
// by Load, so the zero level (info) is only seen on a hand-built Config.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	_ = lvl.UnmarshalText([]byte(c.Log.Level))
	return lvl
}
