// Package config loads the todolist TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// StoreEnv overrides the file store path when set.
const StoreEnv = "TODOLIST_STORE"

// Storage backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendNATS   = "nats"
)

// Config represents config.toml.
type Config struct {
	Storage Storage `toml:"storage"`
	Log     Log     `toml:"log"`
}

// Storage selects and configures the key-value backend.
type Storage struct {
	// Backend is "file", "memory" or "nats".
	Backend string `toml:"backend"`

	// Path of the JSON document used by the file backend.
	Path string `toml:"path"`

	// MaxBackups is the number of rotating backups the file backend keeps.
	// Negative disables backups.
	MaxBackups int `toml:"max-backups"`

	NATSURL string `toml:"nats-url"`
	Bucket  string `toml:"bucket"`
}

// Log configures the process logger.
type Log struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level"`

	// Format is "console" or "json".
	Format string `toml:"format"`

	// File receives log output. Empty means stderr.
	File string `toml:"file"`
}

// Default returns the configuration used when no file sets a value.
func Default() (*Config, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		Storage: Storage{
			Backend:    BackendFile,
			Path:       filepath.Join(dir, "store.json"),
			MaxBackups: 10,
			NATSURL:    "nats://127.0.0.1:4222",
			Bucket:     "todolist",
		},
		Log: Log{
			Level:  "warn",
			Format: "console",
		},
	}, nil
}

// DefaultPath returns $HOME/.config/todolist/config.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "todolist", "config.toml"), nil
}

func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "todolist"), nil
}

// Load reads the config file at path over the defaults. An empty path
// means DefaultPath; a missing file yields the defaults. StoreEnv, when
// set, replaces the storage path last.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	fileCfg, meta, err := loadConfigFile(path)
	if err != nil {
		return nil, err
	}
	merge(cfg, fileCfg, meta)

	if v := strings.TrimSpace(os.Getenv(StoreEnv)); v != "" {
		cfg.Storage.Path = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return &cfg, meta, nil
}

// merge copies every key the file defined onto cfg.
func merge(cfg, fileCfg *Config, meta toml.MetaData) {
	mergeString(&cfg.Storage.Backend, meta.IsDefined("storage", "backend"), fileCfg.Storage.Backend)
	mergeString(&cfg.Storage.Path, meta.IsDefined("storage", "path"), expandHome(fileCfg.Storage.Path))
	mergeString(&cfg.Storage.NATSURL, meta.IsDefined("storage", "nats-url"), fileCfg.Storage.NATSURL)
	mergeString(&cfg.Storage.Bucket, meta.IsDefined("storage", "bucket"), fileCfg.Storage.Bucket)
	if meta.IsDefined("storage", "max-backups") {
		cfg.Storage.MaxBackups = fileCfg.Storage.MaxBackups
	}

	mergeString(&cfg.Log.Level, meta.IsDefined("log", "level"), fileCfg.Log.Level)
	mergeString(&cfg.Log.Format, meta.IsDefined("log", "format"), fileCfg.Log.Format)
	mergeString(&cfg.Log.File, meta.IsDefined("log", "file"), expandHome(fileCfg.Log.File))
}

func mergeString(dst *string, defined bool, value string) {
	if defined {
		*dst = strings.TrimSpace(value)
	}
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, rest)
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s backend", BackendFile)
		}
	case BackendMemory:
	case BackendNATS:
		if c.Storage.NATSURL == "" {
			return fmt.Errorf("storage.nats-url is required for the %s backend", BackendNATS)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
