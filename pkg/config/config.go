// Package config loads the CLI's yaml configuration: where the database and
// backup files live, how the connection is opened, and tracking defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the configuration file location when set.
const EnvConfigPath = "FIELDLOG_CONFIG"

// Config is the on-disk configuration. Every field has a default; a missing
// config file is not an error.
type Config struct {
	DBPath                  string `yaml:"db_path"`
	BackupDir               string `yaml:"backup_dir"`
	EnableWAL               bool   `yaml:"enable_wal"`
	SyncMode                string `yaml:"sync_mode"`
	TrackingIntervalMinutes int    `yaml:"tracking_interval_minutes"`
}

// DefaultDBPath returns a system-appropriate default path for the database.
func DefaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "fieldlog.db"
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(homeDir, "AppData", "Roaming", "fieldlog", "fieldlog.db")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "fieldlog", "fieldlog.db")
	default: // Primarily Linux, but also other UNIX-like systems.
		return filepath.Join(homeDir, ".local", "share", "fieldlog", "fieldlog.db")
	}
}

// Default returns the configuration used when no file exists.
func Default() Config {
	dbPath := DefaultDBPath()
	return Config{
		DBPath:                  dbPath,
		BackupDir:               filepath.Join(filepath.Dir(dbPath), "backups"),
		EnableWAL:               true,
		SyncMode:                "NORMAL",
		TrackingIntervalMinutes: 30,
	}
}

// Path returns the config file location: the FIELDLOG_CONFIG environment
// variable when set, otherwise <user config dir>/fieldlog/config.yaml.
func Path() (string, error) {
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return custom, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", fmt.Errorf("failed to determine config directory: %w", err)
		}
		return filepath.Join(homeDir, ".fieldlog", "config.yaml"), nil
	}
	return filepath.Join(configDir, "fieldlog", "config.yaml"), nil
}

// Load reads the config file, filling defaults for anything unset. A missing
// file yields the defaults without error.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	// Backstop the fields a hand-edited file may have blanked.
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(filepath.Dir(cfg.DBPath), "backups")
	}
	if cfg.SyncMode == "" {
		cfg.SyncMode = "NORMAL"
	}
	if cfg.TrackingIntervalMinutes <= 0 {
		cfg.TrackingIntervalMinutes = 30
	}

	return cfg, nil
}

// Init writes a starter config file with the defaults, refusing to overwrite
// an existing one. Returns the path written.
func Init() (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	raw, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("failed to serialize default config: %w", err)
	}

	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write config file '%s': %w", path, err)
	}

	return path, nil
}

// ResolveAndEnsureDBPath expands ~, absolutizes the path, and creates the
// parent directory so opening the database can succeed on first run. An empty
// providedPath falls back to the default location.
func ResolveAndEnsureDBPath(providedPath string) (string, error) {
	targetPath := providedPath
	if targetPath == "" {
		targetPath = DefaultDBPath()
	}

	if strings.HasPrefix(targetPath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory to expand path '%s': %w", targetPath, err)
		}
		targetPath = filepath.Join(homeDir, targetPath[2:])
	}

	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", targetPath, err)
	}
	targetPath = absPath

	dbDir := filepath.Dir(targetPath)
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory '%s' for database: %w", dbDir, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to stat directory '%s' for database: %w", dbDir, err)
	}

	return targetPath, nil
}
