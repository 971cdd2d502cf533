package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// Server
	ListenAddr string
	APIToken   string // empty disables auth

	// qBittorrent
	QbitURL      string
	QbitUsername string
	QbitPassword string
	QbitEnabled  bool
	QbitTimeout  time.Duration

	// Downloads
	SavePath          string
	MovieCategory     string
	EpisodeCategory   string
	ReconcileInterval time.Duration

	// Storage
	RepoBackend  string // "file" or "postgres"
	SnapshotFile string // $CONFIG_DIR/downloads.json

	// Providers
	ProviderTimeout  time.Duration
	YTSEnabled       bool
	PirateBayEnabled bool
	EZTVEnabled      bool
	TorznabURL       string
	TorznabKey       string

	// Logging
	LogLevel string
	LogFile  string // empty logs to stdout only
}

// Load loads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("QBIT_URL", "http://localhost:8081")
	viper.SetDefault("QBIT_ENABLED", true)
	viper.SetDefault("QBIT_TIMEOUT_SECONDS", 15)
	viper.SetDefault("MOVIE_CATEGORY", "movies")
	viper.SetDefault("EPISODE_CATEGORY", "tv")
	viper.SetDefault("RECONCILE_INTERVAL_SECONDS", 2)
	viper.SetDefault("REPO_BACKEND", "file")
	viper.SetDefault("PROVIDER_TIMEOUT_SECONDS", 10)
	viper.SetDefault("YTS_ENABLED", true)
	viper.SetDefault("PIRATEBAY_ENABLED", true)
	viper.SetDefault("EZTV_ENABLED", true)
	viper.SetDefault("LOG_LEVEL", "info")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "fetcharr")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		ListenAddr: viper.GetString("LISTEN_ADDR"),
		APIToken:   viper.GetString("API_TOKEN"),

		QbitURL:      viper.GetString("QBIT_URL"),
		QbitUsername: viper.GetString("QBIT_USERNAME"),
		QbitPassword: viper.GetString("QBIT_PASSWORD"),
		QbitEnabled:  viper.GetBool("QBIT_ENABLED"),
		QbitTimeout:  time.Duration(viper.GetInt("QBIT_TIMEOUT_SECONDS")) * time.Second,

		SavePath:          viper.GetString("SAVE_PATH"),
		MovieCategory:     viper.GetString("MOVIE_CATEGORY"),
		EpisodeCategory:   viper.GetString("EPISODE_CATEGORY"),
		ReconcileInterval: time.Duration(viper.GetInt("RECONCILE_INTERVAL_SECONDS")) * time.Second,

		RepoBackend:  viper.GetString("REPO_BACKEND"),
		SnapshotFile: filepath.Join(configDir, "downloads.json"),

		ProviderTimeout:  time.Duration(viper.GetInt("PROVIDER_TIMEOUT_SECONDS")) * time.Second,
		YTSEnabled:       viper.GetBool("YTS_ENABLED"),
		PirateBayEnabled: viper.GetBool("PIRATEBAY_ENABLED"),
		EZTVEnabled:      viper.GetBool("EZTV_ENABLED"),
		TorznabURL:       viper.GetString("TORZNAB_URL"),
		TorznabKey:       viper.GetString("TORZNAB_KEY"),

		LogLevel: viper.GetString("LOG_LEVEL"),
		LogFile:  viper.GetString("LOG_FILE"),
	}

	if cfg.RepoBackend != "file" && cfg.RepoBackend != "postgres" {
		return nil, fmt.Errorf("REPO_BACKEND must be file or postgres, got %q", cfg.RepoBackend)
	}

	return cfg, nil
}
