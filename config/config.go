package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultDataDir           = "db"
	defaultSteamAPIURL       = "https://api.steampowered.com/ISteamRemoteStorage/GetPublishedFileDetails/v1/"
	defaultMaxConcurrent     = 10
	defaultRequestTimeoutSec = 45
	defaultProgressBatchSize = 10
	defaultUserAgent         = "moddb-curator/dev"
	defaultLogFile           = "moddb-curator.log"
)

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	ModsDir               string `mapstructure:"MODS_DIR"`
	DataDir               string `mapstructure:"DATA_DIR"`
	SteamAPIURL           string `mapstructure:"STEAM_API_URL"`
	MaxConcurrentRequests int    `mapstructure:"MAX_CONCURRENT_REQUESTS"`
	RequestTimeoutSeconds int    `mapstructure:"REQUEST_TIMEOUT"`
	ProgressBatchSize     int    `mapstructure:"PROGRESS_BATCH_SIZE"`
	UserAgent             string `mapstructure:"USERAGENT"`
	LogFile               string `mapstructure:"LOG_FILE"`

	// Derived, not read from env.
	RequestTimeout   time.Duration `mapstructure:"-"`
	DatabasePath     string        `mapstructure:"-"`
	ReplacementsPath string        `mapstructure:"-"`
	RulesPath        string        `mapstructure:"-"`
	HistoryPath      string        `mapstructure:"-"`
}

var envKeys = []string{
	"MODS_DIR",
	"DATA_DIR",
	"STEAM_API_URL",
	"MAX_CONCURRENT_REQUESTS",
	"REQUEST_TIMEOUT",
	"PROGRESS_BATCH_SIZE",
	"USERAGENT",
	"LOG_FILE",
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)   // Path to look for the config file in
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")  // REQUIRED if the config file does not have the extension in the name

	vipErr := viper.ReadInConfig()
	if _, ok := vipErr.(viper.ConfigFileNotFoundError); ok {
		slog.Debug("Config file (.env) not found, relying on environment variables.")
	} else if vipErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vipErr)
	}

	viper.AutomaticEnv()
	for _, key := range envKeys {
		if err := viper.BindEnv(key, key); err != nil {
			slog.Warn("Unable to bind env var", "key", key, "error", err)
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", err)
	}

	processConfigDefaults(&config)

	// A relative DATA_DIR is resolved against the config directory.
	if !filepath.IsAbs(config.DataDir) && path != "" && path != "." {
		config.DataDir = filepath.Join(path, config.DataDir)
	}

	return Resolve(config)
}

// Resolve fills defaults into a hand-built Config, creates its data
// directory and derives the document paths.
func Resolve(config Config) (Config, error) {
	processConfigDefaults(&config)
	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// processConfigDefaults fills in every value left unset.
func processConfigDefaults(config *Config) {
	if config.DataDir == "" {
		config.DataDir = defaultDataDir
	}
	if config.SteamAPIURL == "" {
		config.SteamAPIURL = defaultSteamAPIURL
	}
	if config.MaxConcurrentRequests <= 0 {
		config.MaxConcurrentRequests = defaultMaxConcurrent
	}
	if config.RequestTimeoutSeconds <= 0 {
		config.RequestTimeoutSeconds = defaultRequestTimeoutSec
	}
	config.RequestTimeout = time.Duration(config.RequestTimeoutSeconds) * time.Second
	if config.ProgressBatchSize <= 0 {
		config.ProgressBatchSize = defaultProgressBatchSize
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if config.LogFile == "" {
		config.LogFile = defaultLogFile
	}
}

// validateAndEnsureDirectories makes sure the data directory exists and
// derives the document paths inside it.
func validateAndEnsureDirectories(config *Config) error {
	if config.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if _, err := os.Stat(config.DataDir); os.IsNotExist(err) {
		slog.Info("Data directory does not exist, creating it", "path", config.DataDir)
		if err := os.MkdirAll(config.DataDir, 0755); err != nil {
			return fmt.Errorf("create data directory %s: %w", config.DataDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("check data directory %s: %w", config.DataDir, err)
	}

	config.DatabasePath = filepath.Join(config.DataDir, "db.json")
	config.ReplacementsPath = filepath.Join(config.DataDir, "replacements.json")
	config.RulesPath = filepath.Join(config.DataDir, "rules.json")
	config.HistoryPath = filepath.Join(config.DataDir, "history.db")
	return nil
}

// RequireModsDir checks that MODS_DIR points at an existing directory. Only
// the scanning commands need it.
func (c Config) RequireModsDir() error {
	if c.ModsDir == "" {
		return fmt.Errorf("MODS_DIR is required")
	}
	info, err := os.Stat(c.ModsDir)
	if err != nil {
		return fmt.Errorf("check mods directory %s: %w", c.ModsDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("MODS_DIR %s is not a directory", c.ModsDir)
	}
	return nil
}
