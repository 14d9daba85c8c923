package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig []byte

const (
	configDirName  = "tracksync"
	configFileName = "config.yaml"
	configDirPerm  = 0755
	configFilePerm = 0644
)

// Config is the application configuration
type Config struct {
	ServerURL string `yaml:"server_url" validate:"required,url"`
	DBPath    string `yaml:"db_path"`

	// Sync behavior
	SyncIntervalMinutes   int  `yaml:"sync_interval_minutes" validate:"gte=1"`
	Workers               int  `yaml:"workers" validate:"gte=1,lte=32"`
	RequestTimeoutSeconds int  `yaml:"request_timeout_seconds" validate:"gte=1"`
	Verbose               bool `yaml:"verbose"`
}

// Default returns the built-in defaults applied before the file is read
func Default() *Config {
	return &Config{
		ServerURL:             "https://api.tracker.example.com/v1",
		SyncIntervalMinutes:   15,
		Workers:               4,
		RequestTimeoutSeconds: 30,
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Path returns the config file location.
// Priority: customPath > $XDG_CONFIG_HOME/tracksync/config.yaml
func Path(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// Load reads the configuration file, creating it from the embedded sample on
// first run, then applies environment overrides and validates the result.
// Environment variables are also read from a .env file when one is present.
func Load(customPath string) (*Config, error) {
	_ = godotenv.Load()

	configPath, err := Path(customPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		if writeErr := writeSample(configPath); writeErr != nil {
			return nil, writeErr
		}
		data = sampleConfig
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file %s: %w", configPath, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// applyEnvOverrides lets TRACKSYNC_* environment variables win over the file
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRACKSYNC_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("TRACKSYNC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TRACKSYNC_SYNC_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SyncIntervalMinutes = n
		}
	}
	if v := os.Getenv("TRACKSYNC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("TRACKSYNC_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Verbose = b
		}
	}
}

func writeSample(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, sampleConfig, configFilePerm); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}
	return nil
}
