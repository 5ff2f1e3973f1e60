package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const envPrefix = "SALESDASH"

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Data     DataConfig     `yaml:"data" envconfig:"DATA"`
	Forecast ForecastConfig `yaml:"forecast" envconfig:"FORECAST"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"*"`
}

// DataConfig says where the six CSV tables live. BaseURL wins over Dir when set.
type DataConfig struct {
	Dir         string        `yaml:"dir" envconfig:"DIR" default:"data"`
	BaseURL     string        `yaml:"base_url" envconfig:"BASE_URL"`
	LoadTimeout time.Duration `yaml:"load_timeout" envconfig:"LOAD_TIMEOUT" default:"30s"`
}

type ForecastConfig struct {
	URL            string        `yaml:"url" envconfig:"URL" default:"http://localhost:5000/api/forecast/prophet"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"2m"`
	DefaultHorizon int           `yaml:"default_horizon" envconfig:"DEFAULT_HORIZON" default:"12"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/salesdash.log"`
}

// Load layers configuration as defaults, then environment (after reading .env
// if present), then the YAML file named by SALESDASH_CONFIG. Keys present in the
// file override everything before them.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks ranges and required values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Data.Dir == "" && c.Data.BaseURL == "" {
		return fmt.Errorf("either data dir or data base url must be set")
	}
	if c.Data.LoadTimeout <= 0 {
		return fmt.Errorf("data load timeout must be positive")
	}
	if c.Forecast.URL == "" {
		return fmt.Errorf("forecast url must be set")
	}
	if c.Forecast.DefaultHorizon < 1 || c.Forecast.DefaultHorizon > 120 {
		return fmt.Errorf("forecast default horizon out of range: %d", c.Forecast.DefaultHorizon)
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %s", c.Logging.Output)
	}
	return nil
}
