// Package config loads engine and server settings from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/kestrelml/weaklabel/internal/errors"
	"github.com/kestrelml/weaklabel/internal/types"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port" json:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins" json:"allowed_origins"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min" json:"rate_limit_per_min"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxCorpusSize   int           `yaml:"max_corpus_size" json:"max_corpus_size"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	DataDir  string        `yaml:"data_dir" json:"data_dir"`
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// Config is the full application configuration.
type Config struct {
	Engine  types.EngineConfig `yaml:"engine" json:"engine"`
	Server  ServerConfig       `yaml:"server" json:"server"`
	Storage StorageConfig      `yaml:"storage" json:"storage"`
	// FailureThreshold is the number of consecutive labeling function
	// failures before that function is tripped for the rest of the run.
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Engine: types.DefaultEngineConfig(),
		Server: ServerConfig{
			Port:            "8080",
			AllowedOrigins:  []string{"*"},
			RateLimitPerMin: 60,
			ShutdownTimeout: 10 * time.Second,
			MaxCorpusSize:   10000,
		},
		Storage: StorageConfig{
			DataDir:  "./data",
			CacheTTL: 15 * time.Minute,
		},
		FailureThreshold: 5,
	}
}

// Load reads path (if non-empty), applies environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("failed to read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("failed to parse config file %s", path), err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxIterations <= 0 {
		return apperrors.NewConfigurationError("max_iterations must be positive", nil)
	}
	if c.Engine.ConvergenceThreshold <= 0 {
		return apperrors.NewConfigurationError("convergence_threshold must be positive", nil)
	}
	if c.Engine.Regularization < 0 {
		return apperrors.NewConfigurationError("regularization must be non-negative", nil)
	}
	if c.Engine.LearningRate < 0 {
		return apperrors.NewConfigurationError("learning_rate must be non-negative", nil)
	}
	if c.Engine.Workers < 0 {
		return apperrors.NewConfigurationError("workers must be non-negative", nil)
	}
	if c.FailureThreshold <= 0 {
		return apperrors.NewConfigurationError("failure_threshold must be positive", nil)
	}
	if c.Server.RateLimitPerMin <= 0 {
		return apperrors.NewConfigurationError("rate_limit_per_min must be positive", nil)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Storage.DataDir = getEnvOrDefault("DATA_DIR", cfg.Storage.DataDir)

	if v, ok := getEnvInt("MAX_ITERATIONS"); ok {
		cfg.Engine.MaxIterations = v
	}
	if v, ok := getEnvFloat("CONVERGENCE_THRESHOLD"); ok {
		cfg.Engine.ConvergenceThreshold = v
	}
	if v, ok := getEnvFloat("REGULARIZATION"); ok {
		cfg.Engine.Regularization = v
	}
	if v, ok := getEnvInt("WORKERS"); ok {
		cfg.Engine.Workers = v
	}
	if v, ok := getEnvInt("FAILURE_THRESHOLD"); ok {
		cfg.FailureThreshold = v
	}
	if v, ok := getEnvInt("RATE_LIMIT_PER_MIN"); ok {
		cfg.Server.RateLimitPerMin = v
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvFloat(key string) (float64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
