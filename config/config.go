package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"pixshift/logger"
	"pixshift/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration. Precedence: environment > YAML file > defaults.
type Config struct {
	DataDir            string                 `yaml:"data_dir"`
	Addr               string                 `yaml:"addr"`
	TokenSecret        string                 `yaml:"token_secret"`
	TokenIssuer        string                 `yaml:"token_issuer"`
	LogLevel           string                 `yaml:"log_level"`
	LogFile            string                 `yaml:"log_file"`
	Profile            string                 `yaml:"profile"`
	PublishConcurrency int                    `yaml:"publish_concurrency"`
	FetchTimeout       time.Duration          `yaml:"fetch_timeout"`
	MaxUploadBytes     int64                  `yaml:"max_upload_bytes"`
	PublishTargets     []models.PublishTarget `yaml:"publish_targets"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		DataDir:            "./data",
		Addr:               ":8080",
		LogLevel:           "info",
		Profile:            "default",
		PublishConcurrency: 4,
		FetchTimeout:       30 * time.Second,
		MaxUploadBytes:     64 << 20,
	}
}

// Load reads an optional .env file, then the YAML file named by
// PIXSHIFT_CONFIG (if any), then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warnf("Failed to read .env: %v", err)
	}

	cfg := Default()
	if path := os.Getenv("PIXSHIFT_CONFIG"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	// keep the package-level data dir helpers in sync
	os.Setenv("PIXSHIFT_DATA_DIR", cfg.DataDir)
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"PIXSHIFT_DATA_DIR":     &c.DataDir,
		"PIXSHIFT_ADDR":         &c.Addr,
		"PIXSHIFT_TOKEN_SECRET": &c.TokenSecret,
		"PIXSHIFT_TOKEN_ISSUER": &c.TokenIssuer,
		"PIXSHIFT_LOG_LEVEL":    &c.LogLevel,
		"PIXSHIFT_LOG_FILE":     &c.LogFile,
		"PIXSHIFT_PROFILE":      &c.Profile,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("PIXSHIFT_PUBLISH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid PIXSHIFT_PUBLISH_CONCURRENCY %q", v)
		}
		c.PublishConcurrency = n
	}
	if v := os.Getenv("PIXSHIFT_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PIXSHIFT_FETCH_TIMEOUT %q: %w", v, err)
		}
		c.FetchTimeout = d
	}
	if v := os.Getenv("PIXSHIFT_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid PIXSHIFT_MAX_UPLOAD_BYTES %q", v)
		}
		c.MaxUploadBytes = n
	}
	return nil
}

// ApplyLogging configures the logger package from c.
func (c Config) ApplyLogging() error {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	if c.LogFile != "" {
		if err := logger.Init(c.LogFile, true); err != nil {
			return err
		}
	}
	logger.SetLevel(level)
	return nil
}
