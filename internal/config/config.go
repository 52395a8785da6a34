package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Values come from the defaults
// file first, then the environment on top of it.
type Config struct {
	Port          string `yaml:"port" validate:"required,numeric"`
	LogLevel      string `yaml:"log_level" validate:"required,oneof=debug info warn error fatal"`
	DataPath      string `yaml:"data_path" validate:"required"`
	AttachmentDir string `yaml:"attachment_dir" validate:"required"`
	RedirectURI   string `yaml:"redirect_uri" validate:"required,url"`

	// SecretSeed keys the encryption of stored credentials. Changing it
	// invalidates them, which degrades the app to disconnected.
	SecretSeed string `yaml:"-" validate:"required,min=8"`

	CacheTTLMinutes int `yaml:"cache_ttl_minutes" validate:"required,min=1"`
}

// CacheTTL returns the capability cache freshness window.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// Load reads the defaults file, a .env file when present, and finally the
// process environment, and validates the result.
func Load(defaultsPath string) (Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg := Config{
		Port:            "8080",
		LogLevel:        "info",
		DataPath:        "mastothread.db",
		AttachmentDir:   ".",
		RedirectURI:     "http://localhost:8080/api/auth/callback",
		CacheTTLMinutes: 60,
	}

	if defaultsPath != "" {
		raw, err := os.ReadFile(defaultsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read defaults: %w", err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse defaults: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setIfPresent(&cfg.Port, "PORT")
	setIfPresent(&cfg.LogLevel, "LOG_LEVEL")
	setIfPresent(&cfg.DataPath, "DATA_PATH")
	setIfPresent(&cfg.AttachmentDir, "ATTACHMENT_DIR")
	setIfPresent(&cfg.RedirectURI, "REDIRECT_URI")
	setIfPresent(&cfg.SecretSeed, "SECRET_SEED")

	if v := os.Getenv("CACHE_TTL_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil {
			cfg.CacheTTLMinutes = minutes
		}
	}
}

func setIfPresent(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}
