package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "challandesk.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CHALLANDESK_PORT")
	setString(&cfg.Backend.BaseURL, "CHALLANDESK_BACKEND_URL")
	setString(&cfg.Backend.AssetBaseURL, "CHALLANDESK_ASSET_BASE_URL")
	setDuration(&cfg.Backend.Timeout, "CHALLANDESK_BACKEND_TIMEOUT")
	setString(&cfg.Session.CookieName, "CHALLANDESK_SESSION_COOKIE")
	setDuration(&cfg.Session.TTL, "CHALLANDESK_SESSION_TTL")
	setBool(&cfg.Session.Secure, "CHALLANDESK_SESSION_SECURE")
	setInt64(&cfg.Cache.MaxCostBytes, "CHALLANDESK_CACHE_MAX_COST")
	setDuration(&cfg.Cache.TTL, "CHALLANDESK_CACHE_TTL")
	setString(&cfg.Logging.Level, "CHALLANDESK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CHALLANDESK_LOG_SERVICE")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
}

func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}
	if cfg.Backend.Timeout <= 0 {
		return errors.New("backend.timeout must be positive")
	}
	if cfg.Session.CookieName == "" {
		return errors.New("session.cookie_name is required")
	}
	if cfg.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
