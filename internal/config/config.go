// Package config provides hierarchical configuration loading for the
// ChallanDesk portal. Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the portal.
type Config struct {
	Server    Server    `yaml:"server"`
	Backend   Backend   `yaml:"backend"`
	Session   Session   `yaml:"session"`
	Cache     Cache     `yaml:"cache"`
	Logging   Logging   `yaml:"logging"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port string `yaml:"port"`
}

// Backend holds the remote ChallanDesk REST API configuration.
type Backend struct {
	BaseURL      string        `yaml:"base_url"`
	AssetBaseURL string        `yaml:"asset_base_url"` // base for relative pdf_url/qr_code_url links
	Timeout      time.Duration `yaml:"timeout"`
}

// Session holds server-side session store configuration.
type Session struct {
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
}

// Cache holds the branding-template fallback cache configuration.
type Cache struct {
	MaxCostBytes int64         `yaml:"max_cost_bytes"`
	TTL          time.Duration `yaml:"ttl"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Telemetry holds OTLP trace export configuration. Tracing is disabled
// when Endpoint is empty.
type Telemetry struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port: "6100",
		},
		Backend: Backend{
			BaseURL:      "http://localhost:6001/api/tenant",
			AssetBaseURL: "http://localhost:6001",
			Timeout:      30 * time.Second,
		},
		Session: Session{
			CookieName: "challandesk_session",
			TTL:        12 * time.Hour,
			Secure:     false,
		},
		Cache: Cache{
			MaxCostBytes: 8 << 20,
			TTL:          24 * time.Hour,
		},
		Logging: Logging{
			Level:   "info",
			Service: "challandesk-portal",
		},
		Telemetry: Telemetry{},
	}
}
