// Package appconfig holds the ambient process configuration for the
// server itself: transport, logging, and maintenance scheduling. Project-
// level options (tasks.*, themes.*, git.*, …) live in
// projectManagement/UserSettings/config.json and are handled by
// internal/projectconfig instead.
package appconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all ambient configuration for the server process.
// Precedence: environment variables > config file > defaults.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Transport   TransportConfig   `toml:"transport"`
	Log         LogConfig         `toml:"log"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
	Metrics     MetricsConfig     `toml:"metrics"`
}

// ServerConfig holds MCP server metadata.
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// TransportConfig holds transport-related settings.
type TransportConfig struct {
	// Mode selects the transport: "stdio" (default) or "http".
	Mode string `toml:"mode"`
	// Port is the HTTP listen port (default: 21462). Only used when Mode is "http".
	Port string `toml:"port"`
	// Host is the HTTP listen address (default: "0.0.0.0"). Only used when Mode is "http".
	Host string `toml:"host"`
	// CORSOrigins is a comma-separated list of allowed CORS origins (default: "*").
	CORSOrigins string `toml:"cors_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// MaintenanceConfig drives internal/maintenance's periodic ticking jobs
// (stale-branch warnings, doctor advisories).
type MaintenanceConfig struct {
	Enabled            bool `toml:"enabled"`
	IntervalMinutes    int  `toml:"interval_minutes"`
	StaleBranchDays    int  `toml:"stale_branch_days"`
}

// MetricsConfig drives the prometheus /metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load creates a Config by reading from a TOML config file and environment
// variables. Precedence: environment variables > config file > defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (from --config flag)
//  2. AI_PM_CONFIG environment variable
//  3. ./ai-pm.toml (current directory)
//  4. ~/.config/ai-pm/ai-pm.toml (XDG-style)
//
// All fields are optional in the config file. Environment variables always
// override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Name:    "ai-pm-server",
			Version: "0.1.0",
		},
		Transport: TransportConfig{
			Mode:        "stdio",
			Port:        "21462",
			Host:        "0.0.0.0",
			CORSOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
		Maintenance: MaintenanceConfig{
			Enabled:         true,
			IntervalMinutes: 30,
			StaleBranchDays: 14,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil // no config file found; rely on defaults + env
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("AI_PM_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("ai-pm.toml"); err == nil {
		return "ai-pm.toml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/ai-pm/ai-pm.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) applyEnv() {
	envOverride("AI_PM_TRANSPORT", &c.Transport.Mode)
	envOverride("AI_PM_PORT", &c.Transport.Port)
	envOverride("AI_PM_HOST", &c.Transport.Host)
	envOverride("AI_PM_CORS_ORIGINS", &c.Transport.CORSOrigins)
	envOverride("AI_PM_LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("AI_PM_MAINTENANCE_ENABLED"); v != "" {
		c.Maintenance.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("AI_PM_MAINTENANCE_INTERVAL_MINUTES"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Maintenance.IntervalMinutes = n
		}
	}
	if v := os.Getenv("AI_PM_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = v == "true" || v == "1"
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode: %q (must be \"stdio\" or \"http\")", c.Transport.Mode)
	}
	if c.Maintenance.IntervalMinutes <= 0 {
		return fmt.Errorf("maintenance.interval_minutes must be positive")
	}
	return nil
}

func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
