// config.go - Configuration management for the auction service
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the service configuration
type Config struct {
	// HTTP server
	ListenAddr          string `json:"listen_addr"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`

	// Engine material
	KeyDir string `json:"key_dir"`

	// Registry persistence
	SnapshotPath string `json:"snapshot_path"`

	// Notifications; empty disables NATS publishing
	NatsURL string `json:"nats_url"`

	// Logging
	LogLevel     string `json:"log_level"`
	LogFile      string `json:"log_file"`
	EnableAudit  bool   `json:"enable_audit"`
	AuditLogPath string `json:"audit_log_path"`

	// Per-principal bid rate limiting
	BidRateTokens int `json:"bid_rate_tokens"`
	BidRateRefill int `json:"bid_rate_refill"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:          ":8085",
		ReadTimeoutSeconds:  10,
		WriteTimeoutSeconds: 30,
		KeyDir:              "keys",
		SnapshotPath:        "registry.json",
		NatsURL:             "",
		LogLevel:            "info",
		LogFile:             "auctiond.log",
		EnableAudit:         true,
		AuditLogPath:        "audit.log",
		BidRateTokens:       20,
		BidRateRefill:       5,
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return &config, nil
	}

	// Create default config and save it
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.KeyDir == "" {
		return fmt.Errorf("key_dir must not be empty")
	}
	if c.ReadTimeoutSeconds <= 0 {
		return fmt.Errorf("read_timeout_seconds must be positive")
	}
	if c.WriteTimeoutSeconds <= 0 {
		return fmt.Errorf("write_timeout_seconds must be positive")
	}
	if c.BidRateTokens <= 0 {
		return fmt.Errorf("bid_rate_tokens must be positive")
	}
	if c.BidRateRefill <= 0 {
		return fmt.Errorf("bid_rate_refill must be positive")
	}
	return nil
}
