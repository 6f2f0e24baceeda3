package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Uploads UploadsConfig `toml:"uploads"`
	Auth    AuthConfig    `toml:"auth"`
	YouTube YouTubeConfig `toml:"youtube"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         string `toml:"port"`
	Host         string `toml:"host"`
	StaticDir    string `toml:"static_dir"`
	EnableCORS   bool   `toml:"enable_cors"`
	ReadTimeout  int    `toml:"read_timeout_seconds"`
	WriteTimeout int    `toml:"write_timeout_seconds"`
	IdleTimeout  int    `toml:"idle_timeout_seconds"`
}

// StoreConfig contains user store configuration
type StoreConfig struct {
	Path            string `toml:"path"`
	WatchForChanges bool   `toml:"watch_for_changes"`
}

// UploadsConfig contains MP3 upload configuration
type UploadsConfig struct {
	Dir           string `toml:"dir"`
	URLPrefix     string `toml:"url_prefix"`
	MaxUploadSize int64  `toml:"max_upload_size_mb"`
}

// AuthConfig contains session and registration configuration
type AuthConfig struct {
	SessionDuration   string `toml:"session_duration"`
	SecureCookies     bool   `toml:"secure_cookies"`
	AllowRegistration bool   `toml:"allow_registration"`
}

// YouTubeConfig contains YouTube Data API client configuration
type YouTubeConfig struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxResults     int     `toml:"max_results"`
	CacheTTLMin    int     `toml:"cache_ttl_minutes"`
	RatePerSecond  float64 `toml:"rate_limit_per_second"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	RequestLogging bool   `toml:"request_logging"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			Host:         "0.0.0.0",
			StaticDir:    "./static",
			EnableCORS:   true,
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
		},
		Store: StoreConfig{
			Path:            "./data/users.json",
			WatchForChanges: true,
		},
		Uploads: UploadsConfig{
			Dir:           "./uploads",
			URLPrefix:     "/uploads/",
			MaxUploadSize: 50,
		},
		Auth: AuthConfig{
			SessionDuration:   "24h",
			SecureCookies:     false,
			AllowRegistration: true,
		},
		YouTube: YouTubeConfig{
			APIKey:         "",
			BaseURL:        "https://www.googleapis.com/youtube/v3",
			TimeoutSeconds: 10,
			MaxResults:     10,
			CacheTTLMin:    5,
			RatePerSecond:  5,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			RequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	// Load from file
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values for secrets,
// so the API key never has to live in the config file.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		c.YouTube.APIKey = key
	}
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Write header comment
	header := `# Mixtape Playlist Server Configuration
# This file contains all configuration options for the Mixtape server.
# The YouTube API key may be set here or via the YOUTUBE_API_KEY
# environment variable (the environment takes precedence).

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store path cannot be empty")
	}

	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads directory cannot be empty")
	}
	if c.Uploads.URLPrefix == "" {
		return fmt.Errorf("uploads URL prefix cannot be empty")
	}
	if c.Uploads.MaxUploadSize < 1 {
		return fmt.Errorf("max upload size must be at least 1 MB")
	}

	if c.Auth.SessionDuration == "" {
		return fmt.Errorf("session duration cannot be empty")
	}

	if c.YouTube.BaseURL == "" {
		return fmt.Errorf("youtube base URL cannot be empty")
	}
	if c.YouTube.MaxResults < 1 || c.YouTube.MaxResults > 50 {
		return fmt.Errorf("youtube max results must be between 1 and 50")
	}
	if c.YouTube.TimeoutSeconds < 1 {
		return fmt.Errorf("youtube timeout must be at least 1 second")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}
