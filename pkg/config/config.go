// Package config loads and persists altbridge settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFileName is the settings file searched for in the current
// directory and the user's home directory.
const ConfigFileName = ".altbridge.json"

// Config represents the altbridge configuration.
type Config struct {
	// User settings, mirrored by the options surface.
	APIKey                string `json:"api_key"`
	WPSiteURL             string `json:"wp_site_url"`
	WPUsername            string `json:"wp_username"`
	WPApplicationPassword string `json:"wp_application_password"`
	Language              string `json:"language"`          // "en" or "cs"
	DefaultSyncMode       string `json:"default_sync_mode"` // passed to the AltSync plugin

	AI      AIConfig      `json:"ai"`
	Bridge  BridgeConfig  `json:"bridge"`
	Extract ExtractConfig `json:"extract"`

	// path the config was loaded from, used by Save
	path string
}

// AIConfig contains captioning model settings.
type AIConfig struct {
	Model     string `json:"model"`
	BaseURL   string `json:"base_url,omitempty"` // override for OpenAI-compatible endpoints
	MaxTokens int    `json:"max_tokens"`
}

// BridgeConfig contains the local bridge server settings.
type BridgeConfig struct {
	ListenAddr string `json:"listen_addr"`
}

// ExtractConfig contains page/image fetching limits.
type ExtractConfig struct {
	TimeoutSeconds int   `json:"timeout_seconds"`
	MaxPageBytes   int64 `json:"max_page_bytes"`
	MaxImageBytes  int64 `json:"max_image_bytes"`
	MaxImageWidth  int   `json:"max_image_width"`
	MaxImageHeight int   `json:"max_image_height"`
	JPEGQuality    int   `json:"jpeg_quality"`
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.path = path

	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadDefault attempts to load .altbridge.json from the current directory or home.
// A missing file is not an error: a config with defaults is returned so the
// service can start and settings can be written through the options surface.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat(ConfigFileName); err == nil {
		return Load(ConfigFileName)
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homePath := filepath.Join(home, ConfigFileName)
		if _, err := os.Stat(homePath); err == nil {
			return Load(homePath)
		}
	}

	config := &Config{path: defaultPath()}
	config.setDefaults()
	return config, nil
}

// defaultPath returns where a fresh config should be written.
func defaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ConfigFileName
	}
	return filepath.Join(home, ConfigFileName)
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = defaultPath()
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// Settings contain credentials, keep the file private.
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Path returns the file path backing this configuration.
func (c *Config) Path() string {
	return c.path
}

// SetPath overrides the file path used by Save.
func (c *Config) SetPath(path string) {
	c.path = path
}

// setDefaults sets default values for configuration.
func (c *Config) setDefaults() {
	if c.Language == "" {
		c.Language = "en"
	}
	if c.DefaultSyncMode == "" {
		c.DefaultSyncMode = "empty_only"
	}

	// AI defaults
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o"
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 300
	}

	// Bridge defaults
	if c.Bridge.ListenAddr == "" {
		c.Bridge.ListenAddr = "127.0.0.1:8934"
	}

	// Extract defaults
	if c.Extract.TimeoutSeconds == 0 {
		c.Extract.TimeoutSeconds = 30
	}
	if c.Extract.MaxPageBytes == 0 {
		c.Extract.MaxPageBytes = 10 * 1024 * 1024
	}
	if c.Extract.MaxImageBytes == 0 {
		c.Extract.MaxImageBytes = 20 * 1024 * 1024
	}
	if c.Extract.MaxImageWidth == 0 {
		c.Extract.MaxImageWidth = 2048
	}
	if c.Extract.MaxImageHeight == 0 {
		c.Extract.MaxImageHeight = 2048
	}
	if c.Extract.JPEGQuality == 0 {
		c.Extract.JPEGQuality = 85
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Language != "en" && c.Language != "cs" {
		return fmt.Errorf("invalid language: %s (must be 'en' or 'cs')", c.Language)
	}

	if c.WPSiteURL != "" && !strings.HasPrefix(c.WPSiteURL, "http://") && !strings.HasPrefix(c.WPSiteURL, "https://") {
		return fmt.Errorf("invalid wp_site_url: %s (must start with http:// or https://)", c.WPSiteURL)
	}

	if c.Extract.JPEGQuality < 0 || c.Extract.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg_quality: %d (must be 1-100)", c.Extract.JPEGQuality)
	}

	return nil
}

// Settings is the flat key-value view of the user settings, exchanged
// with the options surface.
type Settings struct {
	APIKey                string `json:"api_key"`
	WPSiteURL             string `json:"wp_site_url"`
	WPUsername            string `json:"wp_username"`
	WPApplicationPassword string `json:"wp_application_password"`
	Language              string `json:"language"`
	DefaultSyncMode       string `json:"default_sync_mode"`
}

// Settings returns the user-settable subset of the configuration.
func (c *Config) Settings() Settings {
	return Settings{
		APIKey:                c.APIKey,
		WPSiteURL:             c.WPSiteURL,
		WPUsername:            c.WPUsername,
		WPApplicationPassword: c.WPApplicationPassword,
		Language:              c.Language,
		DefaultSyncMode:       c.DefaultSyncMode,
	}
}

// ApplySettings overwrites the user-settable subset and revalidates.
func (c *Config) ApplySettings(s Settings) error {
	prev := c.Settings()

	c.APIKey = s.APIKey
	c.WPSiteURL = strings.TrimRight(s.WPSiteURL, "/")
	c.WPUsername = s.WPUsername
	c.WPApplicationPassword = s.WPApplicationPassword
	c.Language = s.Language
	c.DefaultSyncMode = s.DefaultSyncMode
	c.setDefaults()

	if err := c.Validate(); err != nil {
		// Roll back so a running service keeps its last good settings.
		c.APIKey = prev.APIKey
		c.WPSiteURL = prev.WPSiteURL
		c.WPUsername = prev.WPUsername
		c.WPApplicationPassword = prev.WPApplicationPassword
		c.Language = prev.Language
		c.DefaultSyncMode = prev.DefaultSyncMode
		return err
	}

	return nil
}
