// Package config loads optional overrides for the crawler defaults from
// ~/.blogscout/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/blogscout"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the structure of ~/.blogscout/config.yaml. Every
// field is optional; absent fields leave the built-in default alone.
type FileConfig struct {
	Render struct {
		Endpoint string `yaml:"endpoint"`
		Token    string `yaml:"token"`
	} `yaml:"render"`

	Cache struct {
		Path string `yaml:"path"`
		TTL  string `yaml:"ttl"`
	} `yaml:"cache"`

	Fetch struct {
		Concurrency int    `yaml:"concurrency"`
		MaxRetries  *int   `yaml:"max_retries"`
		Timeout     string `yaml:"timeout"`
		UserAgent   string `yaml:"user_agent"`
	} `yaml:"fetch"`

	Discovery struct {
		MaxPages           int `yaml:"max_pages"`
		MaxSitemapChildren int `yaml:"max_sitemap_children"`
	} `yaml:"discovery"`

	Validation struct {
		MinWordCount int `yaml:"min_word_count"`
	} `yaml:"validation"`
}

// LoadConfigFile loads configuration from ~/.blogscout/config.yaml. Returns
// nil if the file doesn't exist (not an error). Returns error if the file
// exists but cannot be parsed.
func LoadConfigFile() (*FileConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".blogscout", "config.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateDuration("cache.ttl", cfg.Cache.TTL); err != nil {
		return nil, err
	}
	if err := validateDuration("fetch.timeout", cfg.Fetch.Timeout); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateDuration validates that a non-empty duration field parses as a
// valid duration.
func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("invalid %s: must be a valid duration (e.g., 1h, 30m)", field)
	}
	return nil
}

// Apply overlays the file's values onto cfg. MaxRetries is a pointer so an
// explicit zero can disable retries.
func (f *FileConfig) Apply(cfg *blogscout.Config) {
	if f == nil {
		return
	}

	if f.Render.Endpoint != "" {
		cfg.RenderEndpoint = f.Render.Endpoint
	}
	if f.Render.Token != "" {
		cfg.RenderToken = f.Render.Token
	}
	if f.Cache.Path != "" {
		cfg.CachePath = f.Cache.Path
	}
	if d, err := time.ParseDuration(f.Cache.TTL); err == nil && d > 0 {
		cfg.CacheTTL = d
	}
	if f.Fetch.Concurrency > 0 {
		cfg.FetchConcurrency = f.Fetch.Concurrency
	}
	if f.Fetch.MaxRetries != nil {
		cfg.MaxRetries = *f.Fetch.MaxRetries
	}
	if d, err := time.ParseDuration(f.Fetch.Timeout); err == nil && d > 0 {
		cfg.HTTPTimeout = d
	}
	if f.Fetch.UserAgent != "" {
		cfg.UserAgent = f.Fetch.UserAgent
	}
	if f.Discovery.MaxPages > 0 {
		cfg.MaxPages = f.Discovery.MaxPages
	}
	if f.Discovery.MaxSitemapChildren > 0 {
		cfg.MaxSitemapChildren = f.Discovery.MaxSitemapChildren
	}
	if f.Validation.MinWordCount > 0 {
		cfg.MinWordCount = f.Validation.MinWordCount
	}
}
