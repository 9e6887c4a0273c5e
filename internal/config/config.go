// Package config handles configuration loading and validation for daygap.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	LogLevel  string         `yaml:"log_level"`
	Timezone  string         `yaml:"timezone"`
	Cache     CacheConfig    `yaml:"cache"`
	Recompute RecomputeConfig `yaml:"recompute"`
	Fetch     FetchConfig    `yaml:"fetch"`
	Remote    RemoteConfig   `yaml:"remote"`
	Google    GoogleConfig   `yaml:"google"`
	ICSFeeds  []ICSFeed      `yaml:"ics_feeds"`
	Sweep     SweepConfig    `yaml:"sweep"`
	DataDir   string         `yaml:"-"` // set by caller, not from config file
}

// CacheConfig controls the busy-block cache and collection limits.
type CacheConfig struct {
	BusyBlockTTLMinutes int `yaml:"busy_block_ttl_minutes"`
	MaxTasks            int `yaml:"max_tasks"`
	MaxGaps             int `yaml:"max_gaps"`
	MaxBusyBlocks       int `yaml:"max_busy_blocks"`
}

// RecomputeConfig controls how preference-driven recomputes are batched.
type RecomputeConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// FetchConfig sets per-date provider fetch timeouts.
type FetchConfig struct {
	TodayTimeoutSeconds int `yaml:"today_timeout_seconds"`
	OtherTimeoutSeconds int `yaml:"other_timeout_seconds"`
}

// RemoteConfig points at the sync backend. An empty BaseURL disables remote
// sync entirely.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	UserID  string `yaml:"user_id"`
	Token   string `yaml:"token"`
}

// GoogleConfig controls the Google Calendar provider.
type GoogleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ICSFeed names one device calendar feed. URL may be an http(s) address or a
// local file path.
type ICSFeed struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// SweepConfig controls the periodic window cleanup job.
type SweepConfig struct {
	Schedule string `yaml:"schedule"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Cache: CacheConfig{
			BusyBlockTTLMinutes: 60,
			MaxTasks:            2000,
			MaxGaps:             5000,
			MaxBusyBlocks:       1000,
		},
		Recompute: RecomputeConfig{
			DebounceMS: 250,
		},
		Fetch: FetchConfig{
			TodayTimeoutSeconds: 4,
			OtherTimeoutSeconds: 10,
		},
		Sweep: SweepConfig{
			Schedule: "15 0 * * *",
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Cache.BusyBlockTTLMinutes == 0 {
		c.Cache.BusyBlockTTLMinutes = defaults.Cache.BusyBlockTTLMinutes
	}
	if c.Cache.MaxTasks == 0 {
		c.Cache.MaxTasks = defaults.Cache.MaxTasks
	}
	if c.Cache.MaxGaps == 0 {
		c.Cache.MaxGaps = defaults.Cache.MaxGaps
	}
	if c.Cache.MaxBusyBlocks == 0 {
		c.Cache.MaxBusyBlocks = defaults.Cache.MaxBusyBlocks
	}
	if c.Recompute.DebounceMS == 0 {
		c.Recompute.DebounceMS = defaults.Recompute.DebounceMS
	}
	if c.Fetch.TodayTimeoutSeconds == 0 {
		c.Fetch.TodayTimeoutSeconds = defaults.Fetch.TodayTimeoutSeconds
	}
	if c.Fetch.OtherTimeoutSeconds == 0 {
		c.Fetch.OtherTimeoutSeconds = defaults.Fetch.OtherTimeoutSeconds
	}
	if c.Sweep.Schedule == "" {
		c.Sweep.Schedule = defaults.Sweep.Schedule
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Cache.BusyBlockTTLMinutes < 0 {
		return fmt.Errorf("cache.busy_block_ttl_minutes cannot be negative")
	}

	if c.Recompute.DebounceMS < 0 {
		return fmt.Errorf("recompute.debounce_ms cannot be negative")
	}

	if c.Remote.BaseURL != "" && c.Remote.UserID == "" {
		return fmt.Errorf("remote.user_id is required when remote.base_url is set")
	}

	seen := make(map[string]bool, len(c.ICSFeeds))
	for _, feed := range c.ICSFeeds {
		if feed.ID == "" || feed.URL == "" {
			return fmt.Errorf("ics feed entries require both id and url")
		}
		if seen[feed.ID] {
			return fmt.Errorf("duplicate ics feed id %q", feed.ID)
		}
		seen[feed.ID] = true
	}

	return nil
}

// Location resolves the configured timezone, falling back to the system
// local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// BusyBlockTTL returns the cache TTL as a duration.
func (c *Config) BusyBlockTTL() time.Duration {
	return time.Duration(c.Cache.BusyBlockTTLMinutes) * time.Minute
}

// Debounce returns the recompute debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Recompute.DebounceMS) * time.Millisecond
}
