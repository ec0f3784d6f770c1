package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TomlAuthor represents author configuration from TOML
type TomlAuthor struct {
	ID     string  `toml:"id"`
	Weight float64 `toml:"weight,omitempty,default=1.0"`
}

// TomlScoring represents a scoring layer of the for-you feed
type TomlScoring struct {
	Type    string       `toml:"type"`
	Weight  float64      `toml:"weight"`
	Authors []TomlAuthor `toml:"authors,omitempty"`
}

// TomlFeeds holds feed ranking configuration
type TomlFeeds struct {
	// Scoring layers for the for-you view, empty means newest first
	ForYou []TomlScoring `toml:"for_you"`
	// Record impressions for posts served in the for-you view
	TrackImpressions bool `toml:"track_impressions"`
}

// TomlModeration configures checks applied to new posts
type TomlModeration struct {
	RejectSpam          bool     `toml:"reject_spam"`
	DetectLanguages     bool     `toml:"detect_languages"`
	Languages           []string `toml:"languages,omitempty"`
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
}

// TomlAds configures the advertisement endpoint
type TomlAds struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

// TomlEvents configures the notification event processor
type TomlEvents struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// TomlTidy configures database housekeeping
type TomlTidy struct {
	IntervalMinutes   int `toml:"interval_minutes"`
	NotificationsDays int `toml:"notifications_days"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Feeds      TomlFeeds      `toml:"feeds"`
	Moderation TomlModeration `toml:"moderation"`
	Ads        TomlAds        `toml:"ads"`
	Events     TomlEvents     `toml:"events"`
	Tidy       TomlTidy       `toml:"tidy"`
}

// Default returns the configuration used when no file is given
func Default() *TomlConfig {
	return &TomlConfig{
		Feeds: TomlFeeds{
			TrackImpressions: true,
		},
		Moderation: TomlModeration{
			RejectSpam:          true,
			ConfidenceThreshold: 0.6,
		},
		Ads: TomlAds{
			DefaultLimit: 5,
			MaxLimit:     20,
		},
		Events: TomlEvents{
			Workers:   4,
			QueueSize: 1000,
		},
		Tidy: TomlTidy{
			IntervalMinutes:   60,
			NotificationsDays: 90,
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults.
// A missing file is not an error.
func LoadConfig(path string) (*TomlConfig, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return config, nil
}

var scoringTypes = map[string]bool{
	"time_decay":      true,
	"engagement":      true,
	"followed_author": true,
	"author":          true,
	"none":            true,
}

// Validate checks values that would otherwise fail at query time
func (c *TomlConfig) Validate() error {
	for _, layer := range c.Feeds.ForYou {
		if !scoringTypes[layer.Type] {
			return fmt.Errorf("unknown scoring type %q", layer.Type)
		}
		if layer.Weight < 0 {
			return fmt.Errorf("scoring %q has negative weight", layer.Type)
		}
	}
	if c.Moderation.ConfidenceThreshold < 0 || c.Moderation.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1")
	}
	if c.Ads.DefaultLimit < 1 || c.Ads.MaxLimit < c.Ads.DefaultLimit {
		return fmt.Errorf("ads limits must satisfy 1 <= default_limit <= max_limit")
	}
	if c.Events.Workers < 1 || c.Events.QueueSize < 1 {
		return fmt.Errorf("events workers and queue_size must be positive")
	}
	return nil
}
