// Package config loads typed runtime configuration for the pipeline.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix        = "SPOTIFY_HISTORY"
	defaultPageLimit = 50
	defaultLogLevel  = "info"
	defaultTopCount  = 10
)

// AppConfig captures runtime configuration for the pipeline commands. Each
// component receives only the fields it needs, passed explicitly at
// construction.
type AppConfig struct {
	DatabaseURL         string
	SpotifyClientID     string
	SpotifyClientSecret string
	TokenPath           string // empty means the default cache location
	PageLimit           int
	TopCount            int
	LogLevel            string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("spotify.page_limit", defaultPageLimit)
	configViper.SetDefault("report.top_count", defaultTopCount)
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		DatabaseURL:         configViper.GetString("database.url"),
		SpotifyClientID:     configViper.GetString("spotify.client_id"),
		SpotifyClientSecret: configViper.GetString("spotify.client_secret"),
		TokenPath:           configViper.GetString("spotify.token_path"),
		PageLimit:           configViper.GetInt("spotify.page_limit"),
		TopCount:            configViper.GetInt("report.top_count"),
		LogLevel:            configViper.GetString("log.level"),
	}

	if cfg.PageLimit < 1 || cfg.PageLimit > defaultPageLimit {
		return AppConfig{}, fmt.Errorf("spotify.page_limit must be between 1 and %d", defaultPageLimit)
	}

	return cfg, nil
}

// RequireDatabase validates the fields needed by commands that touch the store.
func (c AppConfig) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("database.url is required")
	}
	return nil
}

// RequireSpotify validates the fields needed by commands that call the API.
func (c AppConfig) RequireSpotify() error {
	if strings.TrimSpace(c.SpotifyClientID) == "" {
		return fmt.Errorf("spotify.client_id is required")
	}
	if strings.TrimSpace(c.SpotifyClientSecret) == "" {
		return fmt.Errorf("spotify.client_secret is required")
	}
	return nil
}
