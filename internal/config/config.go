package config

import (
	"sync"
	"time"
)

// Config holds all the configuration settings for the rider service.
type Config struct {
	Port          int    `mapstructure:"port"`
	Env           string `mapstructure:"env"`
	DataDir       string `mapstructure:"data_dir"`
	CacheDir      string `mapstructure:"cache_dir"`
	Timezone      string `mapstructure:"timezone"`
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	SentryDSN     string `mapstructure:"sentry_dsn"`
	AllowedOrigin string `mapstructure:"allowed_origin"`

	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Backend     BackendConfig     `mapstructure:"backend"`
	SmartLaunch SmartLaunchConfig `mapstructure:"smartlaunch"`
	Location    LocationConfig    `mapstructure:"location"`
	Suggest     SuggestConfig     `mapstructure:"suggest"`
	Sessions    SessionsConfig    `mapstructure:"sessions"`

	// Mu guards the sections that can change while running: SmartLaunch,
	// Location and Suggest.
	Mu sync.RWMutex `mapstructure:"-"`
}

type CatalogConfig struct {
	GtfsURL         string        `mapstructure:"gtfs_url"`
	GtfsPath        string        `mapstructure:"gtfs_path"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type BackendConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ObaBaseURL   string        `mapstructure:"oba_base_url"`
	ObaAPIKey    string        `mapstructure:"oba_api_key"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

type SmartLaunchConfig struct {
	LaunchDelay time.Duration `mapstructure:"launch_delay"`
}

type LocationConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxCacheAge  time.Duration `mapstructure:"max_cache_age"`
	HighAccuracy bool          `mapstructure:"high_accuracy"`
}

type SuggestConfig struct {
	Limit int `mapstructure:"limit"`
}

type SessionsConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Tunables are the settings a running service picks up on reload.
type Tunables struct {
	SmartLaunch SmartLaunchConfig
	Location    LocationConfig
	Suggest     SuggestConfig
}

// GetTunables safely returns a copy of the reloadable settings.
func (cfg *Config) GetTunables() Tunables {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	return Tunables{
		SmartLaunch: cfg.SmartLaunch,
		Location:    cfg.Location,
		Suggest:     cfg.Suggest,
	}
}

// UpdateTunables safely replaces the reloadable settings.
func (cfg *Config) UpdateTunables(t Tunables) {
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.SmartLaunch = t.SmartLaunch
	cfg.Location = t.Location
	cfg.Suggest = t.Suggest
}

// TimeLocation resolves Timezone. An empty or unknown zone means local time;
// Validate rejects unknown zones before this is used.
func (cfg *Config) TimeLocation() *time.Location {
	if cfg.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
