package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/viper"
	"rider.badgertransit.org/internal/report"
	"rider.badgertransit.org/internal/utils"
)

// EnvPrefix namespaces environment overrides: RIDER_CATALOG_GTFS_URL sets
// catalog.gtfs_url.
const EnvPrefix = "RIDER"

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 4000)
	v.SetDefault("env", "development")
	v.SetDefault("data_dir", "data")
	v.SetDefault("cache_dir", "cache")
	v.SetDefault("timezone", "America/Chicago")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("sentry_dsn", "")
	v.SetDefault("allowed_origin", "")

	v.SetDefault("catalog.gtfs_url", "")
	v.SetDefault("catalog.gtfs_path", "")
	v.SetDefault("catalog.refresh_interval", 24*time.Hour)

	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.oba_base_url", "")
	v.SetDefault("backend.oba_api_key", "")
	v.SetDefault("backend.ping_interval", 30*time.Second)

	v.SetDefault("smartlaunch.launch_delay", 1100*time.Millisecond)

	v.SetDefault("location.timeout", 10*time.Second)
	v.SetDefault("location.max_cache_age", 60*time.Second)
	v.SetDefault("location.high_accuracy", false)

	v.SetDefault("suggest.limit", 3)

	v.SetDefault("sessions.ttl", 10*time.Minute)
}

func newViper(filePath string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if filePath != "" {
		v.SetConfigFile(filePath)
		v.SetConfigType("json")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load builds the configuration from defaults, the optional JSON file at
// filePath and RIDER_* environment variables, in increasing precedence.
func Load(filePath string) (*Config, error) {
	cfg, _, err := load(filePath)
	return cfg, err
}

func load(filePath string) (*Config, *viper.Viper, error) {
	v := newViper(filePath)

	if filePath != "" {
		if err := v.ReadInConfig(); err != nil {
			err = fmt.Errorf("failed to read config file %s: %w", filePath, err)
			report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
				Component: "config",
				Tags:      utils.MakeMap("file_path", filePath),
				Level:     sentry.LevelError,
			})
			return nil, nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Validate checks every setting and reports all problems at once.
func (cfg *Config) Validate() error {
	var errs []string

	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port must be 1-65535, got %d", cfg.Port))
	}
	switch cfg.Env {
	case "development", "staging", "production":
	default:
		errs = append(errs, fmt.Sprintf("env must be development, staging or production, got %q", cfg.Env))
	}
	if cfg.DataDir == "" {
		errs = append(errs, "data_dir is required")
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("timezone %q is not a known zone", cfg.Timezone))
		}
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("log_format must be text or json, got %q", cfg.LogFormat))
	}

	if cfg.Catalog.GtfsURL == "" && cfg.Catalog.GtfsPath == "" {
		errs = append(errs, "one of catalog.gtfs_url or catalog.gtfs_path is required")
	}
	if cfg.Catalog.GtfsURL != "" && !isHTTPURL(cfg.Catalog.GtfsURL) {
		errs = append(errs, fmt.Sprintf("catalog.gtfs_url must be an http(s) URL, got %q", cfg.Catalog.GtfsURL))
	}
	if cfg.Catalog.GtfsURL != "" && cfg.CacheDir == "" {
		errs = append(errs, "cache_dir is required when catalog.gtfs_url is set")
	}
	if cfg.Catalog.RefreshInterval <= 0 {
		errs = append(errs, "catalog.refresh_interval must be positive")
	}

	if cfg.Backend.BaseURL != "" && !isHTTPURL(cfg.Backend.BaseURL) {
		errs = append(errs, fmt.Sprintf("backend.base_url must be an http(s) URL, got %q", cfg.Backend.BaseURL))
	}
	if cfg.Backend.ObaBaseURL != "" && !isHTTPURL(cfg.Backend.ObaBaseURL) {
		errs = append(errs, fmt.Sprintf("backend.oba_base_url must be an http(s) URL, got %q", cfg.Backend.ObaBaseURL))
	}
	if cfg.Backend.ObaBaseURL != "" && cfg.Backend.ObaAPIKey == "" {
		errs = append(errs, "backend.oba_api_key is required when backend.oba_base_url is set")
	}
	if cfg.Backend.PingInterval <= 0 {
		errs = append(errs, "backend.ping_interval must be positive")
	}

	errs = append(errs, validateTunables(cfg.SmartLaunch, cfg.Location, cfg.Suggest)...)

	if cfg.Sessions.TTL <= 0 {
		errs = append(errs, "sessions.ttl must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateTunables(sl SmartLaunchConfig, loc LocationConfig, sg SuggestConfig) []string {
	var errs []string
	if sl.LaunchDelay <= 0 {
		errs = append(errs, "smartlaunch.launch_delay must be positive")
	}
	if loc.Timeout <= 0 {
		errs = append(errs, "location.timeout must be positive")
	}
	if loc.MaxCacheAge < 0 {
		errs = append(errs, "location.max_cache_age must not be negative")
	}
	if sg.Limit < 1 {
		errs = append(errs, fmt.Sprintf("suggest.limit must be at least 1, got %d", sg.Limit))
	}
	return errs
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ParseLogLevel maps log_level to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level must be debug, info, warn or error, got %q", level)
}

// LoadAndWatch loads the configuration like Load and, when a file is given,
// keeps the reloadable sections in sync with it. Edits that fail validation
// are logged and ignored.
func LoadAndWatch(filePath string, logger *slog.Logger) (*Config, error) {
	cfg, v, err := load(filePath)
	if err != nil {
		return nil, err
	}
	if filePath == "" {
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg.reload(v, logger)
	})
	v.WatchConfig()
	return cfg, nil
}

func (cfg *Config) reload(v *viper.Viper, logger *slog.Logger) {
	next := &Config{}
	if err := v.Unmarshal(next); err != nil {
		logger.Error("Failed to reload config", "file", v.ConfigFileUsed(), "error", err)
		return
	}
	if errs := validateTunables(next.SmartLaunch, next.Location, next.Suggest); len(errs) > 0 {
		logger.Error("Ignoring invalid config reload", "file", v.ConfigFileUsed(), "problems", strings.Join(errs, "; "))
		return
	}

	cfg.UpdateTunables(next.GetTunables())
	logger.Info("Successfully reloaded configuration", "file", v.ConfigFileUsed())
}
