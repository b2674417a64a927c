package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rider.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RIDER_CATALOG_GTFS_URL", "https://transitdata.cityofmadison.com/GTFS/mmt_gtfs.zip")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 4000 || cfg.Env != "development" {
		t.Errorf("unexpected port/env %d %q", cfg.Port, cfg.Env)
	}
	if cfg.SmartLaunch.LaunchDelay != 1100*time.Millisecond {
		t.Errorf("expected 1100ms launch delay, got %v", cfg.SmartLaunch.LaunchDelay)
	}
	if cfg.Location.Timeout != 10*time.Second || cfg.Location.MaxCacheAge != time.Minute || cfg.Location.HighAccuracy {
		t.Errorf("unexpected location defaults %+v", cfg.Location)
	}
	if cfg.Suggest.Limit != 3 {
		t.Errorf("expected suggest limit 3, got %d", cfg.Suggest.Limit)
	}
	if cfg.Sessions.TTL != 10*time.Minute {
		t.Errorf("expected 10m session ttl, got %v", cfg.Sessions.TTL)
	}
	if cfg.Catalog.RefreshInterval != 24*time.Hour {
		t.Errorf("expected daily catalog refresh, got %v", cfg.Catalog.RefreshInterval)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := writeConfigFile(t, `{
		"port": 5050,
		"env": "staging",
		"log_format": "json",
		"catalog": {"gtfs_path": "/srv/gtfs/mmt.zip", "refresh_interval": "6h"},
		"backend": {"base_url": "https://badger.example.com"},
		"smartlaunch": {"launch_delay": "2s"},
		"location": {"high_accuracy": true},
		"suggest": {"limit": 5}
	}`)
	t.Setenv("RIDER_PORT", "6060")
	t.Setenv("RIDER_SUGGEST_LIMIT", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 6060 {
		t.Errorf("expected env to override the file port, got %d", cfg.Port)
	}
	if cfg.Suggest.Limit != 4 {
		t.Errorf("expected env to override the file limit, got %d", cfg.Suggest.Limit)
	}
	if cfg.Env != "staging" || cfg.LogFormat != "json" {
		t.Errorf("expected file values, got env=%q format=%q", cfg.Env, cfg.LogFormat)
	}
	if cfg.Catalog.GtfsPath != "/srv/gtfs/mmt.zip" || cfg.Catalog.RefreshInterval != 6*time.Hour {
		t.Errorf("unexpected catalog config %+v", cfg.Catalog)
	}
	if cfg.SmartLaunch.LaunchDelay != 2*time.Second || !cfg.Location.HighAccuracy {
		t.Errorf("unexpected tunables %+v %+v", cfg.SmartLaunch, cfg.Location)
	}
	if cfg.Location.Timeout != 10*time.Second {
		t.Errorf("expected untouched defaults to survive, got %v", cfg.Location.Timeout)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := Load(writeConfigFile(t, `{ this is not valid JSON }`)); err == nil {
			t.Error("expected an error for invalid JSON")
		}
	})

	t.Run("aggregated validation", func(t *testing.T) {
		path := writeConfigFile(t, `{
			"port": 70000,
			"env": "qa",
			"timezone": "Mars/Olympus_Mons",
			"log_level": "loud",
			"suggest": {"limit": 0},
			"backend": {"oba_base_url": "https://oba.example.com"}
		}`)
		_, err := Load(path)
		if err == nil {
			t.Fatal("expected validation to fail")
		}
		for _, want := range []string{"port", "env", "timezone", "log_level", "suggest.limit", "catalog.gtfs_url", "backend.oba_api_key"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("expected the error to mention %s, got:\n%v", want, err)
			}
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port: 4000, Env: "production", DataDir: "data", CacheDir: "cache",
			Timezone: "America/Chicago", LogLevel: "info", LogFormat: "text",
			Catalog:     CatalogConfig{GtfsURL: "https://example.com/gtfs.zip", RefreshInterval: time.Hour},
			Backend:     BackendConfig{PingInterval: time.Minute},
			SmartLaunch: SmartLaunchConfig{LaunchDelay: time.Second},
			Location:    LocationConfig{Timeout: time.Second},
			Suggest:     SuggestConfig{Limit: 3},
			Sessions:    SessionsConfig{TTL: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"gtfs url not http", func(c *Config) { c.Catalog.GtfsURL = "ftp://example.com/gtfs.zip" }, "catalog.gtfs_url"},
		{"url without cache dir", func(c *Config) { c.CacheDir = "" }, "cache_dir"},
		{"zero launch delay", func(c *Config) { c.SmartLaunch.LaunchDelay = 0 }, "smartlaunch.launch_delay"},
		{"negative cache age", func(c *Config) { c.Location.MaxCacheAge = -time.Second }, "location.max_cache_age"},
		{"zero session ttl", func(c *Config) { c.Sessions.TTL = 0 }, "sessions.ttl"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad backend url", func(c *Config) { c.Backend.BaseURL = "badger" }, "backend.base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestReloadUpdatesTunables(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := writeConfigFile(t, `{"catalog": {"gtfs_path": "/srv/gtfs.zip"}, "suggest": {"limit": 3}}`)

	cfg, v, err := load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"catalog": {"gtfs_path": "/srv/gtfs.zip"}, "port": 9999, "suggest": {"limit": 6}, "smartlaunch": {"launch_delay": "500ms"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	cfg.reload(v, logger)

	tun := cfg.GetTunables()
	if tun.Suggest.Limit != 6 || tun.SmartLaunch.LaunchDelay != 500*time.Millisecond {
		t.Errorf("expected reloaded tunables, got %+v", tun)
	}
	if tun.Location.Timeout != 10*time.Second {
		t.Errorf("expected defaults kept on reload, got %v", tun.Location.Timeout)
	}
	if cfg.Port != 4000 {
		t.Errorf("port must not change on reload, got %d", cfg.Port)
	}

	// An invalid edit is ignored.
	if err := os.WriteFile(path, []byte(`{"catalog": {"gtfs_path": "/srv/gtfs.zip"}, "suggest": {"limit": 0}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	cfg.reload(v, logger)
	if got := cfg.GetTunables().Suggest.Limit; got != 6 {
		t.Errorf("expected invalid reload to be ignored, got limit %d", got)
	}
}

func TestTimeLocation(t *testing.T) {
	cfg := &Config{Timezone: "America/Chicago"}
	if got := cfg.TimeLocation().String(); got != "America/Chicago" {
		t.Errorf("unexpected zone %q", got)
	}
	if got := (&Config{}).TimeLocation(); got != time.Local {
		t.Errorf("expected local time for an empty zone, got %v", got)
	}
}
