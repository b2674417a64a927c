package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/facebookgo/clock"
	"rider.badgertransit.org/internal/backend"
	"rider.badgertransit.org/internal/catalog"
	"rider.badgertransit.org/internal/config"
	"rider.badgertransit.org/internal/location"
	"rider.badgertransit.org/internal/metrics"
	"rider.badgertransit.org/internal/recent"
	"rider.badgertransit.org/internal/smartlaunch"
	"rider.badgertransit.org/internal/storage"
	"rider.badgertransit.org/internal/suggest"
)

// backendTarget is a stop detail backend that is pinged for health.
type backendTarget struct {
	name    string
	baseURL string
	pinger  metrics.Pinger
}

// Application wires the rider services together and serves them over HTTP.
type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Version  string
	Clock    clock.Clock
	Catalog  *catalog.Service
	Recent   *recent.Store
	Rules    *smartlaunch.KVRuleStore
	Editor   *smartlaunch.Editor
	Suggest  *suggest.Service
	Sessions *SessionStore
	// Locator serves the last position a client reported.
	Locator *location.CachedProvider

	backends []backendTarget
	newID    func() string
}

// Options overrides the pieces tests need to control.
type Options struct {
	KV      storage.KV
	Clock   clock.Clock
	Client  *http.Client
	Details suggest.DetailsFetcher
}

// New creates and wires all dependencies. Persisted state lives under
// cfg.DataDir unless opts.KV is set.
func New(cfg *config.Config, logger *slog.Logger, version string, opts Options) (*Application, error) {
	kv := opts.KV
	if kv == nil {
		fileKV, err := storage.NewFileKV(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open data directory %s: %w", cfg.DataDir, err)
		}
		kv = fileKV
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	client := opts.Client
	if client == nil {
		client = NewPooledClient(10 * time.Second)
	}

	app := &Application{
		Config:   cfg,
		Logger:   logger,
		Version:  version,
		Clock:    clk,
		Recent:   recent.NewStore(kv, logger.With("component", "recent")),
		Rules:    smartlaunch.NewKVRuleStore(kv, logger.With("component", "rule_store")),
		Sessions: NewSessionStore(clk),
		Locator:  location.NewCachedProvider(clk, nil),
		newID:    newSessionID,
	}
	app.Editor = smartlaunch.NewEditor(app.Rules, logger.With("component", "editor"))

	catalogClient := opts.Client
	if catalogClient == nil {
		catalogClient = NewPooledClient(2 * time.Minute)
	}
	app.Catalog = catalog.NewService(catalog.NewStore(), catalog.Options{
		URL:      cfg.Catalog.GtfsURL,
		Path:     cfg.Catalog.GtfsPath,
		CacheDir: cfg.CacheDir,
		Client:   catalogClient,
		Logger:   logger.With("component", "catalog"),
		Now:      clk.Now,
	})

	details := opts.Details
	if details == nil {
		details = app.buildBackends(client, logger)
	}

	tun := cfg.GetTunables()
	app.Suggest = suggest.NewService(suggest.ServiceOptions{
		Catalog:         app.Catalog.Store,
		Visits:          app.Recent,
		Details:         details,
		Locator:         app.Locator,
		LocationOptions: locationOptions(tun.Location),
		Limit:           tun.Suggest.Limit,
		Logger:          logger.With("component", "suggest"),
	})

	return app, nil
}

// buildBackends chains the configured detail backends, Badger first. It
// returns nil when none is configured so suggestions skip enrichment.
func (app *Application) buildBackends(client *http.Client, logger *slog.Logger) suggest.DetailsFetcher {
	var chain backend.Chain
	if base := app.Config.Backend.BaseURL; base != "" {
		c := backend.NewBadgerClient(base, client, logger.With("component", "badger_backend"))
		chain = append(chain, c)
		app.backends = append(app.backends, backendTarget{name: "badger", baseURL: c.BaseURL(), pinger: c})
	}
	if base := app.Config.Backend.ObaBaseURL; base != "" {
		c := backend.NewOBAClient(base, app.Config.Backend.ObaAPIKey, client)
		chain = append(chain, c)
		app.backends = append(app.backends, backendTarget{name: "onebusaway", baseURL: c.BaseURL(), pinger: c})
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}

func locationOptions(c config.LocationConfig) location.Options {
	return location.Options{
		HighAccuracy: c.HighAccuracy,
		MaxCacheAge:  c.MaxCacheAge,
		Timeout:      c.Timeout,
	}
}

// Start loads the catalog and launches the background routines. They stop
// when ctx is done.
func (app *Application) Start(ctx context.Context) {
	if err := app.Catalog.Load(ctx); err != nil {
		app.Logger.Error("Initial catalog load failed, suggestions stay empty until a refresh succeeds", "error", err)
	}

	go app.Catalog.RefreshLoop(ctx, app.Config.Catalog.RefreshInterval)
	go app.Sessions.ClearRoutine(ctx, time.Minute, app.Config.Sessions.TTL)
	app.StartMetricsCollection(ctx)
}
