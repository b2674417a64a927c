package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"rider.badgertransit.org/internal/config"
	"rider.badgertransit.org/internal/geo"
	"rider.badgertransit.org/internal/models"
	"rider.badgertransit.org/internal/smartlaunch"
	"rider.badgertransit.org/internal/storage"
)

// testStops sit around the Capitol Square in Madison.
var testStops = []models.Stop{
	{ID: "0626", Name: "University at N Basset", Lat: 43.0731, Lon: -89.4012},
	{ID: "10070", Name: "W Johnson at East Campus", Lat: 43.0750, Lon: -89.3990},
	{ID: "1505", Name: "Capitol Square Station", Lat: 43.0748, Lon: -89.3842},
}

func homeDraft() smartlaunch.Draft {
	return smartlaunch.Draft{
		Name:         "Home",
		StopID:       "0626",
		Center:       geo.Coordinate{Lat: 43.0731, Lon: -89.4012},
		RadiusMeters: 150,
	}
}

type fakeDetails struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeDetails) FetchStopDetails(_ context.Context, stopID string) (models.StopDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, stopID)
	return models.StopDetails{Routes: []string{"80"}, Description: "Westbound"}, nil
}

type testApplication struct {
	*Application
	clock   *clock.Mock
	kv      *storage.MemoryKV
	details *fakeDetails
	handler http.Handler
}

func newTestConfig() *config.Config {
	return &config.Config{
		Port:     4000,
		Env:      "testing",
		DataDir:  "unused",
		Timezone: "UTC",
		Catalog:  config.CatalogConfig{GtfsPath: "unused.zip", RefreshInterval: time.Hour},
		Backend:  config.BackendConfig{PingInterval: time.Minute},
		SmartLaunch: config.SmartLaunchConfig{
			LaunchDelay: 1100 * time.Millisecond,
		},
		Location: config.LocationConfig{Timeout: time.Second, MaxCacheAge: time.Minute},
		Suggest:  config.SuggestConfig{Limit: 3},
		Sessions: config.SessionsConfig{TTL: 10 * time.Minute},
	}
}

func newTestApplication(t *testing.T) *testApplication {
	t.Helper()

	mock := clock.NewMock()
	kv := storage.NewMemoryKV()
	details := &fakeDetails{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := New(newTestConfig(), logger, "test-version", Options{
		KV:      kv,
		Clock:   mock,
		Details: details,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	app.Catalog.Store.Set(testStops, "test", mock.Now())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { app.Sessions.clear(0) })

	return &testApplication{
		Application: app,
		clock:       mock,
		kv:          kv,
		details:     details,
		handler:     app.Routes(ctx),
	}
}

// do sends a request through the full middleware chain.
func (ta *testApplication) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, req)
	return rr
}
