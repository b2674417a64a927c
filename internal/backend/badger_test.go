package backend

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"rider.badgertransit.org/internal/models"
)

func newBadgerServer(t *testing.T, predictionsStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/bus-stops/0626", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"stop_id":"0626","stop_name":"University at N Basset","stop_desc":"Near side of Basset, westbound toward campus"}`))
	})
	mux.HandleFunc("/api/predictions/0626", func(w http.ResponseWriter, r *http.Request) {
		if predictionsStatus != http.StatusOK {
			w.WriteHeader(predictionsStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"busyness":{"current":{"by_route":{"80":{"level":"high"},"28":1,"A":{}}}}}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestBadgerFetchStopDetails(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("stop and predictions", func(t *testing.T) {
		ts := newBadgerServer(t, http.StatusOK)
		c := NewBadgerClient(ts.URL+"/", ts.Client(), logger)

		d, err := c.FetchStopDetails(context.Background(), "0626")
		if err != nil {
			t.Fatalf("FetchStopDetails failed: %v", err)
		}
		if want := []string{"28", "80", "A"}; !reflect.DeepEqual(d.Routes, want) {
			t.Errorf("expected sorted routes %v, got %v", want, d.Routes)
		}
		if d.Description != "Westbound" {
			t.Errorf("unexpected description %q", d.Description)
		}
	})

	t.Run("predictions unavailable", func(t *testing.T) {
		ts := newBadgerServer(t, http.StatusBadGateway)
		c := NewBadgerClient(ts.URL, ts.Client(), logger)

		d, err := c.FetchStopDetails(context.Background(), "0626")
		if err != nil {
			t.Fatalf("expected description without routes, got error %v", err)
		}
		if len(d.Routes) != 0 || d.Description != "Westbound" {
			t.Errorf("unexpected details %+v", d)
		}
	})

	t.Run("unknown stop", func(t *testing.T) {
		ts := newBadgerServer(t, http.StatusOK)
		c := NewBadgerClient(ts.URL, ts.Client(), logger)

		if _, err := c.FetchStopDetails(context.Background(), "9999"); err == nil {
			t.Error("expected an error for a missing stop")
		}
	})
}

func TestBadgerPing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"not found still answers", http.StatusNotFound, false},
		{"server error", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			err := NewBadgerClient(ts.URL, nil, logger).Ping(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Ping() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubFetcher struct {
	details string
	err     error
	calls   int
}

func (s *stubFetcher) FetchStopDetails(context.Context, string) (models.StopDetails, error) {
	s.calls++
	return models.StopDetails{Description: s.details}, s.err
}

func TestChain(t *testing.T) {
	failing := &stubFetcher{err: io.ErrUnexpectedEOF}
	working := &stubFetcher{details: "Northbound"}
	unused := &stubFetcher{details: "Southbound"}

	d, err := Chain{failing, working, unused}.FetchStopDetails(context.Background(), "1")
	if err != nil || d.Description != "Northbound" {
		t.Fatalf("expected the second fetcher's result, got %+v %v", d, err)
	}
	if unused.calls != 0 {
		t.Error("fetchers after a success must not be called")
	}

	if _, err := (Chain{failing}).FetchStopDetails(context.Background(), "1"); err == nil {
		t.Error("expected the error when every fetcher fails")
	}
	if _, err := (Chain{}).FetchStopDetails(context.Background(), "1"); err == nil {
		t.Error("expected an error for an empty chain")
	}
}
