package app

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"rider.badgertransit.org/internal/metrics"
)

func TestURLLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://badger.example/api/predictions/0626?x=1", "https://badger.example/api/predictions/:id"},
		{"https://api.example/api/where/stop/1_0626.json?key=secret", "https://api.example/api/where/stop/:id"},
		{"https://api.example/api/where/current-time.json", "https://api.example/api/where/current-time.json"},
		{"http://localhost:8080/", "http://localhost:8080/"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if got := urlLabel(u); got != tt.want {
				t.Errorf("urlLabel(%s) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func sampleCount(t *testing.T, labels ...string) uint64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.OutgoingLatency.WithLabelValues(labels...).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to read histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestPooledClientRecordsLatency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing/42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewPooledClient(5 * time.Second)

	okBefore := sampleCount(t, server.URL+"/api/bus-stops/:id", http.MethodGet, "200")
	missingBefore := sampleCount(t, server.URL+"/missing/:id", http.MethodGet, "404")

	for _, path := range []string{"/api/bus-stops/0626", "/api/bus-stops/10070", "/missing/42"} {
		resp, err := client.Get(server.URL + path)
		if err != nil {
			t.Fatalf("request to %s failed: %v", path, err)
		}
		resp.Body.Close()
	}

	if got := sampleCount(t, server.URL+"/api/bus-stops/:id", http.MethodGet, "200") - okBefore; got != 2 {
		t.Errorf("expected 2 samples sharing one series, got %d", got)
	}
	if got := sampleCount(t, server.URL+"/missing/:id", http.MethodGet, "404") - missingBefore; got != 1 {
		t.Errorf("expected 1 sample for the 404, got %d", got)
	}
}

func TestPooledClientRecordsTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL + "/gone"
	server.Close()

	before := sampleCount(t, target, http.MethodGet, "error")
	if _, err := NewPooledClient(time.Second).Get(target); err == nil {
		t.Fatal("expected a connection error")
	}
	if got := sampleCount(t, target, http.MethodGet, "error") - before; got != 1 {
		t.Errorf("expected the failure to be recorded, got %d", got)
	}
}
