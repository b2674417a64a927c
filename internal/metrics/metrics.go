package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SmartLaunch evaluation outcomes.
const (
	OutcomeNoRules       = "no_rules"
	OutcomeLocationError = "location_error"
	OutcomeNoMatch       = "no_match"
	OutcomeMatched       = "matched"
	OutcomeAborted       = "aborted"
)

// SmartLaunch launch results.
const (
	LaunchNavigated = "navigated"
	LaunchCanceled  = "canceled"
)

var (
	SmartLaunchEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartlaunch_evaluations_total",
		Help: "SmartLaunch evaluation cycles by outcome",
	}, []string{"outcome"})

	SmartLaunchLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartlaunch_launches_total",
		Help: "Pending SmartLaunch navigations by result (navigated or canceled)",
	}, []string{"result"})
)

var (
	SuggestedStopsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "suggested_stops_returned",
		Help:    "Number of stops returned per suggestion request",
		Buckets: []float64{0, 1, 2, 3, 5, 10},
	})

	StopDetailsFetch = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stop_details_fetch_total",
		Help: "Stop detail enrichment fetches by status (ok, error)",
	}, []string{"status"})
)

var (
	CatalogStopsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_stops_loaded",
		Help: "Number of stops in the active catalog",
	})

	CatalogCoverageCells = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_coverage_cells",
		Help: "Number of distinct S2 cells (about 600 m) containing at least one catalog stop",
	})

	CatalogDaysUntilExpiration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_days_until_expiration",
		Help: "Days until the latest service end date in the loaded GTFS bundle",
	})
)

var (
	// BackendStatus reports backend reachability (0 = down, 1 = up).
	BackendStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backend_status",
		Help: "Status of an upstream backend (0 = not working, 1 = working)",
	}, []string{"backend", "base_url"})

	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outgoing_request_duration_seconds",
		Help:    "Latency of outgoing HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})
)
