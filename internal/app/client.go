package app

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"rider.badgertransit.org/internal/metrics"
)

// latencyTrackingRoundTripper records the duration of every outgoing request
// in metrics.OutgoingLatency.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	metrics.OutgoingLatency.WithLabelValues(
		urlLabel(req.URL),
		req.Method,
		status,
	).Observe(duration)

	return resp, err
}

// urlLabel drops the query and replaces id-like path segments so that stop
// lookups share one series, e.g. /api/predictions/0626 -> /api/predictions/:id.
func urlLabel(u *url.URL) string {
	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if strings.IndexFunc(seg, unicode.IsDigit) >= 0 {
			segments[i] = ":id"
		}
	}
	return u.Scheme + "://" + u.Host + strings.Join(segments, "/")
}

// NewPooledClient returns an instrumented HTTP client shared by the catalog
// download and the stop detail backends. Connections are kept alive between
// suggestion requests; timeout bounds each whole request.
func NewPooledClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &http.Client{
		Transport: &latencyTrackingRoundTripper{next: transport},
		Timeout:   timeout,
	}
}
