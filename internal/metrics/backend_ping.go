package metrics

import (
	"context"
	"fmt"

	"rider.badgertransit.org/internal/report"
	"rider.badgertransit.org/internal/utils"
)

// Pinger is implemented by backend clients that can check their own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendPing checks one backend and records its status. It returns whether
// the backend answered.
func BackendPing(ctx context.Context, name, baseURL string, p Pinger) bool {
	if err := p.Ping(ctx); err != nil {
		report.ReportErrorWithSentryOptions(fmt.Errorf("failed to ping %s backend %s: %w", name, baseURL, err), report.SentryReportOptions{
			Component:    "backend_ping",
			Tags:         utils.MakeMap("backend", name),
			ExtraContext: map[string]interface{}{"base_url": baseURL},
		})
		BackendStatus.WithLabelValues(name, baseURL).Set(0)
		return false
	}

	BackendStatus.WithLabelValues(name, baseURL).Set(1)
	return true
}
