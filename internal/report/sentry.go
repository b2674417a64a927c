package report

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// SetupSentry initializes the Sentry client. An empty DSN leaves reporting
// disabled, which is what local development and tests use.
func SetupSentry(dsn, env, release string) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          release,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	}); err != nil {
		return err
	}
	if dsn != "" {
		sentry.CaptureMessage("Rider service started")
	}
	return nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
