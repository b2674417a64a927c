package report

import (
	"os"
	"runtime"

	"github.com/getsentry/sentry-go"
)

// ConfigureScope tags every Sentry event with the deployment and host.
func ConfigureScope(env, version, timezone string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("env", env)
		scope.SetTag("app_version", version)
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("service_timezone", timezone)
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": hostname(),
			"goos":     runtime.GOOS,
		})
	})
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}

// SentryReportOptions carries the optional data attached to a reported error.
// Component is set as the "component" tag so that rule storage, catalog
// refreshes and launch failures can be filtered apart.
type SentryReportOptions struct {
	Component    string
	ExtraContext map[string]interface{}
	Tags         map[string]string
	Level        sentry.Level
}

// ReportError sends err to Sentry at error level. Nil errors are ignored.
func ReportError(err error) {
	ReportErrorWithSentryOptions(err, SentryReportOptions{})
}

// ReportErrorWithSentryOptions sends err to Sentry with tags, context and level.
func ReportErrorWithSentryOptions(err error, opts SentryReportOptions) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		if opts.Component != "" {
			scope.SetTag("component", opts.Component)
		}
		for k, v := range opts.Tags {
			scope.SetTag(k, v)
		}
		if opts.ExtraContext != nil {
			scope.SetContext("extra", opts.ExtraContext)
		}
		level := opts.Level
		if level == "" {
			level = sentry.LevelError
		}
		scope.SetLevel(level)
		sentry.CaptureException(err)
	})
}
