package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"rider.badgertransit.org/internal/report"
)

// GetLastCachedFile returns the most recently modified regular file in
// cacheDir whose name starts with prefix.
func GetLastCachedFile(cacheDir, prefix string) (string, error) {
	files, err := os.ReadDir(cacheDir)
	if err != nil {
		return "", err
	}

	var lastModTime time.Time
	var lastModFile string

	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), prefix) {
			continue
		}
		info, err := file.Info()
		if err != nil {
			return "", err
		}
		if info.ModTime().After(lastModTime) {
			lastModTime = info.ModTime()
			lastModFile = file.Name()
		}
	}

	if lastModFile == "" {
		return "", fmt.Errorf("no cached files found with prefix %q", prefix)
	}

	return filepath.Join(cacheDir, lastModFile), nil
}

// EnsureDirectory creates dir if it does not exist and fails if the path is
// taken by something other than a directory.
func EnsureDirectory(dir string) error {
	stat, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
				Level:        sentry.LevelError,
				ExtraContext: map[string]interface{}{"dir": dir},
			})
			return err
		}
		return nil
	}

	if !stat.IsDir() {
		err := fmt.Errorf("%s is not a directory", dir)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Level:        sentry.LevelError,
			ExtraContext: map[string]interface{}{"dir": dir},
		})
		return err
	}
	return nil
}
