package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jamespfennell/gtfs"
	"rider.badgertransit.org/internal/metrics"
	"rider.badgertransit.org/internal/models"
	"rider.badgertransit.org/internal/report"
	"rider.badgertransit.org/internal/utils"
)

// maxBundleSize guards against runaway downloads.
const maxBundleSize = 200 << 20

type Options struct {
	// URL is the GTFS static bundle to download. Ignored when Path is set.
	URL string
	// Path is a local GTFS zip used instead of downloading.
	Path     string
	CacheDir string
	Client   *http.Client
	Logger   *slog.Logger
	Now      func() time.Time
}

// Service keeps the catalog Store filled from a GTFS bundle.
type Service struct {
	Store    *Store
	url      string
	path     string
	cacheDir string
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store *Store, opts Options) *Service {
	s := &Service{
		Store:    store,
		url:      opts.URL,
		path:     opts.Path,
		cacheDir: opts.CacheDir,
		client:   opts.Client,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 30 * time.Second}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) cachePrefix() string {
	return "catalog_" + utils.HashURL(s.url)
}

// Load fills the store once. A local path is read directly. Otherwise the
// bundle is downloaded and cached; when the download or parse fails the most
// recent cached bundle for the same URL is used instead.
func (s *Service) Load(ctx context.Context) error {
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("failed to read GTFS bundle %s: %w", s.path, err)
		}
		return s.apply(data, s.path)
	}
	if s.url == "" {
		return errors.New("no catalog source configured")
	}

	data, err := s.download(ctx)
	if err == nil {
		if err = s.apply(data, s.url); err == nil {
			s.writeCache(data)
			return nil
		}
	}

	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Component:    "catalog",
		ExtraContext: map[string]interface{}{"gtfs_url": s.url},
		Level:        sentry.LevelError,
	})
	s.logger.Error("failed to load catalog from source, trying cache", "gtfs_url", s.url, "error", err)

	cached, cerr := utils.GetLastCachedFile(s.cacheDir, s.cachePrefix())
	if cerr != nil {
		return errors.Join(err, cerr)
	}
	data, cerr = os.ReadFile(cached)
	if cerr != nil {
		return errors.Join(err, cerr)
	}
	if cerr = s.apply(data, cached); cerr != nil {
		return errors.Join(err, cerr)
	}
	s.logger.Warn("catalog loaded from cache", "cache_file", cached, "stops", s.Store.Len())
	return nil
}

func (s *Service) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", s.url, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download GTFS bundle from %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status %d when downloading GTFS bundle from %s", resp.StatusCode, s.url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read GTFS bundle from %s: %w", s.url, err)
	}
	return data, nil
}

func (s *Service) apply(data []byte, source string) error {
	stops, static, err := ParseBundle(data)
	if err != nil {
		return err
	}
	s.publish(stops, static, source)
	return nil
}

func (s *Service) publish(stops []models.Stop, static *gtfs.Static, source string) {
	now := s.now()
	s.Store.Set(stops, source, now)

	cells := metrics.ReportCatalogCoverage(stops)
	days, err := metrics.CheckCatalogExpiration(static, now)
	if err != nil {
		s.logger.Warn("could not determine catalog expiration", "source", source, "error", err)
	}
	s.logger.Info("catalog loaded", "source", source, "stops", len(stops), "coverage_cells", cells, "days_until_expiration", days)
}

func (s *Service) writeCache(data []byte) {
	if s.cacheDir == "" {
		return
	}
	if err := utils.EnsureDirectory(s.cacheDir); err != nil {
		s.logger.Warn("catalog cache directory unavailable", "cache_dir", s.cacheDir, "error", err)
		return
	}

	target := filepath.Join(s.cacheDir, s.cachePrefix()+".zip")
	tmp := target + ".tmp"
	err := os.WriteFile(tmp, data, 0o644)
	if err == nil {
		err = os.Rename(tmp, target)
	}
	if err != nil {
		os.Remove(tmp)
		s.logger.Warn("failed to cache GTFS bundle", "cache_file", target, "error", err)
	}
}

// RefreshLoop reloads the catalog every interval until ctx is done. Failed
// refreshes keep the previous snapshot.
func (s *Service) RefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping catalog refresh routine")
			return
		case <-ticker.C:
			s.logger.Info("refreshing catalog")
			if err := s.Load(ctx); err != nil {
				s.logger.Error("catalog refresh failed", "error", err)
			}
		}
	}
}
