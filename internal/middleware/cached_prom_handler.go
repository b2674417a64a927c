package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// CachedPromHandler serves a metrics exposition that is regathered every ttl
// instead of on each scrape.
type CachedPromHandler struct {
	mu      sync.RWMutex
	cache   []byte
	updated time.Time
	ttl     time.Duration
	h       http.Handler
	logger  *slog.Logger
}

// NewCachedPromHandler warms the cache once and keeps refreshing it until ctx
// is done.
func NewCachedPromHandler(ctx context.Context, gatherer prometheus.Gatherer, ttl time.Duration, logger *slog.Logger) *CachedPromHandler {
	c := &CachedPromHandler{
		ttl:    ttl,
		h:      promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		logger: logger,
	}
	c.refresh(ctx)

	go c.refreshLoop(ctx)
	return c
}

func (c *CachedPromHandler) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *CachedPromHandler) refresh(ctx context.Context) {
	// Plain text keeps the cached body valid for every scraper.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/metrics", nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	rec := &bufferedResponse{header: http.Header{}, status: http.StatusOK}
	c.h.ServeHTTP(rec, req)
	if rec.status != http.StatusOK {
		if c.logger != nil {
			c.logger.Warn("metrics gathering failed, keeping previous exposition", "status", rec.status)
		}
		return
	}

	c.mu.Lock()
	c.cache = rec.buf.Bytes()
	c.updated = time.Now()
	c.mu.Unlock()
}

// LastUpdated reports when the cached exposition was last rebuilt.
func (c *CachedPromHandler) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updated
}

func (c *CachedPromHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	cache := c.cache
	c.mu.RUnlock()

	if len(cache) == 0 {
		c.h.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	_, _ = w.Write(cache)
}

// bufferedResponse captures a handler's output in memory.
type bufferedResponse struct {
	header http.Header
	buf    bytes.Buffer
	status int
}

func (b *bufferedResponse) Header() http.Header         { return b.header }
func (b *bufferedResponse) Write(p []byte) (int, error) { return b.buf.Write(p) }
func (b *bufferedResponse) WriteHeader(status int)      { b.status = status }
