package location

import (
	"context"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"rider.badgertransit.org/internal/geo"
)

// StaticProvider always reports the same position.
type StaticProvider struct {
	Coord geo.Coordinate
}

func (s StaticProvider) CurrentLocation(context.Context, Options) (geo.Coordinate, error) {
	return s.Coord, nil
}

// CachedProvider remembers the last reported fix and serves it while it is
// younger than the request's MaxCacheAge. Fixes are pushed with Report,
// typically from the client's own location updates.
type CachedProvider struct {
	mu       sync.RWMutex
	clock    clock.Clock
	coord    geo.Coordinate
	at       time.Time
	hasFix   bool
	fallback Provider
}

// NewCachedProvider returns a provider that falls back to fallback (which may
// be nil) when the cached fix is missing or too old.
func NewCachedProvider(c clock.Clock, fallback Provider) *CachedProvider {
	if c == nil {
		c = clock.New()
	}
	return &CachedProvider{clock: c, fallback: fallback}
}

// Report records a new fix.
func (p *CachedProvider) Report(coord geo.Coordinate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coord = coord
	p.at = p.clock.Now()
	p.hasFix = true
}

func (p *CachedProvider) CurrentLocation(ctx context.Context, opts Options) (geo.Coordinate, error) {
	p.mu.RLock()
	coord, at, ok := p.coord, p.at, p.hasFix
	p.mu.RUnlock()

	if ok && p.clock.Now().Sub(at) <= opts.MaxCacheAge {
		return coord, nil
	}
	if p.fallback == nil {
		return geo.Coordinate{}, ErrUnavailable
	}

	fresh, err := p.fallback.CurrentLocation(ctx, opts)
	if err != nil {
		return geo.Coordinate{}, err
	}
	p.Report(fresh)
	return fresh, nil
}
