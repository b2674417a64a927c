package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rider.badgertransit.org/internal/geo"
)

var (
	ErrUnavailable      = errors.New("location unavailable")
	ErrPermissionDenied = errors.New("location permission denied")
	ErrTimeout          = errors.New("location request timed out")
)

// Options controls a single location request.
type Options struct {
	HighAccuracy bool
	// MaxCacheAge is the oldest cached fix that may be returned.
	MaxCacheAge time.Duration
	// Timeout bounds the whole request. Zero means no timeout.
	Timeout time.Duration
}

// DefaultOptions favors a quick coarse fix over precision.
func DefaultOptions() Options {
	return Options{
		HighAccuracy: false,
		MaxCacheAge:  60 * time.Second,
		Timeout:      10 * time.Second,
	}
}

// Provider yields the rider's current position.
type Provider interface {
	CurrentLocation(ctx context.Context, opts Options) (geo.Coordinate, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, opts Options) (geo.Coordinate, error)

func (f ProviderFunc) CurrentLocation(ctx context.Context, opts Options) (geo.Coordinate, error) {
	return f(ctx, opts)
}

// Acquire asks p for a position, enforcing opts.Timeout and rejecting
// coordinates that are not finite or out of range.
func Acquire(ctx context.Context, p Provider, opts Options) (geo.Coordinate, error) {
	if p == nil {
		return geo.Coordinate{}, ErrUnavailable
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	type result struct {
		coord geo.Coordinate
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := p.CurrentLocation(ctx, opts)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return geo.Coordinate{}, ErrTimeout
			}
			return geo.Coordinate{}, r.err
		}
		if !geo.IsValidLatLon(r.coord) {
			return geo.Coordinate{}, fmt.Errorf("%w: invalid coordinate %v,%v", ErrUnavailable, r.coord.Lat, r.coord.Lon)
		}
		return r.coord, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return geo.Coordinate{}, ErrTimeout
		}
		return geo.Coordinate{}, ctx.Err()
	}
}
