package backend

import (
	"context"
	"errors"

	"rider.badgertransit.org/internal/models"
)

// Fetcher loads live details for one stop.
type Fetcher interface {
	FetchStopDetails(ctx context.Context, stopID string) (models.StopDetails, error)
}

// Chain tries each fetcher in order and returns the first success.
type Chain []Fetcher

var errNoFetchers = errors.New("no stop detail backends configured")

func (c Chain) FetchStopDetails(ctx context.Context, stopID string) (models.StopDetails, error) {
	if len(c) == 0 {
		return models.StopDetails{}, errNoFetchers
	}

	var errs []error
	for _, f := range c {
		d, err := f.FetchStopDetails(ctx, stopID)
		if err == nil {
			return d, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return models.StopDetails{}, errors.Join(errs...)
}
