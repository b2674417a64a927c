package suggest

import (
	"context"
	"log/slog"
	"sync"

	"rider.badgertransit.org/internal/geo"
	"rider.badgertransit.org/internal/location"
	"rider.badgertransit.org/internal/metrics"
	"rider.badgertransit.org/internal/models"
)

// NearbyFinder returns catalog stops that may lie within radiusMeters of center.
type NearbyFinder interface {
	Nearby(center geo.Coordinate, radiusMeters float64) []models.Stop
}

// DetailsFetcher loads live route and direction data for a stop.
type DetailsFetcher interface {
	FetchStopDetails(ctx context.Context, stopID string) (models.StopDetails, error)
}

// Suggestion is a ranked stop with its live details. Routes and Description
// are empty when enrichment failed.
type Suggestion struct {
	models.RankedStop
	Routes      []string `json:"routes"`
	Description string   `json:"description"`
}

// Request selects where to suggest from. A nil Location asks the service's
// location provider, with LocationOptions replacing the service defaults when
// set.
type Request struct {
	Location        *geo.Coordinate
	LocationOptions *location.Options
	Limit           int
}

type Service struct {
	catalog NearbyFinder
	visits  VisitCounter
	details DetailsFetcher
	locator location.Provider
	locOpts location.Options
	limit   int
	logger  *slog.Logger
}

type ServiceOptions struct {
	Catalog         NearbyFinder
	Visits          VisitCounter
	Details         DetailsFetcher
	Locator         location.Provider
	LocationOptions location.Options
	Limit           int
	Logger          *slog.Logger
}

func NewService(opts ServiceOptions) *Service {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{
		catalog: opts.Catalog,
		visits:  opts.Visits,
		details: opts.Details,
		locator: opts.Locator,
		locOpts: opts.LocationOptions,
		limit:   limit,
		logger:  opts.Logger,
	}
}

// Suggest returns up to the requested number of stops near the rider. Any
// upstream failure shows up as fewer or unenriched results, never an error.
func (s *Service) Suggest(ctx context.Context, req Request) []Suggestion {
	var user geo.Coordinate
	if req.Location != nil {
		user = *req.Location
	} else {
		opts := s.locOpts
		if req.LocationOptions != nil {
			opts = *req.LocationOptions
		}
		coord, err := location.Acquire(ctx, s.locator, opts)
		if err != nil {
			s.logger.Warn("suggested stops unavailable without a location", "error", err)
			metrics.SuggestedStopsReturned.Observe(0)
			return []Suggestion{}
		}
		user = coord
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.limit
	}

	var candidates []models.Stop
	if s.catalog != nil && geo.IsValidLatLon(user) {
		candidates = s.catalog.Nearby(user, geo.FeetToMeters(MaxDistanceFeet))
	}

	ranked := Rank(user, candidates, s.visitLookup(), limit)
	out := make([]Suggestion, len(ranked))
	for i, r := range ranked {
		out[i] = Suggestion{RankedStop: r, Routes: []string{}}
	}

	if s.details != nil {
		s.enrich(ctx, out)
	}

	metrics.SuggestedStopsReturned.Observe(float64(len(out)))
	return out
}

// visitSnapshotter is a VisitCounter that can hand out all counts at once.
type visitSnapshotter interface {
	Counts() map[string]uint32
}

// visitLookup returns the counter for one ranking pass. Stores that support
// it are read once instead of once per candidate.
func (s *Service) visitLookup() VisitCounter {
	snap, ok := s.visits.(visitSnapshotter)
	if !ok {
		return s.visits
	}
	counts := snap.Counts()
	return VisitCountFunc(func(stopID string) uint32 { return counts[stopID] })
}

func (s *Service) enrich(ctx context.Context, out []Suggestion) {
	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := s.details.FetchStopDetails(ctx, out[i].ID)
			if err != nil {
				metrics.StopDetailsFetch.WithLabelValues("error").Inc()
				s.logger.Warn("failed to fetch stop details", "stop_id", out[i].ID, "error", err)
				return
			}
			metrics.StopDetailsFetch.WithLabelValues("ok").Inc()
			if d.Routes != nil {
				out[i].Routes = d.Routes
			}
			out[i].Description = d.Description
		}(i)
	}
	wg.Wait()
}
