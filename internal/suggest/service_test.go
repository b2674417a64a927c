package suggest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"rider.badgertransit.org/internal/geo"
	"rider.badgertransit.org/internal/location"
	"rider.badgertransit.org/internal/models"
	"rider.badgertransit.org/internal/recent"
	"rider.badgertransit.org/internal/storage"
)

type sliceCatalog []models.Stop

func (c sliceCatalog) Nearby(geo.Coordinate, float64) []models.Stop { return c }

type fakeDetails struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeDetails) FetchStopDetails(_ context.Context, stopID string) (models.StopDetails, error) {
	f.mu.Lock()
	f.calls = append(f.calls, stopID)
	f.mu.Unlock()
	if f.fail[stopID] {
		return models.StopDetails{}, errors.New("backend unavailable")
	}
	return models.StopDetails{Routes: []string{"80", "A"}, Description: "Eastbound"}, nil
}

func newTestService(details DetailsFetcher, locator location.Provider) *Service {
	return NewService(ServiceOptions{
		Catalog:         sliceCatalog{stopAtFeet("a", 100), stopAtFeet("b", 150), stopAtFeet("c", 2500)},
		Visits:          counts(map[string]uint32{"b": 3}),
		Details:         details,
		Locator:         locator,
		LocationOptions: location.DefaultOptions(),
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestSuggestWithExplicitLocation(t *testing.T) {
	details := &fakeDetails{fail: map[string]bool{"a": true}}
	svc := newTestService(details, nil)

	user := origin
	got := svc.Suggest(context.Background(), Request{Location: &user})
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("unexpected order %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Description != "Eastbound" || len(got[0].Routes) != 2 {
		t.Errorf("expected b to be enriched, got %+v", got[0])
	}
	if got[1].Description != "" || got[1].Routes == nil || len(got[1].Routes) != 0 {
		t.Errorf("expected a failed enrichment to leave empty details, got %+v", got[1])
	}
	if len(details.calls) != 2 {
		t.Errorf("expected one fetch per suggestion, got %v", details.calls)
	}
}

func TestSuggestUsesLocator(t *testing.T) {
	svc := newTestService(nil, location.StaticProvider{Coord: origin})
	got := svc.Suggest(context.Background(), Request{Limit: 1})
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("expected only b, got %+v", got)
	}
}

func TestSuggestLocationFailureIsEmpty(t *testing.T) {
	denied := location.ProviderFunc(func(context.Context, location.Options) (geo.Coordinate, error) {
		return geo.Coordinate{}, location.ErrPermissionDenied
	})
	for name, locator := range map[string]location.Provider{"denied": denied, "unavailable": nil} {
		t.Run(name, func(t *testing.T) {
			got := newTestService(nil, locator).Suggest(context.Background(), Request{})
			if got == nil || len(got) != 0 {
				t.Errorf("expected an empty non-nil list, got %v", got)
			}
		})
	}
}

type snapshotCounter struct {
	counts    map[string]uint32
	snapshots int
	lookups   int
}

func (c *snapshotCounter) Counts() map[string]uint32 {
	c.snapshots++
	return c.counts
}

func (c *snapshotCounter) VisitCount(stopID string) uint32 {
	c.lookups++
	return c.counts[stopID]
}

func TestSuggestReadsVisitCountsOnce(t *testing.T) {
	visits := &snapshotCounter{counts: map[string]uint32{"b": 3}}
	svc := NewService(ServiceOptions{
		Catalog: sliceCatalog{stopAtFeet("a", 100), stopAtFeet("b", 150), stopAtFeet("c", 400)},
		Visits:  visits,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	user := origin
	got := svc.Suggest(context.Background(), Request{Location: &user})
	if len(got) != 3 || got[0].ID != "b" || got[0].VisitCount != 3 {
		t.Fatalf("unexpected suggestions %+v", got)
	}
	if visits.snapshots != 1 || visits.lookups != 0 {
		t.Errorf("expected one snapshot and no per-stop lookups, got %d snapshots %d lookups", visits.snapshots, visits.lookups)
	}
}

func TestSuggestWithRecentStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := recent.NewStore(storage.NewMemoryKV(), logger)
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		if _, err := store.RecordVisit("c", "", now); err != nil {
			t.Fatal(err)
		}
	}
	store.RecordVisit("a", "", now)

	svc := NewService(ServiceOptions{
		Catalog: sliceCatalog{stopAtFeet("a", 100), stopAtFeet("b", 150), stopAtFeet("c", 400)},
		Visits:  store,
		Logger:  logger,
	})

	user := origin
	got := svc.Suggest(context.Background(), Request{Location: &user})
	if len(got) != 3 || got[0].ID != "c" || got[1].ID != "a" || got[2].ID != "b" {
		t.Errorf("expected visit counts from the store to order the group, got %+v", got)
	}
}
