package recent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"rider.badgertransit.org/internal/models"
	"rider.badgertransit.org/internal/report"
	"rider.badgertransit.org/internal/storage"
	"rider.badgertransit.org/internal/utils"
)

// RecentStopsKey is the storage key holding the recent stops list.
const RecentStopsKey = "bt_recent_stops"

// MaxRecentStops bounds the list; the least recently visited entry is dropped.
const MaxRecentStops = 10

// Store tracks which stops the rider opened and how often.
type Store struct {
	kv     storage.KV
	logger *slog.Logger
	mu     sync.Mutex
}

func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

// List returns the records, most recently visited first.
func (s *Store) List() []models.VisitRecord {
	s.mu.Lock()
	records := s.load()
	s.mu.Unlock()

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastVisitedAt.After(records[j].LastVisitedAt)
	})
	return records
}

// VisitCount returns how often stopID was visited, or 0 if it is not listed.
func (s *Store) VisitCount(stopID string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.load() {
		if r.StopID == stopID {
			return r.VisitCount
		}
	}
	return 0
}

// Counts returns a snapshot of all visit counts keyed by stop id.
func (s *Store) Counts() map[string]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.load()
	counts := make(map[string]uint32, len(records))
	for _, r := range records {
		counts[r.StopID] = r.VisitCount
	}
	return counts
}

// RecordVisit bumps the visit count of stopID and moves it to the front.
// An empty name keeps the previously stored one.
func (s *Store) RecordVisit(stopID, name string, at time.Time) (models.VisitRecord, error) {
	stopID = strings.TrimSpace(stopID)
	if stopID == "" {
		return models.VisitRecord{}, errors.New("stop id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	rec := models.VisitRecord{StopID: stopID, Name: name, LastVisitedAt: at, VisitCount: 1}
	kept := make([]models.VisitRecord, 0, len(records)+1)
	for _, r := range records {
		if r.StopID == stopID {
			rec.VisitCount = r.VisitCount + 1
			if rec.Name == "" {
				rec.Name = r.Name
			}
			continue
		}
		kept = append(kept, r)
	}

	if rec.Name == "" {
		rec.Name = "Stop " + stopID
	}

	records = append([]models.VisitRecord{rec}, kept...)
	if len(records) > MaxRecentStops {
		records = records[:MaxRecentStops]
	}
	s.save(records)
	return rec, nil
}

func (s *Store) load() []models.VisitRecord {
	data, err := s.kv.Get(RecentStopsKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to read recent stops", "error", err)
		}
		return []models.VisitRecord{}
	}

	var records []models.VisitRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("stored recent stops are corrupt, ignoring", "error", err)
		return []models.VisitRecord{}
	}
	if records == nil {
		records = []models.VisitRecord{}
	}
	return records
}

func (s *Store) save(records []models.VisitRecord) {
	data, err := json.Marshal(records)
	if err == nil {
		err = s.kv.Set(RecentStopsKey, data)
	}
	if err != nil {
		s.logger.Error("failed to save recent stops", "error", err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Component: "recent_stops",
			Tags:      utils.MakeMap("key", RecentStopsKey),
			Level:     sentry.LevelWarning,
		})
	}
}
