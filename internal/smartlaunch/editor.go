package smartlaunch

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"rider.badgertransit.org/internal/geo"
	"rider.badgertransit.org/internal/models"
)

var (
	ErrRuleNotFound  = errors.New("smartlaunch rule not found")
	ErrMissingStopID = errors.New("stop id is required")
	ErrPartialWindow = errors.New("start and end time must both be set or both be empty")
	ErrInvalidTime   = errors.New("time must be HH:MM")
	ErrInvalidRadius = errors.New("radius must be a positive number of meters")
	ErrInvalidCenter = errors.New("center is not a valid coordinate")
)

// radiusPixels is the on-screen radius of the geofence circle in the map picker.
const radiusPixels = 80

// Draft is the editable part of a rule. When RadiusMeters is zero the radius
// is derived from the map view the rider picked the center on.
type Draft struct {
	Name         string         `json:"name"`
	StopID       string         `json:"stopId"`
	Center       geo.Coordinate `json:"center"`
	RadiusMeters float64        `json:"radiusMeters"`
	MapZoom      float64        `json:"mapZoom"`
	StartTime    string         `json:"startTime"`
	EndTime      string         `json:"endTime"`
}

// Editor manages the rule list on behalf of the rider. Every change loads the
// list, edits a copy and saves the whole list back.
type Editor struct {
	store  RuleStore
	logger *slog.Logger
	newID  func() string
	mu     sync.Mutex
}

func NewEditor(store RuleStore, logger *slog.Logger) *Editor {
	return &Editor{store: store, logger: logger, newID: uuid.NewString}
}

func (e *Editor) List() []models.GeofenceRule {
	return e.store.LoadRules()
}

func (e *Editor) Get(id string) (models.GeofenceRule, error) {
	for _, r := range e.store.LoadRules() {
		if r.ID == id {
			return r, nil
		}
	}
	return models.GeofenceRule{}, ErrRuleNotFound
}

// Create validates d and appends a new enabled rule.
func (e *Editor) Create(d Draft) (models.GeofenceRule, error) {
	rule, err := buildRule(d)
	if err != nil {
		return models.GeofenceRule{}, err
	}
	rule.ID = e.newID()
	rule.Enabled = true

	e.mu.Lock()
	defer e.mu.Unlock()
	rules := e.store.LoadRules()
	rules = append(rules, rule)
	e.store.SaveRules(rules)

	e.logger.Info("smartlaunch rule created", "rule_id", rule.ID, "stop_id", rule.StopID)
	return rule, nil
}

// Update replaces the editable fields of a rule, keeping its id, enabled
// flag and position in the list.
func (e *Editor) Update(id string, d Draft) (models.GeofenceRule, error) {
	updated, err := buildRule(d)
	if err != nil {
		return models.GeofenceRule{}, err
	}

	return e.modify(id, func(r *models.GeofenceRule) {
		updated.ID = r.ID
		updated.Enabled = r.Enabled
		*r = updated
	})
}

func (e *Editor) SetEnabled(id string, enabled bool) (models.GeofenceRule, error) {
	return e.modify(id, func(r *models.GeofenceRule) { r.Enabled = enabled })
}

func (e *Editor) Toggle(id string) (models.GeofenceRule, error) {
	return e.modify(id, func(r *models.GeofenceRule) { r.Enabled = !r.Enabled })
}

func (e *Editor) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules := e.store.LoadRules()
	kept := make([]models.GeofenceRule, 0, len(rules))
	for _, r := range rules {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(rules) {
		return ErrRuleNotFound
	}
	e.store.SaveRules(kept)
	e.logger.Info("smartlaunch rule deleted", "rule_id", id)
	return nil
}

// ReplaceAll saves rules as the complete list, in the given order. Rules
// without an id get a new one.
func (e *Editor) ReplaceAll(rules []models.GeofenceRule) ([]models.GeofenceRule, error) {
	out := make([]models.GeofenceRule, len(rules))
	for i, r := range rules {
		r.StopID = strings.TrimSpace(r.StopID)
		if r.StopID == "" {
			return nil, fmt.Errorf("rule %d: %w", i, ErrMissingStopID)
		}
		if err := validateRadius(r.RadiusMeters); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if !geo.IsValidLatLon(r.Center) {
			return nil, fmt.Errorf("rule %d: %w", i, ErrInvalidCenter)
		}
		start, end, err := validateWindow(r.StartTime, r.EndTime)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		r.StartTime, r.EndTime = start, end
		if r.ID == "" {
			r.ID = e.newID()
		}
		if r.Name == "" {
			r.Name = defaultName(r.StopID)
		}
		out[i] = r
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.SaveRules(out)
	return out, nil
}

func (e *Editor) modify(id string, fn func(r *models.GeofenceRule)) (models.GeofenceRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules := e.store.LoadRules()
	for i := range rules {
		if rules[i].ID != id {
			continue
		}
		fn(&rules[i])
		e.store.SaveRules(rules)
		return rules[i], nil
	}
	return models.GeofenceRule{}, ErrRuleNotFound
}

func buildRule(d Draft) (models.GeofenceRule, error) {
	stopID := strings.TrimSpace(d.StopID)
	if stopID == "" {
		return models.GeofenceRule{}, ErrMissingStopID
	}
	if !geo.IsValidLatLon(d.Center) {
		return models.GeofenceRule{}, ErrInvalidCenter
	}

	radius := d.RadiusMeters
	if radius == 0 && d.MapZoom > 0 {
		radius = geo.MetersPerPixel(d.MapZoom, d.Center.Lat) * radiusPixels
	}
	if err := validateRadius(radius); err != nil {
		return models.GeofenceRule{}, err
	}

	start, end, err := validateWindow(d.StartTime, d.EndTime)
	if err != nil {
		return models.GeofenceRule{}, err
	}

	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = defaultName(stopID)
	}

	return models.GeofenceRule{
		Name:         name,
		StopID:       stopID,
		Center:       d.Center,
		RadiusMeters: radius,
		StartTime:    start,
		EndTime:      end,
	}, nil
}

func defaultName(stopID string) string {
	return "SmartLaunch for stop " + stopID
}

func validateRadius(r float64) error {
	if !(r > 0) || math.IsInf(r, 0) {
		return ErrInvalidRadius
	}
	return nil
}

func validateWindow(start, end string) (string, string, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return "", "", nil
	}
	if start == "" || end == "" {
		return "", "", ErrPartialWindow
	}
	if _, ok := parseClock(start); !ok {
		return "", "", fmt.Errorf("start %q: %w", start, ErrInvalidTime)
	}
	if _, ok := parseClock(end); !ok {
		return "", "", fmt.Errorf("end %q: %w", end, ErrInvalidTime)
	}
	return start, end, nil
}
