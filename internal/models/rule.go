package models

import (
	"encoding/json"

	"rider.badgertransit.org/internal/geo"
)

// GeofenceRule is a SmartLaunch automation: when the rider is inside the circle
// around Center during the optional time window, the stop page for StopID is
// opened automatically.
//
// StartTime and EndTime are "HH:MM" local times. Both empty means the rule is
// active all day; they are always either both set or both empty once decoded.
type GeofenceRule struct {
	ID           string
	Name         string
	StopID       string
	Center       geo.Coordinate
	RadiusMeters float64
	Enabled      bool
	StartTime    string
	EndTime      string
}

// HasWindow reports whether the rule is restricted to a time window.
func (r GeofenceRule) HasWindow() bool {
	return r.StartTime != "" && r.EndTime != ""
}

// storedRule is the persisted shape. Pointer fields distinguish absent and
// null values written by older clients.
type storedRule struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	StopID       string         `json:"stopId"`
	Center       geo.Coordinate `json:"center"`
	RadiusMeters float64        `json:"radiusMeters"`
	Enabled      *bool          `json:"enabled"`
	StartTime    *string        `json:"startTime"`
	EndTime      *string        `json:"endTime"`
}

// UnmarshalJSON applies the load-time defaults in one place: a missing or
// null "enabled" means enabled, and a half-specified window is dropped.
func (r *GeofenceRule) UnmarshalJSON(data []byte) error {
	var s storedRule
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	start, end := "", ""
	if s.StartTime != nil {
		start = *s.StartTime
	}
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if start == "" || end == "" {
		start, end = "", ""
	}

	*r = GeofenceRule{
		ID:           s.ID,
		Name:         s.Name,
		StopID:       s.StopID,
		Center:       s.Center,
		RadiusMeters: s.RadiusMeters,
		Enabled:      s.Enabled == nil || *s.Enabled,
		StartTime:    start,
		EndTime:      end,
	}
	return nil
}

// MarshalJSON writes the stored shape, with null times for all-day rules.
func (r GeofenceRule) MarshalJSON() ([]byte, error) {
	enabled := r.Enabled
	s := storedRule{
		ID:           r.ID,
		Name:         r.Name,
		StopID:       r.StopID,
		Center:       r.Center,
		RadiusMeters: r.RadiusMeters,
		Enabled:      &enabled,
	}
	if r.HasWindow() {
		start, end := r.StartTime, r.EndTime
		s.StartTime = &start
		s.EndTime = &end
	}
	return json.Marshal(s)
}
