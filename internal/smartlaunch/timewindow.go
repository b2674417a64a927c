package smartlaunch

import (
	"math"
	"strconv"
	"strings"
	"time"

	"rider.badgertransit.org/internal/models"
)

// parseClock strictly parses "HH:MM" into minutes after midnight. The editor
// uses it to validate new windows.
func parseClock(s string) (int, bool) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// clockMinutes reads a stored "H:M" value numerically: each part is a decimal
// number, blank parts count as zero and extra parts are ignored, so "7:5" and
// "24:00" are ordinary windows. Only a missing or non-numeric part fails.
func clockMinutes(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, false
	}
	h, ok := clockPart(parts[0])
	if !ok {
		return 0, false
	}
	m, ok := clockPart(parts[1])
	if !ok {
		return 0, false
	}
	return h*60 + m, true
}

func clockPart(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// IsActive reports whether rule's time window contains now. Both endpoints
// are inclusive and a start later than the end wraps past midnight.
//
// A rule without a window, or with a part that is not a number, is always
// active so that bad data never silently disables an automation.
func IsActive(rule models.GeofenceRule, now time.Time) bool {
	if rule.StartTime == "" || rule.EndTime == "" {
		return true
	}

	start, ok := clockMinutes(rule.StartTime)
	if !ok {
		return true
	}
	end, ok := clockMinutes(rule.EndTime)
	if !ok {
		return true
	}

	current := float64(now.Hour()*60 + now.Minute())
	if start <= end {
		return current >= start && current <= end
	}
	return current >= start || current <= end
}
