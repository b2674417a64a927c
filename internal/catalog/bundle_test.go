package catalog

import (
	"errors"
	"testing"
)

func TestParseBundle(t *testing.T) {
	stops, static, err := ParseBundle(buildGTFSZip(t, madisonFeed))
	if err != nil {
		t.Fatalf("ParseBundle failed: %v", err)
	}
	if static == nil || len(static.Services) != 1 {
		t.Fatalf("expected the parsed feed to be returned with its services")
	}

	byID := make(map[string]string)
	for _, s := range stops {
		byID[s.ID] = s.Name
	}

	if len(stops) != 3 {
		t.Errorf("expected 3 boarding stops, got %d: %v", len(stops), byID)
	}
	if _, ok := byID["0626"]; !ok {
		t.Error("expected stop 0626 with its leading zero")
	}
	if _, ok := byID["STA1"]; ok {
		t.Error("stations must not be in the catalog")
	}
	if _, ok := byID["ENT1"]; ok {
		t.Error("entrances must not be in the catalog")
	}
	if byID["1505"] != "Capitol Square Station" {
		t.Errorf("expected unnamed platform to take the station name, got %q", byID["1505"])
	}
}

func TestParseBundleErrors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		if _, _, err := ParseBundle([]byte("definitely not a zip")); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("no boarding stops", func(t *testing.T) {
		feed := make(map[string]string, len(madisonFeed))
		for k, v := range madisonFeed {
			feed[k] = v
		}
		feed["stops.txt"] = "stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station\n" +
			"STA1,Capitol Square Station,43.0747,-89.3841,1,\n"
		feed["stop_times.txt"] = "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n"

		_, _, err := ParseBundle(buildGTFSZip(t, feed))
		if !errors.Is(err, ErrNoStops) {
			t.Errorf("expected ErrNoStops, got %v", err)
		}
	})
}
