package catalog

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

// madisonFeed is a small GTFS feed: two boarding stops, one station with a
// platform, and an entrance that must be skipped.
var madisonFeed = map[string]string{
	"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
		"MMT,Metro Transit,https://www.cityofmadison.com/metro,America/Chicago\n",
	"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
		"80,MMT,80,Campus Loop,3\n",
	"stops.txt": "stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station\n" +
		"0626,University at N Basset,43.0731,-89.4012,0,\n" +
		"10070,W Johnson at East Campus,43.0750,-89.3990,0,\n" +
		"STA1,Capitol Square Station,43.0747,-89.3841,1,\n" +
		"1505,,43.0748,-89.3842,0,STA1\n" +
		"ENT1,Capitol Entrance,43.0746,-89.3840,2,STA1\n",
	"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
		"WKD,1,1,1,1,1,0,0,20250101,20250328\n",
	"trips.txt": "route_id,service_id,trip_id\n" +
		"80,WKD,T1\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"T1,08:00:00,08:00:00,0626,1\n" +
		"T1,08:05:00,08:05:00,10070,2\n" +
		"T1,08:10:00,08:10:00,1505,3\n",
}

// buildGTFSZip packs files into an in-memory GTFS bundle.
func buildGTFSZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s to zip: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// setupGtfsServer serves body with the given status and counts requests.
func setupGtfsServer(t *testing.T, body []byte, status int, hits *int) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		w.Header().Set("Content-Type", "application/zip")
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}
