package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	capitol := Coordinate{Lat: 43.0747, Lon: -89.3841}
	library := Coordinate{Lat: 43.0766, Lon: -89.4012}

	t.Run("same point is zero", func(t *testing.T) {
		for _, c := range []Coordinate{capitol, library, {Lat: 0, Lon: 0}, {Lat: -89.9, Lon: 179.9}} {
			if d := Distance(c, c); d != 0 {
				t.Errorf("Distance(%v, %v) = %v, want 0", c, c, d)
			}
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		ab := Distance(capitol, library)
		ba := Distance(library, capitol)
		if math.Abs(ab-ba) > 1e-6 {
			t.Errorf("expected symmetric distance, got %v and %v", ab, ba)
		}
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		d := Distance(Coordinate{Lat: 43, Lon: -89}, Coordinate{Lat: 44, Lon: -89})
		if math.Abs(d-111320)/111320 > 0.01 {
			t.Errorf("expected about 111320 m, got %v", d)
		}
	})

	t.Run("non-finite input yields NaN", func(t *testing.T) {
		d := Distance(Coordinate{Lat: math.NaN(), Lon: 0}, capitol)
		if !math.IsNaN(d) {
			t.Errorf("expected NaN, got %v", d)
		}
	})
}

func TestMetersToFeet(t *testing.T) {
	if got := MetersToFeet(100); math.Abs(got-328.084) > 1e-9 {
		t.Errorf("MetersToFeet(100) = %v, want 328.084", got)
	}
	if got := FeetToMeters(MetersToFeet(42)); math.Abs(got-42) > 1e-9 {
		t.Errorf("round trip = %v, want 42", got)
	}
}

func TestIsValidLatLon(t *testing.T) {
	tests := []struct {
		name  string
		coord Coordinate
		want  bool
	}{
		{"madison", Coordinate{Lat: 43.07, Lon: -89.40}, true},
		{"origin", Coordinate{Lat: 0, Lon: 0}, true},
		{"latitude too large", Coordinate{Lat: 91, Lon: 0}, false},
		{"longitude too small", Coordinate{Lat: 0, Lon: -181}, false},
		{"NaN", Coordinate{Lat: math.NaN(), Lon: 0}, false},
		{"Inf", Coordinate{Lat: 0, Lon: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidLatLon(tt.coord); got != tt.want {
				t.Errorf("IsValidLatLon(%v) = %v, want %v", tt.coord, got, tt.want)
			}
		})
	}
}

func TestComputeBoundingBox(t *testing.T) {
	box, ok := ComputeBoundingBox([]Coordinate{
		{Lat: 43.1, Lon: -89.5},
		{Lat: math.NaN(), Lon: 0},
		{Lat: 43.0, Lon: -89.3},
	})
	if !ok {
		t.Fatal("expected a bounding box")
	}
	want := BoundingBox{MinLat: 43.0, MaxLat: 43.1, MinLon: -89.5, MaxLon: -89.3}
	if box != want {
		t.Errorf("got %+v, want %+v", box, want)
	}
	if !box.Contains(Coordinate{Lat: 43.05, Lon: -89.4}) {
		t.Error("expected box to contain interior point")
	}
	if box.Contains(Coordinate{Lat: 44, Lon: -89.4}) {
		t.Error("expected box not to contain exterior point")
	}

	if _, ok := ComputeBoundingBox(nil); ok {
		t.Error("expected no bounding box for empty input")
	}
}

func TestMetersPerPixel(t *testing.T) {
	// Zoom 0 at the equator spans the whole circumference over 256 px.
	got := MetersPerPixel(0, 0)
	want := 40075016.686 / 256
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("MetersPerPixel(0, 0) = %v, want %v", got, want)
	}
	if MetersPerPixel(15, 43) >= MetersPerPixel(14, 43) {
		t.Error("expected higher zoom to have finer resolution")
	}
}
