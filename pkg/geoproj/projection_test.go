package geoproj

import (
	"math"
	"testing"
)

func TestToWebMercator(t *testing.T) {
	tests := []struct {
		name      string
		latitude  float64
		longitude float64
		wantX     float64
		wantY     float64
	}{
		{
			name: "origin", latitude: 0, longitude: 0,
			wantX: 0, wantY: 0,
		},
		{
			name: "toulouse", latitude: 43.6045, longitude: 1.4442,
			wantX: 160767.61, wantY: 5404440.26,
		},
		{
			name: "negative longitude", latitude: 48.3904, longitude: -4.4861,
			wantX: -499390.37, wantY: 6172050.99,
		},
		{
			name: "latitude clamped at projection limit", latitude: 89, longitude: 0,
			wantX: 0, wantY: 20037508.34,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := ToWebMercator(tt.latitude, tt.longitude)
			if math.Abs(x-tt.wantX) > 1.0 {
				t.Errorf("x = %v, want %v", x, tt.wantX)
			}
			if math.Abs(y-tt.wantY) > 1.0 {
				t.Errorf("y = %v, want %v", y, tt.wantY)
			}
		})
	}
}

func TestFromWebMercator_RoundTrip(t *testing.T) {
	points := []struct {
		latitude  float64
		longitude float64
	}{
		{43.6045, 1.4442},
		{48.8566, 2.3522},
		{-21.1151, 55.5364},
		{0, 0},
	}

	for _, p := range points {
		x, y := ToWebMercator(p.latitude, p.longitude)
		lat, lon := FromWebMercator(x, y)
		if math.Abs(lat-p.latitude) > 1e-9 {
			t.Errorf("round trip latitude = %v, want %v", lat, p.latitude)
		}
		if math.Abs(lon-p.longitude) > 1e-9 {
			t.Errorf("round trip longitude = %v, want %v", lon, p.longitude)
		}
	}
}
