package geo

import (
	"math"
	"testing"

	"gourmet/internal/model"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Coordinates
		want float64 // km
	}{
		{
			name: "same point",
			a:    model.Coordinates{Latitude: -6.2088, Longitude: 106.8456},
			b:    model.Coordinates{Latitude: -6.2088, Longitude: 106.8456},
			want: 0,
		},
		{
			name: "jakarta to bandung",
			a:    model.Coordinates{Latitude: -6.2088, Longitude: 106.8456},
			b:    model.Coordinates{Latitude: -6.9175, Longitude: 107.6191},
			want: 115.6,
		},
		{
			name: "across the antimeridian",
			a:    model.Coordinates{Latitude: 0, Longitude: 179.5},
			b:    model.Coordinates{Latitude: 0, Longitude: -179.5},
			want: 111.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.want*0.02+0.01 {
				t.Errorf("Distance() = %f km, want ~%f km", got, tt.want)
			}
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := model.Coordinates{Latitude: -6.2, Longitude: 106.8}
	b := model.Coordinates{Latitude: 1.29, Longitude: 103.85}
	if d1, d2 := Distance(a, b), Distance(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("Distance not symmetric: %f vs %f", d1, d2)
	}
}
