package telematics

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	t.Parallel()

	// Pune station to Shivajinagar, roughly 2.3 km.
	a := Location{Latitude: 18.5289, Longitude: 73.8744}
	b := Location{Latitude: 18.5308, Longitude: 73.8520}

	distance := a.Distance(b)
	if distance < 2200 || distance > 2500 {
		t.Errorf("distance = %v m, want roughly 2350", distance)
	}

	if a.Distance(a) != 0 {
		t.Errorf("self distance = %v", a.Distance(a))
	}
}

func TestCircleGeofence(t *testing.T) {
	t.Parallel()

	fence := Geofence{
		Name:         "depot",
		Type:         GeofenceTypeCircle,
		Centre:       Location{Latitude: 18.5083, Longitude: 73.7542},
		RadiusMetres: 500,
	}

	if !fence.Contains(Location{Latitude: 18.5083, Longitude: 73.7542}) {
		t.Error("centre not inside")
	}
	if !fence.Contains(Location{Latitude: 18.5100, Longitude: 73.7542}) {
		t.Error("point ~190m away not inside")
	}
	if fence.Contains(Location{Latitude: 18.5300, Longitude: 73.7542}) {
		t.Error("point ~2.4km away inside")
	}
}

func TestPolygonGeofence(t *testing.T) {
	t.Parallel()

	square := Geofence{
		Name: "yard",
		Type: GeofenceTypePolygon,
		Points: []Location{
			{Latitude: 0, Longitude: 0},
			{Latitude: 0, Longitude: 10},
			{Latitude: 10, Longitude: 10},
			{Latitude: 10, Longitude: 0},
		},
	}

	tests := []struct {
		name  string
		point Location
		want  bool
	}{
		{"inside", Location{Latitude: 5, Longitude: 5}, true},
		{"outside east", Location{Latitude: 5, Longitude: 15}, false},
		{"outside north", Location{Latitude: 15, Longitude: 5}, false},
		{"near corner inside", Location{Latitude: 9.99, Longitude: 9.99}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if got := square.Contains(test.point); got != test.want {
				t.Errorf("Contains(%+v) = %v, want %v", test.point, got, test.want)
			}
		})
	}
}

func TestPolygonWithHorizontalEdge(t *testing.T) {
	t.Parallel()

	// Triangle with a horizontal top edge; the crossing test must not
	// divide by zero on it.
	triangle := Geofence{
		Type: GeofenceTypePolygon,
		Points: []Location{
			{Latitude: 0, Longitude: 0},
			{Latitude: 10, Longitude: -5},
			{Latitude: 10, Longitude: 5},
		},
	}

	if !triangle.Contains(Location{Latitude: 5, Longitude: 0}) {
		t.Error("interior point not inside")
	}
	if triangle.Contains(Location{Latitude: 5, Longitude: math.Nextafter(5, 10)}) {
		t.Error("exterior point inside")
	}
}

func TestDegeneratePolygonRejected(t *testing.T) {
	t.Parallel()

	line := Geofence{
		Type: GeofenceTypePolygon,
		Points: []Location{
			{Latitude: 0, Longitude: 0},
			{Latitude: 10, Longitude: 10},
		},
	}

	if line.Contains(Location{Latitude: 5, Longitude: 5}) {
		t.Error("two-point polygon contained a point")
	}
}
