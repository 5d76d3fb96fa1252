package telematics

type GeofenceType string

const (
	GeofenceTypePolygon GeofenceType = "polygon"
	GeofenceTypeCircle  GeofenceType = "circle"
)

type Geofence struct {
	Name    string       `bson:"name"`
	Company string       `bson:"company"`
	Type    GeofenceType `bson:"type"`

	// Points is the ordered polygon boundary for polygon fences.
	Points []Location `bson:"points,omitempty"`

	// Centre and RadiusMetres describe circle fences.
	Centre       Location `bson:"centre,omitempty"`
	RadiusMetres float64  `bson:"radiusmetres,omitempty"`
}

// Contains reports whether the point lies inside the fence.
func (g *Geofence) Contains(point Location) bool {
	switch g.Type {
	case GeofenceTypeCircle:
		return g.Centre.Distance(point) <= g.RadiusMetres
	case GeofenceTypePolygon:
		return pointInPolygon(point, g.Points)
	}

	return false
}

// pointInPolygon is a standard ray-cast along a horizontal ray. The
// 1e-12 fallback on a zero vertical span is intentional: it keeps the
// division defined for degenerate (horizontal) edges instead of
// special-casing them out of the crossing test.
func pointInPolygon(point Location, polygon []Location) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	j := len(polygon) - 1

	for i := 0; i < len(polygon); i++ {
		pi := polygon[i]
		pj := polygon[j]

		if (pi.Latitude > point.Latitude) != (pj.Latitude > point.Latitude) {
			span := pj.Latitude - pi.Latitude
			if span == 0 {
				span = 1e-12
			}

			intersect := (pj.Longitude-pi.Longitude)*(point.Latitude-pi.Latitude)/span + pi.Longitude
			if point.Longitude < intersect {
				inside = !inside
			}
		}

		j = i
	}

	return inside
}
