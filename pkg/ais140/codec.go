package ais140

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Field conversions never fail: anything unparseable comes back nil so
// one bad field can't invalidate an otherwise usable packet.

func toFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func toInt(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &parsed
}

// padLeft zero-pads to length; devices drop leading zeros from date and
// time fields.
func padLeft(value string, length int) string {
	value = strings.TrimSpace(value)
	for len(value) < length {
		value = "0" + value
	}
	return value
}

// parseDeviceTime converts the ddmmyyyy + hhmmss field pair (device
// clock, UTC) to an instant. Nil when either part is malformed.
func parseDeviceTime(dateField string, timeField string) *time.Time {
	date := padLeft(dateField, 8)
	clock := padLeft(timeField, 6)

	parsed, err := time.Parse("02012006150405", date+clock)
	if err != nil {
		return nil
	}

	parsed = parsed.UTC()
	return &parsed
}

// parseCompactTime converts the 14 character ddmmyyyyhhmmss form used
// by emergency packets.
func parseCompactTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if len(value) < 14 {
		return nil
	}

	parsed, err := time.Parse("02012006150405", value[:14])
	if err != nil {
		return nil
	}

	parsed = parsed.UTC()
	return &parsed
}

// nmeaToDegrees converts a ddmm.mmmm (or dddmm.mmmm) coordinate to
// decimal degrees.
func nmeaToDegrees(value float64) float64 {
	degrees := math.Floor(value / 100)
	minutes := value - degrees*100
	return degrees + minutes/60
}

// signedCoordinates applies the hemisphere letters: south and west are
// negative.
func signedCoordinates(lat *float64, latHemi string, lon *float64, lonHemi string) (*float64, *float64) {
	if lat != nil && latHemi != "" {
		v := math.Abs(*lat)
		if strings.EqualFold(latHemi, "S") {
			v = -v
		}
		lat = &v
	}

	if lon != nil && lonHemi != "" {
		v := math.Abs(*lon)
		if strings.EqualFold(lonHemi, "W") {
			v = -v
		}
		lon = &v
	}

	return lat, lon
}

// roundKm keeps stored odometer values at two decimals.
func roundKm(value float64) float64 {
	return math.Round(value*100) / 100
}
