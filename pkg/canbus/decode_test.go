package canbus

import (
	"testing"
)

func loadTestRegistry(t *testing.T) *Registry {
	t.Helper()

	registry, err := LoadProfiles()
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}

	return registry
}

func TestDecodeFMSTruck(t *testing.T) {
	t.Parallel()

	registry := loadTestRegistry(t)
	profile := registry.Get("fms_truck")

	frames := []Frame{
		// EEC1: engine speed 6400 raw * 0.125 = 800 rpm.
		{ID: "0CF00400", Data: "FFFFFF0019FFFFFF"},
		// CCVS: speed 15360 raw / 256 = 60 km/h, parking brake set,
		// clutch pressed, cruise active.
		{ID: "18FEF100", Data: "04003C81FFFFFFFF"},
		// ETC2: selected gear 125-125 = N, current gear 128-125 = 3.
		{ID: "18F00500", Data: "7DFFFF80FFFFFFFF"},
		// OEM battery frame: drive mode 2, SoC 200 raw * 0.4 = 80%.
		{ID: "18F0ED27", Data: "02C8FFFFFFFFFFFF"},
	}

	signals := Decode(frames, profile)
	interpretSignals(signals)

	want := map[string]interface{}{
		"engine_rpm":            800.0,
		"wheel_based_speed_kmh": 60.0,
		"clutch_pedal_state":    "pressed",
		"cruise_control_active": 1.0,
		"parking_brake_applied": true,
		"current_gear":          "G 3",
		"selected_gear":         "N",
		"battery_soc_pct":       80.0,
		"drive_mode":            "power",
	}

	for name, value := range want {
		if got := signals[name]; got != value {
			t.Errorf("signal %s = %v, want %v", name, got, value)
		}
	}
}

func TestDecodeOutOfRangeDropped(t *testing.T) {
	t.Parallel()

	registry := loadTestRegistry(t)
	profile := registry.Get("fms_truck")

	// Engine speed 0xFFFF raw * 0.125 = 8191.875, over the max bound.
	signals := Decode([]Frame{
		{ID: "0CF00400", Data: "FFFFFFFFFFFFFFFF"},
	}, profile)

	if _, ok := signals["engine_rpm"]; ok {
		t.Errorf("out of range engine_rpm kept: %v", signals["engine_rpm"])
	}
}

func TestDecodeUnknownProfileFallsBack(t *testing.T) {
	t.Parallel()

	registry := loadTestRegistry(t)
	profile := registry.Get("no_such_profile")

	if profile.Name != GenericProfileName {
		t.Fatalf("got profile %q, want %q", profile.Name, GenericProfileName)
	}

	signals := Decode([]Frame{
		{ID: "0CF00400", Data: "FFFFFF0019FFFFFF"},
	}, profile)

	if got := signals["engine_rpm"]; got != 800.0 {
		t.Errorf("engine_rpm = %v, want 800", got)
	}
}

func TestGearLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      float64
		speed    float64
		hasSpeed bool
		want     string
		keep     bool
	}{
		{"park", 126, 0, true, "P", true},
		{"neutral", 0, 0, true, "N", true},
		{"forward moving", 3, 40, true, "G 3", true},
		{"reverse moving", -1, 5, true, "R 1", true},
		{"forward stationary dropped", 3, 0.5, true, "", false},
		{"forward without speed kept", 3, 0, false, "G 3", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			label, keep := gearLabel(test.raw, test.speed, test.hasSpeed)
			if keep != test.keep || label != test.want {
				t.Errorf("gearLabel(%v, %v, %v) = (%q, %v), want (%q, %v)",
					test.raw, test.speed, test.hasSpeed, label, keep, test.want, test.keep)
			}
		})
	}
}

func TestInterpretClutchInvalidCodesRemoved(t *testing.T) {
	t.Parallel()

	for _, raw := range []float64{2, 3} {
		signals := map[string]interface{}{
			signalClutchState: raw,
		}

		interpretSignals(signals)

		if _, ok := signals[signalClutchState]; ok {
			t.Errorf("clutch code %v kept: %v", raw, signals[signalClutchState])
		}
	}
}
