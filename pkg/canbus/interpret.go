package canbus

import (
	"fmt"
	"math"
)

const stationarySpeedKmh = 2.0

// Signals interpreted after numeric decode. Gear position values
// arrive as signed offsets from neutral, clutch state as a two bit
// switch with error and not-available codes.
const (
	signalCurrentGear  = "current_gear"
	signalSelectedGear = "selected_gear"
	signalWheelSpeed   = "wheel_based_speed_kmh"
	signalClutchState  = "clutch_pedal_state"
)

const gearParkValue = 126

// interpretSignals rewrites raw gear and clutch values into their
// display labels and removes values the raw codes mark invalid.
func interpretSignals(signals map[string]interface{}) {
	speed, hasSpeed := signals[signalWheelSpeed].(float64)

	for _, name := range []string{signalCurrentGear, signalSelectedGear} {
		raw, ok := signals[name].(float64)
		if !ok {
			continue
		}

		label, keep := gearLabel(raw, speed, hasSpeed)
		if keep {
			signals[name] = label
		} else {
			delete(signals, name)
		}
	}

	if raw, ok := signals[signalClutchState].(float64); ok {
		switch int(math.Round(raw)) {
		case 0:
			signals[signalClutchState] = "released"
		case 1:
			signals[signalClutchState] = "pressed"
		default:
			// Codes 2 and 3 are error and not-available.
			delete(signals, signalClutchState)
		}
	}
}

// gearLabel maps a decoded gear value to its label. Park uses a fixed
// sentinel value, zero is neutral, negatives are reverse ranges. A
// moving vehicle cannot be in park, so forward and reverse gears are
// only reported while the wheel speed (when known) is above a small
// stationary threshold.
func gearLabel(raw float64, speed float64, hasSpeed bool) (string, bool) {
	gear := int(math.Round(raw))

	switch {
	case gear == gearParkValue:
		return "P", true
	case gear == 0:
		return "N", true
	case hasSpeed && speed < stationarySpeedKmh:
		return "", false
	case gear < 0:
		return fmt.Sprintf("R %d", -gear), true
	default:
		return fmt.Sprintf("G %d", gear), true
	}
}
