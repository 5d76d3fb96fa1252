package alerts

import (
	"context"
	"fmt"

	"github.com/cordonnx/cordonnx/pkg/telematics"
	"github.com/rs/zerolog/log"
)

// checkGeofences raises entry and exit alerts on membership edges. The
// previous membership set per vehicle is held in memory, so the first
// packet after startup establishes a baseline without raising alerts.
func (e *Engine) checkGeofences(ctx context.Context, packet *telematics.Packet, vehicle *telematics.VehicleInfo) []telematics.AlertEvent {
	if !packet.HasValidFix() {
		return nil
	}

	fences, err := e.Geofences.ForCompany(ctx, vehicle.CompanyName)
	if err != nil {
		log.Error().Err(err).Str("company", vehicle.CompanyName).Msg("Failed to load geofences")
		return nil
	}
	if len(fences) == 0 {
		return nil
	}

	position := telematics.Location{
		Latitude:  *packet.GPS.Latitude,
		Longitude: *packet.GPS.Longitude,
	}

	membership := map[string]bool{}
	for i := range fences {
		membership[fences[i].Name] = fences[i].Contains(position)
	}

	e.mu.Lock()
	previous, seen := e.geofenceState[packet.IMEI]
	e.geofenceState[packet.IMEI] = membership
	e.mu.Unlock()

	if !seen {
		return nil
	}

	var events []telematics.AlertEvent

	for name, inside := range membership {
		if inside == previous[name] {
			continue
		}

		alertType := telematics.AlertTypeGeofenceOut
		verb := "left"
		if inside {
			alertType = telematics.AlertTypeGeofenceIn
			verb = "entered"
		}

		event := e.newEvent(packet, alertType, fmt.Sprintf("Vehicle %s geofence %s", verb, name))
		event.GeofenceName = name
		events = append(events, event)
	}

	return events
}
