package alerts

import (
	"context"
	"fmt"

	"github.com/cordonnx/cordonnx/pkg/telematics"
)

const (
	sosPacketID               = "10"
	harshBrakePacketID        = "13"
	harshAccelerationPacketID = "14"

	gsmSignalLowMax           = 8
	internalBatteryLowVoltage = 3.7
)

// checkThresholds covers the stateless conditions a single packet can
// trip on its own.
func (e *Engine) checkThresholds(ctx context.Context, packet *telematics.Packet) []telematics.AlertEvent {
	var events []telematics.AlertEvent

	if packet.Type == telematics.PacketTypeEmergency {
		events = append(events, e.newEvent(packet, telematics.AlertTypeSOS, "Emergency button pressed"))
		return events
	}

	limit := e.Vehicles.SpeedLimit(ctx, packet.IMEI)
	if speed := packet.Speed(); speed > limit {
		events = append(events, e.newEvent(packet, telematics.AlertTypeSpeeding,
			fmt.Sprintf("Speed %.1f km/h over limit %.0f km/h", speed, limit)))
	}

	// Location frames carry the panic button too, either as packet id
	// 10 or through the emergency status flag.
	if sosTripped(packet) {
		events = append(events, e.newEvent(packet, telematics.AlertTypeSOS, "Emergency button pressed"))
	}

	if packet.Packet != nil {
		switch packet.Packet.ID {
		case harshBrakePacketID:
			events = append(events, e.newEvent(packet, telematics.AlertTypeHarshBrake, "Harsh braking detected"))
		case harshAccelerationPacketID:
			events = append(events, e.newEvent(packet, telematics.AlertTypeHarshAcceleration, "Harsh acceleration detected"))
		}
	}

	if packet.Network != nil && packet.Network.GSMSignal != nil && *packet.Network.GSMSignal <= gsmSignalLowMax {
		events = append(events, e.newEvent(packet, telematics.AlertTypeGSMSignalLow,
			fmt.Sprintf("GSM signal strength %d", *packet.Network.GSMSignal)))
	}

	if packet.Telemetry != nil {
		if voltage := packet.Telemetry.InternalBatteryVoltage; voltage != nil && *voltage <= internalBatteryLowVoltage {
			events = append(events, e.newEvent(packet, telematics.AlertTypeInternalBatteryLow,
				fmt.Sprintf("Internal battery at %.2f V", *voltage)))
		}

		if packet.Telemetry.MainPower != nil && *packet.Telemetry.MainPower == 0 {
			events = append(events, e.newEvent(packet, telematics.AlertTypeMainPowerLost, "Main power supply disconnected"))
		}
	}

	return events
}

func sosTripped(packet *telematics.Packet) bool {
	if packet.Packet != nil && packet.Packet.ID == sosPacketID {
		return true
	}
	return packet.Telemetry != nil && packet.Telemetry.EmergencyStatus != nil && *packet.Telemetry.EmergencyStatus == 1
}

// checkIgnition raises edge alerts on ignition transitions. The
// previous state comes from the in-process cache, seeded from the
// stored latest position on the first packet after startup.
func (e *Engine) checkIgnition(ctx context.Context, packet *telematics.Packet) []telematics.AlertEvent {
	current, known := packet.IgnitionOn()
	if !known {
		return nil
	}

	e.mu.Lock()
	previous, seen := e.ignitionState[packet.IMEI]
	e.ignitionState[packet.IMEI] = current
	e.mu.Unlock()

	if !seen {
		latest, err := e.History.LatestLocation(ctx, packet.IMEI)
		if err != nil || latest == nil {
			return nil
		}

		storedState, storedKnown := latest.IgnitionOn()
		if !storedKnown {
			return nil
		}
		previous = storedState
	}

	if current == previous {
		return nil
	}

	if current {
		return []telematics.AlertEvent{e.newEvent(packet, telematics.AlertTypeIgnitionOn, "Ignition switched on")}
	}
	return []telematics.AlertEvent{e.newEvent(packet, telematics.AlertTypeIgnitionOff, "Ignition switched off")}
}
