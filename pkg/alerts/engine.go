package alerts

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cordonnx/cordonnx/pkg/stats"
	"github.com/cordonnx/cordonnx/pkg/telematics"
	"github.com/rs/zerolog/log"
)

// VehicleSource resolves devices to their directory record and
// configured speed limit.
type VehicleSource interface {
	Lookup(ctx context.Context, imei string) *telematics.VehicleInfo
	SpeedLimit(ctx context.Context, imei string) float64
}

// HistoryReader reads back stored location packets for the stateful
// checks (idle duration, ignition transitions).
type HistoryReader interface {
	// RecentLocations returns location packets since the given instant,
	// newest first.
	RecentLocations(ctx context.Context, imei string, since time.Time) ([]telematics.Packet, error)
	LatestLocation(ctx context.Context, imei string) (*telematics.Packet, error)
}

// LockStore answers whether a notification for (imei, type) is inside
// its cool-down window.
type LockStore interface {
	Locked(ctx context.Context, imei string, alertType telematics.AlertType) (bool, error)
}

// EventStore persists raised alert events.
type EventStore interface {
	SaveEvent(ctx context.Context, event *telematics.AlertEvent) error
}

// GeofenceSource loads the fences configured for a company.
type GeofenceSource interface {
	ForCompany(ctx context.Context, company string) ([]telematics.Geofence, error)
}

// UserSource resolves the users of a company subscribed to an alert
// type.
type UserSource interface {
	Subscribers(ctx context.Context, company string, alertType telematics.AlertType) ([]telematics.Recipient, error)
}

// Publisher is the outbound notification queue. Satisfied by
// rmq.Queue.
type Publisher interface {
	PublishBytes(payload ...[]byte) error
}

// Engine evaluates every decoded location and emergency packet against
// the alert conditions and fans raised events out to subscribed users.
// Each condition is evaluated independently so one failing check never
// suppresses the others.
type Engine struct {
	Vehicles  VehicleSource
	History   HistoryReader
	Locks     LockStore
	Events    EventStore
	Geofences GeofenceSource
	Users     UserSource
	Publisher Publisher

	Now func() time.Time

	mu            sync.Mutex
	ignitionState map[string]bool
	idleBucket    map[string]string
	geofenceState map[string]map[string]bool
}

func NewEngine(vehicles VehicleSource, history HistoryReader, locks LockStore, events EventStore, geofences GeofenceSource, users UserSource, publisher Publisher) *Engine {
	return &Engine{
		Vehicles:  vehicles,
		History:   history,
		Locks:     locks,
		Events:    events,
		Geofences: geofences,
		Users:     users,
		Publisher: publisher,

		Now: time.Now,

		ignitionState: map[string]bool{},
		idleBucket:    map[string]string{},
		geofenceState: map[string]map[string]bool{},
	}
}

// Evaluate runs every alert condition against the packet. Packets from
// devices missing from the vehicle directory are skipped, there is no
// company to deliver to.
func (e *Engine) Evaluate(ctx context.Context, packet *telematics.Packet) {
	vehicle := e.Vehicles.Lookup(ctx, packet.IMEI)
	if vehicle == nil {
		return
	}

	var events []telematics.AlertEvent

	events = append(events, e.checkThresholds(ctx, packet)...)
	events = append(events, e.checkIdle(ctx, packet)...)
	events = append(events, e.checkIgnition(ctx, packet)...)
	events = append(events, e.checkGeofences(ctx, packet, vehicle)...)

	for i := range events {
		e.dispatch(ctx, &events[i], vehicle)
	}
}

func (e *Engine) newEvent(packet *telematics.Packet, alertType telematics.AlertType, message string) telematics.AlertEvent {
	event := telematics.AlertEvent{
		Type:               alertType,
		IMEI:               packet.IMEI,
		LicensePlateNumber: packet.LicensePlateNumber,
		Timestamp:          packet.Timestamp,
		CreatedAt:          e.Now(),
		Message:            message,
	}

	if packet.GPS != nil {
		event.Latitude = packet.GPS.Latitude
		event.Longitude = packet.GPS.Longitude
	}
	if packet.Telemetry != nil {
		event.Speed = packet.Telemetry.Speed
	}

	return event
}

// dispatch persists the event and, unless the (imei, type) pair is
// inside its cool-down, queues a notification for the subscribed
// users. The event row is written regardless so reporting keeps every
// occurrence.
func (e *Engine) dispatch(ctx context.Context, event *telematics.AlertEvent, vehicle *telematics.VehicleInfo) {
	stats.AlertsRaised.WithLabelValues(string(event.Type)).Inc()

	if err := e.Events.SaveEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("imei", event.IMEI).Str("type", string(event.Type)).Msg("Failed to save alert event")
	}

	locked, err := e.Locks.Locked(ctx, event.IMEI, event.Type)
	if err != nil {
		log.Error().Err(err).Str("imei", event.IMEI).Str("type", string(event.Type)).Msg("Failed to check alert lock")
		return
	}
	if locked {
		return
	}

	recipients, err := e.Users.Subscribers(ctx, vehicle.CompanyName, event.Type)
	if err != nil {
		log.Error().Err(err).Str("company", vehicle.CompanyName).Msg("Failed to load alert subscribers")
		return
	}
	if len(recipients) == 0 {
		return
	}

	notification := telematics.Notification{
		Event:      *event,
		Label:      alertLabel(event.Type),
		Company:    vehicle.CompanyName,
		Recipients: recipients,
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal notification")
		return
	}

	if err := e.Publisher.PublishBytes(payload); err != nil {
		log.Error().Err(err).Str("imei", event.IMEI).Str("type", string(event.Type)).Msg("Failed to queue notification")
	}
}

func alertLabel(alertType telematics.AlertType) string {
	switch alertType {
	case telematics.AlertTypeSpeeding:
		return "Speeding"
	case telematics.AlertTypeHarshBrake:
		return "Harsh Braking"
	case telematics.AlertTypeHarshAcceleration:
		return "Harsh Acceleration"
	case telematics.AlertTypeGSMSignalLow:
		return "Low GSM Signal"
	case telematics.AlertTypeInternalBatteryLow:
		return "Low Internal Battery"
	case telematics.AlertTypeMainPowerLost:
		return "Main Power Disconnected"
	case telematics.AlertTypeSOS:
		return "SOS"
	case telematics.AlertTypeIdle:
		return "Vehicle Idle"
	case telematics.AlertTypeIgnitionOn:
		return "Ignition On"
	case telematics.AlertTypeIgnitionOff:
		return "Ignition Off"
	case telematics.AlertTypeGeofenceIn:
		return "Geofence Entry"
	case telematics.AlertTypeGeofenceOut:
		return "Geofence Exit"
	}
	return string(alertType)
}
