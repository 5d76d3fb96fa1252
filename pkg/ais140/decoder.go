package ais140

import (
	"context"
	"strings"
	"time"

	"github.com/cordonnx/cordonnx/pkg/canbus"
	"github.com/cordonnx/cordonnx/pkg/telematics"
	"github.com/rs/zerolog/log"
)

// sosPacketID marks panic-button location frames.
const sosPacketID = "10"

// canPacketID marks the CAN-extended location frame variant.
const canPacketID = "2000"

// minLocationFields is the shortest field count a location frame can
// have across the supported revisions.
const minLocationFields = 41

// healthFieldCount identifies a health frame in the Header dialect.
const healthFieldCount = 13

// CANHandler decodes embedded CAN frames into named signal values and
// maintains the per-vehicle signal state.
type CANHandler interface {
	HandleFrames(ctx context.Context, imei string, frames []canbus.Frame, timestamp time.Time) (map[string]interface{}, error)
}

// Decoder turns complete wire frames into packets. Decode is total: a
// frame it cannot make sense of comes back as an Unknown packet, never
// an error.
type Decoder struct {
	Odometer OdometerStore
	CAN      CANHandler

	// Now is replaceable in tests.
	Now func() time.Time
}

func NewDecoder(odometer OdometerStore, can CANHandler) *Decoder {
	return &Decoder{
		Odometer: odometer,
		CAN:      can,
		Now:      time.Now,
	}
}

func (d *Decoder) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// Decode parses one framed packet.
func (d *Decoder) Decode(ctx context.Context, raw string) *telematics.Packet {
	ingested := d.now()

	packet := &telematics.Packet{
		Type:       telematics.PacketTypeUnknown,
		Timestamp:  ingested,
		IngestedAt: ingested,
		Raw:        raw,
	}

	frame := strings.TrimSpace(raw)
	if !strings.HasPrefix(frame, "$") {
		return packet
	}

	// Some firmware runs the header into the start marker ("$CP,..."),
	// some separates it ("$Header,..." arrives pre-split). Normalise so
	// field 1 is always the header and the documented indices hold.
	if len(frame) > 1 && frame[1] != ',' {
		frame = "$," + frame[1:]
	}

	frame = strings.TrimSuffix(frame, "*")

	parts := strings.Split(frame, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) < 2 {
		return packet
	}

	header := parts[1]

	switch {
	case (header == "CP" || header == "Header") && len(parts) >= minLocationFields:
		d.decodeLocation(ctx, parts, packet)
	case header == "HP" || (header == "Header" && len(parts) == healthFieldCount):
		decodeHealth(parts, packet)
	case header == "EPB":
		decodeEmergency(parts, packet)
	}

	return packet
}

func field(parts []string, index int) string {
	if index < 0 || index >= len(parts) {
		return ""
	}
	return parts[index]
}

func (d *Decoder) decodeLocation(ctx context.Context, parts []string, packet *telematics.Packet) {
	fields := &standardLocationFields
	if field(parts, standardLocationFields.PacketID) == canPacketID {
		fields = &canLocationFields
	}

	packet.Type = telematics.PacketTypeLocation
	packet.IMEI = field(parts, fields.IMEI)
	packet.LicensePlateNumber = field(parts, fields.VRN)
	packet.Vendor = field(parts, fields.Vendor)
	packet.Firmware = field(parts, fields.Firmware)

	packet.Packet = &telematics.PacketMeta{
		Type:        field(parts, fields.PacketType),
		ID:          field(parts, fields.PacketID),
		Status:      field(parts, fields.PacketStatus),
		FrameNumber: toInt(field(parts, fields.FrameNumber)),
	}

	dateRaw := field(parts, fields.Date)
	timeRaw := field(parts, fields.Time)
	deviceTime := parseDeviceTime(dateRaw, timeRaw)
	if deviceTime != nil {
		packet.Timestamp = *deviceTime
	}

	lat := toFloat(field(parts, fields.Lat))
	lon := toFloat(field(parts, fields.Lon))
	if lat != nil {
		v := nmeaToDegrees(*lat)
		lat = &v
	}
	if lon != nil {
		v := nmeaToDegrees(*lon)
		lon = &v
	}
	latHemi := field(parts, fields.LatHemi)
	lonHemi := field(parts, fields.LonHemi)
	lat, lon = signedCoordinates(lat, latHemi, lon, lonHemi)

	packet.GPS = &telematics.GPSData{
		Date:       padLeft(dateRaw, 8),
		Time:       padLeft(timeRaw, 6),
		Timestamp:  deviceTime,
		Status:     toInt(field(parts, fields.Fix)),
		Latitude:   lat,
		Longitude:  lon,
		LatHemi:    latHemi,
		LonHemi:    lonHemi,
		Heading:    toFloat(field(parts, fields.Heading)),
		Satellites: toInt(field(parts, fields.Satellites)),
		Altitude:   toFloat(field(parts, fields.Altitude)),
		PDOP:       toFloat(field(parts, fields.PDOP)),
		HDOP:       toFloat(field(parts, fields.HDOP)),
	}

	packet.Telemetry = &telematics.TelemetryData{
		Speed:                  toFloat(field(parts, fields.Speed)),
		Ignition:               toInt(field(parts, fields.Ignition)),
		MainPower:              toInt(field(parts, fields.MainPower)),
		MainBatteryVoltage:     toFloat(field(parts, fields.MainBatteryV)),
		InternalBatteryVoltage: toFloat(field(parts, fields.InternalBattV)),
		EmergencyStatus:        toInt(field(parts, fields.EmergencyStatus)),
		Tamper:                 field(parts, fields.Tamper),
	}

	packet.Network = &telematics.NetworkData{
		Operator:  field(parts, fields.Operator),
		GSMSignal: toInt(field(parts, fields.GSMSignal)),
		MCC:       toInt(field(parts, fields.MCC)),
		MNC:       toInt(field(parts, fields.MNC)),
		LAC:       field(parts, fields.LAC),
		CellID:    field(parts, fields.CellID),
		Neighbors: parseNeighbors(parts, fields.NeighborsStart, fields.NeighborsEnd),
	}

	packet.IO = &telematics.IOData{
		DigitalInputs:  field(parts, fields.DigitalInputs),
		DigitalOutputs: field(parts, fields.DigitalOutputs),
		Analog1:        toFloat(field(parts, fields.Analog1)),
		Analog2:        toFloat(field(parts, fields.Analog2)),
	}

	packet.DataTypeIndicator = field(parts, fields.DataTypeIndicator)
	packet.Checksum = strings.TrimSpace(strings.ReplaceAll(field(parts, fields.Checksum), "*", ""))

	var canAbsoluteKm *float64
	if fields.CANPayload != -1 && d.CAN != nil {
		frames := canbus.ExtractFrames(field(parts, fields.CANPayload))
		if len(frames) > 0 {
			signals, err := d.CAN.HandleFrames(ctx, packet.IMEI, frames, packet.Timestamp)
			if err != nil {
				log.Error().Err(err).Str("imei", packet.IMEI).Msg("CAN decode failed")
			} else if len(signals) > 0 {
				packet.CAN = signals
				if km, ok := signals["odometer_km"].(float64); ok {
					canAbsoluteKm = &km
				}
			}
		}
	}

	ignitionOn := packet.Telemetry.Ignition != nil && *packet.Telemetry.Ignition == 1
	packet.Telemetry.OdometerKm = d.resolveOdometer(ctx, packet.IMEI,
		toFloat(field(parts, fields.OdometerDelta)), canAbsoluteKm, ignitionOn)
}

// parseNeighbors reads the repeating (signal, lac, cellId) triplets of
// the neighbor-cell slice. Short or ragged slices yield what they can.
func parseNeighbors(parts []string, start int, end int) []telematics.NeighborCell {
	if start < 0 {
		return nil
	}
	if end > len(parts) {
		end = len(parts)
	}

	var neighbors []telematics.NeighborCell
	for i := start; i+2 < end; i += 3 {
		cellID := parts[i+2]
		if cellID == "" {
			continue
		}

		neighbors = append(neighbors, telematics.NeighborCell{
			GSMSignal: toInt(parts[i]),
			LAC:       parts[i+1],
			CellID:    cellID,
		})
	}

	return neighbors
}

func decodeHealth(parts []string, packet *telematics.Packet) {
	packet.Type = telematics.PacketTypeHealth
	packet.IMEI = field(parts, healthFields.IMEI)
	packet.Vendor = field(parts, healthFields.Vendor)
	packet.Firmware = field(parts, healthFields.Firmware)

	packet.Health = &telematics.HealthData{
		BatteryLevel:        toFloat(field(parts, healthFields.BatteryLevel)),
		LowBatteryThreshold: toFloat(field(parts, healthFields.LowBattThresh)),
		MemoryUsage:         toFloat(field(parts, healthFields.MemoryUsage)),
		UpdateRate: telematics.HealthRates{
			IgnitionOnSec:  toFloat(field(parts, healthFields.IgnOnRate)),
			IgnitionOffSec: toFloat(field(parts, healthFields.IgnOffRate)),
		},
		DigitalInputs: field(parts, healthFields.DigitalInputs),
		Analog1:       toFloat(field(parts, healthFields.Analog1)),
		Analog2:       toFloat(field(parts, healthFields.Analog2)),
	}
}

func decodeEmergency(parts []string, packet *telematics.Packet) {
	packet.Type = telematics.PacketTypeEmergency
	packet.IMEI = field(parts, emergencyFields.IMEI)
	packet.LicensePlateNumber = field(parts, emergencyFields.VRN)

	if deviceTime := parseCompactTime(field(parts, emergencyFields.DateTime)); deviceTime != nil {
		packet.Timestamp = *deviceTime
	}

	lat := toFloat(field(parts, emergencyFields.Lat))
	lon := toFloat(field(parts, emergencyFields.Lon))
	lat, lon = signedCoordinates(lat,
		field(parts, emergencyFields.LatHemi), lon, field(parts, emergencyFields.LonHemi))

	packet.Emergency = &telematics.EmergencyData{
		MessageType: field(parts, emergencyFields.MessageType),
		PacketType:  field(parts, emergencyFields.PacketType),
		GPSValid:    field(parts, emergencyFields.GPSValid),
	}
	packet.GPS = &telematics.GPSData{
		Latitude:  lat,
		Longitude: lon,
		Heading:   toFloat(field(parts, emergencyFields.Heading)),
	}
	packet.Telemetry = &telematics.TelemetryData{
		Speed: toFloat(field(parts, emergencyFields.Speed)),
	}
}
