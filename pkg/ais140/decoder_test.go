package ais140

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/cordonnx/cordonnx/pkg/canbus"
	"github.com/cordonnx/cordonnx/pkg/telematics"
)

type fakeOdometer struct {
	values map[string]float64
}

func newFakeOdometer() *fakeOdometer {
	return &fakeOdometer{values: map[string]float64{}}
}

func (s *fakeOdometer) Last(ctx context.Context, imei string) (float64, error) {
	return s.values[imei], nil
}

func (s *fakeOdometer) Set(ctx context.Context, imei string, km float64) error {
	s.values[imei] = km
	return nil
}

type fakeCANHandler struct {
	signals map[string]interface{}
}

func (h *fakeCANHandler) HandleFrames(ctx context.Context, imei string, frames []canbus.Frame, timestamp time.Time) (map[string]interface{}, error) {
	return h.signals, nil
}

func newTestDecoder(odometer OdometerStore, can CANHandler) *Decoder {
	decoder := NewDecoder(odometer, can)
	decoder.Now = func() time.Time {
		return time.Date(2025, 1, 17, 10, 31, 0, 0, time.UTC)
	}
	return decoder
}

// classicLocationFrame is a Table 4/5 layout frame: live packet,
// valid fix at 18°30.5'N 73°45.25'E doing 45 km/h with ignition on.
const classicLocationFrame = "$CP,ACME,1.0.3,NR,1,L,123456789012345,MH12AB1234,1," +
	"17012025,103045,1830.500,N,7345.250,E,45.0,180,12,560.0,1.2,0.9," +
	"AIRTEL,1,1,12.5,4.1,0,C,25,404,45,1A2B,0F3C," +
	"20,1A2B,1111,18,1A2B,2222,15,1A2C,3333,12,1A2C,," +
	"0001,0000,123,0.0,0.0,250,*3F"

func approxEqual(a float64, b float64) bool {
	return math.Abs(a-b) < 0.0001
}

func TestDecodeClassicLocation(t *testing.T) {
	t.Parallel()

	decoder := newTestDecoder(newFakeOdometer(), nil)

	packet := decoder.Decode(context.Background(), classicLocationFrame)

	if packet.Type != telematics.PacketTypeLocation {
		t.Fatalf("type = %s", packet.Type)
	}
	if packet.IMEI != "123456789012345" {
		t.Errorf("imei = %q", packet.IMEI)
	}
	if packet.LicensePlateNumber != "MH12AB1234" {
		t.Errorf("vrn = %q", packet.LicensePlateNumber)
	}
	if packet.Vendor != "ACME" || packet.Firmware != "1.0.3" {
		t.Errorf("vendor/firmware = %q/%q", packet.Vendor, packet.Firmware)
	}

	want := time.Date(2025, 1, 17, 10, 30, 45, 0, time.UTC)
	if !packet.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", packet.Timestamp, want)
	}

	if !packet.HasValidFix() {
		t.Fatal("expected a valid fix")
	}
	if !approxEqual(*packet.GPS.Latitude, 18.5083) {
		t.Errorf("latitude = %v, want ~18.5083", *packet.GPS.Latitude)
	}
	if !approxEqual(*packet.GPS.Longitude, 73.7542) {
		t.Errorf("longitude = %v, want ~73.7542", *packet.GPS.Longitude)
	}

	if packet.Speed() != 45 {
		t.Errorf("speed = %v", packet.Speed())
	}
	if on, known := packet.IgnitionOn(); !known || !on {
		t.Errorf("ignition = %v/%v", on, known)
	}

	if packet.Network == nil || *packet.Network.GSMSignal != 25 {
		t.Errorf("network = %+v", packet.Network)
	}
	// The ragged fourth triplet has no cell id and is skipped.
	if len(packet.Network.Neighbors) != 3 {
		t.Fatalf("neighbors = %+v", packet.Network.Neighbors)
	}
	first := packet.Network.Neighbors[0]
	if *first.GSMSignal != 20 || first.LAC != "1A2B" || first.CellID != "1111" {
		t.Errorf("first neighbor = %+v", first)
	}

	if packet.Checksum != "3F" {
		t.Errorf("checksum = %q", packet.Checksum)
	}
	if *packet.Packet.FrameNumber != 123 {
		t.Errorf("frame number = %v", packet.Packet.FrameNumber)
	}
}

func TestDecodeSouthWestHemispheres(t *testing.T) {
	t.Parallel()

	decoder := newTestDecoder(newFakeOdometer(), nil)

	frame := strings.Replace(classicLocationFrame, ",N,", ",S,", 1)
	frame = strings.Replace(frame, ",E,", ",W,", 1)

	packet := decoder.Decode(context.Background(), frame)

	if *packet.GPS.Latitude >= 0 || *packet.GPS.Longitude >= 0 {
		t.Errorf("coordinates = %v, %v, want both negative",
			*packet.GPS.Latitude, *packet.GPS.Longitude)
	}
}

func TestDecodeTimestampFallsBackToIngest(t *testing.T) {
	t.Parallel()

	decoder := newTestDecoder(newFakeOdometer(), nil)

	frame := strings.Replace(classicLocationFrame, "17012025,103045", "garbage,103045", 1)
	packet := decoder.Decode(context.Background(), frame)

	want := time.Date(2025, 1, 17, 10, 31, 0, 0, time.UTC)
	if !packet.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want ingest instant %v", packet.Timestamp, want)
	}
	if packet.GPS.Timestamp != nil {
		t.Errorf("gps timestamp = %v, want nil", packet.GPS.Timestamp)
	}
}

func TestDecodeIsTotal(t *testing.T) {
	t.Parallel()

	decoder := newTestDecoder(newFakeOdometer(), nil)

	frames := []string{
		"",
		"garbage",
		"$",
		"$,",
		"$CP",
		"$CP,too,short",
		"$XX," + strings.Repeat("x,", 60),
		strings.Repeat(",", 100),
	}

	for _, frame := range frames {
		packet := decoder.Decode(context.Background(), frame)
		if packet == nil {
			t.Fatalf("Decode(%q) returned nil", frame)
		}
		if packet.Type != telematics.PacketTypeUnknown {
			t.Errorf("Decode(%q) type = %s, want UNKNOWN", frame, packet.Type)
		}
	}
}

func TestDecodeHealth(t *testing.T) {
	t.Parallel()

	decoder := newTestDecoder(newFakeOdometer(), nil)

	packet := decoder.Decode(context.Background(),
		"$HP,ACME,1.0.3,123456789012345,95,20,60,120,300,0001,0.0,4.2")

	if packet.Type != telematics.PacketTypeHealth {
		t.Fatalf("type = %s", packet.Type)
	}
	if packet.IMEI != "123456789012345" {
		t.Errorf("imei = %q", packet.IMEI)
	}
	if *packet.Health.BatteryLevel != 95 {
		t.Errorf("battery = %v", *packet.Health.BatteryLevel)
	}
	if *packet.Health.UpdateRate.IgnitionOnSec != 120 {
		t.Errorf("ignition on rate = %v", *packet.Health.UpdateRate.IgnitionOnSec)
	}
}

func TestDecodeEmergency(t *testing.T) {
	t.Parallel()

	decoder := newTestDecoder(newFakeOdometer(), nil)

	packet := decoder.Decode(context.Background(),
		"$EPB,EMR,123456789012345,NM,17012025103045,A,18.508333,N,73.754166,E,180,0.0,0,0,MH12AB1234")

	if packet.Type != telematics.PacketTypeEmergency {
		t.Fatalf("type = %s", packet.Type)
	}
	if packet.Emergency.MessageType != "EMR" || packet.Emergency.GPSValid != "A" {
		t.Errorf("emergency = %+v", packet.Emergency)
	}

	want := time.Date(2025, 1, 17, 10, 30, 45, 0, time.UTC)
	if !packet.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v", packet.Timestamp)
	}
	if !approxEqual(*packet.GPS.Latitude, 18.508333) {
		t.Errorf("latitude = %v", *packet.GPS.Latitude)
	}
}

func TestDecodeOdometerAccumulatesDelta(t *testing.T) {
	t.Parallel()

	odometer := newFakeOdometer()
	odometer.values["123456789012345"] = 120

	decoder := newTestDecoder(odometer, nil)

	packet := decoder.Decode(context.Background(), classicLocationFrame)
	if packet.Telemetry.OdometerKm != 120.25 {
		t.Errorf("odometer = %v, want 120.25", packet.Telemetry.OdometerKm)
	}

	packet = decoder.Decode(context.Background(), classicLocationFrame)
	if packet.Telemetry.OdometerKm != 120.5 {
		t.Errorf("odometer after second delta = %v, want 120.5", packet.Telemetry.OdometerKm)
	}
}

func TestDecodeCANLocation(t *testing.T) {
	t.Parallel()

	odometer := newFakeOdometer()
	odometer.values["123456789012345"] = 120

	can := &fakeCANHandler{signals: map[string]interface{}{
		"engine_rpm":  800.0,
		"odometer_km": 1234.567,
	}}

	decoder := newTestDecoder(odometer, can)

	frame := "$CP,ACME,1.0.3,NR,2000,L,123456789012345,MH12AB1234,1," +
		"17012025,103045,1830.500,N,7345.250,E,45.0,180,12,560.0,1.2,0.9," +
		"AIRTEL,1,1,12.5,4.1,0,C,25,404,45,1A2B,0F3C," +
		"0001,0000,123,0.0,0.0,250,02," +
		"02|170125103000|0CF00400:FFFFFF0019FFFFFF*3A"

	packet := decoder.Decode(context.Background(), frame)

	if packet.Type != telematics.PacketTypeLocation {
		t.Fatalf("type = %s", packet.Type)
	}
	if packet.CAN["engine_rpm"] != 800.0 {
		t.Errorf("can signals = %+v", packet.CAN)
	}
	if packet.DataTypeIndicator != "02" {
		t.Errorf("data type indicator = %q", packet.DataTypeIndicator)
	}
	// Ignition on, the CAN absolute reading replaces the stored value.
	if packet.Telemetry.OdometerKm != 1234.57 {
		t.Errorf("odometer = %v, want 1234.57", packet.Telemetry.OdometerKm)
	}
	if odometer.values["123456789012345"] != 1234.57 {
		t.Errorf("stored odometer = %v", odometer.values["123456789012345"])
	}
}

func TestNmeaToDegrees(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  float64
		want float64
	}{
		{1830.500, 18.508333},
		{7345.250, 73.754166},
		{0, 0},
		{30.0, 0.5},
	}

	for _, test := range tests {
		if got := nmeaToDegrees(test.raw); !approxEqual(got, test.want) {
			t.Errorf("nmeaToDegrees(%v) = %v, want %v", test.raw, got, test.want)
		}
	}
}
