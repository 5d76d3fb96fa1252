package telematics

import "time"

type PacketType string

const (
	PacketTypeLocation  PacketType = "LOCATION"
	PacketTypeHealth    PacketType = "HEALTH"
	PacketTypeEmergency PacketType = "EMERGENCY"
	PacketTypeUnknown   PacketType = "UNKNOWN"
)

// Packet is the decoded form of one wire frame and doubles as the
// history/latest sink document. The optional sub-records are nil when a
// frame variant does not carry them, so an emergency packet serialises
// with only gps/telemetry/emergency and a health packet with only
// health.
type Packet struct {
	Type PacketType `bson:"type"`

	IMEI               string `bson:"imei,omitempty"`
	LicensePlateNumber string `bson:"licenseplatenumber,omitempty"`

	// Timestamp is the device-reported instant where the frame carried
	// one, otherwise the server ingest instant.
	Timestamp  time.Time `bson:"timestamp"`
	IngestedAt time.Time `bson:"ingestedat"`

	Vendor   string `bson:"vendor,omitempty"`
	Firmware string `bson:"firmware,omitempty"`

	Packet    *PacketMeta    `bson:"packet,omitempty"`
	GPS       *GPSData       `bson:"gps,omitempty"`
	Telemetry *TelemetryData `bson:"telemetry,omitempty"`
	Network   *NetworkData   `bson:"network,omitempty"`
	IO        *IOData        `bson:"io,omitempty"`
	Health    *HealthData    `bson:"health,omitempty"`
	Emergency *EmergencyData `bson:"emergency,omitempty"`

	// CAN carries decoded signal values for the CAN-extended dialect.
	CAN map[string]interface{} `bson:"candata,omitempty"`

	DataTypeIndicator string `bson:"datatypeindicator,omitempty"`
	Checksum          string `bson:"checksum,omitempty"`

	Raw string `bson:"-"`
}

type PacketMeta struct {
	Type        string `bson:"type,omitempty"`
	ID          string `bson:"id,omitempty"`
	Status      string `bson:"status,omitempty"`
	FrameNumber *int   `bson:"framenumber,omitempty"`
}

type GPSData struct {
	Date      string     `bson:"date,omitempty"` // raw ddmmyyyy, zero-padded
	Time      string     `bson:"time,omitempty"` // raw hhmmss, zero-padded
	Timestamp *time.Time `bson:"timestamp,omitempty"`

	Status *int `bson:"gpsstatus,omitempty"` // 1 = valid fix

	Latitude   *float64 `bson:"lat,omitempty"`
	Longitude  *float64 `bson:"lon,omitempty"`
	LatHemi    string   `bson:"latdir,omitempty"`
	LonHemi    string   `bson:"londir,omitempty"`
	Heading    *float64 `bson:"heading,omitempty"`
	Satellites *int     `bson:"numsatellites,omitempty"`
	Altitude   *float64 `bson:"altitude,omitempty"`
	PDOP       *float64 `bson:"pdop,omitempty"`
	HDOP       *float64 `bson:"hdop,omitempty"`
}

type TelemetryData struct {
	Speed                  *float64 `bson:"speed,omitempty"`
	Ignition               *int     `bson:"ignition,omitempty"`
	MainPower              *int     `bson:"mainpower,omitempty"`
	MainBatteryVoltage     *float64 `bson:"mainbatteryvoltage,omitempty"`
	InternalBatteryVoltage *float64 `bson:"internalbatteryvoltage,omitempty"`
	EmergencyStatus        *int     `bson:"emergencystatus,omitempty"`
	Tamper                 string   `bson:"tamper,omitempty"`

	// OdometerKm is the cumulative odometer after reconciling this
	// packet against the stored per-device odometer state.
	OdometerKm float64 `bson:"odometer"`
}

type NetworkData struct {
	Operator  string         `bson:"operator,omitempty"`
	GSMSignal *int           `bson:"gsmsignal,omitempty"`
	MCC       *int           `bson:"mcc,omitempty"`
	MNC       *int           `bson:"mnc,omitempty"`
	LAC       string         `bson:"lac,omitempty"`
	CellID    string         `bson:"cellid,omitempty"`
	Neighbors []NeighborCell `bson:"neighbors,omitempty"`
}

// NeighborCell is one entry of the repeating (signal, lac, cellId)
// triplet list in the location packet tail.
type NeighborCell struct {
	CellID    string `bson:"cellid"`
	LAC       string `bson:"lac"`
	GSMSignal *int   `bson:"nmr,omitempty"`
}

type IOData struct {
	DigitalInputs  string   `bson:"digitalinputs,omitempty"`
	DigitalOutputs string   `bson:"digitaloutputs,omitempty"`
	Analog1        *float64 `bson:"analog1,omitempty"`
	Analog2        *float64 `bson:"analog2,omitempty"`
}

type HealthData struct {
	BatteryLevel        *float64    `bson:"batterylevel,omitempty"`
	LowBatteryThreshold *float64    `bson:"lowbatterythresh,omitempty"`
	MemoryUsage         *float64    `bson:"memoryusage,omitempty"`
	UpdateRate          HealthRates `bson:"updaterate"`
	DigitalInputs       string      `bson:"digitalinputs,omitempty"`
	Analog1             *float64    `bson:"analoga1,omitempty"`
	Analog2             *float64    `bson:"analoga2,omitempty"`
}

type HealthRates struct {
	IgnitionOnSec  *float64 `bson:"ignonsec,omitempty"`
	IgnitionOffSec *float64 `bson:"ignoffsec,omitempty"`
}

type EmergencyData struct {
	MessageType string `bson:"messagetype,omitempty"` // EMR / SEM
	PacketType  string `bson:"packettype,omitempty"`  // NM / SP
	GPSValid    string `bson:"gpsvalid,omitempty"`
}

// HasValidFix reports whether this is a location packet with a usable
// GPS position.
func (p *Packet) HasValidFix() bool {
	if p.Type != PacketTypeLocation || p.GPS == nil {
		return false
	}
	return p.GPS.Status != nil && *p.GPS.Status == 1 && p.GPS.Latitude != nil && p.GPS.Longitude != nil
}

// Speed returns the reported speed or 0 when absent.
func (p *Packet) Speed() float64 {
	if p.Telemetry == nil || p.Telemetry.Speed == nil {
		return 0
	}
	return *p.Telemetry.Speed
}

// IgnitionOn reports the ignition state; the second return is false
// when the packet did not carry one.
func (p *Packet) IgnitionOn() (bool, bool) {
	if p.Telemetry == nil || p.Telemetry.Ignition == nil {
		return false, false
	}
	return *p.Telemetry.Ignition == 1, true
}
