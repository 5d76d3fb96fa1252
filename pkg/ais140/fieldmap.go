package ais140

// locationFieldMap names the positional fields of a location frame.
// Indices count from the start marker (field 0 is "$", field 1 the
// header); they are protocol-revision data, not code: a new firmware
// revision means a new map, not new parsing logic.
//
// An index of -1 marks a field the revision does not carry.
type locationFieldMap struct {
	Vendor   int
	Firmware int

	PacketType   int
	PacketID     int
	PacketStatus int

	IMEI int
	VRN  int

	Fix  int
	Date int
	Time int

	Lat     int
	LatHemi int
	Lon     int
	LonHemi int

	Speed      int
	Heading    int
	Satellites int
	Altitude   int
	PDOP       int
	HDOP       int

	Operator        int
	Ignition        int
	MainPower       int
	MainBatteryV    int
	InternalBattV   int
	EmergencyStatus int
	Tamper          int

	GSMSignal int
	MCC       int
	MNC       int
	LAC       int
	CellID    int

	// Neighbor cells appear as repeating (signal, lac, cellId)
	// triplets over [NeighborsStart, NeighborsEnd).
	NeighborsStart int
	NeighborsEnd   int

	// OdometerDelta is the incremental distance since the previous
	// packet, reported in metres.
	OdometerDelta int

	DigitalInputs  int
	DigitalOutputs int
	FrameNumber    int
	Analog1        int
	Analog2        int

	CANPayload        int
	DataTypeIndicator int
	Checksum          int
}

// standardLocationFields covers the plain location frame (Table 4/5
// layout) shared by the classic CP header and the newer Header dialect.
var standardLocationFields = locationFieldMap{
	Vendor:   2,
	Firmware: 3,

	PacketType:   4,
	PacketID:     5,
	PacketStatus: 6,

	IMEI: 7,
	VRN:  8,

	Fix:  9,
	Date: 10,
	Time: 11,

	Lat:     12,
	LatHemi: 13,
	Lon:     14,
	LonHemi: 15,

	Speed:      16,
	Heading:    17,
	Satellites: 18,
	Altitude:   19,
	PDOP:       20,
	HDOP:       21,

	Operator:        22,
	Ignition:        23,
	MainPower:       24,
	MainBatteryV:    25,
	InternalBattV:   26,
	EmergencyStatus: 27,
	Tamper:          28,

	GSMSignal: 29,
	MCC:       30,
	MNC:       31,
	LAC:       32,
	CellID:    33,

	NeighborsStart: 34,
	NeighborsEnd:   46,

	DigitalInputs:  46,
	DigitalOutputs: 47,
	FrameNumber:    48,
	Analog1:        49,
	Analog2:        50,
	OdometerDelta:  51,
	Checksum:       52,

	CANPayload:        -1,
	DataTypeIndicator: -1,
}

// canLocationFields covers the CAN-extended frame (packet id 2000):
// no neighbor list, IO block pulled forward, hex CAN payload at 41.
var canLocationFields = locationFieldMap{
	Vendor:   2,
	Firmware: 3,

	PacketType:   4,
	PacketID:     5,
	PacketStatus: 6,

	IMEI: 7,
	VRN:  8,

	Fix:  9,
	Date: 10,
	Time: 11,

	Lat:     12,
	LatHemi: 13,
	Lon:     14,
	LonHemi: 15,

	Speed:      16,
	Heading:    17,
	Satellites: 18,
	Altitude:   19,
	PDOP:       20,
	HDOP:       21,

	Operator:        22,
	Ignition:        23,
	MainPower:       24,
	MainBatteryV:    25,
	InternalBattV:   26,
	EmergencyStatus: 27,
	Tamper:          28,

	GSMSignal: 29,
	MCC:       30,
	MNC:       31,
	LAC:       32,
	CellID:    33,

	NeighborsStart: -1,
	NeighborsEnd:   -1,

	DigitalInputs:  34,
	DigitalOutputs: 35,
	FrameNumber:    36,
	Analog1:        37,
	Analog2:        38,
	OdometerDelta:  39,

	DataTypeIndicator: 40,
	CANPayload:        41,
	Checksum:          -1,
}

// emergencyFieldMap names the positional fields of an EPB frame.
type emergencyFieldMap struct {
	MessageType int
	IMEI        int
	PacketType  int
	DateTime    int
	GPSValid    int
	Lat         int
	LatHemi     int
	Lon         int
	LonHemi     int
	Heading     int
	Speed       int
	VRN         int
}

var emergencyFields = emergencyFieldMap{
	MessageType: 2,
	IMEI:        3,
	PacketType:  4,
	DateTime:    5,
	GPSValid:    6,
	Lat:         7,
	LatHemi:     8,
	Lon:         9,
	LonHemi:     10,
	Heading:     11,
	Speed:       12,
	VRN:         15,
}

// healthFieldMap names the positional fields of a health frame.
type healthFieldMap struct {
	Vendor        int
	Firmware      int
	IMEI          int
	BatteryLevel  int
	LowBattThresh int
	MemoryUsage   int
	IgnOnRate     int
	IgnOffRate    int
	DigitalInputs int
	Analog1       int
	Analog2       int
}

var healthFields = healthFieldMap{
	Vendor:        2,
	Firmware:      3,
	IMEI:          4,
	BatteryLevel:  5,
	LowBattThresh: 6,
	MemoryUsage:   7,
	IgnOnRate:     8,
	IgnOffRate:    9,
	DigitalInputs: 10,
	Analog1:       11,
	Analog2:       12,
}
