package telematics

import "time"

type AlertType string

const (
	AlertTypeSpeeding           AlertType = "speeding_alerts"
	AlertTypeHarshBrake         AlertType = "harsh_break_alerts"
	AlertTypeHarshAcceleration  AlertType = "harsh_acceleration_alerts"
	AlertTypeGSMSignalLow       AlertType = "gsm_low_alerts"
	AlertTypeInternalBatteryLow AlertType = "internal_battery_low_alerts"
	AlertTypeMainPowerLost      AlertType = "main_power_supply"
	AlertTypeSOS                AlertType = "sos_alerts"
	AlertTypeIdle               AlertType = "idle_alerts"
	AlertTypeIgnitionOn         AlertType = "ignition_on_alerts"
	AlertTypeIgnitionOff        AlertType = "ignition_off_alerts"
	AlertTypeGeofenceIn         AlertType = "geofence_in_alerts"
	AlertTypeGeofenceOut        AlertType = "geofence_out_alerts"
)

// AlertEvent is the persisted record of one alert occurrence.
type AlertEvent struct {
	Type               AlertType `bson:"type"`
	IMEI               string    `bson:"imei"`
	LicensePlateNumber string    `bson:"licenseplatenumber,omitempty"`

	Latitude  *float64  `bson:"latitude,omitempty"`
	Longitude *float64  `bson:"longitude,omitempty"`
	Speed     *float64  `bson:"speed,omitempty"`
	Timestamp time.Time `bson:"date_time"` // device GPS instant
	CreatedAt time.Time `bson:"timestamp"` // server instant

	Message      string `bson:"message,omitempty"`
	GeofenceName string `bson:"geofencename,omitempty"`
}

// Notification is one outbound delivery request produced by alert
// fan-out and consumed by the notify service.
type Notification struct {
	Event      AlertEvent  `json:"event"`
	Label      string      `json:"label"`
	Company    string      `json:"company"`
	Recipients []Recipient `json:"recipients"`
}

type Recipient struct {
	UserID   string `json:"userid"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AlertLock suppresses duplicate notifications for (imei, type) within
// the cool-down window. Rows are written on successful delivery only.
type AlertLock struct {
	IMEI               string    `bson:"imei"`
	Type               AlertType `bson:"type"`
	LicensePlateNumber string    `bson:"licenseplatenumber,omitempty"`
	LastSent           time.Time `bson:"last_sent"`
}
