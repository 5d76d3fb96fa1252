package telematics

// VehicleInfo is the read-only directory record for one device, looked
// up by IMEI from the vehicle inventory.
type VehicleInfo struct {
	IMEI               string `bson:"IMEI" json:"imei"`
	LicensePlateNumber string `bson:"LicensePlateNumber" json:"licenseplatenumber"`
	VehicleType        string `bson:"VehicleType" json:"vehicletype"`
	CompanyName        string `bson:"CompanyName" json:"companyname"`

	// Speed thresholds as stored: strings in the inventory, parsed on
	// use with defaults 40/60.
	SlowSpeed   string `bson:"slowSpeed" json:"slowspeed"`
	NormalSpeed string `bson:"normalSpeed" json:"normalspeed"`

	// CANProfile names the decode profile for the CAN-extended dialect,
	// empty for vehicles without a configured profile.
	CANProfile string `bson:"vehicle_profile" json:"canprofile"`
}

// User is a fleet user eligible for alert notifications.
type User struct {
	ID       string `bson:"_id"`
	Username string `bson:"username"`
	Email    string `bson:"email"`
	Company  string `bson:"company"`
	Disabled bool   `bson:"disabled"`
}

// UserConfig carries the per-user alert subscription list.
type UserConfig struct {
	UserID string   `bson:"userID"`
	Alerts []string `bson:"alerts"`
}
