package sink

import (
	"time"

	"github.com/cordonnx/cordonnx/pkg/telematics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Insert builds an append write for the history style collections.
func Insert(document interface{}) mongo.WriteModel {
	return mongo.NewInsertOneModel().SetDocument(document)
}

// UpsertLatest builds the per-vehicle latest position upsert. The row
// is keyed on _id = IMEI so each device holds exactly one document.
func UpsertLatest(packet *telematics.Packet) mongo.WriteModel {
	return mongo.NewReplaceOneModel().
		SetFilter(bson.M{"_id": packet.IMEI}).
		SetReplacement(packet).
		SetUpsert(true)
}

// RawLogEntry is the as-received frame kept for a vendor debugging
// window. The timestamp carries the collection's TTL index.
type RawLogEntry struct {
	IMEI      string    `bson:"imei"`
	Raw       string    `bson:"raw"`
	Timestamp time.Time `bson:"timestamp"`
}

func RawLog(imei string, raw string, receivedAt time.Time) mongo.WriteModel {
	return Insert(RawLogEntry{
		IMEI:      imei,
		Raw:       raw,
		Timestamp: receivedAt,
	})
}
