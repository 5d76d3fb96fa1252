package ais140

import (
	"context"
	"errors"

	"github.com/cordonnx/cordonnx/pkg/database"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OdometerStore holds the last known cumulative odometer per IMEI.
//
// Updates are plain read-then-write: one connection serves one device,
// so the same IMEI is never written concurrently. If that assumption
// ever changes this needs per-key locking.
type OdometerStore interface {
	Last(ctx context.Context, imei string) (float64, error)
	Set(ctx context.Context, imei string, km float64) error
}

// MongoOdometerStore keeps odometer state in the vehicle_odometer
// collection, one document per IMEI.
type MongoOdometerStore struct{}

func (MongoOdometerStore) Last(ctx context.Context, imei string) (float64, error) {
	var record struct {
		Odometer float64 `bson:"odometer"`
	}

	collection := database.GetCollection("vehicle_odometer")
	err := collection.FindOne(ctx, bson.M{"imei": imei}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return record.Odometer, nil
}

func (MongoOdometerStore) Set(ctx context.Context, imei string, km float64) error {
	collection := database.GetCollection("vehicle_odometer")
	_, err := collection.UpdateOne(ctx,
		bson.M{"imei": imei},
		bson.M{"$set": bson.M{"odometer": km}},
		options.Update().SetUpsert(true))

	return err
}

// resolveOdometer reconciles this packet against the stored cumulative
// odometer: a CAN absolute reading wins while the ignition is on,
// otherwise the device-reported delta (metres) is added to the stored
// value.
func (d *Decoder) resolveOdometer(ctx context.Context, imei string, deltaMetres *float64, canAbsoluteKm *float64, ignitionOn bool) float64 {
	if d.Odometer == nil {
		return 0
	}

	if canAbsoluteKm != nil && ignitionOn {
		km := roundKm(*canAbsoluteKm)
		if err := d.Odometer.Set(ctx, imei, km); err != nil {
			log.Error().Err(err).Str("imei", imei).Msg("Failed to store odometer")
		}
		return km
	}

	last, err := d.Odometer.Last(ctx, imei)
	if err != nil {
		log.Error().Err(err).Str("imei", imei).Msg("Failed to read odometer")
		return 0
	}

	km := last
	if deltaMetres != nil {
		km = roundKm(last + *deltaMetres/1000)
	}

	if err := d.Odometer.Set(ctx, imei, km); err != nil {
		log.Error().Err(err).Str("imei", imei).Msg("Failed to store odometer")
	}

	return km
}
