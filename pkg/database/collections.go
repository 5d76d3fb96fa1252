package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes() {
	createHistoryIndexes()
	createLatestIndexes()
	createRawLogIndexes()
	createAlertIndexes()
	createCANIndexes()
	createOdometerIndexes()
}

func createOdometerIndexes() {
	odometerCollection := GetCollection("vehicle_odometer")
	_, err := odometerCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "imei", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createHistoryIndexes() {
	historyCollection := GetCollection("ais140_history")
	historyIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "imei", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "imei", Value: 1}, {Key: "gps.timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "licenseplatenumber", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "gps.timestamp", Value: -1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := historyCollection.Indexes().CreateMany(context.Background(), historyIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	healthCollection := GetCollection("ais140_health")
	healthIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "imei", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}

	opts = options.CreateIndexes()
	_, err = healthCollection.Indexes().CreateMany(context.Background(), healthIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createLatestIndexes() {
	// Latest: one row per device, upserts keyed on _id = IMEI
	latestCollection := GetCollection("ais140_latest")
	_, err := latestCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "imei", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "gps.timestamp", Value: -1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createRawLogIndexes() {
	rawLogCollection := GetCollection("ais140_raw_log")
	_, err := rawLogCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(30 * 24 * 3600), // Expire after 30 days
		},
		{
			Keys: bson.D{{Key: "imei", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createAlertIndexes() {
	alertLocksCollection := GetCollection("alert_locks")
	_, err := alertLocksCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "imei", Value: 1}, {Key: "type", Value: 1}, {Key: "last_sent", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "last_sent", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(24 * 3600), // Expire after a day
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	sosLogsCollection := GetCollection("sos_logs")
	_, err = sosLogsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "imei", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createCANIndexes() {
	canStateCollection := GetCollection("vehicle_can_state")
	_, err := canStateCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "imei", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	canHistoryCollection := GetCollection("vehicle_can_history")
	_, err = canHistoryCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "imei", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
