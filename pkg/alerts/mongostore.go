package alerts

import (
	"context"
	"time"

	"github.com/cordonnx/cordonnx/pkg/database"
	"github.com/cordonnx/cordonnx/pkg/telematics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoHistory reads back the persisted packet stream.
type MongoHistory struct{}

func (h *MongoHistory) RecentLocations(ctx context.Context, imei string, since time.Time) ([]telematics.Packet, error) {
	historyCollection := database.GetCollection("ais140_history")

	opts := options.Find().SetSort(bson.M{"timestamp": -1})
	cursor, err := historyCollection.Find(ctx, bson.M{
		"imei":      imei,
		"type":      telematics.PacketTypeLocation,
		"timestamp": bson.M{"$gte": since},
	}, opts)
	if err != nil {
		return nil, err
	}

	var packets []telematics.Packet
	if err := cursor.All(ctx, &packets); err != nil {
		return nil, err
	}

	return packets, nil
}

func (h *MongoHistory) LatestLocation(ctx context.Context, imei string) (*telematics.Packet, error) {
	latestCollection := database.GetCollection("ais140_latest")

	var packet telematics.Packet
	err := latestCollection.FindOne(ctx, bson.M{"imei": imei}).Decode(&packet)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &packet, nil
}

// MongoLocks treats the presence of a lock row as inside the cool-down
// window. Rows are written by the notify service on delivery and
// expire through the collection's TTL index.
type MongoLocks struct{}

func (l *MongoLocks) Locked(ctx context.Context, imei string, alertType telematics.AlertType) (bool, error) {
	locksCollection := database.GetCollection("alert_locks")

	err := locksCollection.FindOne(ctx, bson.M{
		"imei": imei,
		"type": alertType,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// MongoEvents appends each event to the collection named after its
// alert type.
type MongoEvents struct{}

func (e *MongoEvents) SaveEvent(ctx context.Context, event *telematics.AlertEvent) error {
	eventsCollection := database.GetCollection(string(event.Type))

	_, err := eventsCollection.InsertOne(ctx, event)

	return err
}

type MongoGeofences struct{}

func (g *MongoGeofences) ForCompany(ctx context.Context, company string) ([]telematics.Geofence, error) {
	geofencesCollection := database.GetCollection("geofences")

	cursor, err := geofencesCollection.Find(ctx, bson.M{"company": company})
	if err != nil {
		return nil, err
	}

	var fences []telematics.Geofence
	if err := cursor.All(ctx, &fences); err != nil {
		return nil, err
	}

	return fences, nil
}

// MongoUsers joins the company's users against their per-user alert
// subscriptions.
type MongoUsers struct{}

func (u *MongoUsers) Subscribers(ctx context.Context, company string, alertType telematics.AlertType) ([]telematics.Recipient, error) {
	usersCollection := database.GetCollection("users")

	cursor, err := usersCollection.Find(ctx, bson.M{"company": company})
	if err != nil {
		return nil, err
	}

	var users []telematics.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	usersByID := map[string]telematics.User{}
	var userIDs []string
	for _, user := range users {
		if user.Disabled {
			continue
		}
		usersByID[user.ID] = user
		userIDs = append(userIDs, user.ID)
	}

	if len(userIDs) == 0 {
		return nil, nil
	}

	configsCollection := database.GetCollection("user_configs")

	cursor, err = configsCollection.Find(ctx, bson.M{
		"userID": bson.M{"$in": userIDs},
		"alerts": string(alertType),
	})
	if err != nil {
		return nil, err
	}

	var configs []telematics.UserConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, err
	}

	var recipients []telematics.Recipient
	for _, config := range configs {
		user, ok := usersByID[config.UserID]
		if !ok {
			continue
		}

		recipients = append(recipients, telematics.Recipient{
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
		})
	}

	return recipients, nil
}
