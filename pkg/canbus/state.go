package canbus

import (
	"context"
	"time"

	"github.com/cordonnx/cordonnx/pkg/database"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VehicleState is the current decoded signal set for one vehicle.
type VehicleState struct {
	IMEI      string                 `bson:"imei"`
	Timestamp time.Time              `bson:"timestamp"`
	Signals   map[string]interface{} `bson:"signals"`
}

// HistoryEntry records one signal changing value.
type HistoryEntry struct {
	IMEI      string      `bson:"imei"`
	Signal    string      `bson:"signal"`
	Value     interface{} `bson:"value"`
	Timestamp time.Time   `bson:"timestamp"`
}

// Store persists per-vehicle signal state and the change history.
type Store interface {
	State(ctx context.Context, imei string) (*VehicleState, error)
	SaveState(ctx context.Context, state *VehicleState) error
	AppendHistory(ctx context.Context, entries []HistoryEntry) error
}

type MongoStore struct{}

func (s *MongoStore) State(ctx context.Context, imei string) (*VehicleState, error) {
	collection := database.GetCollection("vehicle_can_state")

	var state VehicleState
	err := collection.FindOne(ctx, bson.M{"imei": imei}).Decode(&state)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &state, nil
}

func (s *MongoStore) SaveState(ctx context.Context, state *VehicleState) error {
	collection := database.GetCollection("vehicle_can_state")

	opts := options.Replace().SetUpsert(true)
	_, err := collection.ReplaceOne(ctx, bson.M{"imei": state.IMEI}, state, opts)

	return err
}

func (s *MongoStore) AppendHistory(ctx context.Context, entries []HistoryEntry) error {
	collection := database.GetCollection("vehicle_can_history")

	documents := make([]interface{}, len(entries))
	for i, entry := range entries {
		documents[i] = entry
	}

	_, err := collection.InsertMany(ctx, documents)

	return err
}

// ProfileLookup resolves the profile name a vehicle decodes with.
type ProfileLookup func(ctx context.Context, imei string) string

// Engine decodes raw frames with the vehicle's profile and maintains
// the stored state and history.
type Engine struct {
	Registry *Registry
	Store    Store
	Profiles ProfileLookup
}

func NewEngine(registry *Registry, store Store, profiles ProfileLookup) *Engine {
	return &Engine{
		Registry: registry,
		Store:    store,
		Profiles: profiles,
	}
}

// HandleFrames decodes the frames and reconciles the result against
// the stored vehicle state. The state document is only overwritten by
// strictly newer packets, so late replays cannot roll it backwards.
// History rows are appended per signal, and numeric signals only when
// the change exceeds the profile's history threshold.
func (e *Engine) HandleFrames(ctx context.Context, imei string, frames []Frame, timestamp time.Time) (map[string]interface{}, error) {
	profileName := GenericProfileName
	if e.Profiles != nil {
		profileName = e.Profiles(ctx, imei)
	}

	profile := e.Registry.Get(profileName)

	signals := Decode(frames, profile)
	interpretSignals(signals)

	if len(signals) == 0 {
		return signals, nil
	}

	previous, err := e.Store.State(ctx, imei)
	if err != nil {
		return signals, err
	}

	if previous != nil && !timestamp.After(previous.Timestamp) {
		return signals, nil
	}

	merged := map[string]interface{}{}
	var previousSignals map[string]interface{}
	if previous != nil {
		previousSignals = previous.Signals
		for name, value := range previousSignals {
			merged[name] = value
		}
	}
	for name, value := range signals {
		merged[name] = value
	}

	var entries []HistoryEntry
	for name, value := range signals {
		if !signalChanged(profile, name, previousSignals[name], value) {
			continue
		}

		entries = append(entries, HistoryEntry{
			IMEI:      imei,
			Signal:    name,
			Value:     value,
			Timestamp: timestamp,
		})
	}

	if err := e.Store.SaveState(ctx, &VehicleState{
		IMEI:      imei,
		Timestamp: timestamp,
		Signals:   merged,
	}); err != nil {
		return signals, err
	}

	if len(entries) > 0 {
		if err := e.Store.AppendHistory(ctx, entries); err != nil {
			log.Error().Err(err).Str("imei", imei).Msg("Failed to append CAN history")
		}
	}

	return signals, nil
}

func signalChanged(profile *Profile, name string, previous interface{}, current interface{}) bool {
	if previous == nil {
		return true
	}

	previousNumber, previousNumeric := previous.(float64)
	currentNumber, currentNumeric := current.(float64)

	if previousNumeric && currentNumeric {
		delta := currentNumber - previousNumber
		if delta < 0 {
			delta = -delta
		}

		return delta > profile.historyThreshold(name)
	}

	return previous != current
}
