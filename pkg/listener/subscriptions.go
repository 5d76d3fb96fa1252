package listener

import (
	"context"
	"sync"
	"time"

	"github.com/cordonnx/cordonnx/pkg/database"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

const subscriptionRefreshInterval = 5 * time.Minute

// RawLogSubscriptions tracks which devices have raw frame logging
// switched on. The set is loaded up front and refreshed on a timer, so
// the per-packet check is a map lookup rather than a Mongo query.
type RawLogSubscriptions struct {
	mu    sync.RWMutex
	imeis map[string]bool
}

func NewRawLogSubscriptions() *RawLogSubscriptions {
	return &RawLogSubscriptions{imeis: map[string]bool{}}
}

func (s *RawLogSubscriptions) Contains(imei string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.imeis[imei]
}

// Refresh reloads the subscribed IMEI set. On error the previous set
// stays in effect.
func (s *RawLogSubscriptions) Refresh(ctx context.Context) error {
	subscriptionsCollection := database.GetCollection("raw_log_subscriptions")

	cursor, err := subscriptionsCollection.Find(ctx, bson.M{"enabled": true})
	if err != nil {
		return err
	}

	var subscriptions []struct {
		IMEI string `bson:"imei"`
	}
	if err := cursor.All(ctx, &subscriptions); err != nil {
		return err
	}

	imeis := make(map[string]bool, len(subscriptions))
	for _, subscription := range subscriptions {
		imeis[subscription.IMEI] = true
	}

	s.mu.Lock()
	s.imeis = imeis
	s.mu.Unlock()

	return nil
}

// Run refreshes the set periodically until the context is cancelled.
func (s *RawLogSubscriptions) Run(ctx context.Context) {
	ticker := time.NewTicker(subscriptionRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to refresh raw log subscriptions")
			}
		case <-ctx.Done():
			return
		}
	}
}
