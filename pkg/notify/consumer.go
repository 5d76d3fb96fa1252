package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/cordonnx/cordonnx/pkg/database"
	"github.com/cordonnx/cordonnx/pkg/stats"
	"github.com/cordonnx/cordonnx/pkg/telematics"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AlertBatchConsumer struct {
	email *EmailSender
	push  *PushManager
}

func NewAlertBatchConsumer(email *EmailSender, push *PushManager) *AlertBatchConsumer {
	return &AlertBatchConsumer{
		email: email,
		push:  push,
	}
}

func (c *AlertBatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	for _, payload := range payloads {
		var notification *telematics.Notification
		if err := json.Unmarshal([]byte(payload), &notification); err != nil {
			log.Error().Err(err).Msg("Failed to decode notification")
			continue
		}

		c.deliver(notification)
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Fatal().Err(err).Msg("Failed to consume from queue")
		}
	}
}

// deliver emails the recipients and attempts a push for each. The
// alert lock is written only after the email went out, a failed
// delivery stays eligible for the next occurrence.
func (c *AlertBatchConsumer) deliver(notification *telematics.Notification) {
	event := notification.Event

	if err := c.email.Send(notification); err != nil {
		log.Error().Err(err).
			Str("imei", event.IMEI).
			Str("type", string(event.Type)).
			Msg("Failed to send alert email")
		return
	}
	stats.NotificationsSent.WithLabelValues("email").Inc()

	if c.push != nil && c.push.FirebaseApp != nil {
		for _, recipient := range notification.Recipients {
			if err := c.push.SendPush(notification, recipient); err != nil {
				log.Debug().Err(err).Str("user", recipient.UserID).Msg("Push not delivered")
				continue
			}
			stats.NotificationsSent.WithLabelValues("push").Inc()
		}
	}

	c.writeLock(&event)
}

func (c *AlertBatchConsumer) writeLock(event *telematics.AlertEvent) {
	locksCollection := database.GetCollection("alert_locks")

	lock := telematics.AlertLock{
		IMEI:               event.IMEI,
		Type:               event.Type,
		LicensePlateNumber: event.LicensePlateNumber,
		LastSent:           time.Now(),
	}

	opts := options.Replace().SetUpsert(true)
	_, err := locksCollection.ReplaceOne(context.Background(), bson.M{
		"imei": lock.IMEI,
		"type": lock.Type,
	}, lock, opts)
	if err != nil {
		log.Error().Err(err).Str("imei", lock.IMEI).Msg("Failed to write alert lock")
	}
}
