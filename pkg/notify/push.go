package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/cordonnx/cordonnx/pkg/database"
	"github.com/cordonnx/cordonnx/pkg/telematics"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"google.golang.org/api/option"
)

type UserPushTarget struct {
	UserID string `bson:"userid"`
	Token  string `bson:"token"`
}

type PushManager struct {
	FirebaseApp *firebase.App
}

func (m *PushManager) Setup() error {
	fireBaseAuthKey := os.Getenv("CORDONNX_FIREBASE_SERVICE_ACCOUNT")

	decodedKey, err := base64.StdEncoding.DecodeString(fireBaseAuthKey)
	if err != nil {
		return err
	}

	opts := []option.ClientOption{option.WithCredentialsJSON(decodedKey)}

	app, err := firebase.NewApp(context.Background(), nil, opts...)
	if err != nil {
		return err
	}

	m.FirebaseApp = app

	return nil
}

// SendPush notifies one recipient's registered device. Recipients
// without a registered push token are skipped by the caller.
func (m *PushManager) SendPush(notification *telematics.Notification, recipient telematics.Recipient) error {
	pushTargetCollection := database.GetCollection("user_push_notification_target")
	var pushTarget *UserPushTarget

	pushTargetCollection.FindOne(context.Background(), bson.M{
		"userid": recipient.UserID,
	}).Decode(&pushTarget)

	if pushTarget == nil {
		return errors.New("failed to find user token")
	}

	fcmClient, err := m.FirebaseApp.Messaging(context.Background())
	if err != nil {
		return err
	}

	_, err = fcmClient.Send(context.Background(), &messaging.Message{
		Notification: &messaging.Notification{
			Title: notification.Label,
			Body:  notification.Event.Message,
		},
		Token: pushTarget.Token,
	})
	if err != nil {
		return err
	}

	log.Info().Str("target", recipient.UserID).Msg("Sent Push Notification")

	return nil
}
