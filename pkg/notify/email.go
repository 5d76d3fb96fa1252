package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cordonnx/cordonnx/pkg/telematics"
	"github.com/cordonnx/cordonnx/pkg/util"
)

const msg91SendEndpoint = "https://control.msg91.com/api/v5/email/send"

// EmailSender delivers alert emails through the MSG91 transactional
// template API.
type EmailSender struct {
	AuthKey    string
	Domain     string
	FromEmail  string
	TemplateID string

	client *http.Client
}

func NewEmailSender() *EmailSender {
	env := util.GetEnvironmentVariables()

	return &EmailSender{
		AuthKey:    env["CORDONNX_MSG91_AUTHKEY"],
		Domain:     env["CORDONNX_MSG91_EMAIL_DOMAIN"],
		FromEmail:  env["CORDONNX_MSG91_EMAIL_FROM"],
		TemplateID: env["CORDONNX_MSG91_ALERT_TEMPLATE_ID"],

		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type emailRecipient struct {
	To        []emailAddress    `json:"to"`
	Variables map[string]string `json:"variables"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type emailRequest struct {
	Recipients []emailRecipient `json:"recipients"`
	From       emailAddress     `json:"from"`
	Domain     string           `json:"domain"`
	TemplateID string           `json:"template_id"`
}

// Send delivers the notification to every recipient in one template
// call.
func (s *EmailSender) Send(notification *telematics.Notification) error {
	if s.AuthKey == "" {
		return fmt.Errorf("MSG91 authkey not configured")
	}

	event := notification.Event

	variables := map[string]string{
		"alert":   notification.Label,
		"vehicle": event.LicensePlateNumber,
		"message": event.Message,
		"time":    event.Timestamp.Format(time.RFC1123),
	}
	if event.Latitude != nil && event.Longitude != nil {
		variables["location"] = fmt.Sprintf("https://maps.google.com/?q=%f,%f", *event.Latitude, *event.Longitude)
	}

	var recipients []emailRecipient
	for _, recipient := range notification.Recipients {
		recipients = append(recipients, emailRecipient{
			To:        []emailAddress{{Email: recipient.Email, Name: recipient.Username}},
			Variables: variables,
		})
	}

	requestBody, err := json.Marshal(emailRequest{
		Recipients: recipients,
		From:       emailAddress{Email: s.FromEmail},
		Domain:     s.Domain,
		TemplateID: s.TemplateID,
	})
	if err != nil {
		return err
	}

	request, err := http.NewRequest(http.MethodPost, msg91SendEndpoint, bytes.NewReader(requestBody))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("authkey", s.AuthKey)

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode >= 300 {
		return fmt.Errorf("MSG91 returned status %d", response.StatusCode)
	}

	return nil
}
