package messaging

import (
	"context"
	"log"

	"helperhand-server/services"
)

// EmailMessage is the payload consumed by the mail worker.
type EmailMessage struct {
	To        string `json:"to"`
	Name      string `json:"name,omitempty"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	Template  string `json:"template"`
	BookingID string `json:"booking_id"`
}

type publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// EmailNotifier renders notifications and hands them to the mail queue.
type EmailNotifier struct {
	pub publisher
}

func NewEmailNotifier(pub publisher) *EmailNotifier {
	return &EmailNotifier{pub: pub}
}

func RoutingKey(t services.Template) string {
	return "email." + string(t)
}

func (e *EmailNotifier) Notify(ctx context.Context, n services.Notification) error {
	if n.Recipient.Email == "" {
		log.Printf("ℹ️ No email for %s on booking %s, skipping", n.Template, n.BookingID)
		return nil
	}

	subject, text := services.Render(n)
	return e.pub.Publish(ctx, RoutingKey(n.Template), EmailMessage{
		To:        n.Recipient.Email,
		Name:      n.Recipient.Name,
		Subject:   subject,
		Text:      text,
		Template:  string(n.Template),
		BookingID: n.BookingID,
	})
}
