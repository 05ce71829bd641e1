package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helperhand-server/services"
)

type fakePublisher struct {
	keys     []string
	payloads []any
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, payload any) error {
	f.keys = append(f.keys, routingKey)
	f.payloads = append(f.payloads, payload)
	return f.err
}

func TestEmailNotifier_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	n := services.Notification{
		Template:  services.TemplateBookingCancelled,
		Recipient: services.Recipient{ID: "c1", Name: "Asha", Email: "asha@example.com"},
		BookingID: "b1",
		Data:      map[string]string{"service": "washing", "booking_date": "01 Jan 2030 09:00"},
	}

	require.NoError(t, NewEmailNotifier(pub).Notify(context.Background(), n))

	require.Equal(t, []string{"email.booking_cancelled"}, pub.keys)
	msg, ok := pub.payloads[0].(EmailMessage)
	require.True(t, ok)
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Booking Cancelled - HelperHand Services", msg.Subject)
	assert.Contains(t, msg.Text, "washing")
	assert.Equal(t, "b1", msg.BookingID)
}

func TestEmailNotifier_SkipsMissingAddress(t *testing.T) {
	pub := &fakePublisher{}

	err := NewEmailNotifier(pub).Notify(context.Background(), services.Notification{Template: services.TemplateJobAssigned})

	assert.NoError(t, err)
	assert.Empty(t, pub.keys)
}

func TestEmailNotifier_PropagatesPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}

	err := NewEmailNotifier(pub).Notify(context.Background(), services.Notification{
		Template:  services.TemplateBookingReceived,
		Recipient: services.Recipient{Email: "a@example.com"},
	})

	assert.EqualError(t, err, "channel closed")
}
