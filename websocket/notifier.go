package websocket

import (
	"context"
	"time"

	"helperhand-server/models"
	"helperhand-server/services"
	"helperhand-server/types"
)

// HubNotifier pushes booking notifications to the recipient's open connections.
// Recipients without a connection are skipped.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) Notify(_ context.Context, note services.Notification) error {
	key := types.Principal{ID: note.Recipient.ID, Kind: note.Recipient.Kind}.Key()
	subject, _ := services.Render(note)
	n.hub.SendTo(key, &Message{
		Type:      string(note.Template),
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"booking_id": note.BookingID,
			"subject":    subject,
			"details":    note.Data,
		},
	})
	return nil
}

// CatalogChanged tells every connected client that the service list changed.
func (n *HubNotifier) CatalogChanged(action string, service models.Service) {
	n.hub.Publish(&Message{
		Type:      action,
		Timestamp: time.Now().UTC(),
		Data:      service,
	})
}
