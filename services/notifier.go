package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"helperhand-server/types"
)

// Template identifies the message sent for a lifecycle event.
type Template string

const (
	TemplateBookingReceived      Template = "booking_received"
	TemplateBookingCancelled     Template = "booking_cancelled"
	TemplateBookingStatusUpdated Template = "booking_status_updated"
	TemplateBookingAssigned      Template = "booking_assigned"
	TemplateJobAssigned          Template = "job_assigned"
)

// Recipient is the contact a notification goes to.
type Recipient struct {
	ID    string              `json:"id"`
	Kind  types.PrincipalKind `json:"-"`
	Name  string              `json:"name"`
	Email string              `json:"email"`
}

// Notification is one best-effort message about a booking.
type Notification struct {
	Template  Template          `json:"template"`
	Recipient Recipient         `json:"recipient"`
	BookingID string            `json:"booking_id"`
	Data      map[string]string `json:"data,omitempty"`
}

// Notifier delivers notifications over one channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// MultiNotifier delivers to every channel; one failing channel does not stop the others.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes rendered notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	subject, _ := Render(n)
	log.Printf("📨 [%s] to %s <%s>: %s", n.Template, n.Recipient.Name, n.Recipient.Email, subject)
	return nil
}

// Dispatcher runs notifications off the caller's path, each bounded by a timeout.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, timeout time.Duration) *Dispatcher {
	return &Dispatcher{notifier: notifier, timeout: timeout}
}

// Dispatch starts one goroutine per notification and returns immediately.
func (d *Dispatcher) Dispatch(notifications ...Notification) {
	for _, n := range notifications {
		d.wg.Add(1)
		go func(n Notification) {
			defer d.wg.Done()
			d.send(n)
		}(n)
	}
}

func (d *Dispatcher) send(n Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Notifier panic for %s on booking %s: %v", n.Template, n.BookingID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, n); err != nil {
		log.Printf("⚠️ Notification %s for booking %s to %s failed: %v", n.Template, n.BookingID, n.Recipient.Email, err)
	}
}

// Wait blocks until every dispatched notification has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Render builds the email subject and body for a notification.
func Render(n Notification) (subject, body string) {
	name := n.Recipient.Name
	if name == "" {
		name = "Customer"
	}
	d := n.Data
	switch n.Template {
	case TemplateBookingReceived:
		return "Booking Received - HelperHand Services",
			fmt.Sprintf("Hi %s,\n\nYour booking for %s on %s has been received.\nBooking ID: %s\nPrice: ₹%s\n\nThanks!",
				name, d["service"], d["booking_date"], n.BookingID, d["price"])
	case TemplateBookingCancelled:
		return "Booking Cancelled - HelperHand Services",
			fmt.Sprintf("Hi %s,\n\nYour booking for %s on %s has been cancelled.\nBooking ID: %s",
				name, d["service"], d["booking_date"], n.BookingID)
	case TemplateBookingStatusUpdated:
		return "Booking Status Updated - HelperHand Services",
			fmt.Sprintf("Hi %s, your booking for %s on %s is now marked as %s. Booking ID: %s",
				name, d["service"], d["booking_date"], d["status"], n.BookingID)
	case TemplateBookingAssigned:
		return "Booking Assigned - HelperHand Services",
			fmt.Sprintf("Hi %s, your booking (%s) for %s has been assigned to worker %s.",
				name, n.BookingID, d["service"], d["worker_name"])
	case TemplateJobAssigned:
		return "New Job Assigned - HelperHand Services",
			fmt.Sprintf("Hi %s, you have a new booking assigned.\nBooking ID: %s\nService: %s\nCustomer: %s",
				name, n.BookingID, d["service"], d["customer_name"])
	default:
		return "HelperHand Services", fmt.Sprintf("Hi %s, there is an update on booking %s.", name, n.BookingID)
	}
}
