package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusAccepted   BookingStatus = "accepted"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusDone       BookingStatus = "done"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusRejected   BookingStatus = "rejected"
)

// BookingStatuses lists every stored status in lifecycle order.
var BookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusAccepted,
	BookingStatusInProgress,
	BookingStatusDone,
	BookingStatusCompleted,
	BookingStatusCancelled,
	BookingStatusRejected,
}

// statusAliases maps legacy spellings onto the stored set.
var statusAliases = map[string]BookingStatus{
	"assigned":    BookingStatusConfirmed,
	"in-progress": BookingStatusInProgress,
}

// ErrBookingDateNotFuture is returned by the storage hook for past or present booking dates.
var ErrBookingDateNotFuture = errors.New("booking date must be in the future")

// ParseBookingStatus normalises s into the stored status set.
func ParseBookingStatus(s string) (BookingStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if alias, ok := statusAliases[s]; ok {
		return alias, nil
	}
	for _, st := range BookingStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// IsTerminal reports whether no lifecycle action moves the booking forward any more.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected:
		return true
	}
	return false
}

// Booking is one customer request for a service occurrence.
type Booking struct {
	ID          string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID  string          `json:"customer_id" gorm:"type:varchar(36);not null;index"`
	Service     string          `json:"service" gorm:"type:varchar(64);not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(10,2);not null;default:0"`
	Details     string          `json:"details" gorm:"type:text"`
	BookingDate time.Time       `json:"booking_date" gorm:"not null;index"`
	Status      BookingStatus   `json:"status" gorm:"type:varchar(20);not null;default:'pending';index;check:status IN ('pending','confirmed','accepted','in_progress','done','completed','cancelled','rejected')"`

	// Contact snapshot taken at creation, independent of later profile edits.
	Name    string `json:"name" gorm:"size:255;not null"`
	Phone   string `json:"phone" gorm:"size:32;not null"`
	Address string `json:"address" gorm:"size:500;not null"`

	AssignedWorkerID *string `json:"assigned_worker_id" gorm:"type:varchar(36);index"`
	AssignmentNote   string  `json:"assignment_note" gorm:"type:text"`

	DoneAt       *time.Time `json:"done_at"`
	UserApproval bool       `json:"user_approval" gorm:"not null;default:false"`
	CompletedAt  *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Customer       *User     `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	AssignedWorker *Worker   `json:"assigned_worker,omitempty" gorm:"foreignKey:AssignedWorkerID"`
	Feedback       *Feedback `json:"feedback,omitempty" gorm:"foreignKey:BookingID"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// BeforeCreate assigns the id and refuses bookings that are not future-dated.
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = BookingStatusPending
	}
	now := time.Now()
	if tx != nil && tx.Config != nil && tx.Config.NowFunc != nil {
		now = tx.Config.NowFunc()
	}
	if !b.BookingDate.After(now) {
		return ErrBookingDateNotFuture
	}
	return nil
}

// IsAssignedTo reports whether workerID is the booking's current worker.
func (b *Booking) IsAssignedTo(workerID string) bool {
	return b.AssignedWorkerID != nil && *b.AssignedWorkerID == workerID
}

// ClearAssignment drops the worker link and note.
func (b *Booking) ClearAssignment() {
	b.AssignedWorkerID = nil
	b.AssignedWorker = nil
	b.AssignmentNote = ""
}
