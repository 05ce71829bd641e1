package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feedback is the single rating a customer leaves on a completed booking.
type Feedback struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	BookingID string    `json:"booking_id" gorm:"type:varchar(36);not null;uniqueIndex"`
	Rating    int       `json:"rating" gorm:"type:int;not null;check:rating >= 1 AND rating <= 5"`
	Review    string    `json:"review" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName sets custom table name
func (Feedback) TableName() string { return "booking_feedback" }

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
