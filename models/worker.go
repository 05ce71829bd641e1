package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorkerApproval is the administrative gate on a worker account.
type WorkerApproval string

const (
	WorkerApprovalPending  WorkerApproval = "pending"
	WorkerApprovalApproved WorkerApproval = "approved"
	WorkerApprovalRejected WorkerApproval = "rejected"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Worker is a service provider with its own credential space.
type Worker struct {
	ID           string                      `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name         string                      `json:"name" gorm:"size:255;not null"`
	Email        string                      `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Phone        string                      `json:"phone" gorm:"size:32"`
	PasswordHash string                      `json:"-" gorm:"size:255;not null"`
	Services     datatypes.JSONSlice[string] `json:"services" gorm:"not null"`
	Address      datatypes.JSONSlice[string] `json:"address"`
	Ages         datatypes.JSONSlice[int]    `json:"ages"`
	Pincode      string                      `json:"pincode" gorm:"size:16"`
	Gender       Gender                      `json:"gender,omitempty" gorm:"type:varchar(10)"`
	Image        string                      `json:"image" gorm:"size:500"`
	Active       bool                        `json:"active" gorm:"not null"`
	Approval     WorkerApproval              `json:"approval" gorm:"type:varchar(20);not null;default:'pending';check:approval IN ('pending','approved','rejected')"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// TableName specifies the table name for the Worker model
func (Worker) TableName() string {
	return "workers"
}

func (w *Worker) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Approval == "" {
		w.Approval = WorkerApprovalPending
	}
	return nil
}

// BeforeSave keeps the email and the service set canonical.
func (w *Worker) BeforeSave(tx *gorm.DB) error {
	w.Email = strings.ToLower(strings.TrimSpace(w.Email))
	w.Services = NormalizeServices(w.Services)
	return nil
}

// Offers reports whether the worker can perform service.
func (w *Worker) Offers(service string) bool {
	service = NormalizeServiceCode(service)
	for _, s := range w.Services {
		if s == service {
			return true
		}
	}
	return false
}

// IsValidGender accepts the empty value as "not given".
func IsValidGender(g Gender) bool {
	switch g {
	case "", GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// NormalizeServiceCode trims and lower-cases a service code.
func NormalizeServiceCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// NormalizeServices returns the sorted, de-duplicated set of non-empty codes.
func NormalizeServices(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = NormalizeServiceCode(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
