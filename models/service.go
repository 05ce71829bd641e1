package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// servicePrices is the static booking price table. The catalog below is display data only.
var servicePrices = map[string]int64{
	"cleaners": 200,
	"helper":   150,
	"washing":  100,
}

// PriceFor resolves the booking price of a service code. Unknown codes are free
// and reported through ok=false so callers can log them.
func PriceFor(service string) (price decimal.Decimal, ok bool) {
	p, ok := servicePrices[NormalizeServiceCode(service)]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(p), true
}

// Service is a catalog entry shown to customers.
type Service struct {
	ID          string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name        string          `json:"name" gorm:"type:varchar(200);not null"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(10,2);not null"`
	Icon        string          `json:"icon" gorm:"type:varchar(16);default:'🛠'"`
	IsActive    bool            `json:"is_active" gorm:"not null"`
	Image       string          `json:"image" gorm:"type:varchar(500);not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Icon == "" {
		s.Icon = "🛠"
	}
	return nil
}
