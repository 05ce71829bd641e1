package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&User{}, &Worker{}, &Booking{}, &Feedback{}))
	return db
}

func TestParseBookingStatus(t *testing.T) {
	tests := map[string]BookingStatus{
		"pending":     BookingStatusPending,
		" Confirmed ": BookingStatusConfirmed,
		"assigned":    BookingStatusConfirmed,
		"in-progress": BookingStatusInProgress,
		"in_progress": BookingStatusInProgress,
		"rejected":    BookingStatusRejected,
	}
	for in, want := range tests {
		got, err := ParseBookingStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "marked", "finished"} {
		_, err := ParseBookingStatus(bad)
		assert.Error(t, err, bad)
	}
}

func TestBookingStatus_IsTerminal(t *testing.T) {
	assert.True(t, BookingStatusCompleted.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
	assert.True(t, BookingStatusRejected.IsTerminal())
	assert.False(t, BookingStatusDone.IsTerminal())
	assert.False(t, BookingStatusPending.IsTerminal())
}

func TestPriceFor(t *testing.T) {
	p, ok := PriceFor("cleaners")
	assert.True(t, ok)
	assert.True(t, p.Equal(decimal.NewFromInt(200)))

	p, ok = PriceFor(" Helper")
	assert.True(t, ok)
	assert.True(t, p.Equal(decimal.NewFromInt(150)))

	p, ok = PriceFor("gardening")
	assert.False(t, ok)
	assert.True(t, p.IsZero())
}

func TestNormalizeServices(t *testing.T) {
	got := NormalizeServices([]string{" Washing", "cleaners", "", "washing", "HELPER "})
	assert.Equal(t, []string{"cleaners", "helper", "washing"}, got)
	assert.Empty(t, NormalizeServices([]string{" ", ""}))
}

func TestWorker_Offers(t *testing.T) {
	w := Worker{Services: NormalizeServices([]string{"cleaners", "Washing"})}
	assert.True(t, w.Offers("washing"))
	assert.True(t, w.Offers(" CLEANERS"))
	assert.False(t, w.Offers("helper"))
}

func TestBooking_BeforeCreateRejectsPastDate(t *testing.T) {
	db := newTestDB(t)
	customer := User{Name: "Ravi", Email: "ravi@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&customer).Error)

	past := Booking{
		CustomerID:  customer.ID,
		Service:     "cleaners",
		BookingDate: time.Now().Add(-time.Minute),
		Name:        "Ravi",
		Phone:       "555",
		Address:     "1 Main St",
	}
	err := db.Create(&past).Error
	assert.ErrorIs(t, err, ErrBookingDateNotFuture)

	var count int64
	db.Model(&Booking{}).Count(&count)
	assert.Zero(t, count)

	future := past
	future.ID = ""
	future.BookingDate = time.Now().Add(48 * time.Hour)
	require.NoError(t, db.Create(&future).Error)
	assert.NotEmpty(t, future.ID)
	assert.Equal(t, BookingStatusPending, future.Status)
}

func TestWorker_BeforeSaveNormalizes(t *testing.T) {
	db := newTestDB(t)
	w := Worker{Name: "Asha", Email: " Asha@Example.com ", PasswordHash: "x", Services: []string{"Washing", "washing"}}
	require.NoError(t, db.Create(&w).Error)

	var loaded Worker
	require.NoError(t, db.First(&loaded, "id = ?", w.ID).Error)
	assert.Equal(t, "asha@example.com", loaded.Email)
	assert.Equal(t, []string{"washing"}, []string(loaded.Services))
	assert.Equal(t, WorkerApprovalPending, loaded.Approval)
}
