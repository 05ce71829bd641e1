package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"helperhand-server/apperror"
	"helperhand-server/models"
)

// BookingFilter narrows the admin listing.
type BookingFilter struct {
	Status *models.BookingStatus
}

// StatusCount is one row of the per-status aggregate.
type StatusCount struct {
	Status models.BookingStatus
	Count  int64
}

type BookingRepository interface {
	GetDB() *gorm.DB
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error)
	Save(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	ListByCustomer(ctx context.Context, customerID string) ([]models.Booking, error)
	ListAll(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	ListByWorker(ctx context.Context, workerID string) ([]models.Booking, error)
	ListWorkerBookingsInStatus(ctx context.Context, tx *gorm.DB, workerID string, statuses []models.BookingStatus, excludeID string) ([]models.Booking, error)
	CountByWorker(ctx context.Context, tx *gorm.DB, workerID string) (int64, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Booking, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	CountDistinctCustomers(ctx context.Context) (int64, error)
	SumPriceByStatus(ctx context.Context, status models.BookingStatus) (decimal.Decimal, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	err := conn(ctx, r.db, tx).Omit(clause.Associations).Create(booking).Error
	if errors.Is(err, models.ErrBookingDateNotFuture) {
		return apperror.Validation("Booking date must be in the future")
	}
	return translate(err, "booking", "create")
}

func (r *bookingRepository) withParties(db *gorm.DB) *gorm.DB {
	return db.Preload("Customer").Preload("AssignedWorker").Preload("Feedback")
}

func (r *bookingRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error) {
	var booking models.Booking
	err := r.withParties(conn(ctx, r.db, tx)).First(&booking, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "booking", "find")
	}
	return &booking, nil
}

// FindByIDForUpdate locks the booking row until the surrounding transaction ends.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error) {
	var booking models.Booking
	err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "booking", "lock")
	}
	return &booking, nil
}

func (r *bookingRepository) Save(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return translate(conn(ctx, r.db, tx).Omit(clause.Associations).Save(booking).Error, "booking", "save")
}

func (r *bookingRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := conn(ctx, r.db, tx)
	if err := db.Where("booking_id = ?", id).Delete(&models.Feedback{}).Error; err != nil {
		return translate(err, "feedback", "delete")
	}
	res := db.Delete(&models.Booking{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "booking", "delete")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("booking")
	}
	return nil
}

func (r *bookingRepository) ListByCustomer(ctx context.Context, customerID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.withParties(r.db.WithContext(ctx)).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, translate(err, "booking", "list")
}

func (r *bookingRepository) ListAll(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.withParties(r.db.WithContext(ctx))
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	err := q.Order("created_at DESC").Find(&bookings).Error
	return bookings, translate(err, "booking", "list")
}

func (r *bookingRepository) ListByWorker(ctx context.Context, workerID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.withParties(r.db.WithContext(ctx)).
		Where("assigned_worker_id = ?", workerID).
		Order("booking_date DESC").
		Find(&bookings).Error
	return bookings, translate(err, "booking", "list")
}

func (r *bookingRepository) ListWorkerBookingsInStatus(ctx context.Context, tx *gorm.DB, workerID string, statuses []models.BookingStatus, excludeID string) ([]models.Booking, error) {
	var bookings []models.Booking
	q := conn(ctx, r.db, tx).Where("assigned_worker_id = ? AND status IN ?", workerID, statuses)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Find(&bookings).Error
	return bookings, translate(err, "booking", "list")
}

func (r *bookingRepository) CountByWorker(ctx context.Context, tx *gorm.DB, workerID string) (int64, error) {
	var n int64
	err := conn(ctx, r.db, tx).Model(&models.Booking{}).Where("assigned_worker_id = ?", workerID).Count(&n).Error
	return n, translate(err, "booking", "count")
}

// ListStalePending returns unassigned pending bookings scheduled before the cutoff.
func (r *bookingRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("status = ? AND assigned_worker_id IS NULL AND booking_date < ?", models.BookingStatusPending, before).
		Order("booking_date ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, translate(err, "booking", "list")
}

func (r *bookingRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("booking_date >= ? AND booking_date < ?", from, to).
		Order("booking_date ASC").
		Find(&bookings).Error
	return bookings, translate(err, "booking", "list")
}

func (r *bookingRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, translate(err, "booking", "aggregate")
}

func (r *bookingRepository) CountDistinctCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).Distinct("customer_id").Count(&n).Error
	return n, translate(err, "booking", "aggregate")
}

func (r *bookingRepository) SumPriceByStatus(ctx context.Context, status models.BookingStatus) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Select("SUM(price) AS total").
		Where("status = ?", status).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, translate(err, "booking", "aggregate")
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}
