package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"helperhand-server/models"
)

type FeedbackRepository interface {
	Create(ctx context.Context, tx *gorm.DB, feedback *models.Feedback) error
	FindByBookingID(ctx context.Context, tx *gorm.DB, bookingID string) (*models.Feedback, error)
	AverageRating(ctx context.Context) (float64, bool, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, tx *gorm.DB, feedback *models.Feedback) error {
	return translate(conn(ctx, r.db, tx).Create(feedback).Error, "feedback", "create")
}

func (r *feedbackRepository) FindByBookingID(ctx context.Context, tx *gorm.DB, bookingID string) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := conn(ctx, r.db, tx).First(&feedback, "booking_id = ?", bookingID).Error; err != nil {
		return nil, translate(err, "feedback", "find")
	}
	return &feedback, nil
}

// AverageRating reports ok=false when no feedback exists yet.
func (r *feedbackRepository) AverageRating(ctx context.Context) (float64, bool, error) {
	var row struct {
		Average sql.NullFloat64
	}
	err := r.db.WithContext(ctx).Model(&models.Feedback{}).Select("AVG(rating) AS average").Scan(&row).Error
	if err != nil {
		return 0, false, translate(err, "feedback", "aggregate")
	}
	return row.Average.Float64, row.Average.Valid, nil
}
