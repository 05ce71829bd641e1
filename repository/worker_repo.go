package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"helperhand-server/apperror"
	"helperhand-server/models"
)

// WorkerFilter mirrors the admin directory query string.
type WorkerFilter struct {
	Service string
	Active  *bool
}

type WorkerRepository interface {
	Create(ctx context.Context, tx *gorm.DB, worker *models.Worker) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Worker, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Worker, error)
	FindByEmail(ctx context.Context, email string) (*models.Worker, error)
	List(ctx context.Context, filter WorkerFilter) ([]models.Worker, error)
	UpdateProfile(ctx context.Context, tx *gorm.DB, worker *models.Worker) error
	SetActive(ctx context.Context, tx *gorm.DB, id string, active bool) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

type workerRepository struct {
	db *gorm.DB
}

func NewWorkerRepository(db *gorm.DB) WorkerRepository {
	return &workerRepository{db: db}
}

func (r *workerRepository) Create(ctx context.Context, tx *gorm.DB, worker *models.Worker) error {
	return translate(conn(ctx, r.db, tx).Create(worker).Error, "worker", "create")
}

func (r *workerRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Worker, error) {
	var worker models.Worker
	if err := conn(ctx, r.db, tx).First(&worker, "id = ?", id).Error; err != nil {
		return nil, translate(err, "worker", "find")
	}
	return &worker, nil
}

func (r *workerRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Worker, error) {
	var worker models.Worker
	err := conn(ctx, r.db, tx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&worker, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "worker", "lock")
	}
	return &worker, nil
}

func (r *workerRepository) FindByEmail(ctx context.Context, email string) (*models.Worker, error) {
	var worker models.Worker
	err := r.db.WithContext(ctx).First(&worker, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, translate(err, "worker", "find")
	}
	return &worker, nil
}

// List returns workers sorted by name. The service filter runs in Go because the
// service set is a JSON column whose query syntax differs per dialect.
func (r *workerRepository) List(ctx context.Context, filter WorkerFilter) ([]models.Worker, error) {
	var workers []models.Worker
	q := r.db.WithContext(ctx)
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}
	if err := q.Order("name ASC").Find(&workers).Error; err != nil {
		return nil, translate(err, "worker", "list")
	}
	if filter.Service == "" {
		return workers, nil
	}
	out := workers[:0]
	for _, w := range workers {
		if w.Offers(filter.Service) {
			out = append(out, w)
		}
	}
	return out, nil
}

// profileColumns excludes active, which only the booking lifecycle and
// ToggleActive write, through SetActive under a row lock.
var profileColumns = []string{
	"name", "phone", "password_hash", "services", "address", "ages",
	"pincode", "gender", "image", "approval", "updated_at",
}

// UpdateProfile writes the editable worker columns. A stale copy of the record
// can never roll back the availability flag.
func (r *workerRepository) UpdateProfile(ctx context.Context, tx *gorm.DB, worker *models.Worker) error {
	res := conn(ctx, r.db, tx).Model(worker).Select(profileColumns).Updates(worker)
	if res.Error != nil {
		return translate(res.Error, "worker", "update")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("worker")
	}
	return nil
}

func (r *workerRepository) SetActive(ctx context.Context, tx *gorm.DB, id string, active bool) error {
	res := conn(ctx, r.db, tx).Model(&models.Worker{}).Where("id = ?", id).
		UpdateColumns(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translate(res.Error, "worker", "update")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("worker")
	}
	return nil
}

func (r *workerRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	res := conn(ctx, r.db, tx).Delete(&models.Worker{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "worker", "delete")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("worker")
	}
	return nil
}
