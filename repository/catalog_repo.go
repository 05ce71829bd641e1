package repository

import (
	"context"

	"gorm.io/gorm"

	"helperhand-server/apperror"
	"helperhand-server/models"
)

// CatalogRepository stores the displayed service catalog and contact messages.
type CatalogRepository interface {
	ListServices(ctx context.Context, onlyActive bool) ([]models.Service, error)
	FindService(ctx context.Context, id string) (*models.Service, error)
	CreateService(ctx context.Context, service *models.Service) error
	SaveService(ctx context.Context, service *models.Service) error
	DeleteService(ctx context.Context, id string) error
	CountServices(ctx context.Context) (int64, error)

	CreateContact(ctx context.Context, msg *models.ContactMessage) error
	ListContacts(ctx context.Context) ([]models.ContactMessage, error)
	DeleteContact(ctx context.Context, id string) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListServices(ctx context.Context, onlyActive bool) ([]models.Service, error) {
	var services []models.Service
	q := r.db.WithContext(ctx)
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("name ASC").Find(&services).Error
	return services, translate(err, "service", "list")
}

func (r *catalogRepository) FindService(ctx context.Context, id string) (*models.Service, error) {
	var service models.Service
	if err := r.db.WithContext(ctx).First(&service, "id = ?", id).Error; err != nil {
		return nil, translate(err, "service", "find")
	}
	return &service, nil
}

func (r *catalogRepository) CreateService(ctx context.Context, service *models.Service) error {
	return translate(r.db.WithContext(ctx).Create(service).Error, "service", "create")
}

func (r *catalogRepository) SaveService(ctx context.Context, service *models.Service) error {
	return translate(r.db.WithContext(ctx).Save(service).Error, "service", "save")
}

func (r *catalogRepository) DeleteService(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Service{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "service", "delete")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("service")
	}
	return nil
}

func (r *catalogRepository) CountServices(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Service{}).Count(&n).Error
	return n, translate(err, "service", "count")
}

func (r *catalogRepository) CreateContact(ctx context.Context, msg *models.ContactMessage) error {
	return translate(r.db.WithContext(ctx).Create(msg).Error, "message", "create")
}

func (r *catalogRepository) ListContacts(ctx context.Context) ([]models.ContactMessage, error) {
	var msgs []models.ContactMessage
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&msgs).Error
	return msgs, translate(err, "message", "list")
}

func (r *catalogRepository) DeleteContact(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.ContactMessage{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "message", "delete")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("message")
	}
	return nil
}
