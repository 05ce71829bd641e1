package services

import (
	"context"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"helperhand-server/apperror"
	"helperhand-server/models"
	"helperhand-server/repository"
	"helperhand-server/types"
)

type ServiceInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Icon        string
	IsActive    *bool
	Image       string
}

type ContactInput struct {
	Name    string
	Email   string
	Message string
}

// defaultCatalog is seeded into an empty services table.
var defaultCatalog = []models.Service{
	{Name: "Cleaners", Description: "Home and office cleaning by trained staff.", Price: decimal.NewFromInt(200), Icon: "🧹", IsActive: true},
	{Name: "Helper", Description: "An extra pair of hands for chores, moving and errands.", Price: decimal.NewFromInt(150), Icon: "🤝", IsActive: true},
	{Name: "Washing", Description: "Laundry, ironing and dish washing at your doorstep.", Price: decimal.NewFromInt(100), Icon: "🧺", IsActive: true},
}

// Catalog change actions reported to a CatalogPublisher.
const (
	CatalogCreated = "service_created"
	CatalogUpdated = "service_updated"
	CatalogDeleted = "service_deleted"
)

// CatalogPublisher announces catalog edits to every connected client so open
// booking forms can refresh their service list.
type CatalogPublisher interface {
	CatalogChanged(action string, service models.Service)
}

// CatalogService manages the display catalog and the public contact form.
type CatalogService struct {
	repo      repository.CatalogRepository
	publisher CatalogPublisher
	timeout   time.Duration
}

func NewCatalogService(repo repository.CatalogRepository, timeout time.Duration) *CatalogService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CatalogService{repo: repo, timeout: timeout}
}

// PublishTo sets where catalog edits are announced. Nil disables announcements.
func (s *CatalogService) PublishTo(p CatalogPublisher) {
	s.publisher = p
}

func (s *CatalogService) publish(action string, service models.Service) {
	if s.publisher != nil {
		s.publisher.CatalogChanged(action, service)
	}
}

func (s *CatalogService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *CatalogService) ListServices(ctx context.Context, includeInactive bool) ([]models.Service, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.repo.ListServices(ctx, !includeInactive)
}

func validateServiceInput(in ServiceInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Description) == "" {
		return apperror.Validation("Name and description are required")
	}
	if in.Price.IsNegative() {
		return apperror.Validation("Price cannot be negative")
	}
	return nil
}

func (s *CatalogService) CreateService(ctx context.Context, p types.Principal, in ServiceInput) (*models.Service, error) {
	if err := requireAdmin(p, "manage services"); err != nil {
		return nil, err
	}
	if err := validateServiceInput(in); err != nil {
		return nil, err
	}

	service := &models.Service{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Icon:        strings.TrimSpace(in.Icon),
		IsActive:    in.IsActive == nil || *in.IsActive,
		Image:       strings.TrimSpace(in.Image),
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, err
	}
	s.publish(CatalogCreated, *service)
	return service, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, p types.Principal, id string, in ServiceInput) (*models.Service, error) {
	if err := requireAdmin(p, "manage services"); err != nil {
		return nil, err
	}
	if err := validateServiceInput(in); err != nil {
		return nil, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	service, err := s.repo.FindService(ctx, id)
	if err != nil {
		return nil, err
	}
	service.Name = strings.TrimSpace(in.Name)
	service.Description = strings.TrimSpace(in.Description)
	service.Price = in.Price
	if icon := strings.TrimSpace(in.Icon); icon != "" {
		service.Icon = icon
	}
	if in.IsActive != nil {
		service.IsActive = *in.IsActive
	}
	service.Image = strings.TrimSpace(in.Image)

	if err := s.repo.SaveService(ctx, service); err != nil {
		return nil, err
	}
	s.publish(CatalogUpdated, *service)
	return service, nil
}

func (s *CatalogService) DeleteService(ctx context.Context, p types.Principal, id string) error {
	if err := requireAdmin(p, "manage services"); err != nil {
		return err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.repo.DeleteService(ctx, id); err != nil {
		return err
	}
	s.publish(CatalogDeleted, models.Service{ID: id})
	return nil
}

// SeedDefaults fills an empty catalog.
func (s *CatalogService) SeedDefaults(ctx context.Context) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	n, err := s.repo.CountServices(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, svc := range defaultCatalog {
		svc := svc
		if err := s.repo.CreateService(ctx, &svc); err != nil {
			return err
		}
	}
	log.Printf("🌱 Seeded %d catalog services", len(defaultCatalog))
	return nil
}

func (s *CatalogService) SubmitContact(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if in.Name == "" || in.Email == "" || in.Message == "" {
		return nil, apperror.Validation("All fields are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperror.Validation("A valid email is required")
	}

	msg := &models.ContactMessage{Name: in.Name, Email: in.Email, Message: in.Message}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.repo.CreateContact(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *CatalogService) ListContacts(ctx context.Context, p types.Principal) ([]models.ContactMessage, error) {
	if err := requireAdmin(p, "read contact messages"); err != nil {
		return nil, err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.repo.ListContacts(ctx)
}

func (s *CatalogService) DeleteContact(ctx context.Context, p types.Principal, id string) error {
	if err := requireAdmin(p, "delete contact messages"); err != nil {
		return err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.repo.DeleteContact(ctx, id)
}
