package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helperhand-server/apperror"
	"helperhand-server/models"
	"helperhand-server/repository"
)

func TestCatalog(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	svc := NewCatalogService(repository.NewCatalogRepository(f.db), time.Second)

	require.NoError(t, svc.SeedDefaults(ctx))
	require.NoError(t, svc.SeedDefaults(ctx))

	all, err := svc.ListServices(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, len(defaultCatalog))

	inactive := false
	created, err := svc.CreateService(ctx, f.admin, ServiceInput{
		Name:        "Cooking",
		Description: "Daily meals",
		Price:       decimal.NewFromInt(300),
		IsActive:    &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "🛠", created.Icon)
	assert.False(t, created.IsActive)

	active, err := svc.ListServices(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, len(defaultCatalog))

	everything, err := svc.ListServices(ctx, true)
	require.NoError(t, err)
	assert.Len(t, everything, len(defaultCatalog)+1)

	_, err = svc.CreateService(ctx, f.customer, ServiceInput{Name: "x", Description: "y"})
	assert.True(t, apperror.IsForbidden(err))
	_, err = svc.CreateService(ctx, f.admin, ServiceInput{Name: "x", Description: "y", Price: decimal.NewFromInt(-1)})
	assert.True(t, apperror.IsValidation(err))

	require.NoError(t, svc.DeleteService(ctx, f.admin, created.ID))
	assert.True(t, apperror.IsNotFound(svc.DeleteService(ctx, f.admin, created.ID)))
}

func TestContactMessages(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	svc := NewCatalogService(repository.NewCatalogRepository(f.db), time.Second)

	_, err := svc.SubmitContact(ctx, ContactInput{Name: "A", Email: "a@example.com"})
	assert.True(t, apperror.IsValidation(err))

	msg, err := svc.SubmitContact(ctx, ContactInput{Name: "A", Email: "a@example.com", Message: "Do you work Sundays?"})
	require.NoError(t, err)

	_, err = svc.ListContacts(ctx, f.customer)
	assert.True(t, apperror.IsForbidden(err))

	msgs, err := svc.ListContacts(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, svc.DeleteContact(ctx, f.admin, msg.ID))
}

type catalogEvents struct {
	actions []string
	ids     []string
}

func (e *catalogEvents) CatalogChanged(action string, service models.Service) {
	e.actions = append(e.actions, action)
	e.ids = append(e.ids, service.ID)
}

func TestCatalog_AnnouncesEdits(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	svc := NewCatalogService(repository.NewCatalogRepository(f.db), time.Second)
	events := &catalogEvents{}
	svc.PublishTo(events)

	created, err := svc.CreateService(ctx, f.admin, ServiceInput{Name: "Cooking", Description: "Daily meals", Price: decimal.NewFromInt(300)})
	require.NoError(t, err)
	_, err = svc.UpdateService(ctx, f.admin, created.ID, ServiceInput{Name: "Cooking", Description: "Meals", Price: decimal.NewFromInt(350)})
	require.NoError(t, err)
	_, err = svc.CreateService(ctx, f.customer, ServiceInput{Name: "x", Description: "y"})
	require.Error(t, err)
	require.NoError(t, svc.DeleteService(ctx, f.admin, created.ID))
	require.Error(t, svc.DeleteService(ctx, f.admin, created.ID))

	assert.Equal(t, []string{CatalogCreated, CatalogUpdated, CatalogDeleted}, events.actions)
	assert.Equal(t, []string{created.ID, created.ID, created.ID}, events.ids)
}
