package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helperhand-server/apperror"
	"helperhand-server/database/databasetest"
	"helperhand-server/models"
	"helperhand-server/repository"
	"helperhand-server/types"
)

func newAccountService(t *testing.T) (*AccountService, repository.UserRepository) {
	t.Helper()
	db := databasetest.New(t)
	users := repository.NewUserRepository(db)
	return NewAccountService(users, repository.NewWorkerRepository(db), NewJWTService(testJWTConfig())), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	res, err := svc.RegisterCustomer(ctx, RegisterInput{Name: "Asha", Email: " Asha@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "customer", res.Kind)
	assert.Equal(t, "asha@example.com", res.Principal.Email)

	_, err = svc.RegisterCustomer(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	assert.True(t, apperror.IsConflict(err))

	logged, err := svc.Login(ctx, "ASHA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, res.Principal.ID, logged.Principal.ID)

	_, err = svc.Login(ctx, "asha@example.com", "wrong")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
	assert.Equal(t, "Invalid credentials", apperror.Message(err))

	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.RegisterCustomer(ctx, RegisterInput{Name: "", Email: "a@example.com", Password: "secret1"})
	assert.True(t, apperror.IsValidation(err))
	_, err = svc.RegisterCustomer(ctx, RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1"})
	assert.True(t, apperror.IsValidation(err))
	_, err = svc.RegisterCustomer(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "123"})
	assert.True(t, apperror.IsValidation(err))
}

func TestEnsureAdminAndResolve(t *testing.T) {
	svc, users := newAccountService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "rootpass"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "rootpass"))

	admin, err := users.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	res, err := svc.Login(ctx, "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, "admin", res.Kind)

	p, err := svc.Resolve(ctx, types.Principal{ID: admin.ID, Kind: types.KindAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Administrator", p.Name)

	_, err = svc.Resolve(ctx, types.Principal{ID: admin.ID, Kind: types.KindCustomer})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = svc.Resolve(ctx, types.Principal{ID: "gone", Kind: types.KindWorker})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestEnsureAdmin_SkipsWithoutCredentials(t *testing.T) {
	svc, _ := newAccountService(t)

	assert.NoError(t, svc.EnsureAdmin(context.Background(), "", ""))
}
