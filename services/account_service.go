package services

import (
	"context"
	"log"
	"net/mail"
	"strings"

	"helperhand-server/apperror"
	"helperhand-server/models"
	"helperhand-server/repository"
	"helperhand-server/types"
)

const minPasswordLength = 6

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// AuthResult pairs a token with the profile it was issued for.
type AuthResult struct {
	Token     *TokenResponse  `json:"token"`
	Principal types.Principal `json:"principal"`
	Kind      string          `json:"kind"`
}

// AccountService handles customer and admin accounts and turns tokens into full principals.
type AccountService struct {
	users   repository.UserRepository
	workers repository.WorkerRepository
	jwt     *JWTService
}

func NewAccountService(users repository.UserRepository, workers repository.WorkerRepository, jwt *JWTService) *AccountService {
	return &AccountService{users: users, workers: workers, jwt: jwt}
}

func validateCredentials(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperror.Validation("A valid email is required")
	}
	if len(password) < minPasswordLength {
		return "", apperror.Validation("Password must be at least %d characters", minPasswordLength)
	}
	return email, nil
}

func (s *AccountService) issue(p types.Principal) (*AuthResult, error) {
	token, err := s.jwt.GenerateToken(p)
	if err != nil {
		return nil, apperror.Internal("generate token", err)
	}
	return &AuthResult{Token: token, Principal: p, Kind: p.Kind.String()}, nil
}

func userPrincipal(u *models.User) types.Principal {
	kind := types.KindCustomer
	if u.IsAdmin() {
		kind = types.KindAdmin
	}
	return types.Principal{ID: u.ID, Kind: kind, Name: u.Name, Email: u.Email}
}

// RegisterCustomer creates a customer account and logs it in.
func (s *AccountService) RegisterCustomer(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.Validation("Name is required")
	}
	email, err := validateCredentials(in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	hash, err := s.jwt.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal("hash password", err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: hash,
		Role:         models.RoleCustomer,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if apperror.IsConflict(err) {
			return nil, apperror.Conflict("User with this email already exists")
		}
		return nil, err
	}

	log.Printf("✅ Customer registered: %s", user.Email)
	return s.issue(userPrincipal(user))
}

// Login authenticates a customer or admin.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.Unauthorized("Invalid credentials")
		}
		return nil, err
	}
	if !s.jwt.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperror.Unauthorized("Invalid credentials")
	}
	return s.issue(userPrincipal(user))
}

// LoginWorker authenticates a worker in the worker credential space.
func (s *AccountService) LoginWorker(ctx context.Context, email, password string) (*AuthResult, error) {
	worker, err := s.workers.FindByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.Unauthorized("Invalid credentials")
		}
		return nil, err
	}
	if !s.jwt.CheckPasswordHash(password, worker.PasswordHash) {
		return nil, apperror.Unauthorized("Invalid credentials")
	}
	return s.issue(types.Principal{ID: worker.ID, Kind: types.KindWorker, Name: worker.Name, Email: worker.Email})
}

// Resolve loads the account behind a token principal. A token whose account
// is gone, or whose role no longer matches, is treated as invalid.
func (s *AccountService) Resolve(ctx context.Context, p types.Principal) (types.Principal, error) {
	switch p.Kind {
	case types.KindWorker:
		worker, err := s.workers.FindByID(ctx, nil, p.ID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return types.Principal{}, apperror.Unauthorized("Account no longer exists")
			}
			return types.Principal{}, err
		}
		return types.Principal{ID: worker.ID, Kind: types.KindWorker, Name: worker.Name, Email: worker.Email}, nil
	case types.KindCustomer, types.KindAdmin:
		user, err := s.users.FindByID(ctx, p.ID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return types.Principal{}, apperror.Unauthorized("Account no longer exists")
			}
			return types.Principal{}, err
		}
		resolved := userPrincipal(user)
		if resolved.Kind != p.Kind {
			return types.Principal{}, apperror.Unauthorized("Invalid or expired token")
		}
		return resolved, nil
	default:
		return types.Principal{}, apperror.Unauthorized("Invalid or expired token")
	}
}

// EnsureAdmin creates the admin account when no user holds the email yet.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		log.Println("ℹ️ ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.IsAdmin() {
			log.Printf("⚠️ %s exists but is not an admin, leaving it untouched", existing.Email)
		}
		return nil
	case !apperror.IsNotFound(err):
		return err
	}

	hash, err := s.jwt.HashPassword(password)
	if err != nil {
		return apperror.Internal("hash password", err)
	}
	admin := &models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	log.Printf("✅ Admin account seeded: %s", admin.Email)
	return nil
}
