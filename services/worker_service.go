package services

import (
	"context"
	"log"
	"mime/multipart"
	"strings"
	"time"

	"gorm.io/gorm"

	"helperhand-server/apperror"
	"helperhand-server/models"
	"helperhand-server/repository"
	"helperhand-server/types"
)

type WorkerInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Services []string
	Address  []string
	Pincode  string
	Ages     []int
	Gender   string
	Image    string
}

// WorkerUpdate carries the fields an admin may change; nil leaves a field as is.
type WorkerUpdate struct {
	Name     *string
	Phone    *string
	Password *string
	Services *[]string
	Address  *[]string
	Pincode  *string
	Ages     *[]int
	Gender   *string
	Image    *string
}

// WorkerService is the worker directory: admin management plus the worker's own profile.
type WorkerService struct {
	workers  repository.WorkerRepository
	bookings repository.BookingRepository
	jwt      *JWTService
	uploader ImageUploader
	timeout  time.Duration
}

func NewWorkerService(workers repository.WorkerRepository, bookings repository.BookingRepository, jwt *JWTService, uploader ImageUploader, timeout time.Duration) *WorkerService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WorkerService{workers: workers, bookings: bookings, jwt: jwt, uploader: uploader, timeout: timeout}
}

func requireAdmin(p types.Principal, what string) error {
	if !p.IsAdmin() {
		return apperror.Forbidden("Only admins can %s", what)
	}
	return nil
}

func (s *WorkerService) build(in WorkerInput, approval models.WorkerApproval) (*models.Worker, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.Validation("Name is required")
	}
	email, err := validateCredentials(in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	services := models.NormalizeServices(in.Services)
	if len(services) == 0 {
		return nil, apperror.Validation("At least one service is required")
	}
	gender := models.Gender(strings.ToLower(strings.TrimSpace(in.Gender)))
	if !models.IsValidGender(gender) {
		return nil, apperror.Validation("Invalid gender value")
	}
	if err := validateAges(in.Ages); err != nil {
		return nil, err
	}

	hash, err := s.jwt.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal("hash password", err)
	}

	return &models.Worker{
		Name:         in.Name,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Services:     services,
		Address:      trimLines(in.Address),
		Ages:         in.Ages,
		Pincode:      strings.TrimSpace(in.Pincode),
		Gender:       gender,
		Image:        strings.TrimSpace(in.Image),
		Approval:     approval,
	}, nil
}

func validateAges(ages []int) error {
	for _, a := range ages {
		if a < 0 || a > 120 {
			return apperror.Validation("Invalid age value %d", a)
		}
	}
	return nil
}

func trimLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (s *WorkerService) create(ctx context.Context, worker *models.Worker) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.workers.Create(ctx, nil, worker); err != nil {
		if apperror.IsConflict(err) {
			return apperror.Conflict("Worker with this email already exists")
		}
		return err
	}
	return nil
}

// Create adds an approved worker on behalf of an admin.
func (s *WorkerService) Create(ctx context.Context, p types.Principal, in WorkerInput) (*models.Worker, error) {
	if err := requireAdmin(p, "create workers"); err != nil {
		return nil, err
	}
	worker, err := s.build(in, models.WorkerApprovalApproved)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, worker); err != nil {
		return nil, err
	}
	log.Printf("✅ Worker %s (%s) created by admin %s", worker.ID, worker.Email, p.ID)
	return worker, nil
}

// Register is worker self-signup. The account waits for admin approval but can log in.
func (s *WorkerService) Register(ctx context.Context, in WorkerInput) (*models.Worker, *TokenResponse, error) {
	in.Image = ""
	worker, err := s.build(in, models.WorkerApprovalPending)
	if err != nil {
		return nil, nil, err
	}
	if err := s.create(ctx, worker); err != nil {
		return nil, nil, err
	}

	token, err := s.jwt.GenerateToken(types.Principal{ID: worker.ID, Kind: types.KindWorker, Name: worker.Name, Email: worker.Email})
	if err != nil {
		return nil, nil, apperror.Internal("generate token", err)
	}
	log.Printf("📝 Worker %s registered, awaiting approval", worker.Email)
	return worker, token, nil
}

func (s *WorkerService) Get(ctx context.Context, p types.Principal, id string) (*models.Worker, error) {
	if !p.IsAdmin() && !(p.IsWorker() && p.ID == id) {
		return nil, apperror.Forbidden("Not allowed to view this worker")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.workers.FindByID(ctx, nil, id)
}

func (s *WorkerService) List(ctx context.Context, p types.Principal, filter repository.WorkerFilter) ([]models.Worker, error) {
	if err := requireAdmin(p, "list workers"); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	filter.Service = models.NormalizeServiceCode(filter.Service)
	return s.workers.List(ctx, filter)
}

func (s *WorkerService) Update(ctx context.Context, p types.Principal, id string, in WorkerUpdate) (*models.Worker, error) {
	if err := requireAdmin(p, "update workers"); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	worker, err := s.workers.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.Validation("Name is required")
		}
		worker.Name = name
	}
	if in.Phone != nil {
		worker.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return nil, apperror.Validation("Password must be at least %d characters", minPasswordLength)
		}
		hash, err := s.jwt.HashPassword(*in.Password)
		if err != nil {
			return nil, apperror.Internal("hash password", err)
		}
		worker.PasswordHash = hash
	}
	if in.Services != nil {
		services := models.NormalizeServices(*in.Services)
		if len(services) == 0 {
			return nil, apperror.Validation("At least one service is required")
		}
		worker.Services = services
	}
	if in.Address != nil {
		worker.Address = trimLines(*in.Address)
	}
	if in.Pincode != nil {
		worker.Pincode = strings.TrimSpace(*in.Pincode)
	}
	if in.Ages != nil {
		if err := validateAges(*in.Ages); err != nil {
			return nil, err
		}
		worker.Ages = *in.Ages
	}
	if in.Gender != nil {
		gender := models.Gender(strings.ToLower(strings.TrimSpace(*in.Gender)))
		if !models.IsValidGender(gender) {
			return nil, apperror.Validation("Invalid gender value")
		}
		worker.Gender = gender
	}
	if in.Image != nil {
		worker.Image = strings.TrimSpace(*in.Image)
	}

	return s.saveProfile(ctx, worker)
}

func (s *WorkerService) SetApproval(ctx context.Context, p types.Principal, id, approval string) (*models.Worker, error) {
	if err := requireAdmin(p, "approve workers"); err != nil {
		return nil, err
	}
	next := models.WorkerApproval(strings.ToLower(strings.TrimSpace(approval)))
	switch next {
	case models.WorkerApprovalPending, models.WorkerApprovalApproved, models.WorkerApprovalRejected:
	default:
		return nil, apperror.Validation("Invalid approval value")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	worker, err := s.workers.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	worker.Approval = next
	worker, err = s.saveProfile(ctx, worker)
	if err != nil {
		return nil, err
	}
	log.Printf("🛂 Worker %s approval set to %s", worker.ID, next)
	return worker, nil
}

// saveProfile writes the edited columns and returns the stored record, so the
// reported availability is the current one rather than the copy read earlier.
func (s *WorkerService) saveProfile(ctx context.Context, worker *models.Worker) (*models.Worker, error) {
	if err := s.workers.UpdateProfile(ctx, nil, worker); err != nil {
		return nil, err
	}
	return s.workers.FindByID(ctx, nil, worker.ID)
}

// Delete removes a worker no booking references any more.
func (s *WorkerService) Delete(ctx context.Context, p types.Principal, id string) error {
	if err := requireAdmin(p, "delete workers"); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.workers.FindByIDForUpdate(ctx, tx, id); err != nil {
			return err
		}
		refs, err := s.bookings.CountByWorker(ctx, tx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apperror.Conflict("Cannot delete worker: worker is assigned to active bookings")
		}
		return s.workers.Delete(ctx, tx, id)
	})
	if err != nil {
		return asAppError(err, "delete worker")
	}
	log.Printf("🗑️ Worker %s deleted", id)
	return nil
}

// ToggleActive flips the calling worker's availability flag.
func (s *WorkerService) ToggleActive(ctx context.Context, p types.Principal) (*models.Worker, error) {
	if !p.IsWorker() {
		return nil, apperror.Forbidden("Only workers can change their availability")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var worker *models.Worker
	err := s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.workers.FindByIDForUpdate(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if err := s.workers.SetActive(ctx, tx, w.ID, !w.Active); err != nil {
			return err
		}
		w.Active = !w.Active
		worker = w
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "toggle worker")
	}
	return worker, nil
}

// UploadImage stores the calling worker's profile picture and records its URL.
func (s *WorkerService) UploadImage(ctx context.Context, p types.Principal, header *multipart.FileHeader) (*models.Worker, error) {
	if !p.IsWorker() {
		return nil, apperror.Forbidden("Only workers can upload a profile image")
	}
	if s.uploader == nil {
		return nil, apperror.Internal("upload image", ErrUploadsDisabled)
	}
	if err := ValidateImage(header); err != nil {
		return nil, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperror.Validation("Could not read uploaded file")
	}
	defer file.Close()

	url, err := s.uploader.Upload(ctx, file, "worker_"+p.ID)
	if err != nil {
		return nil, apperror.Internal("upload image", err)
	}
	log.Printf("📸 Worker %s uploaded profile image", p.ID)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	worker, err := s.workers.FindByID(ctx, nil, p.ID)
	if err != nil {
		return nil, err
	}
	worker.Image = url
	return s.saveProfile(ctx, worker)
}
