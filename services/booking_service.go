package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"helperhand-server/apperror"
	"helperhand-server/models"
	"helperhand-server/repository"
	"helperhand-server/types"
)

// workerHoldingStatuses keep a worker marked active after one of its bookings is released.
var workerHoldingStatuses = []models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusDone}

// workerSettableStatuses are the values a worker may set on its own booking.
var workerSettableStatuses = map[models.BookingStatus]bool{
	models.BookingStatusAccepted:   true,
	models.BookingStatusInProgress: true,
	models.BookingStatusCompleted:  true,
	models.BookingStatusCancelled:  true,
}

type CreateBookingInput struct {
	Service     string
	BookingDate time.Time
	Name        string
	Phone       string
	Address     string
	Details     string
}

type AssignInput struct {
	WorkerID string
	Note     string
}

type FeedbackInput struct {
	Rating int
	Review string
}

// AssignResult carries the advisory busy flag next to the assigned booking.
type AssignResult struct {
	Booking *models.Booking `json:"booking"`
	Busy    bool            `json:"busy"`
}

// BookingService is the booking lifecycle engine. Every principal-facing call
// authorizes against the locked booking before mutating it.
type BookingService interface {
	Create(ctx context.Context, p types.Principal, in CreateBookingInput) (*models.Booking, error)
	Get(ctx context.Context, p types.Principal, id string) (*models.Booking, error)
	ListMine(ctx context.Context, p types.Principal) ([]models.Booking, error)
	ListAll(ctx context.Context, p types.Principal, filter repository.BookingFilter) ([]models.Booking, error)
	Candidates(ctx context.Context, p types.Principal, id string) ([]Candidate, error)
	Assign(ctx context.Context, p types.Principal, id string, in AssignInput) (*AssignResult, error)
	Unassign(ctx context.Context, p types.Principal, id string) (*models.Booking, error)
	MarkDone(ctx context.Context, p types.Principal, id string) (*models.Booking, error)
	Approve(ctx context.Context, p types.Principal, id string) (*models.Booking, error)
	Cancel(ctx context.Context, p types.Principal, id string) (*models.Booking, error)
	OverrideStatus(ctx context.Context, p types.Principal, id string, status string) (*models.Booking, error)
	WorkerUpdateStatus(ctx context.Context, p types.Principal, id string, status string) (*models.Booking, error)
	Delete(ctx context.Context, p types.Principal, id string) error
	SubmitFeedback(ctx context.Context, p types.Principal, id string, in FeedbackInput) (*models.Feedback, error)
	GetFeedback(ctx context.Context, p types.Principal, id string) (*models.Feedback, error)
	RejectStale(ctx context.Context, before time.Time, limit int) (int, error)
}

type BookingOptions struct {
	QueryTimeout  time.Duration
	StrictOverlap bool
	Location      *time.Location
	Now           func() time.Time
}

type bookingService struct {
	bookings    repository.BookingRepository
	workers     repository.WorkerRepository
	feedback    repository.FeedbackRepository
	eligibility *EligibilityResolver
	dispatcher  *Dispatcher
	opts        BookingOptions
}

func NewBookingService(
	bookings repository.BookingRepository,
	workers repository.WorkerRepository,
	feedback repository.FeedbackRepository,
	eligibility *EligibilityResolver,
	dispatcher *Dispatcher,
	opts BookingOptions,
) BookingService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 5 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &bookingService{
		bookings:    bookings,
		workers:     workers,
		feedback:    feedback,
		eligibility: eligibility,
		dispatcher:  dispatcher,
		opts:        opts,
	}
}

// notice is a notification decided inside a transaction and sent after commit.
type notice struct {
	template Template
	to       types.PrincipalKind
}

func (s *bookingService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.QueryTimeout)
}

func (s *bookingService) now() time.Time {
	return s.opts.Now().UTC()
}

// withBooking locks the booking, runs fn in the same transaction and, once the
// transaction has committed, reloads the booking and dispatches fn's notices.
func (s *bookingService) withBooking(ctx context.Context, id string, fn func(ctx context.Context, tx *gorm.DB, b *models.Booking) ([]notice, error)) (*models.Booking, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var (
		locked  *models.Booking
		notices []notice
	)
	err := s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.bookings.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		notices, err = fn(ctx, tx, b)
		locked = b
		return err
	})
	if err != nil {
		return nil, asAppError(err, "booking transaction")
	}

	updated, err := s.bookings.FindByID(ctx, nil, id)
	if err != nil {
		log.Printf("⚠️ Booking %s committed but reload failed: %v", id, err)
		updated = locked
	}
	s.notify(updated, notices)
	return updated, nil
}

func asAppError(err error, op string) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Internal(op, err)
}

func (s *bookingService) notify(b *models.Booking, notices []notice) {
	if s.dispatcher == nil || len(notices) == 0 {
		return
	}

	data := map[string]string{
		"service":       b.Service,
		"booking_date":  b.BookingDate.In(s.opts.Location).Format("02 Jan 2006 15:04"),
		"price":         b.Price.StringFixed(2),
		"status":        string(b.Status),
		"customer_name": b.Name,
	}
	if b.Customer != nil {
		data["customer_name"] = b.Customer.Name
	}
	if b.AssignedWorker != nil {
		data["worker_name"] = b.AssignedWorker.Name
	}

	var out []Notification
	for _, n := range notices {
		var r Recipient
		switch n.to {
		case types.KindCustomer:
			r = Recipient{ID: b.CustomerID, Kind: types.KindCustomer, Name: b.Name}
			if b.Customer != nil {
				r.Name, r.Email = b.Customer.Name, b.Customer.Email
			}
		case types.KindWorker:
			if b.AssignedWorker == nil {
				continue
			}
			r = Recipient{ID: b.AssignedWorker.ID, Kind: types.KindWorker, Name: b.AssignedWorker.Name, Email: b.AssignedWorker.Email}
		default:
			continue
		}
		out = append(out, Notification{Template: n.template, Recipient: r, BookingID: b.ID, Data: data})
	}
	s.dispatcher.Dispatch(out...)
}

func (s *bookingService) Create(ctx context.Context, p types.Principal, in CreateBookingInput) (*models.Booking, error) {
	if err := Authorize(p, ActionCreateBooking, nil); err != nil {
		return nil, err
	}

	in.Service = models.NormalizeServiceCode(in.Service)
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	if in.Service == "" || in.BookingDate.IsZero() || in.Name == "" || in.Phone == "" || in.Address == "" {
		return nil, apperror.Validation("All fields are required")
	}
	if !in.BookingDate.After(s.now()) {
		return nil, apperror.Validation("Booking date must be in the future")
	}

	price, known := models.PriceFor(in.Service)
	if !known {
		log.Printf("⚠️ Unknown service code %q, booking priced at 0", in.Service)
	}

	booking := &models.Booking{
		CustomerID:  p.ID,
		Service:     in.Service,
		Price:       price,
		Details:     strings.TrimSpace(in.Details),
		BookingDate: in.BookingDate.UTC(),
		Status:      models.BookingStatusPending,
		Name:        in.Name,
		Phone:       in.Phone,
		Address:     in.Address,
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if err := s.bookings.Create(ctx, nil, booking); err != nil {
		return nil, err
	}
	log.Printf("✅ Booking %s created for customer %s (%s, price %s)", booking.ID, p.ID, booking.Service, booking.Price.StringFixed(2))

	created, err := s.bookings.FindByID(ctx, nil, booking.ID)
	if err != nil {
		log.Printf("⚠️ Booking %s created but reload failed: %v", booking.ID, err)
		created = booking
	}
	s.notify(created, []notice{{template: TemplateBookingReceived, to: types.KindCustomer}})
	return created, nil
}

func (s *bookingService) Get(ctx context.Context, p types.Principal, id string) (*models.Booking, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	booking, err := s.bookings.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, ActionViewBooking, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListMine(ctx context.Context, p types.Principal) ([]models.Booking, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	switch p.Kind {
	case types.KindWorker:
		return s.bookings.ListByWorker(ctx, p.ID)
	case types.KindCustomer, types.KindAdmin:
		return s.bookings.ListByCustomer(ctx, p.ID)
	default:
		return nil, apperror.Forbidden("Unknown principal")
	}
}

func (s *bookingService) ListAll(ctx context.Context, p types.Principal, filter repository.BookingFilter) ([]models.Booking, error) {
	if err := Authorize(p, ActionListAllBookings, nil); err != nil {
		return nil, err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.bookings.ListAll(ctx, filter)
}

func (s *bookingService) Candidates(ctx context.Context, p types.Principal, id string) ([]Candidate, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	booking, err := s.bookings.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, ActionListCandidates, booking); err != nil {
		return nil, err
	}
	return s.eligibility.Candidates(ctx, booking)
}

func (s *bookingService) Assign(ctx context.Context, p types.Principal, id string, in AssignInput) (*AssignResult, error) {
	workerID := strings.TrimSpace(in.WorkerID)
	if workerID == "" {
		return nil, apperror.Validation("worker_id is required")
	}

	var busy bool
	booking, err := s.withBooking(ctx, id, func(ctx context.Context, tx *gorm.DB, b *models.Booking) ([]notice, error) {
		if err := Authorize(p, ActionAssignWorker, b); err != nil {
			return nil, err
		}
		if b.Status.IsTerminal() {
			return nil, apperror.Conflict("Cannot assign a worker to a %s booking", b.Status)
		}

		worker, err := s.workers.FindByIDForUpdate(ctx, tx, workerID)
		if err != nil {
			return nil, err
		}
		if worker.Approval != models.WorkerApprovalApproved {
			return nil, apperror.Conflict("Worker %q is %s and cannot take bookings", worker.Name, worker.Approval)
		}
		if !worker.Offers(b.Service) {
			return nil, apperror.Conflict("Worker %q does not provide %q", worker.Name, b.Service)
		}

		busy, err = s.eligibility.IsBusy(ctx, tx, worker.ID, b)
		if err != nil {
			return nil, err
		}
		if busy && s.opts.StrictOverlap {
			return nil, apperror.Conflict("Worker %q already has a booking on %s",
				worker.Name, b.BookingDate.In(s.opts.Location).Format("2006-01-02"))
		}

		var previous string
		if b.AssignedWorkerID != nil {
			previous = *b.AssignedWorkerID
		}

		b.AssignedWorkerID = &worker.ID
		b.AssignmentNote = strings.TrimSpace(in.Note)
		b.Status = models.BookingStatusConfirmed
		if err := s.bookings.Save(ctx, tx, b); err != nil {
			return nil, err
		}

		if !worker.Active {
			if err := s.workers.SetActive(ctx, tx, worker.ID, true); err != nil {
				return nil, err
			}
		}
		if previous != "" && previous != worker.ID {
			if err := s.releaseWorker(ctx, tx, previous, b.ID); err != nil {
				return nil, err
			}
		}
		return []notice{
			{template: TemplateBookingAssigned, to: types.KindCustomer},
			{template: TemplateJobAssigned, to: types.KindWorker},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("👷 Booking %s assigned to worker %s (busy=%v)", id, workerID, busy)
	return &AssignResult{Booking: booking, Busy: busy}, nil
}

// releaseWorker clears the worker's active flag when none of its other bookings hold it.
// It runs after the released booking's own write, inside the same transaction.
func (s *bookingService) releaseWorker(ctx context.Context, tx *gorm.DB, workerID, bookingID string) error {
	worker, err := s.workers.FindByIDForUpdate(ctx, tx, workerID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}

	others, err := s.bookings.ListWorkerBookingsInStatus(ctx, tx, workerID, workerHoldingStatuses, bookingID)
	if err != nil {
		return err
	}
	if len(others) > 0 || !worker.Active {
		return nil
	}

	log.Printf("🔄 Worker %s has no other active bookings, marking inactive", workerID)
	return s.workers.SetActive(ctx, tx, workerID, false)
}

func (s *bookingService) Unassign(ctx context.Context, p types.Principal, id string) (*models.Booking, error) {
	return s.withBooking(ctx, id, func(ctx context.Context, tx *gorm.DB, b *models.Booking) ([]notice, error) {
		if err := Authorize(p, ActionUnassignWorker, b); err != nil {
			return nil, err
		}

		var workerID string
		if b.AssignedWorkerID != nil {
			workerID = *b.AssignedWorkerID
		}

		b.ClearAssignment()
		b.Status = models.BookingStatusPending
		b.UserApproval = false
		if err := s.bookings.Save(ctx, tx, b); err != nil {
			return nil, err
		}

		if workerID != "" {
			if err := s.releaseWorker(ctx, tx, workerID, b.ID); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
}

// MarkDone completes the booking directly and records the approval on the
// customer's behalf. Approve therefore never applies to a booking closed this way.
func (s *bookingService) MarkDone(ctx context.Context, p types.Principal, id string) (*models.Booking, error) {
	return s.withBooking(ctx, id, func(ctx context.Context, tx *gorm.DB, b *models.Booking) ([]notice, error) {
		if err := Authorize(p, ActionMarkDone, b); err != nil {
			return nil, err
		}
		if b.Status == models.BookingStatusCancelled || b.Status == models.BookingStatusCompleted {
			return nil, apperror.Conflict("Booking cannot be marked done in its current state")
		}

		now := s.now()
		b.Status = models.BookingStatusCompleted
		b.DoneAt = &now
		b.CompletedAt = &now
		b.UserApproval = true
		return nil, s.bookings.Save(ctx, tx, b)
	})
}

func (s *bookingService) Approve(ctx context.Context, p types.Principal, id string) (*models.Booking, error) {
	return s.withBooking(ctx, id, func(ctx context.Context, tx *gorm.DB, b *models.Booking) ([]notice, error) {
		if err := Authorize(p, ActionApprove, b); err != nil {
			return nil, err
		}
		if b.Status != models.BookingStatusDone {
			return nil, apperror.Conflict("Worker has not marked the booking as done yet")
		}

		now := s.now()
		b.UserApproval = true
		b.Status = models.BookingStatusCompleted
		b.CompletedAt = &now
		return nil, s.bookings.Save(ctx, tx, b)
	})
}

func (s *bookingService) Cancel(ctx context.Context, p types.Principal, id string) (*models.Booking, error) {
	return s.withBooking(ctx, id, func(ctx context.Context, tx *gorm.DB, b *models.Booking) ([]notice, error) {
		if err := Authorize(p, ActionCancel, b); err != nil {
			return nil, err
		}
		if b.Status == models.BookingStatusCancelled {
			return nil, apperror.Conflict("Booking already cancelled")
		}

		b.Status = models.BookingStatusCancelled
		b.UserApproval = false
		if err := s.bookings.Save(ctx, tx, b); err != nil {
			return nil, err
		}
		return []notice{{template: TemplateBookingCancelled, to: types.KindCustomer}}, nil
	})
}

func (s *bookingService) OverrideStatus(ctx context.Context, p types.Principal, id string, status string) (*models.Booking, error) {
	next, err := models.ParseBookingStatus(status)
	if err != nil {
		return nil, apperror.Validation("Invalid status value")
	}

	return s.withBooking(ctx, id, func(ctx context.Context, tx *gorm.DB, b *models.Booking) ([]notice, error) {
		if err := Authorize(p, ActionOverrideStatus, b); err != nil {
			return nil, err
		}

		var released string
		if next == models.BookingStatusPending && b.AssignedWorkerID != nil {
			released = *b.AssignedWorkerID
			b.ClearAssignment()
		}

		now := s.now()
		b.Status = next
		b.UserApproval = next == models.BookingStatusCompleted
		if next == models.BookingStatusDone && b.DoneAt == nil {
			b.DoneAt = &now
		}
		if next == models.BookingStatusCompleted && b.CompletedAt == nil {
			b.CompletedAt = &now
		}
		if err := s.bookings.Save(ctx, tx, b); err != nil {
			return nil, err
		}

		if released != "" {
			if err := s.releaseWorker(ctx, tx, released, b.ID); err != nil {
				return nil, err
			}
		}
		return []notice{{template: TemplateBookingStatusUpdated, to: types.KindCustomer}}, nil
	})
}

func (s *bookingService) WorkerUpdateStatus(ctx context.Context, p types.Principal, id string, status string) (*models.Booking, error) {
	next, err := models.ParseBookingStatus(status)
	if err != nil || !workerSettableStatuses[next] {
		return nil, apperror.Validation("Invalid status value")
	}

	return s.withBooking(ctx, id, func(ctx context.Context, tx *gorm.DB, b *models.Booking) ([]notice, error) {
		if err := Authorize(p, ActionWorkerUpdateStatus, b); err != nil {
			return nil, err
		}
		if b.Status.IsTerminal() {
			return nil, apperror.Conflict("Booking is already %s", b.Status)
		}

		b.Status = next
		if next == models.BookingStatusCompleted {
			now := s.now()
			b.CompletedAt = &now
		}
		return nil, s.bookings.Save(ctx, tx, b)
	})
}

func (s *bookingService) Delete(ctx context.Context, p types.Principal, id string) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.bookings.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := Authorize(p, ActionDeleteBooking, b); err != nil {
			return err
		}
		return s.bookings.Delete(ctx, tx, id)
	})
	if err != nil {
		return asAppError(err, "delete booking")
	}
	log.Printf("🗑️ Booking %s removed by %s", id, p.Key())
	return nil
}

func (s *bookingService) SubmitFeedback(ctx context.Context, p types.Principal, id string, in FeedbackInput) (*models.Feedback, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperror.Validation("Rating must be between 1 and 5")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var created *models.Feedback
	err := s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.bookings.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := Authorize(p, ActionSubmitFeedback, b); err != nil {
			return err
		}
		if b.Status != models.BookingStatusCompleted {
			return apperror.Conflict("Feedback can only be submitted for completed bookings")
		}

		_, err = s.feedback.FindByBookingID(ctx, tx, b.ID)
		switch {
		case err == nil:
			return apperror.Conflict("Feedback already submitted for this booking")
		case !apperror.IsNotFound(err):
			return err
		}

		fb := &models.Feedback{
			BookingID: b.ID,
			Rating:    in.Rating,
			Review:    strings.TrimSpace(in.Review),
			CreatedAt: s.now(),
		}
		if err := s.feedback.Create(ctx, tx, fb); err != nil {
			if apperror.IsConflict(err) {
				return apperror.Conflict("Feedback already submitted for this booking")
			}
			return err
		}
		created = fb
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "submit feedback")
	}
	return created, nil
}

// GetFeedback returns nil without error when the booking has no feedback yet.
func (s *bookingService) GetFeedback(ctx context.Context, p types.Principal, id string) (*models.Feedback, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	booking, err := s.bookings.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, ActionViewFeedback, booking); err != nil {
		return nil, err
	}
	return booking.Feedback, nil
}

// RejectStale moves unassigned pending bookings dated before the cutoff to rejected.
// It is a system action and skips principal authorization.
func (s *bookingService) RejectStale(ctx context.Context, before time.Time, limit int) (int, error) {
	listCtx, cancel := s.bounded(ctx)
	stale, err := s.bookings.ListStalePending(listCtx, before.UTC(), limit)
	cancel()
	if err != nil {
		return 0, err
	}

	rejected := 0
	for _, candidate := range stale {
		_, err := s.withBooking(ctx, candidate.ID, func(ctx context.Context, tx *gorm.DB, b *models.Booking) ([]notice, error) {
			// Re-check under the lock; an admin may have assigned it meanwhile.
			if b.Status != models.BookingStatusPending || b.AssignedWorkerID != nil || !b.BookingDate.Before(before) {
				return nil, errSkip
			}
			b.Status = models.BookingStatusRejected
			if err := s.bookings.Save(ctx, tx, b); err != nil {
				return nil, err
			}
			return []notice{{template: TemplateBookingStatusUpdated, to: types.KindCustomer}}, nil
		})
		switch {
		case err == nil:
			rejected++
		case errors.Is(err, errSkip):
		default:
			log.Printf("❌ Failed to expire booking %s: %v", candidate.ID, err)
		}
	}
	return rejected, nil
}

var errSkip = apperror.Conflict("booking no longer stale")
