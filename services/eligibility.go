package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"helperhand-server/models"
	"helperhand-server/repository"
)

// busyStatuses hold a worker for the booking's calendar day.
var busyStatuses = []models.BookingStatus{models.BookingStatusConfirmed}

// Candidate is an eligible worker with the advisory same-day conflict flag.
type Candidate struct {
	Worker models.Worker `json:"worker"`
	Busy   bool          `json:"busy"`
}

// EligibilityResolver answers which workers can take a booking and whether they are busy that day.
type EligibilityResolver struct {
	bookings repository.BookingRepository
	workers  repository.WorkerRepository
	loc      *time.Location
}

func NewEligibilityResolver(bookings repository.BookingRepository, workers repository.WorkerRepository, loc *time.Location) *EligibilityResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &EligibilityResolver{bookings: bookings, workers: workers, loc: loc}
}

// IsEligible reports whether an approved worker offers the booking's service.
func IsEligible(w *models.Worker, booking *models.Booking) bool {
	return w.Approval == models.WorkerApprovalApproved && w.Offers(booking.Service)
}

// SameCalendarDay compares the dates of a and b in loc.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// IsBusy reports whether the worker holds another booking on the same calendar day.
func (r *EligibilityResolver) IsBusy(ctx context.Context, tx *gorm.DB, workerID string, booking *models.Booking) (bool, error) {
	others, err := r.bookings.ListWorkerBookingsInStatus(ctx, tx, workerID, busyStatuses, booking.ID)
	if err != nil {
		return false, err
	}
	for _, other := range others {
		if SameCalendarDay(other.BookingDate, booking.BookingDate, r.loc) {
			return true, nil
		}
	}
	return false, nil
}

// Candidates lists eligible workers for booking, each flagged busy or not.
func (r *EligibilityResolver) Candidates(ctx context.Context, booking *models.Booking) ([]Candidate, error) {
	workers, err := r.workers.List(ctx, repository.WorkerFilter{Service: booking.Service})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(workers))
	for i := range workers {
		w := workers[i]
		if !IsEligible(&w, booking) {
			continue
		}
		busy, err := r.IsBusy(ctx, nil, w.ID, booking)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{Worker: w, Busy: busy})
	}
	return candidates, nil
}
