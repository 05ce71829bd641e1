package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"helperhand-server/apperror"
	"helperhand-server/models"
	"helperhand-server/repository"
	"helperhand-server/types"
)

type ReportSummary struct {
	TotalBookings   int64            `json:"total_bookings"`
	ByStatus        map[string]int64 `json:"by_status"`
	UniqueCustomers int64            `json:"unique_customers"`
	Revenue         decimal.Decimal  `json:"revenue"`
	AverageRating   *float64         `json:"average_rating"`
}

// CalendarDay is one day of the admin booking calendar.
type CalendarDay struct {
	Date     string           `json:"date"`
	Total    int              `json:"total"`
	ByStatus map[string]int   `json:"by_status"`
	Bookings []models.Booking `json:"bookings"`
}

type ReportService struct {
	bookings repository.BookingRepository
	feedback repository.FeedbackRepository
	loc      *time.Location
	timeout  time.Duration
}

func NewReportService(bookings repository.BookingRepository, feedback repository.FeedbackRepository, loc *time.Location, timeout time.Duration) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ReportService{bookings: bookings, feedback: feedback, loc: loc, timeout: timeout}
}

func (s *ReportService) Summary(ctx context.Context, p types.Principal) (*ReportSummary, error) {
	if err := requireAdmin(p, "view reports"); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	counts, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	summary := &ReportSummary{ByStatus: make(map[string]int64, len(models.BookingStatuses))}
	for _, st := range models.BookingStatuses {
		summary.ByStatus[string(st)] = 0
	}
	for _, c := range counts {
		summary.ByStatus[string(c.Status)] = c.Count
		summary.TotalBookings += c.Count
	}

	if summary.UniqueCustomers, err = s.bookings.CountDistinctCustomers(ctx); err != nil {
		return nil, err
	}
	if summary.Revenue, err = s.bookings.SumPriceByStatus(ctx, models.BookingStatusCompleted); err != nil {
		return nil, err
	}

	avg, ok, err := s.feedback.AverageRating(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		summary.AverageRating = &avg
	}
	return summary, nil
}

// Calendar groups the bookings of month (YYYY-MM) by calendar day in the booking zone.
// Days without bookings are omitted.
func (s *ReportService) Calendar(ctx context.Context, p types.Principal, month string) ([]CalendarDay, error) {
	if err := requireAdmin(p, "view reports"); err != nil {
		return nil, err
	}
	start, err := time.ParseInLocation("2006-01", month, s.loc)
	if err != nil {
		return nil, apperror.Validation("month must be formatted as YYYY-MM")
	}
	end := start.AddDate(0, 1, 0)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	bookings, err := s.bookings.ListBetween(ctx, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}

	days := []CalendarDay{}
	index := map[string]int{}
	for _, b := range bookings {
		key := b.BookingDate.In(s.loc).Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, CalendarDay{Date: key, ByStatus: map[string]int{}})
		}
		days[i].Total++
		days[i].ByStatus[string(b.Status)]++
		days[i].Bookings = append(days[i].Bookings, b)
	}
	return days, nil
}

// Receipt renders a PDF receipt for a completed booking.
func (s *ReportService) Receipt(ctx context.Context, p types.Principal, bookingID string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	b, err := s.bookings.FindByID(ctx, nil, bookingID)
	if err != nil {
		return nil, "", err
	}
	if err := Authorize(p, ActionDownloadReceipt, b); err != nil {
		return nil, "", err
	}
	if b.Status != models.BookingStatusCompleted {
		return nil, "", apperror.Conflict("Receipt is only available for completed bookings")
	}

	data, err := s.renderReceipt(b)
	if err != nil {
		return nil, "", apperror.Internal("render receipt", err)
	}
	return data, fmt.Sprintf("receipt-%s.pdf", b.ID), nil
}

func (s *ReportService) renderReceipt(b *models.Booking) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Booking Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "HelperHand Services - Receipt")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booking ID : " + b.ID,
		"Service    : " + b.Service,
		"Date       : " + b.BookingDate.In(s.loc).Format("02 Jan 2006 15:04"),
		"Customer   : " + b.Name,
		"Phone      : " + b.Phone,
	}
	if b.AssignedWorker != nil {
		lines = append(lines, "Worker     : "+b.AssignedWorker.Name)
	}
	if b.CompletedAt != nil {
		lines = append(lines, "Completed  : "+b.CompletedAt.In(s.loc).Format("02 Jan 2006 15:04"))
	}
	for _, l := range lines {
		pdf.Cell(0, 7, tr(l))
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Address:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(b.Address), "", "", false)

	if b.Details != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Details:")
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(b.Details), "", "", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Total: INR "+b.Price.StringFixed(2))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Thank you for choosing HelperHand Services.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
