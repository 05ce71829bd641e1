package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helperhand-server/apperror"
	"helperhand-server/models"
)

func TestReportSummary(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	reports := NewReportService(f.bookings, f.feedback, time.UTC, time.Second)
	w := f.addWorker(t, "meena", "cleaners", "helper")

	done := f.book(t, "cleaners", futureDay(2, 9))
	f.book(t, "helper", futureDay(3, 9))
	cancelled := f.book(t, "washing", futureDay(4, 9))
	_, err := f.svc.Assign(ctx, f.admin, done.ID, AssignInput{WorkerID: w.ID})
	require.NoError(t, err)
	_, err = f.svc.MarkDone(ctx, workerPrincipal(w), done.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitFeedback(ctx, f.customer, done.ID, FeedbackInput{Rating: 4})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, f.customer, cancelled.ID)
	require.NoError(t, err)

	summary, err := reports.Summary(ctx, f.admin)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.TotalBookings)
	assert.Equal(t, int64(1), summary.ByStatus["completed"])
	assert.Equal(t, int64(1), summary.ByStatus["pending"])
	assert.Equal(t, int64(1), summary.ByStatus["cancelled"])
	assert.Equal(t, int64(0), summary.ByStatus["rejected"])
	assert.Equal(t, int64(1), summary.UniqueCustomers)
	assert.Equal(t, "200.00", summary.Revenue.StringFixed(2))
	require.NotNil(t, summary.AverageRating)
	assert.InDelta(t, 4.0, *summary.AverageRating, 0.001)

	_, err = reports.Summary(ctx, f.customer)
	assert.True(t, apperror.IsForbidden(err))
}

func TestReportCalendar(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	reports := NewReportService(f.bookings, f.feedback, time.UTC, time.Second)

	day := futureDay(40, 0)
	f.book(t, "cleaners", day.Add(9*time.Hour))
	f.book(t, "helper", day.Add(15*time.Hour))
	f.book(t, "washing", day.AddDate(0, 2, 0).Add(9*time.Hour))

	days, err := reports.Calendar(ctx, f.admin, day.Format("2006-01"))
	require.NoError(t, err)

	require.Len(t, days, 1)
	assert.Equal(t, day.Format("2006-01-02"), days[0].Date)
	assert.Equal(t, 2, days[0].Total)
	assert.Equal(t, 2, days[0].ByStatus["pending"])

	_, err = reports.Calendar(ctx, f.admin, "July")
	assert.True(t, apperror.IsValidation(err))
}

func TestReceipt(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	reports := NewReportService(f.bookings, f.feedback, time.UTC, time.Second)
	b := f.book(t, "cleaners", futureDay(2, 9))

	_, _, err := reports.Receipt(ctx, f.customer, b.ID)
	assert.True(t, apperror.IsConflict(err))

	_, err = f.svc.OverrideStatus(ctx, f.admin, b.ID, string(models.BookingStatusCompleted))
	require.NoError(t, err)

	_, _, err = reports.Receipt(ctx, f.other, b.ID)
	assert.True(t, apperror.IsForbidden(err))

	pdf, name, err := reports.Receipt(ctx, f.customer, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "receipt-"+b.ID+".pdf", name)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}
