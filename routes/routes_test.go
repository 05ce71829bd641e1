package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helperhand-server/apperror"
	"helperhand-server/models"
	"helperhand-server/repository"
	"helperhand-server/services"
	"helperhand-server/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	customer = types.Principal{ID: "c1", Kind: types.KindCustomer, Name: "Asha", Email: "asha@example.com"}
	admin    = types.Principal{ID: "a1", Kind: types.KindAdmin, Name: "Administrator"}
	worker   = types.Principal{ID: "w1", Kind: types.KindWorker, Name: "Meena"}
)

type tokenAuth map[string]types.Principal

func (t tokenAuth) Authenticate(token string) (types.Principal, error) {
	p, ok := t[token]
	if !ok {
		return types.Principal{}, apperror.Unauthorized("Invalid or expired token")
	}
	return p, nil
}

// Unset methods fall through to the nil embedded interface and panic, which
// flags a handler calling something the test did not expect.
type fakeBookings struct {
	services.BookingService
	create      func(p types.Principal, in services.CreateBookingInput) (*models.Booking, error)
	listMine    func(p types.Principal) ([]models.Booking, error)
	listAll     func(filter repository.BookingFilter) ([]models.Booking, error)
	assign      func(id string, in services.AssignInput) (*services.AssignResult, error)
	cancel      func(p types.Principal, id string) (*models.Booking, error)
	getFeedback func(id string) (*models.Feedback, error)
}

func (f *fakeBookings) Create(_ context.Context, p types.Principal, in services.CreateBookingInput) (*models.Booking, error) {
	return f.create(p, in)
}

func (f *fakeBookings) ListMine(_ context.Context, p types.Principal) ([]models.Booking, error) {
	return f.listMine(p)
}

func (f *fakeBookings) ListAll(_ context.Context, _ types.Principal, filter repository.BookingFilter) ([]models.Booking, error) {
	return f.listAll(filter)
}

func (f *fakeBookings) Assign(_ context.Context, _ types.Principal, id string, in services.AssignInput) (*services.AssignResult, error) {
	return f.assign(id, in)
}

func (f *fakeBookings) Cancel(_ context.Context, p types.Principal, id string) (*models.Booking, error) {
	return f.cancel(p, id)
}

func (f *fakeBookings) GetFeedback(_ context.Context, _ types.Principal, id string) (*models.Feedback, error) {
	return f.getFeedback(id)
}

type fakeReports struct {
	Reports
	receipt func(p types.Principal, id string) ([]byte, string, error)
}

func (f *fakeReports) Receipt(_ context.Context, p types.Principal, id string) ([]byte, string, error) {
	return f.receipt(p, id)
}

type fakeWorkers struct {
	Workers
	list func(filter repository.WorkerFilter) ([]models.Worker, error)
}

func (f *fakeWorkers) List(_ context.Context, _ types.Principal, filter repository.WorkerFilter) ([]models.Worker, error) {
	return f.list(filter)
}

type fakeAccounts struct {
	Accounts
	login func(email, password string) (*services.AuthResult, error)
}

func (f *fakeAccounts) Login(_ context.Context, email, password string) (*services.AuthResult, error) {
	return f.login(email, password)
}

type harness struct {
	router   *gin.Engine
	bookings *fakeBookings
	reports  *fakeReports
	workers  *fakeWorkers
	accounts *fakeAccounts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		router:   gin.New(),
		bookings: &fakeBookings{},
		reports:  &fakeReports{},
		workers:  &fakeWorkers{},
		accounts: &fakeAccounts{},
	}
	Register(h.router, Deps{
		Auth:     tokenAuth{"customer": customer, "admin": admin, "worker": worker},
		Accounts: h.accounts,
		Bookings: h.bookings,
		Workers:  h.workers,
		Reports:  h.reports,
	})
	return h
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.Validation("bad"), http.StatusBadRequest, "validation_error"},
		{apperror.NotFound("Booking"), http.StatusNotFound, "not_found"},
		{apperror.Forbidden("no"), http.StatusForbidden, "forbidden"},
		{apperror.Unauthorized("who"), http.StatusUnauthorized, "unauthorized"},
		{apperror.Conflict("Booking already cancelled"), http.StatusConflict, "conflict"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tc.code, body["error"])
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", body["message"])
			}
		})
	}
}

func TestCreateBooking(t *testing.T) {
	h := newHarness(t)
	date := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

	var got services.CreateBookingInput
	h.bookings.create = func(p types.Principal, in services.CreateBookingInput) (*models.Booking, error) {
		assert.Equal(t, customer.ID, p.ID)
		got = in
		return &models.Booking{ID: "b1", Service: in.Service, Status: models.BookingStatusPending}, nil
	}

	w := h.do(http.MethodPost, "/api/bookings", "customer", gin.H{
		"service":      "cleaners",
		"booking_date": date.Format(time.RFC3339),
		"name":         "Asha",
		"phone":        "9000000000",
		"address":      "12 MG Road",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, got.BookingDate.Equal(date))
	assert.Equal(t, "cleaners", got.Service)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "b1", data["id"])
}

func TestCreateBooking_Errors(t *testing.T) {
	h := newHarness(t)
	h.bookings.create = func(types.Principal, services.CreateBookingInput) (*models.Booking, error) {
		return nil, apperror.Validation("Booking date must be in the future")
	}

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/bookings", "", gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/bookings", "customer", "{not json").Code)

	w := h.do(http.MethodPost, "/api/bookings", "customer", gin.H{"service": "cleaners"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Booking date must be in the future", decode(t, w)["message"])
}

func TestListAllBookings_AdminOnlyWithStatusFilter(t *testing.T) {
	h := newHarness(t)
	var filter repository.BookingFilter
	h.bookings.listAll = func(f repository.BookingFilter) ([]models.Booking, error) {
		filter = f
		return []models.Booking{{ID: "b1"}}, nil
	}

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/bookings", "customer", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/bookings?status=lost", "admin", nil).Code)

	w := h.do(http.MethodGet, "/api/bookings?status=assigned", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, filter.Status)
	assert.Equal(t, models.BookingStatusConfirmed, *filter.Status)
}

func TestAssignBooking_ReportsBusy(t *testing.T) {
	h := newHarness(t)
	h.bookings.assign = func(id string, in services.AssignInput) (*services.AssignResult, error) {
		assert.Equal(t, "b1", id)
		assert.Equal(t, "w1", in.WorkerID)
		return &services.AssignResult{Booking: &models.Booking{ID: id}, Busy: true}, nil
	}

	w := h.do(http.MethodPatch, "/api/bookings/b1/assign", "admin", gin.H{"worker_id": "w1", "note": "bring gloves"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body["message"], "already has a booking")
	assert.Equal(t, true, body["data"].(map[string]any)["busy"])
}

func TestCancelBooking_Conflict(t *testing.T) {
	h := newHarness(t)
	h.bookings.cancel = func(p types.Principal, id string) (*models.Booking, error) {
		return nil, apperror.Conflict("Booking already cancelled")
	}

	w := h.do(http.MethodPut, "/api/bookings/b1/cancel", "customer", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Booking already cancelled", decode(t, w)["message"])
}

func TestWorkerRoutes(t *testing.T) {
	h := newHarness(t)
	h.bookings.listMine = func(p types.Principal) ([]models.Booking, error) {
		assert.Equal(t, types.KindWorker, p.Kind)
		return []models.Booking{{ID: "b1"}, {ID: "b2"}}, nil
	}
	h.workers.list = func(f repository.WorkerFilter) ([]models.Worker, error) {
		require.NotNil(t, f.Active)
		assert.True(t, *f.Active)
		assert.Equal(t, "cleaners", f.Service)
		return nil, nil
	}

	w := h.do(http.MethodGet, "/api/workers/me/bookings", "worker", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 2)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/workers/me/bookings", "customer", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/workers", "worker", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/workers?active=maybe", "admin", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/workers?active=true&service=cleaners", "admin", nil).Code)
}

func TestFeedback_NullWhenMissing(t *testing.T) {
	h := newHarness(t)
	h.bookings.getFeedback = func(string) (*models.Feedback, error) { return nil, nil }

	w := h.do(http.MethodGet, "/api/feedback/b1", "customer", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body, "data")
	assert.Nil(t, body["data"])
}

func TestDownloadReceipt(t *testing.T) {
	h := newHarness(t)
	h.reports.receipt = func(p types.Principal, id string) ([]byte, string, error) {
		return []byte("%PDF-1.3"), "receipt-" + id + ".pdf", nil
	}

	w := h.do(http.MethodGet, "/api/bookings/b1/receipt", "customer", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "receipt-b1.pdf")
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.accounts.login = func(email, password string) (*services.AuthResult, error) {
		if password != "secret1" {
			return nil, apperror.Unauthorized("Invalid credentials")
		}
		return &services.AuthResult{Principal: customer, Kind: "customer"}, nil
	}

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@example.com", "password": "nope"}).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@example.com", "password": "secret1"}).Code)

	w := h.do(http.MethodGet, "/api/auth/me", "customer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "customer", decode(t, w)["data"].(map[string]any)["kind"])
}

func TestHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	r := gin.New()
	r.GET("/health", healthHandler(db))

	mock.ExpectPing()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])

	assert.NoError(t, mock.ExpectationsWereMet())
}
