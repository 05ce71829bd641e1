package routes

import (
	"context"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"helperhand-server/apperror"
	"helperhand-server/middleware"
	"helperhand-server/models"
	"helperhand-server/repository"
	"helperhand-server/services"
	"helperhand-server/types"
	"helperhand-server/websocket"
)

// Accounts is the identity surface the auth handlers need.
type Accounts interface {
	RegisterCustomer(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	LoginWorker(ctx context.Context, email, password string) (*services.AuthResult, error)
}

// Workers is the worker directory used by the worker handlers.
type Workers interface {
	Create(ctx context.Context, p types.Principal, in services.WorkerInput) (*models.Worker, error)
	Register(ctx context.Context, in services.WorkerInput) (*models.Worker, *services.TokenResponse, error)
	Get(ctx context.Context, p types.Principal, id string) (*models.Worker, error)
	List(ctx context.Context, p types.Principal, filter repository.WorkerFilter) ([]models.Worker, error)
	Update(ctx context.Context, p types.Principal, id string, in services.WorkerUpdate) (*models.Worker, error)
	SetApproval(ctx context.Context, p types.Principal, id, approval string) (*models.Worker, error)
	Delete(ctx context.Context, p types.Principal, id string) error
	ToggleActive(ctx context.Context, p types.Principal) (*models.Worker, error)
	UploadImage(ctx context.Context, p types.Principal, header *multipart.FileHeader) (*models.Worker, error)
}

// Catalog serves the display catalog and the contact form.
type Catalog interface {
	ListServices(ctx context.Context, includeInactive bool) ([]models.Service, error)
	CreateService(ctx context.Context, p types.Principal, in services.ServiceInput) (*models.Service, error)
	UpdateService(ctx context.Context, p types.Principal, id string, in services.ServiceInput) (*models.Service, error)
	DeleteService(ctx context.Context, p types.Principal, id string) error
	SubmitContact(ctx context.Context, in services.ContactInput) (*models.ContactMessage, error)
	ListContacts(ctx context.Context, p types.Principal) ([]models.ContactMessage, error)
	DeleteContact(ctx context.Context, p types.Principal, id string) error
}

// Reports backs the admin dashboards and receipts.
type Reports interface {
	Summary(ctx context.Context, p types.Principal) (*services.ReportSummary, error)
	Calendar(ctx context.Context, p types.Principal, month string) ([]services.CalendarDay, error)
	Receipt(ctx context.Context, p types.Principal, bookingID string) ([]byte, string, error)
}

// Deps is everything Register wires into the router.
type Deps struct {
	Auth     middleware.Authenticator
	Resolver middleware.PrincipalResolver
	Accounts Accounts
	Bookings services.BookingService
	Workers  Workers
	Catalog  Catalog
	Reports  Reports

	Hub      *websocket.Hub
	Upgrader *gorillaws.Upgrader
	DB       Pinger

	// AuthLimiter guards the credential endpoints; nil disables it.
	AuthLimiter gin.HandlerFunc
}

// Register mounts the HelperHand API on router.
func Register(router *gin.Engine, d Deps) {
	router.GET("/health", healthHandler(d.DB))

	authed := middleware.AuthMiddleware(d.Auth, d.Resolver)
	adminOnly := middleware.RequireKinds(types.KindAdmin)
	workerOnly := middleware.RequireKinds(types.KindWorker)
	limit := d.AuthLimiter
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", limit, registerCustomer(d.Accounts))
		auth.POST("/login", limit, login(d.Accounts))
		auth.GET("/me", authed, currentPrincipal)
	}

	bookings := api.Group("/bookings", authed)
	{
		bookings.POST("", createBooking(d.Bookings))
		bookings.GET("/my", listMyBookings(d.Bookings))
		bookings.GET("", adminOnly, listAllBookings(d.Bookings))
		bookings.GET("/:id", getBooking(d.Bookings))
		bookings.GET("/:id/eligible-workers", adminOnly, eligibleWorkers(d.Bookings))
		bookings.PATCH("/:id/assign", adminOnly, assignBooking(d.Bookings))
		bookings.PATCH("/:id/unassign", adminOnly, bookingAction(d.Bookings.Unassign, "Worker unassigned"))
		bookings.PATCH("/:id/status", adminOnly, overrideStatus(d.Bookings))
		bookings.PUT("/:id/mark-done", bookingAction(d.Bookings.MarkDone, "Booking marked as done"))
		bookings.PUT("/:id/approve", bookingAction(d.Bookings.Approve, "Booking approved"))
		bookings.PUT("/:id/cancel", bookingAction(d.Bookings.Cancel, "Booking cancelled"))
		bookings.DELETE("/:id", deleteBooking(d.Bookings))
		bookings.GET("/:id/receipt", downloadReceipt(d.Reports))
	}

	feedback := api.Group("/feedback", authed)
	{
		feedback.POST("/:bookingId", submitFeedback(d.Bookings))
		feedback.GET("/:bookingId", getFeedback(d.Bookings))
	}

	workers := api.Group("/workers")
	{
		workers.POST("/register", limit, registerWorker(d.Workers))
		workers.POST("/login", limit, workerLogin(d.Accounts))

		me := workers.Group("/me", authed, workerOnly)
		me.GET("", getMyWorkerProfile(d.Workers))
		me.GET("/bookings", listMyBookings(d.Bookings))
		me.PATCH("/bookings/:id/status", workerUpdateStatus(d.Bookings))
		me.PATCH("/active", toggleActive(d.Workers))
		me.POST("/image", uploadWorkerImage(d.Workers))

		admin := workers.Group("", authed, adminOnly)
		admin.POST("", createWorker(d.Workers))
		admin.GET("", listWorkers(d.Workers))
		admin.GET("/:id", getWorker(d.Workers))
		admin.PATCH("/:id", updateWorker(d.Workers))
		admin.PATCH("/:id/approval", setWorkerApproval(d.Workers))
		admin.DELETE("/:id", deleteWorker(d.Workers))
	}

	catalog := api.Group("/services")
	{
		catalog.GET("", listServices(d.Catalog))
		catalog.GET("/all", authed, adminOnly, listAllServices(d.Catalog))
		catalog.POST("", authed, adminOnly, createService(d.Catalog))
		catalog.PUT("/:id", authed, adminOnly, updateService(d.Catalog))
		catalog.DELETE("/:id", authed, adminOnly, deleteService(d.Catalog))
	}

	contact := api.Group("/contact")
	{
		contact.POST("", submitContact(d.Catalog))
		contact.GET("", authed, adminOnly, listContacts(d.Catalog))
		contact.DELETE("/:id", authed, adminOnly, deleteContact(d.Catalog))
	}

	reports := api.Group("/admin/reports", authed, adminOnly)
	{
		reports.GET("/summary", reportSummary(d.Reports))
		reports.GET("/calendar", reportCalendar(d.Reports))
	}

	if d.Hub != nil {
		api.GET("/ws", middleware.WebSocketAuthMiddleware(d.Auth, d.Resolver), serveRealtime(d.Hub, d.Upgrader))
	}
}

var statusByKind = map[apperror.Kind]int{
	apperror.KindValidation:   http.StatusBadRequest,
	apperror.KindNotFound:     http.StatusNotFound,
	apperror.KindForbidden:    http.StatusForbidden,
	apperror.KindUnauthorized: http.StatusUnauthorized,
	apperror.KindConflict:     http.StatusConflict,
}

// respondError writes err as {"error": code, "message": text}. Internal errors
// are logged and replaced by a generic message.
func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		log.Printf("❌ %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   apperror.KindInternal.String(),
			"message": "Internal server error",
		})
		return
	}
	c.JSON(status, gin.H{"error": kind.String(), "message": apperror.Message(err)})
}

// bindJSON decodes the body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperror.Validation("Invalid request body: %v", err))
		return false
	}
	return true
}

// principal returns the caller set by the auth middleware.
func principal(c *gin.Context) types.Principal {
	p, _ := middleware.GetPrincipal(c)
	return p
}

func respondData(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}
