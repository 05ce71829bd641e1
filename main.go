package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"helperhand-server/config"
	"helperhand-server/database"
	"helperhand-server/jobs"
	"helperhand-server/messaging"
	"helperhand-server/middleware"
	"helperhand-server/repository"
	"helperhand-server/routes"
	"helperhand-server/services"
	ws "helperhand-server/websocket"
)

const maxRequestBody = 10 << 20

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database handle: ", err)
	}
	defer sqlDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bookingRepo := repository.NewBookingRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	userRepo := repository.NewUserRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	jwtService := services.NewJWTService(cfg.JWT)
	loc := cfg.Booking.Location()

	// Realtime hub for in-app notifications
	hub := ws.NewHub()
	go hub.Run()

	hubNotifier := ws.NewHubNotifier(hub)
	channels := services.MultiNotifier{hubNotifier}
	if cfg.Broker.URL != "" {
		pub, err := messaging.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			log.Fatal("Failed to connect to message broker: ", err)
		}
		defer pub.Close()
		channels = append(channels, messaging.NewEmailNotifier(pub))
	} else {
		log.Println("ℹ️ AMQP_URL not set, email notifications are logged only")
		channels = append(channels, services.LogNotifier{})
	}
	dispatcher := services.NewDispatcher(channels, cfg.Notify.Timeout)

	var uploader services.ImageUploader
	if cfg.Cloudinary.URL != "" {
		cld, err := services.NewCloudinaryUploader(cfg.Cloudinary.URL, cfg.Cloudinary.Folder)
		if err != nil {
			log.Fatal("Failed to configure Cloudinary: ", err)
		}
		uploader = cld
	} else {
		log.Println("ℹ️ CLOUDINARY_URL not set, worker image uploads are disabled")
	}

	bookingService := services.NewBookingService(
		bookingRepo,
		workerRepo,
		feedbackRepo,
		services.NewEligibilityResolver(bookingRepo, workerRepo, loc),
		dispatcher,
		services.BookingOptions{
			QueryTimeout:  cfg.Database.QueryTimeout,
			StrictOverlap: cfg.Booking.StrictOverlap,
			Location:      loc,
		},
	)
	accountService := services.NewAccountService(userRepo, workerRepo, jwtService)
	workerService := services.NewWorkerService(workerRepo, bookingRepo, jwtService, uploader, cfg.Database.QueryTimeout)
	catalogService := services.NewCatalogService(catalogRepo, cfg.Database.QueryTimeout)
	catalogService.PublishTo(hubNotifier)
	reportService := services.NewReportService(bookingRepo, feedbackRepo, loc, cfg.Database.QueryTimeout)

	if err := seed(accountService, catalogService, cfg.Admin); err != nil {
		log.Fatal("Failed to seed database: ", err)
	}

	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Disable automatic redirects for trailing slashes
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	limiter.StartCleanup(ctx, 10*time.Minute)
	authLimiter := middleware.NewRateLimiter(rate.Every(12*time.Second), 5)
	authLimiter.StartCleanup(ctx, 10*time.Minute)

	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.InputValidationMiddleware(maxRequestBody))
	router.Use(limiter.Middleware(1))
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(middleware.AuditLogMiddleware())

	routes.Register(router, routes.Deps{
		Auth:        jwtService,
		Resolver:    accountService,
		Accounts:    accountService,
		Bookings:    bookingService,
		Workers:     workerService,
		Catalog:     catalogService,
		Reports:     reportService,
		Hub:         hub,
		Upgrader:    ws.NewUpgrader(cfg.CORS.AllowedOrigins),
		DB:          sqlDB,
		AuthLimiter: authLimiter.Middleware(60),
	})

	// Start background jobs
	expirationJob := jobs.NewExpirationJob(bookingService, cfg.Jobs.ExpirationInterval, cfg.Jobs.ExpirationGrace)
	expirationJob.Start()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 HelperHand server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server shutdown failed: %v", err)
	}

	expirationJob.Stop()
	dispatcher.Wait()
	hub.Stop()
	log.Println("👋 Server stopped")
}
