// Package main runs the EcoHaven HTTP server with the live check-in feed and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ecohaven/backend/config"
	"github.com/ecohaven/backend/internal/auth"
	"github.com/ecohaven/backend/internal/bookings"
	"github.com/ecohaven/backend/internal/checkins"
	"github.com/ecohaven/backend/internal/dashboard"
	"github.com/ecohaven/backend/internal/emaillogs"
	"github.com/ecohaven/backend/internal/events"
	"github.com/ecohaven/backend/internal/faqs"
	"github.com/ecohaven/backend/internal/middleware"
	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/internal/payments"
	"github.com/ecohaven/backend/internal/realtime"
	"github.com/ecohaven/backend/internal/refunds"
	"github.com/ecohaven/backend/internal/reviews"
	"github.com/ecohaven/backend/internal/rewards"
	"github.com/ecohaven/backend/internal/volunteers"
	"github.com/ecohaven/backend/internal/worker"
	"github.com/ecohaven/backend/pkg/database"
	"github.com/ecohaven/backend/pkg/mailer"
	"github.com/ecohaven/backend/pkg/queue"
	"github.com/ecohaven/backend/pkg/redis"
	"github.com/ecohaven/backend/pkg/response"
	"github.com/ecohaven/backend/pkg/storage"
	"github.com/ecohaven/backend/pkg/validation"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := validation.RegisterGin(); err != nil {
		logger.Fatal("register validators", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	uploads, err := newUploadStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("uploads", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Accounts
	accountRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(accountRepo, jwtService, logger)
	resetSvc := auth.NewResetService(accountRepo, auth.NewRedisResetStore(rdb.Client), jobQueue,
		time.Duration(cfg.Reset.CodeTTLMinutes)*time.Minute, logger)
	userReset := auth.NewResetHandler(resetSvc, auth.UserFlow)
	staffReset := auth.NewResetHandler(resetSvc, auth.StaffFlow)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, uploads, cfg.Uploads.MaxBytes, logger)

	// Bookings and payments
	bookingRepo := bookings.NewRepository(pool)
	notifier := bookings.NewNotifier(jobQueue, logger)
	issuer := bookings.NewIssuer(eventRepo, bookingRepo, bookings.NewRedisPendingStore(rdb), notifier,
		cfg.Booking.QRBaseURL, time.Duration(cfg.Booking.PendingTTLMinutes)*time.Minute, logger)
	bookingHandler := bookings.NewHandler(issuer, bookingRepo, eventRepo, notifier, logger)

	paymentRepo := payments.NewRepository(pool)
	paymentHandler := payments.NewHandler(payments.NewProcessor(issuer, paymentRepo, logger), paymentRepo, logger)

	refundHandler := refunds.NewHandler(refunds.NewService(refunds.NewRepository(pool), jobQueue, logger), logger)

	// Check-in
	checkinHandler := checkins.NewHandler(checkins.NewValidator(checkins.NewRepository(pool), hub, logger), logger)

	// Rewards
	rewardRepo := rewards.NewRepository(pool)
	rewardHandler := rewards.NewHandler(rewards.NewService(rewardRepo, jobQueue, logger), rewardRepo, uploads, cfg.Uploads.MaxBytes, logger)

	// Community
	volunteerHandler := volunteers.NewHandler(volunteers.NewRepository(pool), logger)
	reviewHandler := reviews.NewHandler(reviews.NewRepository(pool), logger)
	faqHandler := faqs.NewHandler(faqs.NewRepository(pool), logger)

	// Dashboard
	emailLogRepo := emaillogs.NewRepository(pool)
	emailLogHandler := emaillogs.NewHandler(emailLogRepo, logger)
	dashHandler := dashboard.NewHandler(dashboard.NewRepository(pool), rdb,
		time.Duration(cfg.Dashboard.CacheTTLSeconds)*time.Second, logger)

	// Live feed authorizer: token must belong to an active staff account.
	feedAuth := func(ctx context.Context, token string) (uuid.UUID, error) {
		id, err := jwtService.AccountID(token)
		if err != nil {
			return uuid.Nil, err
		}
		a, err := accountRepo.GetByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		if a.Status != models.AccountActive || !a.Role.IsStaff() {
			return uuid.Nil, errors.New("staff account required")
		}
		return a.ID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/password/forgot", userReset.Forgot)
		authGroup.POST("/password/verify", userReset.Verify)
		authGroup.POST("/password/reset", userReset.Reset)
	}
	staffGroup := router.Group("/staff/password")
	{
		staffGroup.POST("/forgot", staffReset.Forgot)
		staffGroup.POST("/verify", staffReset.Verify)
		staffGroup.POST("/reset", staffReset.Reset)
	}

	// Public catalogue
	router.GET("/api/events", eventHandler.List)
	router.GET("/api/events/:id", eventHandler.GetByID)
	router.GET("/api/event-picture/:eventId", eventHandler.Picture)
	router.GET("/eco/products", rewardHandler.ListProducts)
	router.GET("/eco/products/:id", rewardHandler.GetProduct)
	router.GET("/eco/product-image/:id", rewardHandler.Image)
	router.POST("/volunteer", volunteerHandler.SignUp)
	router.GET("/reviews", reviewHandler.List)
	router.GET("/faqs", faqHandler.List)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService.AccountID, accountRepo))
	staff := middleware.RequireStaff()
	admin := middleware.RequireRole(models.RoleAdmin)
	{
		// Accounts
		api.GET("/account/me", authHandler.Me)
		api.PUT("/account/me", authHandler.UpdateMe)
		api.PUT("/account/me/password", authHandler.ChangePassword)
		api.GET("/accounts", staff, authHandler.List)
		api.POST("/accounts/staff", admin, authHandler.CreateStaff)
		api.PATCH("/accounts/:id/status", admin, authHandler.SetStatus)

		// Events (staff)
		api.POST("/api/events", staff, eventHandler.Create)
		api.PUT("/api/events/:id", staff, eventHandler.Update)
		api.DELETE("/api/events/:id", staff, eventHandler.Delete)
		api.POST("/api/events/:id/picture", staff, eventHandler.UploadPicture)
		api.GET("/api/events/:id/bookings", staff, bookingHandler.ListByEvent)
		api.GET("/api/events/:id/checkins", staff, checkinHandler.ListByEvent)

		// Bookings
		api.POST("/api/bookings", bookingHandler.Create)
		api.GET("/api/bookings/mine", bookingHandler.Mine)
		api.GET("/api/bookings/:id", bookingHandler.GetByID)
		api.POST("/api/bookings/:id/cancel", bookingHandler.Cancel)
		api.POST("/send-email", bookingHandler.SendEmail)

		// Payments and refunds
		api.POST("/pay", paymentHandler.Pay)
		api.GET("/api/payments/mine", paymentHandler.Mine)
		api.GET("/api/payments", staff, paymentHandler.List)
		api.GET("/api/payments/:id", paymentHandler.GetByID)
		api.POST("/api/refunds", refundHandler.Create)
		api.GET("/api/refunds/mine", refundHandler.Mine)
		api.GET("/api/refunds", staff, refundHandler.List)
		api.PATCH("/api/refunds/:id", staff, refundHandler.Decide)

		// Check-in (staff)
		api.POST("/api/checkins", staff, checkinHandler.CheckIn)
		api.GET("/api/checkins/:token", staff, checkinHandler.Preview)

		// Rewards
		api.POST("/eco/products", staff, rewardHandler.CreateProduct)
		api.PUT("/eco/products/:id", staff, rewardHandler.UpdateProduct)
		api.DELETE("/eco/products/:id", staff, rewardHandler.DeleteProduct)
		api.POST("/eco/products/:id/image", staff, rewardHandler.UploadImage)
		api.POST("/eco/redeem", rewardHandler.Redeem)
		api.GET("/eco/collections/mine", rewardHandler.MyCollections)
		api.GET("/eco/collections", staff, rewardHandler.Collections)
		api.PATCH("/eco/collections/:id/collected", staff, rewardHandler.MarkCollected)

		// Community
		api.GET("/volunteer/getvolunteer", staff, volunteerHandler.List)
		api.PUT("/volunteer/:id", staff, volunteerHandler.Update)
		api.DELETE("/volunteer/:id", staff, volunteerHandler.Delete)
		api.POST("/reviews", reviewHandler.Create)
		api.PUT("/reviews/:id", reviewHandler.Update)
		api.DELETE("/reviews/:id", reviewHandler.Delete)
		api.POST("/faqs", staff, faqHandler.Create)
		api.PUT("/faqs/:id", staff, faqHandler.Update)
		api.DELETE("/faqs/:id", staff, faqHandler.Delete)

		// Dashboard (staff)
		api.GET("/dash/summary", staff, dashHandler.Summary)
		api.GET("/dash/events", staff, dashHandler.Events)
		api.GET("/dash/revenue", staff, dashHandler.Revenue)
		api.GET("/dash/emails", staff, emailLogHandler.List)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws/checkins", realtime.ServeWs(hub, realtime.NewUpgrader(cfg.Server.CORSAllowedOrigins), feedAuth, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background email worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Worker.InlineEmails {
		sender := mailer.New(mailer.Config{
			Host:        cfg.Email.SMTPHost,
			Port:        cfg.Email.SMTPPort,
			User:        cfg.Email.SMTPUser,
			Pass:        cfg.Email.SMTPPass,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
		}, logger)
		go worker.NewEmailProcessor(jobQueue, sender, emailLogRepo, logger).Run(workerCtx)
		logger.Info("email worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newUploadStore returns the S3 store when UPLOAD_BACKEND=s3, the local directory otherwise.
func newUploadStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.Uploads.Backend == "s3" {
		return storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.AWS.UploadsBucket,
		}, logger)
	}
	return storage.NewLocal(cfg.Uploads.Dir, logger)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
