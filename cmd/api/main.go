package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/emra-dev/lms-api/api/swagger"
	"github.com/emra-dev/lms-api/internal/handler"
	"github.com/emra-dev/lms-api/internal/repository"
	"github.com/emra-dev/lms-api/internal/service"
	"github.com/emra-dev/lms-api/pkg/cache"
	"github.com/emra-dev/lms-api/pkg/config"
	"github.com/emra-dev/lms-api/pkg/database"
	"github.com/emra-dev/lms-api/pkg/export"
	"github.com/emra-dev/lms-api/pkg/jobs"
	"github.com/emra-dev/lms-api/pkg/logger"
	"github.com/emra-dev/lms-api/pkg/mailer"
	corsmiddleware "github.com/emra-dev/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/emra-dev/lms-api/pkg/middleware/requestid"
	"github.com/emra-dev/lms-api/pkg/payment/paydunya"
	"github.com/emra-dev/lms-api/pkg/storage"
)

// @title e-MRA LMS API
// @version 1.0.0
// @description Course authoring, enrollment, payments and learning progress.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The dashboard cache is an optimization; the API runs without it.
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	curriculum := repository.NewCurriculumRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	orders := repository.NewOrderRepository(db)
	progress := repository.NewProgressRepository(db)
	quizzes := repository.NewQuizRepository(db)
	notifications := repository.NewNotificationRepository(db)
	certificates := repository.NewCertificateRepository(db)
	community := repository.NewCommunityRepository(db)
	conversations := repository.NewConversationRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	analytics := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Outbound integrations.
	var mail mailer.Mailer
	if cfg.Mail.SendgridAPIKey != "" {
		mail = mailer.NewSendgridMailer(cfg.Mail.SendgridAPIKey, cfg.Mail.FromName, cfg.Mail.FromAddress, logr)
	} else {
		mail = mailer.NewConsoleMailer(logr)
	}
	archive, err := storage.NewArchive(cfg.Storage.CertificateDir)
	if err != nil {
		logr.Sugar().Warnw("certificate archive unavailable, rendering on demand", "error", err)
		archive = nil
	}
	provider := paydunya.New(paydunya.Config{
		MasterKey:  cfg.Payment.MasterKey,
		PrivateKey: cfg.Payment.PrivateKey,
		Token:      cfg.Payment.Token,
		StoreName:  cfg.Payment.StoreName,
		Sandbox:    cfg.Payment.Sandbox,
		Timeout:    cfg.Payment.Timeout,
	}, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(notifications, users, mail, logr)
	authSvc := service.NewAuthService(users, notificationSvc, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer, validate, logr)
	courseSvc := service.NewCourseService(courses, curriculum, enrollments, progress, validate, logr)
	paymentSvc := service.NewPaymentService(orders, courses, enrollments, provider, notificationSvc, service.PaymentConfig{
		MinimumAmount: cfg.Payment.MinimumAmount,
		CallbackURL:   cfg.Payment.CallbackURL,
		FrontendURL:   cfg.Payment.FrontendURL,
	}, validate, logr)
	learningSvc := service.NewLearningService(courses, enrollments, progress, curriculum, quizzes, users, certificates, notificationSvc, service.LearningConfig{
		LessonXP:     cfg.Learning.LessonXP,
		MaxManualXP:  cfg.Learning.MaxManualXP,
		PassingRatio: cfg.Learning.PassingRatio,
	}, validate, logr)
	certificateSvc := service.NewCertificateService(certificates, courses, export.NewCertificateRenderer(), archive, logr)
	assignmentSvc := service.NewAssignmentService(assignments, enrollments, notificationSvc, validate, logr)
	communitySvc := service.NewCommunityService(community, enrollments, courses, notificationSvc, validate, logr)
	messagingSvc := service.NewMessagingService(conversations, notificationSvc, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
	}, validate, logr)
	analyticsSvc := service.NewAnalyticsService(analytics, cacheRepo, users, cfg.Analytics.CacheTTL, logr)
	userSvc := service.NewUserService(users, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	messagingSvc.Start(ctx)
	defer messagingSvc.Stop()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metricsSvc.SetQueueDepth(messagingSvc.Queue().Depth())
			}
		}
	}()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Course:       handler.NewCourseHandler(courseSvc),
		Payment:      handler.NewPaymentHandler(paymentSvc),
		Learning:     handler.NewLearningHandler(learningSvc),
		Certificate:  handler.NewCertificateHandler(certificateSvc),
		Assignment:   handler.NewAssignmentHandler(assignmentSvc),
		Community:    handler.NewCommunityHandler(communitySvc),
		Messaging:    handler.NewMessagingHandler(messagingSvc),
		Notification: handler.NewNotificationHandler(notificationSvc),
		Analytics:    handler.NewAnalyticsHandler(analyticsSvc, metricsSvc),
		User:         handler.NewUserHandler(userSvc),
		AuthService:  authSvc,
		Metrics:      metricsSvc,
	}.Register(r)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("forced shutdown", zap.Error(err))
	}
}
