package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/attendance-service/config"
	"github.com/Eursukkul/attendance-service/internal/consumer"
	"github.com/Eursukkul/attendance-service/internal/handler"
	"github.com/Eursukkul/attendance-service/internal/jobs"
	"github.com/Eursukkul/attendance-service/internal/middleware"
	"github.com/Eursukkul/attendance-service/internal/presence"
	"github.com/Eursukkul/attendance-service/internal/repository"
	"github.com/Eursukkul/attendance-service/internal/service"
	"github.com/Eursukkul/attendance-service/internal/token"
	"github.com/Eursukkul/attendance-service/pkg/database"
	"github.com/Eursukkul/attendance-service/pkg/payment"
	"github.com/Eursukkul/attendance-service/pkg/rabbitmq"
	"github.com/Eursukkul/attendance-service/pkg/storage"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := database.NewPostgresDB(cfg.DSN())

	// Repositories
	tx := repository.NewTransactor(db)
	eventRepo := repository.NewEventRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	ticketRepo := repository.NewTicketRepository(db)

	codec := token.NewCodec(cfg.TokenSecret, token.WithUnsigned(cfg.TokenAllowUnsigned))

	// RabbitMQ: event sync in, notifications out
	var publisher service.Publisher
	if cfg.RabbitURL != "" {
		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, rabbitmq.EventSyncConfig())
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to RabbitMQ")
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume()
		if err != nil {
			logrus.WithError(err).Fatal("failed to start consuming")
		}
		consumer.NewEventConsumer(eventRepo).Start(msgs)

		mqPublisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, rabbitmq.NotificationExchange)
		if err != nil {
			logrus.WithError(err).Fatal("failed to open RabbitMQ publisher")
		}
		defer mqPublisher.Close()
		publisher = mqPublisher
	} else {
		logrus.Warn("RABBITMQ_URL not set, event sync and notifications disabled")
	}

	// Scanner presence
	var presenceStore presence.Store = presence.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logrus.WithError(err).Warn("redis unreachable, keeping scanner presence in memory")
		} else {
			presenceStore = presence.NewRedisStore(rdb)
		}
	}
	tracker := presence.NewTracker(presenceStore, cfg.PresenceTTL)

	// Roster archive
	var archive service.Archive
	if cfg.S3Bucket != "" {
		s3Archive, err := storage.NewS3Archive(ctx, storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			logrus.WithError(err).Fatal("failed to configure roster archive")
		}
		archive = s3Archive
	}

	// Payment gateway
	var gateway service.PaymentGateway
	if cfg.PaymentBaseURL != "" {
		gateway = payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentSecretKey, cfg.PaymentCallbackURL)
	} else {
		logrus.Warn("PAYMENT_BASE_URL not set, gateway purchases disabled")
	}

	// Services
	validationSvc := service.NewValidationService(service.ValidationDeps{
		Tx:            tx,
		Registrations: registrationRepo,
		Events:        eventRepo,
		Members:       memberRepo,
		Rosters:       rosterRepo,
		Attendance:    attendanceRepo,
		Codec:         codec,
		Presence:      tracker,
		Publisher:     publisher,
	})
	ticketSvc := service.NewTicketService(service.TicketDeps{
		Tx:         tx,
		Tickets:    ticketRepo,
		Events:     eventRepo,
		Attendance: attendanceRepo,
		Codec:      codec,
		Gateway:    gateway,
		Presence:   tracker,
		Publisher:  publisher,
	})
	paymentSvc := service.NewPaymentService(ticketRepo, gateway, publisher, cfg.ReconcileMinAge)
	registrationSvc := service.NewRegistrationService(registrationRepo, eventRepo, memberRepo, codec, publisher)
	rosterSvc := service.NewRosterService(rosterRepo, eventRepo, archive)

	if gateway != nil {
		scheduler, err := jobs.StartPaymentReconciler(paymentSvc, cfg.ReconcileInterval)
		if err != nil {
			logrus.WithError(err).Fatal("failed to start payment reconciler")
		}
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				logrus.WithError(err).Warn("scheduler shutdown")
			}
		}()
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestID())
	e.Use(middleware.RequestLogger(logrus.StandardLogger()))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "attendance-service"})
	})

	handler.NewValidationHandler(validationSvc, attendanceRepo, tracker).RegisterRoutes(e)
	handler.NewRegistrationHandler(registrationSvc).RegisterRoutes(e)
	handler.NewTicketHandler(ticketSvc, paymentSvc).RegisterRoutes(e)
	handler.NewRosterHandler(rosterSvc).RegisterRoutes(e)

	go func() {
		logrus.WithField("port", cfg.ServerPort).Info("attendance service starting")
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
