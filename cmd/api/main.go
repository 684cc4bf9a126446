package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/docs"
	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/internal/database"
	"github.com/atelier-dz/cnc-marketplace-api/internal/http/handler"
	"github.com/atelier-dz/cnc-marketplace-api/internal/http/middleware"
	"github.com/atelier-dz/cnc-marketplace-api/internal/http/router"
	"github.com/atelier-dz/cnc-marketplace-api/internal/jobs"
	"github.com/atelier-dz/cnc-marketplace-api/internal/logger"
	"github.com/atelier-dz/cnc-marketplace-api/internal/metrics"
	"github.com/atelier-dz/cnc-marketplace-api/internal/notify"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"github.com/atelier-dz/cnc-marketplace-api/internal/shipping"
	"github.com/atelier-dz/cnc-marketplace-api/internal/storage"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// @title CNC Marketplace API
// @version 1.0
// @description Marketplace connecting clients with CNC machining workshops across Algeria: quote requests, bids, orders, escrow payments and messaging.

// @contact.name API Support
// @contact.email support@atelier.dz

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Secrets come from Key Vault in staging/production when enabled
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, logger.ForComponent(log, "storage"))
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	var signer *storage.URLSigner
	if local, ok := fileStorage.(*storage.LocalStorage); ok {
		signer = local.Signer()
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	estimator, err := shipping.NewEstimator(cfg.Shipping.MaxWeightKg)
	if err != nil {
		return fmt.Errorf("failed to load shipping rates: %w", err)
	}

	m := metrics.New()

	// Repositories
	profileRepo := repository.NewProfileRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	fileRepo := repository.NewQuoteFileRepository(db)
	bidRepo := repository.NewBidRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	// Notifications: in-app rows, live push and email
	notifyLog := logger.ForComponent(log, "notify")
	hub := notify.NewHub(cfg.Notifications.SubscriberBuffer, m, notifyLog)
	notifier, natsConn, err := newNotifier(cfg, hub, notificationRepo, profileRepo, m, notifyLog)
	if err != nil {
		return err
	}
	if err := notifier.Start(ctx); err != nil {
		return fmt.Errorf("failed to start notifications: %w", err)
	}

	// Services
	profileService := service.NewProfileService(profileRepo, log)
	partnerService := service.NewPartnerService(partnerRepo, notifier, log)
	quoteService := service.NewQuoteService(quoteRepo, notifier, log)
	bidService := service.NewBidService(db, bidRepo, quoteRepo, partnerRepo, orderRepo, notifier, m, log)
	orderService := service.NewOrderService(db, orderRepo, partnerRepo, quoteRepo, notifier, m, log)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, partnerRepo, notifier, m, log)
	messageService := service.NewMessageService(messageRepo, quoteRepo, bidRepo, notifier, m, log)
	notificationService := service.NewNotificationService(notificationRepo, log)
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, log)
	linkTTL := cfg.Storage.SignedURLTTLDuration()
	documentService := service.NewDocumentService(quoteRepo, bidRepo, orderRepo, partnerRepo, profileRepo, documentRepo,
		numberSequenceService, estimator, fileStorage, cfg.Documents, linkTTL, log)
	fileService := service.NewFileService(fileRepo, quoteRepo, fileStorage, signer,
		cfg.Storage.MaxUploadSizeMB*1024*1024, linkTTL, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(&cfg.Auth, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(cfg, log, db, m, authMiddleware, profileService, rateLimiter, router.Handlers{
		Profile:      handler.NewProfileHandler(profileService, log),
		Partner:      handler.NewPartnerHandler(partnerService, log),
		Quote:        handler.NewQuoteHandler(quoteService, log),
		File:         handler.NewFileHandler(fileService, cfg.Storage.MaxUploadSizeMB, log),
		Bid:          handler.NewBidHandler(bidService, log),
		Order:        handler.NewOrderHandler(orderService, log),
		Payment:      handler.NewPaymentHandler(paymentService, log),
		Message:      handler.NewMessageHandler(messageService, log),
		Notification: handler.NewNotificationHandler(notificationService, hub, cfg.Notifications.HeartbeatDuration(), log),
		Document:     handler.NewDocumentHandler(documentService, log),
		Shipping:     handler.NewShippingHandler(estimator, log),
		Admin:        handler.NewAdminHandler(numberSequenceService, log),
	})
	if natsConn != nil {
		rt.AddReadinessCheck("nats", func() error {
			if !natsConn.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		})
	}

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		jobsLog := logger.ForComponent(log, "jobs")
		scheduler = jobs.NewScheduler(jobsLog)
		if err := jobs.RegisterMarketplaceJobs(
			scheduler,
			quoteService,
			notificationService,
			cfg.Jobs.CloseExpiredQuotes,
			cfg.Jobs.PurgeReadNotifications,
			cfg.Notifications.RetentionDuration(),
			cfg.Jobs.JobTimeoutDuration(),
			m,
			jobsLog,
		); err != nil {
			return fmt.Errorf("failed to register jobs: %w", err)
		}
		scheduler.Start()
		log.Info("Scheduler started", zap.Strings("jobs", scheduler.GetJobNames()))
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           rt.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeoutDuration(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Closing the hub ends open event streams so Shutdown does not wait on them
		hub.Close()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}
		if err := notifier.Stop(ctx); err != nil {
			log.Warn("Notification shutdown incomplete", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}

// newNotifier assembles the notification dispatcher. With a NATS URL the
// live push goes through NATS so every replica's hub receives it; without
// one it goes straight to the local hub.
func newNotifier(
	cfg *config.Config,
	hub *notify.Hub,
	store notify.Store,
	profiles notify.ProfileLookup,
	m *metrics.Metrics,
	log *zap.Logger,
) (*notify.Service, *nats.Conn, error) {
	mailer, err := notify.NewMailer(&cfg.Email, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure mailer: %w", err)
	}
	templates, err := notify.LoadTemplates()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	emails := notify.NewEmailQueue(mailer, cfg.Email.QueueSize, cfg.Email.Workers, cfg.Email.SendTimeoutDuration(), m, log)

	opts := notify.Options{
		AppName:     cfg.App.Name,
		PublicURL:   cfg.App.PublicURL,
		Broadcaster: hub,
		Emails:      emails,
		Templates:   templates,
		Metrics:     m,
	}

	var conn *nats.Conn
	if cfg.Notifications.NatsURL != "" {
		conn, err = notify.ConnectNATS(cfg.Notifications.NatsURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		broadcaster := notify.NewNATSBroadcaster(conn, cfg.Notifications.NatsSubject, hub, log)
		opts.Broadcaster = broadcaster
		opts.OnStart = func(context.Context) error { return broadcaster.Start() }
		// Stop drains, which closes the connection once in-flight messages are delivered
		opts.OnStop = func(context.Context) error { return broadcaster.Stop() }
		log.Info("NATS fan-out enabled", zap.String("subject", cfg.Notifications.NatsSubject))
	}

	return notify.NewService(store, profiles, opts, log), conn, nil
}
