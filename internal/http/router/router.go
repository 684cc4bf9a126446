package router

import (
	"encoding/json"
	"net/http"

	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/internal/database"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/http/handler"
	"github.com/atelier-dz/cnc-marketplace-api/internal/http/middleware"
	"github.com/atelier-dz/cnc-marketplace-api/internal/metrics"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/atelier-dz/cnc-marketplace-api/docs" // swagger docs
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Profile      *handler.ProfileHandler
	Partner      *handler.PartnerHandler
	Quote        *handler.QuoteHandler
	File         *handler.FileHandler
	Bid          *handler.BidHandler
	Order        *handler.OrderHandler
	Payment      *handler.PaymentHandler
	Message      *handler.MessageHandler
	Notification *handler.NotificationHandler
	Document     *handler.DocumentHandler
	Shipping     *handler.ShippingHandler
	Admin        *handler.AdminHandler
}

// ReadinessCheck reports whether an optional dependency is usable
type ReadinessCheck func() error

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	metrics        *metrics.Metrics
	authMiddleware *auth.Middleware
	profiles       middleware.ProfileEnsurer
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
	checks         map[string]ReadinessCheck
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	m *metrics.Metrics,
	authMiddleware *auth.Middleware,
	profiles middleware.ProfileEnsurer,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		metrics:        m,
		authMiddleware: authMiddleware,
		profiles:       profiles,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
		checks:         make(map[string]ReadinessCheck),
	}
}

// AddReadinessCheck adds a dependency to /health/ready
func (rt *Router) AddReadinessCheck(name string, check ReadinessCheck) {
	rt.checks[name] = check
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := rt.handlers

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Metrics(rt.metrics))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)
	r.Use(middleware.RequestTimeout(rt.cfg.Server.RequestTimeoutDuration()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Metrics.Enabled && rt.metrics != nil {
		r.Handle(rt.cfg.Metrics.Path, rt.metrics.Handler())
	}

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public: reference data and token-authorized downloads
		r.Get("/shipping/estimate", h.Shipping.Estimate)
		r.Get("/shipping/wilayas", h.Shipping.Wilayas)
		r.Get("/files/signed", h.File.Download)

		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(middleware.EnsureProfile(rt.profiles, rt.logger))
			r.Use(rt.rateLimiter.Limit)

			r.Get("/me", h.Profile.Me)
			r.Put("/me", h.Profile.UpdateMe)

			r.Route("/partners", func(r chi.Router) {
				r.Get("/", h.Partner.List)
				r.Post("/", h.Partner.Apply)
				r.Get("/me", h.Partner.GetMine)
				r.Put("/me", h.Partner.UpdateMine)
				r.Get("/{id}", h.Partner.Get)
			})

			r.Route("/quotes", func(r chi.Router) {
				r.Get("/", h.Quote.List)
				r.Post("/", h.Quote.Create)
				r.Get("/{id}", h.Quote.Get)
				r.Put("/{id}", h.Quote.Update)
				r.Delete("/{id}", h.Quote.Delete)
				r.Post("/{id}/close", h.Quote.Close)
				r.Post("/{id}/reopen", h.Quote.Reopen)

				r.Get("/{id}/files", h.File.List)
				r.Post("/{id}/files", h.File.Upload)
				r.Get("/{id}/files/{fileId}/url", h.File.SignedURL)
				r.Delete("/{id}/files/{fileId}", h.File.Delete)

				r.Get("/{id}/bids", h.Bid.ListForQuote)
				r.Post("/{id}/bids", h.Bid.Submit)
				r.Post("/{id}/bids/{bidId}/accept", h.Bid.Accept)
				r.Get("/{id}/bids/{bidId}/devis.pdf", h.Document.QuotePDF)

				r.Get("/{id}/messages", h.Message.List)
				r.Post("/{id}/messages", h.Message.Send)
				r.Put("/{id}/messages/read", h.Message.MarkRead)

				r.Get("/{id}/documents", h.Document.ListForQuote)
			})

			r.Route("/bids", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRole(domain.RolePartner, domain.RoleAdmin))
				r.Get("/mine", h.Bid.ListMine)
				r.Put("/{bidId}", h.Bid.Update)
				r.Delete("/{bidId}", h.Bid.Withdraw)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.Order.List)
				r.Get("/{id}", h.Order.Get)
				r.Put("/{id}/status", h.Order.UpdateStatus)
				r.Put("/{id}/tracking", h.Order.SetTracking)
				r.Post("/{id}/rating", h.Order.Rate)
				r.Get("/{id}/invoice.pdf", h.Document.InvoicePDF)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", h.Payment.List)
				r.Post("/", h.Payment.Create)
				r.Get("/{id}", h.Payment.Get)
			})

			r.Get("/messages/unread-count", h.Message.UnreadCount)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/count", h.Notification.GetUnreadCount)
				r.Get("/stream", h.Notification.Stream)
				r.Put("/read-all", h.Notification.MarkAllAsRead)
				r.Get("/{id}", h.Notification.GetByID)
				r.Put("/{id}/read", h.Notification.MarkAsRead)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireAdmin)
				r.Put("/partners/{id}/status", h.Partner.SetStatus)
				r.Post("/payments/{id}/hold", h.Payment.Hold)
				r.Post("/payments/{id}/release", h.Payment.Release)
				r.Post("/payments/{id}/refund", h.Payment.Refund)
				r.Post("/payments/{id}/fail", h.Payment.Fail)
				r.Get("/number-sequences", h.Admin.NumberSequences)
			})
		})
	})

	return r
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}

func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	healthy := true

	record := func(name string, err error) {
		if err != nil {
			rt.logger.Error("readiness check failed", zap.String("check", name), zap.Error(err))
			checks[name] = map[string]string{"status": "unhealthy", "error": err.Error()}
			healthy = false
			return
		}
		checks[name] = map[string]string{"status": "healthy"}
	}

	record("database", database.HealthCheck(rt.db))
	for name, check := range rt.checks {
		record(name, check())
	}

	status := http.StatusOK
	body := map[string]interface{}{"status": "healthy", "checks": checks}
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
	}
	writeHealth(w, status, body)
}

func writeHealth(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
