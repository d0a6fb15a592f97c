package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miguelsantiago/turista-backend/api/controllers"
	"github.com/miguelsantiago/turista-backend/api/middleware"
	"github.com/miguelsantiago/turista-backend/internal/audit"
	"github.com/miguelsantiago/turista-backend/internal/notifications"
	"github.com/miguelsantiago/turista-backend/internal/orders"
	"github.com/miguelsantiago/turista-backend/pkg/config"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
	"github.com/miguelsantiago/turista-backend/pkg/redis"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Readiness     controllers.ReadinessDeps
	Redis         *redis.Client
	Orders        orders.Service
	Audit         audit.Service
	Notifications notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	r.Handle("/metrics", promhttp.Handler())

	mutationPolicy := middleware.NewRateLimitPolicy(
		"order-mutations",
		cfg.RateLimit.MutationWindow,
		cfg.RateLimit.MutationLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.OrderDetail(deps.Orders, logg))
			r.Get("/audit", controllers.OrderAuditTrail(deps.Orders, deps.Audit, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(mutationPolicy, deps.Redis, logg))
				r.Post("/status", controllers.OrderStatusChange(deps.Orders, logg))
				r.Post("/cancel", controllers.OrderCancel(deps.Orders, logg))
				r.Post("/ready", controllers.OrderReady(deps.Orders, logg))
				r.Post("/picked-up", controllers.OrderPickedUp(deps.Orders, logg))
				r.Post("/verify-arrival", controllers.OrderVerifyArrival(deps.Orders, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, "admin", "tourism_officer"))
		r.Post("/orders/{orderId}/status", controllers.OrderStatusChange(deps.Orders, logg))
	})

	return r
}
