package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bjaksic84/rentmate-backend/api/controllers"
	"github.com/bjaksic84/rentmate-backend/api/middleware"
	"github.com/bjaksic84/rentmate-backend/internal/dashboard"
	"github.com/bjaksic84/rentmate-backend/internal/items"
	"github.com/bjaksic84/rentmate-backend/internal/notifications"
	"github.com/bjaksic84/rentmate-backend/internal/rentals"
	"github.com/bjaksic84/rentmate-backend/internal/reviews"
	"github.com/bjaksic84/rentmate-backend/pkg/config"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
	"github.com/bjaksic84/rentmate-backend/pkg/metrics"
	pkgredis "github.com/bjaksic84/rentmate-backend/pkg/redis"
)

// RedisBackend is the slice of the Redis client the HTTP layer uses for
// idempotency, rate limiting and readiness.
type RedisBackend interface {
	pkgredis.IdempotencyStore
	pkgredis.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies carries everything NewRouter mounts.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pkgredis.Pinger
	Redis    RedisBackend
	Broker   pkgredis.Pinger
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics

	Items         items.Service
	Rentals       rentals.Service
	Reviews       reviews.Service
	Notifications notifications.Service
	Feed          notifications.Feed
	Dashboard     dashboard.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	ready := []controllers.Dependency{{Name: "db", Pinger: deps.DB}}
	if deps.Redis != nil {
		ready = append(ready, controllers.Dependency{Name: "redis", Pinger: deps.Redis})
	}
	if deps.Broker != nil {
		ready = append(ready, controllers.Dependency{Name: "pubsub", Pinger: deps.Broker})
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready...))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	var (
		idempotencyStore pkgredis.IdempotencyStore
		limiter          windowLimiter
	)
	if deps.Redis != nil {
		limiter = deps.Redis
		if cfg.FeatureFlags.Idempotency {
			idempotencyStore = deps.Redis
		}
	}
	writeLimit := middleware.RateLimitPolicy{Name: "writes", Limit: cfg.RateLimit.WriteLimit, Window: cfg.RateLimit.Window}
	idempotent := middleware.Idempotency(idempotencyStore, cfg.RateLimit.IdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		// public catalog
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/items", controllers.ListAvailableItems(deps.Items, logg))
			r.Get("/items/{itemId}", controllers.GetItem(deps.Items, logg))
			r.Get("/items/{itemId}/reviews", controllers.ListItemReviews(deps.Reviews, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RateLimit(writeLimit, limiter, logg))

			r.Post("/items", controllers.CreateItem(deps.Items, logg))
			r.Get("/items/mine", controllers.ListOwnedItems(deps.Items, logg))
			r.Patch("/items/{itemId}", controllers.UpdateItem(deps.Items, logg))
			r.Post("/items/{itemId}/toggle-listing", controllers.ToggleItemListing(deps.Items, logg))
			r.With(idempotent).Post("/items/{itemId}/rentals", controllers.RequestRental(deps.Rentals, logg))
			r.Get("/items/{itemId}/reviews/mine", controllers.MyItemReview(deps.Reviews, logg))
			r.With(idempotent).Post("/items/{itemId}/reviews", controllers.SubmitReview(deps.Reviews, logg))

			r.Route("/reviews/{reviewId}", func(r chi.Router) {
				r.Patch("/", controllers.EditReview(deps.Reviews, logg))
				r.Delete("/", controllers.DeleteReview(deps.Reviews, logg))
			})

			r.Route("/rentals", func(r chi.Router) {
				r.Get("/", controllers.ListMyRentals(deps.Rentals, logg))
				r.Get("/incoming", controllers.ListIncomingRentals(deps.Rentals, logg))
				r.Get("/{rentalId}", controllers.GetRental(deps.Rentals, logg))
				r.Post("/{rentalId}/approve", controllers.ApproveRental(deps.Rentals, logg))
				r.Post("/{rentalId}/complete", controllers.CompleteRental(deps.Rentals, logg))
				r.Post("/{rentalId}/cancel", controllers.CancelRental(deps.Rentals, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Get("/unread-count", controllers.UnreadNotificationCount(deps.Notifications, logg))
				r.Get("/stream", controllers.StreamNotifications(deps.Feed, cfg.Notifications.StreamHeartbeat, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			})

			r.Get("/dashboard", controllers.UserDashboard(deps.Dashboard, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
				r.Get("/dashboard", controllers.AdminDashboard(deps.Dashboard, logg))
			})
		})
	})

	return r
}

type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}
