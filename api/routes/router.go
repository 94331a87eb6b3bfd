package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pawcircle/pawcircle-backend/api/controllers"
	cartcontrollers "github.com/pawcircle/pawcircle-backend/api/controllers/cart"
	ordercontrollers "github.com/pawcircle/pawcircle-backend/api/controllers/orders"
	"github.com/pawcircle/pawcircle-backend/api/middleware"
	"github.com/pawcircle/pawcircle-backend/internal/cart"
	checkoutsvc "github.com/pawcircle/pawcircle-backend/internal/checkout"
	"github.com/pawcircle/pawcircle-backend/internal/notifications"
	"github.com/pawcircle/pawcircle-backend/internal/orders"
	product "github.com/pawcircle/pawcircle-backend/internal/products"
	"github.com/pawcircle/pawcircle-backend/internal/promo"
	"github.com/pawcircle/pawcircle-backend/pkg/config"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
)

// RedisStore is the redis surface the HTTP layer needs for idempotency and rate limiting.
type RedisStore interface {
	middleware.IdempotencyStore
	middleware.RateLimitStore
	controllers.Pinger
}

// Dependencies carries everything the router wires into handlers. Redis may be nil when the
// service runs with the in-memory session store; idempotency and rate limiting are then skipped.
type Dependencies struct {
	DB            controllers.Pinger
	Redis         RedisStore
	Gatherer      prometheus.Gatherer
	HTTPMetrics   *metrics.HTTPMetrics
	Products      product.Service
	Cart          cart.Service
	Promos        promo.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Notifications notifications.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	var (
		idempotencyStore middleware.IdempotencyStore
		rateStore        middleware.RateLimitStore
		redisPinger      controllers.Pinger
	)
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		rateStore = deps.Redis
		redisPinger = deps.Redis
	}
	idempotent := middleware.Idempotency(idempotencyStore, logg)
	promoPolicy := middleware.NewRateLimitPolicy(
		"promo",
		cfg.RateLimit.PromoWindow,
		cfg.RateLimit.PromoPerIP,
		cfg.RateLimit.PromoPerUser,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": redisPinger,
		}, logg))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.Products, logg))
		r.Get("/{productId}/pricing", controllers.ProductPricing(deps.Products, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
			r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
			r.With(idempotent).Post("/items", cartcontrollers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{lineId}", cartcontrollers.CartChangeQuantity(deps.Cart, logg))
			r.Delete("/items/{lineId}", cartcontrollers.CartRemoveLine(deps.Cart, logg))
			r.Get("/breakdown", controllers.CartBreakdown(deps.Checkout, logg))

			r.Route("/promo", func(r chi.Router) {
				r.Get("/", controllers.PromoActive(deps.Promos, logg))
				r.With(middleware.RateLimit(promoPolicy, rateStore, logg)).Post("/", controllers.PromoApply(deps.Promos, logg))
				r.Delete("/", controllers.PromoRemove(deps.Promos, logg))
			})
		})

		r.With(idempotent).Post("/api/v1/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/last", ordercontrollers.Last(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
		})

		r.Route("/api/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	return r
}
