package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/pawcircle/pawcircle-backend/api/routes"
	"github.com/pawcircle/pawcircle-backend/internal/cart"
	"github.com/pawcircle/pawcircle-backend/internal/checkout"
	"github.com/pawcircle/pawcircle-backend/internal/notifications"
	"github.com/pawcircle/pawcircle-backend/internal/orders"
	"github.com/pawcircle/pawcircle-backend/internal/pricing"
	product "github.com/pawcircle/pawcircle-backend/internal/products"
	"github.com/pawcircle/pawcircle-backend/internal/promo"
	"github.com/pawcircle/pawcircle-backend/internal/session"
	"github.com/pawcircle/pawcircle-backend/pkg/config"
	"github.com/pawcircle/pawcircle-backend/pkg/db"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox"
	"github.com/pawcircle/pawcircle-backend/pkg/redis"
)

// buildHandler wires every service behind the router. redisClient is nil when the memory
// session driver is configured; sessions and cart locks then stay in-process.
func buildHandler(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		sessions session.Store
		locker   cart.Locker
	)
	if redisClient != nil {
		redisSessions, err := session.NewRedisStore(redisClient, cfg.Session.TTL)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		redisLocker, err := cart.NewRedisLocker(redisClient, cfg.Cart.MutationLock)
		if err != nil {
			return nil, fmt.Errorf("cart locker: %w", err)
		}
		sessions, locker = redisSessions, redisLocker
	} else {
		sessions, locker = session.NewMemoryStore(), cart.NewLocalLocker()
	}

	table, err := promo.LoadTable(cfg.Pricing.PromoTablePath)
	if err != nil {
		return nil, err
	}
	promoService, err := promo.NewService(table, sessions, logg)
	if err != nil {
		return nil, fmt.Errorf("promo service: %w", err)
	}

	rules, err := pricing.RulesFromConfig(cfg.Pricing)
	if err != nil {
		return nil, err
	}
	engine, err := pricing.NewEngine(rules)
	if err != nil {
		return nil, fmt.Errorf("pricing engine: %w", err)
	}

	conn := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	productService, err := product.NewService(product.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("product service: %w", err)
	}

	cartRepo := cart.NewRepository(conn)
	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:        cartRepo,
		Tx:          dbClient,
		Catalog:     productService,
		Sessions:    sessions,
		Locker:      locker,
		Outbox:      outboxService,
		Metrics:     metrics.NewCartMetrics(registry),
		Logger:      logg,
		MaxQuantity: cfg.Cart.MaxQuantity,
	})
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Orders:   checkout.NewRepository(conn),
		Cart:     cartRepo,
		Views:    cartService,
		Locker:   locker,
		Promos:   promoService,
		Engine:   engine,
		Sessions: sessions,
		Outbox:   outboxService,
		Metrics:  metrics.NewCheckoutMetrics(registry),
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}

	ordersService, err := orders.NewService(orders.NewRepository(conn), sessions, logg)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}

	deps := routes.Dependencies{
		DB:            dbClient,
		Gatherer:      registry,
		HTTPMetrics:   metrics.NewHTTPMetrics(registry),
		Products:      productService,
		Cart:          cartService,
		Promos:        promoService,
		Checkout:      checkoutService,
		Orders:        ordersService,
		Notifications: notificationService,
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}
	return routes.NewRouter(cfg, logg, deps), nil
}

func closeAll(dbClient *db.Client, redisClient *redis.Client) error {
	var err error
	if redisClient != nil {
		err = multierr.Append(err, redisClient.Close())
	}
	if dbClient != nil {
		err = multierr.Append(err, dbClient.Close())
	}
	return err
}
