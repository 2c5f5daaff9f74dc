package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/flash"
	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// buildDeps assembles repositories and services over one database handle
// and one redis client.
func buildDeps(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessions *session.Manager,
	reg *prometheus.Registry,
) (routes.Deps, error) {
	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	ledger := loyalty.NewLedger(cfg.Loyalty)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		Tx:             dbClient,
		UserRepo:       userRepo,
		Ledger:         ledger,
		Outbox:         emitter,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("auth service: %w", err)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, fmt.Errorf("catalog service: %w", err)
	}

	cartService, err := cart.NewService(cartRepo)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("cart service: %w", err)
	}

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("orders service: %w", err)
	}

	checkoutService, err := checkout.NewService(checkout.Deps{
		Tx:         dbClient,
		Carts:      cartService,
		CartRepo:   cartRepo,
		Orders:     ordersRepo,
		Ledger:     ledger,
		Challenges: checkout.NewRedisChallengeStore(redisClient, cfg.Checkout.ChallengeTTL),
		Outbox:     emitter,
		Metrics:    metrics.NewCheckoutMetrics(reg),
		Logger:     logg,
		Config:     cfg.Checkout,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("checkout service: %w", err)
	}

	loyaltyService, err := loyalty.NewService(loyalty.NewRepository(conn), userRepo, ordersService, dbClient, cfg.Loyalty)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("loyalty service: %w", err)
	}

	notices, err := flash.NewStore(redisClient, 0)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("flash store: %w", err)
	}

	return routes.Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Sessions: sessions,
		Flash:    notices,
		Metrics:  metrics.Handler(reg),
		Auth:     authService,
		Catalog:  catalogService,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   ordersService,
		Loyalty:  loyaltyService,
	}, nil
}
