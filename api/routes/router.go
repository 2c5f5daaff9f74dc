package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// KeyValueStore is the redis surface the HTTP layer needs for rate limits,
// idempotency records and readiness.
type KeyValueStore interface {
	Ping(ctx context.Context) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	IdempotencyKey(scope, id string) string
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps groups everything the router hands to controllers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pinger
	Redis    KeyValueStore
	Sessions middleware.SessionChecker
	Flash    controllers.FlashStore
	Metrics  http.Handler

	Auth     auth.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Checkout checkout.Service
	Orders   orders.Service
	Loyalty  loyalty.Service
}

func (d Deps) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("config required")
	case d.Logger == nil:
		return errors.New("logger required")
	case d.Redis == nil:
		return errors.New("redis store required")
	case d.Sessions == nil:
		return errors.New("session checker required")
	case d.Auth == nil, d.Catalog == nil, d.Cart == nil, d.Checkout == nil, d.Orders == nil, d.Loyalty == nil:
		return errors.New("all domain services are required")
	}
	return nil
}

func NewRouter(d Deps) (http.Handler, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	idempotent := middleware.Idempotency(d.Redis, logg)
	authenticated := middleware.Auth(cfg.JWT, d.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg), idempotent).Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.With(authenticated).Post("/logout", controllers.AuthLogout(d.Auth, logg))
	})

	r.Get("/", controllers.Home(d.Catalog, d.Loyalty, cfg.Loyalty.HomeTopUsers, logg))
	r.Get("/categories/", controllers.CategoryList(d.Catalog, logg))
	r.Get("/products/", controllers.ProductList(d.Catalog, logg))
	r.Get("/products/{productID}/", controllers.ProductDetail(d.Catalog, logg))
	r.Get("/leaderboard/", controllers.Leaderboard(d.Loyalty, logg))
	r.Get("/leaderboard/monthly/{month}/", controllers.MonthlyLeaderboard(d.Loyalty, logg))

	r.Group(func(r chi.Router) {
		r.Use(authenticated)

		r.With(idempotent).Post("/products/{productID}/purchase/", controllers.BuyNow(d.Checkout, d.Flash, logg))
		r.Get("/orders/", controllers.OrderList(d.Orders, logg))
		r.Get("/profile/", controllers.Profile(d.Loyalty, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(d.Cart, d.Flash, logg))
			r.Get("/count/", controllers.CartCount(d.Cart, logg))
			r.Post("/add/{productID}/", controllers.CartAdd(d.Cart, d.Flash, logg))
			r.Post("/remove/{itemID}/", controllers.CartRemove(d.Cart, d.Flash, logg))

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutForm(d.Checkout, d.Flash, logg))
				r.With(idempotent).Post("/confirm/", controllers.CheckoutConfirm(d.Checkout, d.Flash, logg))
				r.Get("/success/{orderNumber}/", controllers.CheckoutSuccess(d.Checkout, logg))
				r.Get("/cancel/", controllers.CheckoutCancel(d.Checkout))
			})
		})
	})

	return r, nil
}
