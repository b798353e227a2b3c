package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bakery-backend/api/controllers"
	"github.com/angelmondragon/bakery-backend/api/middleware"
	"github.com/angelmondragon/bakery-backend/internal/auth"
	"github.com/angelmondragon/bakery-backend/internal/orders"
	"github.com/angelmondragon/bakery-backend/internal/payments"
	product "github.com/angelmondragon/bakery-backend/internal/products"
	"github.com/angelmondragon/bakery-backend/pkg/auth/session"
	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	redisClient *redis.Client,
	sessionManager session.AccessSessionChecker,
	authService auth.Service,
	productService product.Service,
	paymentService payments.Service,
	ordersService orders.Service,
	orderFeed controllers.WebsocketServer,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
		middleware.Logging(logg),
	)

	var (
		idempotencyStore middleware.IdempotencyStore
		rateStore        middleware.RateLimiterStore
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		rateStore = redisClient
	}
	idempotent := middleware.Idempotency(idempotencyStore, cfg.Checkout.IdempotencyTTL, logg)

	limits := cfg.RateLimit
	limitLogin := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:       "login",
		Window:     limits.LoginWindow,
		Dimensions: []middleware.Dimension{middleware.ByIP(limits.LoginIPLimit), middleware.ByEmail(limits.LoginEmailLimit)},
	}, rateStore, logg)
	limitRegister := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:       "register",
		Window:     limits.RegisterWindow,
		Dimensions: []middleware.Dimension{middleware.ByIP(limits.RegisterIPLimit), middleware.ByEmail(limits.RegisterEmailLimit)},
	}, rateStore, logg)
	limitPayments := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:       "payment",
		Window:     limits.PaymentWindow,
		Dimensions: []middleware.Dimension{middleware.ByUser(limits.PaymentUserLimit)},
	}, rateStore, logg)

	requireAuth := middleware.Auth(cfg.JWT, sessionManager, logg)
	requireAdmin := middleware.RequireRole(logg, enums.UserRoleAdmin)
	maxUpload := cfg.Uploads.MaxUploadBytes()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	if cfg.Uploads.Dir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Uploads.Dir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.APIHealth())

		r.Route("/auth", func(r chi.Router) {
			r.With(limitRegister).Post("/register", controllers.AuthRegister(authService, logg))
			r.With(limitLogin).Post("/login", controllers.AuthLogin(authService, logg))
			r.Post("/refresh", controllers.AuthRefresh(authService, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", controllers.AuthLogout(authService, logg))
				r.Get("/me", controllers.AuthMe(authService, logg))
				r.Put("/profile", controllers.AuthUpdateProfile(authService, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productService, logg))
			r.Get("/{id}", controllers.ProductGet(productService, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", controllers.ProductCreate(productService, maxUpload, logg))
				r.Put("/{id}", controllers.ProductUpdate(productService, maxUpload, logg))
				r.Delete("/{id}", controllers.ProductDelete(productService, logg))
			})
		})

		r.Route("/payment", func(r chi.Router) {
			r.Get("/config", controllers.PaymentConfig(paymentService, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.With(limitPayments, idempotent).Post("/create-payment", controllers.PaymentCreate(paymentService, cfg.Square.Currency, logg))
				r.Get("/{paymentId}", controllers.PaymentGet(paymentService, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(requireAuth)
			r.With(idempotent).Post("/", controllers.OrderCreate(ordersService, logg))
			r.Get("/myorders", controllers.OrderListMine(ordersService, logg))
			r.With(requireAdmin).Get("/feed", controllers.OrderFeed(orderFeed, logg))
			r.Get("/{id}", controllers.OrderGet(ordersService, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", controllers.OrderListAll(ordersService, logg))
				r.Put("/{id}/status", controllers.OrderUpdateStatus(ordersService, logg))
			})
		})
	})

	return r
}
