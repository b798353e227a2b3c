package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/bakery-backend/api/controllers"
	"github.com/angelmondragon/bakery-backend/api/routes"
	"github.com/angelmondragon/bakery-backend/internal/auth"
	"github.com/angelmondragon/bakery-backend/internal/orders"
	"github.com/angelmondragon/bakery-backend/internal/payments"
	product "github.com/angelmondragon/bakery-backend/internal/products"
	"github.com/angelmondragon/bakery-backend/internal/realtime"
	"github.com/angelmondragon/bakery-backend/internal/users"
	"github.com/angelmondragon/bakery-backend/pkg/auth/session"
	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/db"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/metrics"
	"github.com/angelmondragon/bakery-backend/pkg/migrate"
	"github.com/angelmondragon/bakery-backend/pkg/mongo"
	"github.com/angelmondragon/bakery-backend/pkg/redis"
	"github.com/angelmondragon/bakery-backend/pkg/square"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = db.DriverSQLite
	}
	dbClient, err := db.New(runCtx, cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	var closers []io.Closer
	defer func() {
		if err := closeAll(closers); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()
	closers = append(closers, dbClient)

	if err := migrate.MaybeRunDev(runCtx, cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(runCtx, cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	closers = append(closers, redisClient)

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	var ordersRepo orders.Repository = orders.NewRepository(dbClient.DB())
	if cfg.FeatureFlags.UsesMongo() {
		mongoClient, err := mongo.New(runCtx, cfg.Mongo, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap mongo", err)
			os.Exit(1)
		}
		closers = append(closers, mongoClient)
		mongoRepo := orders.NewMongoRepository(mongoClient.Database())
		if err := mongoRepo.EnsureIndexes(runCtx); err != nil {
			logg.Error(context.Background(), "failed to ensure order indexes", err)
			os.Exit(1)
		}
		ordersRepo = mongoRepo
		readiness["mongo"] = mongoClient
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productRepo := product.NewRepository(dbClient.DB())
	images, err := product.NewImageStore(cfg.Uploads.Dir, cfg.Uploads.MaxUploadBytes())
	if err != nil {
		logg.Error(context.Background(), "failed to prepare uploads directory", err)
		os.Exit(1)
	}
	productService, err := product.NewService(productRepo, images, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	squareClient, err := square.NewClient(runCtx, cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create square client", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(payments.ServiceParams{
		Gateway: squareClient,
		Logger:  logg,
		Metrics: checkoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	hub := realtime.NewHub(logg, cfg.App.AllowedOrigins())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(runCtx)
	}()

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repository: ordersRepo,
		Catalog:    productRepo,
		Events:     hub,
		Metrics:    checkoutMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"order_store": cfg.FeatureFlags.OrderStore,
		"square_env":  squareClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			redisClient,
			sessionManager,
			authService,
			productService,
			paymentService,
			ordersService,
			hub,
			metrics.Handler(registry),
		),
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			stop()
			<-hubDone
			os.Exit(1)
		}
	case <-runCtx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
	}
	stop()
	<-hubDone
	logg.Info(ctx, "api server stopped")
}
