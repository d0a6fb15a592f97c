package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/miguelsantiago/turista-backend/api/controllers"
	"github.com/miguelsantiago/turista-backend/api/routes"
	"github.com/miguelsantiago/turista-backend/internal/audit"
	"github.com/miguelsantiago/turista-backend/internal/businesses"
	"github.com/miguelsantiago/turista-backend/internal/notifications"
	"github.com/miguelsantiago/turista-backend/internal/orders"
	"github.com/miguelsantiago/turista-backend/pkg/config"
	"github.com/miguelsantiago/turista-backend/pkg/db"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
	"github.com/miguelsantiago/turista-backend/pkg/metrics"
	"github.com/miguelsantiago/turista-backend/pkg/migrate"
	"github.com/miguelsantiago/turista-backend/pkg/pubsub"
	"github.com/miguelsantiago/turista-backend/pkg/redis"
	"github.com/miguelsantiago/turista-backend/pkg/square"
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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	var pubsubClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer pubsubClient.Close()
	} else {
		logg.Warn(context.Background(), "pubsub disabled: no GCP project configured")
	}

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)

	ordersRepo := orders.NewRepository(dbClient.DB())
	auditRepo := audit.NewRepository(dbClient.DB())
	businessesRepo := businesses.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	accessChecker, err := businesses.NewAccessChecker(businessesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create access checker", err)
		os.Exit(1)
	}

	auditService, err := audit.NewService(auditRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	refundOrchestrator, err := orders.NewRefundOrchestrator(
		ordersRepo, squareClient, logg, orderMetrics, cfg.Orders.RefundTimeout,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund orchestrator", err)
		os.Exit(1)
	}

	var dispatcher *orders.NotificationDispatcher
	if pubsubClient != nil {
		dispatcher, err = orders.NewNotificationDispatcher(
			redisClient, pubsubClient.OrderEventsPublisher(), logg, orderMetrics, cfg.Orders.DispatchTimeout,
		)
	} else {
		dispatcher, err = orders.NewNotificationDispatcher(
			redisClient, nil, logg, orderMetrics, cfg.Orders.DispatchTimeout,
		)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.Deps{
		Repo:            ordersRepo,
		Access:          accessChecker,
		Refunds:         refundOrchestrator,
		Auditor:         auditService,
		Dispatcher:      dispatcher,
		Metrics:         orderMetrics,
		Logger:          logg,
		CancelGrace:     cfg.Orders.CancelGrace,
		DispatchTimeout: cfg.Orders.DispatchTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	readiness := controllers.ReadinessDeps{
		DB:    dbClient,
		Redis: redisClient,
	}
	if pubsubClient != nil {
		readiness.PubSub = pubsubClient
	}

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		Readiness:     readiness,
		Redis:         redisClient,
		Orders:        ordersService,
		Audit:         auditService,
		Notifications: notificationsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
