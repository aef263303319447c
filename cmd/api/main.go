package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/bjaksic84/rentmate-backend/api"
	"github.com/bjaksic84/rentmate-backend/api/routes"
	"github.com/bjaksic84/rentmate-backend/internal/dashboard"
	"github.com/bjaksic84/rentmate-backend/internal/items"
	"github.com/bjaksic84/rentmate-backend/internal/notifications"
	"github.com/bjaksic84/rentmate-backend/internal/rentals"
	"github.com/bjaksic84/rentmate-backend/internal/reviews"
	"github.com/bjaksic84/rentmate-backend/pkg/config"
	"github.com/bjaksic84/rentmate-backend/pkg/db"
	"github.com/bjaksic84/rentmate-backend/pkg/instance"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
	"github.com/bjaksic84/rentmate-backend/pkg/metrics"
	"github.com/bjaksic84/rentmate-backend/pkg/migrate"
	"github.com/bjaksic84/rentmate-backend/pkg/pubsub"
	"github.com/bjaksic84/rentmate-backend/pkg/redis"
)

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
		ServiceName: cfg.Service.Name,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg, redis.WithChannelPrefix(cfg.Notifications.ChannelPrefix))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	notificationRepo := notifications.NewRepository(dbClient.DB())
	storeSink, err := notifications.NewStoreSink(notificationRepo)
	if err != nil {
		return err
	}
	redisSink, err := notifications.NewRedisSink(redisClient)
	if err != nil {
		return err
	}
	sinks := []notifications.Sink{storeSink, redisSink}
	var broker redis.Pinger

	if cfg.PubSub.NotificationsEnabled {
		psClient, psErr := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if psErr != nil {
			return psErr
		}
		defer func() { err = multierr.Append(err, psClient.Close()) }()
		pubsubSink, sinkErr := notifications.NewPubSubSink(psClient.NotificationPublisher())
		if sinkErr != nil {
			return sinkErr
		}
		sinks = append(sinks, pubsubSink)
		broker = psClient
	}

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherOptions{
		QueueSize:       cfg.Notifications.QueueSize,
		Workers:         cfg.Notifications.Workers,
		DeliveryTimeout: cfg.Notifications.DeliveryTimeout,
		Logger:          logg,
		Metrics:         metrics.NewNotificationMetrics(registry),
	}, sinks...)
	if err != nil {
		return err
	}
	dispatcher.Start()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		err = multierr.Append(err, dispatcher.Close(closeCtx))
	}()

	itemService, err := items.NewService(items.NewRepository(dbClient.DB()), dbClient, dispatcher)
	if err != nil {
		return err
	}
	rentalService, err := rentals.NewService(rentals.ServiceParams{
		Repository: rentals.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Notifier:   dispatcher,
		Metrics:    metrics.NewRentalMetrics(registry),
		Logger:     logg,
	})
	if err != nil {
		return err
	}
	reviewService, err := reviews.NewService(reviews.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		return err
	}
	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		return err
	}
	feed, err := notifications.NewRedisFeed(redisClient)
	if err != nil {
		return err
	}
	dashboardService, err := dashboard.NewService(dashboard.NewRepository(dbClient.DB()), dashboard.DefaultListSize)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, routes.NewRouter(routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Broker:        broker,
		Gatherer:      registry,
		Metrics:       metrics.NewHTTPMetrics(registry),
		Items:         itemService,
		Rentals:       rentalService,
		Reviews:       reviewService,
		Notifications: notificationService,
		Feed:          feed,
		Dashboard:     dashboardService,
	}))

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
