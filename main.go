package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"showtime-booking/cmd"
	"showtime-booking/internal/usecase"
	"showtime-booking/internal/wire"
	"showtime-booking/pkg/telemetry"
	"showtime-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("store", config.App.StoreDriver),
		zap.String("scheduler", config.Booking.SchedulerDriver),
		zap.String("broker", config.Broker.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, config.Telemetry, logger)
	if err != nil {
		logger.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	repos, closeStore, err := wire.Store(ctx, config, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer closeStore()

	publisher, err := wire.Publisher(ctx, config.Broker, logger)
	if err != nil {
		logger.Fatal("Failed to create event publisher", zap.Error(err))
	}
	defer publisher.Close()

	queue, closeQueue, err := wire.Queue(ctx, config, logger)
	if err != nil {
		logger.Fatal("Failed to create job queue", zap.Error(err))
	}
	defer closeQueue()

	service := usecase.NewService(repos, usecase.Dependencies{
		Publisher: publisher,
		Scheduler: queue,
		Policy:    usecase.BookingPolicyFromConfig(config.Booking),
	}, logger)

	if err := wire.Notifier(ctx, publisher, config.Broker, service.Notification, logger); err != nil {
		logger.Fatal("Failed to start notifier", zap.Error(err))
	}

	worker := wire.Worker(queue, service.Job, config.Booking, logger)
	if err := worker.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler worker", zap.Error(err))
	}
	defer worker.Stop()

	app := wire.Wiring(repos, service, config.CORS, logger)

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, config.App.ShutdownTimeout, logger); err != nil {
		logger.Error("Server error", zap.Error(err))
	}
	logger.Info("Application stopped")
}
