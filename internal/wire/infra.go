package wire

import (
	"context"
	"fmt"

	"showtime-booking/internal/data/memory"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/event"
	"showtime-booking/internal/scheduler"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/database"
	"showtime-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store opens the repository backend selected by STORE_DRIVER. The returned
// close func releases the connection pool.
func Store(ctx context.Context, config *utils.Config, logger *zap.Logger) (*repository.Repository, func(), error) {
	switch config.App.StoreDriver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore().Repository(), func() {}, nil

	case "postgres", "":
		db, err := database.InitDB(config.Database)
		if err != nil {
			return nil, nil, err
		}
		if config.Database.Migrate {
			if err := database.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
			logger.Info("Database schema applied")
		}
		return repository.NewRepository(db, logger), db.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", config.App.StoreDriver)
}

// Publisher builds the event publisher selected by BROKER_DRIVER.
func Publisher(ctx context.Context, config utils.BrokerConfig, logger *zap.Logger) (event.Publisher, error) {
	switch config.Driver {
	case "rabbitmq":
		return event.NewRabbitPublisher(config.RabbitURL, config.Topic, logger)
	case "kafka":
		return event.NewKafkaPublisher(ctx, config.KafkaBrokers, config.Topic, logger)
	case "log", "":
		return event.NewLocalPublisher(logger), nil
	}
	return nil, fmt.Errorf("unknown broker driver %q", config.Driver)
}

// Queue builds the delayed job queue selected by SCHEDULER_DRIVER.
func Queue(ctx context.Context, config *utils.Config, logger *zap.Logger) (scheduler.Queue, func(), error) {
	switch config.Booking.SchedulerDriver {
	case "memory":
		return scheduler.NewMemoryQueue(), func() {}, nil

	case "redis", "":
		client := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return scheduler.NewRedisQueue(client, scheduler.DefaultRedisKey, logger), func() { client.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown scheduler driver %q", config.Booking.SchedulerDriver)
}

// Notifier routes published events to the notification service. With the
// local publisher this is an in-process subscription; with a broker a
// consumer runs until ctx is cancelled.
func Notifier(ctx context.Context, publisher event.Publisher, config utils.BrokerConfig, service usecase.NotificationService, logger *zap.Logger) error {
	switch p := publisher.(type) {
	case *event.LocalPublisher:
		p.Subscribe(service.HandleEvent)
		return nil
	}

	var run func(context.Context, event.Handler) error
	switch config.Driver {
	case "rabbitmq":
		run = event.NewRabbitConsumer(config.RabbitURL, config.Topic, logger).Run
	case "kafka":
		consumer, err := event.NewKafkaConsumer(config.KafkaBrokers, config.Topic, config.GroupID, logger)
		if err != nil {
			return err
		}
		run = consumer.Run
	default:
		return fmt.Errorf("no consumer for broker driver %q", config.Driver)
	}

	go func() {
		if err := run(ctx, service.HandleEvent); err != nil {
			logger.Error("Event consumer stopped", zap.Error(err))
		}
	}()
	return nil
}

// Worker assembles the scheduler worker: deferred booking jobs plus the
// periodic sweep and reminder passes.
func Worker(queue scheduler.Queue, jobs usecase.JobService, config utils.BookingConfig, logger *zap.Logger) *scheduler.Worker {
	backoff := scheduler.DefaultBackoff()
	if config.JobMaxRetries > 0 {
		backoff.MaxRetries = config.JobMaxRetries
	}
	if config.JobRetryDelay > 0 {
		backoff.InitialInterval = config.JobRetryDelay
	}

	dispatcher := scheduler.NewDispatcher(queue, backoff, logger)
	jobs.Register(dispatcher)

	workerConfig := scheduler.DefaultWorkerConfig()
	if config.SchedulerPoll > 0 {
		workerConfig.PollInterval = config.SchedulerPoll
	}
	if config.SchedulerLease > 0 {
		workerConfig.Lease = config.SchedulerLease
	}

	worker := scheduler.NewWorker(queue, dispatcher, workerConfig, logger)
	worker.Every("sweep_ended_showtimes", config.SweepInterval, jobs.SweepEndedShowtimes)
	worker.Every("upcoming_showtime_reminders", config.SweepInterval, jobs.SendUpcomingReminders)
	return worker
}
