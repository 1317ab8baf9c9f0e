package app

import (
	"context"
	"errors"
	"fmt"

	"gymnotifier/internal/config"
	"gymnotifier/internal/entity"
	"gymnotifier/internal/repository"
	"gymnotifier/internal/service"
	"gymnotifier/internal/transport/amqp"
	httpt "gymnotifier/internal/transport/http"
	"gymnotifier/internal/transport/sender"
	"gymnotifier/pkg/postgres"

	"github.com/golang-migrate/migrate"
	_ "github.com/golang-migrate/migrate/database/postgres"
	_ "github.com/golang-migrate/migrate/source/file"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	if err := runMigrations(&cfg.Database, log); err != nil {
		return err
	}

	db, err := initDatabase(ctx, &cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := initRedis(&cfg.Cache)
	defer closeRedis(rdb, log)

	pubClient, err := initBrokerClient(&cfg.Broker, cfg.Broker.ConnectionName+"-publisher")
	if err != nil {
		return err
	}
	defer closeBroker(pubClient, log)

	conClient, err := initBrokerClient(&cfg.Broker, cfg.Broker.ConnectionName+"-consumer")
	if err != nil {
		return err
	}
	defer closeBroker(conClient, log)

	notifyRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(rdb, cfg.Cache.StatsTTL)

	svc, err := initNotifyService(cfg, notifyRepo, userRepo, cacheRepo, amqp.NewPublisher(pubClient), log)
	if err != nil {
		return err
	}

	sinks := initSinks(cfg, log)
	startConsumers(ctx, eg, conClient, svc, sinks, log)
	startScheduler(ctx, eg, cfg, svc)

	if err := startHTTPServer(ctx, eg, cfg, svc, db, cacheRepo, log); err != nil {
		return err
	}

	return waitForShutdown(eg)
}

func runMigrations(cfg *config.Database, log *zap.Logger) error {
	const op = "app.runMigrations"

	m, err := migrate.New(cfg.MigrationsPath, cfg.DSN)
	if err != nil {
		return fmt.Errorf("%s: init: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: up: %w", op, err)
	}

	log.Info("migrations applied")
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Database, log *zap.Logger) (*postgres.Postgres, error) {
	db, err := postgres.New(
		ctx,
		cfg.DSN,
		log.With(zap.String("component", "database")),
		postgres.MaxPoolSize(cfg.PoolMax),
		postgres.ConnAttempts(cfg.ConnAttempts),
		postgres.BaseRetryDelay(cfg.BaseRetryDelay),
		postgres.MaxRetryDelay(cfg.MaxRetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("app.initDatabase: %w", err)
	}
	return db, nil
}

func initRedis(cfg *config.Cache) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func closeRedis(rdb *redis.Client, log *zap.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn("redis close failed", zap.Error(err))
	}
}

func initBrokerClient(cfg *config.Broker, connectionName string) (*amqp.Client, error) {
	client, err := amqp.NewClient(cfg.URL, cfg.Exchange, connectionName, cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("app.initBrokerClient: %w", err)
	}
	return client, nil
}

func closeBroker(client *amqp.Client, log *zap.Logger) {
	if err := client.Close(); err != nil {
		log.Warn("broker close failed", zap.Error(err))
	}
}

func initNotifyService(
	cfg *config.Config,
	notifyRepo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	cacheRepo *repository.CacheRepository,
	publisher *amqp.Publisher,
	log *zap.Logger,
) (*service.NotifyService, error) {
	svc, err := service.NewNotifyService(
		notifyRepo,
		userRepo,
		cacheRepo,
		publisher,
		log.With(zap.String("component", "service")),
		service.WithFanoutWorkers(cfg.Service.FanoutWorkers),
		service.WithFanoutBatch(cfg.Service.FanoutBatch),
		service.WithSweepBatch(cfg.Scheduler.BatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("app.initNotifyService: %w", err)
	}
	return svc, nil
}

func initSinks(cfg *config.Config, log *zap.Logger) *sender.MultiSink {
	emailSink := sender.NewEmailSink(
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From,
		log.With(zap.String("component", "email sink")),
	)

	smsSink := sender.NewSMSSink(
		cfg.SMS.GatewayURL, cfg.SMS.APIKey, cfg.SMS.From, cfg.SMS.Timeout,
		log.With(zap.String("component", "sms sink")),
	)

	var pushSink sender.Sink
	if cfg.Telegram.Token != "" {
		sink, err := sender.NewPushSink(cfg.Telegram.Token, log.With(zap.String("component", "push sink")))
		if err != nil {
			log.Warn("push sink unavailable", zap.Error(err))
		} else {
			pushSink = sink
		}
	}

	return sender.NewMultiSink(emailSink, smsSink, pushSink)
}

// startConsumers runs one queue consumer per external channel. Sink
// failures land on the record as transport errors.
func startConsumers(
	ctx context.Context,
	eg *errgroup.Group,
	client *amqp.Client,
	svc *service.NotifyService,
	sinks *sender.MultiSink,
	log *zap.Logger,
) {
	handler := func(ctx context.Context, msg entity.DeliveryMessage) error {
		sendErr := sinks.Send(ctx, msg)
		if sendErr == nil {
			return nil
		}
		if recErr := svc.RecordTransportFailure(ctx, msg.NotificationID, sendErr.Error()); recErr != nil {
			log.Error("recording transport failure failed", zap.Error(recErr))
		}
		return sendErr
	}

	consumer := amqp.NewConsumer(client, handler, log.With(zap.String("component", "consumer")))
	for _, channel := range []entity.Channel{entity.ChannelEmail, entity.ChannelSMS, entity.ChannelPush} {
		channel := channel
		eg.Go(func() error {
			return consumer.Run(ctx, channel)
		})
	}
}

func startScheduler(ctx context.Context, eg *errgroup.Group, cfg *config.Config, svc *service.NotifyService) {
	eg.Go(func() error {
		return svc.RunScheduler(ctx, cfg.Scheduler.Interval)
	})
}

func startHTTPServer(
	ctx context.Context,
	eg *errgroup.Group,
	cfg *config.Config,
	svc *service.NotifyService,
	db *postgres.Postgres,
	cacheRepo *repository.CacheRepository,
	log *zap.Logger,
) error {
	checks := map[string]httpt.HealthCheck{
		"database": db.Ping,
		"redis":    cacheRepo.Ping,
	}

	handler := httpt.NewNotifyHandler(svc, checks, log.With(zap.String("component", "http")))
	server := httpt.NewServer(handler, &cfg.HTTP, log.With(zap.String("component", "http server")))

	eg.Go(func() error {
		return server.Start(ctx)
	})
	return nil
}

func waitForShutdown(eg *errgroup.Group) error {
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app.waitForShutdown: %w", err)
	}
	return nil
}
