package main

import (
	"context"
	"log"
	"time"

	"sentinal-threads/config"
	"sentinal-threads/internal/commands"
	"sentinal-threads/internal/events"
	"sentinal-threads/internal/handler"
	"sentinal-threads/internal/metrics"
	"sentinal-threads/internal/redis"
	"sentinal-threads/internal/repository"
	"sentinal-threads/internal/server"
	"sentinal-threads/internal/services"
	"sentinal-threads/internal/threadsync"
	"sentinal-threads/pkg/database"
	"sentinal-threads/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)
	defer func() { _ = l.Sync() }()

	store, err := repository.Open(cfg.StorePath, l)
	if err != nil {
		log.Fatalf("Failed to open thread store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Errorf("Error closing thread store: %s", err)
		}
	}()

	checks := map[string]server.HealthCheck{
		"store": func(context.Context) error {
			if !store.Ready() {
				return errors.New("store closed")
			}
			return nil
		},
	}

	var outboxRepo repository.OutboxRepository
	switch cfg.SyncOutboxBackend {
	case config.OutboxBackendPostgres:
		db, err := database.Connect(cfg, l)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer func() { _ = database.Close(db) }()
		pg := repository.NewPostgresOutboxRepository(db)
		if err := pg.AutoMigrate(); err != nil {
			log.Fatalf("Failed to migrate sync outbox: %v", err)
		}
		outboxRepo = pg
		checks["database"] = func(context.Context) error { return database.HealthCheck(db) }
	default:
		outboxRepo = repository.NewOutboxRepository(store)
	}

	m := metrics.New()

	redisClient := redis.NewClient(redis.ConfigFrom(cfg))
	defer func() { _ = redisClient.Close() }()
	if err := redis.Ping(context.Background(), redisClient); err != nil {
		l.Warnf("Redis unavailable, sync will retry: %s", err)
	}
	checks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, redisClient) }

	threadRepo := repository.NewThreadRepository()
	interactionRepo := repository.NewInteractionRepository(nil)

	syncService := threadsync.NewOutboxService(store, threadRepo, outboxRepo, cfg.DeviceID)
	gate := threadsync.NewGate(syncService, l, m)

	threadService := services.NewThreadService(
		store,
		threadRepo,
		interactionRepo,
		repository.NewDisappearingRepository(),
		gate,
		l,
		m,
	).WithDraftPolicy(cfg.RejectDraftsOnDeleted)
	interactionService := services.NewInteractionService(interactionRepo, threadService)

	bus := commands.NewBus()
	threadService.RegisterHandlers(bus)
	bus.Observe(func(_ context.Context, commandType string, err error) {
		m.Command(commandType, err == nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := threadsync.NewWorker(
		outboxRepo,
		redis.NewPublisher(redisClient),
		events.NewAccountChannelResolver(cfg.AccountID),
		threadsync.WorkerConfig{
			Interval:   time.Duration(cfg.SyncIntervalMs) * time.Millisecond,
			BatchSize:  cfg.SyncBatchSize,
			MaxRetries: cfg.SyncMaxRetries,
		},
		l,
		m,
	)
	worker.Start(ctx)
	defer worker.Stop()

	receiver := threadsync.NewReceiver(
		store,
		threadService,
		redis.NewSubscriber(redisClient),
		cfg.DeviceID,
		cfg.AccountID,
		l,
		m,
	).WithSeenMarker(redis.NewSeenStore(redisClient, cfg.DeviceID, redis.DefaultSeenTTL))
	go func() {
		if err := receiver.Run(ctx); err != nil {
			l.Ctx(ctx).Error("sync receiver stopped", zap.Error(err))
		}
	}()

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Threads: handler.NewThreadHandler(store, threadService, interactionService, bus),
	}, m, checks)

	l.Infof("Device %s syncing on %s", cfg.DeviceID, events.SyncChannel(cfg.AccountID))
	if err := srv.Start(ctx); err != nil {
		l.Errorf("Server exited with error: %s", err)
	}
}
