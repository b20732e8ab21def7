package threadsync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sentinal-threads/internal/domain/outbox"
	"sentinal-threads/internal/events"
	"sentinal-threads/internal/metrics"
	"sentinal-threads/internal/repository"
	"sentinal-threads/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type WorkerConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Interval:   500 * time.Millisecond,
		BatchSize:  100,
		MaxRetries: 10,
	}
}

// Worker polls the sync outbox and publishes records to the account channel.
type Worker struct {
	repo      repository.OutboxRepository
	publisher events.Publisher
	resolver  events.ChannelResolver
	cfg       WorkerConfig
	log       *logger.Logger
	metrics   *metrics.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(repo repository.OutboxRepository, publisher events.Publisher, resolver events.ChannelResolver, cfg WorkerConfig, l *logger.Logger, m *metrics.Metrics) *Worker {
	def := DefaultWorkerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if l == nil {
		l = logger.GetGlobalLogger()
	}
	return &Worker{
		repo:      repo,
		publisher: publisher,
		resolver:  resolver,
		cfg:       cfg,
		log:       l,
		metrics:   m,
	}
}

// Start begins the worker loop
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully shuts down
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				w.log.Ctx(ctx).Warn("sync_batch_failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch of pending records and returns how many
// were published.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	records, err := w.repo.GetPending(ctx, w.cfg.BatchSize, w.cfg.MaxRetries)
	if err != nil {
		return 0, err
	}
	published := 0
	for i := range records {
		if w.processRecord(ctx, &records[i]) {
			published++
		}
	}
	return published, nil
}

func (w *Worker) processRecord(ctx context.Context, rec *outbox.SyncRecord) bool {
	log := w.log.Ctx(ctx).With(
		zap.String("record_id", rec.ID.String()),
		zap.String("thread_id", rec.ThreadID.String()),
	)

	// Prevent duplicate processing
	if err := w.repo.MarkProcessing(ctx, rec.ID); err != nil {
		log.Warn("sync_mark_processing_failed", zap.Error(err))
		return false
	}

	var env events.Envelope
	if err := json.Unmarshal(rec.Payload, &env); err != nil {
		w.metrics.SyncError("decode")
		if err := w.repo.MarkFailed(ctx, rec.ID, "failed to unmarshal: "+err.Error()); err != nil {
			log.Error("sync_mark_failed_failed", zap.Error(err))
		}
		return false
	}

	if err := w.publish(ctx, env, rec.Payload); err != nil {
		w.metrics.SyncError("publish")
		if rec.RetryCount+1 >= w.cfg.MaxRetries {
			log.Error("sync_publish_abandoned", zap.Int("retries", rec.RetryCount+1), zap.Error(err))
			if err := w.repo.MarkFailed(ctx, rec.ID, err.Error()); err != nil {
				log.Error("sync_mark_failed_failed", zap.Error(err))
			}
			return false
		}
		log.Warn("sync_publish_failed", zap.Int("retry", rec.RetryCount+1), zap.Error(err))
		if err := w.repo.IncrementRetry(ctx, rec.ID, err.Error()); err != nil {
			log.Error("sync_increment_retry_failed", zap.Error(err))
		}
		return false
	}

	if err := w.repo.MarkCompleted(ctx, rec.ID); err != nil {
		log.Error("sync_mark_completed_failed", zap.Error(err))
	}
	w.metrics.SyncPublished()
	log.Debug("sync_published")
	return true
}

func (w *Worker) publish(ctx context.Context, env events.Envelope, payload []byte) error {
	for _, channel := range w.resolver.ResolveChannels(env) {
		if err := w.publisher.Publish(ctx, channel, payload); err != nil {
			return errors.Wrapf(err, "publish to %s", channel)
		}
	}
	return nil
}
