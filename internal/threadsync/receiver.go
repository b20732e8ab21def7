package threadsync

import (
	"context"
	"encoding/json"

	"sentinal-threads/internal/domain/thread"
	"sentinal-threads/internal/events"
	"sentinal-threads/internal/metrics"
	"sentinal-threads/internal/repository"
	sentinal_errors "sentinal-threads/pkg/errors"
	"sentinal-threads/pkg/logger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Applier applies state received from another device without propagating it.
type Applier interface {
	ApplyRemoteState(tx *repository.Tx, threadID uuid.UUID, state thread.RemoteState) error
}

// SeenMarker reports whether an envelope key is new. Forget releases a key
// whose envelope could not be applied, so a redelivery is tried again.
type SeenMarker interface {
	MarkSeen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Receiver outcomes
const (
	OutcomeApplied       = "applied"
	OutcomeOwnDevice     = "own_device"
	OutcomeDuplicate     = "duplicate"
	OutcomeIgnored       = "ignored"
	OutcomeUnknownThread = "unknown_thread"
	OutcomeError         = "error"
)

// Receiver applies thread envelopes published by the account's other devices.
type Receiver struct {
	store      *repository.Store
	applier    Applier
	subscriber events.Subscriber
	seen       SeenMarker
	deviceID   string
	accountID  string
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func NewReceiver(store *repository.Store, applier Applier, subscriber events.Subscriber, deviceID, accountID string, l *logger.Logger, m *metrics.Metrics) *Receiver {
	if l == nil {
		l = logger.GetGlobalLogger()
	}
	return &Receiver{
		store:      store,
		applier:    applier,
		subscriber: subscriber,
		deviceID:   deviceID,
		accountID:  accountID,
		log:        l,
		metrics:    m,
	}
}

// WithSeenMarker enables duplicate suppression.
func (r *Receiver) WithSeenMarker(seen SeenMarker) *Receiver {
	r.seen = seen
	return r
}

// Run subscribes to the account channel and blocks until ctx is done.
func (r *Receiver) Run(ctx context.Context) error {
	return r.subscriber.Subscribe(ctx, []string{events.SyncChannel(r.accountID)}, func(channel string, payload []byte) {
		outcome, err := r.Handle(ctx, payload)
		if err != nil {
			r.log.Ctx(ctx).Error("sync_apply_failed", zap.String("channel", channel), zap.Error(err))
		}
		r.metrics.SyncReceived(outcome)
	})
}

// Handle decodes and applies one published envelope.
func (r *Receiver) Handle(ctx context.Context, payload []byte) (string, error) {
	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return OutcomeError, errors.Wrap(err, "decode envelope")
	}
	if env.EventType != events.EventTypeThreadStateSynced {
		return OutcomeIgnored, nil
	}
	if env.OriginDevice == r.deviceID {
		return OutcomeOwnDevice, nil
	}
	if r.seen != nil && env.ID != "" {
		fresh, err := r.seen.MarkSeen(ctx, env.ID)
		if err != nil {
			r.log.Ctx(ctx).Warn("sync_seen_check_failed", zap.Error(err))
		} else if !fresh {
			return OutcomeDuplicate, nil
		}
	}

	snap, err := env.DecodeThreadSnapshot()
	if err != nil {
		return OutcomeError, errors.Wrap(err, "decode snapshot")
	}
	state := RemoteStateFrom(snap)
	if state.IsEmpty() {
		return OutcomeIgnored, nil
	}

	err = r.store.Write(ctx, func(tx *repository.Tx) error {
		return r.applier.ApplyRemoteState(tx, snap.ThreadID, state)
	})
	if errors.Is(err, sentinal_errors.ErrNotFound) {
		r.log.Ctx(ctx).Debug("sync_unknown_thread", zap.String("thread_id", snap.ThreadID.String()))
		return OutcomeUnknownThread, nil
	}
	if err != nil {
		r.metrics.SyncError("apply")
		r.forget(ctx, env.ID)
		return OutcomeError, err
	}
	r.log.Ctx(ctx).Debug("sync_applied",
		zap.String("thread_id", snap.ThreadID.String()),
		zap.String("origin_device", env.OriginDevice),
		zap.String("changes", snap.ChangeSet().String()),
	)
	return OutcomeApplied, nil
}

func (r *Receiver) forget(ctx context.Context, key string) {
	if r.seen == nil || key == "" {
		return
	}
	if err := r.seen.Forget(ctx, key); err != nil {
		r.log.Ctx(ctx).Warn("sync_seen_forget_failed", zap.String("envelope_id", key), zap.Error(err))
	}
}
