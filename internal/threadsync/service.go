package threadsync

import (
	"context"
	"encoding/json"
	"time"

	"sentinal-threads/internal/domain/outbox"
	"sentinal-threads/internal/domain/thread"
	"sentinal-threads/internal/events"
	"sentinal-threads/internal/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// OutboxService implements Service by snapshotting the committed thread and
// storing it as a pending sync record for the Worker.
type OutboxService struct {
	store    *repository.Store
	threads  repository.ThreadRepository
	outbox   repository.OutboxRepository
	deviceID string
	clock    func() time.Time
}

func NewOutboxService(store *repository.Store, threads repository.ThreadRepository, outboxRepo repository.OutboxRepository, deviceID string) *OutboxService {
	return &OutboxService{
		store:    store,
		threads:  threads,
		outbox:   outboxRepo,
		deviceID: deviceID,
		clock:    time.Now,
	}
}

func (s *OutboxService) Enqueue(ctx context.Context, threadID uuid.UUID, changes events.ChangeSet) error {
	var t thread.Thread
	err := s.store.Read(ctx, func(tx *repository.Tx) error {
		var err error
		t, err = s.threads.GetByID(tx, threadID)
		return err
	})
	if err != nil {
		return err
	}

	now := s.clock()
	id := uuid.New()
	env, err := events.NewThreadEnvelope(id, s.deviceID, Snapshot(t, changes), now)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}
	return s.outbox.Create(ctx, &outbox.SyncRecord{
		ID:        id,
		ThreadID:  threadID,
		Changes:   uint32(changes),
		Payload:   payload,
		Status:    outbox.StatusPending,
		CreatedAt: now,
	})
}

// Snapshot captures the sync-relevant state of t.
func Snapshot(t thread.Thread, changes events.ChangeSet) events.ThreadSnapshot {
	return events.ThreadSnapshot{
		ThreadID:    t.ID,
		Changes:     changes.Names(),
		Archived:    t.Archived,
		Unread:      t.IsUnread(),
		MutedUntil:  t.MutedUntil,
		MentionMode: string(t.MentionMode),
	}
}

// RemoteStateFrom keeps only the fields named by the snapshot's changes.
func RemoteStateFrom(s events.ThreadSnapshot) thread.RemoteState {
	var state thread.RemoteState
	changes := s.ChangeSet()
	if changes.Has(events.ChangeArchive) {
		archived := s.Archived
		state.Archived = &archived
	}
	if changes.Has(events.ChangeReadState) {
		unread := s.Unread
		state.Unread = &unread
	}
	if changes.Has(events.ChangeMute) {
		state.MuteChanged = true
		state.MutedUntil = s.MutedUntil
	}
	if changes.Has(events.ChangeMentionMode) {
		mode := thread.MentionNotificationMode(s.MentionMode)
		if mode.Valid() {
			state.MentionMode = &mode
		}
	}
	return state
}
