package threadsync

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"sentinal-threads/internal/domain/outbox"
	"sentinal-threads/internal/domain/thread"
	"sentinal-threads/internal/events"
	"sentinal-threads/internal/metrics"
	"sentinal-threads/internal/repository"
	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceCall struct {
	threadID uuid.UUID
	changes  events.ChangeSet
}

type fakeService struct {
	mu    sync.Mutex
	calls []serviceCall
}

func (f *fakeService) Enqueue(_ context.Context, threadID uuid.UUID, changes events.ChangeSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, serviceCall{threadID, changes})
	return nil
}

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{channel, payload})
	return nil
}

type fakeApplier struct {
	applied map[uuid.UUID]thread.RemoteState
	err     error
}

func (f *fakeApplier) ApplyRemoteState(_ *repository.Tx, threadID uuid.UUID, state thread.RemoteState) error {
	if f.err != nil {
		return f.err
	}
	if f.applied == nil {
		f.applied = make(map[uuid.UUID]thread.RemoteState)
	}
	f.applied[threadID] = state
	return nil
}

type memorySeen map[string]bool

func (m memorySeen) MarkSeen(_ context.Context, key string) (bool, error) {
	if m[key] {
		return false, nil
	}
	m[key] = true
	return true, nil
}

func (m memorySeen) Forget(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	s, err := repository.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGate_MergesPerThreadAndFlushesAfterCommit(t *testing.T) {
	store := newStore(t)
	svc := &fakeService{}
	gate := NewGate(svc, nil, metrics.New())
	a, b := uuid.New(), uuid.New()

	require.NoError(t, store.Write(context.Background(), func(tx *repository.Tx) error {
		assert.True(t, gate.RequestSync(tx, b, events.ChangeMute))
		assert.True(t, gate.RequestSync(tx, a, events.ChangeArchive))
		assert.True(t, gate.RequestSync(tx, b, events.ChangeReadState))
		assert.False(t, gate.RequestSync(tx, a, events.ChangeDraft))
		assert.False(t, gate.RequestSync(tx, a, events.ChangeColor))
		assert.Equal(t, events.ChangeSet(events.ChangeMute).With(events.ChangeReadState), PendingFor(tx, b))
		assert.Empty(t, svc.calls)
		return nil
	}))

	require.Len(t, svc.calls, 2)
	assert.Equal(t, b, svc.calls[0].threadID)
	assert.Equal(t, events.ChangeSet(events.ChangeMute).With(events.ChangeReadState), svc.calls[0].changes)
	assert.Equal(t, a, svc.calls[1].threadID)
	assert.Equal(t, events.ChangeSet(events.ChangeArchive), svc.calls[1].changes)
}

func TestGate_ReadTransactionsAndRollback(t *testing.T) {
	store := newStore(t)
	svc := &fakeService{}
	gate := NewGate(svc, nil, nil)

	require.NoError(t, store.Read(context.Background(), func(tx *repository.Tx) error {
		assert.False(t, gate.RequestSync(tx, uuid.New(), events.ChangeArchive))
		return nil
	}))
	err := store.Write(context.Background(), func(tx *repository.Tx) error {
		gate.RequestSync(tx, uuid.New(), events.ChangeArchive)
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.Empty(t, svc.calls)

	var nilGate *Gate
	require.NoError(t, store.Write(context.Background(), func(tx *repository.Tx) error {
		assert.False(t, nilGate.RequestSync(tx, uuid.New(), events.ChangeArchive))
		return nil
	}))
}

func TestOutboxService_SnapshotsCommittedState(t *testing.T) {
	store := newStore(t)
	threads := repository.NewThreadRepository()
	outboxRepo := repository.NewOutboxRepository(store)
	svc := NewOutboxService(store, threads, outboxRepo, "phone")
	until := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	th := thread.Thread{
		ID:             uuid.New(),
		Kind:           thread.ContactKind("+1"),
		Archived:       true,
		UnreadOverride: thread.OverrideForcedUnread,
		MutedUntil:     &until,
		MentionMode:    thread.MentionModeAlways,
	}
	require.NoError(t, store.Write(context.Background(), func(tx *repository.Tx) error {
		return threads.Create(tx, &th)
	}))

	changes := events.ChangeSet(events.ChangeArchive).With(events.ChangeMute)
	require.NoError(t, svc.Enqueue(context.Background(), th.ID, changes))

	pending, err := outboxRepo.GetPending(context.Background(), 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	rec := pending[0]
	assert.Equal(t, th.ID, rec.ThreadID)
	assert.Equal(t, uint32(changes), rec.Changes)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(rec.Payload, &env))
	assert.Equal(t, rec.ID.String(), env.ID)
	assert.Equal(t, "phone", env.OriginDevice)
	snap, err := env.DecodeThreadSnapshot()
	require.NoError(t, err)
	assert.True(t, snap.Archived)
	assert.True(t, snap.Unread)
	assert.Equal(t, "ALWAYS", snap.MentionMode)
	assert.Equal(t, changes, snap.ChangeSet())

	assert.ErrorIs(t, svc.Enqueue(context.Background(), uuid.New(), changes), sentinal_errors.ErrNotFound)
}

func TestRemoteStateFrom_OnlyChangedFields(t *testing.T) {
	until := time.Now().Add(time.Hour)
	state := RemoteStateFrom(events.ThreadSnapshot{
		Changes:     []string{"read_state", "mention_mode"},
		Archived:    true,
		Unread:      false,
		MutedUntil:  &until,
		MentionMode: "NEVER",
	})
	assert.Nil(t, state.Archived)
	require.NotNil(t, state.Unread)
	assert.False(t, *state.Unread)
	assert.False(t, state.MuteChanged)
	require.NotNil(t, state.MentionMode)
	assert.Equal(t, thread.MentionModeNever, *state.MentionMode)

	assert.True(t, RemoteStateFrom(events.ThreadSnapshot{Changes: []string{"mention_mode"}, MentionMode: "bogus"}).IsEmpty())
}

func newRecord(t *testing.T, repo repository.OutboxRepository, origin string) outbox.SyncRecord {
	t.Helper()
	id := uuid.New()
	snap := events.ThreadSnapshot{ThreadID: uuid.New(), Changes: []string{"archive"}, Archived: true}
	env, err := events.NewThreadEnvelope(id, origin, snap, time.Now())
	require.NoError(t, err)
	payload, err := json.Marshal(env)
	require.NoError(t, err)
	rec := outbox.SyncRecord{ID: id, ThreadID: snap.ThreadID, Payload: payload}
	require.NoError(t, repo.Create(context.Background(), &rec))
	return rec
}

func TestWorker_PublishesAndCompletes(t *testing.T) {
	store := newStore(t)
	repo := repository.NewOutboxRepository(store)
	pub := &fakePublisher{}
	w := NewWorker(repo, pub, events.NewAccountChannelResolver("acct"), WorkerConfig{BatchSize: 10, MaxRetries: 3}, nil, metrics.New())
	rec := newRecord(t, repo, "phone")

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "channel:sync:acct", pub.sent[0].channel)
	assert.JSONEq(t, string(rec.Payload), string(pub.sent[0].payload))

	pending, err := repo.GetPending(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWorker_RetriesThenGivesUp(t *testing.T) {
	store := newStore(t)
	repo := repository.NewOutboxRepository(store)
	pub := &fakePublisher{err: errors.New("redis down")}
	w := NewWorker(repo, pub, events.NewAccountChannelResolver("acct"), WorkerConfig{BatchSize: 10, MaxRetries: 2}, nil, nil)
	newRecord(t, repo, "phone")
	ctx := context.Background()

	n, err := w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	pending, err := repo.GetPending(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Contains(t, pending[0].Error, "redis down")

	_, err = w.ProcessBatch(ctx)
	require.NoError(t, err)
	pending, err = repo.GetPending(ctx, 10, 100)
	require.NoError(t, err)
	assert.Empty(t, pending, "abandoned records leave the queue")
}

func TestWorker_UndecodablePayloadFails(t *testing.T) {
	store := newStore(t)
	repo := repository.NewOutboxRepository(store)
	pub := &fakePublisher{}
	w := NewWorker(repo, pub, events.NewAccountChannelResolver("acct"), WorkerConfig{}, nil, nil)
	require.NoError(t, repo.Create(context.Background(), &outbox.SyncRecord{ThreadID: uuid.New(), Payload: []byte("not json")}))

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.sent)
	pending, err := repo.GetPending(context.Background(), 10, 100)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWorker_StartStop(t *testing.T) {
	store := newStore(t)
	repo := repository.NewOutboxRepository(store)
	pub := &fakePublisher{}
	w := NewWorker(repo, pub, events.NewAccountChannelResolver("acct"), WorkerConfig{Interval: 5 * time.Millisecond}, nil, nil)
	newRecord(t, repo, "phone")

	w.Start(context.Background())
	assert.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.sent) == 1
	}, time.Second, 5*time.Millisecond)
	w.Stop()
}

func envelopeBytes(t *testing.T, origin string, snap events.ThreadSnapshot) []byte {
	t.Helper()
	env, err := events.NewThreadEnvelope(uuid.New(), origin, snap, time.Now())
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return b
}

func TestReceiver_Handle(t *testing.T) {
	store := newStore(t)
	applier := &fakeApplier{}
	r := NewReceiver(store, applier, nil, "laptop", "acct", nil, metrics.New()).WithSeenMarker(memorySeen{})
	ctx := context.Background()
	threadID := uuid.New()
	snap := events.ThreadSnapshot{ThreadID: threadID, Changes: []string{"archive"}, Archived: true}

	outcome, err := r.Handle(ctx, envelopeBytes(t, "laptop", snap))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOwnDevice, outcome)
	assert.Empty(t, applier.applied)

	payload := envelopeBytes(t, "phone", snap)
	outcome, err = r.Handle(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	require.Contains(t, applier.applied, threadID)
	require.NotNil(t, applier.applied[threadID].Archived)
	assert.True(t, *applier.applied[threadID].Archived)

	outcome, err = r.Handle(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	outcome, err = r.Handle(ctx, []byte(`{"event_type":"message.created"}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	outcome, err = r.Handle(ctx, []byte("garbage"))
	assert.Error(t, err)
	assert.Equal(t, OutcomeError, outcome)

	applier.err = errors.Wrap(sentinal_errors.ErrNotFound, "thread")
	outcome, err = r.Handle(ctx, envelopeBytes(t, "phone", snap))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownThread, outcome)
}

func TestReceiver_FailedApplyIsRetriedOnRedelivery(t *testing.T) {
	store := newStore(t)
	applier := &fakeApplier{err: errors.Wrap(sentinal_errors.ErrTransactionAborted, "commit")}
	seen := memorySeen{}
	r := NewReceiver(store, applier, nil, "laptop", "acct", nil, metrics.New()).WithSeenMarker(seen)
	ctx := context.Background()
	threadID := uuid.New()
	payload := envelopeBytes(t, "phone", events.ThreadSnapshot{ThreadID: threadID, Changes: []string{"archive"}, Archived: true})

	outcome, err := r.Handle(ctx, payload)
	assert.ErrorIs(t, err, sentinal_errors.ErrTransactionAborted)
	assert.Equal(t, OutcomeError, outcome)
	assert.Empty(t, seen)

	applier.err = nil
	outcome, err = r.Handle(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Contains(t, applier.applied, threadID)
	assert.Len(t, seen, 1)
}

type fakeSubscriber struct {
	payloads [][]byte
	channels []string
}

func (f *fakeSubscriber) Subscribe(_ context.Context, channels []string, handler func(channel string, payload []byte)) error {
	f.channels = channels
	for _, p := range f.payloads {
		handler(channels[0], p)
	}
	return nil
}

func TestReceiver_RunSubscribesToAccountChannel(t *testing.T) {
	store := newStore(t)
	applier := &fakeApplier{}
	threadID := uuid.New()
	sub := &fakeSubscriber{payloads: [][]byte{
		envelopeBytes(t, "phone", events.ThreadSnapshot{ThreadID: threadID, Changes: []string{"mute"}}),
	}}
	r := NewReceiver(store, applier, sub, "laptop", "acct", nil, nil)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []string{"channel:sync:acct"}, sub.channels)
	require.Contains(t, applier.applied, threadID)
	assert.True(t, applier.applied[threadID].MuteChanged)
	assert.Nil(t, applier.applied[threadID].MutedUntil)
}
