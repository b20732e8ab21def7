package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"sentinal-threads/internal/domain/interaction"
	"sentinal-threads/internal/domain/thread"
	"sentinal-threads/internal/events"
	"sentinal-threads/internal/metrics"
	"sentinal-threads/internal/repository"
	"sentinal-threads/internal/threadsync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type enqueued struct {
	threadID uuid.UUID
	changes  events.ChangeSet
}

// recordingSync is a threadsync.Service that remembers every call.
type recordingSync struct {
	mu    sync.Mutex
	calls []enqueued
	err   error
}

func (r *recordingSync) Enqueue(_ context.Context, threadID uuid.UUID, changes events.ChangeSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, enqueued{threadID: threadID, changes: changes})
	return r.err
}

func (r *recordingSync) Calls() []enqueued {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]enqueued(nil), r.calls...)
}

func (r *recordingSync) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

type fixture struct {
	store        *repository.Store
	threads      *ThreadService
	interactions *InteractionService
	sync         *recordingSync
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := repository.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store: store,
		sync:  &recordingSync{},
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	interactionRepo := repository.NewInteractionRepository(nil)
	m := metrics.New()
	gate := threadsync.NewGate(f.sync, nil, m)
	f.threads = NewThreadService(
		store,
		repository.NewThreadRepository(),
		interactionRepo,
		repository.NewDisappearingRepository(),
		gate,
		nil,
		m,
	).WithClock(func() time.Time { return f.now })
	f.interactions = NewInteractionService(interactionRepo, f.threads)
	return f
}

func (f *fixture) write(t *testing.T, fn func(tx *repository.Tx) error) {
	t.Helper()
	require.NoError(t, f.store.Write(context.Background(), fn))
}

func (f *fixture) read(t *testing.T, fn func(tx *repository.Tx) error) {
	t.Helper()
	require.NoError(t, f.store.Read(context.Background(), fn))
}

func (f *fixture) createThread(t *testing.T) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	f.write(t, func(tx *repository.Tx) error {
		th, err := f.threads.Create(tx, CreateParams{Kind: thread.ContactKind("+15550100")})
		id = th.ID
		return err
	})
	return id
}

func (f *fixture) get(t *testing.T, id uuid.UUID) thread.Thread {
	t.Helper()
	var th thread.Thread
	f.read(t, func(tx *repository.Tx) error {
		var err error
		th, err = f.threads.Get(tx, id)
		return err
	})
	return th
}

func (f *fixture) insert(t *testing.T, threadID uuid.UUID, key interaction.OrderingKey, kind interaction.Kind) interaction.Interaction {
	t.Helper()
	i := interaction.Interaction{ThreadID: threadID, OrderingKey: key, Kind: kind}
	f.write(t, func(tx *repository.Tx) error {
		return f.interactions.Insert(tx, &i)
	})
	return i
}

func (f *fixture) remove(t *testing.T, id uuid.UUID) {
	t.Helper()
	f.write(t, func(tx *repository.Tx) error {
		return f.interactions.Remove(tx, id)
	})
}
