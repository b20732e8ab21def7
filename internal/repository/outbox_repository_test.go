package repository

import (
	"context"
	"testing"
	"time"

	"sentinal-threads/internal/domain/outbox"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	repo := NewOutboxRepository(s)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := &outbox.SyncRecord{ThreadID: uuid.New(), Changes: 1, Payload: []byte(`{}`), CreatedAt: base}
	second := &outbox.SyncRecord{ThreadID: uuid.New(), Changes: 2, Payload: []byte(`{}`), CreatedAt: base.Add(time.Second)}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	pending, err := repo.GetPending(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "oldest first")
	assert.Equal(t, outbox.StatusPending, pending[0].Status)

	require.NoError(t, repo.MarkProcessing(ctx, first.ID))
	pending, err = repo.GetPending(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	require.NoError(t, repo.IncrementRetry(ctx, first.ID, "redis down"))
	pending, err = repo.GetPending(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Equal(t, "redis down", pending[0].Error)

	require.NoError(t, repo.MarkCompleted(ctx, first.ID))
	require.NoError(t, repo.MarkFailed(ctx, second.ID, "bad payload"))
	pending, err = repo.GetPending(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxRepository_RetryLimitAndBatchSize(t *testing.T) {
	s := newTestStore(t)
	repo := NewOutboxRepository(s)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		rec := &outbox.SyncRecord{ThreadID: uuid.New(), Payload: []byte(`{}`)}
		require.NoError(t, repo.Create(ctx, rec))
		ids = append(ids, rec.ID)
	}
	require.NoError(t, repo.IncrementRetry(ctx, ids[0], "x"))

	pending, err := repo.GetPending(ctx, 10, 1)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	pending, err = repo.GetPending(ctx, 1, 5)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
