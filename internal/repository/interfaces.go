package repository

import (
	"context"

	"sentinal-threads/internal/domain/disappearing"
	"sentinal-threads/internal/domain/interaction"
	"sentinal-threads/internal/domain/outbox"
	"sentinal-threads/internal/domain/thread"

	"github.com/google/uuid"
)

type ThreadRepository interface {
	Create(tx *Tx, t *thread.Thread) error
	GetByID(tx *Tx, id uuid.UUID) (thread.Thread, error)
	Update(tx *Tx, t thread.Thread) error
	List(tx *Tx) ([]thread.Thread, error)
}

type InteractionRepository interface {
	NextOrderingKey(tx *Tx) (interaction.OrderingKey, error)
	Insert(tx *Tx, i interaction.Interaction) error
	Update(tx *Tx, i interaction.Interaction) error
	Remove(tx *Tx, id uuid.UUID) error
	GetByID(tx *Tx, id uuid.UUID) (interaction.Interaction, error)

	// MostRecentQualifying returns the newest inbox-appearing interaction of
	// the thread with an ordering key strictly below before. A zero before
	// means no upper bound. It returns nil when there is none.
	MostRecentQualifying(tx *Tx, threadID uuid.UUID, before interaction.OrderingKey) (*interaction.Interaction, error)
	FirstAtOrAround(tx *Tx, threadID uuid.UUID, key interaction.OrderingKey) (*interaction.Interaction, error)
	RemoveAll(tx *Tx, threadID uuid.UUID) (int, error)
	Count(tx *Tx, threadID uuid.UUID) (int, error)

	IsInboxAppearing(i interaction.Interaction) bool
}

type DisappearingRepository interface {
	Get(tx *Tx, threadID uuid.UUID) (disappearing.Configuration, error)
	Upsert(tx *Tx, c disappearing.Configuration) error
}

type OutboxRepository interface {
	Create(ctx context.Context, record *outbox.SyncRecord) error
	GetPending(ctx context.Context, limit, maxRetries int) ([]outbox.SyncRecord, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error
	IncrementRetry(ctx context.Context, id uuid.UUID, errorMsg string) error
}
