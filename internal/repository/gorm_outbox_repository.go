package repository

import (
	"context"
	"time"

	"sentinal-threads/internal/domain/outbox"
	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// PostgresOutboxRepository stores sync records in a shared relay database so
// several device processes can drain a single outbox.
type PostgresOutboxRepository struct {
	db *gorm.DB
}

var _ OutboxRepository = (*PostgresOutboxRepository)(nil)

func NewPostgresOutboxRepository(db *gorm.DB) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{db: db}
}

// AutoMigrate creates the outbox table.
func (r *PostgresOutboxRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&outbox.SyncRecord{})
}

func (r *PostgresOutboxRepository) Create(ctx context.Context, record *outbox.SyncRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = outbox.StatusPending
	}
	res := r.db.WithContext(ctx).Create(record)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) || isUniqueViolation(res.Error) {
			return sentinal_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresOutboxRepository) GetPending(ctx context.Context, limit, maxRetries int) ([]outbox.SyncRecord, error) {
	var records []outbox.SyncRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < ?", outbox.StatusPending, maxRetries).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *PostgresOutboxRepository) updates(ctx context.Context, id uuid.UUID, values map[string]interface{}) error {
	values["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).
		Model(&outbox.SyncRecord{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sentinal_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresOutboxRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.updates(ctx, id, map[string]interface{}{
		"status": outbox.StatusProcessing,
	})
}

func (r *PostgresOutboxRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.updates(ctx, id, map[string]interface{}{
		"status":       outbox.StatusCompleted,
		"processed_at": time.Now(),
	})
}

func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"status": outbox.StatusFailed,
		"error":  errorMsg,
	})
}

func (r *PostgresOutboxRepository) IncrementRetry(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"status":      outbox.StatusPending,
		"retry_count": gorm.Expr("retry_count + 1"),
		"error":       errorMsg,
	})
}
