package repository

import (
	"context"
	"time"

	"sentinal-threads/internal/domain/outbox"
	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// pebbleOutboxRepository keeps sync records in the local store. Completed
// records are dropped, the local outbox only holds outstanding work.
type pebbleOutboxRepository struct {
	store *Store
	clock func() time.Time
}

func NewOutboxRepository(store *Store) OutboxRepository {
	return &pebbleOutboxRepository{store: store, clock: time.Now}
}

func (r *pebbleOutboxRepository) Create(ctx context.Context, record *outbox.SyncRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := r.clock()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = outbox.StatusPending
	}
	return r.store.Write(ctx, func(tx *Tx) error {
		exists, err := tx.has(outboxRecordKey(record.ID))
		if err != nil {
			return err
		}
		if exists {
			return sentinal_errors.ErrAlreadyExists
		}
		if err := tx.setJSON(outboxRecordKey(record.ID), record); err != nil {
			return err
		}
		return tx.set(outboxPendingKey(record.CreatedAt.UnixNano(), record.ID), []byte(record.ID.String()))
	})
}

func (r *pebbleOutboxRepository) GetPending(ctx context.Context, limit, maxRetries int) ([]outbox.SyncRecord, error) {
	var records []outbox.SyncRecord
	err := r.store.Read(ctx, func(tx *Tx) error {
		iter, err := tx.iter([]byte(outboxPendingPrefix))
		if err != nil {
			return err
		}
		defer iter.Close()

		for iter.First(); iter.Valid(); iter.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			id, err := uuid.ParseBytes(iter.Value())
			if err != nil {
				return errors.Wrapf(err, "decode index %s", iter.Key())
			}
			var rec outbox.SyncRecord
			if err := tx.getJSON(outboxRecordKey(id), &rec); err != nil {
				return err
			}
			if rec.Status != outbox.StatusPending || rec.RetryCount >= maxRetries {
				continue
			}
			records = append(records, rec)
		}
		return iter.Error()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *pebbleOutboxRepository) update(ctx context.Context, id uuid.UUID, fn func(rec *outbox.SyncRecord) (keepPending bool)) error {
	return r.store.Write(ctx, func(tx *Tx) error {
		var rec outbox.SyncRecord
		if err := tx.getJSON(outboxRecordKey(id), &rec); err != nil {
			return err
		}
		keep := fn(&rec)
		rec.UpdatedAt = r.clock()
		if keep {
			return tx.setJSON(outboxRecordKey(id), rec)
		}
		if err := tx.delete(outboxPendingKey(rec.CreatedAt.UnixNano(), id)); err != nil {
			return err
		}
		if rec.Status == outbox.StatusCompleted {
			return tx.delete(outboxRecordKey(id))
		}
		return tx.setJSON(outboxRecordKey(id), rec)
	})
}

func (r *pebbleOutboxRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, func(rec *outbox.SyncRecord) bool {
		rec.Status = outbox.StatusProcessing
		return true
	})
}

func (r *pebbleOutboxRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, func(rec *outbox.SyncRecord) bool {
		now := r.clock()
		rec.Status = outbox.StatusCompleted
		rec.ProcessedAt = &now
		return false
	})
}

func (r *pebbleOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.update(ctx, id, func(rec *outbox.SyncRecord) bool {
		rec.Status = outbox.StatusFailed
		rec.Error = errorMsg
		return false
	})
}

func (r *pebbleOutboxRepository) IncrementRetry(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.update(ctx, id, func(rec *outbox.SyncRecord) bool {
		rec.Status = outbox.StatusPending
		rec.RetryCount++
		rec.Error = errorMsg
		return true
	})
}
