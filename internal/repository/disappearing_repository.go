package repository

import (
	"sentinal-threads/internal/domain/disappearing"
	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type pebbleDisappearingRepository struct{}

func NewDisappearingRepository() DisappearingRepository {
	return &pebbleDisappearingRepository{}
}

// Get returns a disabled configuration when none was ever stored.
func (r *pebbleDisappearingRepository) Get(tx *Tx, threadID uuid.UUID) (disappearing.Configuration, error) {
	var c disappearing.Configuration
	if err := tx.getJSON(disappearingKey(threadID), &c); err != nil {
		if errors.Is(err, sentinal_errors.ErrNotFound) {
			return disappearing.Configuration{ThreadID: threadID}, nil
		}
		return disappearing.Configuration{}, err
	}
	return c, nil
}

func (r *pebbleDisappearingRepository) Upsert(tx *Tx, c disappearing.Configuration) error {
	if c.ThreadID == uuid.Nil {
		return sentinal_errors.ErrInvalidInput
	}
	return tx.setJSON(disappearingKey(c.ThreadID), c)
}
