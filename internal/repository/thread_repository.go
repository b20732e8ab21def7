package repository

import (
	"encoding/json"

	"sentinal-threads/internal/domain/thread"
	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type pebbleThreadRepository struct{}

func NewThreadRepository() ThreadRepository {
	return &pebbleThreadRepository{}
}

func (r *pebbleThreadRepository) Create(tx *Tx, t *thread.Thread) error {
	if t.ID == uuid.Nil {
		return sentinal_errors.ErrInvalidInput
	}
	exists, err := tx.has(threadKey(t.ID))
	if err != nil {
		return err
	}
	if exists {
		return sentinal_errors.ErrAlreadyExists
	}
	return tx.setJSON(threadKey(t.ID), t)
}

func (r *pebbleThreadRepository) GetByID(tx *Tx, id uuid.UUID) (thread.Thread, error) {
	var t thread.Thread
	if err := tx.getJSON(threadKey(id), &t); err != nil {
		if errors.Is(err, sentinal_errors.ErrNotFound) {
			return thread.Thread{}, errors.Wrapf(sentinal_errors.ErrNotFound, "thread %s", id)
		}
		return thread.Thread{}, err
	}
	return t, nil
}

func (r *pebbleThreadRepository) Update(tx *Tx, t thread.Thread) error {
	exists, err := tx.has(threadKey(t.ID))
	if err != nil {
		return err
	}
	if !exists {
		return errors.Wrapf(sentinal_errors.ErrNotFound, "thread %s", t.ID)
	}
	return tx.setJSON(threadKey(t.ID), t)
}

func (r *pebbleThreadRepository) List(tx *Tx) ([]thread.Thread, error) {
	iter, err := tx.iter([]byte(threadPrefix))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []thread.Thread
	for iter.First(); iter.Valid(); iter.Next() {
		var t thread.Thread
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, errors.Wrapf(err, "decode %s", iter.Key())
		}
		out = append(out, t)
	}
	return out, iter.Error()
}
