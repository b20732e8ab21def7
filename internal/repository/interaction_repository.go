package repository

import (
	"strconv"

	"sentinal-threads/internal/domain/interaction"
	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type pebbleInteractionRepository struct {
	classifier interaction.Classifier
}

func NewInteractionRepository(classifier interaction.Classifier) InteractionRepository {
	if classifier == nil {
		classifier = interaction.DefaultClassifier{}
	}
	return &pebbleInteractionRepository{classifier: classifier}
}

func (r *pebbleInteractionRepository) IsInboxAppearing(i interaction.Interaction) bool {
	return r.classifier.IsInboxAppearing(i)
}

func (r *pebbleInteractionRepository) lastOrderingKey(tx *Tx) (interaction.OrderingKey, error) {
	raw, err := tx.get([]byte(orderingSequenceKey))
	if err != nil {
		if errors.Is(err, sentinal_errors.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "decode ordering sequence")
	}
	return interaction.OrderingKey(v), nil
}

func (r *pebbleInteractionRepository) NextOrderingKey(tx *Tx) (interaction.OrderingKey, error) {
	last, err := r.lastOrderingKey(tx)
	if err != nil {
		return 0, err
	}
	next := last + 1
	if err := tx.set([]byte(orderingSequenceKey), []byte(strconv.FormatUint(uint64(next), 10))); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *pebbleInteractionRepository) Insert(tx *Tx, i interaction.Interaction) error {
	if i.ID == uuid.Nil || i.ThreadID == uuid.Nil || i.OrderingKey.IsZero() || !i.Kind.Valid() {
		return sentinal_errors.ErrInvalidInput
	}
	exists, err := tx.has(interactionKey(i.ID))
	if err != nil {
		return err
	}
	if exists {
		return sentinal_errors.ErrAlreadyExists
	}
	ixKey := orderedKey(threadIndexPrefixFor(i.ThreadID), i.OrderingKey)
	taken, err := tx.has(ixKey)
	if err != nil {
		return err
	}
	if taken {
		return errors.Wrapf(sentinal_errors.ErrAlreadyExists, "ordering key %d", i.OrderingKey)
	}

	// Keep the sequence ahead of externally assigned keys.
	last, err := r.lastOrderingKey(tx)
	if err != nil {
		return err
	}
	if i.OrderingKey.After(last) {
		if err := tx.set([]byte(orderingSequenceKey), []byte(strconv.FormatUint(uint64(i.OrderingKey), 10))); err != nil {
			return err
		}
	}

	if err := tx.setJSON(interactionKey(i.ID), i); err != nil {
		return err
	}
	if err := tx.set(ixKey, []byte(i.ID.String())); err != nil {
		return err
	}
	if r.IsInboxAppearing(i) {
		return tx.set(orderedKey(threadInboxPrefixFor(i.ThreadID), i.OrderingKey), []byte(i.ID.String()))
	}
	return nil
}

func (r *pebbleInteractionRepository) Update(tx *Tx, i interaction.Interaction) error {
	previous, err := r.GetByID(tx, i.ID)
	if err != nil {
		return err
	}
	if previous.ThreadID != i.ThreadID || previous.OrderingKey != i.OrderingKey || !i.Kind.Valid() {
		return sentinal_errors.ErrInvalidInput
	}
	if err := tx.setJSON(interactionKey(i.ID), i); err != nil {
		return err
	}
	inboxKey := orderedKey(threadInboxPrefixFor(i.ThreadID), i.OrderingKey)
	if r.IsInboxAppearing(i) {
		return tx.set(inboxKey, []byte(i.ID.String()))
	}
	return tx.delete(inboxKey)
}

func (r *pebbleInteractionRepository) Remove(tx *Tx, id uuid.UUID) error {
	i, err := r.GetByID(tx, id)
	if err != nil {
		return err
	}
	return r.removeKeys(tx, i.ThreadID, i.OrderingKey, id)
}

func (r *pebbleInteractionRepository) removeKeys(tx *Tx, threadID uuid.UUID, key interaction.OrderingKey, id uuid.UUID) error {
	if err := tx.delete(interactionKey(id)); err != nil {
		return err
	}
	if err := tx.delete(orderedKey(threadIndexPrefixFor(threadID), key)); err != nil {
		return err
	}
	return tx.delete(orderedKey(threadInboxPrefixFor(threadID), key))
}

func (r *pebbleInteractionRepository) GetByID(tx *Tx, id uuid.UUID) (interaction.Interaction, error) {
	var i interaction.Interaction
	if err := tx.getJSON(interactionKey(id), &i); err != nil {
		if errors.Is(err, sentinal_errors.ErrNotFound) {
			return interaction.Interaction{}, errors.Wrapf(sentinal_errors.ErrNotFound, "interaction %s", id)
		}
		return interaction.Interaction{}, err
	}
	return i, nil
}

func (r *pebbleInteractionRepository) MostRecentQualifying(tx *Tx, threadID uuid.UUID, before interaction.OrderingKey) (*interaction.Interaction, error) {
	prefix := threadInboxPrefixFor(threadID)
	iter, err := tx.iter(prefix)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ok bool
	if before.IsZero() {
		ok = iter.Last()
	} else {
		ok = iter.SeekLT(orderedKey(prefix, before))
	}
	return r.loadAt(tx, iter, ok)
}

func (r *pebbleInteractionRepository) FirstAtOrAround(tx *Tx, threadID uuid.UUID, key interaction.OrderingKey) (*interaction.Interaction, error) {
	prefix := threadIndexPrefixFor(threadID)
	iter, err := tx.iter(prefix)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	ok := iter.SeekLT(orderedKey(prefix, key+1))
	if !ok {
		ok = iter.First()
	}
	return r.loadAt(tx, iter, ok)
}

func (r *pebbleInteractionRepository) loadAt(tx *Tx, iter *pebble.Iterator, ok bool) (*interaction.Interaction, error) {
	if !ok {
		return nil, iter.Error()
	}
	id, err := uuid.ParseBytes(iter.Value())
	if err != nil {
		return nil, errors.Wrapf(err, "decode index %s", iter.Key())
	}
	i, err := r.GetByID(tx, id)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *pebbleInteractionRepository) RemoveAll(tx *Tx, threadID uuid.UUID) (int, error) {
	prefix := threadIndexPrefixFor(threadID)
	iter, err := tx.iter(prefix)
	if err != nil {
		return 0, err
	}

	type entry struct {
		id  uuid.UUID
		key interaction.OrderingKey
	}
	var entries []entry
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := uuid.ParseBytes(iter.Value())
		if err != nil {
			_ = iter.Close()
			return 0, errors.Wrapf(err, "decode index %s", iter.Key())
		}
		key, err := strconv.ParseUint(string(iter.Key()[len(prefix):]), 10, 64)
		if err != nil {
			_ = iter.Close()
			return 0, errors.Wrapf(err, "decode index %s", iter.Key())
		}
		entries = append(entries, entry{id: id, key: interaction.OrderingKey(key)})
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	for _, e := range entries {
		if err := r.removeKeys(tx, threadID, e.key, e.id); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}

func (r *pebbleInteractionRepository) Count(tx *Tx, threadID uuid.UUID) (int, error) {
	iter, err := tx.iter(threadIndexPrefixFor(threadID))
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}
