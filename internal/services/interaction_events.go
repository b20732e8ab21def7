package services

import (
	"sentinal-threads/internal/domain/interaction"
	"sentinal-threads/internal/domain/thread"
	"sentinal-threads/internal/repository"
	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// The handlers below are called by the interaction storage layer in the same
// transaction as the interaction write, after the write.

// OnInteractionInserted advances the last interaction pointer and clears any
// manual read flag. Inbox-appearing content also surfaces the thread.
func (s *ThreadService) OnInteractionInserted(tx *repository.Tx, i interaction.Interaction) error {
	qualifies := s.interactions.IsInboxAppearing(i)
	err := s.update(tx, i.ThreadID, func(t *thread.Thread) error {
		if qualifies && i.OrderingKey.After(t.LastInteractionKey) {
			t.LastInteractionKey = i.OrderingKey
		}
		t.UnreadOverride = thread.OverrideUnset
		if qualifies {
			resurface(t)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Logger.Debug("interaction_inserted",
		zap.String("thread_id", i.ThreadID.String()),
		zap.Uint64("ordering_key", uint64(i.OrderingKey)),
		zap.Bool("inbox", qualifies),
	)
	return nil
}

// OnInteractionUpdated re-derives the pointer only when the update changed
// whether the interaction appears in the inbox.
func (s *ThreadService) OnInteractionUpdated(tx *repository.Tx, previous, updated interaction.Interaction) error {
	if previous.ID != updated.ID || previous.ThreadID != updated.ThreadID || previous.OrderingKey != updated.OrderingKey {
		return errors.Wrap(sentinal_errors.ErrInvalidInput, "interaction identity changed")
	}
	was := s.interactions.IsInboxAppearing(previous)
	is := s.interactions.IsInboxAppearing(updated)

	t, err := s.threads.GetByID(tx, updated.ThreadID)
	if err != nil {
		return err
	}
	if was == is {
		return nil
	}

	key := updated.OrderingKey
	switch {
	case is && key.After(t.LastInteractionKey):
		t.LastInteractionKey = key
		resurface(&t)
	case !is && key == t.LastInteractionKey:
		last, err := s.mostRecentQualifying(tx, updated.ThreadID, key+1)
		if err != nil {
			return err
		}
		t.LastInteractionKey = last
	default:
		return nil
	}
	return s.threads.Update(tx, t)
}

// OnInteractionRemoved moves the pointer back to the newest surviving
// inbox-appearing interaction when the referenced one goes away.
func (s *ThreadService) OnInteractionRemoved(tx *repository.Tx, i interaction.Interaction) error {
	t, err := s.threads.GetByID(tx, i.ThreadID)
	if err != nil {
		return err
	}
	if t.LastInteractionKey.IsZero() || i.OrderingKey != t.LastInteractionKey {
		return nil
	}
	last, err := s.mostRecentQualifying(tx, i.ThreadID, i.OrderingKey)
	if err != nil {
		return err
	}
	t.LastInteractionKey = last
	return s.threads.Update(tx, t)
}

// OnAllInteractionsRemoved clears the pointer after a bulk removal.
func (s *ThreadService) OnAllInteractionsRemoved(tx *repository.Tx, threadID uuid.UUID) error {
	return s.update(tx, threadID, func(t *thread.Thread) error {
		t.LastInteractionKey = 0
		return nil
	})
}

func (s *ThreadService) mostRecentQualifying(tx *repository.Tx, threadID uuid.UUID, before interaction.OrderingKey) (interaction.OrderingKey, error) {
	prev, err := s.interactions.MostRecentQualifying(tx, threadID, before)
	if err != nil {
		return 0, errors.Wrap(err, "most recent interaction")
	}
	if prev == nil {
		return 0, nil
	}
	return prev.OrderingKey, nil
}

// resurface undoes a soft delete once inbox-appearing content shows up.
func resurface(t *thread.Thread) {
	t.Visible = true
	t.DeletedAt = nil
}
