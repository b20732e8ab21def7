package services

import (
	"time"

	"sentinal-threads/internal/domain/interaction"
	"sentinal-threads/internal/repository"

	"github.com/google/uuid"
)

// InteractionService is the interaction storage layer. Each write is
// followed by the matching thread handler inside the same transaction.
type InteractionService struct {
	interactions repository.InteractionRepository
	threads      *ThreadService
	clock        func() time.Time
}

func NewInteractionService(interactions repository.InteractionRepository, threads *ThreadService) *InteractionService {
	return &InteractionService{interactions: interactions, threads: threads, clock: time.Now}
}

// Insert stores i, assigning an id, an ordering key and a creation time
// when they are missing.
func (s *InteractionService) Insert(tx *repository.Tx, i *interaction.Interaction) error {
	if _, err := s.threads.Get(tx, i.ThreadID); err != nil {
		return err
	}
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = s.clock()
	}
	if i.OrderingKey.IsZero() {
		key, err := s.interactions.NextOrderingKey(tx)
		if err != nil {
			return err
		}
		i.OrderingKey = key
	}
	if err := s.interactions.Insert(tx, *i); err != nil {
		return err
	}
	return s.threads.OnInteractionInserted(tx, *i)
}

func (s *InteractionService) Update(tx *repository.Tx, i interaction.Interaction) error {
	previous, err := s.interactions.GetByID(tx, i.ID)
	if err != nil {
		return err
	}
	if err := s.interactions.Update(tx, i); err != nil {
		return err
	}
	return s.threads.OnInteractionUpdated(tx, previous, i)
}

func (s *InteractionService) Remove(tx *repository.Tx, id uuid.UUID) error {
	i, err := s.interactions.GetByID(tx, id)
	if err != nil {
		return err
	}
	if err := s.interactions.Remove(tx, id); err != nil {
		return err
	}
	return s.threads.OnInteractionRemoved(tx, i)
}

func (s *InteractionService) RemoveAllForThread(tx *repository.Tx, threadID uuid.UUID) (int, error) {
	if _, err := s.threads.Get(tx, threadID); err != nil {
		return 0, err
	}
	n, err := s.interactions.RemoveAll(tx, threadID)
	if err != nil {
		return 0, err
	}
	return n, s.threads.OnAllInteractionsRemoved(tx, threadID)
}

func (s *InteractionService) Get(tx *repository.Tx, id uuid.UUID) (interaction.Interaction, error) {
	return s.interactions.GetByID(tx, id)
}

func (s *InteractionService) Count(tx *repository.Tx, threadID uuid.UUID) (int, error) {
	return s.interactions.Count(tx, threadID)
}

// LastInteractionForInbox returns the newest inbox-appearing interaction, or
// nil when the thread has none.
func (s *InteractionService) LastInteractionForInbox(tx *repository.Tx, threadID uuid.UUID) (*interaction.Interaction, error) {
	return s.interactions.MostRecentQualifying(tx, threadID, 0)
}

// FirstInteractionAtOrAround returns the interaction at key, else the
// closest one before it, else the thread's first.
func (s *InteractionService) FirstInteractionAtOrAround(tx *repository.Tx, threadID uuid.UUID, key interaction.OrderingKey) (*interaction.Interaction, error) {
	return s.interactions.FirstAtOrAround(tx, threadID, key)
}
