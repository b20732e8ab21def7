package services

import (
	"context"
	"slices"
	"time"

	"sentinal-threads/internal/commands"
	"sentinal-threads/internal/domain/disappearing"
	"sentinal-threads/internal/domain/thread"
	"sentinal-threads/internal/events"
	"sentinal-threads/internal/metrics"
	"sentinal-threads/internal/repository"
	"sentinal-threads/internal/threadsync"
	sentinal_errors "sentinal-threads/pkg/errors"
	"sentinal-threads/pkg/logger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ThreadService owns the cached summary state of threads. Every method runs
// inside the caller's transaction; reads and validation happen before any
// write so a failed call leaves the thread untouched.
type ThreadService struct {
	store        *repository.Store
	threads      repository.ThreadRepository
	interactions repository.InteractionRepository
	disappearing repository.DisappearingRepository
	gate         *threadsync.Gate
	log          *logger.Logger
	metrics      *metrics.Metrics
	clock        func() time.Time

	rejectDraftsOnDeleted bool
}

func NewThreadService(
	store *repository.Store,
	threads repository.ThreadRepository,
	interactions repository.InteractionRepository,
	disappearingRepo repository.DisappearingRepository,
	gate *threadsync.Gate,
	l *logger.Logger,
	m *metrics.Metrics,
) *ThreadService {
	if l == nil {
		l = logger.GetGlobalLogger()
	}
	return &ThreadService{
		store:                 store,
		threads:               threads,
		interactions:          interactions,
		disappearing:          disappearingRepo,
		gate:                  gate,
		log:                   l,
		metrics:               m,
		clock:                 time.Now,
		rejectDraftsOnDeleted: true,
	}
}

func (s *ThreadService) WithClock(clock func() time.Time) *ThreadService {
	s.clock = clock
	return s
}

// WithDraftPolicy controls whether drafts may be set on soft-deleted threads.
func (s *ThreadService) WithDraftPolicy(rejectOnDeleted bool) *ThreadService {
	s.rejectDraftsOnDeleted = rejectOnDeleted
	return s
}

func (s *ThreadService) RegisterHandlers(bus *commands.Bus) {
	if bus == nil {
		return
	}
	bus.Register(commands.TypeThreadAction, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.ThreadActionCommand)
		if !ok {
			return commands.Result{}, sentinal_errors.ErrInvalidInput
		}
		var appearance thread.Appearance
		err := s.store.Write(ctx, func(tx *repository.Tx) error {
			if err := s.ApplyAction(tx, c.ThreadID, c.Action, c.PropagateSync); err != nil {
				return err
			}
			var err error
			appearance, err = s.InboxAppearance(tx, c.ThreadID)
			return err
		})
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{AggregateID: c.ThreadID.String(), Payload: appearance}, nil
	}))
	bus.Register(commands.TypeThreadBulkArchive, commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		c, ok := cmd.(commands.BulkArchiveCommand)
		if !ok {
			return commands.Result{}, sentinal_errors.ErrInvalidInput
		}
		results, err := s.BulkArchive(ctx, c)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Payload: results}, nil
	}))
}

// ApplyAction dispatches a named user action.
func (s *ThreadService) ApplyAction(tx *repository.Tx, id uuid.UUID, action commands.ThreadAction, propagateSync bool) error {
	switch action {
	case commands.ActionArchive:
		return s.Archive(tx, id, propagateSync)
	case commands.ActionUnarchive:
		return s.Unarchive(tx, id, propagateSync)
	case commands.ActionUnarchiveVisible:
		return s.UnarchiveAndMarkVisible(tx, id, propagateSync)
	case commands.ActionMarkRead:
		return s.MarkAllRead(tx, id, propagateSync)
	case commands.ActionMarkUnread:
		return s.MarkUnread(tx, id, propagateSync)
	case commands.ActionClearUnread:
		return s.ClearUnreadOverride(tx, id, propagateSync)
	case commands.ActionSoftDelete:
		return s.SoftDelete(tx, id)
	}
	return errors.Wrapf(sentinal_errors.ErrInvalidInput, "unknown action %q", action)
}

// BulkArchive applies every archive change in one transaction. Missing
// threads are reported per item; any other failure aborts the batch.
func (s *ThreadService) BulkArchive(ctx context.Context, cmd commands.BulkArchiveCommand) ([]commands.BulkArchiveResult, error) {
	var results []commands.BulkArchiveResult
	err := s.store.Write(ctx, func(tx *repository.Tx) error {
		results = make([]commands.BulkArchiveResult, 0, len(cmd.ThreadIDs))
		for _, id := range cmd.ThreadIDs {
			var err error
			if cmd.Archive {
				err = s.Archive(tx, id, cmd.PropagateSync)
			} else {
				err = s.Unarchive(tx, id, cmd.PropagateSync)
			}
			switch {
			case err == nil:
				results = append(results, commands.BulkArchiveResult{ThreadID: id, Success: true})
			case errors.Is(err, sentinal_errors.ErrNotFound):
				results = append(results, commands.BulkArchiveResult{ThreadID: id, Error: err.Error()})
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

type CreateParams struct {
	ID   uuid.UUID
	Kind thread.Kind
	// ColorSeed picks the palette color; defaults to the thread id.
	ColorSeed string
}

func (s *ThreadService) Create(tx *repository.Tx, p CreateParams) (thread.Thread, error) {
	if err := p.Kind.Validate(); err != nil {
		return thread.Thread{}, err
	}
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	seed := p.ColorSeed
	if seed == "" {
		seed = id.String()
	}
	now := s.clock()
	t := thread.Thread{
		ID:          id,
		Kind:        p.Kind,
		CreatedAt:   &now,
		MentionMode: thread.MentionModeDefault,
		ColorName:   thread.StableColorName(seed),
	}
	if err := s.threads.Create(tx, &t); err != nil {
		return thread.Thread{}, err
	}
	s.transition("create", id)
	return t, nil
}

func (s *ThreadService) Get(tx *repository.Tx, id uuid.UUID) (thread.Thread, error) {
	return s.threads.GetByID(tx, id)
}

func (s *ThreadService) InboxAppearance(tx *repository.Tx, id uuid.UUID) (thread.Appearance, error) {
	t, err := s.threads.GetByID(tx, id)
	if err != nil {
		return thread.Appearance{}, err
	}
	return t.Appearance(), nil
}

// ListInbox returns the visible threads in the inbox or the archive, most
// recent interaction first.
func (s *ThreadService) ListInbox(tx *repository.Tx, archived bool) ([]thread.Thread, error) {
	all, err := s.threads.List(tx)
	if err != nil {
		return nil, err
	}
	out := make([]thread.Thread, 0, len(all))
	for _, t := range all {
		if t.Visible && t.Archived == archived {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b thread.Thread) int {
		switch {
		case a.LastInteractionKey.After(b.LastInteractionKey):
			return -1
		case b.LastInteractionKey.After(a.LastInteractionKey):
			return 1
		}
		return 0
	})
	return out, nil
}

// update loads the thread, lets fn change it and stores it. fn returning an
// error leaves storage untouched.
func (s *ThreadService) update(tx *repository.Tx, id uuid.UUID, fn func(t *thread.Thread) error) error {
	t, err := s.threads.GetByID(tx, id)
	if err != nil {
		return err
	}
	if err := fn(&t); err != nil {
		return err
	}
	return s.threads.Update(tx, t)
}

func (s *ThreadService) requestSync(tx *repository.Tx, id uuid.UUID, kind events.ChangeKind, propagate bool) {
	if !propagate {
		return
	}
	s.gate.RequestSync(tx, id, kind)
}

func (s *ThreadService) transition(op string, id uuid.UUID) {
	s.metrics.Transition(op)
	s.log.Logger.Debug("thread_transition", zap.String("op", op), zap.String("thread_id", id.String()))
}

// MarkAllRead clears the manual override and moves the read marker to the
// last interaction.
func (s *ThreadService) MarkAllRead(tx *repository.Tx, id uuid.UUID, propagateSync bool) error {
	err := s.update(tx, id, func(t *thread.Thread) error {
		t.UnreadOverride = thread.OverrideUnset
		t.LastReadKey = t.LastInteractionKey
		return nil
	})
	if err != nil {
		return err
	}
	s.requestSync(tx, id, events.ChangeReadState, propagateSync)
	s.transition("mark_read", id)
	return nil
}

func (s *ThreadService) MarkUnread(tx *repository.Tx, id uuid.UUID, propagateSync bool) error {
	err := s.update(tx, id, func(t *thread.Thread) error {
		t.UnreadOverride = thread.OverrideForcedUnread
		return nil
	})
	if err != nil {
		return err
	}
	s.requestSync(tx, id, events.ChangeReadState, propagateSync)
	s.transition("mark_unread", id)
	return nil
}

// ClearUnreadOverride reverts to marker derived unread status.
func (s *ThreadService) ClearUnreadOverride(tx *repository.Tx, id uuid.UUID, propagateSync bool) error {
	err := s.update(tx, id, func(t *thread.Thread) error {
		t.UnreadOverride = thread.OverrideUnset
		return nil
	})
	if err != nil {
		return err
	}
	s.requestSync(tx, id, events.ChangeReadState, propagateSync)
	s.transition("clear_unread", id)
	return nil
}

// Archive leaves visibility and read state alone.
func (s *ThreadService) Archive(tx *repository.Tx, id uuid.UUID, propagateSync bool) error {
	return s.setArchived(tx, id, true, false, propagateSync, "archive")
}

func (s *ThreadService) Unarchive(tx *repository.Tx, id uuid.UUID, propagateSync bool) error {
	return s.setArchived(tx, id, false, false, propagateSync, "unarchive")
}

// UnarchiveAndMarkVisible resurfaces a thread that had been hidden.
func (s *ThreadService) UnarchiveAndMarkVisible(tx *repository.Tx, id uuid.UUID, propagateSync bool) error {
	return s.setArchived(tx, id, false, true, propagateSync, "unarchive_visible")
}

func (s *ThreadService) setArchived(tx *repository.Tx, id uuid.UUID, archived, markVisible, propagateSync bool, op string) error {
	err := s.update(tx, id, func(t *thread.Thread) error {
		t.Archived = archived
		if markVisible {
			t.Visible = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.requestSync(tx, id, events.ChangeArchive, propagateSync)
	if markVisible {
		s.requestSync(tx, id, events.ChangeVisibility, propagateSync)
	}
	s.transition(op, id)
	return nil
}

// SoftDelete removes every interaction of the thread and hides it. The
// record itself, and its archived flag, remain.
func (s *ThreadService) SoftDelete(tx *repository.Tx, id uuid.UUID) error {
	t, err := s.threads.GetByID(tx, id)
	if err != nil {
		return err
	}
	removed, err := s.interactions.RemoveAll(tx, id)
	if err != nil {
		return errors.Wrap(err, "remove interactions")
	}
	now := s.clock()
	t.Visible = false
	t.LastInteractionKey = 0
	t.Draft = nil
	t.DeletedAt = &now
	if err := s.threads.Update(tx, t); err != nil {
		return err
	}
	s.metrics.Transition("soft_delete")
	s.log.Logger.Debug("thread_soft_deleted", zap.String("thread_id", id.String()), zap.Int("removed", removed))
	return nil
}

// Draft returns a copy of the stored draft, nil when there is none.
func (s *ThreadService) Draft(tx *repository.Tx, id uuid.UUID) (*thread.Draft, error) {
	t, err := s.threads.GetByID(tx, id)
	if err != nil {
		return nil, err
	}
	if t.Draft == nil {
		return nil, nil
	}
	return t.Draft.Normalize()
}

// SetDraft replaces the draft; an empty or nil draft clears it.
func (s *ThreadService) SetDraft(tx *repository.Tx, id uuid.UUID, d *thread.Draft) error {
	err := s.update(tx, id, func(t *thread.Thread) error {
		normalized, err := d.Normalize()
		if err != nil {
			return err
		}
		if normalized != nil && t.IsSoftDeleted() && s.rejectDraftsOnDeleted {
			return errors.Wrap(sentinal_errors.ErrInvalidState, "thread is deleted")
		}
		t.Draft = normalized
		return nil
	})
	if err != nil {
		return err
	}
	s.requestSync(tx, id, events.ChangeDraft, true)
	s.transition("set_draft", id)
	return nil
}

// SetMutedUntil stores until as given; a past value means unmuted.
func (s *ThreadService) SetMutedUntil(tx *repository.Tx, id uuid.UUID, until *time.Time, propagateSync bool) error {
	err := s.update(tx, id, func(t *thread.Thread) error {
		if until == nil {
			t.MutedUntil = nil
			return nil
		}
		u := *until
		t.MutedUntil = &u
		return nil
	})
	if err != nil {
		return err
	}
	s.requestSync(tx, id, events.ChangeMute, propagateSync)
	s.transition("set_muted_until", id)
	return nil
}

func (s *ThreadService) IsMuted(tx *repository.Tx, id uuid.UUID) (bool, error) {
	t, err := s.threads.GetByID(tx, id)
	if err != nil {
		return false, err
	}
	return t.IsMuted(s.clock()), nil
}

func (s *ThreadService) SetMentionMode(tx *repository.Tx, id uuid.UUID, mode thread.MentionNotificationMode, propagateSync bool) error {
	err := s.update(tx, id, func(t *thread.Thread) error {
		if !mode.Valid() {
			return errors.Wrapf(sentinal_errors.ErrInvalidInput, "mention mode %q", mode)
		}
		t.MentionMode = mode
		return nil
	})
	if err != nil {
		return err
	}
	s.requestSync(tx, id, events.ChangeMentionMode, propagateSync)
	s.transition("set_mention_mode", id)
	return nil
}

// UpdateColorName is local to this device.
func (s *ThreadService) UpdateColorName(tx *repository.Tx, id uuid.UUID, color thread.ColorName) error {
	err := s.update(tx, id, func(t *thread.Thread) error {
		if !color.Valid() {
			return errors.Wrapf(sentinal_errors.ErrInvalidInput, "color %q", color)
		}
		t.ColorName = color
		return nil
	})
	if err != nil {
		return err
	}
	s.requestSync(tx, id, events.ChangeColor, true)
	s.transition("update_color", id)
	return nil
}

func (s *ThreadService) DisappearingConfiguration(tx *repository.Tx, id uuid.UUID) (disappearing.Configuration, error) {
	if _, err := s.threads.GetByID(tx, id); err != nil {
		return disappearing.Configuration{}, err
	}
	return s.disappearing.Get(tx, id)
}

// DisappearingDuration is zero when disappearing messages are off.
func (s *ThreadService) DisappearingDuration(tx *repository.Tx, id uuid.UUID) (uint32, error) {
	c, err := s.DisappearingConfiguration(tx, id)
	if err != nil {
		return 0, err
	}
	return c.EffectiveDuration(), nil
}

// ApplyRemoteState applies state committed on another device. It never
// requests sync, so remote changes do not echo back.
func (s *ThreadService) ApplyRemoteState(tx *repository.Tx, id uuid.UUID, state thread.RemoteState) error {
	err := s.update(tx, id, func(t *thread.Thread) error {
		if state.Archived != nil {
			t.Archived = *state.Archived
		}
		if state.Unread != nil {
			if *state.Unread {
				t.UnreadOverride = thread.OverrideForcedUnread
			} else {
				t.UnreadOverride = thread.OverrideForcedRead
			}
		}
		if state.MuteChanged {
			t.MutedUntil = state.MutedUntil
		}
		if state.MentionMode != nil {
			if !state.MentionMode.Valid() {
				return errors.Wrapf(sentinal_errors.ErrInvalidInput, "mention mode %q", *state.MentionMode)
			}
			t.MentionMode = *state.MentionMode
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.transition("apply_remote", id)
	return nil
}
