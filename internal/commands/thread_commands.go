package commands

import (
	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	TypeThreadAction      = "thread.action"
	TypeThreadBulkArchive = "thread.bulk_archive"

	MaxBulkArchive = 100
)

// ThreadAction names a user action on a thread's read/visibility state.
type ThreadAction string

const (
	ActionArchive          ThreadAction = "archive"
	ActionUnarchive        ThreadAction = "unarchive"
	ActionUnarchiveVisible ThreadAction = "unarchive-visible"
	ActionMarkRead         ThreadAction = "read"
	ActionMarkUnread       ThreadAction = "unread"
	ActionClearUnread      ThreadAction = "clear-unread"
	ActionSoftDelete       ThreadAction = "delete"
)

func (a ThreadAction) Valid() bool {
	switch a {
	case ActionArchive, ActionUnarchive, ActionUnarchiveVisible,
		ActionMarkRead, ActionMarkUnread, ActionClearUnread, ActionSoftDelete:
		return true
	}
	return false
}

type ThreadActionCommand struct {
	ThreadID      uuid.UUID
	Action        ThreadAction
	PropagateSync bool
}

func (ThreadActionCommand) CommandType() string {
	return TypeThreadAction
}

func (c ThreadActionCommand) Validate() error {
	if c.ThreadID == uuid.Nil {
		return errors.Wrap(sentinal_errors.ErrInvalidInput, "thread_id is required")
	}
	if !c.Action.Valid() {
		return errors.Wrapf(sentinal_errors.ErrInvalidInput, "unknown action %q", c.Action)
	}
	return nil
}

func (c ThreadActionCommand) IdempotencyKey() string {
	return ""
}

// BulkArchiveResult represents the result for one thread
type BulkArchiveResult struct {
	ThreadID uuid.UUID `json:"thread_id"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
}

// BulkArchiveCommand archives or unarchives several threads in one transaction.
type BulkArchiveCommand struct {
	ThreadIDs     []uuid.UUID
	Archive       bool
	PropagateSync bool
}

func (BulkArchiveCommand) CommandType() string {
	return TypeThreadBulkArchive
}

func (c BulkArchiveCommand) Validate() error {
	if len(c.ThreadIDs) == 0 {
		return errors.Wrap(sentinal_errors.ErrInvalidInput, "at least one thread_id is required")
	}
	if len(c.ThreadIDs) > MaxBulkArchive {
		return errors.Wrapf(sentinal_errors.ErrInvalidInput, "cannot archive more than %d threads at once", MaxBulkArchive)
	}
	for _, id := range c.ThreadIDs {
		if id == uuid.Nil {
			return errors.Wrap(sentinal_errors.ErrInvalidInput, "thread_id is required")
		}
	}
	return nil
}

func (c BulkArchiveCommand) IdempotencyKey() string {
	return ""
}
