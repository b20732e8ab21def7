package thread

import (
	"time"

	"sentinal-threads/internal/domain/interaction"
	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/google/uuid"
)

type KindType string

const (
	KindContact KindType = "CONTACT"
	KindGroup   KindType = "GROUP"
)

// Kind is the tagged variant distinguishing one-to-one threads from group
// threads. Only the recipient data differs; all cached state is shared.
type Kind struct {
	Type    KindType `json:"type"`
	Address string   `json:"address,omitempty"`
	GroupID string   `json:"group_id,omitempty"`
}

func ContactKind(address string) Kind {
	return Kind{Type: KindContact, Address: address}
}

func GroupKind(groupID string) Kind {
	return Kind{Type: KindGroup, GroupID: groupID}
}

func (k Kind) IsGroup() bool {
	return k.Type == KindGroup
}

func (k Kind) Validate() error {
	switch k.Type {
	case KindContact:
		if k.Address == "" || k.GroupID != "" {
			return sentinal_errors.ErrInvalidInput
		}
	case KindGroup:
		if k.GroupID == "" || k.Address != "" {
			return sentinal_errors.ErrInvalidInput
		}
	default:
		return sentinal_errors.ErrInvalidInput
	}
	return nil
}

// UnreadOverride is a manual read flag layered over the read marker.
type UnreadOverride string

const (
	OverrideUnset        UnreadOverride = ""
	OverrideForcedUnread UnreadOverride = "FORCED_UNREAD"
	OverrideForcedRead   UnreadOverride = "FORCED_READ"
)

type MentionNotificationMode string

const (
	MentionModeDefault MentionNotificationMode = "DEFAULT"
	MentionModeAlways  MentionNotificationMode = "ALWAYS"
	MentionModeNever   MentionNotificationMode = "NEVER"
)

func (m MentionNotificationMode) Valid() bool {
	switch m {
	case MentionModeDefault, MentionModeAlways, MentionModeNever:
		return true
	}
	return false
}

// Thread is the persisted conversation record with its cached summary state.
type Thread struct {
	ID        uuid.UUID  `json:"id"`
	Kind      Kind       `json:"kind"`
	CreatedAt *time.Time `json:"created_at,omitempty"`

	Visible        bool           `json:"visible"`
	Archived       bool           `json:"archived"`
	UnreadOverride UnreadOverride `json:"unread_override,omitempty"`

	// LastInteractionKey points at the most recent inbox-appearing
	// interaction that still exists; zero when there is none.
	LastInteractionKey interaction.OrderingKey `json:"last_interaction_key,omitempty"`
	LastReadKey        interaction.OrderingKey `json:"last_read_key,omitempty"`

	MutedUntil  *time.Time              `json:"muted_until,omitempty"`
	MentionMode MentionNotificationMode `json:"mention_mode"`
	Draft       *Draft                  `json:"draft,omitempty"`
	ColorName   ColorName               `json:"color_name"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsUnread combines the manual override with the read marker.
func (t Thread) IsUnread() bool {
	switch t.UnreadOverride {
	case OverrideForcedUnread:
		return true
	case OverrideForcedRead:
		return false
	}
	return t.LastInteractionKey.After(t.LastReadKey)
}

// IsMuted is derived, a past MutedUntil is kept but means unmuted.
func (t Thread) IsMuted(now time.Time) bool {
	return t.MutedUntil != nil && now.Before(*t.MutedUntil)
}

func (t Thread) IsSoftDeleted() bool {
	return t.DeletedAt != nil
}

func (t Thread) HasInteractions() bool {
	return !t.LastInteractionKey.IsZero()
}

// Appearance is what the inbox listing needs to place a thread.
type Appearance struct {
	Visible  bool `json:"visible"`
	Archived bool `json:"archived"`
	Unread   bool `json:"unread"`
}

func (t Thread) Appearance() Appearance {
	return Appearance{
		Visible:  t.Visible,
		Archived: t.Archived,
		Unread:   t.IsUnread(),
	}
}

// RemoteState is sync-relevant state committed on another device of the
// account. Nil fields were not part of the change and are left alone.
type RemoteState struct {
	Archived    *bool
	Unread      *bool
	MuteChanged bool
	MutedUntil  *time.Time
	MentionMode *MentionNotificationMode
}

func (r RemoteState) IsEmpty() bool {
	return r.Archived == nil && r.Unread == nil && !r.MuteChanged && r.MentionMode == nil
}
