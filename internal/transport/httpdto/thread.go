package httpdto

import (
	"time"

	"sentinal-threads/internal/commands"
	"sentinal-threads/internal/domain/interaction"
	"sentinal-threads/internal/domain/thread"

	"github.com/google/uuid"
)

type CreateThreadRequest struct {
	ID        string `json:"id"`
	Type      string `json:"type" binding:"required"`
	Address   string `json:"address"`
	GroupID   string `json:"group_id"`
	ColorSeed string `json:"color_seed"`
}

// Kind builds the tagged thread kind; validation is left to the service.
func (r CreateThreadRequest) Kind() thread.Kind {
	return thread.Kind{
		Type:    thread.KindType(r.Type),
		Address: r.Address,
		GroupID: r.GroupID,
	}
}

type ThreadDTO struct {
	ID                 string     `json:"id"`
	Type               string     `json:"type"`
	Address            string     `json:"address,omitempty"`
	GroupID            string     `json:"group_id,omitempty"`
	Visible            bool       `json:"visible"`
	Archived           bool       `json:"archived"`
	Unread             bool       `json:"unread"`
	UnreadOverride     string     `json:"unread_override,omitempty"`
	LastInteractionKey uint64     `json:"last_interaction_key"`
	LastReadKey        uint64     `json:"last_read_key"`
	MutedUntil         *time.Time `json:"muted_until,omitempty"`
	Muted              bool       `json:"muted"`
	MentionMode        string     `json:"mention_mode"`
	ColorName          string     `json:"color_name"`
	HasDraft           bool       `json:"has_draft"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
}

func FromThread(t thread.Thread, now time.Time) ThreadDTO {
	return ThreadDTO{
		ID:                 t.ID.String(),
		Type:               string(t.Kind.Type),
		Address:            t.Kind.Address,
		GroupID:            t.Kind.GroupID,
		Visible:            t.Visible,
		Archived:           t.Archived,
		Unread:             t.IsUnread(),
		UnreadOverride:     string(t.UnreadOverride),
		LastInteractionKey: uint64(t.LastInteractionKey),
		LastReadKey:        uint64(t.LastReadKey),
		MutedUntil:         t.MutedUntil,
		Muted:              t.IsMuted(now),
		MentionMode:        string(t.MentionMode),
		ColorName:          string(t.ColorName),
		HasDraft:           t.Draft != nil,
		CreatedAt:          t.CreatedAt,
		DeletedAt:          t.DeletedAt,
	}
}

type ListThreadsResponse struct {
	Threads []ThreadDTO `json:"threads"`
	Total   int         `json:"total"`
}

type BulkArchiveRequest struct {
	ThreadIDs []string `json:"thread_ids" binding:"required"`
	Archive   bool     `json:"archive"`
}

type BulkArchiveResponse struct {
	Results []commands.BulkArchiveResult `json:"results"`
}

type DraftDTO struct {
	Body   string             `json:"body"`
	Ranges []thread.BodyRange `json:"ranges,omitempty"`
}

func FromDraft(d *thread.Draft) DraftDTO {
	if d == nil {
		return DraftDTO{}
	}
	return DraftDTO{Body: d.Body, Ranges: d.Ranges}
}

func (d DraftDTO) ToDraft() *thread.Draft {
	return &thread.Draft{Body: d.Body, Ranges: d.Ranges}
}

type MuteRequest struct {
	// MutedUntil nil unmutes the thread.
	MutedUntil *time.Time `json:"muted_until"`
}

type MentionModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type ColorRequest struct {
	Color string `json:"color" binding:"required"`
}

type DisappearingDTO struct {
	Enabled         bool   `json:"enabled"`
	DurationSeconds uint32 `json:"duration_seconds"`
}

type CreateInteractionRequest struct {
	Kind            string `json:"kind" binding:"required"`
	Body            string `json:"body"`
	OrderingKey     uint64 `json:"ordering_key"`
	HiddenFromInbox bool   `json:"hidden_from_inbox"`
}

func (r CreateInteractionRequest) ToInteraction(threadID uuid.UUID) interaction.Interaction {
	return interaction.Interaction{
		ThreadID:        threadID,
		OrderingKey:     interaction.OrderingKey(r.OrderingKey),
		Kind:            interaction.Kind(r.Kind),
		Body:            r.Body,
		HiddenFromInbox: r.HiddenFromInbox,
	}
}

type InteractionDTO struct {
	ID              string    `json:"id"`
	ThreadID        string    `json:"thread_id"`
	OrderingKey     uint64    `json:"ordering_key"`
	Kind            string    `json:"kind"`
	Body            string    `json:"body,omitempty"`
	HiddenFromInbox bool      `json:"hidden_from_inbox,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func FromInteraction(i interaction.Interaction) InteractionDTO {
	return InteractionDTO{
		ID:              i.ID.String(),
		ThreadID:        i.ThreadID.String(),
		OrderingKey:     uint64(i.OrderingKey),
		Kind:            string(i.Kind),
		Body:            i.Body,
		HiddenFromInbox: i.HiddenFromInbox,
		CreatedAt:       i.CreatedAt,
	}
}
