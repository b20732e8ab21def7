package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Envelope struct {
	ID            string          `json:"id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OriginDevice  string          `json:"origin_device"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// ThreadSnapshot carries the sync-relevant state of a thread as committed on
// the originating device.
type ThreadSnapshot struct {
	ThreadID    uuid.UUID  `json:"thread_id"`
	Changes     []string   `json:"changes"`
	Archived    bool       `json:"archived"`
	Unread      bool       `json:"unread"`
	MutedUntil  *time.Time `json:"muted_until,omitempty"`
	MentionMode string     `json:"mention_mode"`
}

func (s ThreadSnapshot) ChangeSet() ChangeSet {
	return ParseChangeSet(s.Changes)
}

// NewThreadEnvelope wraps a snapshot for publication.
func NewThreadEnvelope(id uuid.UUID, originDevice string, snapshot ThreadSnapshot, occurredAt time.Time) (Envelope, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:            id.String(),
		EventType:     EventTypeThreadStateSynced,
		AggregateType: AggregateTypeThread,
		AggregateID:   snapshot.ThreadID.String(),
		OriginDevice:  originDevice,
		OccurredAt:    occurredAt.UTC(),
		Payload:       payload,
	}, nil
}

// DecodeThreadSnapshot returns the snapshot carried by a thread envelope.
func (e Envelope) DecodeThreadSnapshot() (ThreadSnapshot, error) {
	var s ThreadSnapshot
	err := json.Unmarshal(e.Payload, &s)
	return s, err
}
