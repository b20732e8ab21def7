package interaction

import (
	"time"

	"github.com/google/uuid"
)

// OrderingKey totally orders the interactions of the store independent of
// wall-clock time. Zero means "absent".
type OrderingKey uint64

func (k OrderingKey) IsZero() bool {
	return k == 0
}

func (k OrderingKey) After(other OrderingKey) bool {
	return k > other
}

type Kind string

const (
	KindIncomingMessage          Kind = "INCOMING_MESSAGE"
	KindOutgoingMessage          Kind = "OUTGOING_MESSAGE"
	KindCall                     Kind = "CALL"
	KindErrorMessage             Kind = "ERROR_MESSAGE"
	KindInfoMessage              Kind = "INFO_MESSAGE"
	KindTypingIndicator          Kind = "TYPING_INDICATOR"
	KindThreadDetailsPlaceholder Kind = "THREAD_DETAILS_PLACEHOLDER"
)

func (k Kind) Valid() bool {
	switch k {
	case KindIncomingMessage, KindOutgoingMessage, KindCall, KindErrorMessage,
		KindInfoMessage, KindTypingIndicator, KindThreadDetailsPlaceholder:
		return true
	}
	return false
}

// Interaction is a message, call or system event belonging to exactly one
// thread. Its content is owned by the interaction layer; the thread only
// caches its ordering key.
type Interaction struct {
	ID          uuid.UUID   `json:"id"`
	ThreadID    uuid.UUID   `json:"thread_id"`
	OrderingKey OrderingKey `json:"ordering_key"`
	Kind        Kind        `json:"kind"`
	Body        string      `json:"body,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`

	// HiddenFromInbox overrides the kind based classification, e.g. for
	// messages that were remotely deleted or are still pending a request.
	HiddenFromInbox bool `json:"hidden_from_inbox,omitempty"`
}
