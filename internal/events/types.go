package events

import "strings"

// Thread events
const (
	EventTypeThreadStateSynced = "thread.state_synced"
)

// Aggregate type constants
const (
	AggregateTypeThread = "thread"
)

// Redis channel prefixes
const (
	ChannelPrefixSync   = "channel:sync:"
	ChannelSystemOutbox = "channel:system:outbox"
)

// ChangeKind identifies which part of a thread's state a mutation touched.
type ChangeKind uint32

const (
	ChangeArchive ChangeKind = 1 << iota
	ChangeReadState
	ChangeMute
	ChangeMentionMode
	ChangeColor
	ChangeDraft
	ChangeVisibility
)

// syncRelevant are the kinds mirrored to other devices on the account.
const syncRelevant = ChangeArchive | ChangeReadState | ChangeMute | ChangeMentionMode

var changeNames = []struct {
	kind ChangeKind
	name string
}{
	{ChangeArchive, "archive"},
	{ChangeReadState, "read_state"},
	{ChangeMute, "mute"},
	{ChangeMentionMode, "mention_mode"},
	{ChangeColor, "color"},
	{ChangeDraft, "draft"},
	{ChangeVisibility, "visibility"},
}

// IsSyncRelevant reports whether every bit of k is a sync-relevant kind.
func (k ChangeKind) IsSyncRelevant() bool {
	return k != 0 && k&^syncRelevant == 0
}

func (k ChangeKind) String() string {
	for _, c := range changeNames {
		if c.kind == k {
			return c.name
		}
	}
	return "unknown"
}

// ChangeSet is a bitmask of the kinds changed on one thread in one transaction.
type ChangeSet uint32

func (s ChangeSet) With(k ChangeKind) ChangeSet { return s | ChangeSet(k) }

func (s ChangeSet) Has(k ChangeKind) bool { return k != 0 && s&ChangeSet(k) == ChangeSet(k) }

func (s ChangeSet) IsEmpty() bool { return s == 0 }

// Names lists the kinds in the set in declaration order.
func (s ChangeSet) Names() []string {
	var names []string
	for _, c := range changeNames {
		if s.Has(c.kind) {
			names = append(names, c.name)
		}
	}
	return names
}

func (s ChangeSet) String() string {
	return strings.Join(s.Names(), ",")
}

// ParseChangeSet is the inverse of Names; unknown names are ignored.
func ParseChangeSet(names []string) ChangeSet {
	var s ChangeSet
	for _, n := range names {
		for _, c := range changeNames {
			if c.name == n {
				s = s.With(c.kind)
			}
		}
	}
	return s
}
