package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeKind_IsSyncRelevant(t *testing.T) {
	for _, k := range []ChangeKind{ChangeArchive, ChangeReadState, ChangeMute, ChangeMentionMode} {
		assert.True(t, k.IsSyncRelevant(), k.String())
	}
	for _, k := range []ChangeKind{ChangeColor, ChangeDraft, ChangeVisibility, 0} {
		assert.False(t, k.IsSyncRelevant(), k.String())
	}
	assert.False(t, (ChangeArchive | ChangeDraft).IsSyncRelevant())
}

func TestChangeSet(t *testing.T) {
	var s ChangeSet
	assert.True(t, s.IsEmpty())

	s = s.With(ChangeMute).With(ChangeArchive).With(ChangeMute)
	assert.True(t, s.Has(ChangeArchive))
	assert.True(t, s.Has(ChangeMute))
	assert.False(t, s.Has(ChangeReadState))
	assert.Equal(t, []string{"archive", "mute"}, s.Names())
	assert.Equal(t, "archive,mute", s.String())
	assert.Equal(t, s, ParseChangeSet(append(s.Names(), "bogus")))
}

func TestThreadEnvelope(t *testing.T) {
	until := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := ThreadSnapshot{
		ThreadID:    uuid.New(),
		Changes:     ChangeSet(ChangeMute).Names(),
		MutedUntil:  &until,
		MentionMode: "ALWAYS",
	}
	id := uuid.New()
	env, err := NewThreadEnvelope(id, "laptop", snap, time.Now())
	require.NoError(t, err)
	assert.Equal(t, EventTypeThreadStateSynced, env.EventType)
	assert.Equal(t, snap.ThreadID.String(), env.AggregateID)
	assert.Equal(t, "laptop", env.OriginDevice)
	assert.Equal(t, id.String(), env.ID)

	got, err := env.DecodeThreadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snap.ThreadID, got.ThreadID)
	assert.True(t, got.ChangeSet().Has(ChangeMute))
	require.NotNil(t, got.MutedUntil)
	assert.True(t, until.Equal(*got.MutedUntil))

	r := NewAccountChannelResolver("acct")
	assert.Equal(t, []string{"channel:sync:acct"}, r.ResolveChannels(env))
	assert.Equal(t, []string{ChannelSystemOutbox}, r.ResolveChannels(Envelope{AggregateType: "other"}))
}
