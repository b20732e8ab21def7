package commands

import (
	"context"
	"testing"

	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_ExecuteValidatesAndDispatches(t *testing.T) {
	bus := NewBus()
	var outcomes []error
	bus.Observe(func(_ context.Context, commandType string, err error) {
		assert.NotEmpty(t, commandType)
		outcomes = append(outcomes, err)
	})
	var got ThreadActionCommand
	bus.Register(TypeThreadAction, HandlerFunc(func(ctx context.Context, cmd Command) (Result, error) {
		got = cmd.(ThreadActionCommand)
		return Result{AggregateID: got.ThreadID.String()}, nil
	}))

	id := uuid.New()
	res, err := bus.Execute(context.Background(), ThreadActionCommand{ThreadID: id, Action: ActionArchive, PropagateSync: true})
	require.NoError(t, err)
	assert.Equal(t, id.String(), res.AggregateID)
	assert.Equal(t, ActionArchive, got.Action)

	_, err = bus.Execute(context.Background(), ThreadActionCommand{ThreadID: id, Action: "pin"})
	assert.ErrorIs(t, err, sentinal_errors.ErrInvalidInput)

	_, err = bus.Execute(context.Background(), BulkArchiveCommand{ThreadIDs: []uuid.UUID{id}})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0])
	assert.ErrorIs(t, outcomes[1], sentinal_errors.ErrInvalidInput)
	assert.ErrorIs(t, outcomes[2], ErrHandlerNotFound)
}

func TestBulkArchiveCommand_Validate(t *testing.T) {
	assert.ErrorIs(t, BulkArchiveCommand{}.Validate(), sentinal_errors.ErrInvalidInput)
	assert.ErrorIs(t, BulkArchiveCommand{ThreadIDs: []uuid.UUID{uuid.Nil}}.Validate(), sentinal_errors.ErrInvalidInput)

	ids := make([]uuid.UUID, MaxBulkArchive+1)
	for i := range ids {
		ids[i] = uuid.New()
	}
	assert.ErrorIs(t, BulkArchiveCommand{ThreadIDs: ids}.Validate(), sentinal_errors.ErrInvalidInput)
	assert.NoError(t, BulkArchiveCommand{ThreadIDs: ids[:3]}.Validate())
}
