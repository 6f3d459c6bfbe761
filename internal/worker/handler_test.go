package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRetrier struct {
	mock.Mock
}

func (that *mockRetrier) RetryFinalize(ctx context.Context, roomID string) error {
	return that.Called(ctx, roomID).Error(0)
}

func newHandler(t *testing.T) (*FinalizeHandler, *mockRetrier) {
	t.Helper()

	rooms := &mockRetrier{}
	t.Cleanup(func() { rooms.AssertExpectations(t) })

	return NewFinalizeHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)), rooms), rooms
}

func TestFinalizeHandler_ProcessTask(t *testing.T) {
	ctx := context.Background()

	t.Run("Retries the room named in the payload", func(t *testing.T) {
		handler, rooms := newHandler(t)
		rooms.On("RetryFinalize", mock.Anything, "r1").Return(nil).Once()

		task, err := NewFinalizeTask("r1")
		require.NoError(t, err)

		assert.NoError(t, handler.ProcessTask(ctx, task))
	})

	t.Run("Propagates failures so asynq retries", func(t *testing.T) {
		handler, rooms := newHandler(t)
		errDown := errors.New("down")
		rooms.On("RetryFinalize", mock.Anything, "r1").Return(errDown).Once()

		task, err := NewFinalizeTask("r1")
		require.NoError(t, err)

		err = handler.ProcessTask(ctx, task)

		require.ErrorIs(t, err, errDown)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("Broken payload is not retried", func(t *testing.T) {
		handler, _ := newHandler(t)

		err := handler.ProcessTask(ctx, asynq.NewTask(TypeStatsFinalize, []byte("{")))
		require.ErrorIs(t, err, asynq.SkipRetry)

		err = handler.ProcessTask(ctx, asynq.NewTask(TypeStatsFinalize, []byte(`{}`)))
		require.ErrorIs(t, err, asynq.SkipRetry)
	})
}
