package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

type retrier interface {
	RetryFinalize(ctx context.Context, roomID string) error
}

type FinalizeHandler struct {
	logger *slog.Logger
	rooms  retrier
}

func NewFinalizeHandler(logger *slog.Logger, rooms retrier) *FinalizeHandler {
	return &FinalizeHandler{
		logger: logger.With("component", "finalize_handler"),
		rooms:  rooms,
	}
}

// ProcessTask implements asynq.Handler. A returned error makes asynq retry with backoff.
func (that *FinalizeHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	retry, _ := asynq.GetRetryCount(ctx)
	log := that.logger.With("method", "ProcessTask", "task_type", task.Type(), "retry", retry)

	var payload FinalizePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.RoomID == "" {
		return fmt.Errorf("payload without room id: %w", asynq.SkipRetry)
	}

	log = log.With("room_id", payload.RoomID)

	if err := that.rooms.RetryFinalize(ctx, payload.RoomID); err != nil {
		log.Warn("finalize retry failed", "error", err)
		return fmt.Errorf("failed to finalize room %s: %w", payload.RoomID, err)
	}

	log.Info("pending results finalized")

	return nil
}
