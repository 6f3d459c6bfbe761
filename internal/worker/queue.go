package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// uniqueFor collapses repeated enqueues for one room while a retry is already waiting.
const uniqueFor = time.Minute

// Queue schedules finalize retries.
type Queue struct {
	client   *asynq.Client
	queue    string
	maxRetry int
}

func NewQueue(opt asynq.RedisClientOpt, queue string, maxRetry int) *Queue {
	return &Queue{
		client:   asynq.NewClient(opt),
		queue:    queue,
		maxRetry: maxRetry,
	}
}

func (that *Queue) EnqueueFinalize(ctx context.Context, roomID string) error {
	task, err := NewFinalizeTask(roomID)
	if err != nil {
		return err
	}

	_, err = that.client.EnqueueContext(ctx, task,
		asynq.Queue(that.queue),
		asynq.MaxRetry(that.maxRetry),
		asynq.Unique(uniqueFor),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to enqueue finalize of room %s: %w", roomID, err)
	}

	return nil
}

func (that *Queue) Close() error {
	return that.client.Close()
}
