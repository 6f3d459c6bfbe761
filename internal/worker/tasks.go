package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TypeStatsFinalize = "stats:finalize"

type FinalizePayload struct {
	RoomID string `json:"roomId"`
}

// NewFinalizeTask builds the task that drains the pending results of one room.
func NewFinalizeTask(roomID string) (*asynq.Task, error) {
	payload, err := json.Marshal(FinalizePayload{RoomID: roomID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal finalize payload: %w", err)
	}

	return asynq.NewTask(TypeStatsFinalize, payload), nil
}
