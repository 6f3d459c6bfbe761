package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
)

// ErrInconsistentResult - a decided match names a participant the directory does not know.
// Such a result can never be applied and is dropped.
var ErrInconsistentResult = errors.New("result references a missing user")

type statsRepo interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	RecordResult(ctx context.Context, result entity.GameResult) (bool, error)
}

type StatsFinalizer struct {
	logger *slog.Logger
	users  statsRepo
}

func NewStatsFinalizer(logger *slog.Logger, users statsRepo) *StatsFinalizer {
	return &StatsFinalizer{
		logger: logger.With("component", "stats_finalizer"),
		users:  users,
	}
}

// Finalize applies the win/loss/draw increments of one decided match.
// Repeating it for the same room and round changes nothing.
func (that *StatsFinalizer) Finalize(ctx context.Context, result entity.GameResult) error {
	log := that.logger.With("method", "Finalize", "room_id", result.RoomID, "round", result.Round)

	for _, userID := range []string{result.Player1ID, result.Player2ID} {
		if _, err := that.users.GetByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				log.Error("inconsistent result, participant is missing", "user_id", userID)
				return fmt.Errorf("%w: %q", ErrInconsistentResult, userID)
			}

			return fmt.Errorf("failed to load participant %s: %w", userID, err)
		}
	}

	applied, err := that.users.RecordResult(ctx, result)
	if errors.Is(err, repository.ErrUserNotFound) {
		log.Error("inconsistent result, participant vanished", "error", err)
		return fmt.Errorf("%w: %w", ErrInconsistentResult, err)
	}

	if err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	if !applied {
		log.Info("result already applied")
		return nil
	}

	log.Info("stats updated", "win_state", result.WinState.String())

	return nil
}
