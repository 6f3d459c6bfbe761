package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const uniqueViolation = "23505"

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{
		pool: pool,
	}
}

func (that *userRepository) Create(ctx context.Context, user *entity.User) error {
	query := `INSERT INTO users (id, username, password_hash, email, phone) VALUES ($1, $2, $3, $4, $5)`

	_, err := that.pool.Exec(ctx, query, user.ID, user.Username, user.PasswordHash, text(user.Email), text(user.Phone))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrUsernameTaken, user.Username)
	}

	if err != nil {
		return fmt.Errorf("can't save user: %w", err)
	}

	return nil
}

func (that *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return that.findOne(ctx, `WHERE id = $1`, id)
}

func (that *userRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return that.findOne(ctx, `WHERE username = $1`, username)
}

func (that *userRepository) RecordResult(ctx context.Context, result entity.GameResult) (bool, error) {
	tx, err := that.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("can't begin transaction: %w", err)
	}

	defer func() {
		// no-op after commit
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx,
		`INSERT INTO game_results (room_id, round, win_state, player1_id, player2_id, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_id, round) DO NOTHING`,
		result.RoomID, result.Round, int16(result.WinState), result.Player1ID, result.Player2ID, result.DecidedAt)
	if err != nil {
		return false, fmt.Errorf("can't record result: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return false, nil
	}

	winner, loser, draw := result.Outcome()
	if draw {
		err = incrementCounter(ctx, tx, "draw_count", result.Player1ID, result.Player2ID)
	} else {
		err = incrementCounter(ctx, tx, "win_count", winner)
		if err == nil {
			err = incrementCounter(ctx, tx, "loss_count", loser)
		}
	}

	if err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("can't commit result: %w", err)
	}

	return true, nil
}

// incrementCounter bumps column for every id, failing when one of them is absent.
func incrementCounter(ctx context.Context, tx pgx.Tx, column string, ids ...string) error {
	query := fmt.Sprintf(`UPDATE users SET %[1]s = %[1]s + 1 WHERE id = $1`, column)

	for _, id := range ids {
		tag, err := tx.Exec(ctx, query, id)
		if err != nil {
			return fmt.Errorf("can't update %s of user %s: %w", column, id, err)
		}

		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
	}

	return nil
}

func (that *userRepository) findOne(ctx context.Context, where string, arg string) (*entity.User, error) {
	query := `SELECT id, username, password_hash, email, phone, win_count, loss_count, draw_count FROM users ` + where

	var (
		user  entity.User
		email pgtype.Text
		phone pgtype.Text
	)

	err := that.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &email, &phone,
		&user.WinCount, &user.LossCount, &user.DrawCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find user: %w", err)
	}

	user.Email = email.String
	user.Phone = phone.String

	return &user, nil
}

func text(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}
