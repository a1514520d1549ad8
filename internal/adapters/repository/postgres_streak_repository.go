package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

var _ domain.StreakRepository = (*PostgresStreakRepository)(nil)

type PostgresStreakRepository struct {
	db *sqlx.DB
}

func NewPostgresStreakRepository(db *sqlx.DB) *PostgresStreakRepository {
	return &PostgresStreakRepository{db: db}
}

func (r *PostgresStreakRepository) Upsert(ctx context.Context, state domain.StreakState) error {
	query := `
		INSERT INTO streaks (habit_id, current_streak, longest_streak, updated_at)
		VALUES (:habit_id, :current_streak, :longest_streak, :updated_at)
		ON CONFLICT (habit_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			updated_at     = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, state); err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return domain.ErrHabitNotFound
		}
		return fmt.Errorf("repository: upsert streak: %w", err)
	}
	return nil
}

func (r *PostgresStreakRepository) GetByHabitID(ctx context.Context, habitID string) (domain.StreakState, error) {
	var state domain.StreakState

	query := `SELECT habit_id, current_streak, longest_streak, updated_at FROM streaks WHERE habit_id = $1`

	if err := r.db.GetContext(ctx, &state, query, habitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StreakState{HabitID: habitID}, nil
		}
		return domain.StreakState{}, fmt.Errorf("repository: get streak: %w", err)
	}
	return state, nil
}

func (r *PostgresStreakRepository) ListByUserID(ctx context.Context, userID string) ([]domain.StreakState, error) {
	states := []domain.StreakState{}

	query := `
		SELECT s.habit_id, s.current_streak, s.longest_streak, s.updated_at
		FROM streaks s
		JOIN habits h ON h.id = s.habit_id
		WHERE h.user_id = $1`

	if err := r.db.SelectContext(ctx, &states, query, userID); err != nil {
		return nil, fmt.Errorf("repository: list streaks: %w", err)
	}
	return states, nil
}
