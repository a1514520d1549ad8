package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

var _ domain.HabitEntryRepository = (*PostgresEntryRepository)(nil)

const entryColumns = `e.id, e.habit_id, e.entry_date, e.status, e.created_at, e.updated_at`

// Dates are bound as YYYY-MM-DD text and cast in SQL so the session time
// zone never shifts a calendar day.
type PostgresEntryRepository struct {
	db *sqlx.DB
}

func NewPostgresEntryRepository(db *sqlx.DB) *PostgresEntryRepository {
	return &PostgresEntryRepository{db: db}
}

func day(t time.Time) string {
	return t.Format(domain.DayLayout)
}

func (r *PostgresEntryRepository) Upsert(ctx context.Context, entry *domain.HabitEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := `
		INSERT INTO habit_entries (id, habit_id, entry_date, status, created_at, updated_at)
		VALUES ($1, $2, $3::date, $4, $5, $6)
		ON CONFLICT (habit_id, entry_date)
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		entry.ID, entry.HabitID, day(entry.Date), entry.Status, entry.CreatedAt, entry.UpdatedAt,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return domain.ErrHabitNotFound
		}
		return fmt.Errorf("repository: upsert entry: %w", err)
	}

	return nil
}

func (r *PostgresEntryRepository) CreateMissing(ctx context.Context, habitIDs []string, date time.Time) (int, error) {
	if len(habitIDs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("repository: begin: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO habit_entries (id, habit_id, entry_date, status, created_at, updated_at)
		VALUES ($1, $2, $3::date, $4, $5, $5)
		ON CONFLICT (habit_id, entry_date) DO NOTHING`

	now := time.Now().UTC()
	created := 0
	for _, habitID := range habitIDs {
		res, err := tx.ExecContext(ctx, query, uuid.NewString(), habitID, day(date), domain.StatusMissed, now)
		if err != nil {
			return 0, fmt.Errorf("repository: insert missed entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		created += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("repository: commit: %w", err)
	}
	return created, nil
}

func (r *PostgresEntryRepository) GetByID(ctx context.Context, id string) (*domain.HabitEntry, error) {
	var entry domain.HabitEntry

	err := r.db.GetContext(ctx, &entry, `SELECT `+entryColumns+` FROM habit_entries e WHERE e.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("repository: get entry: %w", err)
	}
	return &entry, nil
}

func (r *PostgresEntryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habit_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: delete entry: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *PostgresEntryRepository) ListHistory(ctx context.Context, habitID string, until time.Time) ([]domain.HabitEntry, error) {
	entries := []domain.HabitEntry{}

	query := `
		SELECT ` + entryColumns + ` FROM habit_entries e
		WHERE e.habit_id = $1 AND e.entry_date <= $2::date
		ORDER BY e.entry_date DESC`

	if err := r.db.SelectContext(ctx, &entries, query, habitID, day(until)); err != nil {
		return nil, fmt.Errorf("repository: list history: %w", err)
	}
	return entries, nil
}

func (r *PostgresEntryRepository) ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]domain.HabitEntry, error) {
	entries := []domain.HabitEntry{}

	query := `
		SELECT ` + entryColumns + ` FROM habit_entries e
		WHERE e.habit_id = $1
		  AND e.entry_date >= $2::date
		  AND e.entry_date <= $3::date
		ORDER BY e.entry_date DESC`

	if err := r.db.SelectContext(ctx, &entries, query, habitID, day(from), day(to)); err != nil {
		return nil, fmt.Errorf("repository: list entries: %w", err)
	}
	return entries, nil
}

func (r *PostgresEntryRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]domain.HabitEntry, error) {
	entries := []domain.HabitEntry{}

	query := `
		SELECT ` + entryColumns + ` FROM habit_entries e
		JOIN habits h ON h.id = e.habit_id
		WHERE h.user_id = $1
		  AND e.entry_date >= $2::date
		  AND e.entry_date <= $3::date
		ORDER BY e.entry_date ASC`

	if err := r.db.SelectContext(ctx, &entries, query, userID, day(from), day(to)); err != nil {
		return nil, fmt.Errorf("repository: list user entries: %w", err)
	}
	return entries, nil
}
