package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AvailabilityRepository struct {
	pool *pgxpool.Pool
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

// Get получает окно доступности репетитора
func (r *AvailabilityRepository) Get(ctx context.Context, tutorID string) (*model.AvailabilityWindow, error) {
	query := `
		SELECT tutor_id, available_from, available_to, is_available, updated_at
		FROM tutor_availability
		WHERE tutor_id = $1
	`

	var (
		window    model.AvailabilityWindow
		from, to  *time.Time
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, query, tutorID).Scan(
		&window.TutorID,
		&from,
		&to,
		&window.IsAccepting,
		&updatedAt,
	)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability: %w", err)
	}

	window.From = dateFromColumn(from)
	window.To = dateFromColumn(to)
	window.UpdatedAt = &updatedAt
	return &window, nil
}

// Upsert создаёт или заменяет окно доступности
func (r *AvailabilityRepository) Upsert(ctx context.Context, window *model.AvailabilityWindow) error {
	query := `
		INSERT INTO tutor_availability (tutor_id, available_from, available_to, is_available, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		ON CONFLICT (tutor_id) DO UPDATE
		SET available_from = EXCLUDED.available_from,
			available_to = EXCLUDED.available_to,
			is_available = EXCLUDED.is_available,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		window.TutorID,
		dateToColumn(window.From),
		dateToColumn(window.To),
		window.IsAccepting,
		window.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}

// DATE приходит из pgx как полночь UTC
func dateFromColumn(t *time.Time) *model.Date {
	if t == nil {
		return nil
	}
	d := model.DateOf(t.UTC())
	return &d
}

func dateToColumn(d *model.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.In(time.UTC)
	return &t
}
