package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, student_id, tutor_id, starts_at, ends_at, status, created_at, updated_at`

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Create сохраняет бронирование. Вставка сериализуется по репетитору
// advisory-блокировкой, пересечение перепроверяется внутри транзакции.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, booking.TutorID); err != nil {
		return fmt.Errorf("lock tutor: %w", err)
	}

	var taken bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE tutor_id = $1
				AND status IN ('PENDING', 'CONFIRMED')
				AND starts_at < $3
				AND ends_at > $2
		)
	`, booking.TutorID, booking.Interval.Start, booking.Interval.End).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if taken {
		return repository.ErrSlotTaken
	}

	query := `
		INSERT INTO bookings (id, student_id, tutor_id, starts_at, ends_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, query,
		booking.ID,
		booking.StudentID,
		booking.TutorID,
		booking.Interval.Start,
		booking.Interval.End,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		if pgErrorCode(err) == codeExclusionViolation {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return booking, nil
}

// UpdateStatus меняет статус, только если он не изменился с момента чтения
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) error {
	query := `
		UPDATE bookings
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	result, err := r.pool.Exec(ctx, query, id, from, to, at)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrStaleBooking
	}
	return nil
}

// ListActiveByTutor активные бронирования репетитора по времени начала
func (r *BookingRepository) ListActiveByTutor(ctx context.Context, tutorID string) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tutor_id = $1 AND status IN ('PENDING', 'CONFIRMED')
		ORDER BY starts_at
	`

	rows, err := r.pool.Query(ctx, query, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get active bookings by tutor: %w", err)
	}
	return collectBookings(rows)
}

// List бронирования по фильтру, новые первыми, и общее количество
func (r *BookingRepository) List(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int, error) {
	var where whereBuilder
	where.eq("student_id", filter.StudentID)
	where.eq("tutor_id", filter.TutorID)
	where.eq("status", string(filter.Status))

	var total int
	countQuery := `SELECT COUNT(*) FROM bookings ` + where.String()
	if err := r.pool.QueryRow(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	tail, args := where.page(filter.Limit, filter.Offset())
	query := `SELECT ` + bookingColumns + ` FROM bookings ` + where.String() +
		` ORDER BY created_at DESC, id ` + tail

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.TutorID,
		&booking.Interval.Start,
		&booking.Interval.End,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	booking.Interval.Start = booking.Interval.Start.UTC()
	booking.Interval.End = booking.Interval.End.UTC()
	return &booking, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}
