package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reviewColumns = `id, booking_id, student_id, tutor_id, rating, comment, created_at`

type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create сохраняет отзыв. Второй отзыв на то же бронирование даёт ErrReviewExists.
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	query := `
		INSERT INTO reviews (id, booking_id, student_id, tutor_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.BookingID,
		review.StudentID,
		review.TutorID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		if pgErrorCode(err) == codeUniqueViolation {
			return repository.ErrReviewExists
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (r *ReviewRepository) GetByBookingID(ctx context.Context, bookingID string) (*model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE booking_id = $1`

	review, err := scanReview(r.pool.QueryRow(ctx, query, bookingID))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review by booking: %w", err)
	}
	return review, nil
}

func (r *ReviewRepository) List(ctx context.Context, filter model.ReviewFilter) ([]*model.Review, int, error) {
	var where whereBuilder
	where.eq("student_id", filter.StudentID)
	where.eq("tutor_id", filter.TutorID)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews `+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	tail, args := where.page(filter.Limit, filter.Offset())
	query := `SELECT ` + reviewColumns + ` FROM reviews ` + where.String() +
		` ORDER BY created_at DESC, id ` + tail

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, total, nil
}

func scanReview(row pgx.Row) (*model.Review, error) {
	var review model.Review
	err := row.Scan(
		&review.ID,
		&review.BookingID,
		&review.StudentID,
		&review.TutorID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}
