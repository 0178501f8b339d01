package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
)

type ReviewRepository struct {
	client *Client
}

func NewReviewRepository(client *Client) *ReviewRepository {
	return &ReviewRepository{client: client}
}

func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	_, err := r.client.send(ctx, http.MethodPost, "/internal/reviews", review, nil)
	if err != nil {
		if statusCode(err) == http.StatusConflict {
			return repository.ErrReviewExists
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (r *ReviewRepository) GetByBookingID(ctx context.Context, bookingID string) (*model.Review, error) {
	q := url.Values{}
	q.Set("bookingId", bookingID)

	var reviews []*model.Review
	if _, err := r.client.get(ctx, "/internal/reviews", q, &reviews); err != nil {
		return nil, fmt.Errorf("get review by booking: %w", err)
	}
	if len(reviews) == 0 {
		return nil, nil
	}
	return reviews[0], nil
}

func (r *ReviewRepository) List(ctx context.Context, filter model.ReviewFilter) ([]*model.Review, int, error) {
	q := url.Values{}
	if filter.StudentID != "" {
		q.Set("studentId", filter.StudentID)
	}
	if filter.TutorID != "" {
		q.Set("tutorId", filter.TutorID)
	}
	pageQuery(q, filter.Page, filter.Limit)

	var reviews []*model.Review
	env, err := r.client.get(ctx, "/internal/reviews", q, &reviews)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, totalOf(env, len(reviews)), nil
}
