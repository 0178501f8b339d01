package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewService struct {
	reviews  repository.ReviewStore
	bookings repository.BookingStore
	logger   *zap.Logger
	opts     options
}

func NewReviewService(reviews repository.ReviewStore, bookings repository.BookingStore, logger *zap.Logger, opts ...Option) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		bookings: bookings,
		logger:   logger,
		opts:     applyOptions(opts),
	}
}

// Create оставляет отзыв на проведённое занятие
func (s *ReviewService) Create(ctx context.Context, actor model.Actor, bookingID string, rating int, comment string) (*model.Review, error) {
	if actor.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: only students leave reviews", ErrForbidden)
	}
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, InvalidRequest("rating must be between %d and %d", model.MinRating, model.MaxRating)
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > model.MaxCommentLength {
		return nil, InvalidRequest("comment is longer than %d characters", model.MaxCommentLength)
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.StudentID != actor.ID {
		return nil, ErrForbidden
	}
	if booking.Status != model.BookingStatusCompleted {
		return nil, ErrReviewNotAllowed
	}

	existing, err := s.reviews.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrReviewExists
	}

	review := &model.Review{
		ID:        uuid.NewString(),
		BookingID: booking.ID,
		StudentID: booking.StudentID,
		TutorID:   booking.TutorID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.opts.now(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrReviewExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.logger.Info("Review created",
		zap.String("review_id", review.ID),
		zap.String("booking_id", review.BookingID),
		zap.String("tutor_id", review.TutorID),
		zap.Int("rating", review.Rating),
	)

	return review, nil
}

// ListForTutor публичные отзывы о репетиторе
func (s *ReviewService) ListForTutor(ctx context.Context, tutorID string, page, limit int) ([]*model.Review, model.Page, error) {
	if tutorID == "" {
		return nil, model.Page{}, InvalidRequest("tutor id is required")
	}
	return s.list(ctx, model.ReviewFilter{TutorID: tutorID, Page: page, Limit: limit})
}

// ListForStudent отзывы, оставленные студентом
func (s *ReviewService) ListForStudent(ctx context.Context, actor model.Actor, page, limit int) ([]*model.Review, model.Page, error) {
	if actor.Role != model.RoleStudent {
		return nil, model.Page{}, ErrForbidden
	}
	return s.list(ctx, model.ReviewFilter{StudentID: actor.ID, Page: page, Limit: limit})
}

func (s *ReviewService) list(ctx context.Context, filter model.ReviewFilter) ([]*model.Review, model.Page, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	reviews, total, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, model.NewPage(total, filter.Page, filter.Limit), nil
}
