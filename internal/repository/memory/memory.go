// Package memory хранилища в памяти процесса: для локального запуска (STORE=memory) и тестов.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
)

type BookingStore struct {
	mu       sync.RWMutex
	bookings map[string]model.Booking
}

func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[string]model.Booking)}
}

// Create повторяет ограничение БД: активные бронирования репетитора не пересекаются
func (s *BookingStore) Create(_ context.Context, booking *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bookings {
		if b.ID == booking.ID {
			return repository.ErrSlotTaken
		}
		if b.TutorID == booking.TutorID && b.Status.IsActive() && booking.Status.IsActive() &&
			b.Interval.Overlaps(booking.Interval) {
			return repository.ErrSlotTaken
		}
	}
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *BookingStore) GetByID(_ context.Context, id string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *BookingStore) UpdateStatus(_ context.Context, id string, from, to model.BookingStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok || b.Status != from {
		return repository.ErrStaleBooking
	}
	b.Status = to
	b.UpdatedAt = at
	s.bookings[id] = b
	return nil
}

func (s *BookingStore) ListActiveByTutor(_ context.Context, tutorID string) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Booking
	for _, b := range s.bookings {
		if b.TutorID == tutorID && b.Status.IsActive() {
			result = append(result, &b)
		}
	}
	slices.SortFunc(result, func(a, b *model.Booking) int {
		return a.Interval.Start.Compare(b.Interval.Start)
	})
	return result, nil
}

// List новые бронирования первыми
func (s *BookingStore) List(_ context.Context, filter model.BookingFilter) ([]*model.Booking, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*model.Booking
	for _, b := range s.bookings {
		if filter.StudentID != "" && b.StudentID != filter.StudentID {
			continue
		}
		if filter.TutorID != "" && b.TutorID != filter.TutorID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		matched = append(matched, &b)
	}
	slices.SortFunc(matched, func(a, b *model.Booking) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return paginate(matched, filter.Offset(), filter.Limit), len(matched), nil
}

type AvailabilityStore struct {
	mu      sync.RWMutex
	windows map[string]model.AvailabilityWindow
}

func NewAvailabilityStore() *AvailabilityStore {
	return &AvailabilityStore{windows: make(map[string]model.AvailabilityWindow)}
}

func (s *AvailabilityStore) Get(_ context.Context, tutorID string) (*model.AvailabilityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.windows[tutorID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *AvailabilityStore) Upsert(_ context.Context, window *model.AvailabilityWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows[window.TutorID] = *window
	return nil
}

type ReviewStore struct {
	mu      sync.RWMutex
	reviews []model.Review
}

func NewReviewStore() *ReviewStore {
	return &ReviewStore{}
}

func (s *ReviewStore) Create(_ context.Context, review *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reviews {
		if r.BookingID == review.BookingID {
			return repository.ErrReviewExists
		}
	}
	s.reviews = append(s.reviews, *review)
	return nil
}

func (s *ReviewStore) GetByBookingID(_ context.Context, bookingID string) (*model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reviews {
		if r.BookingID == bookingID {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *ReviewStore) List(_ context.Context, filter model.ReviewFilter) ([]*model.Review, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*model.Review
	for i := len(s.reviews) - 1; i >= 0; i-- {
		r := s.reviews[i]
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if filter.TutorID != "" && r.TutorID != filter.TutorID {
			continue
		}
		matched = append(matched, &r)
	}
	return paginate(matched, filter.Offset(), filter.Limit), len(matched), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
