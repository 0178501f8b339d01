// Package repository описывает хранилища бронирований, окон доступности и отзывов.
// Реализации: postgres (своя БД) и remote (REST API маркетплейса).
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

var (
	// ErrSlotTaken хранилище обнаружило пересечение при вставке
	ErrSlotTaken = errors.New("slot already taken")
	// ErrStaleBooking статус бронирования изменили параллельно
	ErrStaleBooking = errors.New("booking was modified concurrently, reload and retry")
	// ErrReviewExists на бронирование уже оставлен отзыв
	ErrReviewExists = errors.New("review already exists for this booking")
)

// BookingStore хранилище бронирований.
// Get-методы возвращают nil, nil, если запись не найдена.
type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) error
	ListActiveByTutor(ctx context.Context, tutorID string) ([]*model.Booking, error)
	List(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int, error)
}

// AvailabilityStore хранилище окон доступности
type AvailabilityStore interface {
	Get(ctx context.Context, tutorID string) (*model.AvailabilityWindow, error)
	Upsert(ctx context.Context, window *model.AvailabilityWindow) error
}

// ReviewStore хранилище отзывов
type ReviewStore interface {
	Create(ctx context.Context, review *model.Review) error
	GetByBookingID(ctx context.Context, bookingID string) (*model.Review, error)
	List(ctx context.Context, filter model.ReviewFilter) ([]*model.Review, int, error)
}
