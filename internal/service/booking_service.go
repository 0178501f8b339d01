package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/lock"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/scheduling"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingRequest запрос студента на занятие.
// Time в формате "15:04" в часовом поясе репетиторов.
type BookingRequest struct {
	TutorID  string
	Date     model.Date
	Time     string
	Duration time.Duration
}

type BookingService struct {
	bookings     repository.BookingStore
	availability repository.AvailabilityStore
	allocator    *scheduling.Allocator
	lifecycle    *scheduling.Lifecycle
	index        *scheduling.ConflictIndex
	locker       lock.Locker
	notifier     notify.Notifier
	logger       *zap.Logger
	opts         options
}

func NewBookingService(
	bookings repository.BookingStore,
	availability repository.AvailabilityStore,
	allocator *scheduling.Allocator,
	lifecycle *scheduling.Lifecycle,
	index *scheduling.ConflictIndex,
	locker lock.Locker,
	notifier notify.Notifier,
	logger *zap.Logger,
	opts ...Option,
) *BookingService {
	return &BookingService{
		bookings:     bookings,
		availability: availability,
		allocator:    allocator,
		lifecycle:    lifecycle,
		index:        index,
		locker:       locker,
		notifier:     notifier,
		logger:       logger,
		opts:         applyOptions(opts),
	}
}

// RequestBooking создаёт бронирование в статусе PENDING, если слот допустим.
// Отказ допуска возвращается как scheduling.Rejected.
func (s *BookingService) RequestBooking(ctx context.Context, actor model.Actor, req BookingRequest) (*model.Booking, error) {
	if actor.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: only students can book sessions", ErrForbidden)
	}
	if strings.TrimSpace(req.TutorID) == "" {
		return nil, InvalidRequest("tutor id is required")
	}

	start, err := combineDateTime(req.Date, req.Time, s.allocator.Location())
	if err != nil {
		return nil, err
	}
	interval := model.NewInterval(start, req.Duration)

	// Проверка и вставка должны идти под одной блокировкой репетитора
	unlock, err := s.locker.Lock(ctx, req.TutorID)
	if err != nil {
		return nil, fmt.Errorf("lock tutor schedule: %w", err)
	}
	defer unlock()

	window, err := s.availability.Get(ctx, req.TutorID)
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	if window == nil {
		window = &model.AvailabilityWindow{TutorID: req.TutorID}
	}

	if err := s.ensureIndex(ctx, req.TutorID); err != nil {
		return nil, err
	}

	now := s.opts.now()
	decision := s.allocator.RequestSlot(req.TutorID, *window, interval, s.index, now)

	switch d := decision.(type) {
	case scheduling.Rejected:
		s.logger.Info("Booking rejected",
			zap.String("tutor_id", req.TutorID),
			zap.String("student_id", actor.ID),
			zap.Time("start", interval.Start),
			zap.String("reason", string(d.Reason)),
			zap.Strings("conflicts", d.Conflicts),
		)
		return nil, d
	case scheduling.Admitted:
		interval = d.Interval
	}

	booking := &model.Booking{
		ID:        uuid.NewString(),
		StudentID: actor.ID,
		TutorID:   req.TutorID,
		Interval:  interval,
		Status:    model.BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			// слот занял другой экземпляр сервиса, индекс устарел
			s.index.Forget(req.TutorID)
			return nil, scheduling.Rejected{Reason: scheduling.ReasonSlotConflict, Detail: "slot was taken concurrently"}
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := s.index.Insert(booking.TutorID, booking.ID, booking.Interval); err != nil {
		// бронирование уже сохранено: перечитаем индекс при следующем запросе
		s.logger.Error("Conflict index out of sync",
			zap.String("tutor_id", booking.TutorID),
			zap.String("booking_id", booking.ID),
			zap.Error(err))
		s.index.Forget(booking.TutorID)
	}

	s.logger.Info("Booking requested",
		zap.String("booking_id", booking.ID),
		zap.String("tutor_id", booking.TutorID),
		zap.String("student_id", booking.StudentID),
		zap.Time("start", booking.Interval.Start),
		zap.Duration("duration", booking.Interval.Duration()),
	)

	s.notify(ctx, notify.EventRequested, *booking, actor)

	return booking, nil
}

// Confirm подтверждает бронирование (репетитор или админ)
func (s *BookingService) Confirm(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	return s.Transition(ctx, actor, bookingID, model.BookingStatusConfirmed)
}

// Complete отмечает занятие проведённым (репетитор)
func (s *BookingService) Complete(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	return s.Transition(ctx, actor, bookingID, model.BookingStatusCompleted)
}

// Cancel отменяет бронирование (студент с учётом срока или админ)
func (s *BookingService) Cancel(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	return s.Transition(ctx, actor, bookingID, model.BookingStatusCancelled)
}

// Transition переводит бронирование в новый статус
func (s *BookingService) Transition(ctx context.Context, actor model.Actor, bookingID string, target model.BookingStatus) (*model.Booking, error) {
	if !target.IsValid() {
		return nil, InvalidRequest("unknown status %q", target)
	}

	booking, err := s.getOwned(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, booking.TutorID)
	if err != nil {
		return nil, fmt.Errorf("lock tutor schedule: %w", err)
	}
	defer unlock()

	now := s.opts.now()
	next, err := s.lifecycle.Transition(*booking, actor.Role, target, now)
	if err != nil {
		s.logger.Warn("Invalid booking transition",
			zap.String("booking_id", booking.ID),
			zap.String("actor_id", actor.ID),
			zap.String("role", string(actor.Role)),
			zap.String("from", string(booking.Status)),
			zap.String("to", string(target)),
			zap.Error(err))
		return nil, err
	}

	if err := s.bookings.UpdateStatus(ctx, booking.ID, booking.Status, next.Status, now); err != nil {
		if errors.Is(err, repository.ErrStaleBooking) {
			return nil, err
		}
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	if !next.Status.IsActive() {
		s.index.Remove(next.TutorID, next.ID)
	}

	s.logger.Info("Booking status changed",
		zap.String("booking_id", next.ID),
		zap.String("actor_id", actor.ID),
		zap.String("from", string(booking.Status)),
		zap.String("to", string(next.Status)),
	)

	s.notify(ctx, notify.EventFor(next.Status), next, actor)

	return &next, nil
}

// Get возвращает бронирование, если оно видно пользователю
func (s *BookingService) Get(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	return s.getOwned(ctx, actor, bookingID)
}

// AllowedTransitions статусы, доступные пользователю для бронирования прямо сейчас
func (s *BookingService) AllowedTransitions(actor model.Actor, booking model.Booking) []model.BookingStatus {
	if canSee(actor, booking) != nil {
		return nil
	}
	return s.lifecycle.Allowed(booking, actor.Role, s.opts.now())
}

// ListForStudent бронирования текущего студента
func (s *BookingService) ListForStudent(ctx context.Context, actor model.Actor, status model.BookingStatus, page, limit int) ([]*model.Booking, model.Page, error) {
	if actor.Role != model.RoleStudent {
		return nil, model.Page{}, ErrForbidden
	}
	return s.list(ctx, model.BookingFilter{StudentID: actor.ID, Status: status, Page: page, Limit: limit})
}

// ListForTutor занятия текущего репетитора
func (s *BookingService) ListForTutor(ctx context.Context, actor model.Actor, status model.BookingStatus, page, limit int) ([]*model.Booking, model.Page, error) {
	if actor.Role != model.RoleTutor {
		return nil, model.Page{}, ErrForbidden
	}
	return s.list(ctx, model.BookingFilter{TutorID: actor.ID, Status: status, Page: page, Limit: limit})
}

// ListAll все бронирования для модерации
func (s *BookingService) ListAll(ctx context.Context, actor model.Actor, filter model.BookingFilter) ([]*model.Booking, model.Page, error) {
	if actor.Role != model.RoleAdmin {
		return nil, model.Page{}, ErrForbidden
	}
	return s.list(ctx, filter)
}

// PruneIndex выгружает из индекса закончившиеся занятия
func (s *BookingService) PruneIndex() int {
	return s.index.Prune(s.opts.now())
}

func (s *BookingService) list(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, model.Page, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, model.Page{}, InvalidRequest("unknown status %q", filter.Status)
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, model.NewPage(total, filter.Page, filter.Limit), nil
}

func (s *BookingService) getOwned(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if err := canSee(actor, *booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// ensureIndex загружает активные бронирования репетитора в индекс.
// Вызывается под блокировкой репетитора.
func (s *BookingService) ensureIndex(ctx context.Context, tutorID string) error {
	if !s.opts.reseedEachRequest && s.index.Seeded(tutorID) {
		return nil
	}

	active, err := s.bookings.ListActiveByTutor(ctx, tutorID)
	if err != nil {
		return fmt.Errorf("load active bookings: %w", err)
	}

	entries := make([]scheduling.Entry, 0, len(active))
	for _, b := range active {
		entries = append(entries, scheduling.Entry{BookingID: b.ID, Interval: b.Interval})
	}

	if err := s.index.Seed(tutorID, entries); err != nil {
		s.logger.Error("Stored bookings overlap",
			zap.String("tutor_id", tutorID),
			zap.Error(err))
		return fmt.Errorf("seed conflict index: %w", err)
	}
	return nil
}

func (s *BookingService) notify(ctx context.Context, kind notify.EventKind, booking model.Booking, actor model.Actor) {
	err := s.notifier.Notify(ctx, notify.Event{Kind: kind, Booking: booking, Actor: actor})
	if err != nil {
		s.logger.Warn("Failed to send booking notification",
			zap.String("booking_id", booking.ID),
			zap.String("event", string(kind)),
			zap.Error(err))
	}
}

func canSee(actor model.Actor, booking model.Booking) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStudent:
		if booking.StudentID == actor.ID {
			return nil
		}
	case model.RoleTutor:
		if booking.TutorID == actor.ID {
			return nil
		}
	}
	return ErrForbidden
}

// combineDateTime собирает момент начала из даты и времени "15:04"
func combineDateTime(date model.Date, clock string, loc *time.Location) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, InvalidRequest("date is required")
	}
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, InvalidRequest("time must be HH:MM, got %q", clock)
	}
	return time.Date(date.Year, date.Month, date.Day, t.Hour(), t.Minute(), 0, 0, loc), nil
}
