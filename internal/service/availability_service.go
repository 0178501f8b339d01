package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/lock"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// AvailabilityInput новое окно доступности от репетитора
type AvailabilityInput struct {
	From        *model.Date
	To          *model.Date
	IsAccepting bool
}

type AvailabilityService struct {
	store  repository.AvailabilityStore
	locker lock.Locker
	cache  *cache.Cache
	logger *zap.Logger
	opts   options
}

// NewAvailabilityService создаёт сервис. cacheTTL <= 0 отключает кэш чтения.
func NewAvailabilityService(
	store repository.AvailabilityStore,
	locker lock.Locker,
	cacheTTL time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *AvailabilityService {
	s := &AvailabilityService{
		store:  store,
		locker: locker,
		logger: logger,
		opts:   applyOptions(opts),
	}
	if cacheTTL > 0 {
		s.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return s
}

// Get окно доступности репетитора для просмотра.
// Если репетитор ничего не настраивал, возвращается закрытое окно без дат.
func (s *AvailabilityService) Get(ctx context.Context, tutorID string) (*model.AvailabilityWindow, error) {
	if tutorID == "" {
		return nil, InvalidRequest("tutor id is required")
	}

	if s.cache != nil {
		if cached, found := s.cache.Get(tutorID); found {
			window := cached.(model.AvailabilityWindow)
			return &window, nil
		}
	}

	window, err := s.store.Get(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	if window == nil {
		window = &model.AvailabilityWindow{TutorID: tutorID}
	}

	if s.cache != nil {
		s.cache.Set(tutorID, *window, cache.DefaultExpiration)
	}
	return window, nil
}

// Set сохраняет окно доступности. Менять можно только своё окно.
func (s *AvailabilityService) Set(ctx context.Context, actor model.Actor, input AvailabilityInput) (*model.AvailabilityWindow, error) {
	if actor.Role != model.RoleTutor {
		return nil, fmt.Errorf("%w: only tutors manage availability", ErrForbidden)
	}
	if (input.From == nil) != (input.To == nil) {
		return nil, InvalidRequest("availableFrom and availableTo must be set together")
	}
	if input.From != nil && input.From.After(*input.To) {
		return nil, InvalidRequest("availableFrom %s is after availableTo %s", input.From, input.To)
	}

	now := s.opts.now()
	window := &model.AvailabilityWindow{
		TutorID:     actor.ID,
		From:        input.From,
		To:          input.To,
		IsAccepting: input.IsAccepting,
		UpdatedAt:   &now,
	}

	// Не даём окну смениться посреди допуска бронирования этого репетитора
	unlock, err := s.locker.Lock(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("lock tutor schedule: %w", err)
	}
	defer unlock()

	if err := s.store.Upsert(ctx, window); err != nil {
		return nil, fmt.Errorf("save availability: %w", err)
	}

	if s.cache != nil {
		s.cache.Delete(actor.ID)
	}

	s.logger.Info("Availability updated",
		zap.String("tutor_id", actor.ID),
		zap.Stringer("from", dateOrNone(window.From)),
		zap.Stringer("to", dateOrNone(window.To)),
		zap.Bool("accepting", window.IsAccepting),
	)

	return window, nil
}

type noDate struct{}

func (noDate) String() string { return "none" }

func dateOrNone(d *model.Date) fmt.Stringer {
	if d == nil {
		return noDate{}
	}
	return *d
}
