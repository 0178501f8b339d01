package scheduling

import (
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// DefaultCancellationGrace минимальный запас до начала занятия для отмены студентом
const DefaultCancellationGrace = 24 * time.Hour

type transitionRule struct {
	from  []model.BookingStatus
	to    model.BookingStatus
	roles []model.Role
	// guard возвращает причину отказа или пустую строку
	guard func(l *Lifecycle, b model.Booking, now time.Time) string
}

var transitionRules = []transitionRule{
	{
		from:  []model.BookingStatus{model.BookingStatusPending},
		to:    model.BookingStatusConfirmed,
		roles: []model.Role{model.RoleTutor, model.RoleAdmin},
	},
	{
		from:  []model.BookingStatus{model.BookingStatusConfirmed},
		to:    model.BookingStatusCompleted,
		roles: []model.Role{model.RoleTutor},
		guard: func(_ *Lifecycle, b model.Booking, now time.Time) string {
			if now.Before(b.Interval.Start) {
				return "session has not started yet"
			}
			return ""
		},
	},
	{
		from:  []model.BookingStatus{model.BookingStatusConfirmed},
		to:    model.BookingStatusCancelled,
		roles: []model.Role{model.RoleStudent},
		guard: func(l *Lifecycle, b model.Booking, now time.Time) string {
			if b.Interval.Start.Sub(now) < l.cancellationGrace {
				return fmt.Sprintf("cancellation requires at least %s notice", l.cancellationGrace)
			}
			return ""
		},
	},
	{
		from:  []model.BookingStatus{model.BookingStatusPending, model.BookingStatusConfirmed},
		to:    model.BookingStatusCancelled,
		roles: []model.Role{model.RoleAdmin},
	},
}

// Lifecycle конечный автомат статусов бронирования
type Lifecycle struct {
	cancellationGrace time.Duration
}

// NewLifecycle создаёт автомат с указанным сроком отмены для студентов
func NewLifecycle(cancellationGrace time.Duration) *Lifecycle {
	if cancellationGrace < 0 {
		cancellationGrace = DefaultCancellationGrace
	}
	return &Lifecycle{cancellationGrace: cancellationGrace}
}

// CancellationGrace срок, за который студент может отменить занятие
func (l *Lifecycle) CancellationGrace() time.Duration {
	return l.cancellationGrace
}

// Transition вычисляет новое состояние бронирования. Исходное значение не меняется.
func (l *Lifecycle) Transition(b model.Booking, role model.Role, target model.BookingStatus, now time.Time) (model.Booking, error) {
	if reason := l.check(b, role, target, now); reason != "" {
		return b, &TransitionError{From: b.Status, To: target, Role: role, Reason: reason}
	}

	next := b
	next.Status = target
	next.UpdatedAt = now
	return next, nil
}

// Allowed список статусов, в которые роль может перевести бронирование сейчас
func (l *Lifecycle) Allowed(b model.Booking, role model.Role, now time.Time) []model.BookingStatus {
	var targets []model.BookingStatus
	for _, rule := range transitionRules {
		if slices.Contains(targets, rule.to) {
			continue
		}
		if l.check(b, role, rule.to, now) == "" {
			targets = append(targets, rule.to)
		}
	}
	return targets
}

func (l *Lifecycle) check(b model.Booking, role model.Role, target model.BookingStatus, now time.Time) string {
	reason := "transition not allowed"
	for _, rule := range transitionRules {
		if rule.to != target || !slices.Contains(rule.from, b.Status) || !slices.Contains(rule.roles, role) {
			continue
		}
		if rule.guard == nil {
			return ""
		}
		guardReason := rule.guard(l, b, now)
		if guardReason == "" {
			return ""
		}
		reason = guardReason
	}
	return reason
}
