package scheduling

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// DefaultMaxDuration верхняя граница длительности одного занятия
const DefaultMaxDuration = 12 * time.Hour

// Querier источник пересечений для допуска. ConflictIndex его реализует.
type Querier interface {
	Query(tutorID string, interval model.Interval) []string
}

type RejectReason string

const (
	ReasonInvalidInterval     RejectReason = "INVALID_INTERVAL"
	ReasonOutsideAvailability RejectReason = "OUTSIDE_AVAILABILITY"
	ReasonSlotConflict        RejectReason = "SLOT_CONFLICT"
)

// Decision результат допуска: Admitted или Rejected
type Decision interface {
	decision()
}

// Admitted слот свободен. Interval уже нормализован.
type Admitted struct {
	Interval model.Interval
}

// Rejected слот не может быть выдан
type Rejected struct {
	Reason    RejectReason
	Detail    string
	Conflicts []string
}

func (Admitted) decision() {}
func (Rejected) decision() {}

func (r Rejected) Error() string {
	if r.Detail == "" {
		return r.Unwrap().Error()
	}
	return r.Unwrap().Error() + ": " + r.Detail
}

func (r Rejected) Unwrap() error {
	switch r.Reason {
	case ReasonOutsideAvailability:
		return ErrOutsideAvailability
	case ReasonSlotConflict:
		return ErrSlotConflict
	default:
		return ErrInvalidInterval
	}
}

// Allocator точка допуска новых бронирований.
// Не хранит состояние: одинаковые входные данные дают одинаковое решение.
type Allocator struct {
	loc         *time.Location
	maxDuration time.Duration
}

// NewAllocator создаёт аллокатор. loc задаёт часовой пояс, в котором
// дата занятия сравнивается с окном доступности.
func NewAllocator(loc *time.Location, maxDuration time.Duration) *Allocator {
	if loc == nil {
		loc = time.UTC
	}
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &Allocator{loc: loc, maxDuration: maxDuration}
}

// Location часовой пояс репетиторов
func (a *Allocator) Location() *time.Location {
	return a.loc
}

// RequestSlot решает, можно ли выдать интервал репетитору
func (a *Allocator) RequestSlot(
	tutorID string,
	window model.AvailabilityWindow,
	interval model.Interval,
	index Querier,
	now time.Time,
) Decision {
	normalized := normalize(interval)
	duration := normalized.Duration()

	if duration <= 0 {
		return Rejected{Reason: ReasonInvalidInterval, Detail: "duration must be positive"}
	}
	if duration > a.maxDuration {
		return Rejected{
			Reason: ReasonInvalidInterval,
			Detail: fmt.Sprintf("duration %s exceeds %s", duration, a.maxDuration),
		}
	}
	if !normalized.Start.After(now) {
		return Rejected{Reason: ReasonInvalidInterval, Detail: "session must start in the future"}
	}

	if window.TutorID != "" && window.TutorID != tutorID {
		return Rejected{Reason: ReasonOutsideAvailability, Detail: "availability belongs to another tutor"}
	}
	date := model.DateOf(normalized.Start.In(a.loc))
	if !IsOpenOn(window, date) {
		return Rejected{Reason: ReasonOutsideAvailability, Detail: date.String()}
	}

	if conflicts := index.Query(tutorID, normalized); len(conflicts) > 0 {
		return Rejected{Reason: ReasonSlotConflict, Conflicts: conflicts}
	}

	return Admitted{Interval: normalized}
}

// normalize переводит интервал в UTC и обрезает начало до минуты, сохраняя длительность
func normalize(interval model.Interval) model.Interval {
	start := interval.Start.UTC().Truncate(time.Minute)
	return model.Interval{Start: start, End: start.Add(interval.Duration())}
}
