// Package notify рассылает уведомления о событиях бронирований.
package notify

import (
	"context"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

type EventKind string

const (
	EventRequested EventKind = "requested"
	EventConfirmed EventKind = "confirmed"
	EventCompleted EventKind = "completed"
	EventCancelled EventKind = "cancelled"
)

// EventFor событие, соответствующее новому статусу бронирования
func EventFor(status model.BookingStatus) EventKind {
	switch status {
	case model.BookingStatusConfirmed:
		return EventConfirmed
	case model.BookingStatusCompleted:
		return EventCompleted
	case model.BookingStatusCancelled:
		return EventCancelled
	default:
		return EventRequested
	}
}

type Event struct {
	Kind    EventKind
	Booking model.Booking
	Actor   model.Actor
}

// Notifier доставляет событие. Ошибка доставки не отменяет операцию.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
