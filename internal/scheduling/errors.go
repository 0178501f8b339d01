package scheduling

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

var (
	ErrInvalidInterval     = errors.New("invalid session interval")
	ErrOutsideAvailability = errors.New("tutor is not available on this date")
	ErrSlotConflict        = errors.New("slot overlaps an existing booking")
	ErrInvalidTransition   = errors.New("invalid booking transition")

	// ErrIndexConflict означает вставку в индекс без предварительной проверки.
	// Это ошибка программы, а не пользователя.
	ErrIndexConflict = errors.New("interval overlaps an indexed booking")
)

// ConflictError возвращается индексом при попытке вставить пересекающийся интервал
type ConflictError struct {
	TutorID   string
	BookingID string
	Conflicts []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking %s for tutor %s overlaps [%s]",
		e.BookingID, e.TutorID, strings.Join(e.Conflicts, ", "))
}

func (e *ConflictError) Unwrap() error {
	return ErrIndexConflict
}

// TransitionError описывает отклонённую смену статуса
type TransitionError struct {
	From   model.BookingStatus
	To     model.BookingStatus
	Role   model.Role
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s cannot move booking from %s to %s", e.Role, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
