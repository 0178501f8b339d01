package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"   // Ожидает подтверждения репетитора
	BookingStatusConfirmed BookingStatus = "CONFIRMED" // Подтверждено
	BookingStatusCompleted BookingStatus = "COMPLETED" // Занятие проведено
	BookingStatusCancelled BookingStatus = "CANCELLED" // Отменено
)

// IsValid проверяет, что статус известен
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// IsActive - активные бронирования занимают время репетитора
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// IsTerminal - из завершённых и отменённых переходов нет
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type Booking struct {
	ID        string        `json:"id"`
	StudentID string        `json:"studentId"`
	TutorID   string        `json:"tutorId"`
	Interval  Interval      `json:"interval"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// BookingFilter фильтр и пагинация для списков бронирований
type BookingFilter struct {
	StudentID string
	TutorID   string
	Status    BookingStatus // пусто = любой
	Page      int
	Limit     int
}

// Offset вычисляет смещение для текущей страницы
func (f BookingFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
