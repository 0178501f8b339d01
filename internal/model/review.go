package model

import "time"

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

// Review отзыв студента о проведённом занятии, не более одного на бронирование
type Review struct {
	ID        string    `json:"id"`
	BookingID string    `json:"bookingId"`
	StudentID string    `json:"studentId"`
	TutorID   string    `json:"tutorId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewFilter фильтр и пагинация для списков отзывов
type ReviewFilter struct {
	StudentID string
	TutorID   string
	Page      int
	Limit     int
}

func (f ReviewFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
