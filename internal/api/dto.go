package api

import (
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// defaultSessionHours длительность занятия, если клиент её не указал
const defaultSessionHours = 2

type createBookingRequest struct {
	TutorID string `json:"tutorId" binding:"required"`
	// Date "2006-01-02" или RFC3339
	Date string `json:"date" binding:"required"`
	// Time "15:04" или RFC3339
	Time string `json:"time" binding:"required"`
	// Duration длительность в часах, nil означает длительность по умолчанию
	Duration *float64 `json:"duration"`
}

type setAvailabilityRequest struct {
	AvailableFrom *model.Date `json:"availableFrom"`
	AvailableTo   *model.Date `json:"availableTo"`
	IsAvailable   bool        `json:"isAvailable"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type createReviewRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment"`
}

// bookingResponse бронирование в виде, который ожидает фронтенд:
// дата и время в часовом поясе репетиторов, длительность в часах
type bookingResponse struct {
	ID                 string                `json:"id"`
	StudentID          string                `json:"studentId"`
	TutorID            string                `json:"tutorId"`
	Status             model.BookingStatus   `json:"status"`
	Date               string                `json:"date"`
	Time               string                `json:"time"`
	Duration           float64               `json:"duration"`
	StartsAt           time.Time             `json:"startsAt"`
	EndsAt             time.Time             `json:"endsAt"`
	AllowedTransitions []model.BookingStatus `json:"allowedTransitions"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

func newBookingResponse(b *model.Booking, loc *time.Location, allowed []model.BookingStatus) bookingResponse {
	start := b.Interval.Start.In(loc)
	if allowed == nil {
		allowed = []model.BookingStatus{}
	}
	return bookingResponse{
		ID:                 b.ID,
		StudentID:          b.StudentID,
		TutorID:            b.TutorID,
		Status:             b.Status,
		Date:               model.DateOf(start).String(),
		Time:               start.Format("15:04"),
		Duration:           b.Interval.Duration().Hours(),
		StartsAt:           b.Interval.Start,
		EndsAt:             b.Interval.End,
		AllowedTransitions: allowed,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

// sessionStart разбирает дату и время начала занятия.
// Если time пришёл полным timestamp, дата берётся из него же в часовом поясе репетиторов.
func sessionStart(date, clock string, loc *time.Location) (model.Date, string, error) {
	clock = strings.TrimSpace(clock)
	if t, err := time.Parse(time.RFC3339, clock); err == nil {
		t = t.In(loc)
		return model.DateOf(t), t.Format("15:04"), nil
	}

	d, err := model.ParseDate(date)
	if err != nil {
		return model.Date{}, "", err
	}
	return d, clock, nil
}

func hoursToDuration(hours *float64) time.Duration {
	if hours == nil {
		return defaultSessionHours * time.Hour
	}
	return time.Duration(*hours * float64(time.Hour)).Round(time.Minute)
}
