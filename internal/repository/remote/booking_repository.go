package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
)

// bookingDTO бронирование в формате бэкенда: date, time и duration в часах
type bookingDTO struct {
	ID        string              `json:"id"`
	StudentID string              `json:"studentId"`
	TutorID   string              `json:"tutorId"`
	Status    model.BookingStatus `json:"status"`
	Date      string              `json:"date"`
	Time      time.Time           `json:"time"`
	Duration  float64             `json:"duration"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func toBookingDTO(b *model.Booking) bookingDTO {
	start := b.Interval.Start.UTC()
	return bookingDTO{
		ID:        b.ID,
		StudentID: b.StudentID,
		TutorID:   b.TutorID,
		Status:    b.Status,
		Date:      model.DateOf(start).String(),
		Time:      start,
		Duration:  b.Interval.Duration().Hours(),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// toModel восстанавливает интервал: time хранит точный момент начала
func (d bookingDTO) toModel() *model.Booking {
	duration := time.Duration(d.Duration * float64(time.Hour)).Round(time.Minute)
	return &model.Booking{
		ID:        d.ID,
		StudentID: d.StudentID,
		TutorID:   d.TutorID,
		Interval:  model.NewInterval(d.Time.UTC(), duration),
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type statusUpdate struct {
	From      model.BookingStatus `json:"from"`
	Status    model.BookingStatus `json:"status"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type BookingRepository struct {
	client *Client
}

func NewBookingRepository(client *Client) *BookingRepository {
	return &BookingRepository{client: client}
}

// Create 409 от бэкенда означает, что слот уже занят
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	_, err := r.client.send(ctx, http.MethodPost, "/internal/bookings", toBookingDTO(booking), nil)
	if err != nil {
		if statusCode(err) == http.StatusConflict {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var dto bookingDTO
	_, err := r.client.get(ctx, "/internal/bookings/"+url.PathEscape(id), nil, &dto)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return dto.toModel(), nil
}

// UpdateStatus бэкенд сравнивает from с текущим статусом и отвечает 409 при расхождении
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) error {
	body := statusUpdate{From: from, Status: to, UpdatedAt: at}
	_, err := r.client.send(ctx, http.MethodPatch, "/internal/bookings/"+url.PathEscape(id)+"/status", body, nil)
	if err != nil {
		switch statusCode(err) {
		case http.StatusConflict, http.StatusNotFound:
			return repository.ErrStaleBooking
		}
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

func (r *BookingRepository) ListActiveByTutor(ctx context.Context, tutorID string) ([]*model.Booking, error) {
	q := url.Values{}
	q.Set("tutorId", tutorID)
	q.Set("active", "true")

	var dtos []bookingDTO
	if _, err := r.client.get(ctx, "/internal/bookings", q, &dtos); err != nil {
		return nil, fmt.Errorf("get active bookings by tutor: %w", err)
	}

	bookings := make([]*model.Booking, 0, len(dtos))
	for _, dto := range dtos {
		if b := dto.toModel(); b.Status.IsActive() {
			bookings = append(bookings, b)
		}
	}
	return bookings, nil
}

func (r *BookingRepository) List(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int, error) {
	q := url.Values{}
	if filter.StudentID != "" {
		q.Set("studentId", filter.StudentID)
	}
	if filter.TutorID != "" {
		q.Set("tutorId", filter.TutorID)
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	pageQuery(q, filter.Page, filter.Limit)

	var dtos []bookingDTO
	env, err := r.client.get(ctx, "/internal/bookings", q, &dtos)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	bookings := make([]*model.Booking, 0, len(dtos))
	for _, dto := range dtos {
		bookings = append(bookings, dto.toModel())
	}
	return bookings, totalOf(env, len(bookings)), nil
}
