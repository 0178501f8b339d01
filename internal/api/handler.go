package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/api/middleware"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	bookings     *service.BookingService
	availability *service.AvailabilityService
	reviews      *service.ReviewService
	loc          *time.Location
	logger       *zap.Logger
}

func NewHandler(
	bookings *service.BookingService,
	availability *service.AvailabilityService,
	reviews *service.ReviewService,
	loc *time.Location,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bookings:     bookings,
		availability: availability,
		reviews:      reviews,
		loc:          loc,
		logger:       logger,
	}
}

// listQuery параметры ?status&page&limit
type listQuery struct {
	status model.BookingStatus
	page   int
	limit  int
}

func parseListQuery(c *gin.Context) (listQuery, error) {
	var q listQuery
	var err error

	if s := strings.TrimSpace(c.Query("status")); s != "" {
		q.status = model.BookingStatus(strings.ToUpper(s))
	}
	if q.page, err = queryInt(c, "page"); err != nil {
		return q, err
	}
	if q.limit, err = queryInt(c, "limit"); err != nil {
		return q, err
	}
	return q, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%s must be a number", key)
	}
	return n, nil
}

func badRequest(format string, args ...any) error {
	return service.InvalidRequest(format, args...)
}

func (h *Handler) bookingViews(actor model.Actor, bookings []*model.Booking) []bookingResponse {
	views := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, h.bookingView(actor, b))
	}
	return views
}

func (h *Handler) bookingView(actor model.Actor, b *model.Booking) bookingResponse {
	return newBookingResponse(b, h.loc, h.bookings.AllowedTransitions(actor, *b))
}

// Health GET /healthz
func (h *Handler) Health(c *gin.Context) {
	OK(c, gin.H{"status": "ok"})
}

// GetAvailability GET /api/tutors/:id/availability
func (h *Handler) GetAvailability(c *gin.Context) {
	window, err := h.availability.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	OK(c, window)
}

// SetAvailability PUT /api/tutor/availability
func (h *Handler) SetAvailability(c *gin.Context) {
	var req setAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, badRequest("%s", err.Error()))
		return
	}

	window, err := h.availability.Set(c.Request.Context(), middleware.MustActor(c), service.AvailabilityInput{
		From:        req.AvailableFrom,
		To:          req.AvailableTo,
		IsAccepting: req.IsAvailable,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	OK(c, window)
}

// CreateBooking POST /api/student/bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, badRequest("%s", err.Error()))
		return
	}

	date, clock, err := sessionStart(req.Date, req.Time, h.loc)
	if err != nil {
		h.writeError(c, badRequest("%s", err.Error()))
		return
	}

	actor := middleware.MustActor(c)
	booking, err := h.bookings.RequestBooking(c.Request.Context(), actor, service.BookingRequest{
		TutorID:  req.TutorID,
		Date:     date,
		Time:     clock,
		Duration: hoursToDuration(req.Duration),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	Created(c, h.bookingView(actor, booking))
}

// ListStudentBookings GET /api/student/bookings
func (h *Handler) ListStudentBookings(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	actor := middleware.MustActor(c)
	bookings, page, err := h.bookings.ListForStudent(c.Request.Context(), actor, q.status, q.page, q.limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	OKPage(c, h.bookingViews(actor, bookings), page)
}

// GetBooking GET /api/student/bookings/:id и /api/tutor/sessions/:id
func (h *Handler) GetBooking(c *gin.Context) {
	actor := middleware.MustActor(c)
	booking, err := h.bookings.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	OK(c, h.bookingView(actor, booking))
}

// CancelBooking PATCH /api/student/bookings/:id/cancel
func (h *Handler) CancelBooking(c *gin.Context) {
	h.transition(c, model.BookingStatusCancelled)
}

// ListTutorSessions GET /api/tutor/sessions
func (h *Handler) ListTutorSessions(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	actor := middleware.MustActor(c)
	bookings, page, err := h.bookings.ListForTutor(c.Request.Context(), actor, q.status, q.page, q.limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	OKPage(c, h.bookingViews(actor, bookings), page)
}

// ConfirmSession PATCH /api/tutor/sessions/:id/confirm
func (h *Handler) ConfirmSession(c *gin.Context) {
	h.transition(c, model.BookingStatusConfirmed)
}

// CompleteSession PATCH /api/tutor/sessions/:id/complete
func (h *Handler) CompleteSession(c *gin.Context) {
	h.transition(c, model.BookingStatusCompleted)
}

// ListAllBookings GET /api/admin/bookings
func (h *Handler) ListAllBookings(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	actor := middleware.MustActor(c)
	filter := model.BookingFilter{
		StudentID: c.Query("studentId"),
		TutorID:   c.Query("tutorId"),
		Status:    q.status,
		Page:      q.page,
		Limit:     q.limit,
	}
	bookings, page, err := h.bookings.ListAll(c.Request.Context(), actor, filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	OKPage(c, h.bookingViews(actor, bookings), page)
}

// UpdateBookingStatus PATCH /api/admin/bookings/:id/status
func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, badRequest("%s", err.Error()))
		return
	}
	h.transition(c, model.BookingStatus(strings.ToUpper(strings.TrimSpace(req.Status))))
}

func (h *Handler) transition(c *gin.Context, target model.BookingStatus) {
	actor := middleware.MustActor(c)
	booking, err := h.bookings.Transition(c.Request.Context(), actor, c.Param("id"), target)
	if err != nil {
		h.writeError(c, err)
		return
	}
	OK(c, h.bookingView(actor, booking))
}

// CreateReview POST /api/student/reviews
func (h *Handler) CreateReview(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, badRequest("%s", err.Error()))
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), middleware.MustActor(c), req.BookingID, req.Rating, req.Comment)
	if err != nil {
		h.writeError(c, err)
		return
	}
	Created(c, review)
}

// ListStudentReviews GET /api/student/reviews
func (h *Handler) ListStudentReviews(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	reviews, page, err := h.reviews.ListForStudent(c.Request.Context(), middleware.MustActor(c), q.page, q.limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	OKPage(c, nonNil(reviews), page)
}

// ListTutorReviews GET /api/tutors/:id/reviews
func (h *Handler) ListTutorReviews(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	reviews, page, err := h.reviews.ListForTutor(c.Request.Context(), c.Param("id"), q.page, q.limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	OKPage(c, nonNil(reviews), page)
}

// nonNil чтобы пустой список сериализовался как [], а не null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
