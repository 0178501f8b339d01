package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/api/middleware"
	"github.com/Freeeeeet/tutor_scheduler/internal/lock"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/remote"
	"github.com/Freeeeeet/tutor_scheduler/internal/scheduling"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testServer struct {
	router *gin.Engine
	clock  *testClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zap.NewNop()
	clock := &testClock{now: time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)}
	locker := lock.NewKeyedMutex()
	bookingStore := memory.NewBookingStore()
	availabilityStore := memory.NewAvailabilityStore()

	bookings := service.NewBookingService(
		bookingStore,
		availabilityStore,
		scheduling.NewAllocator(time.UTC, 0),
		scheduling.NewLifecycle(scheduling.DefaultCancellationGrace),
		scheduling.NewConflictIndex(),
		locker,
		notify.NewLogNotifier(logger),
		logger,
		service.WithClock(clock.Now),
	)
	availability := service.NewAvailabilityService(availabilityStore, locker, 0, logger, service.WithClock(clock.Now))
	reviews := service.NewReviewService(memory.NewReviewStore(), bookingStore, logger, service.WithClock(clock.Now))

	h := NewHandler(bookings, availability, reviews, time.UTC, logger)
	return &testServer{router: NewRouter(h, RouterConfig{}, logger), clock: clock}
}

type identity struct {
	id   string
	role string
}

var (
	asStudent = identity{"student-1", "STUDENT"}
	asOther   = identity{"student-2", "STUDENT"}
	asTutor   = identity{"tutor-1", "TUTOR"}
	asAdmin   = identity{"admin-1", "ADMIN"}
	anonymous = identity{}
)

type envelopeBody struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Details    json.RawMessage `json:"details"`
	Pagination *model.Page     `json:"pagination"`
}

func (s *testServer) do(t *testing.T, who identity, method, path string, body any) (int, envelopeBody) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who.id != "" {
		req.Header.Set(middleware.UserIDHeader, who.id)
		req.Header.Set(middleware.UserRoleHeader, who.role)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelopeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) openJune(t *testing.T) {
	t.Helper()
	code, _ := s.do(t, asTutor, http.MethodPut, "/api/tutor/availability", map[string]any{
		"availableFrom": "2024-06-10",
		"availableTo":   "2024-06-20T00:00:00.000Z",
		"isAvailable":   true,
	})
	require.Equal(t, http.StatusOK, code)
}

func (s *testServer) book(t *testing.T, who identity, date, clock string, hours float64) (int, envelopeBody) {
	t.Helper()
	return s.do(t, who, http.MethodPost, "/api/student/bookings", map[string]any{
		"tutorId":  asTutor.id,
		"date":     date,
		"time":     clock,
		"duration": hours,
	})
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	s.openJune(t)

	code, env := s.book(t, asStudent, "2024-06-15", "10:00", 1)
	require.Equal(t, http.StatusCreated, code, env.Error)
	booking := decode[bookingResponse](t, env.Data)
	assert.Equal(t, "2024-06-15", booking.Date)
	assert.Equal(t, "10:00", booking.Time)
	assert.Equal(t, 1.0, booking.Duration)
	assert.Equal(t, "PENDING", string(booking.Status))
	assert.Empty(t, booking.AllowedTransitions, "student cannot cancel a pending booking")

	// пересечение
	code, env = s.book(t, asOther, "2024-06-15", "10:30", 1)
	assert.Equal(t, http.StatusConflict, code)
	details := decode[rejectionDetails](t, env.Details)
	assert.Equal(t, scheduling.ReasonSlotConflict, details.Reason)
	assert.Equal(t, []string{booking.ID}, details.Conflicts)

	// касание концами
	code, _ = s.book(t, asOther, "2024-06-15", "11:00", 1)
	assert.Equal(t, http.StatusCreated, code)

	// вне окна
	code, env = s.book(t, asOther, "2024-06-21", "10:00", 1)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.False(t, env.Success)

	code, env = s.do(t, asTutor, http.MethodPatch, "/api/tutor/sessions/"+booking.ID+"/confirm", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "CONFIRMED", string(decode[bookingResponse](t, env.Data).Status))

	code, env = s.do(t, asStudent, http.MethodPatch, "/api/student/bookings/"+booking.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "CANCELLED", string(decode[bookingResponse](t, env.Data).Status))

	// слот освободился
	code, _ = s.book(t, asOther, "2024-06-15", "10:00", 1)
	assert.Equal(t, http.StatusCreated, code)
}

func TestBookingFlow_LateCancellationRejected(t *testing.T) {
	s := newTestServer(t)
	s.openJune(t)

	_, env := s.book(t, asStudent, "2024-06-15", "10:00", 1)
	id := decode[bookingResponse](t, env.Data).ID
	code, _ := s.do(t, asTutor, http.MethodPatch, "/api/tutor/sessions/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, code)

	s.clock.Set(time.Date(2024, time.June, 14, 11, 0, 0, 0, time.UTC))
	code, env = s.do(t, asStudent, http.MethodPatch, "/api/student/bookings/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, code)
	details := decode[transitionDetails](t, env.Details)
	assert.Equal(t, "CONFIRMED", details.From)
	assert.Equal(t, "CANCELLED", details.To)
}

func TestCreateBooking_Validation(t *testing.T) {
	s := newTestServer(t)
	s.openJune(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing tutor", map[string]any{"date": "2024-06-15", "time": "10:00"}, http.StatusBadRequest},
		{"bad date", map[string]any{"tutorId": "tutor-1", "date": "15/06/2024", "time": "10:00"}, http.StatusBadRequest},
		{"bad time", map[string]any{"tutorId": "tutor-1", "date": "2024-06-15", "time": "ten"}, http.StatusBadRequest},
		{"negative duration", map[string]any{"tutorId": "tutor-1", "date": "2024-06-15", "time": "10:00", "duration": -1}, http.StatusBadRequest},
		{"zero duration", map[string]any{"tutorId": "tutor-1", "date": "2024-06-15", "time": "10:00", "duration": 0}, http.StatusBadRequest},
		{"in the past", map[string]any{"tutorId": "tutor-1", "date": "2024-05-15", "time": "10:00"}, http.StatusBadRequest},
		{"timestamp time", map[string]any{"tutorId": "tutor-1", "date": "2024-06-15", "time": "2024-06-15T16:00:00Z"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, asStudent, http.MethodPost, "/api/student/bookings", tt.body)
			assert.Equal(t, tt.want, code, env.Error)
		})
	}
}

func TestCreateBooking_DefaultDuration(t *testing.T) {
	s := newTestServer(t)
	s.openJune(t)

	code, env := s.do(t, asStudent, http.MethodPost, "/api/student/bookings", map[string]any{
		"tutorId": "tutor-1", "date": "2024-06-15", "time": "10:00",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 2.0, decode[bookingResponse](t, env.Data).Duration)
}

func TestCreateBooking_TimestampCarriesDate(t *testing.T) {
	s := newTestServer(t)
	s.openJune(t)

	code, env := s.do(t, asStudent, http.MethodPost, "/api/student/bookings", map[string]any{
		"tutorId":  "tutor-1",
		"date":     "2024-06-15",
		"time":     "2024-06-15T23:30:00-05:00",
		"duration": 1,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	booking := decode[bookingResponse](t, env.Data)
	assert.Equal(t, "2024-06-16", booking.Date)
	assert.Equal(t, "04:30", booking.Time)
	assert.True(t, booking.StartsAt.Equal(time.Date(2024, time.June, 16, 4, 30, 0, 0, time.UTC)), booking.StartsAt)
}

func TestSessionStart(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)

	tests := []struct {
		name      string
		date      string
		clock     string
		loc       *time.Location
		wantDate  model.Date
		wantClock string
		wantErr   bool
	}{
		{"date and clock", "2024-06-15", "10:00", time.UTC, model.NewDate(2024, time.June, 15), "10:00", false},
		{"timestamp wins over date", "2024-06-15", "2024-06-15T23:30:00-05:00", time.UTC, model.NewDate(2024, time.June, 16), "04:30", false},
		{"timestamp in tutor zone", "2024-06-15", "2024-06-15T22:00:00Z", moscow, model.NewDate(2024, time.June, 16), "01:00", false},
		{"bad date", "15.06.2024", "10:00", time.UTC, model.Date{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, clock, err := sessionStart(tt.date, tt.clock, tt.loc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, date)
			assert.Equal(t, tt.wantClock, clock)
		})
	}
}

func TestHoursToDuration(t *testing.T) {
	hours := func(v float64) *float64 { return &v }

	assert.Equal(t, 2*time.Hour, hoursToDuration(nil))
	assert.Equal(t, time.Duration(0), hoursToDuration(hours(0)))
	assert.Equal(t, 90*time.Minute, hoursToDuration(hours(1.5)))
	assert.Equal(t, -time.Hour, hoursToDuration(hours(-1)))
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		who    identity
		method string
		path   string
		want   int
	}{
		{"anonymous booking list", anonymous, http.MethodGet, "/api/student/bookings", http.StatusUnauthorized},
		{"tutor on student route", asTutor, http.MethodGet, "/api/student/bookings", http.StatusForbidden},
		{"student on tutor route", asStudent, http.MethodGet, "/api/tutor/sessions", http.StatusForbidden},
		{"tutor on admin route", asTutor, http.MethodGet, "/api/admin/bookings", http.StatusForbidden},
		{"public availability", anonymous, http.MethodGet, "/api/tutors/tutor-1/availability", http.StatusOK},
		{"public reviews", anonymous, http.MethodGet, "/api/tutors/tutor-1/reviews", http.StatusOK},
		{"unknown booking", asStudent, http.MethodGet, "/api/student/bookings/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := s.do(t, tt.who, tt.method, tt.path, nil)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestGetBooking_Ownership(t *testing.T) {
	s := newTestServer(t)
	s.openJune(t)

	_, env := s.book(t, asStudent, "2024-06-15", "10:00", 1)
	id := decode[bookingResponse](t, env.Data).ID

	code, _ := s.do(t, asStudent, http.MethodGet, "/api/student/bookings/"+id, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, asOther, http.MethodGet, "/api/student/bookings/"+id, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, asTutor, http.MethodGet, "/api/tutor/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAdminBookings(t *testing.T) {
	s := newTestServer(t)
	s.openJune(t)

	var ids []string
	for day := 10; day <= 14; day++ {
		_, env := s.book(t, asStudent, fmt.Sprintf("2024-06-%d", day), "10:00", 1)
		ids = append(ids, decode[bookingResponse](t, env.Data).ID)
	}

	code, env := s.do(t, asAdmin, http.MethodGet, "/api/admin/bookings?page=2&limit=2&status=pending", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 5, env.Pagination.Total)
	assert.Equal(t, 3, env.Pagination.TotalPages)
	assert.Len(t, decode[[]bookingResponse](t, env.Data), 2)

	code, env = s.do(t, asAdmin, http.MethodPatch, "/api/admin/bookings/"+ids[0]+"/status", map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "CANCELLED", string(decode[bookingResponse](t, env.Data).Status))

	code, _ = s.do(t, asAdmin, http.MethodPatch, "/api/admin/bookings/"+ids[0]+"/status", map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, asAdmin, http.MethodPatch, "/api/admin/bookings/"+ids[1]+"/status", map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, asAdmin, http.MethodGet, "/api/admin/bookings?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTutorSessions(t *testing.T) {
	s := newTestServer(t)
	s.openJune(t)

	s.book(t, asStudent, "2024-06-15", "10:00", 1)
	s.book(t, asOther, "2024-06-16", "10:00", 1)

	code, env := s.do(t, asTutor, http.MethodGet, "/api/tutor/sessions", nil)
	require.Equal(t, http.StatusOK, code)
	sessions := decode[[]bookingResponse](t, env.Data)
	require.Len(t, sessions, 2)
	for _, session := range sessions {
		assert.Equal(t, []model.BookingStatus{model.BookingStatusConfirmed}, session.AllowedTransitions)
	}
}

func TestReviewFlow(t *testing.T) {
	s := newTestServer(t)
	s.openJune(t)

	_, env := s.book(t, asStudent, "2024-06-15", "10:00", 1)
	id := decode[bookingResponse](t, env.Data).ID

	review := map[string]any{"bookingId": id, "rating": 5, "comment": "Very helpful"}
	code, _ := s.do(t, asStudent, http.MethodPost, "/api/student/reviews", review)
	assert.Equal(t, http.StatusUnprocessableEntity, code, "session is not completed yet")

	code, _ = s.do(t, asTutor, http.MethodPatch, "/api/tutor/sessions/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, code)
	s.clock.Set(time.Date(2024, time.June, 15, 11, 0, 0, 0, time.UTC))
	code, _ = s.do(t, asTutor, http.MethodPatch, "/api/tutor/sessions/"+id+"/complete", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, asStudent, http.MethodPost, "/api/student/reviews", review)
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, _ = s.do(t, asStudent, http.MethodPost, "/api/student/reviews", review)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, asStudent, http.MethodPost, "/api/student/reviews", map[string]any{"bookingId": id, "rating": 9})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, anonymous, http.MethodGet, "/api/tutors/tutor-1/reviews", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Total)

	code, env = s.do(t, asStudent, http.MethodGet, "/api/student/reviews", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 1)
}

func TestAvailabilityEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, anonymous, http.MethodGet, "/api/tutors/tutor-1/availability", nil)
	require.Equal(t, http.StatusOK, code)
	window := decode[map[string]any](t, env.Data)
	assert.Nil(t, window["availableFrom"])
	assert.Equal(t, false, window["isAvailable"])

	code, _ = s.do(t, asTutor, http.MethodPut, "/api/tutor/availability", map[string]any{
		"availableFrom": "2024-06-20", "availableTo": "2024-06-10", "isAvailable": true,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, asTutor, http.MethodPut, "/api/tutor/availability", map[string]any{
		"availableFrom": "June 10", "availableTo": "2024-06-20", "isAvailable": true,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	s.openJune(t)
	code, env = s.do(t, anonymous, http.MethodGet, "/api/tutors/tutor-1/availability", nil)
	require.Equal(t, http.StatusOK, code)
	window = decode[map[string]any](t, env.Data)
	assert.Equal(t, "2024-06-10", window["availableFrom"])
	assert.Equal(t, "2024-06-20", window["availableTo"])
	assert.Equal(t, true, window["isAvailable"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, anonymous, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{scheduling.Rejected{Reason: scheduling.ReasonInvalidInterval}, http.StatusBadRequest},
		{scheduling.Rejected{Reason: scheduling.ReasonOutsideAvailability}, http.StatusUnprocessableEntity},
		{scheduling.Rejected{Reason: scheduling.ReasonSlotConflict}, http.StatusConflict},
		{&scheduling.TransitionError{}, http.StatusConflict},
		{service.InvalidRequest("x"), http.StatusBadRequest},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrBookingNotFound, http.StatusNotFound},
		{service.ErrReviewNotAllowed, http.StatusUnprocessableEntity},
		{repository.ErrReviewExists, http.StatusConflict},
		{fmt.Errorf("update: %w", repository.ErrStaleBooking), http.StatusConflict},
		{fmt.Errorf("get: %w", remote.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
