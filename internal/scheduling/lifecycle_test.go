package scheduling_test

import (
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/scheduling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lessonStart = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func bookingWith(status model.BookingStatus) model.Booking {
	return model.Booking{
		ID:        "b-1",
		StudentID: "s-1",
		TutorID:   "t-1",
		Interval:  model.NewInterval(lessonStart, 2*time.Hour),
		Status:    status,
	}
}

func TestTransition_Allowed(t *testing.T) {
	lc := scheduling.NewLifecycle(scheduling.DefaultCancellationGrace)
	early := lessonStart.Add(-72 * time.Hour)

	tests := []struct {
		name   string
		from   model.BookingStatus
		role   model.Role
		target model.BookingStatus
		now    time.Time
	}{
		{"tutor confirms", model.BookingStatusPending, model.RoleTutor, model.BookingStatusConfirmed, early},
		{"admin confirms", model.BookingStatusPending, model.RoleAdmin, model.BookingStatusConfirmed, early},
		{"tutor completes after start", model.BookingStatusConfirmed, model.RoleTutor, model.BookingStatusCompleted, lessonStart.Add(3 * time.Hour)},
		{"tutor completes at start", model.BookingStatusConfirmed, model.RoleTutor, model.BookingStatusCompleted, lessonStart},
		{"student cancels early", model.BookingStatusConfirmed, model.RoleStudent, model.BookingStatusCancelled, early},
		{"admin cancels pending", model.BookingStatusPending, model.RoleAdmin, model.BookingStatusCancelled, early},
		{"admin cancels confirmed late", model.BookingStatusConfirmed, model.RoleAdmin, model.BookingStatusCancelled, lessonStart.Add(-time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bookingWith(tt.from)

			next, err := lc.Transition(b, tt.role, tt.target, tt.now)

			require.NoError(t, err)
			assert.Equal(t, tt.target, next.Status)
			assert.Equal(t, tt.now, next.UpdatedAt)
			assert.Equal(t, tt.from, b.Status, "input booking is not modified")
		})
	}
}

func TestTransition_Rejected(t *testing.T) {
	lc := scheduling.NewLifecycle(scheduling.DefaultCancellationGrace)
	early := lessonStart.Add(-72 * time.Hour)

	tests := []struct {
		name   string
		from   model.BookingStatus
		role   model.Role
		target model.BookingStatus
		now    time.Time
	}{
		{"student confirms", model.BookingStatusPending, model.RoleStudent, model.BookingStatusConfirmed, early},
		{"tutor completes before start", model.BookingStatusConfirmed, model.RoleTutor, model.BookingStatusCompleted, lessonStart.Add(-time.Minute)},
		{"tutor completes pending", model.BookingStatusPending, model.RoleTutor, model.BookingStatusCompleted, lessonStart.Add(time.Hour)},
		{"admin completes", model.BookingStatusConfirmed, model.RoleAdmin, model.BookingStatusCompleted, lessonStart.Add(time.Hour)},
		{"student cancels pending", model.BookingStatusPending, model.RoleStudent, model.BookingStatusCancelled, early},
		{"tutor cancels", model.BookingStatusConfirmed, model.RoleTutor, model.BookingStatusCancelled, early},
		{"admin cancels completed", model.BookingStatusCompleted, model.RoleAdmin, model.BookingStatusCancelled, early},
		{"admin reopens cancelled", model.BookingStatusCancelled, model.RoleAdmin, model.BookingStatusPending, early},
		{"confirm twice", model.BookingStatusConfirmed, model.RoleTutor, model.BookingStatusConfirmed, early},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bookingWith(tt.from)

			next, err := lc.Transition(b, tt.role, tt.target, tt.now)

			require.ErrorIs(t, err, scheduling.ErrInvalidTransition)
			var transitionErr *scheduling.TransitionError
			require.ErrorAs(t, err, &transitionErr)
			assert.Equal(t, tt.from, transitionErr.From)
			assert.Equal(t, tt.target, transitionErr.To)
			assert.Equal(t, b, next)
		})
	}
}

func TestTransition_StudentCancellationGrace(t *testing.T) {
	lc := scheduling.NewLifecycle(24 * time.Hour)
	b := bookingWith(model.BookingStatusConfirmed)

	_, err := lc.Transition(b, model.RoleStudent, model.BookingStatusCancelled, lessonStart.Add(-23*time.Hour))
	require.ErrorIs(t, err, scheduling.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "notice")

	next, err := lc.Transition(b, model.RoleStudent, model.BookingStatusCancelled, lessonStart.Add(-25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, next.Status)

	_, err = lc.Transition(b, model.RoleStudent, model.BookingStatusCancelled, lessonStart.Add(-24*time.Hour))
	assert.NoError(t, err, "exactly the grace period is enough")
}

func TestAllowed(t *testing.T) {
	lc := scheduling.NewLifecycle(scheduling.DefaultCancellationGrace)
	early := lessonStart.Add(-72 * time.Hour)

	assert.Equal(t,
		[]model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusCancelled},
		lc.Allowed(bookingWith(model.BookingStatusPending), model.RoleAdmin, early))
	assert.Equal(t,
		[]model.BookingStatus{model.BookingStatusCancelled},
		lc.Allowed(bookingWith(model.BookingStatusConfirmed), model.RoleStudent, early))
	assert.Empty(t, lc.Allowed(bookingWith(model.BookingStatusConfirmed), model.RoleStudent, lessonStart.Add(-time.Hour)))
	assert.Equal(t,
		[]model.BookingStatus{model.BookingStatusCompleted},
		lc.Allowed(bookingWith(model.BookingStatusConfirmed), model.RoleTutor, lessonStart.Add(time.Hour)))
	assert.Empty(t, lc.Allowed(bookingWith(model.BookingStatusCompleted), model.RoleAdmin, early))
}
