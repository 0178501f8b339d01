package scheduling_test

import (
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/scheduling"
	"github.com/stretchr/testify/assert"
)

func juneWindow(accepting bool) model.AvailabilityWindow {
	from := model.NewDate(2024, time.June, 1)
	to := model.NewDate(2024, time.June, 30)
	return model.AvailabilityWindow{TutorID: "tutor-1", From: &from, To: &to, IsAccepting: accepting}
}

func TestIsOpenOn(t *testing.T) {
	window := juneWindow(true)

	tests := []struct {
		name string
		date model.Date
		want bool
	}{
		{"first day inclusive", model.NewDate(2024, time.June, 1), true},
		{"middle", model.NewDate(2024, time.June, 15), true},
		{"last day inclusive", model.NewDate(2024, time.June, 30), true},
		{"day before", model.NewDate(2024, time.May, 31), false},
		{"day after", model.NewDate(2024, time.July, 1), false},
		{"other year", model.NewDate(2025, time.June, 15), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scheduling.IsOpenOn(window, tt.date))
		})
	}
}

func TestIsOpenOn_NotAccepting(t *testing.T) {
	assert.False(t, scheduling.IsOpenOn(juneWindow(false), model.NewDate(2024, time.June, 15)))
}

func TestIsOpenOn_UnconfiguredIsClosed(t *testing.T) {
	from := model.NewDate(2024, time.June, 1)

	assert.False(t, scheduling.IsOpenOn(model.AvailabilityWindow{IsAccepting: true}, from))
	assert.False(t, scheduling.IsOpenOn(model.AvailabilityWindow{From: &from, IsAccepting: true}, from))
	assert.False(t, scheduling.IsOpenOn(model.AvailabilityWindow{To: &from, IsAccepting: true}, from))
}
