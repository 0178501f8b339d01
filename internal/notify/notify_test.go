package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	params []*bot.SendMessageParams
	err    error
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.params = append(f.params, params)
	return &models.Message{}, f.err
}

func sampleEvent() Event {
	start := time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)
	return Event{
		Kind: EventRequested,
		Booking: model.Booking{
			ID:        "b-1",
			TutorID:   "t-1",
			StudentID: "s-1",
			Status:    model.BookingStatusPending,
			Interval:  model.NewInterval(start, 2*time.Hour),
		},
		Actor: model.Actor{ID: "s-1", Role: model.RoleStudent},
	}
}

func TestFormatEvent(t *testing.T) {
	text := FormatEvent(sampleEvent(), time.UTC)

	assert.Contains(t, text, "⏳ New session request")
	assert.Contains(t, text, "Booking: b-1")
	assert.Contains(t, text, "Sat 15 Jun 2024, 10:00-12:00 (2 hours)")
	assert.Contains(t, text, "Status: Awaiting confirmation")
	assert.Contains(t, text, "By: student s-1")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45 min", formatDuration(45*time.Minute))
	assert.Equal(t, "1 hour", formatDuration(time.Hour))
	assert.Equal(t, "3 hours", formatDuration(3*time.Hour))
	assert.Equal(t, "1h 30m", formatDuration(90*time.Minute))
}

func TestEventFor(t *testing.T) {
	assert.Equal(t, EventConfirmed, EventFor(model.BookingStatusConfirmed))
	assert.Equal(t, EventCompleted, EventFor(model.BookingStatusCompleted))
	assert.Equal(t, EventCancelled, EventFor(model.BookingStatusCancelled))
	assert.Equal(t, EventRequested, EventFor(model.BookingStatusPending))
}

func TestTelegramNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramNotifier(sender, -100500, time.UTC, zap.NewNop())

	require.NoError(t, n.Notify(context.Background(), sampleEvent()))
	require.Len(t, sender.params, 1)
	assert.Equal(t, int64(-100500), sender.params[0].ChatID)
	assert.Contains(t, sender.params[0].Text, "New session request")
}

func TestTelegramNotifier_Error(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram is down")}
	n := NewTelegramNotifier(sender, 1, time.UTC, zap.NewNop())

	err := n.Notify(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "telegram is down")
}
