package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier пишет события в лог, когда Telegram не настроен
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	n.logger.Info("Booking event",
		zap.String("event", string(event.Kind)),
		zap.String("booking_id", event.Booking.ID),
		zap.String("tutor_id", event.Booking.TutorID),
		zap.String("student_id", event.Booking.StudentID),
		zap.Time("start", event.Booking.Interval.Start),
		zap.String("status", string(event.Booking.Status)),
	)
	return nil
}
