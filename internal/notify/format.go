package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// StatusDisplay отображение статуса бронирования
type StatusDisplay struct {
	Emoji string
	Text  string
}

// GetStatusDisplay возвращает emoji и текст для статуса бронирования
func GetStatusDisplay(status model.BookingStatus) StatusDisplay {
	displays := map[model.BookingStatus]StatusDisplay{
		model.BookingStatusPending:   {"⏳", "Awaiting confirmation"},
		model.BookingStatusConfirmed: {"✅", "Confirmed"},
		model.BookingStatusCompleted: {"✔️", "Completed"},
		model.BookingStatusCancelled: {"❌", "Cancelled"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Unknown"}
}

var eventTitles = map[EventKind]string{
	EventRequested: "New session request",
	EventConfirmed: "Session confirmed",
	EventCompleted: "Session completed",
	EventCancelled: "Session cancelled",
}

// FormatEvent текст уведомления
func FormatEvent(event Event, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	b := event.Booking
	display := GetStatusDisplay(b.Status)
	start := b.Interval.Start.In(loc)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", display.Emoji, eventTitles[event.Kind])
	fmt.Fprintf(&sb, "Booking: %s\n", b.ID)
	fmt.Fprintf(&sb, "Tutor: %s\n", b.TutorID)
	fmt.Fprintf(&sb, "Student: %s\n", b.StudentID)
	fmt.Fprintf(&sb, "When: %s, %s-%s (%s)\n",
		start.Format("Mon 02 Jan 2006"),
		start.Format("15:04"),
		b.Interval.End.In(loc).Format("15:04"),
		formatDuration(b.Interval.Duration()))
	fmt.Fprintf(&sb, "Status: %s", display.Text)
	if event.Actor.Role != "" {
		fmt.Fprintf(&sb, "\nBy: %s %s", strings.ToLower(string(event.Actor.Role)), event.Actor.ID)
	}
	return sb.String()
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%d min", minutes)
	case minutes == 0 && hours == 1:
		return "1 hour"
	case minutes == 0:
		return fmt.Sprintf("%d hours", hours)
	default:
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	}
}
