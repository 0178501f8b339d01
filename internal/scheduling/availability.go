package scheduling

import "github.com/Freeeeeet/tutor_scheduler/internal/model"

// IsOpenOn проверяет, принимает ли репетитор занятия в указанную дату.
// Ненастроенное окно считается закрытым.
func IsOpenOn(window model.AvailabilityWindow, date model.Date) bool {
	if !window.IsAccepting || !window.IsConfigured() {
		return false
	}
	return !date.Before(*window.From) && !date.After(*window.To)
}
