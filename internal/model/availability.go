package model

import "time"

// AvailabilityWindow окно доступности репетитора.
// From/To == nil означает, что репетитор ни разу не настраивал доступность.
type AvailabilityWindow struct {
	TutorID     string     `json:"tutorId"`
	From        *Date      `json:"availableFrom"`
	To          *Date      `json:"availableTo"`
	IsAccepting bool       `json:"isAvailable"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// IsConfigured проверяет, что обе границы окна заданы
func (w AvailabilityWindow) IsConfigured() bool {
	return w.From != nil && w.To != nil
}
