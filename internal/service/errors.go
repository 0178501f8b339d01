package service

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden        = errors.New("no permission for this action")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrReviewNotAllowed = errors.New("only completed sessions can be reviewed")
)

// InvalidRequest ошибка валидации входных данных, оборачивает ErrInvalidRequest
func InvalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
