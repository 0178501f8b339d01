package api

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/tutor_scheduler/internal/api/middleware"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/remote"
	"github.com/Freeeeeet/tutor_scheduler/internal/scheduling"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type rejectionDetails struct {
	Reason    scheduling.RejectReason `json:"reason"`
	Conflicts []string                `json:"conflicts,omitempty"`
}

type transitionDetails struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// statusFor отображает ошибку домена на HTTP-код
func statusFor(err error) int {
	switch {
	case errors.Is(err, scheduling.ErrInvalidInterval),
		errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, scheduling.ErrOutsideAvailability),
		errors.Is(err, service.ErrReviewNotAllowed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scheduling.ErrSlotConflict),
		errors.Is(err, scheduling.ErrInvalidTransition),
		errors.Is(err, repository.ErrReviewExists),
		errors.Is(err, repository.ErrStaleBooking):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError пишет ответ об ошибке. Внутренние ошибки логируются и не раскрываются клиенту.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request error",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		msg := "internal server error"
		if status == http.StatusServiceUnavailable {
			msg = "service temporarily unavailable"
		}
		Fail(c, status, msg, nil)
		return
	}

	var details any
	var rejected scheduling.Rejected
	var transitionErr *scheduling.TransitionError
	switch {
	case errors.As(err, &rejected):
		details = rejectionDetails{Reason: rejected.Reason, Conflicts: rejected.Conflicts}
	case errors.As(err, &transitionErr):
		details = transitionDetails{From: string(transitionErr.From), To: string(transitionErr.To), Reason: transitionErr.Reason}
	}

	Fail(c, status, err.Error(), details)
}
