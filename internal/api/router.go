package api

import (
	"github.com/Freeeeeet/tutor_scheduler/internal/api/middleware"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	Production     bool
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter собирает gin-движок со всеми маршрутами
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.Use(middleware.RateLimit(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))
	{
		// Публичные
		api.GET("/tutors/:id/availability", h.GetAvailability)
		api.GET("/tutors/:id/reviews", h.ListTutorReviews)

		authorized := api.Group("")
		authorized.Use(middleware.Identity())

		student := authorized.Group("/student", middleware.RequireRole(model.RoleStudent))
		{
			student.POST("/bookings", h.CreateBooking)
			student.GET("/bookings", h.ListStudentBookings)
			student.GET("/bookings/:id", h.GetBooking)
			student.PATCH("/bookings/:id/cancel", h.CancelBooking)
			student.POST("/reviews", h.CreateReview)
			student.GET("/reviews", h.ListStudentReviews)
		}

		tutor := authorized.Group("/tutor", middleware.RequireRole(model.RoleTutor))
		{
			tutor.PUT("/availability", h.SetAvailability)
			tutor.GET("/sessions", h.ListTutorSessions)
			tutor.GET("/sessions/:id", h.GetBooking)
			tutor.PATCH("/sessions/:id/confirm", h.ConfirmSession)
			tutor.PATCH("/sessions/:id/complete", h.CompleteSession)
		}

		admin := authorized.Group("/admin", middleware.RequireRole(model.RoleAdmin))
		{
			admin.GET("/bookings", h.ListAllBookings)
			admin.PATCH("/bookings/:id/status", h.UpdateBookingStatus)
		}
	}

	return r
}
