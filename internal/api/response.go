package api

import (
	"net/http"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/gin-gonic/gin"
)

// Response единый формат ответа: {success, data, error, details, pagination}
type Response struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    any         `json:"details,omitempty"`
	Pagination *model.Page `json:"pagination,omitempty"`
}

// OK 200 успешный ответ
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Created 201 ресурс создан
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// OKPage 200 страница списка
func OKPage(c *gin.Context, data any, page model.Page) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Pagination: &page})
}

// Fail ответ с ошибкой
func Fail(c *gin.Context, status int, message string, details any) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: message, Details: details})
}
