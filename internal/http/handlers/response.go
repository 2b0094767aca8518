// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response utilities shared by every endpoint: the
// error envelope, the translation of service errors into statuses and codes,
// and the success helpers.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "listing not found"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agro-classifieds/internal/http/middleware"
	"github.com/tbourn/agro-classifieds/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"listing not found"`
	// Per-field validation messages, present with validation_failed only
	Fields map[string]string `json:"fields,omitempty"`
}

// fail aborts the request with a structured error. 5xx responses are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, ErrorResponse{Code: code, Message: msg})
}

func failWith(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = middleware.GetRequestID(c)
	if resp.RequestID == "" {
		resp.RequestID = c.Writer.Header().Get("X-Request-ID")
	}
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's NoRoute/NoMethod.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failFromErr maps a service error onto the envelope:
//
//	ValidationError / ErrValidation -> 422 validation_failed (+ fields)
//	ErrUnauthorized                 -> 403 forbidden
//	ErrNotFound, ErrImageNotFound   -> 404 not_found
//	ErrInvalidTransition            -> 409 conflict
//	ErrStorage                      -> 502 storage_failed
//	ErrPersistence                  -> 500 persistence_failed
//
// Server-side details never reach the client; the underlying error is
// attached to the Gin context so the access log records it.
func failFromErr(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		failWith(c, http.StatusUnprocessableEntity, ErrorResponse{
			Code:    ErrCodeValidation,
			Message: ve.Error(),
			Fields:  ve.Fields,
		})
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not allowed to perform this action")
	case errors.Is(err, services.ErrImageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "image not found")
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "listing not found")
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeConflict, "transition not allowed from the current state")
	case errors.Is(err, services.ErrStorage):
		_ = c.Error(err)
		fail(c, http.StatusBadGateway, ErrCodeStorage, "image storage unavailable")
	case errors.Is(err, services.ErrPersistence):
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodePersistence, "could not save changes")
	case errors.Is(err, context.DeadlineExceeded):
		_ = c.Error(err)
		fail(c, http.StatusGatewayTimeout, ErrCodeInternal, "request timed out")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
