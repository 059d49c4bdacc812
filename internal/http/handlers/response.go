// Package handlers implements the contact log HTTP API on Gin.
//
// Every failure is answered with ErrorResponse and a stable code from
// errors.go. Server errors are logged on the request-scoped logger and the
// client only sees a generic message plus the request id to quote.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contactlog-backend/internal/http/middleware"
)

// msgInternal replaces error details in 5xx bodies.
const msgInternal = "Something went wrong. Please try again."

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code
	Code string `json:"code" example:"not_found"`
	// Safe to show to users
	Message string `json:"message" example:"Page not found."`
	// Per-field messages, present on validation failures
	Fields map[string]string `json:"fields,omitempty"`
}

func requestID(c *gin.Context) string {
	return c.Writer.Header().Get("X-Request-ID")
}

// fail aborts with status and an ErrorResponse carrying code and msg.
func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: requestID(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router answer fallbacks with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr reports err as a server error. The error is logged and attached
// to the Gin context for the access log; the body gets msgInternal.
func failErr(c *gin.Context, code string, err error) {
	_ = c.Error(err)
	middleware.LoggerFrom(c).Error().Err(err).Str("code", code).Msg("request failed")
	fail(c, http.StatusInternalServerError, code, msgInternal)
}

// failFields aborts with 422 and the per-field messages of a rejected
// submission.
func failFields(c *gin.Context, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
		RequestID: requestID(c),
		Code:      ErrCodeValidation,
		Message:   "Please correct the highlighted fields.",
		Fields:    fields,
	})
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
