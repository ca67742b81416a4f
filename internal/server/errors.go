package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nibzard/taskboard/internal/task"
)

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	var (
		ve *task.ValidationError
		br *task.BadRequestError
		nf *task.NotFoundError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &br):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the message shown to clients. Internal failures
// are logged but not described.
func publicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

// abortJSON writes an {error} body for err and logs server-side failures.
func (s *Server) abortJSON(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": publicMessage(err, status)})
}
