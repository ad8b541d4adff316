package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aimhigh31/work-ten-sub018/internal/codegen"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
	"github.com/aimhigh31/work-ten-sub018/internal/logging"
	"github.com/aimhigh31/work-ten-sub018/internal/middleware"
)

const retryMessage = "could not generate a code, please retry"

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondFailure(c *gin.Context, status int, message string, retryable bool) {
	c.JSON(status, gin.H{
		"success":   false,
		"error":     message,
		"retryable": retryable,
	})
}

// respondError maps domain errors onto HTTP statuses. No code is ever made up
// when the store fails.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, codegen.ErrInvalidInput):
		respondFailure(c, http.StatusBadRequest, err.Error(), false)
	case errors.Is(err, counter.ErrNotFound):
		respondFailure(c, http.StatusNotFound, "counter not found", false)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, counter.ErrStoreUnavailable):
		respondFailure(c, http.StatusServiceUnavailable, retryMessage, true)
	case errors.Is(err, counter.ErrConflict):
		respondFailure(c, http.StatusConflict, retryMessage, true)
	default:
		logging.WithComponent("http").WithError(err).
			WithField("request_id", middleware.GetRequestID(c)).
			Error("unhandled error")
		respondFailure(c, http.StatusInternalServerError, "internal error", false)
	}
}
