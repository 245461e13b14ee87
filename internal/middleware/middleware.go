package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/eventhub/internal/app/models/dto"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger logs one line per request with its status and latency
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}
		if caller := CallerFrom(c); caller != nil {
			event = event.Str("userID", caller.UserID)
		}
		event.
			Str("requestID", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("clientIP", c.ClientIP()).
			Msg("Request handled")
	}
}

// Recovery turns panics into an internal error envelope
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
				detail := dto.NewErrorDetail(dto.ErrorCodeInternal, "Internal server error")
				c.AbortWithStatusJSON(500, dto.NewErrorResponse(detail))
			}
		}()
		c.Next()
	}
}

// NoRoute answers unknown paths with the not-found envelope
func NoRoute(c *gin.Context) {
	HandleAPIError(c, apperrors.NewNotFoundError("Route not found"))
}
