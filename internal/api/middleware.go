package api

import (
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sentryFlushTimeout = 2 * time.Second
	requestIDKey       = "request_id"
)

// RequestTracking adds a request ID and logs one line per request.
func RequestTracking(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := "info"
		switch {
		case status >= http.StatusInternalServerError:
			level = "error"
		case status >= http.StatusBadRequest:
			level = "warning"
		}
		logger.Printf("%s: %s %s %d %dms request_id=%s",
			level, c.Request.Method, c.Request.URL.Path, status, time.Since(start).Milliseconds(), requestID)
	}
}

// SentryMiddleware returns the Sentry middleware with custom configuration.
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         sentryFlushTimeout,
	})
}

// RecoverWithSentry recovers from panics and sends them to Sentry.
func RecoverWithSentry(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				if hub := sentrygin.GetHubFromContext(c); hub != nil {
					hub.WithScope(func(scope *sentry.Scope) {
						scope.SetRequest(c.Request)
						scope.SetTag(requestIDKey, c.GetString(requestIDKey))
						hub.RecoverWithContext(c.Request.Context(), err)
					})
				}
				logger.Printf("error: panic recovered: %v (path=%s request_id=%s)", err, c.Request.URL.Path, c.GetString(requestIDKey))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Internal server error",
					"request_id": c.GetString(requestIDKey),
				})
			}
		}()
		c.Next()
	}
}

// captureError reports err to the request's Sentry hub, if any.
func captureError(c *gin.Context, err error) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag(requestIDKey, c.GetString(requestIDKey))
			hub.CaptureException(err)
		})
	}
}
