package middleware

import (
	"runtime/debug"
	"time"

	"linkvault/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader is read from requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

const (
	ctxRequestID = "request_id"
	ctxLogger    = "logger"
)

// RequestID tags each request with the incoming X-Request-ID or a new UUID
// and stores a logger carrying it.
func RequestID(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.NewNop()
	}
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ctxRequestID, rid)
		c.Set(ctxLogger, base.With(zap.String("request_id", rid)))
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}

// Logger returns the request scoped logger, or a no-op logger outside a
// request tagged by RequestID.
func Logger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(ctxLogger); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

// AccessLog writes one line per request after it completes. Handler errors
// recorded with c.Error are logged with their cause.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := Logger(c)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		for _, e := range c.Errors {
			fields = append(fields, zap.Error(e.Err))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("http", fields...)
		case status >= 400:
			log.Warn("http", fields...)
		default:
			log.Info("http", fields...)
		}
	}
}

// Recovery turns a panic into a coded 500 and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				Logger(c).Error("panic recovered",
					zap.Any("error", r),
					zap.String("stack", string(debug.Stack())))
				apperror.HandleError(c, apperror.New(apperror.ErrInternal, "internal server error"))
			}
		}()
		c.Next()
	}
}
