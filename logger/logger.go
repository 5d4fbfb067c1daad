package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// RequestIDHeader carries the request id in and out of the service
	RequestIDHeader = "X-Request-ID"

	contextKey = "logger"
)

var log *zap.Logger

// InitLogger initializes the global logger
func InitLogger(cfg *config.Config) {
	var logConfig zap.Config
	if cfg.IsProduction() {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}
	logConfig.Level.SetLevel(level)

	var err error
	log, err = logConfig.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	log.Info("Logger initialized", zap.String("level", level.String()))
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if log == nil {
		// Tests and tools may run without InitLogger
		log = zap.NewNop()
	}
	return log
}

// SetLogger replaces the global logger (primarily for testing)
func SetLogger(l *zap.Logger) {
	log = l
}

// WithContext stores a request-scoped logger on the gin context
func WithContext(c *gin.Context, l *zap.Logger) {
	c.Set(contextKey, l)
}

// FromContext retrieves the request-scoped logger, falling back to the global
// logger tagged with whatever request id is available
func FromContext(c *gin.Context) *zap.Logger {
	if l, ok := c.Get(contextKey); ok {
		if zl, ok := l.(*zap.Logger); ok {
			return zl
		}
	}

	requestID := c.GetHeader(RequestIDHeader)
	if requestID == "" {
		requestID = "unknown"
	}
	return GetLogger().With(zap.String("request_id", requestID))
}

// Middleware logs every HTTP request once it has been handled
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []zapcore.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}

		reqLog := FromContext(c)
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			reqLog.Error("HTTP request failed", fields...)
			return
		}
		if c.Writer.Status() >= 500 {
			reqLog.Error("HTTP request failed", fields...)
			return
		}
		reqLog.Info("HTTP request completed", fields...)
	}
}
