package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/metrics"
)

// RequestLogger пишет каждый запрос в журнал и в метрики.
func RequestLogger() gin.HandlerFunc {
	log := logger.Component("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), elapsed)

		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       route,
			"status":     c.Writer.Status(),
			"latency_ms": elapsed.Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("запрос завершился ошибкой")
		case status >= 400:
			entry.Info("запрос отклонён")
		default:
			entry.Debug("запрос обработан")
		}
	}
}
