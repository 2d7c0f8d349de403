package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/interface/http/response"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

// ErrorHandler отдаёт ошибки, добавленные через c.Error, в общем формате
// и перехватывает panic обработчиков.
func ErrorHandler() gin.HandlerFunc {
	log := logger.Component("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"panic":  r,
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Errorf("panic в обработчике\n%s", debug.Stack())
				if !c.Writer.Written() {
					response.Error(c, apperror.New(apperror.ErrCodeInternal, "panic"))
				}
			}
		}()

		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		if apperror.CodeOf(err) == apperror.ErrCodeInternal {
			log.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).WithError(err).Error("ошибка запроса")
		}
		response.Error(c, err)
	}
}
