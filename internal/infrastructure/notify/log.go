package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
)

// LogSink пишет события в журнал. Используется, когда других приёмников нет.
type LogSink struct {
	log *logrus.Entry
}

func NewLogSink(log *logrus.Entry) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(_ context.Context, event entity.OrderEvent) error {
	s.log.WithFields(logrus.Fields{
		"order_id":   event.OrderID,
		"kind":       event.Kind,
		"from":       event.FromStatus,
		"to":         event.ToStatus,
		"actor":      event.Actor,
		"recipients": len(event.Recipients),
	}).Info("событие заказа")
	return nil
}
