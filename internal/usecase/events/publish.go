package events

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/logger"
)

// Publish отдаёт событие в канал уведомлений после коммита.
// Ошибка только логируется: уведомление не часть денежной операции.
func Publish(ctx context.Context, sink repository.NotificationSink, event entity.OrderEvent) {
	if sink == nil {
		return
	}
	if err := sink.Notify(ctx, event); err != nil {
		logger.Component("events").WithFields(logrus.Fields{
			"order_id": event.OrderID,
			"kind":     event.Kind,
			"to":       event.ToStatus,
		}).WithError(err).Warn("не удалось отправить уведомление")
	}
}
