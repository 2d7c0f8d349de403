package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/goroutine"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/metrics"
)

const deliverTimeout = 5 * time.Second

// Named - приёмник с именем для логов и метрик.
type Named struct {
	Name string
	Sink repository.NotificationSink
}

// Dispatcher раздаёт события всем приёмникам в фоне.
// Вызывающий не ждёт доставки, Notify всегда возвращает nil.
type Dispatcher struct {
	sinks    []Named
	recovery *goroutine.RecoveryHandler
	log      *logrus.Entry
}

func NewDispatcher(sinks ...Named) *Dispatcher {
	log := logger.Component("notify")
	return &Dispatcher{
		sinks:    sinks,
		recovery: goroutine.NewRecoveryHandler(log),
		log:      log,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, event entity.OrderEvent) error {
	// запрос завершится раньше доставки, значения контекста нужны, отмена нет
	detached := context.WithoutCancel(ctx)
	for _, s := range d.sinks {
		s := s
		d.recovery.SafeGoWithContext(detached, func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
			defer cancel()
			if err := s.Sink.Notify(ctx, event); err != nil {
				metrics.RecordNotificationFailure(s.Name)
				d.log.WithFields(logrus.Fields{
					"sink":     s.Name,
					"order_id": event.OrderID,
					"to":       event.ToStatus,
				}).WithError(err).Warn("приёмник не принял событие")
			}
		})
	}
	return nil
}

// Wait ждёт доставки уже отправленных событий.
func (d *Dispatcher) Wait() {
	d.recovery.Wait()
}
