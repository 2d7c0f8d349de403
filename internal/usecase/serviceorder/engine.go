// Package serviceorder - машина состояний заказа услуги с эскроу.
package serviceorder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/metrics"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/vix-backend/internal/usecase/events"
	"github.com/ignatzorin/vix-backend/internal/usecase/ledger"
)

type Engine struct {
	tx       repository.TxManager
	orders   repository.ServiceOrderRepository
	accounts repository.AccountRepository
	ledger   *ledger.Ledger
	sink     repository.NotificationSink
	log      *logrus.Entry
	// minAmount - нижний предел суммы заказа, 0 - только общее правило >= 1.
	minAmount int64
}

func NewEngine(tx repository.TxManager, orders repository.ServiceOrderRepository, accounts repository.AccountRepository, l *ledger.Ledger, sink repository.NotificationSink) *Engine {
	return &Engine{
		tx:       tx,
		orders:   orders,
		accounts: accounts,
		ledger:   l,
		sink:     sink,
		log:      logger.Component("service_order"),
	}
}

func (e *Engine) SetMinAmount(amount int64) {
	e.minAmount = amount
}

// idempotencyKey строится из id заказа и имени перехода.
func idempotencyKey(orderID uuid.UUID, step string) string {
	return fmt.Sprintf("service-order:%s:%s", orderID, step)
}

// transition - общий шаг перехода: проверка прав, CAS статуса, движение средств.
// Запись статуса идёт первой, поэтому проигравший гонку не двигает деньги.
func (e *Engine) transition(
	ctx context.Context,
	actor policy.Actor,
	orderID uuid.UUID,
	op policy.Operation,
	mutate func(o *entity.ServiceOrder) error,
	settle func(ctx context.Context, o *entity.ServiceOrder) error,
) (*entity.ServiceOrder, error) {
	var (
		before *entity.ServiceOrder
		after  *entity.ServiceOrder
	)
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := e.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := policy.ServiceOrder(op, actor, order); err != nil {
			return err
		}

		before = order.Clone()
		if err := mutate(order); err != nil {
			return err
		}

		if err := e.orders.UpdateStatus(ctx, order, before.Status, before.Version); err != nil {
			if apperror.IsConcurrencyConflict(err) {
				return e.classifyConflict(ctx, orderID, order.Status, err)
			}
			return err
		}

		if settle != nil {
			if err := settle(ctx, order); err != nil {
				return err
			}
		}
		after = order
		return nil
	})

	target := string(op)
	if after != nil {
		target = string(after.Status)
	}
	metrics.RecordTransition(string(entity.OrderKindService), target, err)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"order_id": after.ID,
		"from":     before.Status,
		"to":       after.Status,
		"actor":    actor.UserID,
	}).Info("статус заказа услуги изменён")

	events.Publish(ctx, e.sink, entity.NewOrderEvent(entity.OrderKindService, after.ID,
		string(before.Status), string(after.Status), actor.UserID, after.BuyerID, after.SellerID))
	return after, nil
}

// classifyConflict перечитывает заказ после неудачного CAS. Если статус уже
// ушёл туда, откуда целевой переход невозможен, это InvalidTransition,
// иначе конфликт можно повторить.
func (e *Engine) classifyConflict(ctx context.Context, orderID uuid.UUID, target valueobject.ServiceOrderStatus, cause error) error {
	current, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !current.Status.CanTransitionTo(target) {
		return apperror.Wrap(cause, apperror.ErrCodeInvalidTransition,
			fmt.Sprintf("заказ уже в статусе %s, переход в %s невозможен", current.Status, target))
	}
	return cause
}
