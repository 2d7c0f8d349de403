// Package packorder - покупка паков и блокировка покупки продавцом
// с возвратом VP покупателю и списанием VC у продавца.
package packorder

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
	tx     repository.TxManager
	orders repository.PackOrderRepository
	ledger *ledger.Ledger
	sink   repository.NotificationSink
	log    *logrus.Entry
}

func NewEngine(tx repository.TxManager, orders repository.PackOrderRepository, l *ledger.Ledger, sink repository.NotificationSink) *Engine {
	return &Engine{
		tx:     tx,
		orders: orders,
		ledger: l,
		sink:   sink,
		log:    logger.Component("pack_order"),
	}
}

func idempotencyKey(orderID uuid.UUID, step string) string {
	return fmt.Sprintf("pack-order:%s:%s", orderID, step)
}

type PurchaseInput struct {
	OrderID  uuid.UUID
	PackID   uuid.UUID
	SellerID uuid.UUID
	VPAmount int64
	Method   valueobject.PaymentMethod
}

// Purchase списывает с покупателя цену пака в выбранной валюте и сразу
// зачисляет продавцу. Эскроу для паков нет.
func (e *Engine) Purchase(ctx context.Context, actor policy.Actor, in PurchaseInput) (*entity.PackOrder, error) {
	if err := policy.Authenticated(actor); err != nil {
		return nil, err
	}
	order, err := entity.NewPackOrder(in.OrderID, in.PackID, actor.UserID, in.SellerID, in.VPAmount, in.Method)
	if err != nil {
		return nil, err
	}

	order.ChargedAmount = order.VPAmount
	if order.PaymentMethod == valueobject.CurrencyVC {
		order.ChargedAmount = e.ledger.Policy().VPToVC(order.VPAmount)
		if order.ChargedAmount < 1 {
			return nil, apperror.New(apperror.ErrCodeInvalidAmount, "цена пака слишком мала для оплаты VC")
		}
	}

	var (
		result  *entity.PackOrder
		created bool
	)
	err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
		if in.OrderID != uuid.Nil {
			existing, err := e.orders.FindByID(ctx, in.OrderID)
			switch {
			case err == nil:
				if existing.BuyerID != order.BuyerID || existing.PackID != order.PackID || existing.VPAmount != order.VPAmount || existing.PaymentMethod != order.PaymentMethod {
					return apperror.New(apperror.ErrCodeValidation, "заказ с таким id уже существует")
				}
				result = existing
				return nil
			case !apperror.IsNotFound(err):
				return err
			}
		}

		if _, err := e.ledger.Transfer(ctx, ledger.TransferInput{
			From:           order.BuyerID,
			To:             order.SellerID,
			Currency:       order.PaymentMethod,
			Amount:         order.ChargedAmount,
			Reason:         valueobject.ReasonPackPurchase,
			IdempotencyKey: idempotencyKey(order.ID, "purchase"),
		}); err != nil {
			return err
		}
		if err := e.orders.Create(ctx, order); err != nil {
			return err
		}
		result = order
		created = true
		return nil
	})
	metrics.RecordTransition(string(entity.OrderKindPack), string(valueobject.PackOrderActive), err)
	if err != nil {
		return nil, err
	}

	if created {
		e.log.WithFields(logrus.Fields{
			"order_id": result.ID,
			"pack_id":  result.PackID,
			"method":   result.PaymentMethod,
			"charged":  result.ChargedAmount,
		}).Info("пак куплен")
		events.Publish(ctx, e.sink, entity.NewOrderEvent(entity.OrderKindPack, result.ID,
			"", string(result.Status), actor.UserID, result.BuyerID, result.SellerID))
	}
	return result, nil
}

// Ban блокирует покупку. Возврат VP покупателю, списание VC у продавца
// и смена статуса проходят одной транзакцией.
func (e *Engine) Ban(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*entity.PackOrder, error) {
	var result *entity.PackOrder
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := e.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := policy.BanPack(actor, order); err != nil {
			return err
		}

		expectedStatus, expectedVersion := order.Status, order.Version
		estimate := e.ledger.Policy().VPToVC(order.VPAmount)
		// Сумма списания уточняется после clawback, до этого пишем оценку.
		if err := order.Ban(actor.UserID, order.VPAmount, estimate); err != nil {
			return err
		}
		if err := e.orders.UpdateStatus(ctx, order, expectedStatus, expectedVersion); err != nil {
			if apperror.IsConcurrencyConflict(err) {
				return e.classifyConflict(ctx, orderID, err)
			}
			return err
		}

		if _, err := e.ledger.Transfer(ctx, ledger.TransferInput{
			From:           valueobject.SystemAccountID,
			To:             order.BuyerID,
			Currency:       valueobject.CurrencyVP,
			Amount:         order.VPAmount,
			Reason:         valueobject.ReasonPackBanRefund,
			IdempotencyKey: idempotencyKey(order.ID, "ban-refund"),
		}); err != nil {
			return err
		}

		removed, err := e.ledger.Clawback(ctx, order.SellerID, estimate, idempotencyKey(order.ID, "ban-clawback"))
		if err != nil {
			return err
		}
		if removed != estimate {
			// Версия уже увеличена Ban, повторная запись идёт от неё.
			order.ClawedBackVC = removed
			if err := e.orders.UpdateStatus(ctx, order, order.Status, order.Version); err != nil {
				return err
			}
		}
		result = order
		return nil
	})
	metrics.RecordTransition(string(entity.OrderKindPack), string(valueobject.PackOrderBanned), err)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"order_id":       result.ID,
		"refunded_vp":    result.RefundedVP,
		"clawed_back_vc": result.ClawedBackVC,
		"actor":          actor.UserID,
	}).Info("покупка пака заблокирована")
	events.Publish(ctx, e.sink, entity.NewOrderEvent(entity.OrderKindPack, result.ID,
		string(valueobject.PackOrderActive), string(result.Status), actor.UserID, result.BuyerID, result.SellerID))
	return result, nil
}

// classifyConflict: если заказ уже заблокирован параллельным вызовом,
// второй участник получает AlreadyBanned.
func (e *Engine) classifyConflict(ctx context.Context, orderID uuid.UUID, cause error) error {
	current, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if current.Status == valueobject.PackOrderBanned {
		return apperror.Wrap(cause, apperror.ErrCodeAlreadyBanned, "заказ уже заблокирован")
	}
	return cause
}

func (e *Engine) Get(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*entity.PackOrder, error) {
	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.ViewPackOrder(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (e *Engine) ListMine(ctx context.Context, actor policy.Actor, side string, limit, offset int) ([]*entity.PackOrder, error) {
	if err := policy.Authenticated(actor); err != nil {
		return nil, err
	}
	return e.orders.List(ctx, repository.OrderFilter{
		UserID:   actor.UserID,
		AsBuyer:  side == "buyer",
		AsSeller: side == "seller",
		Limit:    limit,
		Offset:   offset,
	}.Normalize())
}
