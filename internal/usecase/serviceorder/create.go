package serviceorder

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/metrics"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/vix-backend/internal/usecase/events"
	"github.com/ignatzorin/vix-backend/internal/usecase/ledger"
)

type CreateInput struct {
	// OrderID задаёт клиент, чтобы повтор запроса не создал второй заказ.
	OrderID   uuid.UUID
	SellerID  uuid.UUID
	ServiceID uuid.UUID
	VPAmount  int64
	Features  []entity.Feature
}

// Create создаёт заказ и переводит VP покупателя на эскроу.
func (e *Engine) Create(ctx context.Context, actor policy.Actor, in CreateInput) (*entity.ServiceOrder, error) {
	if err := policy.Authenticated(actor); err != nil {
		return nil, err
	}
	if e.minAmount > 0 && in.VPAmount > 0 && in.VPAmount < e.minAmount {
		return nil, apperror.Newf(apperror.ErrCodeInvalidAmount, "минимальная сумма заказа %d VP", e.minAmount)
	}
	order, err := entity.NewServiceOrder(in.OrderID, actor.UserID, in.SellerID, in.ServiceID, in.VPAmount, in.Features)
	if err != nil {
		return nil, err
	}

	var (
		result  *entity.ServiceOrder
		created bool
	)
	err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
		if in.OrderID != uuid.Nil {
			existing, err := e.orders.FindByID(ctx, in.OrderID)
			switch {
			case err == nil:
				if !sameRequest(existing, order) {
					return apperror.New(apperror.ErrCodeValidation, "заказ с таким id уже существует")
				}
				result = existing
				return nil
			case !apperror.IsNotFound(err):
				return err
			}
		}

		if _, err := e.accounts.FindByID(ctx, order.SellerID); err != nil {
			if apperror.IsNotFound(err) {
				return apperror.New(apperror.ErrCodeNotFound, "счёт исполнителя не найден")
			}
			return err
		}

		if _, err := e.ledger.Transfer(ctx, ledger.TransferInput{
			From:           order.BuyerID,
			To:             valueobject.EscrowAccountID,
			Currency:       valueobject.CurrencyVP,
			Amount:         order.VPAmount,
			Reason:         valueobject.ReasonOrderEscrow,
			IdempotencyKey: idempotencyKey(order.ID, "create"),
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
	metrics.RecordTransition(string(entity.OrderKindService), string(valueobject.ServiceOrderPendingAcceptance), err)
	if err != nil {
		return nil, err
	}

	if created {
		e.log.WithFields(logrus.Fields{
			"order_id":  result.ID,
			"buyer_id":  result.BuyerID,
			"seller_id": result.SellerID,
			"vp_amount": result.VPAmount,
		}).Info("заказ услуги создан, VP в эскроу")
		events.Publish(ctx, e.sink, entity.NewOrderEvent(entity.OrderKindService, result.ID,
			"", string(result.Status), actor.UserID, result.BuyerID, result.SellerID))
	}
	return result, nil
}

func sameRequest(existing, requested *entity.ServiceOrder) bool {
	return existing.BuyerID == requested.BuyerID &&
		existing.SellerID == requested.SellerID &&
		existing.ServiceID == requested.ServiceID &&
		existing.VPAmount == requested.VPAmount
}
