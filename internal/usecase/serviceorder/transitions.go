package serviceorder

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/usecase/ledger"
)

// Accept - исполнитель берёт заказ. Деньги не двигаются.
func (e *Engine) Accept(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*entity.ServiceOrder, error) {
	return e.transition(ctx, actor, orderID, policy.OpAccept,
		func(o *entity.ServiceOrder) error { return o.Accept() },
		nil,
	)
}

// Decline - отказ исполнителя, эскроу целиком возвращается покупателю.
func (e *Engine) Decline(ctx context.Context, actor policy.Actor, orderID uuid.UUID, reason string) (*entity.ServiceOrder, error) {
	return e.transition(ctx, actor, orderID, policy.OpDecline,
		func(o *entity.ServiceOrder) error { return o.Decline(reason) },
		e.refund(valueobject.ReasonOrderDeclineRefund, "decline"),
	)
}

func (e *Engine) MarkDelivered(ctx context.Context, actor policy.Actor, orderID uuid.UUID, notes string) (*entity.ServiceOrder, error) {
	return e.transition(ctx, actor, orderID, policy.OpDeliver,
		func(o *entity.ServiceOrder) error { return o.MarkDelivered(notes) },
		nil,
	)
}

// ConfirmDelivery - покупатель принимает работу. VP из эскроу сжигаются,
// исполнителю начисляется VC по курсу. Единственный путь заработка VC с заказа услуги.
func (e *Engine) ConfirmDelivery(ctx context.Context, actor policy.Actor, orderID uuid.UUID, feedback string) (*entity.ServiceOrder, error) {
	return e.transition(ctx, actor, orderID, policy.OpConfirm,
		func(o *entity.ServiceOrder) error {
			return o.Confirm(feedback, e.ledger.Policy().VPToVC(o.VPAmount))
		},
		func(ctx context.Context, o *entity.ServiceOrder) error {
			if _, err := e.ledger.Transfer(ctx, ledger.TransferInput{
				From:           valueobject.EscrowAccountID,
				To:             valueobject.SystemAccountID,
				Currency:       valueobject.CurrencyVP,
				Amount:         o.VPAmount,
				Reason:         valueobject.ReasonOrderSettlement,
				IdempotencyKey: idempotencyKey(o.ID, "confirm-release"),
			}); err != nil {
				return err
			}
			_, err := e.ledger.Convert(ctx, o.SellerID, o.VPAmount, idempotencyKey(o.ID, "confirm"))
			return err
		},
	)
}

// Cancel доступен обеим сторонам из любого незавершённого статуса.
func (e *Engine) Cancel(ctx context.Context, actor policy.Actor, orderID uuid.UUID, reason string) (*entity.ServiceOrder, error) {
	return e.transition(ctx, actor, orderID, policy.OpCancel,
		func(o *entity.ServiceOrder) error { return o.Cancel(actor.UserID, reason) },
		e.refund(valueobject.ReasonOrderCancelRefund, "cancel"),
	)
}

func (e *Engine) refund(reason valueobject.Reason, step string) func(ctx context.Context, o *entity.ServiceOrder) error {
	return func(ctx context.Context, o *entity.ServiceOrder) error {
		_, err := e.ledger.Transfer(ctx, ledger.TransferInput{
			From:           valueobject.EscrowAccountID,
			To:             o.BuyerID,
			Currency:       valueobject.CurrencyVP,
			Amount:         o.VPAmount,
			Reason:         reason,
			IdempotencyKey: idempotencyKey(o.ID, step),
		})
		return err
	}
}
