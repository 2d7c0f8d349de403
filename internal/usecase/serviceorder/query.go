package serviceorder

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
)

func (e *Engine) Get(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*entity.ServiceOrder, error) {
	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.ViewServiceOrder(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListMine - заказы текущего пользователя, side = buyer|seller|"".
func (e *Engine) ListMine(ctx context.Context, actor policy.Actor, side string, limit, offset int) ([]*entity.ServiceOrder, error) {
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
