package repository

import (
	"context"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
)

// NotificationSink получает события жизненного цикла заказов.
// Ошибка доставки не откатывает операцию.
type NotificationSink interface {
	Notify(ctx context.Context, event entity.OrderEvent) error
}
