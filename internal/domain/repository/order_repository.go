package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
)

type ServiceOrderRepository interface {
	Create(ctx context.Context, order *entity.ServiceOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOrder, error)
	// UpdateStatus пишет заказ только если в хранилище всё ещё expectedStatus
	// и expectedVersion. Иначе возвращает ErrConcurrencyConflict.
	UpdateStatus(ctx context.Context, order *entity.ServiceOrder, expectedStatus valueobject.ServiceOrderStatus, expectedVersion int64) error
	List(ctx context.Context, filter OrderFilter) ([]*entity.ServiceOrder, error)
	// SumEscrowed - сумма VPAmount всех незавершённых заказов.
	SumEscrowed(ctx context.Context) (int64, error)
}

type PackOrderRepository interface {
	Create(ctx context.Context, order *entity.PackOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.PackOrder, error)
	UpdateStatus(ctx context.Context, order *entity.PackOrder, expectedStatus valueobject.PackOrderStatus, expectedVersion int64) error
	List(ctx context.Context, filter OrderFilter) ([]*entity.PackOrder, error)
}

type TipRepository interface {
	Create(ctx context.Context, tip *entity.Tip) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Tip, error)
	ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*entity.Tip, error)
}

// OrderFilter - выборка заказов участника.
type OrderFilter struct {
	UserID uuid.UUID
	// AsBuyer/AsSeller ограничивают сторону. Оба false - любые заказы участника.
	AsBuyer  bool
	AsSeller bool
	Limit    int
	Offset   int
}

func (f OrderFilter) Normalize() OrderFilter {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
