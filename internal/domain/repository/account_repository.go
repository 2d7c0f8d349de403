package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
)

type AccountRepository interface {
	// Create создаёт счёт с нулевыми балансами. Возвращает false, если счёт уже был.
	Create(ctx context.Context, account *entity.Account) (bool, error)
	FindByID(ctx context.Context, userID uuid.UUID) (*entity.Account, error)
	// FindForUpdate читает счёт с блокировкой строки до конца транзакции.
	FindForUpdate(ctx context.Context, userID uuid.UUID) (*entity.Account, error)
	// AdjustBalance атомарно прибавляет delta к балансу. Если итог ушёл бы в минус,
	// возвращает ErrInsufficientFunds и ничего не меняет.
	AdjustBalance(ctx context.Context, userID uuid.UUID, currency valueobject.Currency, delta int64) error
	// FindNegative возвращает счета с отрицательным балансом (для сверки).
	FindNegative(ctx context.Context) ([]uuid.UUID, error)
}

type TransferRepository interface {
	Create(ctx context.Context, transfer *entity.Transfer) error
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.Transfer, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entity.Transfer, error)
}
