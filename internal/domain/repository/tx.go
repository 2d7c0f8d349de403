package repository

import "context"

// TxManager открывает транзакцию хранилища и кладёт её в контекст.
// Вложенный вызов WithinTx присоединяется к уже открытой транзакции.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
