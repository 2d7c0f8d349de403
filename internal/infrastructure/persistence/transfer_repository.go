package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

type transferRow struct {
	ID             uuid.UUID `db:"id"`
	IdempotencyKey string    `db:"idempotency_key"`
	From           uuid.UUID `db:"from_account"`
	To             uuid.UUID `db:"to_account"`
	Currency       string    `db:"currency"`
	Amount         int64     `db:"amount"`
	Reason         string    `db:"reason"`
	Kind           string    `db:"kind"`
	Checksum       string    `db:"checksum"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r transferRow) toEntity() *entity.Transfer {
	return &entity.Transfer{
		ID:             r.ID,
		IdempotencyKey: r.IdempotencyKey,
		From:           r.From,
		To:             r.To,
		Currency:       valueobject.Currency(r.Currency),
		Amount:         r.Amount,
		Reason:         valueobject.Reason(r.Reason),
		Kind:           entity.TransferKind(r.Kind),
		Checksum:       r.Checksum,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

const transferColumns = `id, idempotency_key, from_account, to_account, currency, amount, reason, kind, checksum, created_at`

type TransferRepository struct {
	s *Store
}

func (r *TransferRepository) Create(ctx context.Context, t *entity.Transfer) error {
	query := r.s.rebind(`INSERT INTO transfers (` + transferColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.s.exec(ctx).ExecContext(ctx, query,
		t.ID, t.IdempotencyKey, t.From, t.To, string(t.Currency), t.Amount,
		string(t.Reason), string(t.Kind), t.Checksum, t.CreatedAt,
	)
	if err != nil {
		return mapError(err, "не удалось записать перевод в журнал")
	}
	return nil
}

func (r *TransferRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Transfer, error) {
	var row transferRow
	query := r.s.rebind(`SELECT ` + transferColumns + ` FROM transfers WHERE idempotency_key = ?`)
	if err := r.s.exec(ctx).GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "перевод не найден")
		}
		return nil, mapError(err, "не удалось получить перевод")
	}
	return row.toEntity(), nil
}

func (r *TransferRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entity.Transfer, error) {
	var rows []transferRow
	query := r.s.rebind(`
		SELECT ` + transferColumns + ` FROM transfers
		WHERE from_account = ? OR to_account = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`)
	if err := r.s.exec(ctx).SelectContext(ctx, &rows, query, accountID, accountID, limit, offset); err != nil {
		return nil, mapError(err, "не удалось получить журнал переводов")
	}
	out := make([]*entity.Transfer, len(rows))
	for i, row := range rows {
		out[i] = row.toEntity()
	}
	return out, nil
}
