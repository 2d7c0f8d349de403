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

type accountRow struct {
	UserID    uuid.UUID `db:"user_id"`
	VPBalance int64     `db:"vp_balance"`
	VCBalance int64     `db:"vc_balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r accountRow) toEntity() *entity.Account {
	return &entity.Account{
		UserID:    r.UserID,
		VPBalance: r.VPBalance,
		VCBalance: r.VCBalance,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const accountColumns = `user_id, vp_balance, vc_balance, created_at, updated_at`

// balanceColumn - имя колонки берётся только из фиксированного набора.
func balanceColumn(currency valueobject.Currency) string {
	if currency == valueobject.CurrencyVC {
		return "vc_balance"
	}
	return "vp_balance"
}

type AccountRepository struct {
	s *Store
}

func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) (bool, error) {
	query := r.s.rebind(`
		INSERT INTO accounts (user_id, vp_balance, vc_balance, created_at, updated_at)
		VALUES (?, 0, 0, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`)
	res, err := r.s.exec(ctx).ExecContext(ctx, query, account.UserID, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return false, mapError(err, "не удалось создать счёт")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, mapError(err, "не удалось проверить создание счёта")
	}
	return rows == 1, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, userID uuid.UUID) (*entity.Account, error) {
	return r.find(ctx, r.s.rebind(`SELECT `+accountColumns+` FROM accounts WHERE user_id = ?`), userID)
}

func (r *AccountRepository) FindForUpdate(ctx context.Context, userID uuid.UUID) (*entity.Account, error) {
	return r.find(ctx, r.s.rebind(r.s.forUpdate(`SELECT `+accountColumns+` FROM accounts WHERE user_id = ?`)), userID)
}

func (r *AccountRepository) find(ctx context.Context, query string, userID uuid.UUID) (*entity.Account, error) {
	var row accountRow
	if err := r.s.exec(ctx).GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrAccountNotFound
		}
		return nil, mapError(err, "не удалось получить счёт")
	}
	return row.toEntity(), nil
}

// AdjustBalance - условный UPDATE: проверка остатка и запись в одном операторе,
// поэтому два параллельных списания не пройдут по устаревшему балансу.
func (r *AccountRepository) AdjustBalance(ctx context.Context, userID uuid.UUID, currency valueobject.Currency, delta int64) error {
	col := balanceColumn(currency)
	query := r.s.rebind(`
		UPDATE accounts
		SET ` + col + ` = ` + col + ` + ?, updated_at = ?
		WHERE user_id = ? AND ` + col + ` + ? >= 0
	`)
	res, err := r.s.exec(ctx).ExecContext(ctx, query, delta, time.Now().UTC(), userID, delta)
	if err != nil {
		return mapError(err, "не удалось изменить баланс")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "не удалось проверить изменение баланса")
	}
	if rows == 1 {
		return nil
	}

	var exists int
	err = r.s.exec(ctx).GetContext(ctx, &exists, r.s.rebind(`SELECT COUNT(*) FROM accounts WHERE user_id = ?`), userID)
	if err != nil {
		return mapError(err, "не удалось проверить счёт")
	}
	if exists == 0 {
		return apperror.ErrAccountNotFound
	}
	return apperror.ErrInsufficientFunds
}

func (r *AccountRepository) FindNegative(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `SELECT user_id FROM accounts WHERE vp_balance < 0 OR vc_balance < 0`
	if err := r.s.exec(ctx).SelectContext(ctx, &ids, query); err != nil {
		return nil, mapError(err, "не удалось проверить балансы")
	}
	return ids, nil
}
