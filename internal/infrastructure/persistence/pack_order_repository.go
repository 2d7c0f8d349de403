package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

type packOrderRow struct {
	ID            uuid.UUID     `db:"id"`
	PackID        uuid.UUID     `db:"pack_id"`
	BuyerID       uuid.UUID     `db:"buyer_id"`
	SellerID      uuid.UUID     `db:"seller_id"`
	VPAmount      int64         `db:"vp_amount"`
	PaymentMethod string        `db:"payment_method"`
	ChargedAmount int64         `db:"charged_amount"`
	Status        string        `db:"status"`
	CreatedAt     time.Time     `db:"created_at"`
	BannedAt      sql.NullTime  `db:"banned_at"`
	BannedBy      uuid.NullUUID `db:"banned_by"`
	RefundedVP    int64         `db:"refunded_vp"`
	ClawedBackVC  int64         `db:"clawed_back_vc"`
	Version       int64         `db:"version"`
}

func (r packOrderRow) toEntity() *entity.PackOrder {
	o := &entity.PackOrder{
		ID:            r.ID,
		PackID:        r.PackID,
		BuyerID:       r.BuyerID,
		SellerID:      r.SellerID,
		VPAmount:      r.VPAmount,
		PaymentMethod: valueobject.PaymentMethod(r.PaymentMethod),
		ChargedAmount: r.ChargedAmount,
		Status:        valueobject.PackOrderStatus(r.Status),
		CreatedAt:     r.CreatedAt.UTC(),
		RefundedVP:    r.RefundedVP,
		ClawedBackVC:  r.ClawedBackVC,
		Version:       r.Version,
	}
	if r.BannedAt.Valid {
		at := r.BannedAt.Time.UTC()
		o.BannedAt = &at
	}
	if r.BannedBy.Valid {
		by := r.BannedBy.UUID
		o.BannedBy = &by
	}
	return o
}

const packOrderColumns = `id, pack_id, buyer_id, seller_id, vp_amount, payment_method, charged_amount, status,
	created_at, banned_at, banned_by, refunded_vp, clawed_back_vc, version`

type PackOrderRepository struct {
	s *Store
}

func (r *PackOrderRepository) Create(ctx context.Context, o *entity.PackOrder) error {
	query := r.s.rebind(`INSERT INTO pack_orders (` + packOrderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.s.exec(ctx).ExecContext(ctx, query,
		o.ID, o.PackID, o.BuyerID, o.SellerID, o.VPAmount, string(o.PaymentMethod), o.ChargedAmount,
		string(o.Status), o.CreatedAt, o.BannedAt, optionalUUID(o.BannedBy),
		o.RefundedVP, o.ClawedBackVC, o.Version,
	)
	if err != nil {
		return mapError(err, "не удалось создать заказ пакета")
	}
	return nil
}

func (r *PackOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.PackOrder, error) {
	var row packOrderRow
	query := r.s.rebind(`SELECT ` + packOrderColumns + ` FROM pack_orders WHERE id = ?`)
	if err := r.s.exec(ctx).GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, mapError(err, "не удалось получить заказ пакета")
	}
	return row.toEntity(), nil
}

func (r *PackOrderRepository) UpdateStatus(ctx context.Context, o *entity.PackOrder, expectedStatus valueobject.PackOrderStatus, expectedVersion int64) error {
	query := r.s.rebind(`
		UPDATE pack_orders
		SET status = ?, banned_at = ?, banned_by = ?, refunded_vp = ?, clawed_back_vc = ?, version = ?
		WHERE id = ? AND status = ? AND version = ?
	`)
	res, err := r.s.exec(ctx).ExecContext(ctx, query,
		string(o.Status), o.BannedAt, optionalUUID(o.BannedBy), o.RefundedVP, o.ClawedBackVC, o.Version,
		o.ID, string(expectedStatus), expectedVersion,
	)
	if err != nil {
		return mapError(err, "не удалось обновить заказ пакета")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "не удалось проверить обновление заказа пакета")
	}
	if rows == 0 {
		return apperror.ErrConcurrencyConflict
	}
	return nil
}

func (r *PackOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*entity.PackOrder, error) {
	filter = filter.Normalize()
	where, args := partyClause(filter)
	query := r.s.rebind(`SELECT ` + packOrderColumns + ` FROM pack_orders WHERE ` + where +
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`)
	args = append(args, filter.Limit, filter.Offset)

	var rows []packOrderRow
	if err := r.s.exec(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err, "не удалось получить заказы пакетов")
	}
	out := make([]*entity.PackOrder, len(rows))
	for i, row := range rows {
		out[i] = row.toEntity()
	}
	return out, nil
}
