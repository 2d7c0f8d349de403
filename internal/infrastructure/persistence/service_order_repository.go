package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

type serviceOrderRow struct {
	ID                 uuid.UUID      `db:"id"`
	BuyerID            uuid.UUID      `db:"buyer_id"`
	SellerID           uuid.UUID      `db:"seller_id"`
	ServiceID          uuid.UUID      `db:"service_id"`
	VPAmount           int64          `db:"vp_amount"`
	AdditionalFeatures []byte         `db:"additional_features"`
	Status             string         `db:"status"`
	DeliveryNotes      sql.NullString `db:"delivery_notes"`
	BuyerFeedback      sql.NullString `db:"buyer_feedback"`
	CancellationReason sql.NullString `db:"cancellation_reason"`
	CancelledBy        uuid.NullUUID  `db:"cancelled_by"`
	VCCredited         int64          `db:"vc_credited"`
	Version            int64          `db:"version"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (r serviceOrderRow) toEntity() (*entity.ServiceOrder, error) {
	features := []entity.Feature{}
	if len(r.AdditionalFeatures) > 0 {
		if err := json.Unmarshal(r.AdditionalFeatures, &features); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "повреждены дополнительные опции заказа")
		}
	}
	o := &entity.ServiceOrder{
		ID:                 r.ID,
		BuyerID:            r.BuyerID,
		SellerID:           r.SellerID,
		ServiceID:          r.ServiceID,
		VPAmount:           r.VPAmount,
		AdditionalFeatures: features,
		Status:             valueobject.ServiceOrderStatus(r.Status),
		DeliveryNotes:      nullString(r.DeliveryNotes),
		BuyerFeedback:      nullString(r.BuyerFeedback),
		CancellationReason: nullString(r.CancellationReason),
		VCCredited:         r.VCCredited,
		Version:            r.Version,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
	if r.CancelledBy.Valid {
		id := r.CancelledBy.UUID
		o.CancelledBy = &id
	}
	return o, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func optionalUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

const serviceOrderColumns = `id, buyer_id, seller_id, service_id, vp_amount, additional_features, status,
	delivery_notes, buyer_feedback, cancellation_reason, cancelled_by, vc_credited, version, created_at, updated_at`

type ServiceOrderRepository struct {
	s *Store
}

func (r *ServiceOrderRepository) Create(ctx context.Context, o *entity.ServiceOrder) error {
	features, err := json.Marshal(o.AdditionalFeatures)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить опции заказа")
	}
	query := r.s.rebind(`INSERT INTO service_orders (` + serviceOrderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.s.exec(ctx).ExecContext(ctx, query,
		o.ID, o.BuyerID, o.SellerID, o.ServiceID, o.VPAmount, string(features), string(o.Status),
		o.DeliveryNotes, o.BuyerFeedback, o.CancellationReason, optionalUUID(o.CancelledBy),
		o.VCCredited, o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "не удалось создать заказ")
	}
	return nil
}

func (r *ServiceOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOrder, error) {
	var row serviceOrderRow
	query := r.s.rebind(`SELECT ` + serviceOrderColumns + ` FROM service_orders WHERE id = ?`)
	if err := r.s.exec(ctx).GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, mapError(err, "не удалось получить заказ")
	}
	return row.toEntity()
}

// UpdateStatus - сравнение со статусом и версией прямо в WHERE.
func (r *ServiceOrderRepository) UpdateStatus(ctx context.Context, o *entity.ServiceOrder, expectedStatus valueobject.ServiceOrderStatus, expectedVersion int64) error {
	query := r.s.rebind(`
		UPDATE service_orders
		SET status = ?, delivery_notes = ?, buyer_feedback = ?, cancellation_reason = ?,
			cancelled_by = ?, vc_credited = ?, version = ?, updated_at = ?
		WHERE id = ? AND status = ? AND version = ?
	`)
	res, err := r.s.exec(ctx).ExecContext(ctx, query,
		string(o.Status), o.DeliveryNotes, o.BuyerFeedback, o.CancellationReason,
		optionalUUID(o.CancelledBy), o.VCCredited, o.Version, o.UpdatedAt,
		o.ID, string(expectedStatus), expectedVersion,
	)
	if err != nil {
		return mapError(err, "не удалось обновить заказ")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "не удалось проверить обновление заказа")
	}
	if rows == 0 {
		return apperror.ErrConcurrencyConflict
	}
	return nil
}

func (r *ServiceOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*entity.ServiceOrder, error) {
	filter = filter.Normalize()
	where, args := partyClause(filter)
	query := r.s.rebind(`SELECT ` + serviceOrderColumns + ` FROM service_orders WHERE ` + where +
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`)
	args = append(args, filter.Limit, filter.Offset)

	var rows []serviceOrderRow
	if err := r.s.exec(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err, "не удалось получить заказы")
	}
	out := make([]*entity.ServiceOrder, 0, len(rows))
	for _, row := range rows {
		o, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *ServiceOrderRepository) SumEscrowed(ctx context.Context) (int64, error) {
	var total int64
	query := r.s.rebind(`SELECT COALESCE(SUM(vp_amount), 0) FROM service_orders WHERE status IN (?, ?, ?)`)
	err := r.s.exec(ctx).GetContext(ctx, &total, query,
		string(valueobject.ServiceOrderPendingAcceptance),
		string(valueobject.ServiceOrderAccepted),
		string(valueobject.ServiceOrderDelivered),
	)
	if err != nil {
		return 0, mapError(err, "не удалось посчитать эскроу")
	}
	return total, nil
}

// partyClause строит условие по стороне участника.
func partyClause(filter repository.OrderFilter) (string, []interface{}) {
	switch {
	case filter.AsBuyer && !filter.AsSeller:
		return `buyer_id = ?`, []interface{}{filter.UserID}
	case filter.AsSeller && !filter.AsBuyer:
		return `seller_id = ?`, []interface{}{filter.UserID}
	default:
		return `(buyer_id = ? OR seller_id = ?)`, []interface{}{filter.UserID, filter.UserID}
	}
}
