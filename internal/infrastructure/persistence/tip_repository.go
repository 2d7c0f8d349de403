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

type tipRow struct {
	ID        uuid.UUID `db:"id"`
	PostID    uuid.UUID `db:"post_id"`
	PostType  string    `db:"post_type"`
	BuyerID   uuid.UUID `db:"buyer_id"`
	AuthorID  uuid.UUID `db:"author_id"`
	VPAmount  int64     `db:"vp_amount"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

const tipColumns = `id, post_id, post_type, buyer_id, author_id, vp_amount, status, created_at`

type TipRepository struct {
	s *Store
}

func (r *TipRepository) Create(ctx context.Context, t *entity.Tip) error {
	query := r.s.rebind(`INSERT INTO tips (` + tipColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.s.exec(ctx).ExecContext(ctx, query,
		t.ID, t.PostID, t.PostType, t.BuyerID, t.AuthorID, t.VPAmount, string(t.Status), t.CreatedAt)
	if err != nil {
		return mapError(err, "не удалось сохранить чаевые")
	}
	return nil
}

func (r *TipRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Tip, error) {
	var row tipRow
	query := r.s.rebind(`SELECT ` + tipColumns + ` FROM tips WHERE id = ?`)
	if err := r.s.exec(ctx).GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "чаевые не найдены")
		}
		return nil, mapError(err, "не удалось получить чаевые")
	}
	return row.toEntity(), nil
}

func (r *TipRepository) ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*entity.Tip, error) {
	var rows []tipRow
	query := r.s.rebind(`SELECT ` + tipColumns + ` FROM tips WHERE post_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`)
	if err := r.s.exec(ctx).SelectContext(ctx, &rows, query, postID, limit, offset); err != nil {
		return nil, mapError(err, "не удалось получить чаевые поста")
	}
	out := make([]*entity.Tip, len(rows))
	for i, row := range rows {
		out[i] = row.toEntity()
	}
	return out, nil
}

func (r tipRow) toEntity() *entity.Tip {
	return &entity.Tip{
		ID:        r.ID,
		PostID:    r.PostID,
		PostType:  r.PostType,
		BuyerID:   r.BuyerID,
		AuthorID:  r.AuthorID,
		VPAmount:  r.VPAmount,
		Status:    valueobject.TipStatus(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
	}
}
