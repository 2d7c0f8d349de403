package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
)

// SendTipRequest - ConfirmIrreversible клиент выставляет после показа
// предупреждения: без него чаевые не отправляются.
type SendTipRequest struct {
	TipID               *string `json:"tip_id"`
	PostID              string  `json:"post_id" binding:"required"`
	PostType            string  `json:"post_type"`
	AuthorID            string  `json:"author_id" binding:"required"`
	Amount              int64   `json:"amount"`
	ConfirmIrreversible bool    `json:"confirm_irreversible"`
}

// TipResponse - Irreversible всегда true: у чаевых нет возврата.
type TipResponse struct {
	ID           uuid.UUID `json:"id"`
	PostID       uuid.UUID `json:"post_id"`
	PostType     string    `json:"post_type"`
	BuyerID      uuid.UUID `json:"buyer_id"`
	AuthorID     uuid.UUID `json:"author_id"`
	VPAmount     int64     `json:"vp_amount"`
	Status       string    `json:"status"`
	Irreversible bool      `json:"irreversible"`
	Warning      string    `json:"warning,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToTipResponse(t *entity.Tip, warning string) TipResponse {
	return TipResponse{
		ID:           t.ID,
		PostID:       t.PostID,
		PostType:     t.PostType,
		BuyerID:      t.BuyerID,
		AuthorID:     t.AuthorID,
		VPAmount:     t.VPAmount,
		Status:       string(t.Status),
		Irreversible: true,
		Warning:      warning,
		CreatedAt:    t.CreatedAt,
	}
}

func ToTipResponses(tips []*entity.Tip) []TipResponse {
	out := make([]TipResponse, len(tips))
	for i, t := range tips {
		out[i] = ToTipResponse(t, "")
	}
	return out
}

// ParseOptionalUUID разбирает необязательный id из тела запроса.
func ParseOptionalUUID(raw *string) (uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(*raw)
}
