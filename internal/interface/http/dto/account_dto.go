package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/usecase/account"
)

type AccountResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	VPBalance int64     `json:"vp_balance"`
	VCBalance int64     `json:"vc_balance"`
	Created   bool      `json:"created"`
	CreatedAt time.Time `json:"created_at"`
}

func ToAccountResponse(acc *entity.Account, created bool) AccountResponse {
	return AccountResponse{
		UserID:    acc.UserID,
		VPBalance: acc.VPBalance,
		VCBalance: acc.VCBalance,
		Created:   created,
		CreatedAt: acc.CreatedAt,
	}
}

type BalanceResponse struct {
	UserID         uuid.UUID `json:"user_id"`
	VPBalance      int64     `json:"vp_balance"`
	VCBalance      int64     `json:"vc_balance"`
	VCValueInVP    int64     `json:"vc_value_in_vp"`
	ConversionRate string    `json:"conversion_rate"`
}

func ToBalanceResponse(b *account.Balance) BalanceResponse {
	return BalanceResponse{
		UserID:         b.UserID,
		VPBalance:      b.VPBalance,
		VCBalance:      b.VCBalance,
		VCValueInVP:    b.VCValueInVP,
		ConversionRate: b.ConversionRate,
	}
}

type TransferResponse struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	From      uuid.UUID `json:"from"`
	To        uuid.UUID `json:"to"`
	Currency  string    `json:"currency"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

func ToTransferResponses(transfers []*entity.Transfer) []TransferResponse {
	out := make([]TransferResponse, len(transfers))
	for i, t := range transfers {
		out[i] = TransferResponse{
			ID:        t.ID,
			Kind:      string(t.Kind),
			From:      t.From,
			To:        t.To,
			Currency:  string(t.Currency),
			Amount:    t.Amount,
			Reason:    string(t.Reason),
			Verified:  t.Verify(),
			CreatedAt: t.CreatedAt,
		}
	}
	return out
}
