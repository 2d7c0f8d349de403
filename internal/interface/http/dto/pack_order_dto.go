package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
)

type PurchasePackRequest struct {
	OrderID       *string `json:"order_id"`
	PackID        string  `json:"pack_id" binding:"required"`
	SellerID      string  `json:"seller_id" binding:"required"`
	VPAmount      int64   `json:"vp_amount"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
}

type PackOrderResponse struct {
	ID            uuid.UUID  `json:"id"`
	PackID        uuid.UUID  `json:"pack_id"`
	BuyerID       uuid.UUID  `json:"buyer_id"`
	SellerID      uuid.UUID  `json:"seller_id"`
	VPAmount      int64      `json:"vp_amount"`
	PaymentMethod string     `json:"payment_method"`
	ChargedAmount int64      `json:"charged_amount"`
	Status        string     `json:"status"`
	RefundedVP    int64      `json:"refunded_vp"`
	ClawedBackVC  int64      `json:"clawed_back_vc"`
	BannedAt      *time.Time `json:"banned_at"`
	BannedBy      *uuid.UUID `json:"banned_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

func ToPackOrderResponse(o *entity.PackOrder) PackOrderResponse {
	return PackOrderResponse{
		ID:            o.ID,
		PackID:        o.PackID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		VPAmount:      o.VPAmount,
		PaymentMethod: string(o.PaymentMethod),
		ChargedAmount: o.ChargedAmount,
		Status:        string(o.Status),
		RefundedVP:    o.RefundedVP,
		ClawedBackVC:  o.ClawedBackVC,
		BannedAt:      o.BannedAt,
		BannedBy:      o.BannedBy,
		CreatedAt:     o.CreatedAt,
	}
}

func ToPackOrderResponses(orders []*entity.PackOrder) []PackOrderResponse {
	out := make([]PackOrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToPackOrderResponse(o)
	}
	return out
}
