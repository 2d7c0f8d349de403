package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
)

type CreateServiceOrderRequest struct {
	// OrderID необязателен; с ним повтор запроса вернёт тот же заказ.
	OrderID            *string      `json:"order_id"`
	SellerID           string       `json:"seller_id" binding:"required"`
	ServiceID          string       `json:"service_id" binding:"required"`
	VPAmount           int64        `json:"vp_amount"`
	AdditionalFeatures []FeatureDTO `json:"additional_features" binding:"dive"`
}

type FeatureDTO struct {
	Name  string `json:"name" binding:"required"`
	Price int64  `json:"price"`
}

type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type DeliverRequest struct {
	Notes string `json:"notes"`
}

type ConfirmRequest struct {
	Feedback string `json:"feedback"`
}

type ServiceOrderResponse struct {
	ID                 uuid.UUID    `json:"id"`
	BuyerID            uuid.UUID    `json:"buyer_id"`
	SellerID           uuid.UUID    `json:"seller_id"`
	ServiceID          uuid.UUID    `json:"service_id"`
	VPAmount           int64        `json:"vp_amount"`
	AdditionalFeatures []FeatureDTO `json:"additional_features"`
	Status             string       `json:"status"`
	DeliveryNotes      *string      `json:"delivery_notes"`
	BuyerFeedback      *string      `json:"buyer_feedback"`
	CancellationReason *string      `json:"cancellation_reason"`
	CancelledBy        *uuid.UUID   `json:"cancelled_by"`
	VCCredited         int64        `json:"vc_credited"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

func (r CreateServiceOrderRequest) Features() []entity.Feature {
	out := make([]entity.Feature, len(r.AdditionalFeatures))
	for i, f := range r.AdditionalFeatures {
		out[i] = entity.Feature{Name: f.Name, Price: f.Price}
	}
	return out
}

func ToServiceOrderResponse(o *entity.ServiceOrder) ServiceOrderResponse {
	features := make([]FeatureDTO, len(o.AdditionalFeatures))
	for i, f := range o.AdditionalFeatures {
		features[i] = FeatureDTO{Name: f.Name, Price: f.Price}
	}
	return ServiceOrderResponse{
		ID:                 o.ID,
		BuyerID:            o.BuyerID,
		SellerID:           o.SellerID,
		ServiceID:          o.ServiceID,
		VPAmount:           o.VPAmount,
		AdditionalFeatures: features,
		Status:             string(o.Status),
		DeliveryNotes:      o.DeliveryNotes,
		BuyerFeedback:      o.BuyerFeedback,
		CancellationReason: o.CancellationReason,
		CancelledBy:        o.CancelledBy,
		VCCredited:         o.VCCredited,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func ToServiceOrderResponses(orders []*entity.ServiceOrder) []ServiceOrderResponse {
	out := make([]ServiceOrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToServiceOrderResponse(o)
	}
	return out
}
