package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

type PackOrder struct {
	ID            uuid.UUID
	PackID        uuid.UUID
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	VPAmount      int64
	PaymentMethod valueobject.PaymentMethod
	// ChargedAmount - сколько реально списано в валюте PaymentMethod.
	ChargedAmount int64
	Status        valueobject.PackOrderStatus
	CreatedAt     time.Time
	BannedAt      *time.Time
	BannedBy      *uuid.UUID
	RefundedVP    int64
	ClawedBackVC  int64
	Version       int64
}

func NewPackOrder(id, packID, buyerID, sellerID uuid.UUID, vpAmount int64, method valueobject.PaymentMethod) (*PackOrder, error) {
	if vpAmount < 1 {
		return nil, apperror.ErrInvalidAmount
	}
	if !method.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "способ оплаты должен быть VP или VC")
	}
	if packID == uuid.Nil || buyerID == uuid.Nil || sellerID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "пак, покупатель и продавец обязательны")
	}
	if buyerID == sellerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя купить собственный пак")
	}
	if valueobject.IsReservedAccount(buyerID) || valueobject.IsReservedAccount(sellerID) {
		return nil, apperror.New(apperror.ErrCodeValidation, "служебный счёт не может участвовать в заказе")
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &PackOrder{
		ID:            id,
		PackID:        packID,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		VPAmount:      vpAmount,
		PaymentMethod: method,
		Status:        valueobject.PackOrderActive,
		CreatedAt:     time.Now().UTC(),
		Version:       1,
	}, nil
}

// CheckBannable проверяет, может ли actor заблокировать заказ.
// Порядок проверок: продавец, способ оплаты, статус.
func (o *PackOrder) CheckBannable(actor uuid.UUID) error {
	if o.SellerID != actor {
		return apperror.New(apperror.ErrCodeForbidden, "заблокировать покупку может только продавец пака")
	}
	if o.PaymentMethod == valueobject.CurrencyVC {
		return apperror.New(apperror.ErrCodeUnbannableMethod, "покупку, оплаченную VC, нельзя заблокировать")
	}
	if o.Status == valueobject.PackOrderBanned {
		return apperror.ErrAlreadyBanned
	}
	return nil
}

func (o *PackOrder) Ban(actor uuid.UUID, refundedVP, clawedBackVC int64) error {
	if err := o.CheckBannable(actor); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.Status = valueobject.PackOrderBanned
	o.BannedAt = &now
	o.BannedBy = &actor
	o.RefundedVP = refundedVP
	o.ClawedBackVC = clawedBackVC
	o.Version++
	return nil
}

func (o *PackOrder) IsParty(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}
