package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

type Feature struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type ServiceOrder struct {
	ID                 uuid.UUID
	BuyerID            uuid.UUID
	SellerID           uuid.UUID
	ServiceID          uuid.UUID
	VPAmount           int64
	AdditionalFeatures []Feature
	Status             valueobject.ServiceOrderStatus
	DeliveryNotes      *string
	BuyerFeedback      *string
	CancellationReason *string
	CancelledBy        *uuid.UUID
	VCCredited         int64
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func NewServiceOrder(id, buyerID, sellerID, serviceID uuid.UUID, vpAmount int64, features []Feature) (*ServiceOrder, error) {
	if vpAmount < 1 {
		return nil, apperror.ErrInvalidAmount
	}
	if buyerID == uuid.Nil || sellerID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "покупатель и исполнитель обязательны")
	}
	if buyerID == sellerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя заказать услугу у самого себя")
	}
	if valueobject.IsReservedAccount(buyerID) || valueobject.IsReservedAccount(sellerID) {
		return nil, apperror.New(apperror.ErrCodeValidation, "служебный счёт не может участвовать в заказе")
	}
	if serviceID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "услуга обязательна")
	}

	var featuresTotal int64
	cleaned := make([]Feature, 0, len(features))
	for _, f := range features {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "название дополнительной опции обязательно")
		}
		if f.Price < 0 {
			return nil, apperror.New(apperror.ErrCodeInvalidAmount, "цена опции не может быть отрицательной")
		}
		if f.Price > vpAmount-featuresTotal {
			return nil, apperror.New(apperror.ErrCodeInvalidAmount, "стоимость опций превышает сумму заказа")
		}
		featuresTotal += f.Price
		cleaned = append(cleaned, Feature{Name: name, Price: f.Price})
	}

	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	return &ServiceOrder{
		ID:                 id,
		BuyerID:            buyerID,
		SellerID:           sellerID,
		ServiceID:          serviceID,
		VPAmount:           vpAmount,
		AdditionalFeatures: cleaned,
		Status:             valueobject.ServiceOrderPendingAcceptance,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (o *ServiceOrder) transition(to valueobject.ServiceOrderStatus) error {
	if !o.Status.CanTransitionTo(to) {
		return apperror.Newf(apperror.ErrCodeInvalidTransition,
			"невозможно перевести заказ из %s в %s", o.Status, to)
	}
	o.Status = to
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (o *ServiceOrder) Accept() error {
	return o.transition(valueobject.ServiceOrderAccepted)
}

func (o *ServiceOrder) Decline(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperror.New(apperror.ErrCodeValidation, "укажите причину отказа")
	}
	if err := o.transition(valueobject.ServiceOrderDeclined); err != nil {
		return err
	}
	o.CancellationReason = &reason
	return nil
}

func (o *ServiceOrder) MarkDelivered(notes string) error {
	if err := o.transition(valueobject.ServiceOrderDelivered); err != nil {
		return err
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		o.DeliveryNotes = &notes
	}
	return nil
}

func (o *ServiceOrder) Confirm(feedback string, vcCredited int64) error {
	if err := o.transition(valueobject.ServiceOrderConfirmed); err != nil {
		return err
	}
	if feedback = strings.TrimSpace(feedback); feedback != "" {
		o.BuyerFeedback = &feedback
	}
	o.VCCredited = vcCredited
	return nil
}

func (o *ServiceOrder) Cancel(actor uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperror.New(apperror.ErrCodeValidation, "укажите причину отмены")
	}
	if err := o.transition(valueobject.ServiceOrderCancelled); err != nil {
		return err
	}
	o.CancellationReason = &reason
	o.CancelledBy = &actor
	return nil
}

func (o *ServiceOrder) IsBuyer(userID uuid.UUID) bool {
	return o.BuyerID == userID
}

func (o *ServiceOrder) IsSeller(userID uuid.UUID) bool {
	return o.SellerID == userID
}

// Clone нужен для сравнения состояния до и после перехода.
func (o *ServiceOrder) Clone() *ServiceOrder {
	c := *o
	c.AdditionalFeatures = append([]Feature(nil), o.AdditionalFeatures...)
	return &c
}
