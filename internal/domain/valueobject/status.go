package valueobject

import "github.com/ignatzorin/vix-backend/internal/pkg/apperror"

type ServiceOrderStatus string

const (
	ServiceOrderPendingAcceptance ServiceOrderStatus = "PENDING_ACCEPTANCE"
	ServiceOrderAccepted          ServiceOrderStatus = "ACCEPTED"
	ServiceOrderDelivered         ServiceOrderStatus = "DELIVERED"
	ServiceOrderConfirmed         ServiceOrderStatus = "CONFIRMED"
	ServiceOrderDeclined          ServiceOrderStatus = "DECLINED"
	ServiceOrderCancelled         ServiceOrderStatus = "CANCELLED"
)

var serviceOrderTransitions = map[ServiceOrderStatus][]ServiceOrderStatus{
	ServiceOrderPendingAcceptance: {ServiceOrderAccepted, ServiceOrderDeclined, ServiceOrderCancelled},
	ServiceOrderAccepted:          {ServiceOrderDelivered, ServiceOrderCancelled},
	ServiceOrderDelivered:         {ServiceOrderConfirmed, ServiceOrderCancelled},
	ServiceOrderConfirmed:         {},
	ServiceOrderDeclined:          {},
	ServiceOrderCancelled:         {},
}

func (s ServiceOrderStatus) IsValid() bool {
	_, ok := serviceOrderTransitions[s]
	return ok
}

// IsTerminal - из терминального статуса переходов нет.
func (s ServiceOrderStatus) IsTerminal() bool {
	return s.IsValid() && len(serviceOrderTransitions[s]) == 0
}

// HoldsEscrow - пока заказ не завершён, его сумма лежит на эскроу-счёте.
func (s ServiceOrderStatus) HoldsEscrow() bool {
	return s.IsValid() && !s.IsTerminal()
}

func (s ServiceOrderStatus) CanTransitionTo(newStatus ServiceOrderStatus) bool {
	for _, status := range serviceOrderTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewServiceOrderStatus(status string) (ServiceOrderStatus, error) {
	s := ServiceOrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа услуги")
	}
	return s, nil
}

type PackOrderStatus string

const (
	PackOrderActive PackOrderStatus = "ACTIVE"
	PackOrderBanned PackOrderStatus = "BANNED"
)

func (s PackOrderStatus) IsValid() bool {
	switch s {
	case PackOrderActive, PackOrderBanned:
		return true
	}
	return false
}

func NewPackOrderStatus(status string) (PackOrderStatus, error) {
	s := PackOrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа пака")
	}
	return s, nil
}

type TipStatus string

// TipCompleted - чаевые создаются сразу проведёнными.
const TipCompleted TipStatus = "completed"
