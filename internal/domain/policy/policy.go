// Package policy - проверки прав для операций экономики.
// Каждая операция проверяется одним предикатом, без разрозненных if в обработчиках.
package policy

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

// Actor - текущий пользователь из контекста авторизации.
type Actor struct {
	UserID uuid.UUID
	Role   valueobject.Role
}

type Operation string

const (
	OpCreateServiceOrder Operation = "create"
	OpAccept             Operation = "accept"
	OpDecline            Operation = "decline"
	OpDeliver            Operation = "deliver"
	OpConfirm            Operation = "confirm"
	OpCancel             Operation = "cancel"
	OpPurchasePack       Operation = "purchase"
	OpBanPack            Operation = "ban"
	OpSendTip            Operation = "tip"
)

var errSellerRole = apperror.New(apperror.ErrCodeForbidden, "действие доступно только с ролью provider или both")

// Authenticated - личность пользователя известна.
func Authenticated(actor Actor) error {
	if actor.UserID == uuid.Nil || valueobject.IsReservedAccount(actor.UserID) {
		return apperror.ErrUnauthorized
	}
	return nil
}

// ServiceOrder проверяет, может ли actor выполнить op над заказом услуги.
func ServiceOrder(op Operation, actor Actor, order *entity.ServiceOrder) error {
	if err := Authenticated(actor); err != nil {
		return err
	}
	switch op {
	case OpAccept, OpDecline, OpDeliver:
		if !order.IsSeller(actor.UserID) {
			return apperror.New(apperror.ErrCodeForbidden, "действие доступно только исполнителю заказа")
		}
		if !actor.Role.CanSell() {
			return errSellerRole
		}
	case OpConfirm:
		if !order.IsBuyer(actor.UserID) {
			return apperror.New(apperror.ErrCodeForbidden, "подтвердить выполнение может только покупатель")
		}
	case OpCancel:
		if !order.IsBuyer(actor.UserID) && !order.IsSeller(actor.UserID) {
			return apperror.New(apperror.ErrCodeForbidden, "отменить заказ может только его участник")
		}
	default:
		return apperror.Newf(apperror.ErrCodeForbidden, "операция %s не применима к заказу услуги", op)
	}
	return nil
}

// ViewServiceOrder - заказ видят только его участники.
func ViewServiceOrder(actor Actor, order *entity.ServiceOrder) error {
	if err := Authenticated(actor); err != nil {
		return err
	}
	if !order.IsBuyer(actor.UserID) && !order.IsSeller(actor.UserID) {
		return apperror.ErrForbidden
	}
	return nil
}

// BanPack - продавец, оплата VP, заказ ещё активен. Порядок проверок фиксирован.
func BanPack(actor Actor, order *entity.PackOrder) error {
	if err := Authenticated(actor); err != nil {
		return err
	}
	if order.SellerID == actor.UserID && !actor.Role.CanSell() {
		return errSellerRole
	}
	return order.CheckBannable(actor.UserID)
}

func ViewPackOrder(actor Actor, order *entity.PackOrder) error {
	if err := Authenticated(actor); err != nil {
		return err
	}
	if !order.IsParty(actor.UserID) {
		return apperror.ErrForbidden
	}
	return nil
}

// SendTip - отправлять чаевые могут только покупатели, получать - кто угодно, кроме себя.
func SendTip(actor Actor, authorID uuid.UUID) error {
	if err := Authenticated(actor); err != nil {
		return err
	}
	if !actor.Role.CanBuy() {
		return apperror.New(apperror.ErrCodeForbidden, "отправлять чаевые могут только аккаунты покупателей")
	}
	if actor.UserID == authorID {
		return apperror.New(apperror.ErrCodeForbidden, "нельзя отправить чаевые самому себе")
	}
	return nil
}
