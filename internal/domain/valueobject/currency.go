package valueobject

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

type Currency string

const (
	CurrencyVP Currency = "VP"
	CurrencyVC Currency = "VC"
)

func (c Currency) IsValid() bool {
	return c == CurrencyVP || c == CurrencyVC
}

func NewCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "валюта должна быть VP или VC")
	}
	return c, nil
}

// PaymentMethod - валюта, которой оплачен пак.
type PaymentMethod = Currency

func NewPaymentMethod(value string) (PaymentMethod, error) {
	c, err := NewCurrency(value)
	if err != nil {
		return "", apperror.New(apperror.ErrCodeValidation, "способ оплаты должен быть VP или VC")
	}
	return c, nil
}

// Служебные счета книги. SYSTEM не имеет строки в хранилище и служит
// источником эмиссии и сжигания, ESCROW - обычный счёт с неотрицательным балансом.
var (
	SystemAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	EscrowAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

func IsSystemAccount(id uuid.UUID) bool {
	return id == SystemAccountID
}

// IsReservedAccount - счёт принадлежит книге, а не пользователю.
func IsReservedAccount(id uuid.UUID) bool {
	return id == SystemAccountID || id == EscrowAccountID
}

// Reason - назначение перевода в журнале.
type Reason string

const (
	ReasonOrderEscrow        Reason = "order-escrow"
	ReasonOrderDeclineRefund Reason = "order-decline-refund"
	ReasonOrderCancelRefund  Reason = "order-cancel-refund"
	ReasonOrderSettlement    Reason = "order-settlement"
	ReasonPackPurchase       Reason = "pack-purchase"
	ReasonPackBanRefund      Reason = "pack-ban-refund"
	ReasonPackBanClawback    Reason = "pack-ban-clawback"
	ReasonVixtip             Reason = "vixtip"
	ReasonTopUp              Reason = "top-up"
)
