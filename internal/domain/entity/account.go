package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
)

// Account - кошелёк пользователя. Балансы меняет только книга.
type Account struct {
	UserID    uuid.UUID
	VPBalance int64
	VCBalance int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewAccount(userID uuid.UUID) *Account {
	now := time.Now().UTC()
	return &Account{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (a *Account) Balance(currency valueobject.Currency) int64 {
	if currency == valueobject.CurrencyVC {
		return a.VCBalance
	}
	return a.VPBalance
}

// Apply меняет баланс на delta. Возвращает false, если баланс ушёл бы в минус.
func (a *Account) Apply(currency valueobject.Currency, delta int64) bool {
	next := a.Balance(currency) + delta
	if next < 0 {
		return false
	}
	if currency == valueobject.CurrencyVC {
		a.VCBalance = next
	} else {
		a.VPBalance = next
	}
	a.UpdatedAt = time.Now().UTC()
	return true
}
