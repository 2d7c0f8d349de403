package valueobject

import "github.com/ignatzorin/vix-backend/internal/pkg/apperror"

// Role приходит из контекста авторизации, сервис ей доверяет.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleBoth     Role = "both"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleBoth:
		return true
	}
	return false
}

// CanBuy - роль покупателя (client или both).
func (r Role) CanBuy() bool {
	return r == RoleClient || r == RoleBoth
}

// CanSell - роль исполнителя (provider или both).
func (r Role) CanSell() bool {
	return r == RoleProvider || r == RoleBoth
}

func NewRole(value string) (Role, error) {
	r := Role(value)
	if !r.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректная роль пользователя")
	}
	return r, nil
}
