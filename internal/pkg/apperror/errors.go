package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden           ErrorCode = "FORBIDDEN"
	ErrCodeUnbannableMethod    ErrorCode = "UNBANNABLE_METHOD"
	ErrCodeAlreadyBanned       ErrorCode = "ALREADY_BANNED"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
	ErrCodeStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// AppError описывает ошибку предметной области с кодом и HTTP-статусом.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал с sentinel-значениями.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Retryable сообщает, имеет ли смысл повторить операцию целиком.
func (e *AppError) Retryable() bool {
	return e.Code == ErrCodeConcurrencyConflict || e.Code == ErrCodeStoreUnavailable
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeInvalidAmount, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidTransition, ErrCodeAlreadyBanned, ErrCodeConcurrencyConflict:
		return http.StatusConflict
	case ErrCodeInsufficientFunds, ErrCodeUnbannableMethod:
		return http.StatusUnprocessableEntity
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или ErrCodeInternal для посторонних ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return hasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

func IsInsufficientFunds(err error) bool {
	return hasCode(err, ErrCodeInsufficientFunds)
}

func IsInvalidTransition(err error) bool {
	return hasCode(err, ErrCodeInvalidTransition)
}

func IsConcurrencyConflict(err error) bool {
	return hasCode(err, ErrCodeConcurrencyConflict)
}

// IsRetryable проверяет, можно ли безопасно повторить операцию.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Retryable()
}

// IsUnauthorized покрывает оба варианта отказа: нет личности и чужая роль.
func IsUnauthorized(err error) bool {
	return hasCode(err, ErrCodeUnauthorized) || hasCode(err, ErrCodeForbidden)
}

var (
	ErrInsufficientFunds   = New(ErrCodeInsufficientFunds, "недостаточно средств на балансе")
	ErrInvalidAmount       = New(ErrCodeInvalidAmount, "сумма должна быть положительным целым числом")
	ErrInvalidTransition   = New(ErrCodeInvalidTransition, "переход статуса недопустим")
	ErrUnauthorized        = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden           = New(ErrCodeForbidden, "недостаточно прав для операции")
	ErrUnbannableMethod    = New(ErrCodeUnbannableMethod, "заказы, оплаченные VC, нельзя заблокировать")
	ErrAlreadyBanned       = New(ErrCodeAlreadyBanned, "заказ уже заблокирован")
	ErrOrderNotFound       = New(ErrCodeNotFound, "заказ не найден")
	ErrAccountNotFound     = New(ErrCodeNotFound, "счёт не найден")
	ErrConcurrencyConflict = New(ErrCodeConcurrencyConflict, "заказ изменён параллельно, повторите запрос")
	ErrStoreUnavailable    = New(ErrCodeStoreUnavailable, "хранилище временно недоступно, повторите запрос")
)
