package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

// mapError переводит ошибки драйверов в типы предметной области.
// Гонки и блокировки - ConcurrencyConflict, сеть и соединение - StoreUnavailable.
func mapError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505", pqErr.Code == "40001", pqErr.Code == "40P01", pqErr.Code == "55P03":
			return apperror.Wrap(err, apperror.ErrCodeConcurrencyConflict, "конкурирующее изменение, повторите запрос")
		case pqErr.Code == "23514":
			return apperror.Wrap(err, apperror.ErrCodeInsufficientFunds, "баланс не может стать отрицательным")
		case pqErr.Code == "23503":
			return apperror.Wrap(err, apperror.ErrCodeNotFound, "связанный счёт не найден")
		case strings.HasPrefix(string(pqErr.Code), "08"), strings.HasPrefix(string(pqErr.Code), "57P"):
			return apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, "хранилище временно недоступно")
		}
		return apperror.Wrap(err, apperror.ErrCodeInternal, message)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return apperror.Wrap(err, apperror.ErrCodeConcurrencyConflict, "база занята, повторите запрос")
		case sqlite3.SQLITE_CONSTRAINT:
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_CHECK:
				return apperror.Wrap(err, apperror.ErrCodeInsufficientFunds, "баланс не может стать отрицательным")
			case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
				return apperror.Wrap(err, apperror.ErrCodeNotFound, "связанный счёт не найден")
			}
			return apperror.Wrap(err, apperror.ErrCodeConcurrencyConflict, "конкурирующее изменение, повторите запрос")
		}
		return apperror.Wrap(err, apperror.ErrCodeInternal, message)
	}

	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, "хранилище временно недоступно")
	}
	return apperror.Wrap(err, apperror.ErrCodeInternal, message)
}
