package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/vix-backend/internal/db"
)

type txKey struct{}

// executor - общее у *sqlx.DB и *sqlx.Tx.
type executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Store - sqlx-хранилище для PostgreSQL и SQLite.
// Запросы пишутся с плейсхолдерами ?, Rebind подставляет нужные драйверу.
type Store struct {
	db *sqlx.DB
}

func NewStore(conn *sqlx.DB) *Store {
	return &Store{db: conn}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

// WithinTx открывает транзакцию или присоединяется к открытой в ctx.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return mapError(err, "не удалось начать транзакцию")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError(err, "не удалось зафиксировать транзакцию")
	}
	return nil
}

func (s *Store) exec(ctx context.Context) executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

// forUpdate добавляет блокировку строки там, где диалект её знает.
// SQLite сериализует запись на уровне базы.
func (s *Store) forUpdate(query string) string {
	if s.db.DriverName() == db.DriverPostgres {
		return query + " FOR UPDATE"
	}
	return query
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return mapError(err, "база данных недоступна")
	}
	return nil
}

func (s *Store) Accounts() *AccountRepository {
	return &AccountRepository{s: s}
}

func (s *Store) Transfers() *TransferRepository {
	return &TransferRepository{s: s}
}

func (s *Store) ServiceOrders() *ServiceOrderRepository {
	return &ServiceOrderRepository{s: s}
}

func (s *Store) PackOrders() *PackOrderRepository {
	return &PackOrderRepository{s: s}
}

func (s *Store) Tips() *TipRepository {
	return &TipRepository{s: s}
}
