// Package memory - хранилище в памяти процесса. Транзакция берёт общий
// мьютекс и при ошибке откатывает снимок состояния.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
)

type txKey struct{}

type state struct {
	accounts      map[uuid.UUID]entity.Account
	transfers     []*entity.Transfer
	transferByKey map[string]*entity.Transfer
	serviceOrders map[uuid.UUID]entity.ServiceOrder
	packOrders    map[uuid.UUID]entity.PackOrder
	tips          map[uuid.UUID]entity.Tip
}

func (s *state) clone() *state {
	c := &state{
		accounts:      make(map[uuid.UUID]entity.Account, len(s.accounts)),
		transfers:     append([]*entity.Transfer(nil), s.transfers...),
		transferByKey: make(map[string]*entity.Transfer, len(s.transferByKey)),
		serviceOrders: make(map[uuid.UUID]entity.ServiceOrder, len(s.serviceOrders)),
		packOrders:    make(map[uuid.UUID]entity.PackOrder, len(s.packOrders)),
		tips:          make(map[uuid.UUID]entity.Tip, len(s.tips)),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.transferByKey {
		c.transferByKey[k] = v
	}
	for k, v := range s.serviceOrders {
		c.serviceOrders[k] = v
	}
	for k, v := range s.packOrders {
		c.packOrders[k] = v
	}
	for k, v := range s.tips {
		c.tips[k] = v
	}
	return c
}

// Store реализует все репозитории и TxManager поверх общего состояния.
type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]error
}

func NewStore() *Store {
	s := &Store{
		data: &state{
			accounts:      make(map[uuid.UUID]entity.Account),
			transferByKey: make(map[string]*entity.Transfer),
			serviceOrders: make(map[uuid.UUID]entity.ServiceOrder),
			packOrders:    make(map[uuid.UUID]entity.PackOrder),
			tips:          make(map[uuid.UUID]entity.Tip),
		},
		faults: make(map[string]error),
	}
	s.data.accounts[valueobject.EscrowAccountID] = *entity.NewAccount(valueobject.EscrowAccountID)
	return s
}

// WithinTx выполняет fn под общим мьютексом. При ошибке или panic
// состояние возвращается к снимку, сделанному перед fn.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// read выполняет fn под мьютексом, если вызов не внутри транзакции.
func (s *Store) read(ctx context.Context, fn func(d *state) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// InjectFault заставляет операцию op возвращать err. nil снимает ошибку.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	return s.faults[op]
}

// Accounts возвращает копии всех счетов, отсортированные по id.
func (s *Store) Accounts() []entity.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Account, 0, len(s.data.accounts))
	for _, a := range s.data.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out
}

// Transfers - копия журнала в порядке записи.
func (s *Store) Transfers() []entity.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Transfer, len(s.data.transfers))
	for i, t := range s.data.transfers {
		out[i] = *t
	}
	return out
}

func (s *Store) AccountRepository() *AccountRepository {
	return &AccountRepository{s: s}
}

func (s *Store) TransferRepository() *TransferRepository {
	return &TransferRepository{s: s}
}

func (s *Store) ServiceOrderRepository() *ServiceOrderRepository {
	return &ServiceOrderRepository{s: s}
}

func (s *Store) PackOrderRepository() *PackOrderRepository {
	return &PackOrderRepository{s: s}
}

func (s *Store) TipRepository() *TipRepository {
	return &TipRepository{s: s}
}

// Ping нужен health-проверке.
func (s *Store) Ping(context.Context) error {
	return nil
}
