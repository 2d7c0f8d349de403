package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

type AccountRepository struct {
	s *Store
}

func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) (bool, error) {
	var created bool
	err := r.s.read(ctx, func(d *state) error {
		if err := r.s.fault("accounts.create"); err != nil {
			return err
		}
		if _, ok := d.accounts[account.UserID]; ok {
			return nil
		}
		d.accounts[account.UserID] = *account
		created = true
		return nil
	})
	return created, err
}

func (r *AccountRepository) FindByID(ctx context.Context, userID uuid.UUID) (*entity.Account, error) {
	var out *entity.Account
	err := r.s.read(ctx, func(d *state) error {
		if err := r.s.fault("accounts.find"); err != nil {
			return err
		}
		a, ok := d.accounts[userID]
		if !ok {
			return apperror.ErrAccountNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *AccountRepository) FindForUpdate(ctx context.Context, userID uuid.UUID) (*entity.Account, error) {
	if err := r.s.read(ctx, func(*state) error { return r.s.fault("accounts.find_for_update") }); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, userID)
}

func (r *AccountRepository) AdjustBalance(ctx context.Context, userID uuid.UUID, currency valueobject.Currency, delta int64) error {
	return r.s.read(ctx, func(d *state) error {
		if err := r.s.fault("accounts.adjust"); err != nil {
			return err
		}
		a, ok := d.accounts[userID]
		if !ok {
			return apperror.ErrAccountNotFound
		}
		if !a.Apply(currency, delta) {
			return apperror.ErrInsufficientFunds
		}
		a.UpdatedAt = time.Now().UTC()
		d.accounts[userID] = a
		return nil
	})
}

func (r *AccountRepository) FindNegative(ctx context.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := r.s.read(ctx, func(d *state) error {
		for id, a := range d.accounts {
			if a.VPBalance < 0 || a.VCBalance < 0 {
				out = append(out, id)
			}
		}
		return nil
	})
	return out, err
}

type TransferRepository struct {
	s *Store
}

func (r *TransferRepository) Create(ctx context.Context, transfer *entity.Transfer) error {
	return r.s.read(ctx, func(d *state) error {
		if err := r.s.fault("transfers.create"); err != nil {
			return err
		}
		if _, ok := d.transferByKey[transfer.IdempotencyKey]; ok {
			return apperror.ErrConcurrencyConflict
		}
		t := *transfer
		d.transfers = append(d.transfers, &t)
		d.transferByKey[t.IdempotencyKey] = &t
		return nil
	})
}

func (r *TransferRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Transfer, error) {
	var out *entity.Transfer
	err := r.s.read(ctx, func(d *state) error {
		t, ok := d.transferByKey[key]
		if !ok {
			return apperror.New(apperror.ErrCodeNotFound, "перевод не найден")
		}
		c := *t
		out = &c
		return nil
	})
	return out, err
}

func (r *TransferRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entity.Transfer, error) {
	var out []*entity.Transfer
	err := r.s.read(ctx, func(d *state) error {
		skipped := 0
		for i := len(d.transfers) - 1; i >= 0 && len(out) < limit; i-- {
			t := d.transfers[i]
			if !t.Involves(accountID) {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			c := *t
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}
