// Package ledger - единственное место, где меняются балансы счетов.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/metrics"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

type Ledger struct {
	tx        repository.TxManager
	accounts  repository.AccountRepository
	transfers repository.TransferRepository
	policy    valueobject.ConversionPolicy
	log       *logrus.Entry
}

func New(tx repository.TxManager, accounts repository.AccountRepository, transfers repository.TransferRepository, policy valueobject.ConversionPolicy) *Ledger {
	return &Ledger{
		tx:        tx,
		accounts:  accounts,
		transfers: transfers,
		policy:    policy,
		log:       logger.Component("ledger"),
	}
}

// Policy - политика конвертации, которой пользуется книга.
func (l *Ledger) Policy() valueobject.ConversionPolicy {
	return l.policy
}

type TransferInput struct {
	From           uuid.UUID
	To             uuid.UUID
	Currency       valueobject.Currency
	Amount         int64
	Reason         valueobject.Reason
	IdempotencyKey string
}

func (in TransferInput) validate() error {
	if in.Amount <= 0 {
		return apperror.ErrInvalidAmount
	}
	if !in.Currency.IsValid() {
		return apperror.New(apperror.ErrCodeValidation, "валюта должна быть VP или VC")
	}
	if in.From == in.To {
		return apperror.New(apperror.ErrCodeValidation, "счёт списания совпадает со счётом зачисления")
	}
	if in.From == uuid.Nil || in.To == uuid.Nil {
		return apperror.New(apperror.ErrCodeValidation, "счета перевода обязательны")
	}
	if in.IdempotencyKey == "" {
		return apperror.New(apperror.ErrCodeValidation, "ключ идемпотентности обязателен")
	}
	return nil
}

// Transfer переводит amount с from на to одной транзакцией.
// Повтор с тем же ключом возвращает уже проведённый перевод.
func (l *Ledger) Transfer(ctx context.Context, in TransferInput) (*entity.Transfer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var result *entity.Transfer
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := l.replay(ctx, in.IdempotencyKey, entity.TransferKindTransfer, in.From, in.To, in.Currency)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Amount != in.Amount {
				return apperror.New(apperror.ErrCodeValidation, "ключ идемпотентности уже использован для другой суммы")
			}
			result = existing
			return nil
		}

		if err := l.applyPair(ctx, in.From, in.To, in.Currency, in.Amount); err != nil {
			return err
		}

		t := entity.NewTransfer(entity.TransferKindTransfer, in.IdempotencyKey, in.From, in.To, in.Currency, in.Amount, in.Reason)
		if err := l.transfers.Create(ctx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	metrics.RecordLedger(string(entity.TransferKindTransfer), string(in.Currency), string(in.Reason), in.Amount, err)
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"transfer_id": result.ID,
		"from":        result.From,
		"to":          result.To,
		"currency":    result.Currency,
		"amount":      result.Amount,
		"reason":      result.Reason,
	}).Debug("перевод проведён")
	return result, nil
}

// Convert начисляет на счёт VC по курсу политики за vpAmount VP.
// Используется только движками заказов при расчёте.
func (l *Ledger) Convert(ctx context.Context, accountID uuid.UUID, vpAmount int64, key string) (int64, error) {
	if vpAmount <= 0 {
		return 0, apperror.ErrInvalidAmount
	}
	if valueobject.IsReservedAccount(accountID) {
		return 0, apperror.New(apperror.ErrCodeValidation, "конвертация на служебный счёт запрещена")
	}
	vc := l.policy.VPToVC(vpAmount)

	var credited int64
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := l.replay(ctx, key, entity.TransferKindConvert, valueobject.SystemAccountID, accountID, valueobject.CurrencyVC)
		if err != nil {
			return err
		}
		if existing != nil {
			credited = existing.Amount
			return nil
		}

		if vc > 0 {
			if err := l.accounts.AdjustBalance(ctx, accountID, valueobject.CurrencyVC, vc); err != nil {
				return err
			}
		}
		t := entity.NewTransfer(entity.TransferKindConvert, key, valueobject.SystemAccountID, accountID, valueobject.CurrencyVC, vc, valueobject.ReasonOrderSettlement)
		if err := l.transfers.Create(ctx, t); err != nil {
			return err
		}
		credited = vc
		return nil
	})
	metrics.RecordLedger(string(entity.TransferKindConvert), string(valueobject.CurrencyVC), string(valueobject.ReasonOrderSettlement), credited, err)
	if err != nil {
		return 0, err
	}
	return credited, nil
}

// Clawback снимает со счёта до vcAmount VC, но не больше текущего баланса.
// Возвращает фактически снятую сумму.
func (l *Ledger) Clawback(ctx context.Context, accountID uuid.UUID, vcAmount int64, key string) (int64, error) {
	if vcAmount < 0 {
		return 0, apperror.ErrInvalidAmount
	}
	if valueobject.IsReservedAccount(accountID) {
		return 0, apperror.New(apperror.ErrCodeValidation, "списание со служебного счёта запрещено")
	}

	var removed int64
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := l.replay(ctx, key, entity.TransferKindClawback, accountID, valueobject.SystemAccountID, valueobject.CurrencyVC)
		if err != nil {
			return err
		}
		if existing != nil {
			removed = existing.Amount
			return nil
		}

		account, err := l.accounts.FindForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		removed = min(vcAmount, account.VCBalance)
		if removed > 0 {
			if err := l.accounts.AdjustBalance(ctx, accountID, valueobject.CurrencyVC, -removed); err != nil {
				return err
			}
		}
		t := entity.NewTransfer(entity.TransferKindClawback, key, accountID, valueobject.SystemAccountID, valueobject.CurrencyVC, removed, valueobject.ReasonPackBanClawback)
		return l.transfers.Create(ctx, t)
	})
	metrics.RecordLedger(string(entity.TransferKindClawback), string(valueobject.CurrencyVC), string(valueobject.ReasonPackBanClawback), removed, err)
	if err != nil {
		return 0, err
	}
	if removed < vcAmount {
		l.log.WithFields(logrus.Fields{
			"account":   accountID,
			"requested": vcAmount,
			"removed":   removed,
		}).Warn("частичное списание VC: баланса продавца не хватило")
	}
	return removed, nil
}

// replay ищет уже проведённую операцию с тем же ключом.
func (l *Ledger) replay(ctx context.Context, key string, kind entity.TransferKind, from, to uuid.UUID, currency valueobject.Currency) (*entity.Transfer, error) {
	if key == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "ключ идемпотентности обязателен")
	}
	existing, err := l.transfers.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if existing.Kind != kind || existing.From != from || existing.To != to || existing.Currency != currency {
		return nil, apperror.New(apperror.ErrCodeValidation, "ключ идемпотентности уже использован другой операцией")
	}
	return existing, nil
}

type leg struct {
	account uuid.UUID
	delta   int64
}

// applyPair проводит списание и зачисление в порядке возрастания id счетов,
// чтобы встречные переводы не взаимоблокировались.
func (l *Ledger) applyPair(ctx context.Context, from, to uuid.UUID, currency valueobject.Currency, amount int64) error {
	legs := make([]leg, 0, 2)
	if !valueobject.IsSystemAccount(from) {
		legs = append(legs, leg{account: from, delta: -amount})
	}
	if !valueobject.IsSystemAccount(to) {
		legs = append(legs, leg{account: to, delta: amount})
	}
	sort.Slice(legs, func(i, j int) bool {
		return bytes.Compare(legs[i].account[:], legs[j].account[:]) < 0
	})

	for _, lg := range legs {
		if err := l.accounts.AdjustBalance(ctx, lg.account, currency, lg.delta); err != nil {
			if errors.Is(err, apperror.ErrInsufficientFunds) {
				return apperror.Newf(apperror.ErrCodeInsufficientFunds, "недостаточно %s на счёте для перевода %d", currency, amount)
			}
			return err
		}
	}
	return nil
}
