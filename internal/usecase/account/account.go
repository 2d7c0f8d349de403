package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/vix-backend/internal/usecase/ledger"
)

type Service struct {
	accounts  repository.AccountRepository
	transfers repository.TransferRepository
	ledger    *ledger.Ledger
}

func NewService(accounts repository.AccountRepository, transfers repository.TransferRepository, l *ledger.Ledger) *Service {
	return &Service{accounts: accounts, transfers: transfers, ledger: l}
}

// Balance - ответ GetBalance.
type Balance struct {
	UserID    uuid.UUID
	VPBalance int64
	VCBalance int64
	// VCValueInVP - оценка VC в VP по текущему курсу.
	VCValueInVP    int64
	ConversionRate string
}

func (s *Service) GetBalance(ctx context.Context, actor policy.Actor) (*Balance, error) {
	if err := policy.Authenticated(actor); err != nil {
		return nil, err
	}
	acc, err := s.accounts.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	p := s.ledger.Policy()
	return &Balance{
		UserID:         acc.UserID,
		VPBalance:      acc.VPBalance,
		VCBalance:      acc.VCBalance,
		VCValueInVP:    p.VCToVP(acc.VCBalance),
		ConversionRate: p.Rate(),
	}, nil
}

// Register создаёт счёт при регистрации пользователя. Повторный вызов безопасен.
func (s *Service) Register(ctx context.Context, userID uuid.UUID) (*entity.Account, bool, error) {
	if userID == uuid.Nil || valueobject.IsReservedAccount(userID) {
		return nil, false, apperror.New(apperror.ErrCodeValidation, "некорректный id пользователя")
	}
	created, err := s.accounts.Create(ctx, entity.NewAccount(userID))
	if err != nil {
		return nil, false, err
	}
	acc, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if created {
		logger.Component("account").WithField("user_id", userID).Info("счёт создан")
	}
	return acc, created, nil
}

// TopUp зачисляет купленные VP. reference - id платежа у провайдера,
// он же ключ идемпотентности.
func (s *Service) TopUp(ctx context.Context, userID uuid.UUID, amount int64, reference string) (*entity.Transfer, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите идентификатор платежа")
	}
	return s.ledger.Transfer(ctx, ledger.TransferInput{
		From:           valueobject.SystemAccountID,
		To:             userID,
		Currency:       valueobject.CurrencyVP,
		Amount:         amount,
		Reason:         valueobject.ReasonTopUp,
		IdempotencyKey: fmt.Sprintf("top-up:%s", reference),
	})
}

// ListTransfers - журнал операций по счёту пользователя.
func (s *Service) ListTransfers(ctx context.Context, actor policy.Actor, limit, offset int) ([]*entity.Transfer, error) {
	if err := policy.Authenticated(actor); err != nil {
		return nil, err
	}
	return s.History(ctx, actor.UserID, limit, offset)
}

// History - журнал любого счёта, для служебных команд.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entity.Transfer, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.transfers.ListByAccount(ctx, accountID, limit, offset)
}
