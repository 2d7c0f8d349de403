// Package tip - чаевые (Vixtip) авторам постов. Операция необратима:
// отмены и возврата нет, клиент обязан предупредить пользователя до вызова.
package tip

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/metrics"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/vix-backend/internal/usecase/events"
	"github.com/ignatzorin/vix-backend/internal/usecase/ledger"
)

// IrreversibleWarning показывается клиентом перед подтверждением.
const IrreversibleWarning = "чаевые нельзя отменить или вернуть"

type Processor struct {
	tx     repository.TxManager
	tips   repository.TipRepository
	ledger *ledger.Ledger
	sink   repository.NotificationSink
	// maxTip - верхний предел одной транзакции, 0 - без предела.
	maxTip int64
	log    *logrus.Entry
}

func NewProcessor(tx repository.TxManager, tips repository.TipRepository, l *ledger.Ledger, sink repository.NotificationSink, maxTip int64) *Processor {
	return &Processor{
		tx:     tx,
		tips:   tips,
		ledger: l,
		sink:   sink,
		maxTip: maxTip,
		log:    logger.Component("vixtip"),
	}
}

type SendInput struct {
	// TipID задаёт клиент для безопасного повтора запроса.
	TipID    uuid.UUID
	PostID   uuid.UUID
	PostType string
	AuthorID uuid.UUID
	Amount   int64
}

func (p *Processor) SendTip(ctx context.Context, actor policy.Actor, in SendInput) (*entity.Tip, error) {
	if err := policy.SendTip(actor, in.AuthorID); err != nil {
		return nil, err
	}
	tip, err := entity.NewTip(in.TipID, in.PostID, in.PostType, actor.UserID, in.AuthorID, in.Amount)
	if err != nil {
		return nil, err
	}
	if p.maxTip > 0 && tip.VPAmount > p.maxTip {
		return nil, apperror.Newf(apperror.ErrCodeInvalidAmount, "сумма чаевых не может превышать %d VP", p.maxTip)
	}

	var (
		result  *entity.Tip
		created bool
	)
	err = p.tx.WithinTx(ctx, func(ctx context.Context) error {
		if in.TipID != uuid.Nil {
			existing, err := p.tips.FindByID(ctx, in.TipID)
			switch {
			case err == nil:
				if existing.BuyerID != tip.BuyerID || existing.VPAmount != tip.VPAmount || existing.PostID != tip.PostID {
					return apperror.New(apperror.ErrCodeValidation, "чаевые с таким id уже отправлены")
				}
				result = existing
				return nil
			case !apperror.IsNotFound(err):
				return err
			}
		}

		if _, err := p.ledger.Transfer(ctx, ledger.TransferInput{
			From:           tip.BuyerID,
			To:             tip.AuthorID,
			Currency:       valueobject.CurrencyVP,
			Amount:         tip.VPAmount,
			Reason:         valueobject.ReasonVixtip,
			IdempotencyKey: fmt.Sprintf("vixtip:%s", tip.ID),
		}); err != nil {
			return err
		}
		if err := p.tips.Create(ctx, tip); err != nil {
			return err
		}
		result = tip
		created = true
		return nil
	})
	metrics.RecordTransition(string(entity.OrderKindTip), string(valueobject.TipCompleted), err)
	if err != nil {
		return nil, err
	}

	if created {
		p.log.WithFields(logrus.Fields{
			"tip_id":    result.ID,
			"post_id":   result.PostID,
			"author_id": result.AuthorID,
			"amount":    result.VPAmount,
		}).Info("чаевые отправлены")
		events.Publish(ctx, p.sink, entity.NewOrderEvent(entity.OrderKindTip, result.ID,
			"", string(result.Status), actor.UserID, result.AuthorID))
	}
	return result, nil
}

func (p *Processor) ListForPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*entity.Tip, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return p.tips.ListByPost(ctx, postID, limit, offset)
}
