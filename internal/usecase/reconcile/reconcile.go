// Package reconcile - периодическая сверка книги: эскроу-счёт должен
// покрывать все незавершённые заказы, отрицательных балансов быть не может.
package reconcile

import (
	"context"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/metrics"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

// journalSample - сколько последних записей эскроу проверяется по контрольной сумме.
const journalSample = 200

type Report struct {
	EscrowBalance      int64
	EscrowExpected     int64
	NegativeAccounts   []uuid.UUID
	CorruptedTransfers []uuid.UUID
}

func (r *Report) Mismatches() int {
	n := len(r.NegativeAccounts) + len(r.CorruptedTransfers)
	if r.EscrowBalance != r.EscrowExpected {
		n++
	}
	return n
}

func (r *Report) OK() bool {
	return r.Mismatches() == 0
}

type Reconciler struct {
	accounts  repository.AccountRepository
	transfers repository.TransferRepository
	orders    repository.ServiceOrderRepository
	log       *logrus.Entry
}

func NewReconciler(accounts repository.AccountRepository, transfers repository.TransferRepository, orders repository.ServiceOrderRepository) *Reconciler {
	return &Reconciler{
		accounts:  accounts,
		transfers: transfers,
		orders:    orders,
		log:       logger.Component("reconcile"),
	}
}

func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	escrow, err := r.accounts.FindByID(ctx, valueobject.EscrowAccountID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "эскроу-счёт не найден")
	}
	expected, err := r.orders.SumEscrowed(ctx)
	if err != nil {
		return nil, err
	}
	negative, err := r.accounts.FindNegative(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := r.transfers.ListByAccount(ctx, valueobject.EscrowAccountID, journalSample, 0)
	if err != nil {
		return nil, err
	}

	report := &Report{
		EscrowBalance:    escrow.VPBalance,
		EscrowExpected:   expected,
		NegativeAccounts: negative,
	}
	for _, t := range recent {
		if !t.Verify() {
			report.CorruptedTransfers = append(report.CorruptedTransfers, t.ID)
		}
	}

	metrics.SetReconcileMismatches(report.Mismatches())
	fields := logrus.Fields{
		"escrow_balance":  report.EscrowBalance,
		"escrow_expected": report.EscrowExpected,
		"negative":        len(report.NegativeAccounts),
		"corrupted":       len(report.CorruptedTransfers),
	}
	if report.OK() {
		r.log.WithFields(fields).Debug("сверка книги прошла")
	} else {
		r.log.WithFields(fields).Error("сверка книги нашла расхождения")
	}
	return report, nil
}

// Scheduler запускает сверку по cron-расписанию.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(r *Reconciler, schedule string) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{r.log}), cron.SkipIfStillRunning(cronLogger{r.log})))
	if _, err := c.AddFunc(schedule, func() {
		if _, err := r.Run(context.Background()); err != nil {
			r.log.WithError(err).Error("сверка книги не выполнена")
		}
	}); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное расписание сверки")
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает расписание и ждёт текущую сверку либо отмену ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger адаптирует logrus к интерфейсу cron.Logger.
type cronLogger struct {
	log *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kv(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kv(keysAndValues)).WithError(err).Error(msg)
}

func kv(pairs []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if k, ok := pairs[i].(string); ok {
			fields[k] = pairs[i+1]
		}
	}
	return fields
}
