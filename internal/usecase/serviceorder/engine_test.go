package serviceorder_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/vix-backend/internal/usecase/ledger"
	"github.com/ignatzorin/vix-backend/internal/usecase/serviceorder"
)

type recordingSink struct {
	mu     sync.Mutex
	events []entity.OrderEvent
	err    error
}

func (s *recordingSink) Notify(_ context.Context, event entity.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) statuses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.ToStatus
	}
	return out
}

type fixture struct {
	store  *memory.Store
	ledger *ledger.Ledger
	engine *serviceorder.Engine
	sink   *recordingSink
	buyer  policy.Actor
	seller policy.Actor
}

func newFixture(t *testing.T, buyerVP int64) *fixture {
	t.Helper()
	return newFixtureWithOrders(t, buyerVP, nil)
}

func newFixtureWithOrders(t *testing.T, buyerVP int64, wrap func(repository.ServiceOrderRepository) repository.ServiceOrderRepository) *fixture {
	t.Helper()
	logger.Silence()
	store := memory.NewStore()
	l := ledger.New(store, store.AccountRepository(), store.TransferRepository(), valueobject.DefaultConversionPolicy())
	sink := &recordingSink{}

	var orders repository.ServiceOrderRepository = store.ServiceOrderRepository()
	if wrap != nil {
		orders = wrap(orders)
	}

	f := &fixture{
		store:  store,
		ledger: l,
		engine: serviceorder.NewEngine(store, orders, store.AccountRepository(), l, sink),
		sink:   sink,
		buyer:  policy.Actor{UserID: uuid.New(), Role: valueobject.RoleClient},
		seller: policy.Actor{UserID: uuid.New(), Role: valueobject.RoleProvider},
	}
	ctx := context.Background()
	for _, id := range []uuid.UUID{f.buyer.UserID, f.seller.UserID} {
		if _, err := store.AccountRepository().Create(ctx, entity.NewAccount(id)); err != nil {
			t.Fatalf("create account: %v", err)
		}
	}
	if buyerVP > 0 {
		if _, err := l.Transfer(ctx, ledger.TransferInput{
			From: valueobject.SystemAccountID, To: f.buyer.UserID, Currency: valueobject.CurrencyVP,
			Amount: buyerVP, Reason: valueobject.ReasonTopUp, IdempotencyKey: "seed",
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return f
}

func (f *fixture) account(t *testing.T, id uuid.UUID) *entity.Account {
	t.Helper()
	acc, err := f.store.AccountRepository().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	return acc
}

func (f *fixture) create(t *testing.T, amount int64) *entity.ServiceOrder {
	t.Helper()
	order, err := f.engine.Create(context.Background(), f.buyer, serviceorder.CreateInput{
		SellerID: f.seller.UserID, ServiceID: uuid.New(), VPAmount: amount,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return order
}

func TestServiceOrder_FullLifecycle(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	order := f.create(t, 30)
	if order.Status != valueobject.ServiceOrderPendingAcceptance {
		t.Fatalf("status = %s", order.Status)
	}
	if got := f.account(t, f.buyer.UserID).VPBalance; got != 70 {
		t.Fatalf("buyer vp = %d, want 70", got)
	}
	if got := f.account(t, valueobject.EscrowAccountID).VPBalance; got != 30 {
		t.Fatalf("escrow vp = %d, want 30", got)
	}

	if _, err := f.engine.Accept(ctx, f.seller, order.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := f.engine.MarkDelivered(ctx, f.seller, order.ID, "архив в чате"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	done, err := f.engine.ConfirmDelivery(ctx, f.buyer, order.ID, "отлично")
	if err != nil {
		t.Fatalf("ConfirmDelivery: %v", err)
	}

	if done.Status != valueobject.ServiceOrderConfirmed || done.VCCredited != 20 {
		t.Fatalf("confirmed order = %s vc=%d", done.Status, done.VCCredited)
	}
	if got := f.account(t, f.seller.UserID).VCBalance; got != 20 {
		t.Fatalf("seller vc = %d, want 20", got)
	}
	if got := f.account(t, valueobject.EscrowAccountID).VPBalance; got != 0 {
		t.Fatalf("escrow not released: %d", got)
	}

	want := []string{"PENDING_ACCEPTANCE", "ACCEPTED", "DELIVERED", "CONFIRMED"}
	got := f.sink.statuses()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestServiceOrder_CreateInsufficientFunds(t *testing.T) {
	f := newFixture(t, 10)
	_, err := f.engine.Create(context.Background(), f.buyer, serviceorder.CreateInput{
		SellerID: f.seller.UserID, ServiceID: uuid.New(), VPAmount: 30,
	})
	if !apperror.IsInsufficientFunds(err) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	orders, _ := f.engine.ListMine(context.Background(), f.buyer, "", 10, 0)
	if len(orders) != 0 {
		t.Fatalf("order created despite failed escrow")
	}
	if got := f.account(t, f.buyer.UserID).VPBalance; got != 10 {
		t.Fatalf("buyer balance changed: %d", got)
	}
}

func TestServiceOrder_CreateUnknownSeller(t *testing.T) {
	f := newFixture(t, 100)
	_, err := f.engine.Create(context.Background(), f.buyer, serviceorder.CreateInput{
		SellerID: uuid.New(), ServiceID: uuid.New(), VPAmount: 30,
	})
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := f.account(t, f.buyer.UserID).VPBalance; got != 100 {
		t.Fatalf("buyer balance changed: %d", got)
	}
}

func TestServiceOrder_CreateBelowMinimum(t *testing.T) {
	f := newFixture(t, 100)
	f.engine.SetMinAmount(20)

	_, err := f.engine.Create(context.Background(), f.buyer, serviceorder.CreateInput{
		SellerID: f.seller.UserID, ServiceID: uuid.New(), VPAmount: 19,
	})
	if apperror.CodeOf(err) != apperror.ErrCodeInvalidAmount {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := f.engine.Create(context.Background(), f.buyer, serviceorder.CreateInput{
		SellerID: f.seller.UserID, ServiceID: uuid.New(), VPAmount: 20,
	}); err != nil {
		t.Fatalf("create at minimum: %v", err)
	}
}

func TestServiceOrder_CreateIsIdempotentByClientID(t *testing.T) {
	f := newFixture(t, 100)
	in := serviceorder.CreateInput{OrderID: uuid.New(), SellerID: f.seller.UserID, ServiceID: uuid.New(), VPAmount: 30}

	first, err := f.engine.Create(context.Background(), f.buyer, in)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.engine.Create(context.Background(), f.buyer, in)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("retry created another order")
	}
	if got := f.account(t, f.buyer.UserID).VPBalance; got != 70 {
		t.Fatalf("retry escrowed twice: %d", got)
	}

	in.VPAmount = 40
	if _, err := f.engine.Create(context.Background(), f.buyer, in); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error on id reuse, got %v", err)
	}
}

func TestServiceOrder_DeclineRefunds(t *testing.T) {
	f := newFixture(t, 100)
	order := f.create(t, 30)

	if _, err := f.engine.Decline(context.Background(), f.seller, order.ID, ""); !apperror.IsValidation(err) {
		t.Fatalf("expected reason required, got %v", err)
	}
	declined, err := f.engine.Decline(context.Background(), f.seller, order.ID, "занят")
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if declined.Status != valueobject.ServiceOrderDeclined || *declined.CancellationReason != "занят" {
		t.Fatalf("unexpected order %+v", declined)
	}
	if got := f.account(t, f.buyer.UserID).VPBalance; got != 100 {
		t.Fatalf("buyer not refunded: %d", got)
	}
	if _, err := f.engine.Accept(context.Background(), f.seller, order.ID); !apperror.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition after terminal state, got %v", err)
	}
}

func TestServiceOrder_CancelFromDelivered(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	order := f.create(t, 45)

	if _, err := f.engine.Accept(ctx, f.seller, order.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := f.engine.MarkDelivered(ctx, f.seller, order.ID, ""); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	cancelled, err := f.engine.Cancel(ctx, f.buyer, order.ID, "не то")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if *cancelled.CancelledBy != f.buyer.UserID {
		t.Fatalf("cancelledBy not recorded")
	}
	if got := f.account(t, f.buyer.UserID).VPBalance; got != 100 {
		t.Fatalf("buyer not refunded: %d", got)
	}
	if got := f.account(t, f.seller.UserID).VCBalance; got != 0 {
		t.Fatalf("seller earned on cancel: %d", got)
	}
}

func TestServiceOrder_Authorization(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	order := f.create(t, 30)
	stranger := policy.Actor{UserID: uuid.New(), Role: valueobject.RoleBoth}

	if _, err := f.engine.Accept(ctx, f.buyer, order.ID); !apperror.IsForbidden(err) {
		t.Fatalf("buyer accepted: %v", err)
	}
	if _, err := f.engine.Cancel(ctx, stranger, order.ID, "x"); !apperror.IsForbidden(err) {
		t.Fatalf("stranger cancelled: %v", err)
	}
	if _, err := f.engine.Get(ctx, stranger, order.ID); !apperror.IsForbidden(err) {
		t.Fatalf("stranger read order: %v", err)
	}
	if _, err := f.engine.Accept(ctx, f.seller, uuid.New()); !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.engine.Accept(ctx, f.seller, order.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := f.engine.ConfirmDelivery(ctx, f.buyer, order.ID, ""); !apperror.IsInvalidTransition(err) {
		t.Fatalf("confirm skipped DELIVERED: %v", err)
	}
}

func TestServiceOrder_SettlementFailureKeepsState(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	order := f.create(t, 30)
	_, _ = f.engine.Accept(ctx, f.seller, order.ID)
	_, _ = f.engine.MarkDelivered(ctx, f.seller, order.ID, "")

	boom := errors.New("store down")
	f.store.InjectFault("transfers.create", boom)
	_, err := f.engine.ConfirmDelivery(ctx, f.buyer, order.ID, "")
	f.store.InjectFault("transfers.create", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	current, err := f.engine.Get(ctx, f.buyer, order.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if current.Status != valueobject.ServiceOrderDelivered {
		t.Fatalf("status moved despite failed settlement: %s", current.Status)
	}
	if f.account(t, valueobject.EscrowAccountID).VPBalance != 30 || f.account(t, f.seller.UserID).VCBalance != 0 {
		t.Fatalf("partial settlement observed")
	}
}

func TestServiceOrder_NotificationFailureDoesNotRollback(t *testing.T) {
	f := newFixture(t, 100)
	f.sink.err = errors.New("chat offline")

	order := f.create(t, 30)
	accepted, err := f.engine.Accept(context.Background(), f.seller, order.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != valueobject.ServiceOrderAccepted {
		t.Fatalf("status = %s", accepted.Status)
	}
}

func TestServiceOrder_AcceptDeclineRaceHasOneWinner(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t, 100)
		order := f.create(t, 30)

		var g errgroup.Group
		results := make([]error, 2)
		g.Go(func() error {
			_, results[0] = f.engine.Accept(context.Background(), f.seller, order.ID)
			return nil
		})
		g.Go(func() error {
			_, results[1] = f.engine.Decline(context.Background(), f.seller, order.ID, "передумал")
			return nil
		})
		_ = g.Wait()

		winners := 0
		for _, err := range results {
			switch {
			case err == nil:
				winners++
			case !apperror.IsInvalidTransition(err):
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if winners != 1 {
			t.Fatalf("winners = %d, want 1", winners)
		}

		current, _ := f.engine.Get(context.Background(), f.seller, order.ID)
		wantBuyer := int64(70)
		if current.Status == valueobject.ServiceOrderDeclined {
			wantBuyer = 100
		}
		if got := f.account(t, f.buyer.UserID).VPBalance; got != wantBuyer {
			t.Fatalf("buyer vp = %d, want %d (status %s)", got, wantBuyer, current.Status)
		}
	}
}

// racingOrders имитирует параллельного писателя: перед CAS статус заказа
// меняется в хранилище.
type racingOrders struct {
	repository.ServiceOrderRepository
	interfere func(ctx context.Context, id uuid.UUID)
}

func (r *racingOrders) UpdateStatus(ctx context.Context, o *entity.ServiceOrder, expected valueobject.ServiceOrderStatus, version int64) error {
	if r.interfere != nil {
		fn := r.interfere
		r.interfere = nil
		fn(ctx, o.ID)
	}
	return r.ServiceOrderRepository.UpdateStatus(ctx, o, expected, version)
}

func TestServiceOrder_CASFailureIsClassified(t *testing.T) {
	var racer *racingOrders
	f := newFixtureWithOrders(t, 100, func(inner repository.ServiceOrderRepository) repository.ServiceOrderRepository {
		racer = &racingOrders{ServiceOrderRepository: inner}
		return racer
	})
	ctx := context.Background()
	order := f.create(t, 30)

	moveTo := func(mutate func(o *entity.ServiceOrder) error) func(ctx context.Context, id uuid.UUID) {
		return func(ctx context.Context, id uuid.UUID) {
			current, err := racer.ServiceOrderRepository.FindByID(ctx, id)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			prev, ver := current.Status, current.Version
			if err := mutate(current); err != nil {
				t.Fatalf("mutate: %v", err)
			}
			if err := racer.ServiceOrderRepository.UpdateStatus(ctx, current, prev, ver); err != nil {
				t.Fatalf("interfere: %v", err)
			}
		}
	}

	// Кто-то успел принять заказ: отказ уже невозможен.
	racer.interfere = moveTo(func(o *entity.ServiceOrder) error { return o.Accept() })
	if _, err := f.engine.Decline(ctx, f.seller, order.ID, "нет"); !apperror.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if got := f.account(t, f.buyer.UserID).VPBalance; got != 70 {
		t.Fatalf("loser moved funds: %d", got)
	}

	// Транзакция откатилась вместе с вмешательством, заказ снова ждёт принятия.
	// Теперь параллельный accept не мешает отмене, конфликт можно повторить.
	racer.interfere = moveTo(func(o *entity.ServiceOrder) error { return o.Accept() })
	_, err := f.engine.Cancel(ctx, f.buyer, order.ID, "долго")
	if !apperror.IsConcurrencyConflict(err) || !apperror.IsRetryable(err) {
		t.Fatalf("expected retryable conflict, got %v", err)
	}
}
