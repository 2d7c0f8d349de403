package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/vix-backend/internal/usecase/ledger"
)

func setup(t *testing.T) (*memory.Store, *ledger.Ledger) {
	t.Helper()
	logger.Silence()
	store := memory.NewStore()
	l := ledger.New(store, store.AccountRepository(), store.TransferRepository(), valueobject.DefaultConversionPolicy())
	return store, l
}

func openAccount(t *testing.T, store *memory.Store, l *ledger.Ledger, vp int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := store.AccountRepository().Create(context.Background(), entity.NewAccount(id)); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if vp > 0 {
		_, err := l.Transfer(context.Background(), ledger.TransferInput{
			From: valueobject.SystemAccountID, To: id, Currency: valueobject.CurrencyVP,
			Amount: vp, Reason: valueobject.ReasonTopUp, IdempotencyKey: "seed:" + id.String(),
		})
		if err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}
	return id
}

func balance(t *testing.T, store *memory.Store, id uuid.UUID) *entity.Account {
	t.Helper()
	acc, err := store.AccountRepository().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	return acc
}

func TestTransfer_Conservation(t *testing.T) {
	store, l := setup(t)
	a := openAccount(t, store, l, 100)
	b := openAccount(t, store, l, 5)

	tr, err := l.Transfer(context.Background(), ledger.TransferInput{
		From: a, To: b, Currency: valueobject.CurrencyVP, Amount: 40,
		Reason: valueobject.ReasonVixtip, IdempotencyKey: "t1",
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !tr.Verify() {
		t.Fatalf("transfer checksum invalid")
	}
	if got := balance(t, store, a).VPBalance; got != 60 {
		t.Fatalf("sender balance = %d, want 60", got)
	}
	if got := balance(t, store, b).VPBalance; got != 45 {
		t.Fatalf("receiver balance = %d, want 45", got)
	}
}

func TestTransfer_Validation(t *testing.T) {
	store, l := setup(t)
	a := openAccount(t, store, l, 10)
	b := openAccount(t, store, l, 0)

	cases := []struct {
		name string
		in   ledger.TransferInput
		code apperror.ErrorCode
	}{
		{"zero", ledger.TransferInput{From: a, To: b, Currency: valueobject.CurrencyVP, Amount: 0, IdempotencyKey: "k"}, apperror.ErrCodeInvalidAmount},
		{"negative", ledger.TransferInput{From: a, To: b, Currency: valueobject.CurrencyVP, Amount: -5, IdempotencyKey: "k"}, apperror.ErrCodeInvalidAmount},
		{"insufficient", ledger.TransferInput{From: a, To: b, Currency: valueobject.CurrencyVP, Amount: 11, IdempotencyKey: "k"}, apperror.ErrCodeInsufficientFunds},
		{"no vc", ledger.TransferInput{From: a, To: b, Currency: valueobject.CurrencyVC, Amount: 1, IdempotencyKey: "k"}, apperror.ErrCodeInsufficientFunds},
		{"unknown receiver", ledger.TransferInput{From: a, To: uuid.New(), Currency: valueobject.CurrencyVP, Amount: 1, IdempotencyKey: "k"}, apperror.ErrCodeNotFound},
		{"self", ledger.TransferInput{From: a, To: a, Currency: valueobject.CurrencyVP, Amount: 1, IdempotencyKey: "k"}, apperror.ErrCodeValidation},
		{"no key", ledger.TransferInput{From: a, To: b, Currency: valueobject.CurrencyVP, Amount: 1}, apperror.ErrCodeValidation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := l.Transfer(context.Background(), c.in)
			if apperror.CodeOf(err) != c.code {
				t.Fatalf("code = %s, want %s (%v)", apperror.CodeOf(err), c.code, err)
			}
		})
	}

	if got := balance(t, store, a).VPBalance; got != 10 {
		t.Fatalf("failed transfers changed balance: %d", got)
	}
	if got := balance(t, store, b).VPBalance; got != 0 {
		t.Fatalf("failed transfers changed balance: %d", got)
	}
}

func TestTransfer_Idempotent(t *testing.T) {
	store, l := setup(t)
	a := openAccount(t, store, l, 100)
	b := openAccount(t, store, l, 0)
	in := ledger.TransferInput{From: a, To: b, Currency: valueobject.CurrencyVP, Amount: 30, Reason: valueobject.ReasonPackPurchase, IdempotencyKey: "pack:1"}

	first, err := l.Transfer(context.Background(), in)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := l.Transfer(context.Background(), in)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("retry produced new transfer %s != %s", second.ID, first.ID)
	}
	if got := balance(t, store, a).VPBalance; got != 70 {
		t.Fatalf("retry double-applied: %d", got)
	}

	in.Amount = 31
	if _, err := l.Transfer(context.Background(), in); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error on reused key, got %v", err)
	}
}

func TestTransfer_AtomicOnRecordFailure(t *testing.T) {
	store, l := setup(t)
	a := openAccount(t, store, l, 50)
	b := openAccount(t, store, l, 0)

	boom := errors.New("journal unavailable")
	store.InjectFault("transfers.create", boom)
	_, err := l.Transfer(context.Background(), ledger.TransferInput{From: a, To: b, Currency: valueobject.CurrencyVP, Amount: 20, IdempotencyKey: "x"})
	store.InjectFault("transfers.create", nil)

	if !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if balance(t, store, a).VPBalance != 50 || balance(t, store, b).VPBalance != 0 {
		t.Fatalf("partial transfer observed")
	}
}

func TestConvert(t *testing.T) {
	store, l := setup(t)
	seller := openAccount(t, store, l, 0)

	vc, err := l.Convert(context.Background(), seller, 30, "settle:1")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if vc != 20 {
		t.Fatalf("vc = %d, want 20", vc)
	}
	again, err := l.Convert(context.Background(), seller, 30, "settle:1")
	if err != nil || again != 20 {
		t.Fatalf("replay = %d, %v", again, err)
	}
	if got := balance(t, store, seller).VCBalance; got != 20 {
		t.Fatalf("vc balance = %d, want 20", got)
	}
	if _, err := l.Convert(context.Background(), seller, 0, "settle:2"); !errors.Is(err, apperror.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestClawback_Clamped(t *testing.T) {
	store, l := setup(t)
	seller := openAccount(t, store, l, 0)
	if _, err := l.Convert(context.Background(), seller, 15, "settle:1"); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	removed, err := l.Clawback(context.Background(), seller, 33, "claw:1")
	if err != nil {
		t.Fatalf("Clawback: %v", err)
	}
	if removed != 10 {
		t.Fatalf("removed = %d, want 10", removed)
	}
	if got := balance(t, store, seller).VCBalance; got != 0 {
		t.Fatalf("vc balance = %d, want 0", got)
	}

	removed, err = l.Clawback(context.Background(), seller, 33, "claw:2")
	if err != nil || removed != 0 {
		t.Fatalf("empty clawback = %d, %v", removed, err)
	}
	if n := len(store.Transfers()); n != 3 {
		t.Fatalf("journal has %d records, want 3", n)
	}
}

func TestTransfer_ConcurrentDebitsNeverNegative(t *testing.T) {
	store, l := setup(t)
	a := openAccount(t, store, l, 100)
	b := openAccount(t, store, l, 0)

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		key := uuid.NewString()
		g.Go(func() error {
			_, err := l.Transfer(context.Background(), ledger.TransferInput{From: a, To: b, Currency: valueobject.CurrencyVP, Amount: 7, IdempotencyKey: key})
			if err != nil && !apperror.IsInsufficientFunds(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	from, to := balance(t, store, a), balance(t, store, b)
	if from.VPBalance < 0 {
		t.Fatalf("negative balance %d", from.VPBalance)
	}
	if from.VPBalance+to.VPBalance != 100 {
		t.Fatalf("conservation broken: %d + %d", from.VPBalance, to.VPBalance)
	}
	if from.VPBalance != 100%7 {
		t.Fatalf("sender balance = %d, want %d", from.VPBalance, 100%7)
	}
}
