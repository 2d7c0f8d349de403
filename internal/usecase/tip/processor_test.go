package tip_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/vix-backend/internal/usecase/ledger"
	"github.com/ignatzorin/vix-backend/internal/usecase/tip"
)

func setup(t *testing.T, buyerVP int64, maxTip int64) (*memory.Store, *tip.Processor, policy.Actor, uuid.UUID) {
	t.Helper()
	logger.Silence()
	store := memory.NewStore()
	l := ledger.New(store, store.AccountRepository(), store.TransferRepository(), valueobject.DefaultConversionPolicy())
	p := tip.NewProcessor(store, store.TipRepository(), l, nil, maxTip)

	buyer := policy.Actor{UserID: uuid.New(), Role: valueobject.RoleClient}
	author := uuid.New()
	ctx := context.Background()
	for _, id := range []uuid.UUID{buyer.UserID, author} {
		if _, err := store.AccountRepository().Create(ctx, entity.NewAccount(id)); err != nil {
			t.Fatalf("create account: %v", err)
		}
	}
	if buyerVP > 0 {
		if _, err := l.Transfer(ctx, ledger.TransferInput{
			From: valueobject.SystemAccountID, To: buyer.UserID, Currency: valueobject.CurrencyVP,
			Amount: buyerVP, Reason: valueobject.ReasonTopUp, IdempotencyKey: "seed",
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store, p, buyer, author
}

func vp(t *testing.T, store *memory.Store, id uuid.UUID) int64 {
	t.Helper()
	acc, err := store.AccountRepository().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	return acc.VPBalance
}

func TestSendTip_Success(t *testing.T) {
	store, p, buyer, author := setup(t, 10, 0)
	postID := uuid.New()

	got, err := p.SendTip(context.Background(), buyer, tip.SendInput{PostID: postID, PostType: "video", AuthorID: author, Amount: 4})
	if err != nil {
		t.Fatalf("SendTip: %v", err)
	}
	if got.Status != valueobject.TipCompleted || got.VPAmount != 4 {
		t.Fatalf("unexpected tip %+v", got)
	}
	if vp(t, store, buyer.UserID) != 6 || vp(t, store, author) != 4 {
		t.Fatalf("balances not moved")
	}

	list, err := p.ListForPost(context.Background(), postID, 0, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListForPost = %d, %v", len(list), err)
	}
}

func TestSendTip_Rejections(t *testing.T) {
	store, p, buyer, author := setup(t, 3, 0)
	ctx := context.Background()
	postID := uuid.New()

	if _, err := p.SendTip(ctx, buyer, tip.SendInput{PostID: postID, AuthorID: author, Amount: 0}); !errors.Is(err, apperror.ErrInvalidAmount) {
		t.Fatalf("amount 0: %v", err)
	}
	if _, err := p.SendTip(ctx, buyer, tip.SendInput{PostID: postID, AuthorID: author, Amount: 5}); !apperror.IsInsufficientFunds(err) {
		t.Fatalf("amount 5 with balance 3: %v", err)
	}
	provider := policy.Actor{UserID: buyer.UserID, Role: valueobject.RoleProvider}
	if _, err := p.SendTip(ctx, provider, tip.SendInput{PostID: postID, AuthorID: author, Amount: 1}); !apperror.IsUnauthorized(err) {
		t.Fatalf("provider role: %v", err)
	}
	if _, err := p.SendTip(ctx, buyer, tip.SendInput{PostID: postID, AuthorID: buyer.UserID, Amount: 1}); !apperror.IsUnauthorized(err) {
		t.Fatalf("self tip: %v", err)
	}

	list, _ := p.ListForPost(ctx, postID, 10, 0)
	if len(list) != 0 {
		t.Fatalf("tip records created on failure: %d", len(list))
	}
	if vp(t, store, buyer.UserID) != 3 || vp(t, store, author) != 0 {
		t.Fatalf("balances changed on failure")
	}
}

func TestSendTip_MaxAndRetry(t *testing.T) {
	store, p, buyer, author := setup(t, 100, 50)
	ctx := context.Background()

	if _, err := p.SendTip(ctx, buyer, tip.SendInput{PostID: uuid.New(), AuthorID: author, Amount: 51}); apperror.CodeOf(err) != apperror.ErrCodeInvalidAmount {
		t.Fatalf("expected max tip rejection, got %v", err)
	}

	in := tip.SendInput{TipID: uuid.New(), PostID: uuid.New(), AuthorID: author, Amount: 10}
	first, err := p.SendTip(ctx, buyer, in)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := p.SendTip(ctx, buyer, in)
	if err != nil || second.ID != first.ID {
		t.Fatalf("retry: %v", err)
	}
	if vp(t, store, buyer.UserID) != 90 {
		t.Fatalf("retry charged twice: %d", vp(t, store, buyer.UserID))
	}
}
