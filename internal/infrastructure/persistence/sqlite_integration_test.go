package persistence_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/vix-backend/internal/db"
	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/vix-backend/internal/usecase/ledger"
	"github.com/ignatzorin/vix-backend/internal/usecase/packorder"
	"github.com/ignatzorin/vix-backend/internal/usecase/reconcile"
	"github.com/ignatzorin/vix-backend/internal/usecase/serviceorder"
	"github.com/ignatzorin/vix-backend/internal/usecase/tip"
)

func openSQLite(t *testing.T) *persistence.Store {
	t.Helper()
	logger.Silence()
	ctx := context.Background()

	conn, err := db.NewSQLite(ctx, filepath.Join(t.TempDir(), "vix.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.RunMigrations(ctx, conn, db.MigrationsDir(filepath.Join("..", "..", "..", "migrations"), db.DriverSQLite)))
	return persistence.NewStore(conn)
}

func TestSQLite_EconomyRoundTrip(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()

	l := ledger.New(store, store.Accounts(), store.Transfers(), valueobject.DefaultConversionPolicy())
	orders := serviceorder.NewEngine(store, store.ServiceOrders(), store.Accounts(), l, nil)
	packs := packorder.NewEngine(store, store.PackOrders(), l, nil)
	tips := tip.NewProcessor(store, store.Tips(), l, nil, 0)

	buyer := policy.Actor{UserID: uuid.New(), Role: valueobject.RoleClient}
	seller := policy.Actor{UserID: uuid.New(), Role: valueobject.RoleProvider}
	for _, id := range []uuid.UUID{buyer.UserID, seller.UserID} {
		created, err := store.Accounts().Create(ctx, entity.NewAccount(id))
		require.NoError(t, err)
		require.True(t, created)
	}
	again, err := store.Accounts().Create(ctx, entity.NewAccount(buyer.UserID))
	require.NoError(t, err)
	assert.False(t, again)

	_, err = l.Transfer(ctx, ledger.TransferInput{
		From: valueobject.SystemAccountID, To: buyer.UserID, Currency: valueobject.CurrencyVP,
		Amount: 500, Reason: valueobject.ReasonTopUp, IdempotencyKey: "top-up:test",
	})
	require.NoError(t, err)

	order, err := orders.Create(ctx, buyer, serviceorder.CreateInput{
		SellerID:  seller.UserID,
		ServiceID: uuid.New(),
		VPAmount:  300,
		Features:  []entity.Feature{{Name: "срочно", Price: 50}},
	})
	require.NoError(t, err)

	_, err = orders.Accept(ctx, seller, order.ID)
	require.NoError(t, err)
	_, err = orders.Accept(ctx, seller, order.ID)
	assert.True(t, apperror.IsInvalidTransition(err))

	_, err = orders.MarkDelivered(ctx, seller, order.ID, "готово")
	require.NoError(t, err)
	confirmed, err := orders.ConfirmDelivery(ctx, buyer, order.ID, "спасибо")
	require.NoError(t, err)
	assert.Equal(t, int64(200), confirmed.VCCredited)

	stored, err := store.ServiceOrders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ServiceOrderConfirmed, stored.Status)
	assert.Equal(t, []entity.Feature{{Name: "срочно", Price: 50}}, stored.AdditionalFeatures)
	require.NotNil(t, stored.DeliveryNotes)
	assert.Equal(t, "готово", *stored.DeliveryNotes)

	pack, err := packs.Purchase(ctx, buyer, packorder.PurchaseInput{
		PackID: uuid.New(), SellerID: seller.UserID, VPAmount: 150, Method: valueobject.CurrencyVP,
	})
	require.NoError(t, err)
	banned, err := packs.Ban(ctx, seller, pack.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), banned.RefundedVP)
	assert.Equal(t, int64(100), banned.ClawedBackVC)
	_, err = packs.Ban(ctx, seller, pack.ID)
	assert.ErrorIs(t, err, apperror.ErrAlreadyBanned)

	_, err = tips.SendTip(ctx, buyer, tip.SendInput{PostID: uuid.New(), AuthorID: seller.UserID, Amount: 50})
	require.NoError(t, err)
	_, err = tips.SendTip(ctx, buyer, tip.SendInput{PostID: uuid.New(), AuthorID: seller.UserID, Amount: 10_000})
	assert.True(t, apperror.IsInsufficientFunds(err))

	buyerAcc, err := store.Accounts().FindByID(ctx, buyer.UserID)
	require.NoError(t, err)
	sellerAcc, err := store.Accounts().FindByID(ctx, seller.UserID)
	require.NoError(t, err)
	escrow, err := store.Accounts().FindByID(ctx, valueobject.EscrowAccountID)
	require.NoError(t, err)

	assert.Equal(t, int64(150), buyerAcc.VPBalance)
	assert.Equal(t, int64(200), sellerAcc.VPBalance)
	assert.Equal(t, int64(100), sellerAcc.VCBalance)
	assert.Zero(t, escrow.VPBalance)

	history, err := store.Transfers().ListByAccount(ctx, buyer.UserID, 50, 0)
	require.NoError(t, err)
	for _, tr := range history {
		assert.True(t, tr.Verify(), "checksum %s", tr.IdempotencyKey)
	}

	mine, err := store.ServiceOrders().List(ctx, repository.OrderFilter{UserID: seller.UserID, AsSeller: true})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	report, err := reconcile.NewReconciler(store.Accounts(), store.Transfers(), store.ServiceOrders()).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK(), "%+v", report)
}

func TestSQLite_EscrowHeldUntilSettlement(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()
	l := ledger.New(store, store.Accounts(), store.Transfers(), valueobject.DefaultConversionPolicy())
	orders := serviceorder.NewEngine(store, store.ServiceOrders(), store.Accounts(), l, nil)

	buyer := policy.Actor{UserID: uuid.New(), Role: valueobject.RoleBoth}
	seller := uuid.New()
	for _, id := range []uuid.UUID{buyer.UserID, seller} {
		_, err := store.Accounts().Create(ctx, entity.NewAccount(id))
		require.NoError(t, err)
	}
	_, err := l.Transfer(ctx, ledger.TransferInput{
		From: valueobject.SystemAccountID, To: buyer.UserID, Currency: valueobject.CurrencyVP,
		Amount: 100, Reason: valueobject.ReasonTopUp, IdempotencyKey: "top-up:escrow",
	})
	require.NoError(t, err)

	_, err = orders.Create(ctx, buyer, serviceorder.CreateInput{SellerID: seller, ServiceID: uuid.New(), VPAmount: 80})
	require.NoError(t, err)
	_, err = orders.Create(ctx, buyer, serviceorder.CreateInput{SellerID: seller, ServiceID: uuid.New(), VPAmount: 80})
	assert.True(t, apperror.IsInsufficientFunds(err))

	held, err := store.ServiceOrders().SumEscrowed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(80), held)

	report, err := reconcile.NewReconciler(store.Accounts(), store.Transfers(), store.ServiceOrders()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(80), report.EscrowBalance)
	assert.True(t, report.OK())
}
