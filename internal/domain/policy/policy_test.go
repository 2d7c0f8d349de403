package policy

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

func TestServiceOrderPolicy(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()
	order, err := entity.NewServiceOrder(uuid.Nil, buyer, seller, uuid.New(), 10, nil)
	require.NoError(t, err)

	asBuyer := Actor{UserID: buyer, Role: valueobject.RoleClient}
	asSeller := Actor{UserID: seller, Role: valueobject.RoleProvider}
	stranger := Actor{UserID: uuid.New(), Role: valueobject.RoleBoth}

	assert.NoError(t, ServiceOrder(OpAccept, asSeller, order))
	assert.True(t, apperror.IsForbidden(ServiceOrder(OpAccept, asBuyer, order)))
	assert.True(t, apperror.IsForbidden(ServiceOrder(OpDeliver, asBuyer, order)))
	assert.NoError(t, ServiceOrder(OpConfirm, asBuyer, order))
	assert.True(t, apperror.IsForbidden(ServiceOrder(OpConfirm, asSeller, order)))
	assert.NoError(t, ServiceOrder(OpCancel, asBuyer, order))
	assert.NoError(t, ServiceOrder(OpCancel, asSeller, order))
	assert.True(t, apperror.IsForbidden(ServiceOrder(OpCancel, stranger, order)))
	assert.True(t, errors.Is(ServiceOrder(OpAccept, Actor{}, order), apperror.ErrUnauthorized))

	// исполнитель, вошедший с ролью client, не может вести заказ
	sellerAsClient := Actor{UserID: seller, Role: valueobject.RoleClient}
	assert.True(t, apperror.IsForbidden(ServiceOrder(OpAccept, sellerAsClient, order)))
	assert.True(t, apperror.IsForbidden(ServiceOrder(OpDeliver, sellerAsClient, order)))
	assert.NoError(t, ServiceOrder(OpAccept, Actor{UserID: seller, Role: valueobject.RoleBoth}, order))
	assert.NoError(t, ServiceOrder(OpCancel, sellerAsClient, order))
}

func TestSendTipPolicy(t *testing.T) {
	author := uuid.New()

	assert.NoError(t, SendTip(Actor{UserID: uuid.New(), Role: valueobject.RoleClient}, author))
	assert.NoError(t, SendTip(Actor{UserID: uuid.New(), Role: valueobject.RoleBoth}, author))
	assert.True(t, apperror.IsForbidden(SendTip(Actor{UserID: uuid.New(), Role: valueobject.RoleProvider}, author)))
	assert.True(t, apperror.IsForbidden(SendTip(Actor{UserID: author, Role: valueobject.RoleClient}, author)))
	assert.True(t, apperror.IsUnauthorized(SendTip(Actor{UserID: valueobject.SystemAccountID, Role: valueobject.RoleClient}, author)))
}

func TestBanPackPolicy(t *testing.T) {
	seller := uuid.New()
	order, err := entity.NewPackOrder(uuid.Nil, uuid.New(), uuid.New(), seller, 50, valueobject.CurrencyVP)
	require.NoError(t, err)

	assert.NoError(t, BanPack(Actor{UserID: seller, Role: valueobject.RoleProvider}, order))
	assert.True(t, apperror.IsForbidden(BanPack(Actor{UserID: seller, Role: valueobject.RoleClient}, order)))
	assert.True(t, apperror.IsForbidden(BanPack(Actor{UserID: order.BuyerID, Role: valueobject.RoleBoth}, order)))
	assert.NoError(t, ViewPackOrder(Actor{UserID: order.BuyerID}, order))
	assert.True(t, apperror.IsForbidden(ViewPackOrder(Actor{UserID: uuid.New()}, order)))
}
