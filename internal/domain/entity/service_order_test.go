package entity_test

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

func newOrder(t *testing.T) *entity.ServiceOrder {
	t.Helper()
	o, err := entity.NewServiceOrder(uuid.Nil, uuid.New(), uuid.New(), uuid.New(), 30, []entity.Feature{{Name: " logo ", Price: 10}})
	if err != nil {
		t.Fatalf("NewServiceOrder: %v", err)
	}
	return o
}

func TestNewServiceOrder_Validation(t *testing.T) {
	buyer := uuid.New()

	if _, err := entity.NewServiceOrder(uuid.Nil, buyer, uuid.New(), uuid.New(), 0, nil); apperror.CodeOf(err) != apperror.ErrCodeInvalidAmount {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := entity.NewServiceOrder(uuid.Nil, buyer, buyer, uuid.New(), 10, nil); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error for self order, got %v", err)
	}
	if _, err := entity.NewServiceOrder(uuid.Nil, buyer, uuid.New(), uuid.New(), 10, []entity.Feature{{Name: "a", Price: 11}}); apperror.CodeOf(err) != apperror.ErrCodeInvalidAmount {
		t.Fatalf("expected invalid amount for features, got %v", err)
	}
	if _, err := entity.NewServiceOrder(uuid.Nil, buyer, uuid.New(), uuid.New(), 10, []entity.Feature{{Name: " ", Price: 1}}); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error for empty feature, got %v", err)
	}
}

func TestNewServiceOrder_FeaturePricesDoNotWrap(t *testing.T) {
	huge := []entity.Feature{{Name: "a", Price: math.MaxInt64}, {Name: "b", Price: math.MaxInt64}}
	if _, err := entity.NewServiceOrder(uuid.Nil, uuid.New(), uuid.New(), uuid.New(), 10, huge); apperror.CodeOf(err) != apperror.ErrCodeInvalidAmount {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	exact := []entity.Feature{{Name: "a", Price: 4}, {Name: "b", Price: 6}}
	if _, err := entity.NewServiceOrder(uuid.Nil, uuid.New(), uuid.New(), uuid.New(), 10, exact); err != nil {
		t.Fatalf("features equal to amount must pass: %v", err)
	}
}

func TestServiceOrder_HappyPath(t *testing.T) {
	o := newOrder(t)
	if o.Status != valueobject.ServiceOrderPendingAcceptance || o.Version != 1 {
		t.Fatalf("unexpected initial state %s v%d", o.Status, o.Version)
	}
	if o.AdditionalFeatures[0].Name != "logo" {
		t.Fatalf("feature name not trimmed: %q", o.AdditionalFeatures[0].Name)
	}
	if err := o.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := o.MarkDelivered("готово"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if err := o.Confirm("спасибо", 20); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if o.Status != valueobject.ServiceOrderConfirmed || o.VCCredited != 20 || o.Version != 4 {
		t.Fatalf("unexpected final state %s vc=%d v%d", o.Status, o.VCCredited, o.Version)
	}
	if err := o.Cancel(o.BuyerID, "поздно"); !apperror.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition from terminal state, got %v", err)
	}
}

func TestServiceOrder_ReasonRequired(t *testing.T) {
	o := newOrder(t)
	if err := o.Decline("  "); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := o.Cancel(o.SellerID, ""); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if o.Status != valueobject.ServiceOrderPendingAcceptance {
		t.Fatalf("status changed on rejected transition: %s", o.Status)
	}
	if err := o.Cancel(o.SellerID, "нет времени"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if o.CancelledBy == nil || *o.CancelledBy != o.SellerID {
		t.Fatalf("cancelledBy not recorded")
	}
}

func TestServiceOrder_SkipIsRejected(t *testing.T) {
	o := newOrder(t)
	if err := o.MarkDelivered(""); !apperror.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := o.Confirm("", 0); !apperror.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}
