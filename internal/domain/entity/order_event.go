package entity

import (
	"time"

	"github.com/google/uuid"
)

type OrderKind string

const (
	OrderKindService OrderKind = "service_order"
	OrderKindPack    OrderKind = "pack_order"
	OrderKindTip     OrderKind = "vixtip"
)

// OrderEvent уходит в канал уведомлений после успешного перехода.
type OrderEvent struct {
	OrderID    uuid.UUID   `json:"orderId"`
	Kind       OrderKind   `json:"kind"`
	FromStatus string      `json:"fromStatus,omitempty"`
	ToStatus   string      `json:"toStatus"`
	Actor      uuid.UUID   `json:"actor"`
	Recipients []uuid.UUID `json:"-"`
	OccurredAt time.Time   `json:"occurredAt"`
}

func NewOrderEvent(kind OrderKind, orderID uuid.UUID, from, to string, actor uuid.UUID, recipients ...uuid.UUID) OrderEvent {
	return OrderEvent{
		OrderID:    orderID,
		Kind:       kind,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Recipients: recipients,
		OccurredAt: time.Now().UTC(),
	}
}
