package entity

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
)

type TransferKind string

const (
	TransferKindTransfer TransferKind = "transfer"
	TransferKindConvert  TransferKind = "convert"
	TransferKindClawback TransferKind = "clawback"
)

// Transfer - неизменяемая запись журнала книги.
type Transfer struct {
	ID             uuid.UUID
	IdempotencyKey string
	From           uuid.UUID
	To             uuid.UUID
	Currency       valueobject.Currency
	Amount         int64
	Reason         valueobject.Reason
	Kind           TransferKind
	Checksum       string
	CreatedAt      time.Time
}

func NewTransfer(kind TransferKind, key string, from, to uuid.UUID, currency valueobject.Currency, amount int64, reason valueobject.Reason) *Transfer {
	t := &Transfer{
		ID:             uuid.New(),
		IdempotencyKey: key,
		From:           from,
		To:             to,
		Currency:       currency,
		Amount:         amount,
		Reason:         reason,
		Kind:           kind,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	t.Checksum = t.computeChecksum()
	return t
}

func (t *Transfer) computeChecksum() string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%s|%s|%d",
		t.ID, t.IdempotencyKey, t.From, t.To, t.Currency, t.Amount, t.Reason, t.Kind, t.CreatedAt.UnixMicro())
	sum := blake2b.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Verify проверяет, что запись не менялась после создания.
func (t *Transfer) Verify() bool {
	return t.Checksum == t.computeChecksum()
}

// Involves - участвует ли счёт в переводе.
func (t *Transfer) Involves(accountID uuid.UUID) bool {
	return t.From == accountID || t.To == accountID
}
