package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

// Tip - чаевые автору поста. Необратимы.
type Tip struct {
	ID        uuid.UUID
	PostID    uuid.UUID
	PostType  string
	BuyerID   uuid.UUID
	AuthorID  uuid.UUID
	VPAmount  int64
	Status    valueobject.TipStatus
	CreatedAt time.Time
}

func NewTip(id, postID uuid.UUID, postType string, buyerID, authorID uuid.UUID, amount int64) (*Tip, error) {
	if amount < 1 {
		return nil, apperror.ErrInvalidAmount
	}
	if postID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "пост обязателен")
	}
	if authorID == uuid.Nil || valueobject.IsReservedAccount(authorID) {
		return nil, apperror.New(apperror.ErrCodeValidation, "автор поста обязателен")
	}
	postType = strings.TrimSpace(postType)
	if postType == "" {
		postType = "post"
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Tip{
		ID:        id,
		PostID:    postID,
		PostType:  postType,
		BuyerID:   buyerID,
		AuthorID:  authorID,
		VPAmount:  amount,
		Status:    valueobject.TipCompleted,
		CreatedAt: time.Now().UTC(),
	}, nil
}
