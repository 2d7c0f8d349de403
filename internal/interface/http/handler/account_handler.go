package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/http/middleware"
	"github.com/ignatzorin/vix-backend/internal/interface/http/dto"
	"github.com/ignatzorin/vix-backend/internal/interface/http/response"
	"github.com/ignatzorin/vix-backend/internal/usecase/account"
)

type AccountHandler struct {
	accounts *account.Service
}

func NewAccountHandler(accounts *account.Service) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register обрабатывает POST /api/v1/accounts. Повторный вызов возвращает существующий счёт.
func (h *AccountHandler) Register(c *gin.Context) {
	actor := middleware.Actor(c)
	if err := policy.Authenticated(actor); err != nil {
		response.Error(c, err)
		return
	}
	acc, created, err := h.accounts.Register(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, dto.ToAccountResponse(acc, true))
		return
	}
	response.Success(c, dto.ToAccountResponse(acc, false))
}

// GetBalance обрабатывает GET /api/v1/balance.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	balance, err := h.accounts.GetBalance(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToBalanceResponse(balance))
}

// ListTransfers обрабатывает GET /api/v1/transfers.
func (h *AccountHandler) ListTransfers(c *gin.Context) {
	limit, offset := page(c)
	transfers, err := h.accounts.ListTransfers(c.Request.Context(), middleware.Actor(c), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToTransferResponses(transfers), len(transfers), limit, offset)
}
