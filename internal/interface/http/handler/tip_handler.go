package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/vix-backend/internal/http/middleware"
	"github.com/ignatzorin/vix-backend/internal/interface/http/dto"
	"github.com/ignatzorin/vix-backend/internal/interface/http/response"
	"github.com/ignatzorin/vix-backend/internal/usecase/tip"
)

type TipHandler struct {
	processor *tip.Processor
}

func NewTipHandler(processor *tip.Processor) *TipHandler {
	return &TipHandler{processor: processor}
}

// Send обрабатывает POST /api/v1/tips. Деньги двигаются только при confirm_irreversible=true.
func (h *TipHandler) Send(c *gin.Context) {
	var req dto.SendTipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	if !req.ConfirmIrreversible {
		response.BadRequest(c, "подтвердите отправку (confirm_irreversible): "+tip.IrreversibleWarning)
		return
	}
	tipID, err := dto.ParseOptionalUUID(req.TipID)
	if err != nil {
		response.BadRequest(c, "поле tip_id должно быть валидным UUID")
		return
	}
	postID, ok := bodyUUID(c, "post_id", req.PostID)
	if !ok {
		return
	}
	authorID, ok := bodyUUID(c, "author_id", req.AuthorID)
	if !ok {
		return
	}

	sent, err := h.processor.SendTip(c.Request.Context(), middleware.Actor(c), tip.SendInput{
		TipID:    tipID,
		PostID:   postID,
		PostType: req.PostType,
		AuthorID: authorID,
		Amount:   req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToTipResponse(sent, tip.IrreversibleWarning))
}

// ListForPost обрабатывает GET /api/v1/posts/:id/tips.
func (h *TipHandler) ListForPost(c *gin.Context) {
	postID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, offset := page(c)
	tips, err := h.processor.ListForPost(c.Request.Context(), postID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToTipResponses(tips), len(tips), limit, offset)
}
