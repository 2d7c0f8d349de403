package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/http/middleware"
	"github.com/ignatzorin/vix-backend/internal/interface/http/dto"
	"github.com/ignatzorin/vix-backend/internal/interface/http/response"
	"github.com/ignatzorin/vix-backend/internal/usecase/packorder"
)

type PackOrderHandler struct {
	engine *packorder.Engine
}

func NewPackOrderHandler(engine *packorder.Engine) *PackOrderHandler {
	return &PackOrderHandler{engine: engine}
}

func (h *PackOrderHandler) Purchase(c *gin.Context) {
	var req dto.PurchasePackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	orderID, err := dto.ParseOptionalUUID(req.OrderID)
	if err != nil {
		response.BadRequest(c, "поле order_id должно быть валидным UUID")
		return
	}
	packID, ok := bodyUUID(c, "pack_id", req.PackID)
	if !ok {
		return
	}
	sellerID, ok := bodyUUID(c, "seller_id", req.SellerID)
	if !ok {
		return
	}
	method, err := valueobject.NewPaymentMethod(req.PaymentMethod)
	if err != nil {
		response.Error(c, err)
		return
	}

	order, err := h.engine.Purchase(c.Request.Context(), middleware.Actor(c), packorder.PurchaseInput{
		OrderID:  orderID,
		PackID:   packID,
		SellerID: sellerID,
		VPAmount: req.VPAmount,
		Method:   method,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToPackOrderResponse(order))
}

// Ban обрабатывает POST /api/v1/pack-orders/:id/ban. Доступно только продавцу.
func (h *PackOrderHandler) Ban(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.engine.Ban(c.Request.Context(), middleware.Actor(c), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToPackOrderResponse(order))
}

func (h *PackOrderHandler) Get(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.engine.Get(c.Request.Context(), middleware.Actor(c), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToPackOrderResponse(order))
}

func (h *PackOrderHandler) ListMine(c *gin.Context) {
	side := c.Query("role")
	if side != "" && side != "buyer" && side != "seller" {
		response.BadRequest(c, "role должен быть buyer или seller")
		return
	}
	limit, offset := page(c)
	orders, err := h.engine.ListMine(c.Request.Context(), middleware.Actor(c), side, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToPackOrderResponses(orders), len(orders), limit, offset)
}
