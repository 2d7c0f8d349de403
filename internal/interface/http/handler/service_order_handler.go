package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/http/middleware"
	"github.com/ignatzorin/vix-backend/internal/interface/http/dto"
	"github.com/ignatzorin/vix-backend/internal/interface/http/response"
	"github.com/ignatzorin/vix-backend/internal/usecase/serviceorder"
)

type ServiceOrderHandler struct {
	engine *serviceorder.Engine
}

func NewServiceOrderHandler(engine *serviceorder.Engine) *ServiceOrderHandler {
	return &ServiceOrderHandler{engine: engine}
}

func (h *ServiceOrderHandler) Create(c *gin.Context) {
	var req dto.CreateServiceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	orderID, err := dto.ParseOptionalUUID(req.OrderID)
	if err != nil {
		response.BadRequest(c, "поле order_id должно быть валидным UUID")
		return
	}
	sellerID, ok := bodyUUID(c, "seller_id", req.SellerID)
	if !ok {
		return
	}
	serviceID, ok := bodyUUID(c, "service_id", req.ServiceID)
	if !ok {
		return
	}

	order, err := h.engine.Create(c.Request.Context(), middleware.Actor(c), serviceorder.CreateInput{
		OrderID:   orderID,
		SellerID:  sellerID,
		ServiceID: serviceID,
		VPAmount:  req.VPAmount,
		Features:  req.Features(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToServiceOrderResponse(order))
}

func (h *ServiceOrderHandler) Get(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.engine.Get(c.Request.Context(), middleware.Actor(c), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToServiceOrderResponse(order))
}

// ListMine обрабатывает GET /api/v1/service-orders?role=buyer|seller.
func (h *ServiceOrderHandler) ListMine(c *gin.Context) {
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
	response.Paginated(c, dto.ToServiceOrderResponses(orders), len(orders), limit, offset)
}

func (h *ServiceOrderHandler) Accept(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.engine.Accept(c.Request.Context(), middleware.Actor(c), orderID))
}

func (h *ServiceOrderHandler) Decline(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите причину отказа")
		return
	}
	h.respond(c)(h.engine.Decline(c.Request.Context(), middleware.Actor(c), orderID, req.Reason))
}

func (h *ServiceOrderHandler) Deliver(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.DeliverRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.engine.MarkDelivered(c.Request.Context(), middleware.Actor(c), orderID, req.Notes))
}

func (h *ServiceOrderHandler) Confirm(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ConfirmRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.engine.ConfirmDelivery(c.Request.Context(), middleware.Actor(c), orderID, req.Feedback))
}

func (h *ServiceOrderHandler) Cancel(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите причину отмены")
		return
	}
	h.respond(c)(h.engine.Cancel(c.Request.Context(), middleware.Actor(c), orderID, req.Reason))
}

// respond отдаёт результат перехода: respond(c)(engine.Accept(...)).
func (h *ServiceOrderHandler) respond(c *gin.Context) func(*entity.ServiceOrder, error) {
	return func(order *entity.ServiceOrder, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, dto.ToServiceOrderResponse(order))
	}
}
