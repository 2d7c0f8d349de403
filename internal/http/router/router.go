package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/vix-backend/internal/config"
	"github.com/ignatzorin/vix-backend/internal/http/middleware"
	"github.com/ignatzorin/vix-backend/internal/interface/http/handler"
	"github.com/ignatzorin/vix-backend/internal/metrics"
	"github.com/ignatzorin/vix-backend/internal/service"
)

// Handlers - все обработчики HTTP API.
type Handlers struct {
	Accounts      *handler.AccountHandler
	ServiceOrders *handler.ServiceOrderHandler
	PackOrders    *handler.PackOrderHandler
	Tips          *handler.TipHandler
	WS            *handler.WSHandler
	Health        *handler.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens *service.TokenManager, idempotency *service.CacheService) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	if h.WS != nil {
		api.GET("/ws", h.WS.Handle)
	}

	v1 := api.Group("/v1")
	v1.Use(middleware.AuthMiddleware(tokens))

	// Денежные операции: лимит на пользователя и повтор по Idempotency-Key.
	money := v1.Group("")
	money.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	money.Use(middleware.Idempotency(idempotency, cfg.IdempotencyTTL))

	v1.GET("/balance", h.Accounts.GetBalance)
	v1.GET("/transfers", h.Accounts.ListTransfers)
	money.POST("/accounts", h.Accounts.Register)

	orders := v1.Group("/service-orders")
	{
		orders.GET("", h.ServiceOrders.ListMine)
		orders.GET("/:id", middleware.UUIDValidator("id"), h.ServiceOrders.Get)
	}
	moneyOrders := money.Group("/service-orders")
	{
		moneyOrders.POST("", h.ServiceOrders.Create)
		moneyOrders.POST("/:id/accept", middleware.UUIDValidator("id"), h.ServiceOrders.Accept)
		moneyOrders.POST("/:id/decline", middleware.UUIDValidator("id"), h.ServiceOrders.Decline)
		moneyOrders.POST("/:id/deliver", middleware.UUIDValidator("id"), h.ServiceOrders.Deliver)
		moneyOrders.POST("/:id/confirm", middleware.UUIDValidator("id"), h.ServiceOrders.Confirm)
		moneyOrders.POST("/:id/cancel", middleware.UUIDValidator("id"), h.ServiceOrders.Cancel)
	}

	packs := v1.Group("/pack-orders")
	{
		packs.GET("", h.PackOrders.ListMine)
		packs.GET("/:id", middleware.UUIDValidator("id"), h.PackOrders.Get)
	}
	moneyPacks := money.Group("/pack-orders")
	{
		moneyPacks.POST("", h.PackOrders.Purchase)
		moneyPacks.POST("/:id/ban", middleware.UUIDValidator("id"), h.PackOrders.Ban)
	}

	money.POST("/tips", h.Tips.Send)
	v1.GET("/posts/:id/tips", middleware.UUIDValidator("id"), h.Tips.ListForPost)

	return r
}
