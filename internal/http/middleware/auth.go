package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/interface/http/response"
	"github.com/ignatzorin/vix-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AuthMiddleware проверяет JWT access токен и кладёт пользователя в контекст.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		userID, role, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || userID == uuid.Nil {
			response.Unauthorized(c, "токен невалиден")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// Actor собирает текущего пользователя из контекста. Без авторизации - пустой Actor,
// его отклонит policy.Authenticated.
func Actor(c *gin.Context) policy.Actor {
	userID, _ := c.Get(ContextUserIDKey)
	role, _ := c.Get(ContextRoleKey)
	id, _ := userID.(uuid.UUID)
	r, _ := role.(valueobject.Role)
	return policy.Actor{UserID: id, Role: r}
}
