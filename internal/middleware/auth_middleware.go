package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	authz "github.com/yigit/eventhub/internal/app/auth"
	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"github.com/yigit/eventhub/internal/pkg/auth"
)

const callerKey = "caller"

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// JWTAuth validates the bearer token and stores the caller identity on the context
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.Trim(c.GetHeader("Authorization"), "\"'")
		if authHeader == "" {
			HandleAPIError(c, apperrors.NewUnauthenticatedError("Authorization header missing"))
			c.Abort()
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}

		c.Set(callerKey, claims.Caller())
		c.Next()
	}
}

// RoleRequired rejects callers that hold none of roles. JWTAuth must run first.
func (m *AuthMiddleware) RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.RequireRole(CallerFrom(c), roles...); err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CallerFrom returns the identity set by JWTAuth, or nil for anonymous requests
func CallerFrom(c *gin.Context) *models.Caller {
	value, exists := c.Get(callerKey)
	if !exists {
		return nil
	}
	caller, _ := value.(*models.Caller)
	return caller
}
