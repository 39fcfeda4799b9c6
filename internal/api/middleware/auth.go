package middleware

import (
	"net/http"
	"strings"

	"opsboard/internal/auth"
	"opsboard/pkg/response"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

type AuthMiddleware struct {
	authService *auth.Service
}

func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth validates the Authorization header and attaches the principal.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AbortError(c, http.StatusUnauthorized, response.CodeUnauthorized, "authorization header is required")
			return
		}

		tokenString := strings.Replace(authHeader, "Bearer ", "", 1)
		principal, err := am.authService.VerifyToken(tokenString)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Must run after RequireAuth.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil || !principal.Admin {
			response.AbortError(c, http.StatusForbidden, response.CodeForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated principal, or nil outside an
// authenticated route.
func GetPrincipal(c *gin.Context) *auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, ok := v.(*auth.Principal)
	if !ok {
		return nil
	}
	return principal
}
