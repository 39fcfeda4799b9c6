package middleware

import (
	"net/http"
	"strings"

	"opsboard/internal/auth"
	"opsboard/pkg/response"

	"github.com/gin-gonic/gin"
)

// WSAuth authenticates WebSocket handshakes. Browsers cannot set headers on
// an upgrade request, so the bearer token arrives as a query parameter. A
// failed verification refuses the connection before any relay state exists.
func WSAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			response.AbortError(c, http.StatusUnauthorized, response.CodeUnauthorized, "token is required")
			return
		}

		tokenString = strings.Replace(tokenString, "Bearer ", "", 1)

		principal, err := authService.VerifyToken(tokenString)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}
