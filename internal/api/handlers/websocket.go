package handlers

import (
	"net/http"

	"opsboard/internal/api/middleware"
	"opsboard/internal/relay"
	"opsboard/pkg/response"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	hub *relay.Hub
}

func NewWSHandler(hub *relay.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket godoc
// @Summary WebSocket relay endpoint
// @Description Upgrade to a WebSocket carrying FEED_SUBSCRIBE / LOGS_SUBSCRIBE requests
// @Tags websocket
// @Param token query string true "Bearer JWT"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]interface{} "missing or invalid token"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// WSAuth ran before us; a request without a principal never upgrades.
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required")
		return
	}

	relay.ServeWS(h.hub, c.Writer, c.Request, principal.UserID)
}
