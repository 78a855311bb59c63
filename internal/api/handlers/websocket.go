package handlers

import (
	"net/http"

	"github.com/aqua-monitor/aqua-alert/internal/websocket"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler handles WebSocket requests
type WebSocketHandler struct {
	hub *websocket.Hub
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

// HandleWebSocket handles GET /ws?topics=a,b&deviceId=x
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

// GetClients handles GET /api/ws/clients
func (h *WebSocketHandler) GetClients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clients": h.hub.ClientCount()})
}

// RegisterWebSocketRoutes registers the realtime endpoints
func RegisterWebSocketRoutes(router *gin.Engine, wsHub *websocket.Hub) {
	wsHandler := NewWebSocketHandler(wsHub)

	router.GET("/ws", wsHandler.HandleWebSocket)
	router.GET("/api/ws/clients", wsHandler.GetClients)
}
