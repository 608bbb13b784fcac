package routes

import (
	"github.com/gin-gonic/gin"

	"bus_tracker/internal/realtime"
)

// WebSocketRoutes mounts the realtime gateway. Authentication happens
// inside the handshake, not through RequireAuth, so the 401 is returned
// before any upgrade.
func WebSocketRoutes(r *gin.Engine, hub *realtime.Hub) {
	r.GET("/ws", hub.Handler())
}
