package routes

import (
	"log"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"helperhand-server/websocket"
)

// serveRealtime upgrades an authenticated request onto the notification hub.
func serveRealtime(hub *websocket.Hub, upgrader *gorillaws.Upgrader) gin.HandlerFunc {
	if upgrader == nil {
		upgrader = websocket.NewUpgrader(nil)
	}
	return func(c *gin.Context) {
		p := principal(c)
		log.Printf("🔌 Realtime connection from %s", p.Key())
		websocket.ServeWebSocket(hub, upgrader, c.Writer, c.Request, p.Key())
	}
}
