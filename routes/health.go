package routes

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code, database := "ok", http.StatusOK, "up"
		if db == nil {
			status, code, database = "degraded", http.StatusServiceUnavailable, "unconfigured"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				log.Printf("⚠️ Health check: database ping failed: %v", err)
				status, code, database = "degraded", http.StatusServiceUnavailable, "down"
			}
		}

		c.JSON(code, gin.H{
			"status":   status,
			"database": database,
			"message":  "HelperHand server is running",
			"time":     time.Now().UTC(),
		})
	}
}
