package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func reportSummary(reports Reports) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := reports.Summary(c.Request.Context(), principal(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", summary)
	}
}

// reportCalendar defaults to the current month.
func reportCalendar(reports Reports) gin.HandlerFunc {
	return func(c *gin.Context) {
		month := c.DefaultQuery("month", time.Now().UTC().Format("2006-01"))

		days, err := reports.Calendar(c.Request.Context(), principal(c), month)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "month": month, "data": days})
	}
}
