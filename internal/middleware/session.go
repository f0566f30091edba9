package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dice-offline/internal/logger"
	"dice-offline/internal/models"
)

const (
	TableCookie = "dice_table"
	TableIDKey  = "table_id"

	tableCookieMaxAge = 365 * 24 * 60 * 60
)

// TableSession scopes every request to a table. The table ID lives in a
// cookie and is issued on first contact.
func TableSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		tableID, err := c.Cookie(TableCookie)
		if err != nil || !models.IsTableID(tableID) {
			tableID = models.GenerateTableID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(TableCookie, tableID, tableCookieMaxAge, "/", "", false, true)
		}

		c.Set(TableIDKey, tableID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.TableIDKey, tableID))

		c.Next()
	}
}

// NoStore marks API responses as uncacheable.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
