package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dice-offline/internal/logger"
	"dice-offline/internal/services"
)

const HeaderOfflineCache = "X-Offline-Cache"

// OfflineHandler is the offline edge: every request goes through the active
// cache manager.
type OfflineHandler struct {
	controller *services.Controller
	origin     string
}

func NewOfflineHandler(controller *services.Controller, origin string) *OfflineHandler {
	return &OfflineHandler{controller: controller, origin: origin}
}

func (h *OfflineHandler) Serve(c *gin.Context) {
	resp, source, err := h.controller.Fetch(c.Request.Context(), c.Request)
	if err != nil {
		status := http.StatusBadGateway
		message := "Origin unreachable"
		if errors.Is(err, services.ErrOffline) {
			status = http.StatusGatewayTimeout
			message = "Offline"
		}
		logger.WithCtx(c.Request.Context()).Warn("offline fetch failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(status, gin.H{
			"error":   message,
			"details": err.Error(),
		})
		return
	}

	header := c.Writer.Header()
	for name, values := range resp.Header {
		for _, v := range values {
			header.Add(name, v)
		}
	}
	header.Set(HeaderOfflineCache, string(source))
	c.Status(resp.Status)
	if c.Request.Method != http.MethodHead {
		_, _ = c.Writer.Write(resp.Body)
	}
}

func (h *OfflineHandler) Status(c *gin.Context) {
	m := h.controller.Active()
	if m == nil {
		c.JSON(http.StatusOK, gin.H{
			"active": false,
			"origin": h.origin,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active":   true,
		"origin":   h.origin,
		"cache":    m.Name(),
		"version":  m.Version(),
		"manifest": m.Manifest(),
	})
}
