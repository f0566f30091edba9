package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dice-offline/internal/logger"
	"dice-offline/internal/middleware"
	"dice-offline/internal/models"
	"dice-offline/internal/services"
)

type TrayHandler struct {
	tray *services.TrayService
}

func NewTrayHandler(tray *services.TrayService) *TrayHandler {
	return &TrayHandler{tray: tray}
}

func (h *TrayHandler) GetTray(c *gin.Context) {
	state, err := h.tray.Get(c.Request.Context(), c.GetString(middleware.TableIDKey))
	if err != nil {
		storageError(c, "Failed to load tray", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tray": trayResponse(state)})
}

func (h *TrayHandler) UpdateTray(c *gin.Context) {
	var req models.TrayUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	state, err := h.tray.Update(c.Request.Context(), c.GetString(middleware.TableIDKey), req)
	if err != nil {
		storageError(c, "Failed to update tray", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tray": trayResponse(state)})
}

func (h *TrayHandler) Roll(c *gin.Context) {
	state, result, err := h.tray.Roll(c.Request.Context(), c.GetString(middleware.TableIDKey))
	if err != nil {
		storageError(c, "Failed to roll", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
		"tray":    trayResponse(state),
	})
}

func (h *TrayHandler) Repeat(c *gin.Context) {
	state, result, err := h.tray.Repeat(c.Request.Context(), c.GetString(middleware.TableIDKey))
	if err != nil {
		storageError(c, "Failed to repeat roll", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
		"tray":    trayResponse(state),
	})
}

func (h *TrayHandler) CycleMode(c *gin.Context) {
	state, err := h.tray.CycleMode(c.Request.Context(), c.GetString(middleware.TableIDKey))
	if err != nil {
		storageError(c, "Failed to change mode", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tray": trayResponse(state)})
}

func (h *TrayHandler) Reset(c *gin.Context) {
	state, err := h.tray.Reset(c.Request.Context(), c.GetString(middleware.TableIDKey))
	if err != nil {
		storageError(c, "Failed to reset tray", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tray": trayResponse(state)})
}

func trayResponse(state models.TrayState) gin.H {
	return gin.H{
		"quantity":     state.Quantity,
		"sides":        state.Sides,
		"mode":         state.Mode,
		"mode_label":   state.Mode.Label(),
		"mode_visible": state.ModeVisible(),
		"last":         state.Last,
		"output":       state.Output,
	}
}

func storageError(c *gin.Context, message string, err error) {
	logger.WithCtx(c.Request.Context()).Error(message, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
