package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dice-offline/internal/middleware"
	"dice-offline/internal/models"
	"dice-offline/internal/services"
)

type CombatHandler struct {
	combat *services.CombatStore
}

func NewCombatHandler(combat *services.CombatStore) *CombatHandler {
	return &CombatHandler{combat: combat}
}

type combatFieldRequest struct {
	Value *string `json:"value" binding:"required"`
}

func (h *CombatHandler) GetCombat(c *gin.Context) {
	state, err := h.combat.Load(c.Request.Context(), c.GetString(middleware.TableIDKey))
	if err != nil {
		storageError(c, "Failed to load combat state", err)
		return
	}
	c.JSON(http.StatusOK, combatResponse(state))
}

func (h *CombatHandler) SetField(c *gin.Context) {
	field, err := models.ParseCombatField(c.Param("field"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Unknown combat field",
			"details": err.Error(),
		})
		return
	}

	var req combatFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	state, err := h.combat.Set(c.Request.Context(), c.GetString(middleware.TableIDKey), field, *req.Value)
	if errors.Is(err, models.ErrInvalidCombatValue) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid combat value",
			"details": err.Error(),
		})
		return
	}
	if err != nil {
		storageError(c, "Failed to save combat state", err)
		return
	}
	c.JSON(http.StatusOK, combatResponse(state))
}

func (h *CombatHandler) Reset(c *gin.Context) {
	state, err := h.combat.Reset(c.Request.Context(), c.GetString(middleware.TableIDKey))
	if err != nil {
		storageError(c, "Failed to reset combat state", err)
		return
	}
	c.JSON(http.StatusOK, combatResponse(state))
}

func combatResponse(state models.CombatState) gin.H {
	return gin.H{
		"success": true,
		"combat":  state,
		"hud":     models.NewHUDView(state),
	}
}
