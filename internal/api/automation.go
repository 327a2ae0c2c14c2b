package api

import (
	"net/http"
	"time"

	"showroom-gateway/internal/health"

	"github.com/gin-gonic/gin"
)

// AutomationHandler exposes the per-tenant AI switch.
type AutomationHandler struct {
	Health *health.Monitor
}

func NewAutomationHandler(m *health.Monitor) *AutomationHandler {
	return &AutomationHandler{Health: m}
}

func (h *AutomationHandler) GetHealth(c *gin.Context) {
	st, err := h.Health.Status(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

type SetHealthRequest struct {
	Enabled       *bool      `json:"enabled" binding:"required"`
	Reason        string     `json:"reason"`
	AutoRecoverAt *time.Time `json:"auto_recover_at"`
	UpdatedBy     string     `json:"updated_by"`
}

func (h *AutomationHandler) SetHealth(c *gin.Context) {
	var req SetHealthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	by := req.UpdatedBy
	if by == "" {
		by = "api"
	}

	tenantID := c.Param("tenantId")
	if err := h.Health.SetEnabled(c.Request.Context(), tenantID, *req.Enabled, req.Reason, by, req.AutoRecoverAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Health.Status(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}
