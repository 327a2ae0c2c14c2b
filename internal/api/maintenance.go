package api

import (
	"errors"
	"log/slog"
	"net/http"

	"showroom-gateway/internal/maintenance"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MaintenanceHandler struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

func NewMaintenanceHandler(db *gorm.DB, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{DB: db, Logger: logger}
}

type ResetRequest struct {
	Confirm          bool `json:"confirm"`
	IncludeInventory bool `json:"include_inventory"`
}

func (h *MaintenanceHandler) ResetTenant(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	counts, err := maintenance.ResetTenant(c.Request.Context(), h.DB, c.Param("tenantId"),
		maintenance.Options{Confirm: req.Confirm, IncludeInventory: req.IncludeInventory}, h.Logger)
	if errors.Is(err, maintenance.ErrConfirmationRequired) {
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": counts})
}
