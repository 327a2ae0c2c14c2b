package api

import (
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Dashboard     *DashboardHandler
	Automation    *AutomationHandler
	Conversations *ConversationHandler
	Maintenance   *MaintenanceHandler
}

// RegisterRoutes mounts the admin API under /api behind the bearer token.
func RegisterRoutes(r gin.IRouter, token string, h Handlers) {
	apiGroup := r.Group("/api", AdminAuth(token))
	tenant := apiGroup.Group("/tenants/:tenantId")
	{
		tenant.GET("/messages", h.Dashboard.GetMessages)
		tenant.POST("/send", h.Dashboard.SendMessage)
		tenant.GET("/audit", h.Dashboard.GetAudit)

		tenant.GET("/ai-health", h.Automation.GetHealth)
		tenant.PUT("/ai-health", h.Automation.SetHealth)

		tenant.GET("/conversations", h.Conversations.List)
		tenant.POST("/conversations/:phone/verified-phone", h.Conversations.SetVerifiedPhone)
		tenant.POST("/conversations/:phone/close", h.Conversations.Close)
		tenant.POST("/conversations/:phone/reactivate", h.Conversations.Reactivate)

		tenant.POST("/reset", h.Maintenance.ResetTenant)
	}
}
