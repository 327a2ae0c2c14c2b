package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"showroom-gateway/internal/actor"
	"showroom-gateway/internal/audit"
	"showroom-gateway/internal/conversation"
	"showroom-gateway/internal/dispatch"
	"showroom-gateway/internal/models"
	"showroom-gateway/internal/phone"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	Audit         *audit.Recorder
	Dispatcher    *dispatch.Dispatcher
	Conversations *conversation.Store
	Normalizer    *phone.Normalizer
	// AIName labels automated replies in the message log.
	AIName string
}

func NewDashboardHandler(rec *audit.Recorder, d *dispatch.Dispatcher, store *conversation.Store, n *phone.Normalizer, aiName string) *DashboardHandler {
	if aiName == "" {
		aiName = "AI Assistant"
	}
	return &DashboardHandler{Audit: rec, Dispatcher: d, Conversations: store, Normalizer: n, AIName: aiName}
}

type messageView struct {
	ID             uint      `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Phone          string    `json:"phone"`
	Direction      string    `json:"direction"`
	SenderType     string    `json:"sender_type"`
	SenderRole     string    `json:"sender_role,omitempty"`
	SenderLabel    string    `json:"sender_label"`
	Intent         string    `json:"intent"`
	Content        string    `json:"content"`
	MediaRef       string    `json:"media_ref,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// senderLabel is the name shown next to a message bubble. Staff are labelled
// by role, automated replies by the assistant's name and every other
// outbound message as the showroom admin.
func (h *DashboardHandler) senderLabel(m *models.Message) string {
	if m.Direction == audit.DirectionOutbound {
		if m.SenderType == audit.SenderAI {
			return h.AIName
		}
		return "Admin"
	}
	if m.SenderType != audit.SenderStaff {
		return "Customer"
	}
	switch actor.Role(m.SenderRole) {
	case actor.RoleOwner:
		return "Owner"
	case actor.RoleAdmin:
		return "Admin"
	default:
		return "Staff"
	}
}

func queryLimit(c *gin.Context) int {
	n, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	return n
}

// GetMessages returns the tenant's message log, newest first.
func (h *DashboardHandler) GetMessages(c *gin.Context) {
	rows, err := h.Audit.Messages(c.Request.Context(), c.Param("tenantId"), c.Query("phone"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]messageView, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		out = append(out, messageView{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			Phone:          m.Phone,
			Direction:      m.Direction,
			SenderType:     m.SenderType,
			SenderRole:     m.SenderRole,
			SenderLabel:    h.senderLabel(m),
			Intent:         m.Intent,
			Content:        m.Content,
			MediaRef:       m.MediaRef,
			Status:         m.Status,
			CreatedAt:      m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetAudit returns the command ledger, newest first.
func (h *DashboardHandler) GetAudit(c *gin.Context) {
	rows, err := h.Audit.Commands(c.Request.Context(), c.Param("tenantId"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

type SendRequest struct {
	To      string `json:"to" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// SendMessage lets a staff member answer from the dashboard, typically on an
// escalated conversation.
func (h *DashboardHandler) SendMessage(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.Param("tenantId")
	key := h.Normalizer.Normalize(req.To).Key
	meta := dispatch.Meta{TenantID: tenantID, Phone: key, SenderType: audit.SenderStaff}
	conv, err := h.Conversations.Get(c.Request.Context(), tenantID, key)
	switch {
	case err == nil:
		meta.ConversationID = conv.ID
	case !errors.Is(err, conversation.ErrNotFound):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := h.Dispatcher.Dispatch(c.Request.Context(), meta, dispatch.Payload{To: req.To, Text: req.Content})
	if !out.Sent {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message: " + out.ErrorString()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Message sent", "message_id": out.MessageID})
}
