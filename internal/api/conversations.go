package api

import (
	"errors"
	"net/http"
	"time"

	"showroom-gateway/internal/conversation"
	"showroom-gateway/internal/phone"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	Store      *conversation.Store
	Normalizer *phone.Normalizer
}

func NewConversationHandler(store *conversation.Store, n *phone.Normalizer) *ConversationHandler {
	return &ConversationHandler{Store: store, Normalizer: n}
}

type conversationView struct {
	ID              string                 `json:"id"`
	Phone           string                 `json:"phone"`
	Status          string                 `json:"status"`
	CurrentWorkflow string                 `json:"current_workflow,omitempty"`
	WorkflowStep    int                    `json:"workflow_step,omitempty"`
	Suspended       bool                   `json:"suspended,omitempty"`
	Context         map[string]interface{} `json:"context"`
	LastMessageAt   time.Time              `json:"last_message_at"`
}

func viewOf(c *conversation.Conversation) conversationView {
	v := conversationView{
		ID:            c.ID,
		Phone:         c.Phone,
		Status:        c.Status,
		Context:       c.Context,
		LastMessageAt: c.LastMessageAt,
	}
	if c.Workflow != nil {
		v.CurrentWorkflow = string(c.Workflow.Type)
		v.WorkflowStep = int(c.Workflow.Step)
		v.Suspended = c.Workflow.Suspended
	}
	return v
}

func (h *ConversationHandler) List(c *gin.Context) {
	rows, err := h.Store.List(c.Request.Context(), c.Param("tenantId"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]conversationView, 0, len(rows))
	for _, conv := range rows {
		out = append(out, viewOf(conv))
	}
	c.JSON(http.StatusOK, out)
}

type VerifiedPhoneRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// SetVerifiedPhone records the real number behind an unresolved sender. The
// orchestrator backfills the identity from it on the next message.
func (h *ConversationHandler) SetVerifiedPhone(c *gin.Context) {
	var req VerifiedPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if r := h.Normalizer.Normalize(req.Phone); !r.Resolved {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is not a resolvable number"})
		return
	}
	h.mutate(c, func(conv *conversation.Conversation) {
		conv.Context[conversation.KeyVerifiedPhone] = req.Phone
		delete(conv.Context, conversation.KeyResolvedPhone)
	})
}

func (h *ConversationHandler) Close(c *gin.Context) {
	h.mutate(c, func(conv *conversation.Conversation) {
		conv.Status = conversation.StatusClosed
	})
}

// Reactivate hands an escalated conversation back to automation.
func (h *ConversationHandler) Reactivate(c *gin.Context) {
	h.mutate(c, func(conv *conversation.Conversation) {
		conv.Reactivate()
	})
}

func (h *ConversationHandler) mutate(c *gin.Context, fn func(*conversation.Conversation)) {
	tenantID, key := c.Param("tenantId"), c.Param("phone")
	ctx := c.Request.Context()
	if _, err := h.Store.Get(ctx, tenantID, key); err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.Store.Update(ctx, tenantID, key, func(conv *conversation.Conversation) error {
		fn(conv)
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, viewOf(conv))
}
