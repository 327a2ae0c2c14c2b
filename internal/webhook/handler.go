package webhook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"showroom-gateway/internal/automation"
	"showroom-gateway/internal/config"
	"showroom-gateway/internal/models"
	wire "showroom-gateway/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// maxParallelSenders bounds the goroutines spawned for one delivery.
const maxParallelSenders = 8

type Processor interface {
	Process(ctx context.Context, ev automation.InboundEvent) (automation.Result, error)
}

// TenantResolver maps a gateway account to its tenant. An unknown account
// yields "" and no error.
type TenantResolver interface {
	TenantForAccount(ctx context.Context, accountID string) (string, error)
}

type GormTenants struct {
	DB *gorm.DB
}

func (g GormTenants) TenantForAccount(ctx context.Context, accountID string) (string, error) {
	var t models.Tenant
	err := g.DB.WithContext(ctx).Select("id").Where("whatsapp_account_id = ?", accountID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "resolve account %s", accountID)
	}
	return t.ID, nil
}

type Handler struct {
	verifyToken string
	engine      Processor
	tenants     TenantResolver
	limiter     *accountLimiter
	logger      *slog.Logger

	// Async acknowledges the delivery before processing. Tests turn it off to
	// observe the engine synchronously.
	Async bool
}

func NewHandler(cfg *config.Config, engine Processor, tenants TenantResolver, logger *slog.Logger) *Handler {
	return &Handler{
		verifyToken: cfg.VerifyToken,
		engine:      engine,
		tenants:     tenants,
		limiter:     newAccountLimiter(cfg.WebhookRatePerSecond, cfg.WebhookBurst),
		logger:      logger,
		Async:       true,
	}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	if mode != "subscribe" || token != h.verifyToken {
		h.logger.Warn("webhook verification rejected", "mode", mode)
		c.Status(http.StatusForbidden)
		return
	}
	h.logger.Info("webhook verified")
	c.String(http.StatusOK, challenge)
}

// delivery is the messages of one gateway account within a request body.
type delivery struct {
	account string
	events  []automation.InboundEvent
}

func (h *Handler) HandleMessage(c *gin.Context) {
	deliveries, err := decode(c)
	if err != nil {
		h.logger.Warn("malformed webhook body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var events []automation.InboundEvent
	for _, d := range deliveries {
		if len(d.events) == 0 {
			continue
		}
		if !h.limiter.Allow(d.account) {
			h.logger.Warn("webhook rate limited", "account_id", d.account)
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
		tenantID, err := h.tenants.TenantForAccount(ctx, d.account)
		if err != nil {
			h.logger.Error("tenant lookup failed", "account_id", d.account, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant lookup failed"})
			return
		}
		if tenantID == "" {
			h.logger.Warn("message for unknown account ignored", "account_id", d.account, "count", len(d.events))
			continue
		}
		for _, ev := range d.events {
			ev.TenantID = tenantID
			events = append(events, ev)
		}
	}

	if len(events) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if h.Async {
		go h.process(context.WithoutCancel(ctx), events)
	} else {
		h.process(ctx, events)
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "events": len(events)})
}

// process fans out one goroutine per sender. Messages of the same sender keep
// their delivery order.
func (h *Handler) process(ctx context.Context, events []automation.InboundEvent) {
	var order []string
	bySender := make(map[string][]automation.InboundEvent)
	for _, ev := range events {
		key := ev.TenantID + "|" + ev.RawFrom
		if _, ok := bySender[key]; !ok {
			order = append(order, key)
		}
		bySender[key] = append(bySender[key], ev)
	}

	var g errgroup.Group
	g.SetLimit(maxParallelSenders)
	for _, key := range order {
		batch := bySender[key]
		g.Go(func() error {
			for _, ev := range batch {
				res, err := h.engine.Process(ctx, ev)
				if err != nil {
					h.logger.Error("event failed", "tenant_id", ev.TenantID,
						"external_message_id", ev.ExternalMessageID, "error", err)
					continue
				}
				h.logger.Info("event processed", "tenant_id", ev.TenantID,
					"external_message_id", ev.ExternalMessageID, "intent", res.Intent,
					"escalated", res.Escalated, "duplicate", res.Duplicate, "success", res.Success)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// decode accepts the Cloud API form and the generic gateway form.
func decode(c *gin.Context) ([]delivery, error) {
	var meta wire.MetaPayload
	if err := c.ShouldBindBodyWith(&meta, binding.JSON); err != nil {
		return nil, eris.Wrap(err, "decode body")
	}
	if meta.Object != "" || len(meta.Entry) > 0 {
		return fromMeta(meta), nil
	}

	var generic wire.GatewayPayload
	if err := c.ShouldBindBodyWith(&generic, binding.JSON); err != nil {
		return nil, eris.Wrap(err, "decode gateway body")
	}
	msgs := generic.Messages
	if generic.Message != nil {
		msgs = append([]wire.GatewayMessage{*generic.Message}, msgs...)
	}
	if len(msgs) > 0 && generic.Account() == "" {
		return nil, eris.New("accountId or clientId is required")
	}

	d := delivery{account: generic.Account()}
	for _, m := range msgs {
		if m.From == "" {
			continue
		}
		ev := automation.InboundEvent{
			AccountID:         d.account,
			ExternalMessageID: m.MessageID(),
			RawFrom:           m.From,
			Text:              m.Text,
			MediaRef:          m.MediaRef,
		}
		if m.Timestamp > 0 {
			ev.ReceivedAt = time.Unix(m.Timestamp, 0).UTC()
		}
		d.events = append(d.events, ev)
	}
	return []delivery{d}, nil
}

func fromMeta(p wire.MetaPayload) []delivery {
	var out []delivery
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			v := change.Value
			d := delivery{account: v.Metadata.PhoneNumberID}
			for _, m := range v.Messages {
				text, media := m.Content()
				if text == "" && media == "" {
					continue
				}
				ev := automation.InboundEvent{
					AccountID:         d.account,
					ExternalMessageID: m.ID,
					RawFrom:           m.From,
					Text:              text,
					MediaRef:          media,
				}
				if ts, err := strconv.ParseInt(m.Timestamp, 10, 64); err == nil {
					ev.ReceivedAt = time.Unix(ts, 0).UTC()
				}
				d.events = append(d.events, ev)
			}
			out = append(out, d)
		}
	}
	return out
}
