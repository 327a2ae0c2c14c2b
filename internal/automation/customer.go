package automation

import (
	"context"
	"strings"
	"time"

	"showroom-gateway/internal/actor"
	"showroom-gateway/internal/audit"
	"showroom-gateway/internal/completion"
	"showroom-gateway/internal/conversation"
	"showroom-gateway/internal/dispatch"
	"showroom-gateway/internal/intent"

	"gorm.io/gorm"
)

const (
	leadEscalated = "escalated"
	stockInPrompt = 20
)

// handleCustomer answers a customer message. The health gate runs before
// anything else that could reply or stay silent: while automation is off every
// customer message, escalated or not, gets exactly the fallback text.
func (e *Engine) handleCustomer(ctx context.Context, t *turn, cache *turnCache) {
	conv := t.conv
	t.commit = append(t.commit, func(tx *gorm.DB) error {
		return e.Inventory.WithTx(tx).TouchLead(ctx, t.ev.TenantID, t.identity, t.ev.Text, t.now)
	})

	if conv.Status == conversation.StatusClosed {
		t.log.Info("closed conversation reactivated by new message")
		conv.Reactivate()
	}

	if d := e.Health.CanProcess(ctx, t.ev.TenantID); !d.Allowed {
		t.log.Info("automation disabled, sending fallback", "reason", d.Reason)
		t.escalated = true
		t.say(e.FallbackText)
		return
	}

	if conv.Status == conversation.StatusEscalated {
		// A human owns the conversation now; keep the log, stay silent.
		t.intent = e.Intents.Classify(t.ev.Text, intent.AudienceCustomer)
		t.escalated = true
		t.log.Info("conversation escalated, automated reply suppressed")
		return
	}

	t.intent = e.Intents.Classify(t.ev.Text, intent.AudienceCustomer)
	if !t.intent.IsNone() {
		t.log = t.log.With("intent", t.intent.String())
		t.record(t.intent, t.intent.Params)
	}

	switch t.intent.Name {
	case intent.Greeting:
		t.say(greetingReply(t.tenant))
	case intent.LocationInquiry:
		t.say(locationReply(t.tenant))
	case intent.BusinessHours:
		t.say(hoursReply(t.tenant))
	case intent.HumanHandoff:
		e.escalate(ctx, t)
	default:
		e.complete(ctx, t, cache)
	}
}

// escalate hands the conversation to staff and notifies the roster.
func (e *Engine) escalate(ctx context.Context, t *turn) {
	t.conv.Status = conversation.StatusEscalated
	t.conv.Context[conversation.KeyEscalatedAt] = t.now.UTC().Format(time.RFC3339)
	t.escalated = true
	t.commit = append(t.commit, func(tx *gorm.DB) error {
		return e.Inventory.WithTx(tx).SetLeadStatus(ctx, t.ev.TenantID, t.identity, leadEscalated)
	})
	t.say(msgHandoff)

	users, err := e.Roster.ActiveUsers(ctx, t.ev.TenantID)
	if err != nil {
		t.log.Warn("handoff notification skipped, roster unavailable", "error", err)
		return
	}
	notice := handoffNotice(t.identity, t.ev.Text, t.now)
	for _, u := range users {
		switch actor.Role(strings.ToUpper(u.Role)) {
		case actor.RoleOwner, actor.RoleAdmin, actor.RoleSales:
		default:
			continue
		}
		to := e.Normalizer.Normalize(u.Phone)
		if !to.Resolved {
			continue
		}
		t.replies = append(t.replies, reply{
			payload: dispatch.Payload{To: to.Key, Text: notice},
			sender:  audit.SenderSystem,
			phone:   to.Key,
		})
	}
}

// complete delegates free text to the completion collaborator. A failure
// answers with the fallback and leaves the conversation untouched.
func (e *Engine) complete(ctx context.Context, t *turn, cache *turnCache) {
	if !cache.completed {
		cache.completion, cache.completionErr = e.generate(ctx, t)
		cache.completed = true
	}
	if cache.completionErr != nil {
		t.log.Warn("completion unavailable, sending fallback", "error", cache.completionErr)
		t.skipSave = true
		t.say(e.FallbackText)
		return
	}
	t.say(cache.completion)
}

func (e *Engine) generate(ctx context.Context, t *turn) (string, error) {
	stock, err := e.Inventory.Available(ctx, t.ev.TenantID, stockInPrompt)
	if err != nil {
		t.log.Warn("inventory unavailable for prompt", "error", err)
	}
	history, err := e.Audit.History(ctx, t.conv.ID, e.HistoryTurns)
	if err != nil {
		t.log.Warn("history unavailable for prompt", "error", err)
	}

	msgs := make([]completion.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		role := completion.RoleUser
		if m.Direction == audit.DirectionOutbound {
			role = completion.RoleAssistant
		}
		msgs = append(msgs, completion.Message{Role: role, Content: m.Content})
	}
	text := t.ev.Text
	if text == "" && t.ev.MediaRef != "" {
		text = "[pelanggan mengirim gambar]"
	}
	msgs = append(msgs, completion.Message{Role: completion.RoleUser, Content: text})

	return e.Completion.Complete(ctx, completion.Request{
		System:   systemPrompt(t.tenant, stock),
		Messages: msgs,
	})
}
