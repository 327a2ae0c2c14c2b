// Package automation turns inbound chat events into staff operations or
// customer replies.
//
// Per event the Engine claims the external message id, normalizes the
// sender, locks the conversation, classifies the actor and then routes to the
// staff or the customer path. Mutations are saved with an optimistic version
// check and retried once; replies go out only after the state is committed.
package automation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"showroom-gateway/internal/actor"
	"showroom-gateway/internal/audit"
	"showroom-gateway/internal/completion"
	"showroom-gateway/internal/conversation"
	"showroom-gateway/internal/dedup"
	"showroom-gateway/internal/dispatch"
	"showroom-gateway/internal/health"
	"showroom-gateway/internal/intent"
	"showroom-gateway/internal/inventory"
	"showroom-gateway/internal/models"
	"showroom-gateway/internal/phone"
	"showroom-gateway/internal/report"
	"showroom-gateway/internal/workflow"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InboundEvent is one message delivered by the gateway.
type InboundEvent struct {
	TenantID          string
	AccountID         string
	ExternalMessageID string
	RawFrom           string
	Text              string
	MediaRef          string
	ReceivedAt        time.Time
}

type Result struct {
	Success   bool
	Intent    string
	Escalated bool
	Duplicate bool
	Actor     actor.Kind
}

// Deps are the collaborators of the Engine. All are required except Now.
type Deps struct {
	DB            *gorm.DB
	Ledger        *dedup.Ledger
	Normalizer    *phone.Normalizer
	Roster        actor.Roster
	Actors        *actor.Classifier
	Intents       *intent.Classifier
	Conversations *conversation.Store
	Workflows     *workflow.Machine
	Health        *health.Monitor
	Inventory     *inventory.Store
	Reports       *report.Builder
	Renderer      report.Renderer
	Completion    completion.Provider
	Dispatcher    *dispatch.Dispatcher
	Audit         *audit.Recorder
	Logger        *slog.Logger

	FallbackText string
	HistoryTurns int
	Now          func() time.Time
}

type Engine struct {
	Deps
}

func NewEngine(d Deps) *Engine {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.HistoryTurns <= 0 {
		d.HistoryTurns = 10
	}
	return &Engine{Deps: d}
}

// reply is one outbound payload produced by a turn.
type reply struct {
	payload dispatch.Payload
	sender  string
	phone   string
	convID  string
}

// turn is the work for one event against one loaded conversation. It is
// rebuilt from scratch when the save is retried.
type turn struct {
	ev       InboundEvent
	log      *slog.Logger
	now      time.Time
	tenant   models.Tenant
	conv     *conversation.Conversation
	identity string
	actor    actor.Actor
	intent   intent.Intent

	replies []reply
	command *models.CommandAudit
	// commit runs inside the save transaction and may add replies.
	commit    []func(tx *gorm.DB) error
	escalated bool
	skipSave  bool
}

func (t *turn) say(text string) {
	t.replies = append(t.replies, reply{
		payload: dispatch.Payload{To: t.ev.RawFrom, Text: text},
		sender:  t.senderType(),
		phone:   t.conv.Phone,
		convID:  t.conv.ID,
	})
}

func (t *turn) senderType() string {
	if t.actor.IsStaff() {
		return audit.SenderSystem
	}
	return audit.SenderAI
}

func (t *turn) record(in intent.Intent, params map[string]string) {
	p := datatypes.JSONMap{}
	for k, v := range params {
		p[k] = v
	}
	t.command = &models.CommandAudit{
		TenantID:          t.ev.TenantID,
		ConversationID:    t.conv.ID,
		ExternalMessageID: t.ev.ExternalMessageID,
		ActorPhone:        t.identity,
		ActorKind:         string(t.actor.Kind),
		ActorRef:          t.actor.IdentityRef,
		Intent:            in.String(),
		Parameters:        p,
		Success:           true,
	}
}

func (t *turn) fail(result string) {
	if t.command != nil {
		t.command.Success = false
		t.command.Result = result
	}
}

// Process handles one inbound event end to end. The returned error is for
// operator logs only; the chat user always gets a polite reply.
func (e *Engine) Process(ctx context.Context, ev InboundEvent) (Result, error) {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = e.Now()
	}
	log := e.Logger.With("tenant_id", ev.TenantID, "external_message_id", ev.ExternalMessageID)
	if ev.ExternalMessageID == "" {
		ev.ExternalMessageID = "gen-" + uuid.New().String()
		log = e.Logger.With("tenant_id", ev.TenantID, "external_message_id", ev.ExternalMessageID)
		log.Warn("event without external message id, duplicates cannot be suppressed")
	}

	claimed, err := e.Ledger.Claim(ctx, ev.TenantID, ev.ExternalMessageID, ev.RawFrom, ev.ReceivedAt)
	if err != nil {
		return Result{}, err
	}
	if !claimed {
		log.Info("duplicate delivery ignored")
		return Result{Success: true, Duplicate: true}, nil
	}

	res, err := e.process(ctx, ev, log)
	outcome := dedup.OutcomeProcessed
	if err != nil {
		outcome = dedup.OutcomeFailed
		log.Error("event processing failed", "error", err)
	} else if !res.Success {
		outcome = dedup.OutcomeFailed
	}
	if cerr := e.Ledger.Complete(ctx, ev.TenantID, ev.ExternalMessageID, outcome, e.Now()); cerr != nil {
		log.Warn("ledger completion failed", "error", cerr)
	}
	return res, err
}

func (e *Engine) process(ctx context.Context, ev InboundEvent, log *slog.Logger) (Result, error) {
	norm := e.Normalizer.Normalize(ev.RawFrom)
	if norm.Key == "" {
		return Result{}, eris.Errorf("sender %q has no usable identifier", ev.RawFrom)
	}
	log = log.With("phone", norm.Key)
	if !norm.Resolved {
		log.Info("sender identity unresolved, using degraded key")
	}

	unlock := e.Conversations.Lock(ev.TenantID, norm.Key)
	defer unlock()

	tenant := e.loadTenant(ctx, ev.TenantID, log)
	cache := &turnCache{}

	var (
		t       *turn
		saveErr error
	)
	for attempt := 0; attempt < 2; attempt++ {
		conv, _, err := e.Conversations.GetOrCreate(ctx, ev.TenantID, norm.Key, e.Now())
		if err != nil {
			return Result{}, err
		}
		t = &turn{ev: ev, log: log, now: e.Now(), tenant: tenant, conv: conv.Clone()}
		e.resolveIdentity(t, norm)
		e.decide(ctx, t, cache)

		if t.skipSave {
			saveErr = e.commitOnly(ctx, t)
		} else {
			saveErr = e.Conversations.Save(ctx, t.conv, func(tx *gorm.DB) error {
				for _, fn := range t.commit {
					if err := fn(tx); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if saveErr == nil || !errors.Is(saveErr, conversation.ErrConflict) {
			break
		}
		log.Warn("conversation changed concurrently, retrying", "attempt", attempt+1)
	}

	e.logInbound(ctx, t)

	if saveErr != nil {
		if errors.Is(saveErr, conversation.ErrConflict) {
			log.Error("conversation conflict persisted, state left unchanged")
		} else {
			log.Error("saving turn failed, state rolled back", "error", saveErr)
		}
		t.replies = nil
		t.say(msgTryAgain)
		t.fail(saveErr.Error())
		e.deliver(ctx, t)
		return Result{Success: false, Intent: t.intent.String(), Actor: t.actor.Kind}, nil
	}

	e.deliver(ctx, t)
	return Result{
		Success:   true,
		Intent:    t.intent.String(),
		Escalated: t.escalated,
		Actor:     t.actor.Kind,
	}, nil
}

// turnCache keeps slow collaborator results across a save retry.
type turnCache struct {
	completed     bool
	completion    string
	completionErr error
	report        *dispatch.Document
	caption       string
}

// resolveIdentity picks the phone used for roster lookup. An unresolved
// sender is backfilled once from a verified phone in the conversation
// context; the result is remembered as resolved_phone.
func (e *Engine) resolveIdentity(t *turn, norm phone.Result) {
	t.identity = norm.Key
	if norm.Resolved {
		return
	}
	if resolved := t.conv.ContextString(conversation.KeyResolvedPhone); resolved != "" {
		t.identity = resolved
		return
	}
	verified := t.conv.ContextString(conversation.KeyVerifiedPhone)
	if verified == "" {
		return
	}
	r := e.Normalizer.Normalize(verified)
	if !r.Resolved {
		t.log.Warn("verified phone is not a resolvable number", "verified_phone", verified)
		return
	}
	t.identity = r.Key
	t.conv.Context[conversation.KeyResolvedPhone] = r.Key
	t.log.Info("sender identity backfilled from verified phone", "resolved_phone", r.Key)
}

func (e *Engine) decide(ctx context.Context, t *turn, cache *turnCache) {
	t.actor = e.Actors.Classify(ctx, t.ev.TenantID, t.identity)
	t.log = t.log.With("actor", string(t.actor.Kind))
	t.conv.LastMessageAt = t.now

	if t.actor.IsStaff() {
		e.handleStaff(ctx, t, cache)
		return
	}
	e.handleCustomer(ctx, t, cache)
}

// commitOnly runs the turn's transactional work without touching the
// conversation row.
func (e *Engine) commitOnly(ctx context.Context, t *turn) error {
	if len(t.commit) == 0 {
		return nil
	}
	return e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fn := range t.commit {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) loadTenant(ctx context.Context, tenantID string, log *slog.Logger) models.Tenant {
	var tenant models.Tenant
	if err := e.DB.WithContext(ctx).First(&tenant, "id = ?", tenantID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("tenant lookup failed", "error", err)
		}
		tenant.ID = tenantID
	}
	if tenant.Name == "" {
		tenant.Name = "showroom kami"
	}
	return tenant
}

func (e *Engine) logInbound(ctx context.Context, t *turn) {
	sender, role := audit.SenderCustomer, ""
	if t.actor.IsStaff() {
		sender, role = audit.SenderStaff, string(t.actor.Role)
	}
	err := e.Audit.LogMessage(ctx, &models.Message{
		TenantID:          t.ev.TenantID,
		ConversationID:    t.conv.ID,
		Phone:             t.conv.Phone,
		Direction:         audit.DirectionInbound,
		SenderType:        sender,
		SenderRole:        role,
		Intent:            t.intent.String(),
		Content:           t.ev.Text,
		MediaRef:          t.ev.MediaRef,
		ExternalMessageID: t.ev.ExternalMessageID,
		Status:            "received",
	})
	if err != nil {
		t.log.Warn("inbound message log failed", "error", err)
	}
}

// deliver dispatches the replies and appends the audit row with the
// dispatch outcome.
func (e *Engine) deliver(ctx context.Context, t *turn) {
	dispatched := true
	var errs []string
	for _, r := range t.replies {
		out := e.Dispatcher.Dispatch(ctx, dispatch.Meta{
			TenantID:       t.ev.TenantID,
			ConversationID: r.convID,
			Phone:          r.phone,
			SenderType:     r.sender,
			Intent:         t.intent.String(),
		}, r.payload)
		if !out.Sent {
			dispatched = false
			errs = append(errs, out.ErrorString())
		}
	}

	if t.command == nil {
		return
	}
	t.command.Dispatched = dispatched && len(t.replies) > 0
	t.command.DispatchError = strings.Join(errs, "; ")
	if err := e.Audit.RecordCommand(ctx, t.command); err != nil {
		t.log.Error("command audit failed", "error", err)
	}
}
