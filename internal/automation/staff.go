package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"showroom-gateway/internal/actor"
	"showroom-gateway/internal/dispatch"
	"showroom-gateway/internal/intent"
	"showroom-gateway/internal/inventory"
	"showroom-gateway/internal/workflow"

	"gorm.io/gorm"
)

// handleStaff runs the command check before any workflow continuation: a
// recognized command suspends the pending workflow and leaves it at its step,
// anything else is fed to the workflow.
func (e *Engine) handleStaff(ctx context.Context, t *turn, cache *turnCache) {
	conv := t.conv
	if conv.Workflow != nil && e.Workflows.Expired(conv.Workflow, t.now) {
		t.log.Info("workflow expired, discarding collected fields",
			"workflow", conv.Workflow.Type, "step", conv.Workflow.Step)
		conv.Workflow = nil
	}

	t.intent = e.Intents.Classify(t.ev.Text, intent.AudienceStaff)
	if t.intent.IsNone() {
		if conv.Workflow != nil {
			e.continueWorkflow(ctx, t)
			return
		}
		t.say(staffHelp(t.actor))
		return
	}

	t.log = t.log.With("intent", t.intent.String())
	t.record(t.intent, t.intent.Params)
	pending := conv.Workflow
	e.runCommand(ctx, t, cache)

	if pending != nil && conv.Workflow == pending {
		pending.Suspend(t.now)
		t.say(reminder(pending))
	}
}

func (e *Engine) continueWorkflow(ctx context.Context, t *turn) {
	in := workflow.Input{Text: t.ev.Text, MediaRef: t.ev.MediaRef}
	t.commit = append(t.commit, func(tx *gorm.DB) error {
		res, err := e.Workflows.Advance(ctx, e.Inventory.WithTx(tx), t.ev.TenantID, t.conv.Workflow, in, t.now)
		if err != nil {
			return err
		}
		if res.Phase == workflow.PhaseDone {
			t.log.Info("workflow committed", "workflow", t.conv.Workflow.Type)
		}
		t.conv.Workflow = res.State
		t.say(res.Reply)
		return nil
	})
}

func (e *Engine) runCommand(ctx context.Context, t *turn, cache *turnCache) {
	switch t.intent.Name {
	case intent.Cancel:
		e.cancelWorkflow(t)
	case intent.AIToggle:
		e.toggleAI(ctx, t)
	case intent.AIStatus:
		e.aiStatus(ctx, t)
	case intent.MarkSold:
		e.markSold(ctx, t)
	case intent.UploadVehicle:
		e.startWorkflow(t, workflow.VehicleUpload, actor.PermUploadVehicle)
	case intent.EditVehicle:
		e.startWorkflow(t, workflow.VehicleEdit, actor.PermEditVehicle)
	case intent.GetReport:
		e.sendReport(ctx, t, cache)
	case intent.Help:
		t.say(staffHelp(t.actor))
	default:
		t.log.Warn("staff intent without handler")
		t.say(staffHelp(t.actor))
	}
}

func (e *Engine) allowed(t *turn, p actor.Permission) bool {
	if t.actor.Can(p) {
		return true
	}
	t.log.Info("permission denied", "permission", string(p), "role", string(t.actor.Role))
	t.fail("permission denied: " + string(p))
	t.say(msgDenied)
	return false
}

func (e *Engine) cancelWorkflow(t *turn) {
	if t.conv.Workflow == nil {
		t.say(msgNothingToStop)
		return
	}
	desc := workflow.Describe(t.conv.Workflow)
	t.conv.Workflow = nil
	t.command.Result = "cancelled " + desc
	t.say(fmt.Sprintf("❌ Proses %s dibatalkan. Data yang belum tersimpan dihapus.", desc))
}

func (e *Engine) startWorkflow(t *turn, kind workflow.Type, p actor.Permission) {
	if !e.allowed(t, p) {
		return
	}
	if t.conv.Workflow != nil {
		// The pending workflow keeps its step; the caller appends the reminder.
		t.fail("workflow already pending")
		t.say(busyReply(t.conv.Workflow))
		return
	}
	state, prompt, err := e.Workflows.Start(kind, t.actor.IdentityRef, t.now)
	if err != nil {
		t.log.Error("workflow start failed", "error", err)
		t.fail(err.Error())
		t.say(msgTryAgain)
		return
	}
	t.conv.Workflow = state
	t.command.Result = "started " + string(kind)
	t.say(prompt)
}

func (e *Engine) toggleAI(ctx context.Context, t *turn) {
	if !e.allowed(t, actor.PermToggleAI) {
		return
	}
	enable := t.intent.Params["state"] == "on"
	reason := "disabled by staff"
	if enable {
		reason = "enabled by staff"
	}
	by := "staff:" + t.actor.IdentityRef
	if err := e.Health.SetEnabled(ctx, t.ev.TenantID, enable, reason, by, nil); err != nil {
		t.log.Error("ai toggle failed", "error", err)
		t.fail(err.Error())
		t.say(msgTryAgain)
		return
	}
	t.log.Info("ai health toggled", "enabled", enable)
	if enable {
		t.command.Result = "ai enabled"
		t.say("✅ AI diaktifkan. Pesan pelanggan kembali dibalas otomatis.")
		return
	}
	t.command.Result = "ai disabled"
	t.say("⛔ AI dinonaktifkan. Pelanggan akan menerima pesan standar sampai AI diaktifkan lagi.")
}

func (e *Engine) aiStatus(ctx context.Context, t *turn) {
	st, err := e.Health.Status(ctx, t.ev.TenantID)
	if err != nil {
		t.log.Error("ai status read failed", "error", err)
		t.fail(err.Error())
		t.say(msgTryAgain)
		return
	}
	t.say(healthReply(st))
}

func (e *Engine) markSold(ctx context.Context, t *turn) {
	if !e.allowed(t, actor.PermMarkSold) {
		return
	}
	code := t.intent.Params["code"]
	var price int64
	if raw := t.intent.Params["price"]; raw != "" {
		p, err := workflow.ParsePrice(raw)
		if err != nil {
			t.fail(err.Error())
			t.say(err.Error())
			return
		}
		price = p
	}

	t.commit = append(t.commit, func(tx *gorm.DB) error {
		v, err := e.Inventory.WithTx(tx).MarkSold(ctx, t.ev.TenantID, code, price, t.now)
		switch {
		case errors.Is(err, inventory.ErrVehicleNotFound):
			t.fail("vehicle not found")
			t.say(fmt.Sprintf("Kode %s tidak ditemukan.", code))
			return nil
		case errors.Is(err, inventory.ErrAlreadySold):
			t.fail("vehicle already sold")
			t.say(fmt.Sprintf("Mobil %s sudah tercatat terjual.", code))
			return nil
		case err != nil:
			return err
		}
		t.command.Result = "sold " + v.Code
		t.say(fmt.Sprintf("✅ %s %s %d (%s) tercatat terjual seharga %s.",
			v.Brand, v.Model, v.Year, v.Code, workflow.FormatRupiah(v.SoldPrice)))
		return nil
	})
}

func (e *Engine) sendReport(ctx context.Context, t *turn, cache *turnCache) {
	perm := actor.PermViewReports
	if t.intent.Subtype == intent.InventoryReport {
		perm = actor.PermViewInventory
	}
	if !e.allowed(t, perm) {
		return
	}

	if cache.report == nil {
		doc, caption, err := e.renderReport(ctx, t.ev.TenantID, t.intent.Subtype, t.now)
		if err != nil {
			t.log.Error("report generation failed", "error", err)
			t.fail(err.Error())
			t.say(msgReportFailed)
			return
		}
		cache.report, cache.caption = doc, caption
	}

	t.command.Result = "report " + cache.report.Filename
	t.replies = append(t.replies, reply{
		payload: dispatch.Payload{To: t.ev.RawFrom, Document: cache.report, Caption: cache.caption},
		sender:  t.senderType(),
		phone:   t.conv.Phone,
		convID:  t.conv.ID,
	})
}

func (e *Engine) renderReport(ctx context.Context, tenantID, kind string, now time.Time) (*dispatch.Document, string, error) {
	data, err := e.Reports.Build(ctx, tenantID, kind, now)
	if err != nil {
		return nil, "", err
	}
	rendered, err := e.Renderer.Render(ctx, data)
	if err != nil {
		return nil, "", err
	}
	doc := &dispatch.Document{Filename: rendered.Filename, MIMEType: rendered.MIMEType, Content: rendered.Content}
	return doc, data.Caption(), nil
}
