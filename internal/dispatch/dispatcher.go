// Package dispatch sends outbound payloads through the messaging gateway and
// records them in the message log.
package dispatch

import (
	"context"
	"log/slog"

	"showroom-gateway/internal/audit"
	"showroom-gateway/internal/models"

	"github.com/rotisserie/eris"
)

// Gateway is the outbound side of the messaging transport.
type Gateway interface {
	SendText(ctx context.Context, to, body string) (string, error)
	SendImage(ctx context.Context, to, ref, caption string) (string, error)
	SendDocument(ctx context.Context, to string, content []byte, mimeType, filename, caption string) (string, error)
}

type Document struct {
	Filename string
	MIMEType string
	Content  []byte
}

// Payload carries exactly one of Text, ImageRef or Document. Caption applies
// to images and documents.
type Payload struct {
	To       string
	Text     string
	ImageRef string
	Document *Document
	Caption  string
}

func (p Payload) kind() string {
	switch {
	case p.Document != nil:
		return "document"
	case p.ImageRef != "":
		return "image"
	default:
		return "text"
	}
}

// Meta labels the message log row.
type Meta struct {
	TenantID       string
	ConversationID string
	Phone          string
	SenderType     string
	Intent         string
}

type Outcome struct {
	Sent      bool
	MessageID string
	Err       error
}

func (o Outcome) ErrorString() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

type Dispatcher struct {
	gateway  Gateway
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewDispatcher(gw Gateway, recorder *audit.Recorder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{gateway: gw, recorder: recorder, logger: logger}
}

// Dispatch sends p and reports the result instead of failing the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, meta Meta, p Payload) Outcome {
	var (
		id  string
		err error
	)
	switch p.kind() {
	case "document":
		id, err = d.gateway.SendDocument(ctx, p.To, p.Document.Content, p.Document.MIMEType, p.Document.Filename, p.Caption)
	case "image":
		id, err = d.gateway.SendImage(ctx, p.To, p.ImageRef, p.Caption)
	default:
		if p.Text == "" {
			err = eris.New("empty payload")
			break
		}
		id, err = d.gateway.SendText(ctx, p.To, p.Text)
	}

	out := Outcome{Sent: err == nil, MessageID: id, Err: err}
	status := "sent"
	if err != nil {
		status = "failed"
		d.logger.Error("dispatch failed",
			"tenant_id", meta.TenantID, "phone", meta.Phone, "kind", p.kind(), "error", err)
	}

	content := p.Text
	media := p.ImageRef
	if p.Document != nil {
		content = p.Caption
		media = p.Document.Filename
	} else if p.ImageRef != "" {
		content = p.Caption
	}
	logErr := d.recorder.LogMessage(ctx, &models.Message{
		TenantID:          meta.TenantID,
		ConversationID:    meta.ConversationID,
		Phone:             meta.Phone,
		Direction:         audit.DirectionOutbound,
		SenderType:        meta.SenderType,
		Intent:            meta.Intent,
		Content:           content,
		MediaRef:          media,
		ExternalMessageID: id,
		Status:            status,
	})
	if logErr != nil {
		d.logger.Warn("outbound message log failed", "tenant_id", meta.TenantID, "error", logErr)
	}
	return out
}
