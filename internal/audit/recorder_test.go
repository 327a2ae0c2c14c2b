package audit

import (
	"context"
	"path/filepath"
	"testing"

	"showroom-gateway/internal/database"
	"showroom-gateway/internal/models"

	"gorm.io/datatypes"
)

func newRecorder(t *testing.T) *Recorder {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return NewRecorder(db)
}

func TestRecordCommandAssignsID(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()

	entry := &models.CommandAudit{
		TenantID:   "t1",
		Intent:     "get_report/sales_report",
		Parameters: datatypes.JSONMap{"subtype": "sales_report"},
		Success:    true,
		Dispatched: true,
	}
	if err := r.RecordCommand(ctx, entry); err != nil {
		t.Fatal(err)
	}
	if entry.ID == "" {
		t.Fatal("id not assigned")
	}

	rows, err := r.Commands(ctx, "t1", 10)
	if err != nil || len(rows) != 1 || rows[0].Parameters["subtype"] != "sales_report" {
		t.Fatalf("Commands = %+v, %v", rows, err)
	}
	if rows, _ := r.Commands(ctx, "t2", 10); len(rows) != 0 {
		t.Fatal("ledger leaked across tenants")
	}
}

func TestHistoryIsChronological(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()

	for _, content := range []string{"satu", "dua", "tiga", "empat"} {
		r.LogMessage(ctx, &models.Message{TenantID: "t1", ConversationID: "c1", Phone: "628111", Content: content})
	}
	r.LogMessage(ctx, &models.Message{TenantID: "t1", ConversationID: "c2", Phone: "628222", Content: "lain"})

	got, err := r.History(ctx, "c1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Content != "dua" || got[2].Content != "empat" {
		t.Fatalf("history = %+v", got)
	}

	msgs, _ := r.Messages(ctx, "t1", "628222", 10)
	if len(msgs) != 1 || msgs[0].Content != "lain" {
		t.Fatalf("messages by phone = %+v", msgs)
	}
}
