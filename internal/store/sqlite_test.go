package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mailpilot/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEmail(id string) model.ProcessedEmail {
	return model.ProcessedEmail{
		Message: model.InboundMessage{
			ID:        id,
			Sender:    "Alice <alice@example.com>",
			Subject:   "Support: login broken",
			Body:      "I cannot log in.",
			Date:      time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
			MessageID: "abc" + id + "@example.com",
		},
		Analysis: model.AnalysisResult{
			Sentiment: model.SentimentNegative,
			Priority:  model.PriorityUrgent,
			Summary:   "Customer cannot log in.",
			Extracted: map[string]string{"account": "alice"},
		},
		Context: model.RetrievedContext{
			{Text: "Q: reset?\nA: use the reset link", Score: 0.8},
		},
		Draft:       "Dear Alice, ...",
		SendStatus:  model.SendPending,
		ProcessedAt: time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC),
	}
}

func TestSaveBatchAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleEmail("1")
	if err := s.SaveBatch(ctx, []model.ProcessedEmail{want}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	got, err := s.Get(ctx, "1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Message.Sender != want.Message.Sender {
		t.Fatalf("sender got %q want %q", got.Message.Sender, want.Message.Sender)
	}
	if got.Analysis.Sentiment != model.SentimentNegative || got.Analysis.Priority != model.PriorityUrgent {
		t.Fatalf("analysis got %+v", got.Analysis)
	}
	if got.Analysis.Extracted["account"] != "alice" {
		t.Fatalf("extracted got %+v", got.Analysis.Extracted)
	}
	if len(got.Context) != 1 || got.Context[0].Score != 0.8 {
		t.Fatalf("context got %+v", got.Context)
	}
	if got.SendStatus != model.SendPending {
		t.Fatalf("status got %q want pending", got.SendStatus)
	}
	if !got.Message.Date.Equal(want.Message.Date) {
		t.Fatalf("date got %v want %v", got.Message.Date, want.Message.Date)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAll_Order(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleEmail("1")
	second := sampleEmail("2")
	second.ProcessedAt = first.ProcessedAt.Add(time.Hour)
	if err := s.SaveBatch(ctx, []model.ProcessedEmail{second, first}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	got, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len got %d want 2", len(got))
	}
	if got[0].Message.ID != "1" || got[1].Message.ID != "2" {
		t.Fatalf("order got [%s %s] want [1 2]", got[0].Message.ID, got[1].Message.ID)
	}
}

func TestUpdateDraft_OnlyWhilePending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveBatch(ctx, []model.ProcessedEmail{sampleEmail("1")}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if err := s.UpdateDraft(ctx, "1", "edited"); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}
	got, _ := s.Get(ctx, "1")
	if got.Draft != "edited" {
		t.Fatalf("draft got %q", got.Draft)
	}

	if err := s.TransitionSendStatus(ctx, "1", model.SendSent); err != nil {
		t.Fatalf("TransitionSendStatus: %v", err)
	}
	if err := s.UpdateDraft(ctx, "1", "too late"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if err := s.UpdateDraft(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionSendStatus_Guards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveBatch(ctx, []model.ProcessedEmail{sampleEmail("1")}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	// Terminal states only.
	if err := s.TransitionSendStatus(ctx, "1", model.SendPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending target: expected ErrInvalidTransition, got %v", err)
	}

	if err := s.TransitionSendStatus(ctx, "1", model.SendFailed); err != nil {
		t.Fatalf("to failed: %v", err)
	}
	// Terminal states never change again.
	if err := s.TransitionSendStatus(ctx, "1", model.SendSent); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("from failed: expected ErrInvalidTransition, got %v", err)
	}

	if err := s.TransitionSendStatus(ctx, "missing", model.SendSent); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveBatch_DoesNotResurrectTerminalRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	email := sampleEmail("1")
	if err := s.SaveBatch(ctx, []model.ProcessedEmail{email}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if err := s.TransitionSendStatus(ctx, "1", model.SendSent); err != nil {
		t.Fatalf("TransitionSendStatus: %v", err)
	}

	email.Draft = "reprocessed draft"
	if err := s.SaveBatch(ctx, []model.ProcessedEmail{email}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	got, err := s.Get(ctx, "1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SendStatus != model.SendSent {
		t.Fatalf("status got %q want sent", got.SendStatus)
	}
	if got.Draft == "reprocessed draft" {
		t.Fatal("sent row must not be overwritten by a reprocessed batch")
	}
}

func TestCountByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []model.ProcessedEmail{sampleEmail("1"), sampleEmail("2"), sampleEmail("3")}
	if err := s.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if err := s.TransitionSendStatus(ctx, "2", model.SendSent); err != nil {
		t.Fatalf("TransitionSendStatus: %v", err)
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[model.SendPending] != 2 || counts[model.SendSent] != 1 {
		t.Fatalf("counts got %+v", counts)
	}
}
