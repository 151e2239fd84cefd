package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mailpilot/internal/model"
	"mailpilot/internal/store"
)

type fakePipeline struct {
	batch      model.BatchResult
	batchErr   error
	emails     []model.ProcessedEmail
	sendStatus model.SendStatus
	sendErr    error
	discardErr error
	stats      model.MailboxStats
	statsErr   error
	healthy    bool

	lastSendID   string
	lastSendBody string
}

func (f *fakePipeline) ProcessBatch(context.Context) (model.BatchResult, error) {
	return f.batch, f.batchErr
}

func (f *fakePipeline) SubmitReply(_ context.Context, id, finalText string) (model.SendStatus, error) {
	f.lastSendID = id
	f.lastSendBody = finalText
	return f.sendStatus, f.sendErr
}

func (f *fakePipeline) Discard(context.Context, string) error { return f.discardErr }

func (f *fakePipeline) List(context.Context) ([]model.ProcessedEmail, error) {
	return f.emails, nil
}

func (f *fakePipeline) Stats(context.Context) (model.MailboxStats, error) {
	return f.stats, f.statsErr
}

func (f *fakePipeline) Healthy() bool { return f.healthy }

func newTestServer(f *fakePipeline) *httptest.Server {
	return httptest.NewServer(NewServer(f, nil).Handler())
}

func TestProcessEmails(t *testing.T) {
	f := &fakePipeline{batch: model.BatchResult{TotalCount: 2, UrgentCount: 1}}
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/process-emails", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status got %d", resp.StatusCode)
	}

	var batch model.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if batch.TotalCount != 2 || batch.UrgentCount != 1 {
		t.Fatalf("batch got %+v", batch)
	}
	if batch.Emails == nil {
		t.Fatal("emails must encode as [], not null")
	}
}

func TestProcessEmails_PipelineError(t *testing.T) {
	f := &fakePipeline{batchErr: errors.New("imap down")}
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/process-emails", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status got %d want 502", resp.StatusCode)
	}
}

func TestSendEmail(t *testing.T) {
	f := &fakePipeline{sendStatus: model.SendSent}
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/emails/42/send", "application/json",
		strings.NewReader(`{"body": "final reply"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status got %d", resp.StatusCode)
	}
	if f.lastSendID != "42" || f.lastSendBody != "final reply" {
		t.Fatalf("pipeline called with id=%q body=%q", f.lastSendID, f.lastSendBody)
	}

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["send_status"] != "sent" {
		t.Fatalf("send_status got %q", out["send_status"])
	}
}

func TestSendEmail_Validation(t *testing.T) {
	f := &fakePipeline{sendStatus: model.SendSent}
	srv := newTestServer(f)
	defer srv.Close()

	for _, body := range []string{``, `{}`, `{"body": "   "}`, `not json`} {
		resp, err := http.Post(srv.URL+"/emails/1/send", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status got %d want 400", body, resp.StatusCode)
		}
	}
}

func TestSendEmail_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound},
		{"gateway failure", errors.New("smtp: connection refused"), http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakePipeline{sendErr: tc.err}
			srv := newTestServer(f)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/emails/1/send", "application/json",
				strings.NewReader(`{"body": "x"}`))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("status got %d want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

// Re-sending a terminal record must report its real status, not pending.
func TestSendEmail_TerminalRecordConflict(t *testing.T) {
	f := &fakePipeline{
		sendStatus: model.SendSent,
		sendErr:    fmt.Errorf("%w: email 1 already sent", store.ErrInvalidTransition),
	}
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/emails/1/send", "application/json",
		strings.NewReader(`{"body": "x"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status got %d want 409", resp.StatusCode)
	}

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["send_status"] != "sent" {
		t.Fatalf("send_status got %q want sent", out["send_status"])
	}
	if out["error"] == "" {
		t.Fatal("error must be surfaced to the caller")
	}
}

func TestSendEmail_GatewayFailureReportsPending(t *testing.T) {
	f := &fakePipeline{sendErr: errors.New("smtp down")}
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/emails/1/send", "application/json",
		strings.NewReader(`{"body": "x"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["send_status"] != "pending" {
		t.Fatalf("send_status got %q want pending", out["send_status"])
	}
	if out["error"] == "" {
		t.Fatal("error must be surfaced to the caller")
	}
}

func TestDiscardEmail(t *testing.T) {
	f := &fakePipeline{}
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/emails/1/discard", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status got %d", resp.StatusCode)
	}

	f.discardErr = fmt.Errorf("%w: 9", store.ErrNotFound)
	resp2, err := http.Post(srv.URL+"/emails/9/discard", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("status got %d want 404", resp2.StatusCode)
	}
}

func TestEmailStatsAndHealth(t *testing.T) {
	f := &fakePipeline{
		stats:   model.MailboxStats{UnreadCount: 3, ReadCount: 7, TotalCount: 10, PendingCount: 2, SentCount: 1},
		healthy: true,
	}
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/email-stats")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var stats model.MailboxStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.UnreadCount != 3 || stats.TotalCount != 10 || stats.PendingCount != 2 || stats.SentCount != 1 {
		t.Fatalf("stats got %+v", stats)
	}

	resp2, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("health status got %d", resp2.StatusCode)
	}
	var health struct {
		Status            string `json:"status"`
		KnowledgeBaseLoad bool   `json:"knowledge_base_loaded"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || !health.KnowledgeBaseLoad {
		t.Fatalf("health got %+v", health)
	}
}
