package config

import (
	"strings"
	"testing"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("GMAIL_ADDRESS", "support@example.com")
	t.Setenv("GMAIL_PASSWORD", "app-password")
	t.Setenv("GEMINI_API_KEY", "key-123")
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IMAPAddr != "imap.gmail.com:993" {
		t.Fatalf("imap addr got %q", cfg.IMAPAddr)
	}
	if cfg.SMTPAddr != "smtp.gmail.com:587" {
		t.Fatalf("smtp addr got %q", cfg.SMTPAddr)
	}
	if cfg.ListenAddr != "127.0.0.1:8000" {
		t.Fatalf("listen addr got %q", cfg.ListenAddr)
	}
	if cfg.TopK != 3 || cfg.BatchLimit != 20 || cfg.LLMRetries != 2 {
		t.Fatalf("numeric defaults got topK=%d batch=%d retries=%d", cfg.TopK, cfg.BatchLimit, cfg.LLMRetries)
	}
	if cfg.MinRelevance != 0.3 {
		t.Fatalf("min relevance got %f", cfg.MinRelevance)
	}
	if cfg.GmailAddress != "support@example.com" {
		t.Fatalf("address got %q", cfg.GmailAddress)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("MAILPILOT_TOP_K", "5")
	t.Setenv("MAILPILOT_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("MAILPILOT_MIN_RELEVANCE", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopK != 5 {
		t.Fatalf("top_k got %d want 5", cfg.TopK)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("listen addr got %q", cfg.ListenAddr)
	}
	if cfg.MinRelevance != 0.5 {
		t.Fatalf("min relevance got %f", cfg.MinRelevance)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("GMAIL_ADDRESS", "")
	t.Setenv("GMAIL_PASSWORD", "")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	for _, name := range []string{"GMAIL_ADDRESS", "GMAIL_PASSWORD", "GEMINI_API_KEY"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q missing %s", err, name)
		}
	}
}

func TestLoad_InvalidNumbers(t *testing.T) {
	setCredentials(t)
	t.Setenv("MAILPILOT_TOP_K", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-positive top_k")
	}
}
