package analysis

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"mailpilot/internal/model"
)

func TestFallback_Keywords(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		sentiment model.Sentiment
		priority  model.Priority
	}{
		{"urgent negative", "My account is BROKEN, please fix ASAP", model.SentimentNegative, model.PriorityUrgent},
		{"calm positive", "Thank you for the great support last week", model.SentimentPositive, model.PriorityNotUrgent},
		{"neutral", "Could you tell me your opening hours?", model.SentimentNeutral, model.PriorityNotUrgent},
		{"negative beats positive", "Thank you, but there is still a problem", model.SentimentNegative, model.PriorityUrgent},
		{"empty body", "", model.SentimentNeutral, model.PriorityNotUrgent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Fallback(tc.body)
			if got.Sentiment != tc.sentiment {
				t.Fatalf("sentiment got %q want %q", got.Sentiment, tc.sentiment)
			}
			if got.Priority != tc.priority {
				t.Fatalf("priority got %q want %q", got.Priority, tc.priority)
			}
			if !got.Degraded {
				t.Fatal("fallback results must be marked degraded")
			}
		})
	}
}

func TestTruncateSummary(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := truncateSummary(long)
	if runes := []rune(got); len(runes) != summaryLimit+1 {
		t.Fatalf("truncated length got %d want %d", len(runes), summaryLimit+1)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}

	if got := truncateSummary("  several\n words \t here "); got != "several words here" {
		t.Fatalf("whitespace collapse got %q", got)
	}
	if got := truncateSummary("   "); got != "Customer inquiry requiring assistance" {
		t.Fatalf("empty body summary got %q", got)
	}
}

// Fallback must always produce a dashboard-ready result, whatever the body.
func TestFallback_AlwaysValid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		body := rapid.String().Draw(t, "body")
		got := Fallback(body)

		switch got.Sentiment {
		case model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral:
		default:
			t.Fatalf("invalid sentiment %q", got.Sentiment)
		}
		switch got.Priority {
		case model.PriorityUrgent, model.PriorityNotUrgent:
		default:
			t.Fatalf("invalid priority %q", got.Priority)
		}
		if got.Summary == "" {
			t.Fatal("summary must not be empty")
		}
		if runes := []rune(got.Summary); len(runes) > summaryLimit+1 {
			t.Fatalf("summary too long: %d runes", len(runes))
		}
		if !got.Degraded {
			t.Fatal("fallback must be degraded")
		}
	})
}
