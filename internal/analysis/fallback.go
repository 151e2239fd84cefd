package analysis

import (
	"strings"
	"unicode"

	"mailpilot/internal/model"
)

// Keyword lists for the degraded path. Matching is case-insensitive over the
// raw body.
var (
	urgentKeywords = []string{
		"urgent", "critical", "asap", "emergency", "down", "not working",
		"broken", "issue", "problem", "help needed", "cannot access",
	}
	negativeKeywords = []string{
		"problem", "issue", "broken", "not working", "error", "failed", "wrong",
	}
	positiveKeywords = []string{
		"thank", "great", "excellent", "good", "satisfied", "happy",
	}
)

// Fallback produces a usable AnalysisResult from the body alone. Used when
// the generation endpoint is unreachable or returned garbage.
func Fallback(body string) model.AnalysisResult {
	return model.AnalysisResult{
		Sentiment: keywordSentiment(body),
		Priority:  keywordPriority(body),
		Summary:   truncateSummary(body),
		Degraded:  true,
	}
}

func keywordPriority(body string) model.Priority {
	lower := strings.ToLower(body)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return model.PriorityUrgent
		}
	}
	return model.PriorityNotUrgent
}

func keywordSentiment(body string) model.Sentiment {
	lower := strings.ToLower(body)
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			return model.SentimentNegative
		}
	}
	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			return model.SentimentPositive
		}
	}
	return model.SentimentNeutral
}

// truncateSummary collapses whitespace and clips the body to summaryLimit
// runes so the dashboard always has something readable.
func truncateSummary(body string) string {
	fields := strings.FieldsFunc(body, unicode.IsSpace)
	joined := strings.Join(fields, " ")
	if joined == "" {
		return "Customer inquiry requiring assistance"
	}
	runes := []rune(joined)
	if len(runes) <= summaryLimit {
		return joined
	}
	return string(runes[:summaryLimit]) + "…"
}
