// Package analysis classifies one customer email into sentiment, priority,
// and a one-sentence summary using the text-generation endpoint, with a
// keyword fallback so a broken or unreachable endpoint never blocks an email
// from reaching the dashboard.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mailpilot/internal/llm"
	"mailpilot/internal/model"
)

// ErrMalformedResponse means the endpoint answered but its output could not
// be parsed into the required fields. The analyzer substitutes fallback
// content instead of surfacing this to callers.
var ErrMalformedResponse = errors.New("malformed analysis response")

const analysisPrompt = `Analyze the following customer email and provide a JSON response with these exact keys:

1. "sentiment": exactly one of "positive", "negative" or "neutral"
2. "priority": exactly one of "urgent" or "not-urgent"
   - Use "urgent" if the email contains words like: urgent, critical, asap, emergency, down, not working, broken, issue, problem, help needed, cannot access
   - Otherwise use "not-urgent"
3. "summary": a clear, concise one-sentence summary of what the customer is asking for or reporting
4. "extracted_info": a JSON object of important details such as order numbers, product names or contact info; use {} if none

Email to analyze:
%s

Respond with ONLY a valid JSON object:
{"sentiment": "...", "priority": "...", "summary": "...", "extracted_info": {}}`

// summaryLimit bounds the truncated-body summary used on fallback.
const summaryLimit = 140

// Analyzer runs the analysis prompt against a Generator.
type Analyzer struct {
	gen llm.Generator
	log *slog.Logger
}

func NewAnalyzer(gen llm.Generator, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{gen: gen, log: logger}
}

// Analyze never returns an error: when the endpoint is unreachable after
// retries, or its output cannot be parsed, the documented keyword fallback
// is returned with Degraded set.
func (a *Analyzer) Analyze(ctx context.Context, msg model.InboundMessage) model.AnalysisResult {
	out, err := a.gen.Generate(ctx, fmt.Sprintf(analysisPrompt, msg.Body))
	if err != nil {
		a.log.Warn("analysis call failed, using fallback", "id", msg.ID, "error", err)
		return Fallback(msg.Body)
	}
	res, err := parseAnalysis(out, msg.Body)
	if err != nil {
		a.log.Warn("analysis response unparseable, using fallback", "id", msg.ID, "error", err)
		return Fallback(msg.Body)
	}
	return res
}

// rawAnalysis mirrors the JSON shape the prompt asks for.
type rawAnalysis struct {
	Sentiment string         `json:"sentiment"`
	Priority  string         `json:"priority"`
	Summary   string         `json:"summary"`
	Extracted map[string]any `json:"extracted_info"`
}

// parseAnalysis extracts the JSON object from a model response and validates
// each field, repairing invalid ones individually rather than discarding the
// whole result.
func parseAnalysis(out, body string) (model.AnalysisResult, error) {
	payload := extractJSONObject(out)
	if payload == "" {
		return model.AnalysisResult{}, fmt.Errorf("%w: no JSON object in output", ErrMalformedResponse)
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	res := model.AnalysisResult{
		Sentiment: model.Sentiment(strings.ToLower(strings.TrimSpace(raw.Sentiment))),
		Priority:  model.Priority(strings.ToLower(strings.TrimSpace(raw.Priority))),
		Summary:   strings.TrimSpace(raw.Summary),
		Extracted: stringifyExtracted(raw.Extracted),
	}

	switch res.Sentiment {
	case model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral:
	default:
		res.Sentiment = keywordSentiment(body)
	}
	switch res.Priority {
	case model.PriorityUrgent, model.PriorityNotUrgent:
	default:
		res.Priority = keywordPriority(body)
	}
	if res.Summary == "" {
		res.Summary = truncateSummary(body)
	}
	return res, nil
}

// extractJSONObject strips code fences and returns the outermost {...} span.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func stringifyExtracted(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			b, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}
