// Package compose drafts the reply to one analyzed email, grounding the
// generation call in whatever knowledge-base context was retrieved.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mailpilot/internal/llm"
	"mailpilot/internal/model"
)

const composePrompt = `You are Alex, a professional Customer Support Assistant. Write a helpful email response based on the analysis below.

Customer Email Analysis:
- Sentiment: %s
- Priority: %s
- Summary: %s

Relevant Knowledge Base Information:
%s

Original Customer Email:
%s

Instructions:
1. Start with a professional greeting
2. If sentiment is negative, acknowledge their concern empathetically
3. If priority is urgent, acknowledge the urgency
4. Use the knowledge base information to address their specific question
5. If the knowledge base doesn't have the answer, say you're investigating and will follow up
6. Maintain a helpful, professional tone
7. End with: "Best regards,\nAlex\nCustomer Support Team"

Write the email response:`

// FallbackDraft is substituted when the generation endpoint fails, so the
// operator always has something to review.
const FallbackDraft = `Dear Customer,

Thank you for contacting us. We have received your email and are reviewing your request.

We will get back to you with a detailed response within 24 hours. If this is an urgent matter, please don't hesitate to call our support line.

Best regards,
Alex
Customer Support Team`

// Composer turns analysis + retrieved context into a draft reply.
type Composer struct {
	gen llm.Generator
	log *slog.Logger
}

func NewComposer(gen llm.Generator, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{gen: gen, log: logger}
}

// Compose returns the generated draft, or an error when the endpoint failed
// after retries. Callers substitute FallbackDraft on error; this function
// itself always yields non-empty text on success.
func (c *Composer) Compose(ctx context.Context, analysis model.AnalysisResult, docs model.RetrievedContext, original model.InboundMessage) (string, error) {
	prompt := buildPrompt(analysis, docs, original)
	out, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("compose draft: %w", err)
	}
	draft := strings.TrimSpace(out)
	if draft == "" {
		return "", fmt.Errorf("compose draft: %w: empty draft", llm.ErrUpstream)
	}
	return draft, nil
}

func buildPrompt(analysis model.AnalysisResult, docs model.RetrievedContext, original model.InboundMessage) string {
	return fmt.Sprintf(composePrompt,
		analysis.Sentiment,
		analysis.Priority,
		analysis.Summary,
		formatContext(docs),
		original.Body,
	)
}

// formatContext joins retrieved documents for the prompt; an empty context
// states so explicitly rather than leaving a hole in the template.
func formatContext(docs model.RetrievedContext) string {
	if len(docs) == 0 {
		return "No relevant information found in knowledge base."
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Text
	}
	return strings.Join(parts, "\n\n")
}
