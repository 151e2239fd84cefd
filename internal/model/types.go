package model

import "time"

// Sentiment classifies the overall tone of a customer email.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Priority classifies how quickly a customer email needs attention.
type Priority string

const (
	PriorityUrgent    Priority = "urgent"
	PriorityNotUrgent Priority = "not-urgent"
)

// SendStatus tracks the lifecycle of a draft reply. sent and failed are
// terminal; pending records stay editable and retryable.
type SendStatus string

const (
	SendPending SendStatus = "pending"
	SendSent    SendStatus = "sent"
	SendFailed  SendStatus = "failed"
)

// InboundMessage is one unread support email as parsed off the mailbox.
// ID is the IMAP UID rendered as a string; immutable after fetch.
type InboundMessage struct {
	ID      string    `json:"id"`
	Sender  string    `json:"sender"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Date    time.Time `json:"date"`

	// MessageID is the RFC 5322 Message-ID, kept so replies can carry
	// In-Reply-To/References headers. Empty when the original lacked one.
	MessageID string `json:"message_id,omitempty"`
}

// AnalysisResult is the structured output of the analysis call for one
// message. Degraded marks results produced by the keyword fallback instead
// of the model.
type AnalysisResult struct {
	Sentiment Sentiment         `json:"sentiment"`
	Priority  Priority          `json:"priority"`
	Summary   string            `json:"summary"`
	Extracted map[string]string `json:"extracted_info,omitempty"`
	Degraded  bool              `json:"degraded,omitempty"`
}

// ContextDoc is one knowledge-base document returned by the retriever.
type ContextDoc struct {
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

// RetrievedContext is ordered by descending relevance score. It may be empty;
// an empty context is not an error.
type RetrievedContext []ContextDoc

// ProcessedEmail aggregates everything the dashboard needs for one email.
// Draft is owned by the operator until the record leaves pending.
type ProcessedEmail struct {
	Message     InboundMessage   `json:"message"`
	Analysis    AnalysisResult   `json:"analysis"`
	Context     RetrievedContext `json:"context"`
	Draft       string           `json:"draft"`
	SendStatus  SendStatus       `json:"send_status"`
	ProcessedAt time.Time        `json:"processed_at"`
}

// BatchResult is what one process-emails invocation returns to the dashboard.
// SkippedCount accounts for messages dropped by per-message parse failures so
// nothing disappears silently.
type BatchResult struct {
	Emails        []ProcessedEmail `json:"emails"`
	TotalCount    int              `json:"total_count"`
	UrgentCount   int              `json:"urgent_count"`
	NegativeCount int              `json:"negative_sentiment_count"`
	SkippedCount  int              `json:"skipped_count"`
}

// MailboxStats mirrors the stats endpoint payload: live mailbox counters
// plus archive totals per send status.
type MailboxStats struct {
	UnreadCount  int `json:"unread_count"`
	ReadCount    int `json:"read_count"`
	TotalCount   int `json:"total_count"`
	PendingCount int `json:"pending_count"`
	SentCount    int `json:"sent_count"`
	FailedCount  int `json:"failed_count"`
}
