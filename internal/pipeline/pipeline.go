// Package pipeline orchestrates the per-email workflow: fetch unread mail,
// analyze, retrieve supporting context, draft a reply, and archive the result
// for dashboard review. Each email moves through the stages strictly in
// sequence; a failure before drafting degrades that email's record instead of
// dropping it, so every fetched email reaches the dashboard.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"mailpilot/internal/compose"
	"mailpilot/internal/knowledge"
	"mailpilot/internal/model"
	"mailpilot/internal/store"
)

// MailGateway is the mailbox surface the pipeline needs.
type MailGateway interface {
	FetchUnread(ctx context.Context) ([]model.InboundMessage, int, error)
	MarkSeen(ctx context.Context, ids []string) error
	SendReply(ctx context.Context, original model.InboundMessage, body string) error
	Counts(ctx context.Context) (unread, read int, err error)
}

// Analyzer classifies one message. It never fails; degraded results carry a
// marker instead.
type Analyzer interface {
	Analyze(ctx context.Context, msg model.InboundMessage) model.AnalysisResult
}

// Retriever finds supporting documents for a summary.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (model.RetrievedContext, error)
	Healthy() bool
}

// Composer drafts a reply from analysis plus context.
type Composer interface {
	Compose(ctx context.Context, analysis model.AnalysisResult, docs model.RetrievedContext, original model.InboundMessage) (string, error)
}

// Archive is the persistence surface for processed emails.
type Archive interface {
	SaveBatch(ctx context.Context, emails []model.ProcessedEmail) error
	Get(ctx context.Context, id string) (model.ProcessedEmail, error)
	ListAll(ctx context.Context) ([]model.ProcessedEmail, error)
	UpdateDraft(ctx context.Context, id, draft string) error
	TransitionSendStatus(ctx context.Context, id string, to model.SendStatus) error
	CountByStatus(ctx context.Context) (map[model.SendStatus]int, error)
}

// Pipeline ties the components together. A mutex serializes batch runs so
// concurrent dashboard triggers cannot interleave fetches.
type Pipeline struct {
	mu        sync.Mutex
	gateway   MailGateway
	analyzer  Analyzer
	retriever Retriever
	composer  Composer
	archive   Archive
	topK      int
	log       *slog.Logger
	now       func() time.Time
}

func New(gateway MailGateway, analyzer Analyzer, retriever Retriever, composer Composer, archive Archive, topK int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = 3
	}
	return &Pipeline{
		gateway:   gateway,
		analyzer:  analyzer,
		retriever: retriever,
		composer:  composer,
		archive:   archive,
		topK:      topK,
		log:       logger,
		now:       time.Now,
	}
}

// ProcessBatch fetches unread support emails and runs each through
// analyze → retrieve → compose, archiving every record as pending. The
// returned batch is sorted urgent-first, then negative-sentiment-first,
// preserving fetch order within each group.
func (p *Pipeline) ProcessBatch(ctx context.Context) (model.BatchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs, skipped, err := p.gateway.FetchUnread(ctx)
	if err != nil {
		return model.BatchResult{}, fmt.Errorf("fetch unread: %w", err)
	}
	result := model.BatchResult{SkippedCount: skipped}
	if len(msgs) == 0 {
		return result, nil
	}

	processedAt := p.now().UTC()
	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		record := p.processOne(ctx, msg, processedAt)
		result.Emails = append(result.Emails, record)
		ids = append(ids, msg.ID)
	}

	sortBatch(result.Emails)

	result.TotalCount = len(result.Emails)
	for _, e := range result.Emails {
		if e.Analysis.Priority == model.PriorityUrgent {
			result.UrgentCount++
		}
		if e.Analysis.Sentiment == model.SentimentNegative {
			result.NegativeCount++
		}
	}

	if err := p.archive.SaveBatch(ctx, result.Emails); err != nil {
		return model.BatchResult{}, fmt.Errorf("archive batch: %w", err)
	}

	// Confirm the batch so a later fetch returns no duplicates. The batch is
	// already archived; a mark-seen failure is reported but not fatal.
	if err := p.gateway.MarkSeen(ctx, ids); err != nil {
		p.log.Warn("mark seen failed, next fetch may repeat this batch", "error", err)
	}

	p.log.Info("batch processed",
		"total", result.TotalCount,
		"urgent", result.UrgentCount,
		"negative", result.NegativeCount,
		"skipped", result.SkippedCount,
	)
	return result, nil
}

// processOne walks a single email through the stages, degrading gracefully at
// each: analysis falls back internally, an unavailable index becomes an empty
// context, and a failed composition gets the generic acknowledgment draft.
func (p *Pipeline) processOne(ctx context.Context, msg model.InboundMessage, processedAt time.Time) model.ProcessedEmail {
	analysis := p.analyzer.Analyze(ctx, msg)

	docs, err := p.retriever.Retrieve(ctx, analysis.Summary, p.topK)
	if err != nil {
		if !errors.Is(err, knowledge.ErrIndexUnavailable) {
			p.log.Warn("retrieval failed, continuing without context", "id", msg.ID, "error", err)
		} else {
			p.log.Warn("vector index unavailable, continuing without context", "id", msg.ID)
		}
		docs = nil
	}

	draft, err := p.composer.Compose(ctx, analysis, docs, msg)
	if err != nil {
		p.log.Warn("compose failed, substituting fallback draft", "id", msg.ID, "error", err)
		draft = compose.FallbackDraft
	}

	return model.ProcessedEmail{
		Message:     msg,
		Analysis:    analysis,
		Context:     docs,
		Draft:       draft,
		SendStatus:  model.SendPending,
		ProcessedAt: processedAt,
	}
}

// sortBatch orders urgent before not-urgent, then negative sentiment first,
// stable so fetch order survives within each group.
func sortBatch(emails []model.ProcessedEmail) {
	sort.SliceStable(emails, func(i, j int) bool {
		ui := emails[i].Analysis.Priority == model.PriorityUrgent
		uj := emails[j].Analysis.Priority == model.PriorityUrgent
		if ui != uj {
			return ui
		}
		ni := emails[i].Analysis.Sentiment == model.SentimentNegative
		nj := emails[j].Analysis.Sentiment == model.SentimentNegative
		return ni && !nj
	})
}

// SubmitReply persists the operator's final draft and sends it. The record
// moves to sent only on gateway success; any gateway failure leaves it
// pending and returns the error to the caller verbatim.
func (p *Pipeline) SubmitReply(ctx context.Context, id, finalText string) (model.SendStatus, error) {
	record, err := p.archive.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if record.SendStatus != model.SendPending {
		return record.SendStatus, fmt.Errorf("%w: email %s already %s", store.ErrInvalidTransition, id, record.SendStatus)
	}

	if err := p.archive.UpdateDraft(ctx, id, finalText); err != nil {
		return model.SendPending, fmt.Errorf("save edited draft: %w", err)
	}

	if err := p.gateway.SendReply(ctx, record.Message, finalText); err != nil {
		return model.SendPending, err
	}

	if err := p.archive.TransitionSendStatus(ctx, id, model.SendSent); err != nil {
		// The reply went out; the archive disagreeing is a real problem but
		// must not be reported as a send failure.
		p.log.Error("reply sent but status update failed", "id", id, "error", err)
		return model.SendSent, nil
	}
	return model.SendSent, nil
}

// Discard marks a pending record failed. Terminal: the operator has abandoned
// the draft.
func (p *Pipeline) Discard(ctx context.Context, id string) error {
	return p.archive.TransitionSendStatus(ctx, id, model.SendFailed)
}

// List returns the archived records in processing order.
func (p *Pipeline) List(ctx context.Context) ([]model.ProcessedEmail, error) {
	return p.archive.ListAll(ctx)
}

// Stats reports support-mailbox counters and archive totals for the
// dashboard.
func (p *Pipeline) Stats(ctx context.Context) (model.MailboxStats, error) {
	unread, read, err := p.gateway.Counts(ctx)
	if err != nil {
		return model.MailboxStats{}, err
	}
	byStatus, err := p.archive.CountByStatus(ctx)
	if err != nil {
		return model.MailboxStats{}, fmt.Errorf("count archive: %w", err)
	}
	return model.MailboxStats{
		UnreadCount:  unread,
		ReadCount:    read,
		TotalCount:   unread + read,
		PendingCount: byStatus[model.SendPending],
		SentCount:    byStatus[model.SendSent],
		FailedCount:  byStatus[model.SendFailed],
	}, nil
}

// Healthy reports whether the knowledge index is open and populated.
func (p *Pipeline) Healthy() bool {
	return p.retriever.Healthy()
}
