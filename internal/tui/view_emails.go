package tui

import (
	"fmt"

	"mailpilot/internal/model"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

var (
	urgentBadge   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	negativeBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	sentBadge     = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	failedBadge   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingTop(1)
)

// emailItem wraps ProcessedEmail to customize list display.
type emailItem struct {
	model.ProcessedEmail
}

func (e emailItem) FilterValue() string { return e.Message.Sender + " " + e.Message.Subject }

func (e emailItem) Title() string {
	title := e.Message.Subject
	if title == "" {
		title = "(no subject)"
	}
	prefix := ""
	if e.Analysis.Priority == model.PriorityUrgent {
		prefix = urgentBadge.Render("! ")
	} else if e.Analysis.Sentiment == model.SentimentNegative {
		prefix = negativeBadge.Render("~ ")
	}
	switch e.SendStatus {
	case model.SendSent:
		return prefix + title + sentBadge.Render("  [sent]")
	case model.SendFailed:
		return prefix + title + failedBadge.Render("  [discarded]")
	}
	return prefix + title
}

func (e emailItem) Description() string {
	return fmt.Sprintf("%s  %s/%s  %s",
		e.Message.Sender, e.Analysis.Sentiment, e.Analysis.Priority, trimDate(e.Message.Date))
}

func emailsFooter(stats *model.MailboxStats) string {
	footer := "enter: open  p: process unread  d: discard  r: refresh  q: quit  !=urgent ~=negative"
	if stats != nil {
		footer = fmt.Sprintf("mailbox: %d unread / %d total   %s",
			stats.UnreadCount, stats.TotalCount, footer)
	}
	return footerStyle.Render(footer)
}

func emailsToItems(emails []model.ProcessedEmail) []list.Item {
	items := make([]list.Item, len(emails))
	for i, e := range emails {
		items[i] = emailItem{e}
	}
	return items
}
