package tui

import (
	"fmt"
	"strings"

	"mailpilot/internal/model"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			PaddingBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("105"))

	degradedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Italic(true)
)

func renderDetail(e model.ProcessedEmail, width int) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf(
		"From: %s\nSubject: %s\nDate: %s\nStatus: %s",
		e.Message.Sender, e.Message.Subject, trimDate(e.Message.Date), e.SendStatus)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Analysis"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Sentiment: %s   Priority: %s\n", e.Analysis.Sentiment, e.Analysis.Priority))
	b.WriteString(fmt.Sprintf("Summary: %s\n", e.Analysis.Summary))
	if e.Analysis.Degraded {
		b.WriteString(degradedStyle.Render("(degraded: keyword analysis, model unavailable)"))
		b.WriteString("\n")
	}
	for k, v := range e.Analysis.Extracted {
		b.WriteString(fmt.Sprintf("%s: %s\n", k, v))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Knowledge base context"))
	b.WriteString("\n")
	if len(e.Context) == 0 {
		b.WriteString("No relevant documents found.\n")
	}
	for i, doc := range e.Context {
		b.WriteString(fmt.Sprintf("[%d] (%.2f) %s\n", i+1, doc.Score, doc.Text))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Draft reply"))
	b.WriteString("\n")
	b.WriteString(e.Draft)
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Original message"))
	b.WriteString("\n")
	b.WriteString(e.Message.Body)
	b.WriteString("\n")

	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func detailFooter() string {
	return footerStyle.Render("s: send draft  e: edit draft  d: discard  esc: back  q: quit")
}

func editorFooter() string {
	return footerStyle.Render("ctrl+s: send  esc: cancel")
}
