package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mailpilot/internal/apiclient"
	"mailpilot/internal/model"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

type viewState int

const (
	viewLoading viewState = iota
	viewEmails            // main processed-emails list
	viewDetail            // single email with analysis, context and draft
	viewEditor            // editing the draft before sending
)

type AppModel struct {
	// Core state
	client *apiclient.Client
	Err    error
	status string

	// View state machine
	view     viewState
	emails   []model.ProcessedEmail
	selected *model.ProcessedEmail
	stats    *model.MailboxStats

	// Sub-models
	emailsList   list.Model
	detailView   viewport.Model
	draftEditor  textarea.Model

	// Layout
	width, height int
}

func NewAppModel(client *apiclient.Client) AppModel {
	el := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	// Remove esc from the list's built-in Quit binding so it doesn't exit on home
	el.KeyMap.Quit.SetKeys("q")

	ta := textarea.New()
	ta.Placeholder = "Edit the reply before sending"
	ta.CharLimit = 0

	return AppModel{
		client:      client,
		status:      "Loading emails...",
		view:        viewLoading,
		emailsList:  el,
		detailView:  viewport.New(0, 0),
		draftEditor: ta,
	}
}

func (m *AppModel) Init() tea.Cmd {
	return m.loadEmailsCmd()
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listH := msg.Height - 4 // room for footer
		m.emailsList.SetSize(msg.Width, listH)
		m.detailView.Width = msg.Width
		m.detailView.Height = msg.Height - 4
		m.draftEditor.SetWidth(msg.Width - 2)
		m.draftEditor.SetHeight(msg.Height - 8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case emailsLoadedMsg:
		if msg.err != nil {
			if m.view == viewLoading {
				m.Err = msg.err
				return m, tea.Quit
			}
			m.status = fmt.Sprintf("Refresh failed: %v", msg.err)
			return m, clearStatusAfter(3 * time.Second)
		}
		m.emails = msg.emails
		m.emailsList.SetItems(emailsToItems(m.emails))
		m.emailsList.Title = fmt.Sprintf("Support inbox (%d processed)", len(m.emails))
		if m.view == viewLoading {
			m.view = viewEmails
		}
		m.status = ""
		return m, m.loadStatsCmd()

	case batchProcessedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Processing failed: %v", msg.err)
			return m, clearStatusAfter(3 * time.Second)
		}
		m.status = fmt.Sprintf("Processed %d emails (%d urgent, %d negative, %d skipped)",
			msg.batch.TotalCount, msg.batch.UrgentCount, msg.batch.NegativeCount, msg.batch.SkippedCount)
		return m, tea.Batch(m.loadEmailsCmd(), clearStatusAfter(4*time.Second))

	case actionResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			return m, clearStatusAfter(3 * time.Second)
		}
		m.status = fmt.Sprintf("%s complete (%s)", msg.action, msg.status)
		if m.view == viewDetail || m.view == viewEditor {
			m.view = viewEmails
			m.selected = nil
		}
		return m, tea.Batch(m.loadEmailsCmd(), clearStatusAfter(2*time.Second))

	case statsLoadedMsg:
		if msg.err == nil {
			stats := msg.stats
			m.stats = &stats
		}
		return m, nil

	case statusMsg:
		if string(msg) == "" {
			m.status = ""
		}
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewEmails:
		m.emailsList, cmd = m.emailsList.Update(msg)
	case viewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case viewEditor:
		m.draftEditor, cmd = m.draftEditor.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	}

	switch m.view {
	case viewEmails:
		// When the list is filtering, let it handle all keys except ctrl+c
		if m.emailsList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.emailsList, cmd = m.emailsList.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m, tea.Quit
		case "enter":
			return m.enterEmail()
		case "p":
			m.status = "Processing unread support emails..."
			return m, m.processBatchCmd()
		case "r":
			m.status = "Refreshing..."
			return m, m.loadEmailsCmd()
		case "d":
			return m.discardSelected()
		}
		var cmd tea.Cmd
		m.emailsList, cmd = m.emailsList.Update(msg)
		return m, cmd

	case viewDetail:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = viewEmails
			m.selected = nil
			return m, nil
		case "e":
			return m.editDraft()
		case "s":
			if m.selected != nil && m.selected.SendStatus == model.SendPending {
				m.status = "Sending..."
				return m, m.sendCmd(m.selected.Message.ID, m.selected.Draft)
			}
			m.status = "Only pending emails can be sent"
			return m, clearStatusAfter(2 * time.Second)
		case "d":
			if m.selected != nil && m.selected.SendStatus == model.SendPending {
				m.status = "Discarding..."
				return m, m.discardCmd(m.selected.Message.ID)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.detailView, cmd = m.detailView.Update(msg)
		return m, cmd

	case viewEditor:
		switch key {
		case "esc":
			m.view = viewDetail
			return m, nil
		case "ctrl+s":
			if m.selected != nil {
				m.status = "Sending..."
				return m, m.sendCmd(m.selected.Message.ID, m.draftEditor.Value())
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.draftEditor, cmd = m.draftEditor.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *AppModel) enterEmail() (tea.Model, tea.Cmd) {
	selected := m.emailsList.SelectedItem()
	if selected == nil {
		return m, nil
	}
	ei := selected.(emailItem)
	e := ei.ProcessedEmail
	m.selected = &e

	m.detailView.SetContent(renderDetail(e, m.detailView.Width))
	m.detailView.GotoTop()
	m.view = viewDetail
	return m, nil
}

func (m *AppModel) editDraft() (tea.Model, tea.Cmd) {
	if m.selected == nil {
		return m, nil
	}
	if m.selected.SendStatus != model.SendPending {
		m.status = "Only pending drafts can be edited"
		return m, clearStatusAfter(2 * time.Second)
	}
	m.draftEditor.SetValue(m.selected.Draft)
	m.draftEditor.Focus()
	m.view = viewEditor
	return m, textarea.Blink
}

func (m *AppModel) discardSelected() (tea.Model, tea.Cmd) {
	selected := m.emailsList.SelectedItem()
	if selected == nil {
		return m, nil
	}
	ei := selected.(emailItem)
	if ei.SendStatus != model.SendPending {
		m.status = "Only pending emails can be discarded"
		return m, clearStatusAfter(2 * time.Second)
	}
	m.status = "Discarding..."
	return m, m.discardCmd(ei.Message.ID)
}

// Commands

func (m *AppModel) loadEmailsCmd() tea.Cmd {
	return func() tea.Msg {
		emails, err := m.client.ListEmails(context.Background())
		return emailsLoadedMsg{emails: emails, err: err}
	}
}

func (m *AppModel) processBatchCmd() tea.Cmd {
	return func() tea.Msg {
		batch, err := m.client.ProcessEmails(context.Background())
		return batchProcessedMsg{batch: batch, err: err}
	}
}

func (m *AppModel) sendCmd(id, body string) tea.Cmd {
	return func() tea.Msg {
		status, err := m.client.SendEmail(context.Background(), id, body)
		return actionResultMsg{action: "Send", id: id, status: status, err: err}
	}
}

func (m *AppModel) discardCmd(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.client.DiscardEmail(context.Background(), id)
		return actionResultMsg{action: "Discard", id: id, status: model.SendFailed, err: err}
	}
}

func (m *AppModel) loadStatsCmd() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.client.EmailStats(context.Background())
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	// Error state
	if m.Err != nil {
		return "Error: " + m.Err.Error() + "\n"
	}

	// Loading
	if m.view == viewLoading {
		if m.status != "" {
			return m.status + "\n"
		}
		return "Loading...\n"
	}

	var b strings.Builder

	switch m.view {
	case viewEmails:
		b.WriteString(m.emailsList.View())
		b.WriteString("\n")
		b.WriteString(emailsFooter(m.stats))
	case viewDetail:
		b.WriteString(m.detailView.View())
		b.WriteString("\n")
		b.WriteString(detailFooter())
	case viewEditor:
		b.WriteString("Edit reply:\n\n")
		b.WriteString(m.draftEditor.View())
		b.WriteString("\n")
		b.WriteString(editorFooter())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}

	return b.String()
}

// trimDate converts a timestamp to a short date string.
func trimDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}
