package tui

import "mailpilot/internal/model"

// Async message types for Bubble Tea commands.

type emailsLoadedMsg struct {
	emails []model.ProcessedEmail
	err    error
}

type batchProcessedMsg struct {
	batch model.BatchResult
	err   error
}

type actionResultMsg struct {
	action string // "send", "discard"
	id     string
	status model.SendStatus
	err    error
}

type statsLoadedMsg struct {
	stats model.MailboxStats
	err   error
}

type statusMsg string
