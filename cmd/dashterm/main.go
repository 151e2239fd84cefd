package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"mailpilot/internal/apiclient"
	"mailpilot/internal/tui"
)

func main() {
	baseURL := os.Getenv("MAILPILOT_API_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}

	client := apiclient.New(baseURL)
	appModel := tui.NewAppModel(client)
	p := tea.NewProgram(&appModel, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %v\n", err)
		os.Exit(1)
	}
	if m, ok := finalModel.(*tui.AppModel); ok && m.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", m.Err)
		os.Exit(1)
	}
}
