// Package apiclient is the dashboard's HTTP client for the mailpilot API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mailpilot/internal/model"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) ProcessEmails(ctx context.Context) (model.BatchResult, error) {
	var batch model.BatchResult
	err := c.do(ctx, http.MethodPost, "/process-emails", nil, &batch)
	return batch, err
}

func (c *Client) ListEmails(ctx context.Context) ([]model.ProcessedEmail, error) {
	var emails []model.ProcessedEmail
	err := c.do(ctx, http.MethodGet, "/emails", nil, &emails)
	return emails, err
}

func (c *Client) SendEmail(ctx context.Context, id, body string) (model.SendStatus, error) {
	req := map[string]string{"body": body}
	var resp struct {
		SendStatus string `json:"send_status"`
		Error      string `json:"error"`
	}
	err := c.do(ctx, http.MethodPost, "/emails/"+id+"/send", req, &resp)
	if err != nil {
		return "", err
	}
	return model.SendStatus(resp.SendStatus), nil
}

func (c *Client) DiscardEmail(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/emails/"+id+"/discard", nil, nil)
}

func (c *Client) EmailStats(ctx context.Context) (model.MailboxStats, error) {
	var stats model.MailboxStats
	err := c.do(ctx, http.MethodGet, "/email-stats", nil, &stats)
	return stats, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api %s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("api %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
