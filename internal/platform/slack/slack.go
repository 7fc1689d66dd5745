// Package slack posts messages with the chat.postMessage Web API method.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"perfdash/internal/platform/config"
)

var ErrNotConfigured = errors.New("slack: bot token not configured")

// APIError is a response with "ok": false.
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return "slack: " + e.Code
}

type Client struct {
	token  string
	apiURL string
	http   *http.Client
}

func New(cfg config.Config) *Client {
	return &Client{
		token:  cfg.SlackBotToken,
		apiURL: strings.TrimRight(cfg.SlackAPIURL, "/"),
		http:   &http.Client{Timeout: cfg.SlackTimeout},
	}
}

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type block struct {
	Type string     `json:"type"`
	Text textObject `json:"text"`
}

type postMessage struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []block `json:"blocks"`
}

// Post sends text to channel, which may be a channel name or a user id.
// The raw response body is returned whenever one was read; a body that is
// not JSON comes back as a JSON string.
func (c *Client) Post(ctx context.Context, channel, text string) (json.RawMessage, error) {
	if c == nil || c.token == "" {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(postMessage{
		Channel: channel,
		Text:    text,
		Blocks:  []block{{Type: "section", Text: textObject{Type: "mrkdwn", Text: text}}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		// Keep non-JSON bodies, such as a proxy's HTML error page, as a JSON string.
		wrapped, _ := json.Marshal(string(raw))
		return wrapped, fmt.Errorf("slack decode (status %d): %w", resp.StatusCode, err)
	}
	if !result.OK {
		code := result.Error
		if code == "" {
			code = resp.Status
		}
		return raw, &APIError{Code: code}
	}
	return raw, nil
}
