// Package genai generates text with the Gemini API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"perfdash/internal/platform/config"
)

var (
	ErrNotConfigured = errors.New("genai: api key not configured")
	ErrEmptyResponse = errors.New("genai: response has no text")
)

type Client struct {
	model   string
	timeout time.Duration
	models  *genai.Models
	initErr error
}

// New builds a client for cfg. Without an API key every call fails with
// ErrNotConfigured. GeminiBaseURL overrides the SDK's endpoint when set.
func New(cfg config.Config) *Client {
	c := &Client{model: cfg.GeminiModel, timeout: cfg.GenAITimeout}
	if cfg.GeminiAPIKey == "" {
		c.initErr = ErrNotConfigured
		return c
	}
	sdk, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.GeminiAPIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.GeminiBaseURL},
	})
	if err != nil {
		c.initErr = fmt.Errorf("genai client: %w", err)
		return c
	}
	c.models = sdk.Models
	return c
}

// Generate returns the first candidate's text for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	if c.initErr != nil {
		return "", c.initErr
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("genai generate after %s: %w", time.Since(started).Round(time.Millisecond), err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
