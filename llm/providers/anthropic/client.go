// Package anthropic is a hand-rolled client for Anthropic's native Messages
// API — no official SDK, matching the teacher framework's provider style.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hollowmap/cartographer/core"
	"github.com/hollowmap/cartographer/llm"
	"github.com/hollowmap/cartographer/llm/providers"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	APIVersion     = "2023-06-01"
)

// Client implements llm.Provider for Anthropic.
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

// NewClient creates an Anthropic client. An empty apiKey makes every call
// fail with core.ErrInvalidCredential, matching the dispatcher's
// fail-fast-on-missing-credential contract.
func NewClient(apiKey, baseURL string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseClient: providers.NewBaseClient(30*time.Second, logger),
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type response struct {
	Content []contentBlock `json:"content"`
}

// Generate implements llm.Provider.
func (c *Client) Generate(ctx context.Context, model string, req llm.Request) (string, error) {
	if c.apiKey == "" {
		return "", core.NewEngineError("anthropic.Generate", "invalid_credential", core.ErrInvalidCredential)
	}

	c.LogRequest("anthropic", model, len(req.Prompt))
	start := time.Now()

	body := request{
		Model:       model,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		System:      req.SystemInstruction,
		MaxTokens:   c.DefaultMaxTokens,
		Temperature: req.Temperature,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", providers.ClassifyTransportError("anthropic", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", providers.ClassifyTransportError("anthropic", err)
	}

	if resp.StatusCode >= 400 {
		return "", providers.ClassifyStatus(resp.StatusCode, respBody, "anthropic")
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}

	c.LogResponse("anthropic", model, time.Since(start))

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

var _ llm.Provider = (*Client)(nil)
