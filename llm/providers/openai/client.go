// Package openai is a hand-rolled client for OpenAI's chat completions API.
package openai

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

const DefaultBaseURL = "https://api.openai.com/v1"

// Client implements llm.Provider for OpenAI-compatible chat completion
// endpoints.
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

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

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float32       `json:"temperature"`
	ResponseFormat *responseFmt  `json:"response_format,omitempty"`
}

type responseFmt struct {
	Type string `json:"type"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// Generate implements llm.Provider.
func (c *Client) Generate(ctx context.Context, model string, req llm.Request) (string, error) {
	if c.apiKey == "" {
		return "", core.NewEngineError("openai.Generate", "invalid_credential", core.ErrInvalidCredential)
	}

	c.LogRequest("openai", model, len(req.Prompt))
	start := time.Now()

	messages := []chatMessage{}
	if req.SystemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemInstruction})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONSchema != nil {
		body.ResponseFormat = &responseFmt{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", providers.ClassifyTransportError("openai", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", providers.ClassifyTransportError("openai", err)
	}

	if resp.StatusCode >= 400 {
		return "", providers.ClassifyStatus(resp.StatusCode, respBody, "openai")
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}

	c.LogResponse("openai", model, time.Since(start))

	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

var _ llm.Provider = (*Client)(nil)
