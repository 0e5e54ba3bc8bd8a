// Package providers supplies the shared HTTP plumbing every model backend
// client embeds: a timeout-bounded client, consistent status-code-to-error
// classification, and request/response logging. Grounded on the teacher
// framework's ai/providers.BaseClient.
package providers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hollowmap/cartographer/core"
)

// BaseClient is embedded by each provider-specific client.
type BaseClient struct {
	HTTPClient *http.Client
	Logger     core.Logger

	DefaultMaxTokens   int
	DefaultTemperature float32
}

// NewBaseClient creates a base client with the given per-call timeout.
func NewBaseClient(timeout time.Duration, logger core.Logger) *BaseClient {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &BaseClient{
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,

		DefaultMaxTokens:   1024,
		DefaultTemperature: 0.7,
	}
}

// ClassifyStatus turns an HTTP status code into one of the dispatcher's
// typed error kinds (spec §4.1.e / §7).
func ClassifyStatus(statusCode int, body []byte, provider string) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return core.NewEngineError(provider+".Generate", "invalid_credential", core.ErrInvalidCredential)
	case statusCode >= 500, statusCode == http.StatusTooManyRequests:
		return core.NewEngineError(provider+".Generate", "server_or_client", core.ErrServerOrClient)
	case statusCode >= 400:
		return core.NewEngineError(provider+".Generate", "server_or_client", core.ErrServerOrClient)
	default:
		return core.NewEngineError(provider+".Generate", "unexpected_status", core.ErrServerOrClient)
	}
}

// ClassifyTransportError wraps a network-level failure (connection reset,
// timeout, DNS failure — anything that never produced an HTTP response) as
// the dispatcher's transient error kind.
func ClassifyTransportError(provider string, err error) error {
	return fmt.Errorf("%s.Generate: %w: %v", provider, core.ErrTransient, err)
}

// LogRequest logs an outgoing call at debug level.
func (b *BaseClient) LogRequest(provider, model string, promptLen int) {
	b.Logger.Debug("model request", map[string]interface{}{
		"provider":      provider,
		"model":         model,
		"prompt_length": promptLen,
	})
}

// LogResponse logs a completed call at debug level.
func (b *BaseClient) LogResponse(provider, model string, duration time.Duration) {
	b.Logger.Debug("model response", map[string]interface{}{
		"provider": provider,
		"model":    model,
		"duration": duration,
	})
}
