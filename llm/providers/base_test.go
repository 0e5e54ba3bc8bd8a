package providers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hollowmap/cartographer/core"
)

func TestClassifyStatusUnauthorizedIsInvalidCredential(t *testing.T) {
	err := ClassifyStatus(http.StatusUnauthorized, nil, "anthropic")
	assert.ErrorIs(t, err, core.ErrInvalidCredential)
}

func TestClassifyStatusServerErrorIsRetryable(t *testing.T) {
	err := ClassifyStatus(http.StatusServiceUnavailable, nil, "openai")
	assert.True(t, core.IsRetryable(err))
}

func TestClassifyStatusRateLimitIsRetryable(t *testing.T) {
	err := ClassifyStatus(http.StatusTooManyRequests, nil, "gemini")
	assert.True(t, core.IsRetryable(err))
}

func TestClassifyTransportErrorIsRetryable(t *testing.T) {
	err := ClassifyTransportError("anthropic", errors.New("connection reset"))
	assert.True(t, core.IsRetryable(err))
}
