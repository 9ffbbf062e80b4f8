package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/soothsayer/internal/common"
)

// Client sends a prompt to a provider and returns the raw reply text.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds provider settings for a Client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

const (
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 1024
)

// NewClient creates a provider client. A missing API key or unknown provider
// is reported as a *common.ConfigurationError so callers fail before the first call.
func NewClient(cfg Config) (Client, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = "gemini"
	}

	if cfg.APIKey == "" {
		return nil, common.NewConfigurationError("oracle.api_key",
			fmt.Errorf("%w: %s API key is required", common.ErrMissingConfig, provider))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	switch provider {
	case "gemini":
		return newGeminiClient(cfg), nil
	case "anthropic":
		return newAnthropicClient(cfg), nil
	case "openai":
		return newOpenAIClient(cfg), nil
	default:
		return nil, common.NewConfigurationError("oracle.provider",
			fmt.Errorf("%w: unsupported oracle provider %q", common.ErrInvalidConfig, cfg.Provider))
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// statusError classifies a non-200 reply. Rate limits and server errors are
// retryable; other client errors are not.
func statusError(provider string, status int, body []byte) error {
	err := fmt.Errorf("%s API error (status %d): %s", provider, status, strings.TrimSpace(string(body)))
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case status >= http.StatusInternalServerError:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}
