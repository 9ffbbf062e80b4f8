package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/soothsayer/internal/common"
)

// Gateway is the single path through which stages reach the oracle.
type Gateway struct {
	client  Client
	limiter Limiter
	logger  *slog.Logger
	retry   common.RetryOptions
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLimiter sets the pacing policy.
func WithLimiter(l Limiter) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.limiter = l
		}
	}
}

// WithRetries allows up to n extra attempts per call after a transport failure.
func WithRetries(n int, delay time.Duration) GatewayOption {
	return func(g *Gateway) {
		if n < 0 {
			n = 0
		}
		g.retry.MaxAttempts = n + 1
		g.retry.InitialDelay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway wraps client. By default calls are unpaced and not retried.
func NewGateway(client Client, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client:  client,
		limiter: Unlimited(),
		logger:  slog.Default(),
		retry: common.RetryOptions{
			MaxAttempts: 1,
			MaxDelay:    30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ask waits for the limiter, sends prompt and parses the reply. Failed calls
// return a *TransportError; a reply without a usable object is returned as a
// *MalformedResponse, not an error.
func (g *Gateway) Ask(ctx context.Context, prompt string) (Response, error) {
	var raw string
	err := common.WithRetry(ctx, func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}
		var callErr error
		raw, callErr = g.client.Complete(ctx, prompt)
		return callErr
	}, g.retry)
	if err != nil {
		g.logger.Debug("oracle call failed", "error", err, "retryable", common.IsRetryable(err))
		return nil, &TransportError{Err: err}
	}

	resp := Parse(raw)
	if m, ok := resp.(*MalformedResponse); ok {
		g.logger.Debug("oracle reply not parseable", "reason", m.Reason)
	}
	return resp, nil
}
